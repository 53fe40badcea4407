package host

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/framelink/internal/mediator"
	"github.com/danmuck/framelink/internal/observability"
	"github.com/danmuck/framelink/internal/transport"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/websocket"
)

var (
	ErrFrameConnected    = errors.New("host: a frame is already connected")
	ErrNoFrame           = errors.New("host: no frame connected")
	ErrNameSpaceRequired = errors.New("host: namespace required")
)

// Options configures a Server.
type Options struct {
	Name        string
	Addr        string
	WSPath      string
	NameSpace   string
	CorsOrigins []string
	CallTimeout time.Duration
	// OnSession runs for every new frame session before its mediator starts.
	OnSession func(*mediator.Mediator)
}

type session struct {
	med       *mediator.Mediator
	transport transport.Transport
	connected time.Time
}

// Server exposes the websocket endpoint and operator routes.
type Server struct {
	opts     Options
	router   *gin.Engine
	appeared time.Time

	mu     sync.Mutex
	active *session
}

func New(opts Options) (*Server, error) {
	if strings.TrimSpace(opts.NameSpace) == "" {
		return nil, ErrNameSpaceRequired
	}
	if strings.TrimSpace(opts.Name) == "" {
		opts.Name = "host"
	}
	if strings.TrimSpace(opts.WSPath) == "" {
		opts.WSPath = "/ws"
	}

	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.HTTPObserver(opts.Name))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		opts:     opts,
		router:   r,
		appeared: time.Now(),
	}
	s.registerRoutes(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(opts.CorsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	return s, nil
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves HTTP on Addr until ctx is done, then shuts down and detaches the
// current frame session.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info().Str("host", s.opts.Name).Str("addr", s.opts.Addr).Str("ws_path", s.opts.WSPath).Msg("host listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if med, ok := s.Mediator(); ok {
		s.Detach(med)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Attach starts a mediator over t as the current frame session.
func (s *Server) Attach(t transport.Transport) (*mediator.Mediator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return nil, ErrFrameConnected
	}
	med, err := mediator.New(t,
		mediator.WithName(s.opts.Name),
		mediator.WithCallTimeout(s.opts.CallTimeout),
	)
	if err != nil {
		return nil, err
	}
	if s.opts.OnSession != nil {
		s.opts.OnSession(med)
	}
	if err := med.Start(); err != nil {
		return nil, err
	}
	s.active = &session{med: med, transport: t, connected: time.Now()}
	log.Info().Str("host", s.opts.Name).Msg("frame session attached")
	return med, nil
}

// Detach stops med if it is the current session.
func (s *Server) Detach(med *mediator.Mediator) {
	s.mu.Lock()
	if s.active == nil || s.active.med != med {
		s.mu.Unlock()
		return
	}
	s.active = nil
	s.mu.Unlock()

	med.Stop()
	log.Info().Str("host", s.opts.Name).Msg("frame session detached")
}

// Mediator returns the current session's mediator.
func (s *Server) Mediator() (*mediator.Mediator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil, false
	}
	return s.active.med, true
}

func (s *Server) serveFrame(conn *websocket.Conn) {
	ws := transport.NewWebSocket(conn)
	defer func() { _ = ws.Close() }()

	med, err := s.Attach(ws)
	if err != nil {
		log.Warn().
			Str("host", s.opts.Name).
			Str("remote", conn.Request().RemoteAddr).
			Err(err).
			Msg("frame connection refused")
		return
	}
	defer s.Detach(med)
	<-ws.Done()
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
