package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/framelink/internal/protocol"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/websocket"
)

var ErrDialURLRequired = errors.New("transport: websocket url required")

// WebSocket carries one message per websocket text frame. Remote sends write
// to the socket; local sends loop back into the inbound queue.
type WebSocket struct {
	conn *websocket.Conn
	in   *inbox

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

var _ Transport = (*WebSocket)(nil)

// NewWebSocket wraps an established connection and starts its reader.
func NewWebSocket(conn *websocket.Conn) *WebSocket {
	ws := &WebSocket{
		conn:   conn,
		in:     newInbox(),
		closed: make(chan struct{}),
	}
	go ws.readLoop()
	return ws
}

func (w *WebSocket) readLoop() {
	defer func() { _ = w.Close() }()
	for {
		var msg []byte
		if err := websocket.Message.Receive(w.conn, &msg); err != nil {
			select {
			case <-w.closed:
			default:
				if !errors.Is(err, io.EOF) {
					log.Debug().Err(err).Msg("transport.WebSocket read ended")
				}
			}
			return
		}
		w.in.push(msg)
	}
}

func (w *WebSocket) Send(ctx context.Context, raw []byte, target protocol.Target) error {
	if err := validTarget(target); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-w.closed:
		return ErrClosed
	default:
	}

	if target == protocol.TargetLocal {
		if !w.in.push(clone(raw)) {
			return ErrClosed
		}
		return nil
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = w.conn.SetWriteDeadline(deadline)
		defer func() { _ = w.conn.SetWriteDeadline(time.Time{}) }()
	}
	if err := websocket.Message.Send(w.conn, string(raw)); err != nil {
		return fmt.Errorf("transport: websocket send: %w", err)
	}
	return nil
}

func (w *WebSocket) OnReceive(fn func(raw []byte)) func() {
	return w.in.subscribe(fn)
}

// Done is closed once the connection is gone.
func (w *WebSocket) Done() <-chan struct{} {
	return w.closed
}

func (w *WebSocket) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closed)
		w.in.close()
		err = w.conn.Close()
	})
	return err
}

// DialConfig configures DialWebSocket.
type DialConfig struct {
	URL         string
	Origin      string
	MaxAttempts int
	Backoff     BackoffConfig
}

func DefaultDialConfig() DialConfig {
	return DialConfig{
		MaxAttempts: 5,
		Backoff:     DefaultBackoffConfig(),
	}
}

// DialWebSocket connects to a host websocket endpoint, retrying with backoff.
// MaxAttempts <= 0 retries until ctx is done.
func DialWebSocket(ctx context.Context, cfg DialConfig) (*WebSocket, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, ErrDialURLRequired
	}
	origin := strings.TrimSpace(cfg.Origin)
	if origin == "" {
		origin = originFor(url)
	}
	wsCfg, err := websocket.NewConfig(url, origin)
	if err != nil {
		return nil, fmt.Errorf("transport: websocket config: %w", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var attempt int
	for {
		attempt++
		conn, err := wsCfg.DialContext(ctx)
		if err == nil {
			return NewWebSocket(conn), nil
		}
		log.Warn().
			Int("attempt", attempt).
			Str("url", url).
			Err(err).
			Msg("transport.DialWebSocket dial failed")
		if cfg.MaxAttempts > 0 && attempt >= cfg.MaxAttempts {
			return nil, fmt.Errorf("transport: websocket dial %s: %w", url, err)
		}
		if err := sleepBackoff(ctx, cfg.Backoff, attempt, rng); err != nil {
			return nil, err
		}
	}
}

func originFor(url string) string {
	switch {
	case strings.HasPrefix(url, "wss://"):
		return "https://" + hostOf(strings.TrimPrefix(url, "wss://"))
	case strings.HasPrefix(url, "ws://"):
		return "http://" + hostOf(strings.TrimPrefix(url, "ws://"))
	default:
		return url
	}
}

func hostOf(rest string) string {
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[:i]
	}
	return rest
}
