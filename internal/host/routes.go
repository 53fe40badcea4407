package host

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/danmuck/framelink/internal/mediator"
	"github.com/danmuck/framelink/internal/protocol"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/websocket"
)

const maxBodyBytes = 1 << 20

// registerRoutes keeps the frame endpoint outside the cors group. Origin is
// not checked there, any page may embed the frame.
func (s *Server) registerRoutes(corsMiddleware gin.HandlerFunc) {
	frameHandler := websocket.Server{Handler: s.serveFrame}

	s.router.GET(s.opts.WSPath, func(c *gin.Context) {
		if _, ok := s.Mediator(); ok {
			c.JSON(http.StatusConflict, gin.H{"error": ErrFrameConnected.Error()})
			return
		}
		frameHandler.ServeHTTP(c.Writer, c.Request)
	})

	api := s.router.Group("", corsMiddleware)

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.appeared).String(),
			"service": s.opts.Name,
		})
	})

	api.GET("/ready", func(c *gin.Context) {
		_, ok := s.Mediator()
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":   ok,
			"service": s.opts.Name,
		})
	})

	api.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api.GET("/calls", func(c *gin.Context) {
		med, ok := s.Mediator()
		if !ok {
			c.JSON(http.StatusOK, gin.H{"pending": []mediator.PendingCall{}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"pending": med.Pending()})
	})

	api.POST("/calls/:event", s.handleCall)
	api.POST("/events/:event", s.handleEvent)
}

func (s *Server) handleCall(c *gin.Context) {
	med, ok := s.Mediator()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": ErrNoFrame.Error()})
		return
	}
	data, err := readBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := med.Call(c.Request.Context(), mediator.Message{
		NameSpace: s.nameSpace(c),
		Event:     c.Param("event"),
		Data:      data,
	})
	if err != nil {
		var remote *mediator.RemoteError
		switch {
		case errors.As(err, &remote):
			c.JSON(http.StatusBadGateway, gin.H{"error": "remote failure", "err": rawOrNil(remote.Payload)})
		case errors.Is(err, mediator.ErrReservedEvent), errors.Is(err, protocol.ErrPayloadNotObject):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, mediator.ErrStopped):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		case errors.Is(err, context.DeadlineExceeded):
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
		case errors.Is(err, context.Canceled):
			// client went away
			c.Abort()
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rawOrNil(out)})
}

func (s *Server) handleEvent(c *gin.Context) {
	med, ok := s.Mediator()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": ErrNoFrame.Error()})
		return
	}
	data, err := readBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg := mediator.Message{NameSpace: s.nameSpace(c), Event: c.Param("event"), Data: data}
	send := med.Send
	if c.Query("target") == "local" {
		send = med.SendLocal
	}
	if err := send(c.Request.Context(), msg); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
}

func (s *Server) nameSpace(c *gin.Context) string {
	if ns := c.Query("ns"); ns != "" {
		return ns
	}
	return s.opts.NameSpace
}

// readBody returns the request body as raw json, or nil when it is empty.
func readBody(c *gin.Context) (json.RawMessage, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}
	if !json.Valid(body) {
		return nil, errors.New("request body is not valid json")
	}
	return json.RawMessage(body), nil
}

func rawOrNil(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
