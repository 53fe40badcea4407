package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/danmuck/framelink/internal/config"
	"github.com/danmuck/framelink/internal/mediator"
	"github.com/rs/zerolog/log"
)

var errUnknownKey = errors.New("unknown key")

// registerHandlers installs the frame side: a small key/value store the host
// can query with correlated calls, plus a ping and a notify sink.
func registerHandlers(med *mediator.Mediator, cfg config.FrameConfig) {
	store := map[string]any{
		"name":    cfg.Name,
		"started": time.Now().UTC(),
	}

	med.Respond(cfg.NameSpace, "getData", func(_ context.Context, data json.RawMessage) (any, error) {
		var req struct {
			Key string `json:"key"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		v, ok := store[req.Key]
		if !ok {
			return nil, &mediator.RemoteError{Payload: mustJSON(map[string]string{
				"message": errUnknownKey.Error(),
				"key":     req.Key,
			})}
		}
		return map[string]any{"key": req.Key, "value": v}, nil
	})

	med.Respond(cfg.NameSpace, "ping", func(context.Context, json.RawMessage) (any, error) {
		return map[string]any{"pong": true, "at": time.Now().UTC()}, nil
	})

	med.On(cfg.NameSpace, "notify", func(data json.RawMessage) error {
		log.Info().Str("ns", cfg.NameSpace).RawJSON("data", nonEmpty(data)).Msg("host notification")
		return nil
	})
}

func mustJSON(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

func nonEmpty(data json.RawMessage) []byte {
	if len(data) == 0 {
		return []byte("null")
	}
	return data
}
