package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/danmuck/framelink/internal/config"
	"github.com/danmuck/framelink/internal/mediator"
	"github.com/rs/zerolog/log"
)

type hostInfo struct {
	Name      string    `json:"name"`
	NameSpace string    `json:"namespace"`
	Now       time.Time `json:"now"`
}

// sessionHandlers installs the host side of the frame conversation.
func sessionHandlers(cfg config.HostConfig) func(*mediator.Mediator) {
	return func(med *mediator.Mediator) {
		med.On(cfg.NameSpace, "ready", func(data json.RawMessage) error {
			log.Info().Str("ns", cfg.NameSpace).RawJSON("data", nonEmpty(data)).Msg("frame ready")
			return nil
		})
		med.Respond(cfg.NameSpace, "hostInfo", func(context.Context, json.RawMessage) (any, error) {
			return hostInfo{Name: cfg.Name, NameSpace: cfg.NameSpace, Now: time.Now().UTC()}, nil
		})
	}
}

func nonEmpty(data json.RawMessage) []byte {
	if len(data) == 0 {
		return []byte("null")
	}
	return data
}
