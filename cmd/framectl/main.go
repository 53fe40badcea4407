package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/framelink/internal/config"
	"github.com/danmuck/framelink/internal/logging"
	"github.com/danmuck/framelink/internal/mediator"
	"github.com/danmuck/framelink/internal/transport"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "cmd/framectl/config.toml", "frame config path")
	flag.Parse()

	logging.ConfigureRuntime()
	logging.Tag("framectl")

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "framectl: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	t, done, cleanup, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	med, err := mediator.New(t, mediator.WithName(cfg.Name))
	if err != nil {
		return err
	}
	registerHandlers(med, cfg)
	if err := med.Start(); err != nil {
		return err
	}
	defer med.Stop()

	if err := med.Send(ctx, mediator.Message{
		NameSpace: cfg.NameSpace,
		Event:     "ready",
		Data:      map[string]string{"name": cfg.Name},
	}); err != nil {
		return err
	}
	greetHost(ctx, med, cfg.NameSpace)

	select {
	case <-ctx.Done():
		log.Info().Msg("framectl shutting down")
	case <-done:
		log.Warn().Msg("host connection closed")
	}
	return nil
}

// connect opens the configured transport. done closes when the link drops;
// it is nil for transports without a connection lifetime.
func connect(ctx context.Context, cfg config.FrameConfig) (transport.Transport, <-chan struct{}, func(), error) {
	switch cfg.Transport {
	case config.TransportRedis:
		client, err := transport.ConnectRedis(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		rt, err := transport.NewRedis(ctx, client, transport.RedisConfig{
			Prefix: cfg.RedisPrefix,
			Side:   "frame",
			Peer:   "host",
		})
		if err != nil {
			_ = client.Close()
			return nil, nil, nil, err
		}
		return rt, nil, func() {
			_ = rt.Close()
			_ = client.Close()
		}, nil
	default:
		ws, err := transport.DialWebSocket(ctx, cfg.Dial)
		if err != nil {
			return nil, nil, nil, err
		}
		log.Info().Str("url", cfg.Dial.URL).Msg("connected to host")
		return ws, ws.Done(), func() { _ = ws.Close() }, nil
	}
}

func greetHost(ctx context.Context, med *mediator.Mediator, nameSpace string) {
	callCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	info, err := med.Call(callCtx, mediator.Message{NameSpace: nameSpace, Event: "hostInfo"})
	if err != nil {
		log.Warn().Str("ns", nameSpace).Err(err).Msg("hostInfo call failed")
		return
	}
	log.Info().Str("ns", nameSpace).RawJSON("host", info).Msg("host info")
}

// loadConfig falls back to defaults when the file does not exist.
func loadConfig(path string) (config.FrameConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Warn().Str("path", path).Msg("frame config not found, using defaults")
		cfg := config.DefaultFrameConfig()
		cfg.Dial.URL = cfg.HostURL
		return cfg, config.ValidateFrameConfig(cfg)
	}
	cfg, err := config.LoadFrameConfig(path)
	if err != nil {
		return config.FrameConfig{}, err
	}
	log.Info().Str("path", path).Str("transport", cfg.Transport).Msg("loaded frame config")
	return cfg, nil
}
