package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/framelink/internal/config"
	"github.com/danmuck/framelink/internal/host"
	"github.com/danmuck/framelink/internal/logging"
	"github.com/danmuck/framelink/internal/transport"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "cmd/hostctl/config.toml", "host config path")
	flag.Parse()

	logging.ConfigureRuntime()
	logging.Tag("hostctl")

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "hostctl: %v\n", err)
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

	srv, err := host.New(host.Options{
		Name:        cfg.Name,
		Addr:        cfg.Addr,
		WSPath:      cfg.WSPath,
		NameSpace:   cfg.NameSpace,
		CorsOrigins: cfg.CorsOrigins,
		CallTimeout: cfg.CallTimeout,
		OnSession:   sessionHandlers(cfg),
	})
	if err != nil {
		return err
	}

	if cfg.Transport == config.TransportRedis {
		client, err := transport.ConnectRedis(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		rt, err := transport.NewRedis(ctx, client, transport.RedisConfig{
			Prefix: cfg.RedisPrefix,
			Side:   "host",
			Peer:   "frame",
		})
		if err != nil {
			return err
		}
		defer func() { _ = rt.Close() }()
		if _, err := srv.Attach(rt); err != nil {
			return err
		}
	}
	return srv.Run(ctx)
}

// loadConfig falls back to defaults when the file does not exist.
func loadConfig(path string) (config.HostConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Warn().Str("path", path).Msg("host config not found, using defaults")
		cfg := config.DefaultHostConfig()
		return cfg, config.ValidateHostConfig(cfg)
	}
	cfg, err := config.LoadHostConfig(path)
	if err != nil {
		return config.HostConfig{}, err
	}
	log.Info().Str("path", path).Str("transport", cfg.Transport).Msg("loaded host config")
	return cfg, nil
}
