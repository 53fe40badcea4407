package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/framelink/internal/transport"
)

const (
	TransportWebSocket = "websocket"
	TransportRedis     = "redis"
)

var (
	ErrUnknownTransport = errors.New("config: unknown transport")
	ErrRedisURLRequired = errors.New("config: redis_url required for redis transport")
)

// HostConfig configures hostctl: the side that embeds the frame.
type HostConfig struct {
	Name        string
	Addr        string
	WSPath      string
	CorsOrigins []string
	NameSpace   string
	CallTimeout time.Duration
	Transport   string
	RedisURL    string
	RedisPrefix string
}

// FrameConfig configures framectl: the embedded side that dials the host.
type FrameConfig struct {
	Name        string
	HostURL     string
	Origin      string
	NameSpace   string
	Transport   string
	RedisURL    string
	RedisPrefix string
	Dial        transport.DialConfig
}

func DefaultHostConfig() HostConfig {
	return HostConfig{
		Name:        "host",
		Addr:        ":9400",
		WSPath:      "/ws",
		CorsOrigins: []string{"http://localhost:3000"},
		NameSpace:   "contentscripts",
		Transport:   TransportWebSocket,
		RedisPrefix: "framelink",
	}
}

func DefaultFrameConfig() FrameConfig {
	return FrameConfig{
		Name:        "frame",
		HostURL:     "ws://127.0.0.1:9400/ws",
		NameSpace:   "contentscripts",
		Transport:   TransportWebSocket,
		RedisPrefix: "framelink",
		Dial:        transport.DefaultDialConfig(),
	}
}

type hostFile struct {
	Name        string   `toml:"name"`
	Addr        string   `toml:"addr"`
	WSPath      string   `toml:"ws_path"`
	CorsOrigins []string `toml:"cors_origins"`
	NameSpace   string   `toml:"namespace"`
	CallTimeout string   `toml:"call_timeout"`
	Transport   string   `toml:"transport"`
	RedisURL    string   `toml:"redis_url"`
	RedisPrefix string   `toml:"redis_prefix"`
}

type frameFile struct {
	Name               string  `toml:"name"`
	HostURL            string  `toml:"host_url"`
	Origin             string  `toml:"origin"`
	NameSpace          string  `toml:"namespace"`
	Transport          string  `toml:"transport"`
	RedisURL           string  `toml:"redis_url"`
	RedisPrefix        string  `toml:"redis_prefix"`
	MaxConnectAttempts int     `toml:"max_connect_attempts"`
	BackoffInitial     string  `toml:"backoff_initial"`
	BackoffMax         string  `toml:"backoff_max"`
	BackoffMultiplier  float64 `toml:"backoff_multiplier"`
	BackoffJitter      bool    `toml:"backoff_jitter"`
}

// LoadHostConfig overlays the keys present in path onto DefaultHostConfig.
func LoadHostConfig(path string) (HostConfig, error) {
	cfg := DefaultHostConfig()

	var raw hostFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return HostConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	setString(meta, "name", raw.Name, &cfg.Name)
	setString(meta, "addr", raw.Addr, &cfg.Addr)
	setString(meta, "ws_path", raw.WSPath, &cfg.WSPath)
	setString(meta, "namespace", raw.NameSpace, &cfg.NameSpace)
	setString(meta, "transport", strings.ToLower(raw.Transport), &cfg.Transport)
	setString(meta, "redis_url", raw.RedisURL, &cfg.RedisURL)
	setString(meta, "redis_prefix", raw.RedisPrefix, &cfg.RedisPrefix)
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeList(raw.CorsOrigins)
	}
	if meta.IsDefined("call_timeout") {
		d, err := parseDuration("call_timeout", raw.CallTimeout)
		if err != nil {
			return HostConfig{}, err
		}
		cfg.CallTimeout = d
	}

	if err := ValidateHostConfig(cfg); err != nil {
		return HostConfig{}, err
	}
	return cfg, nil
}

// LoadFrameConfig overlays the keys present in path onto DefaultFrameConfig.
func LoadFrameConfig(path string) (FrameConfig, error) {
	cfg := DefaultFrameConfig()

	var raw frameFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return FrameConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	setString(meta, "name", raw.Name, &cfg.Name)
	setString(meta, "host_url", raw.HostURL, &cfg.HostURL)
	setString(meta, "origin", raw.Origin, &cfg.Origin)
	setString(meta, "namespace", raw.NameSpace, &cfg.NameSpace)
	setString(meta, "transport", strings.ToLower(raw.Transport), &cfg.Transport)
	setString(meta, "redis_url", raw.RedisURL, &cfg.RedisURL)
	setString(meta, "redis_prefix", raw.RedisPrefix, &cfg.RedisPrefix)
	if meta.IsDefined("max_connect_attempts") {
		cfg.Dial.MaxAttempts = raw.MaxConnectAttempts
	}
	if meta.IsDefined("backoff_initial") {
		d, err := parseDuration("backoff_initial", raw.BackoffInitial)
		if err != nil {
			return FrameConfig{}, err
		}
		cfg.Dial.Backoff.InitialDelay = d
	}
	if meta.IsDefined("backoff_max") {
		d, err := parseDuration("backoff_max", raw.BackoffMax)
		if err != nil {
			return FrameConfig{}, err
		}
		cfg.Dial.Backoff.MaxDelay = d
	}
	if meta.IsDefined("backoff_multiplier") {
		cfg.Dial.Backoff.Multiplier = raw.BackoffMultiplier
	}
	if meta.IsDefined("backoff_jitter") {
		cfg.Dial.Backoff.Jitter = raw.BackoffJitter
	}
	cfg.Dial.URL = cfg.HostURL
	cfg.Dial.Origin = cfg.Origin

	if err := ValidateFrameConfig(cfg); err != nil {
		return FrameConfig{}, err
	}
	return cfg, nil
}

func ValidateHostConfig(cfg HostConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("host config missing name")
	}
	if strings.TrimSpace(cfg.NameSpace) == "" {
		return fmt.Errorf("host config missing namespace")
	}
	if cfg.CallTimeout < 0 {
		return fmt.Errorf("host config call_timeout must not be negative")
	}
	switch cfg.Transport {
	case TransportWebSocket:
		if strings.TrimSpace(cfg.Addr) == "" {
			return fmt.Errorf("host config missing addr")
		}
		if !strings.HasPrefix(cfg.WSPath, "/") {
			return fmt.Errorf("host config ws_path must start with /: %q", cfg.WSPath)
		}
	case TransportRedis:
		if strings.TrimSpace(cfg.RedisURL) == "" {
			return ErrRedisURLRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTransport, cfg.Transport)
	}
	return nil
}

func ValidateFrameConfig(cfg FrameConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("frame config missing name")
	}
	if strings.TrimSpace(cfg.NameSpace) == "" {
		return fmt.Errorf("frame config missing namespace")
	}
	switch cfg.Transport {
	case TransportWebSocket:
		url := strings.TrimSpace(cfg.HostURL)
		if !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
			return fmt.Errorf("frame config host_url must be ws:// or wss://: %q", cfg.HostURL)
		}
	case TransportRedis:
		if strings.TrimSpace(cfg.RedisURL) == "" {
			return ErrRedisURLRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTransport, cfg.Transport)
	}
	if cfg.Dial.MaxAttempts < 0 {
		return fmt.Errorf("frame config max_connect_attempts must not be negative")
	}
	return nil
}

func setString(meta toml.MetaData, key, value string, dst *string) {
	if !meta.IsDefined(key) {
		return
	}
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
