package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/framelink/internal/testutil/testlog"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadHostConfigDefaultsAndOverrides(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, `
name = "portal"
cors_origins = [" http://a.example ", "", "http://b.example"]
call_timeout = "1500ms"
`)
	cfg, err := LoadHostConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Name != "portal" {
		t.Fatalf("unexpected name: %q", cfg.Name)
	}
	if cfg.Addr != ":9400" || cfg.WSPath != "/ws" || cfg.NameSpace != "contentscripts" {
		t.Fatalf("defaults not kept: %+v", cfg)
	}
	if cfg.CallTimeout != 1500*time.Millisecond {
		t.Fatalf("unexpected call timeout: %v", cfg.CallTimeout)
	}
	if strings.Join(cfg.CorsOrigins, ",") != "http://a.example,http://b.example" {
		t.Fatalf("unexpected origins: %+v", cfg.CorsOrigins)
	}
	if cfg.Transport != TransportWebSocket {
		t.Fatalf("unexpected transport: %q", cfg.Transport)
	}
}

func TestLoadHostConfigErrors(t *testing.T) {
	testlog.Start(t)
	if _, err := LoadHostConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected missing file error")
	}
	if _, err := LoadHostConfig(writeFile(t, `call_timeout = "soon"`)); err == nil {
		t.Fatalf("expected duration parse error")
	}
	if _, err := LoadHostConfig(writeFile(t, `transport = "carrier-pigeon"`)); !errors.Is(err, ErrUnknownTransport) {
		t.Fatalf("expected ErrUnknownTransport, got %v", err)
	}
	if _, err := LoadHostConfig(writeFile(t, `transport = "redis"`)); !errors.Is(err, ErrRedisURLRequired) {
		t.Fatalf("expected ErrRedisURLRequired, got %v", err)
	}
	if _, err := LoadHostConfig(writeFile(t, `ws_path = "ws"`)); err == nil {
		t.Fatalf("expected ws_path validation error")
	}
}

func TestLoadFrameConfig(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, `
name = "reader"
host_url = "wss://portal.example/frame/ws"
origin = "https://portal.example"
max_connect_attempts = 3
backoff_initial = "10ms"
backoff_max = "1s"
backoff_multiplier = 1.5
backoff_jitter = false
`)
	cfg, err := LoadFrameConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Name != "reader" || cfg.NameSpace != "contentscripts" {
		t.Fatalf("unexpected identity: %+v", cfg)
	}
	if cfg.Dial.URL != "wss://portal.example/frame/ws" || cfg.Dial.Origin != "https://portal.example" {
		t.Fatalf("dial target not wired: %+v", cfg.Dial)
	}
	if cfg.Dial.MaxAttempts != 3 {
		t.Fatalf("unexpected attempts: %d", cfg.Dial.MaxAttempts)
	}
	b := cfg.Dial.Backoff
	if b.InitialDelay != 10*time.Millisecond || b.MaxDelay != time.Second || b.Multiplier != 1.5 || b.Jitter {
		t.Fatalf("unexpected backoff: %+v", b)
	}
}

func TestLoadFrameConfigRejectsHTTPURL(t *testing.T) {
	testlog.Start(t)
	if _, err := LoadFrameConfig(writeFile(t, `host_url = "http://portal.example/ws"`)); err == nil {
		t.Fatalf("expected host_url validation error")
	}
	if _, err := LoadFrameConfig(writeFile(t, `max_connect_attempts = -1`)); err == nil {
		t.Fatalf("expected attempts validation error")
	}
}

func TestTemplatesLoad(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	hostPath := filepath.Join(dir, "host.toml")
	framePath := filepath.Join(dir, "frame.toml")
	if err := WriteTemplate(hostPath, "host", false); err != nil {
		t.Fatalf("write host template: %v", err)
	}
	if err := WriteTemplate(framePath, "frame", false); err != nil {
		t.Fatalf("write frame template: %v", err)
	}
	if err := WriteTemplate(hostPath, "host", false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	if _, err := Template("seed"); err == nil {
		t.Fatalf("expected unknown kind error")
	}

	host, err := LoadHostConfig(hostPath)
	if err != nil {
		t.Fatalf("load host template: %v", err)
	}
	if host.CallTimeout != 30*time.Second {
		t.Fatalf("unexpected template call timeout: %v", host.CallTimeout)
	}
	frame, err := LoadFrameConfig(framePath)
	if err != nil {
		t.Fatalf("load frame template: %v", err)
	}
	if frame.Dial.MaxAttempts != 0 || !frame.Dial.Backoff.Jitter {
		t.Fatalf("unexpected frame template dial: %+v", frame.Dial)
	}
}
