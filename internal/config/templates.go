package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "host":
		return hostTemplate, nil
	case "frame":
		return frameTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const hostTemplate = `name = "host"
addr = ":9400"
ws_path = "/ws"
cors_origins = ["http://localhost:3000"]
namespace = "contentscripts"
# 0s waits for replies indefinitely
call_timeout = "30s"
transport = "websocket"
# redis_url = "redis://127.0.0.1:6379/0"
# redis_prefix = "framelink"
`

const frameTemplate = `name = "frame"
host_url = "ws://127.0.0.1:9400/ws"
# origin = "http://localhost:3000"
namespace = "contentscripts"
transport = "websocket"
max_connect_attempts = 0
backoff_initial = "250ms"
backoff_max = "5s"
backoff_multiplier = 2.0
backoff_jitter = true
# redis_url = "redis://127.0.0.1:6379/0"
# redis_prefix = "framelink"
`
