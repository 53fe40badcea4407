package main

import (
	"flag"
	"fmt"

	"github.com/danmuck/framelink/internal/config"
	"github.com/danmuck/framelink/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	kind := flag.String("kind", "host", "config kind: host|frame")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to per-kind cmd path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	logging.ConfigureRuntime()
	logging.Tag("configgen")

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath(*kind)
		}
		if err := validateConfig(*kind, path); err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("invalid config")
		}
		log.Info().Str("kind", *kind).Str("path", path).Msg("validated config")
		return
	}

	target := *output
	if target == "" {
		target = defaultPath(*kind)
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal().Err(err).Msg("write template")
	}
	log.Info().Str("kind", *kind).Str("path", target).Msg("wrote config template")
}

func validateConfig(kind, path string) error {
	var err error
	switch kind {
	case "host":
		_, err = config.LoadHostConfig(path)
	case "frame":
		_, err = config.LoadFrameConfig(path)
	default:
		err = fmt.Errorf("unknown config kind: %s", kind)
	}
	return err
}

func defaultPath(kind string) string {
	switch kind {
	case "host":
		return "cmd/hostctl/config.toml"
	case "frame":
		return "cmd/framectl/config.toml"
	default:
		log.Fatal().Str("kind", kind).Msg("unknown config kind")
		return ""
	}
}
