package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/amp-labs/liminal/redisstate"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment after an
// optional .env file has been loaded.
type Config struct {
	LogJSON   bool       `env:"LOG_JSON"          envDefault:"false"`
	LogLevel  slog.Level `env:"LOG_LEVEL"         envDefault:"info"`
	LogOutput string     `env:"LOG_OUTPUT"        envDefault:"stderr"`
	MaxDepth  int        `env:"LIMINAL_MAX_DEPTH" envDefault:"64"`
	Workers   int        `env:"LIMINAL_WORKERS"   envDefault:"32"`

	Redis redisstate.Config
}

// loadConfig loads envFile (or ./.env when envFile is empty and the file
// exists) and parses the environment. Variables already set win over the
// file.
func loadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %q: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return &cfg, nil
}
