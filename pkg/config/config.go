// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all service configuration.
type Config struct {
	// HTTP
	ListenAddr      string        `env:"LISTEN_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Database
	DatabaseURL     string        `env:"DATABASE_URL,required"`
	DBMaxConns      int32         `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns      int32         `env:"DB_MIN_CONNS" envDefault:"5"`
	DBConnLifetime  time.Duration `env:"DB_CONN_LIFETIME" envDefault:"1h"`
	DBConnIdleTime  time.Duration `env:"DB_CONN_IDLE_TIME" envDefault:"30m"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
}

// Load parses configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Development reports whether the service runs in development mode.
func (c Config) Development() bool {
	return c.AppEnv == "development"
}
