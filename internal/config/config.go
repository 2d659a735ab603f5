// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"MESA_DB_PATH" envDefault:"./data/mesa.db"`
	DataDir       string `env:"MESA_DATA_DIR" envDefault:"./data"`
	SessionSecret string `env:"MESA_SESSION_SECRET,required"`
	ServerHost    string `env:"MESA_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"MESA_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"MESA_ENV" envDefault:"development"`
	LogLevel      string `env:"MESA_LOG_LEVEL" envDefault:"info"`

	// Notification stream tuning. The poll interval bounds delivery latency;
	// the keep-alive interval defeats idle-connection timeouts in proxies.
	StreamPollInterval      time.Duration `env:"MESA_STREAM_POLL_INTERVAL" envDefault:"1s"`
	StreamKeepAliveInterval time.Duration `env:"MESA_STREAM_KEEPALIVE_INTERVAL" envDefault:"15s"`

	// Seeding configuration
	DoSeed bool `env:"MESA_DO_SEED" envDefault:"false"` // Enable demo menu seeding
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("MESA_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	if cfg.StreamPollInterval <= 0 {
		return nil, fmt.Errorf("MESA_STREAM_POLL_INTERVAL must be positive, got %s", cfg.StreamPollInterval)
	}
	if cfg.StreamKeepAliveInterval < cfg.StreamPollInterval {
		return nil, fmt.Errorf("MESA_STREAM_KEEPALIVE_INTERVAL (%s) must not be shorter than the poll interval (%s)",
			cfg.StreamKeepAliveInterval, cfg.StreamPollInterval)
	}

	return cfg, nil
}
