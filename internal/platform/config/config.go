// Copyright (c) 2026 Redisboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Redisboard API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Store (Redis) — audit stream and readiness checks
	RedisURL string `env:"REDIS_URL,required"`

	// SessionSecret is the server-held HMAC secret signing access tokens.
	SessionSecret string `env:"SESSION_SECRET,required"`

	// Token & session lifetimes
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_TTL"     envDefault:"15m"`
	SessionTTL         time.Duration `env:"SESSION_TTL"          envDefault:"24h"`
	RememberSessionTTL time.Duration `env:"REMEMBER_SESSION_TTL" envDefault:"720h"`

	// Brute-force lockout policy
	LoginMaxAttempts     int           `env:"LOGIN_MAX_ATTEMPTS"     envDefault:"5"`
	LoginAttemptWindow   time.Duration `env:"LOGIN_ATTEMPT_WINDOW"   envDefault:"15m"`
	LoginLockoutDuration time.Duration `env:"LOGIN_LOCKOUT_DURATION" envDefault:"15m"`

	// First-run bootstrap admin. The password, when unset, is generated
	// randomly and printed to the startup log exactly once.
	BootstrapAdminUsername string `env:"BOOTSTRAP_ADMIN_USERNAME" envDefault:"admin"`
	BootstrapAdminPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if cfg.LoginMaxAttempts < 1 {
		return nil, fmt.Errorf("config: LOGIN_MAX_ATTEMPTS must be at least 1")
	}

	return cfg, nil
}

// ExtraAllowedOrigins parses EXTRA_ORIGINS into a list of exact origins
// allowed by CORS in production, alongside the default app domain.
func (c *Config) ExtraAllowedOrigins() []string {
	if c.ExtraOrigins == "" {
		return nil
	}

	parts := strings.Split(c.ExtraOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
