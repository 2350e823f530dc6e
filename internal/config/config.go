// Package config loads engine configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every runtime knob. All capacity-policy values that the
// business rules leave open (hold duration, extension bounds, party-size and
// note caps) live here rather than in code.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	// Store selection: "postgres" or "memory". The memory driver exists for
	// tests and dependency-free local runs.
	Driver string `env:"DB_DRIVER" envDefault:"postgres"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName     string `env:"DB_NAME" envDefault:"admission"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`

	HoldDuration        time.Duration `env:"HOLD_DURATION" envDefault:"30m"`
	MinExtensionMinutes int           `env:"MIN_EXTENSION_MINUTES" envDefault:"1"`
	MaxExtensionMinutes int           `env:"MAX_EXTENSION_MINUTES" envDefault:"120"`
	DefaultMaxPartySize int           `env:"DEFAULT_MAX_PARTY_SIZE" envDefault:"10"`
	MaxNoteLength       int           `env:"MAX_NOTE_LENGTH" envDefault:"500"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`
}

// Load reads a .env file if present, then parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HoldDuration <= 0 {
		return fmt.Errorf("HOLD_DURATION must be positive, got %s", c.HoldDuration)
	}
	if c.MinExtensionMinutes < 1 || c.MaxExtensionMinutes < c.MinExtensionMinutes {
		return fmt.Errorf("extension bounds invalid: min=%d max=%d",
			c.MinExtensionMinutes, c.MaxExtensionMinutes)
	}
	if c.DefaultMaxPartySize < 1 {
		return fmt.Errorf("DEFAULT_MAX_PARTY_SIZE must be at least 1, got %d", c.DefaultMaxPartySize)
	}
	if c.MaxNoteLength < 0 {
		return fmt.Errorf("MAX_NOTE_LENGTH must not be negative, got %d", c.MaxNoteLength)
	}
	return nil
}

// DSN builds a libpq-compatible connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}
