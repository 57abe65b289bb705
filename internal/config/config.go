// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries everything the binaries need at startup.
type Config struct {
	// PostgresDSN is empty when running against the in-memory store.
	PostgresDSN string `env:"CREWPLANE_PG_DSN"`

	// AuthSecret signs bearer tokens handed to the session layer.
	AuthSecret string `env:"CREWPLANE_AUTH_SECRET"`

	TokenIssuer string        `env:"CREWPLANE_TOKEN_ISSUER" envDefault:"crewplane"`
	TokenTTL    time.Duration `env:"CREWPLANE_TOKEN_TTL" envDefault:"15m"`

	MigrationsDir string `env:"CREWPLANE_MIGRATIONS_DIR" envDefault:"migrations"`
	SeedsDir      string `env:"CREWPLANE_SEEDS_DIR" envDefault:"seeds"`
}

// Load parses configuration from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	return cfg, nil
}
