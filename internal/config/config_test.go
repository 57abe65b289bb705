package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CREWPLANE_PG_DSN", "")
	t.Setenv("CREWPLANE_TOKEN_TTL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.TokenIssuer != "crewplane" {
		t.Fatalf("unexpected issuer: %q", cfg.TokenIssuer)
	}
	if cfg.TokenTTL != 15*time.Minute {
		t.Fatalf("unexpected ttl: %v", cfg.TokenTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CREWPLANE_PG_DSN", "postgres://localhost/crewplane")
	t.Setenv("CREWPLANE_TOKEN_TTL", "1h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.PostgresDSN != "postgres://localhost/crewplane" {
		t.Fatalf("unexpected dsn: %q", cfg.PostgresDSN)
	}
	if cfg.TokenTTL != time.Hour {
		t.Fatalf("unexpected ttl: %v", cfg.TokenTTL)
	}
}
