package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/okr")
	t.Setenv("GAME_SERVICE_TOKEN", "gw-token")
	t.Setenv("TEAM_TOKEN_SECRET", "secret")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != "5200" {
		t.Errorf("Port = %q, want %q", cfg.Port, "5200")
	}
	if cfg.QueryTimeout != 5*time.Second {
		t.Errorf("QueryTimeout = %v, want 5s", cfg.QueryTimeout)
	}
	if cfg.LeaderboardCacheTTL != 15*time.Second {
		t.Errorf("LeaderboardCacheTTL = %v, want 15s", cfg.LeaderboardCacheTTL)
	}
	if cfg.ObjectiveFetchLimit != 3 {
		t.Errorf("ObjectiveFetchLimit = %d, want 3", cfg.ObjectiveFetchLimit)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("AllowedOrigins = %v, want trimmed pair", cfg.AllowedOrigins)
	}
	if cfg.R2.Enabled() {
		t.Errorf("R2.Enabled() = true without bucket")
	}
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GAME_SERVICE_TOKEN", "gw-token")
	t.Setenv("TEAM_TOKEN_SECRET", "secret")

	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil, want missing DATABASE_URL error")
	}
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := (Config{LogLevel: in}).SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
