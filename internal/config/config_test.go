package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"API_ADDR", "CHECKMARK_DATA_DIR", "CHECKMARK_SESSION_TTL_SECONDS", "CHECKMARK_NOTE_HISTORY", "REDIS_URL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Addr != ":8787" || cfg.DataDir != "./data" || cfg.SessionCookie != "session" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.SessionTTL != 30*24*time.Hour {
		t.Fatalf("expected 30 day session ttl, got %s", cfg.SessionTTL)
	}
	if !cfg.NoteHistory || cfg.RedisURL != "" {
		t.Fatalf("unexpected optional settings %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CHECKMARK_DATA_DIR", "/srv/checkmark")
	t.Setenv("CHECKMARK_SESSION_TTL_SECONDS", "60")
	t.Setenv("CHECKMARK_COOKIE_SECURE", "true")
	t.Setenv("CHECKMARK_NOTE_HISTORY", "false")
	t.Setenv("S3_USE_SSL", "not-a-bool")

	cfg := Load()
	if cfg.DataDir != "/srv/checkmark" || cfg.SessionTTL != time.Minute || !cfg.CookieSecure {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.NoteHistory {
		t.Fatal("expected note history disabled")
	}
	if cfg.S3UseSSL {
		t.Fatal("invalid bool should fall back to false")
	}
}
