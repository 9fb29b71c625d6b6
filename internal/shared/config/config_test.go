package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.Env != "dev" {
		t.Errorf("Env = %q", cfg.Env)
	}
	if cfg.Store != "memory" {
		t.Errorf("Store = %q", cfg.Store)
	}
	if cfg.Engine != "reference" {
		t.Errorf("Engine = %q", cfg.Engine)
	}
	if cfg.InferLatency >= 0 {
		t.Errorf("InferLatency = %v, want negative sentinel", cfg.InferLatency)
	}
	if cfg.ObjectStoreType != "local" {
		t.Errorf("ObjectStoreType = %q", cfg.ObjectStoreType)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ENV", "production")
	t.Setenv("STORE", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/test.db")
	t.Setenv("ENGINE", "model")
	t.Setenv("INFER_LATENCY_MS", "250")
	t.Setenv("MODEL_MIN_BYTES", "1024")
	t.Setenv("CORS_ALLOW_ORIGINS", "http://a.test, http://b.test ,")

	cfg := Load()

	if cfg.Port != "9000" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Errorf("Env = %q", cfg.Env)
	}
	if cfg.Store != "sqlite" {
		t.Errorf("Store = %q", cfg.Store)
	}
	if cfg.SQLitePath != "/tmp/test.db" {
		t.Errorf("SQLitePath = %q", cfg.SQLitePath)
	}
	if cfg.Engine != "model" {
		t.Errorf("Engine = %q", cfg.Engine)
	}
	if cfg.InferLatency != 250*time.Millisecond {
		t.Errorf("InferLatency = %v", cfg.InferLatency)
	}
	if cfg.ModelMinBytes != 1024 {
		t.Errorf("ModelMinBytes = %d", cfg.ModelMinBytes)
	}
	if len(cfg.CORSAllowOrigin) != 2 || cfg.CORSAllowOrigin[1] != "http://b.test" {
		t.Errorf("CORSAllowOrigin = %v", cfg.CORSAllowOrigin)
	}
}

func TestDatabaseURLImpliesPostgres(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/foodassist")

	cfg := Load()
	if cfg.Store != "postgres" {
		t.Errorf("Store = %q, want postgres", cfg.Store)
	}
}

func TestNormalizeStore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw   string
		dbURL string
		want  string
	}{
		{raw: "pg", want: "postgres"},
		{raw: "SQLite", want: "sqlite"},
		{raw: "memory", want: "memory"},
		{raw: "", dbURL: "postgres://x", want: "postgres"},
		{raw: "", want: "memory"},
		{raw: "bogus", want: "memory"},
	}
	for _, tt := range tests {
		if got := normalizeStore(tt.raw, tt.dbURL); got != tt.want {
			t.Errorf("normalizeStore(%q, %q) = %q, want %q", tt.raw, tt.dbURL, got, tt.want)
		}
	}
}

func TestNormalizeEngine(t *testing.T) {
	t.Parallel()

	if got := normalizeEngine("real"); got != "model" {
		t.Errorf("normalizeEngine(real) = %q", got)
	}
	if got := normalizeEngine("anything"); got != "reference" {
		t.Errorf("normalizeEngine fallback = %q", got)
	}
}

func TestGetEnvMillis(t *testing.T) {
	t.Setenv("TEST_LATENCY_MS", "0")
	if got := getEnvMillis("TEST_LATENCY_MS", -1); got != 0 {
		t.Errorf("explicit zero = %v", got)
	}

	t.Setenv("TEST_LATENCY_MS", "-5")
	if got := getEnvMillis("TEST_LATENCY_MS", -1); got != -1 {
		t.Errorf("negative input should keep default, got %v", got)
	}

	t.Setenv("TEST_LATENCY_MS", "junk")
	if got := getEnvMillis("TEST_LATENCY_MS", -1); got != -1 {
		t.Errorf("junk input should keep default, got %v", got)
	}
}
