package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("POSTGRES_DSN", "postgres://localhost/authgate")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.StoreDriver != DriverPostgres {
		t.Fatalf("StoreDriver = %q, want %q", cfg.StoreDriver, DriverPostgres)
	}
	if cfg.VerificationTTL != 15*time.Minute {
		t.Fatalf("VerificationTTL = %v, want %v", cfg.VerificationTTL, 15*time.Minute)
	}
	if cfg.SendCooldown != time.Minute {
		t.Fatalf("SendCooldown = %v, want %v", cfg.SendCooldown, time.Minute)
	}
	if !cfg.RequireVerification {
		t.Fatal("RequireVerification = false, want true")
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("AllowedOrigins = %v, want [http://localhost:3000]", cfg.AllowedOrigins)
	}
}

func TestLoadCustomValues(t *testing.T) {
	setRequired(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("REQUIRE_EMAIL_VERIFICATION", "false")
	t.Setenv("JWT_TTL", "30m")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("AllowedOrigins = %v, want 2 entries", cfg.AllowedOrigins)
	}
	if cfg.RequireVerification {
		t.Fatal("RequireVerification = true, want false")
	}
	if cfg.JWTTTL != 30*time.Minute {
		t.Fatalf("JWTTTL = %v, want %v", cfg.JWTTTL, 30*time.Minute)
	}
}

func TestLoadSQLiteNeedsNoDSN(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/authgate.db")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SQLitePath != "/tmp/authgate.db" {
		t.Fatalf("SQLitePath = %q, want %q", cfg.SQLitePath, "/tmp/authgate.db")
	}
}

func TestLoadRejectsMissingValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing dsn", map[string]string{"JWT_SECRET": "x"}},
		{"missing secret", map[string]string{"POSTGRES_DSN": "postgres://x"}},
		{"unknown driver", map[string]string{"JWT_SECRET": "x", "STORE_DRIVER": "mysql"}},
		{"bad duration", map[string]string{"JWT_SECRET": "x", "POSTGRES_DSN": "postgres://x", "JWT_TTL": "soon"}},
		{"zero attempts", map[string]string{"JWT_SECRET": "x", "POSTGRES_DSN": "postgres://x", "VERIFICATION_MAX_ATTEMPTS": "0"}},
		{"negative attempts", map[string]string{"JWT_SECRET": "x", "POSTGRES_DSN": "postgres://x", "VERIFICATION_MAX_ATTEMPTS": "-2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("POSTGRES_DSN", "")
			t.Setenv("JWT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("Load: expected error")
			}
		})
	}
}
