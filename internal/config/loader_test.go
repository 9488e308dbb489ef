package config

import (
	"os"
	"testing"
	"time"
)

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		unset := []string{
			"PINEDER_HTTP_PORT",
			"PINEDER_SQLITE_DSN",
			"PINEDER_LEARNER_DOMAINS",
			"PINEDER_MENTOR_DOMAINS",
			"PINEDER_FLUSH_INTERVAL",
			"PINEDER_MEETING_BASE_URL",
			"PINEDER_ALLOWED_ORIGINS",
		}
		for _, key := range unset {
			if err := os.Unsetenv(key); err != nil {
				t.Fatalf("failed to unset %s: %v", key, err)
			}
		}

		const secret = "super-secret"
		t.Setenv("PINEDER_TOKEN_SECRET", secret)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file:pineder.db?_foreign_keys=on" {
			t.Fatalf("unexpected default DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.TokenSecret != secret {
			t.Fatalf("expected token secret to be %q, got %q", secret, cfg.TokenSecret)
		}
		if len(cfg.LearnerDomains) != 1 || cfg.LearnerDomains[0] != "nest.edu.mn" {
			t.Fatalf("unexpected default learner domains: %v", cfg.LearnerDomains)
		}
		if cfg.FlushInterval != 30*time.Second {
			t.Fatalf("expected default flush interval 30s, got %s", cfg.FlushInterval)
		}
	})

	t.Run("errors when required values are missing", func(t *testing.T) {
		for _, key := range []string{
			"PINEDER_TOKEN_SECRET",
			"PINEDER_HTTP_PORT",
			"PINEDER_SQLITE_DSN",
		} {
			if err := os.Unsetenv(key); err != nil {
				t.Fatalf("failed to unset %s: %v", key, err)
			}
		}

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error when required values are missing")
		}
		expected := "missing required environment variables: PINEDER_TOKEN_SECRET"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("parses overridden fields", func(t *testing.T) {
		t.Setenv("PINEDER_TOKEN_SECRET", "secret-value")
		t.Setenv("PINEDER_HTTP_PORT", "9090")
		t.Setenv("PINEDER_SQLITE_DSN", "file:/tmp/pineder.db")
		t.Setenv("PINEDER_LEARNER_DOMAINS", "nest.edu.mn, students.example.edu")
		t.Setenv("PINEDER_FLUSH_INTERVAL", "5s")
		t.Setenv("PINEDER_ALLOWED_ORIGINS", "https://app.pineder.mn")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 {
			t.Fatalf("expected HTTP port 9090, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file:/tmp/pineder.db" {
			t.Fatalf("unexpected DSN: %q", cfg.SQLiteDSN)
		}
		if len(cfg.LearnerDomains) != 2 || cfg.LearnerDomains[1] != "students.example.edu" {
			t.Fatalf("unexpected learner domains: %v", cfg.LearnerDomains)
		}
		if cfg.FlushInterval != 5*time.Second {
			t.Fatalf("expected flush interval 5s, got %s", cfg.FlushInterval)
		}
		if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "https://app.pineder.mn" {
			t.Fatalf("unexpected allowed origins: %v", cfg.AllowedOrigins)
		}
	})

	t.Run("reports invalid values", func(t *testing.T) {
		t.Setenv("PINEDER_TOKEN_SECRET", "secret-value")
		t.Setenv("PINEDER_HTTP_PORT", "not-a-port")
		t.Setenv("PINEDER_FLUSH_INTERVAL", "-3s")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error for invalid values")
		}
	})
}
