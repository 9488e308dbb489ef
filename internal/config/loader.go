package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the service.
type Config struct {
	HTTPPort       int
	SQLiteDSN      string
	TokenSecret    string
	LearnerDomains []string
	MentorDomains  []string
	FlushInterval  time.Duration
	MeetingBaseURL string
	AllowedOrigins []string
}

// Load parses configuration values from the current process environment.
//
// The loader applies defaults for optional fields while validating required
// values, and reports every missing or invalid entry in one pass.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:       8080,
		SQLiteDSN:      "file:pineder.db?_foreign_keys=on",
		LearnerDomains: []string{"nest.edu.mn"},
		MentorDomains:  []string{"pineder.mn"},
		FlushInterval:  30 * time.Second,
		MeetingBaseURL: "https://meet.pineder.mn",
		AllowedOrigins: []string{"*"},
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("PINEDER_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "PINEDER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("PINEDER_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if secret := strings.TrimSpace(os.Getenv("PINEDER_TOKEN_SECRET")); secret == "" {
		missing = append(missing, "PINEDER_TOKEN_SECRET")
	} else {
		cfg.TokenSecret = secret
	}

	if domains := splitList(os.Getenv("PINEDER_LEARNER_DOMAINS")); domains != nil {
		cfg.LearnerDomains = domains
	}
	if domains := splitList(os.Getenv("PINEDER_MENTOR_DOMAINS")); domains != nil {
		cfg.MentorDomains = domains
	}

	if intervalValue := strings.TrimSpace(os.Getenv("PINEDER_FLUSH_INTERVAL")); intervalValue != "" {
		interval, err := time.ParseDuration(intervalValue)
		if err != nil || interval <= 0 {
			invalid = append(invalid, "PINEDER_FLUSH_INTERVAL")
		} else {
			cfg.FlushInterval = interval
		}
	}

	if baseURL := strings.TrimSpace(os.Getenv("PINEDER_MEETING_BASE_URL")); baseURL != "" {
		cfg.MeetingBaseURL = baseURL
	}

	if origins := splitList(os.Getenv("PINEDER_ALLOWED_ORIGINS")); origins != nil {
		cfg.AllowedOrigins = origins
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// splitList parses a comma separated value, returning nil when the variable
// is unset or holds no entries so callers can keep their defaults.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
