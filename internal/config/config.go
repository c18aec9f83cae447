package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration.
type Config struct {
	Environment      string
	LogLevel         slog.Level
	SnapshotSQLite   string
	SnapshotPostgres string
	AuditEnabled     bool
	AuditFile        string
	VerifyInvariants bool
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	var problems []string

	cfg := &Config{
		Environment:      getenv("APP_ENV"),
		SnapshotSQLite:   getenv("PAYMENTS_SNAPSHOT_SQLITE"),
		SnapshotPostgres: getenv("PAYMENTS_SNAPSHOT_POSTGRES_URL"),
		AuditFile:        getenv("PAYMENTS_AUDIT_FILE"),
		AuditEnabled:     true,
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(orDefault(getenv("PAYMENTS_LOG_LEVEL"), "info"))); err != nil {
		problems = append(problems, "PAYMENTS_LOG_LEVEL must be one of debug, info, warn, error")
	}

	if v := getenv("PAYMENTS_AUDIT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			problems = append(problems, "PAYMENTS_AUDIT must be a boolean")
		}
		cfg.AuditEnabled = b
	}

	if v := getenv("PAYMENTS_VERIFY_INVARIANTS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			problems = append(problems, "PAYMENTS_VERIFY_INVARIANTS must be a boolean")
		}
		cfg.VerifyInvariants = b
	}

	if len(problems) > 0 {
		return nil, errors.New("invalid environment: " + strings.Join(problems, "; "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.AuditFile != "" && !c.AuditEnabled {
		return errors.New("PAYMENTS_AUDIT_FILE is set but PAYMENTS_AUDIT is disabled")
	}

	if c.SnapshotPostgres != "" && !isPostgresURL(c.SnapshotPostgres) {
		return errors.New("PAYMENTS_SNAPSHOT_POSTGRES_URL must start with postgres:// or postgresql://")
	}

	// production runs always check the final snapshot
	if c.Environment == "production" && !c.VerifyInvariants {
		c.VerifyInvariants = true
	}

	return nil
}

func isPostgresURL(val string) bool {
	prefixes := []string{"postgres://", "postgresql://"}
	for _, p := range prefixes {
		if strings.HasPrefix(val, p) {
			return true
		}
	}
	return false
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
