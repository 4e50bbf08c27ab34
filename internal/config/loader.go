package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the MediLink
// backend service.
type Config struct {
	HTTPPort    int
	SQLiteDSN   string
	TokenSecret string
	TokenTTL    time.Duration
	MFAIssuer   string
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to defaults; required values are validated and
// every missing or malformed entry is reported in a single error.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:  4000,
		SQLiteDSN: "file:medilink.db?_foreign_keys=on",
		TokenTTL:  time.Hour,
		MFAIssuer: "MediLink",
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("MEDILINK_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "MEDILINK_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("MEDILINK_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if secret := strings.TrimSpace(os.Getenv("MEDILINK_TOKEN_SECRET")); secret == "" {
		missing = append(missing, "MEDILINK_TOKEN_SECRET")
	} else {
		cfg.TokenSecret = secret
	}

	if ttlValue := strings.TrimSpace(os.Getenv("MEDILINK_TOKEN_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "MEDILINK_TOKEN_TTL")
		} else {
			cfg.TokenTTL = ttl
		}
	}

	if issuer := strings.TrimSpace(os.Getenv("MEDILINK_MFA_ISSUER")); issuer != "" {
		cfg.MFAIssuer = issuer
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
