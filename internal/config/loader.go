package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the intake
// tracker service.
type Config struct {
	HTTPPort          int
	SQLiteDSN         string
	IndicatorCacheTTL time.Duration
	// RecordStoreURL, when set, routes intake submissions to an external
	// record store instead of the embedded repository.
	RecordStoreURL string
	SearchLimit    int
}

// Load parses configuration values from the current process environment.
//
// The loader applies sensible defaults for optional fields while reporting
// every invalid value in one pass.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:          8080,
		SQLiteDSN:         "file:intake.db?_foreign_keys=on",
		IndicatorCacheTTL: 30 * time.Second,
		SearchLimit:       20,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("INTAKE_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "INTAKE_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("INTAKE_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if ttlValue := strings.TrimSpace(os.Getenv("INTAKE_INDICATOR_CACHE_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "INTAKE_INDICATOR_CACHE_TTL")
		} else {
			cfg.IndicatorCacheTTL = ttl
		}
	}

	if storeURL := strings.TrimSpace(os.Getenv("INTAKE_RECORD_STORE_URL")); storeURL != "" {
		if !strings.HasPrefix(storeURL, "http://") && !strings.HasPrefix(storeURL, "https://") {
			invalid = append(invalid, "INTAKE_RECORD_STORE_URL")
		} else {
			cfg.RecordStoreURL = storeURL
		}
	}

	if limitValue := strings.TrimSpace(os.Getenv("INTAKE_SEARCH_LIMIT")); limitValue != "" {
		limit, err := strconv.Atoi(limitValue)
		if err != nil || limit <= 0 {
			invalid = append(invalid, "INTAKE_SEARCH_LIMIT")
		} else {
			cfg.SearchLimit = limit
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
