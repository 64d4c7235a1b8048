package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support string-based YAML decoding
// ("5m", "30s", bare seconds) instead of raw nanosecond integers.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration values expressed as Go-style strings or
// bare numbers interpreted as seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("unsupported duration node kind: %v", value.Kind)
	}
	raw := strings.TrimSpace(value.Value)
	if raw == "" {
		d.Duration = 0
		return nil
	}
	if parsed, err := time.ParseDuration(raw); err == nil {
		d.Duration = parsed
		return nil
	}
	if parsed, err := time.ParseDuration(raw + "s"); err == nil {
		d.Duration = parsed
		return nil
	}
	return fmt.Errorf("invalid duration value %q", raw)
}

// MarshalYAML renders the duration as a human-friendly string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config aggregates application configuration from file and environment.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Logging  LoggingConfig  `yaml:"logging"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Admin    AdminConfig    `yaml:"admin"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address            string   `yaml:"address"`
	ReadTimeout        Duration `yaml:"read_timeout"`
	WriteTimeout       Duration `yaml:"write_timeout"`
	IdleTimeout        Duration `yaml:"idle_timeout"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL          string             `yaml:"url"`
	Backend      string             `yaml:"backend"` // "memory" or "postgres"
	Pool         PostgresPoolConfig `yaml:"pool"`
	MongoURL     string             `yaml:"mongo_url"`      // optional secondary archive sink
	MongoDBName  string             `yaml:"mongo_database"` // default: "library_archive"
}

// PostgresPoolConfig holds connection pool tuning.
type PostgresPoolConfig struct {
	MaxOpenConns    int      `yaml:"max_open_conns"`
	MaxIdleConns    int      `yaml:"max_idle_conns"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
}

// JobsConfig holds Job Runner settings, matching spec §4.8 constants. The
// runner in internal/jobs does not read these values; it uses its own
// package constants.
type JobsConfig struct {
	PollInterval   Duration `yaml:"poll_interval"`   // default 5s
	Lease          Duration `yaml:"lease"`           // default 60s
	BackoffBase    Duration `yaml:"backoff_base"`    // default 60s
	BackoffCap     Duration `yaml:"backoff_cap"`     // default 3600s
	MaxAttempts    int      `yaml:"max_attempts"`    // default 10
	HandlerTimeout Duration `yaml:"handler_timeout"` // default 30s
	ClaimBatchSize int      `yaml:"claim_batch_size"` // default 10
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	Environment string `yaml:"environment"`
}

// CatalogConfig points at the book seed file.
type CatalogConfig struct {
	SeedPath string   `yaml:"seed_path"`
	CacheTTL Duration `yaml:"cache_ttl"`
}

// RateLimitConfig drives the /api rate limits: a global limit of Limit*10
// and a per-user limit of Limit (keyed by X-User-Email, else by IP).
type RateLimitConfig struct {
	Enabled bool     `yaml:"enabled"`
	Limit   int      `yaml:"limit"`
	Window  Duration `yaml:"window"`
}

// AdminConfig holds the admin identity literal.
type AdminConfig struct {
	Email string `yaml:"email"`
}
