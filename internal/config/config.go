package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from an optional YAML file and applies
// environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		if err := cfg.parseFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:      ":8080",
			ReadTimeout:  Duration{Duration: 15 * time.Second},
			WriteTimeout: Duration{Duration: 15 * time.Second},
			IdleTimeout:  Duration{Duration: 60 * time.Second},
		},
		Database: DatabaseConfig{
			Backend: "memory",
			Pool: PostgresPoolConfig{
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: Duration{Duration: 5 * time.Minute},
			},
			MongoDBName: "library_archive",
		},
		Jobs: JobsConfig{
			PollInterval:   Duration{Duration: 5 * time.Second},
			Lease:          Duration{Duration: 60 * time.Second},
			BackoffBase:    Duration{Duration: 60 * time.Second},
			BackoffCap:     Duration{Duration: 3600 * time.Second},
			MaxAttempts:    10,
			HandlerTimeout: Duration{Duration: 30 * time.Second},
			ClaimBatchSize: 10,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			Environment: "development",
		},
		Catalog: CatalogConfig{
			SeedPath: "./data/books.yaml",
			CacheTTL: Duration{Duration: 30 * time.Second},
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Limit:   60,
			Window:  Duration{Duration: time.Minute},
		},
		Admin: AdminConfig{
			Email: "admin@dummy-library.com",
		},
	}
}

func (c *Config) parseFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Database.Backend != "memory" && c.Database.Backend != "postgres" {
		return fmt.Errorf("config: unknown database backend %q", c.Database.Backend)
	}
	if c.Database.Backend == "postgres" && c.Database.URL == "" {
		return fmt.Errorf("config: database.url required for postgres backend")
	}
	if c.Jobs.MaxAttempts <= 0 {
		return fmt.Errorf("config: jobs.max_attempts must be positive")
	}
	return nil
}
