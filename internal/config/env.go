package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnvOverrides applies LIBRARY_* environment variables on top of
// whatever was loaded from YAML, mirroring the teacher's CEDROS_ prefix
// convention.
func (c *Config) applyEnvOverrides() {
	setIfEnv(&c.Server.Address, "LIBRARY_SERVER_ADDRESS")
	setDurationIfEnv(&c.Server.ReadTimeout, "LIBRARY_SERVER_READ_TIMEOUT")
	setDurationIfEnv(&c.Server.WriteTimeout, "LIBRARY_SERVER_WRITE_TIMEOUT")

	setIfEnv(&c.Database.URL, "LIBRARY_DATABASE_URL")
	if c.Database.URL != "" && c.Database.Backend == "memory" {
		c.Database.Backend = "postgres"
	}
	setIfEnv(&c.Database.Backend, "LIBRARY_DATABASE_BACKEND")
	setIfEnv(&c.Database.MongoURL, "LIBRARY_MONGO_URL")
	setIfEnv(&c.Database.MongoDBName, "LIBRARY_MONGO_DATABASE")
	setIntIfEnv(&c.Database.Pool.MaxOpenConns, "LIBRARY_DB_MAX_OPEN_CONNS")
	setIntIfEnv(&c.Database.Pool.MaxIdleConns, "LIBRARY_DB_MAX_IDLE_CONNS")

	setDurationIfEnv(&c.Jobs.PollInterval, "LIBRARY_JOBS_POLL_INTERVAL")
	setDurationIfEnv(&c.Jobs.Lease, "LIBRARY_JOBS_LEASE")
	setDurationIfEnv(&c.Jobs.BackoffBase, "LIBRARY_JOBS_BACKOFF_BASE")
	setDurationIfEnv(&c.Jobs.BackoffCap, "LIBRARY_JOBS_BACKOFF_CAP")
	setIntIfEnv(&c.Jobs.MaxAttempts, "LIBRARY_JOBS_MAX_ATTEMPTS")

	setIfEnv(&c.Logging.Level, "LIBRARY_LOG_LEVEL")
	setIfEnv(&c.Logging.Format, "LIBRARY_LOG_FORMAT")
	setIfEnv(&c.Logging.Environment, "LIBRARY_ENVIRONMENT")

	setIfEnv(&c.Catalog.SeedPath, "LIBRARY_CATALOG_SEED_PATH")

	setIfEnv(&c.Admin.Email, "LIBRARY_ADMIN_EMAIL")
	setBoolIfEnv(&c.RateLimit.Enabled, "LIBRARY_RATE_LIMIT_ENABLED")
	setIntIfEnv(&c.RateLimit.Limit, "LIBRARY_RATE_LIMIT")

	if v := os.Getenv("LIBRARY_SERVER_CORS_ORIGINS"); v != "" {
		c.Server.CORSAllowedOrigins = strings.Split(v, ",")
	}
}

func setIfEnv(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func setBoolIfEnv(target *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v == "1" || strings.EqualFold(v, "true")
	}
}

func setIntIfEnv(target *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

func setDurationIfEnv(target *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			*target = Duration{Duration: dur}
		}
	}
}
