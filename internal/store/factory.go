package store

import (
	"fmt"

	"github.com/dummy-library/inventory-core/internal/config"
)

// New constructs a Store from configuration, dispatching on Backend exactly
// like the teacher repo's NewStore/NewStoreWithDB pair.
func New(cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Backend {
	case "memory", "":
		return NewMemoryStore(), nil
	case "postgres":
		if cfg.URL == "" {
			return nil, fmt.Errorf("store: postgres backend requires database.url")
		}
		return NewPostgresStore(cfg.URL, cfg.Pool, cfg.MongoURL, cfg.MongoDBName)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.Backend)
	}
}
