package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/progscout/progscout/internal/config"
)

// DefaultKey names the slot all backends persist the aggregate under.
const DefaultKey = "progscout_state"

// Open builds the backend named by the storage configuration and wraps
// it in a Store.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*Store, error) {
	backend, err := openBackend(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = cfg.Storage.Timeout
	}
	return NewStore(backend, opts), nil
}

func openBackend(ctx context.Context, cfg config.StorageConfig) (Backend, error) {
	switch strings.ToLower(cfg.Driver) {
	case "memory":
		return NewMemoryBackend(), nil
	case "file":
		return NewFileBackend(cfg.Path)
	case "sqlite":
		return NewSQLiteBackend(cfg.Path, DefaultKey)
	case "postgres":
		return NewPostgresBackend(cfg.DSN, DefaultKey)
	case "mysql":
		return NewMySQLBackend(cfg.DSN, DefaultKey)
	case "mongodb":
		return NewMongoBackend(ctx, cfg.DSN, cfg.Database, cfg.Collection, DefaultKey)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}
