package downloads

import (
	"context"
	"fmt"
)

// Backend names accepted by Open
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config selects and configures a store backend
type Config struct {
	Backend string
	Path    string

	RedisAddress  string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	Postgres PostgresConfig
}

// Open creates the store named by cfg.Backend
func Open(ctx context.Context, cfg Config, opts ...Option) (Store, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryStore(opts...), nil
	case BackendFile, "":
		return NewFileStore(cfg.Path, opts...)
	case BackendSQLite:
		return NewSQLiteStore(cfg.Path, opts...)
	case BackendRedis:
		return NewRedisStore(ctx, cfg.RedisAddress, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix, opts...)
	case BackendPostgres:
		return NewPostgresStore(ctx, cfg.Postgres, opts...)
	default:
		return nil, fmt.Errorf("unknown counter backend %q", cfg.Backend)
	}
}
