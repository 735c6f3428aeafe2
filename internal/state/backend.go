// internal/state/backend.go
package state

import (
	"context"
	"fmt"
)

// Kind enumerates the supported marker backends.
type Kind string

const (
	KindFile     Kind = "file"
	KindSQLite   Kind = "sqlite"
	KindPostgres Kind = "postgres"
	KindRedis    Kind = "redis"
)

// BackendConfig selects and configures a backend.
type BackendConfig struct {
	Kind  Kind
	Path  string // file and sqlite
	DBURL string // postgres
	Redis RedisConfig
}

// OpenBackend builds the backend named by cfg.Kind.
func OpenBackend(ctx context.Context, cfg BackendConfig) (Backend, error) {
	switch cfg.Kind {
	case KindFile, "":
		return NewFileBackend(cfg.Path), nil
	case KindSQLite:
		return OpenSQLiteBackend(cfg.Path)
	case KindPostgres:
		return NewPostgresBackend(ctx, cfg.DBURL)
	case KindRedis:
		return NewRedisBackend(cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported state backend: %q", cfg.Kind)
	}
}
