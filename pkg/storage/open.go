package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
)

// Backend names accepted by Open
const (
	BackendFilesystem = "filesystem"
	BackendSQLite     = "sqlite"
	BackendMemory     = "memory"
	BackendRedis      = "redis"
	BackendPostgres   = "postgres"
)

// Options selects and configures a repository
type Options struct {
	Backend string
	// Path is the flows directory root (filesystem) or database file (sqlite)
	Path     string
	Addr     string
	DB       int
	DSN      string
	Password string
	Logger   *slog.Logger
}

// Open creates the repository named by opts.Backend
func Open(ctx context.Context, opts Options) (FlowRepository, error) {
	switch opts.Backend {
	case BackendFilesystem, "":
		return NewFilesystemRepository(opts.Path, opts.Logger)
	case BackendSQLite:
		path := opts.Path
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, "flowedit.db")
		}
		return NewSQLiteRepository(ctx, path)
	case BackendMemory:
		return NewMemoryRepository(), nil
	case BackendRedis:
		return NewRedisRepository(ctx, RedisOptions{Addr: opts.Addr, Password: opts.Password, DB: opts.DB})
	case BackendPostgres:
		return NewPostgresRepository(ctx, opts.DSN, opts.Password)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
