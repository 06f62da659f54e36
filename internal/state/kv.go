// Package state mirrors the roll and the operator settings into a durable
// key-value backend so a restarted server picks up where it left off.
package state

import (
	"context"
	"fmt"
	"strings"
)

// KV is the minimal storage contract every backend satisfies. Values are
// opaque strings; the last write to a key wins.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Ping(ctx context.Context) error
	Close() error
}

const (
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Backend       string
	SQLitePath    string
	RedisURL      string
	DatabaseURL   string
	MigrationsDir string
}

// Open connects the configured backend.
func Open(ctx context.Context, cfg Config) (KV, error) {
	var (
		kv  KV
		err error
	)
	switch backend := strings.ToLower(strings.TrimSpace(cfg.Backend)); backend {
	case "", BackendSQLite:
		kv, err = OpenSQLite(ctx, cfg.SQLitePath)
	case BackendRedis:
		kv, err = NewRedisStore(ctx, cfg.RedisURL)
	case BackendPostgres:
		kv, err = OpenPostgres(ctx, cfg.DatabaseURL, cfg.MigrationsDir)
	case BackendMemory:
		kv = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return kv, nil
}
