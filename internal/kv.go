package internal

import (
	"context"
	"fmt"
)

// KVStore is the durable key-value space shared by the session store and the
// chat threads. Apply is the only mutation primitive and is all-or-nothing.
type KVStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Apply(ctx context.Context, ops ...KVOp) error
	Close() error
}

// KeyLister is implemented by stores that can enumerate their keys
type KeyLister interface {
	Keys(ctx context.Context) ([]string, error)
}

// KVOp is a single Set or Delete inside an Apply batch
type KVOp struct {
	Key    string
	Value  string
	Delete bool
}

// SetOp writes value under key
func SetOp(key, value string) KVOp {
	return KVOp{Key: key, Value: value}
}

// DeleteOp removes key
func DeleteOp(key string) KVOp {
	return KVOp{Key: key, Delete: true}
}

// OpenKVStore opens the backend named by cfg.Driver.
func OpenKVStore(ctx context.Context, cfg StorageConfig) (KVStore, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return OpenSQLiteKV(cfg.Path)
	case "redis":
		return OpenRedisKV(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s (supported: sqlite, redis)", cfg.Driver)
	}
}
