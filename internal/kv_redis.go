package internal

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/go-redis/redis/v8"
)

// RedisKV stores keys in a Redis database under a common prefix
type RedisKV struct {
	cli    *redis.Client
	prefix string
	addr   string
}

var _ KVStore = (*RedisKV)(nil)

// OpenRedisKV connects to cfg.RedisAddr and pings it
func OpenRedisKV(ctx context.Context, cfg StorageConfig) (*RedisKV, error) {
	cli := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		_ = cli.Close()
		return nil, &StorageError{Path: cfg.RedisAddr, Op: "open", Err: err}
	}
	return &RedisKV{cli: cli, prefix: cfg.RedisPrefix, addr: cfg.RedisAddr}, nil
}

func (r *RedisKV) key(k string) string {
	return r.prefix + k
}

// Get returns the value stored under key
func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.cli.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &StorageError{Path: r.addr, Op: "get", Err: err}
	}
	return v, true, nil
}

// Apply queues the ops in a MULTI/EXEC block
func (r *RedisKV) Apply(ctx context.Context, ops ...KVOp) error {
	if len(ops) == 0 {
		return nil
	}
	_, err := r.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, op := range ops {
			if op.Delete {
				pipe.Del(ctx, r.key(op.Key))
			} else {
				pipe.Set(ctx, r.key(op.Key), op.Value, 0)
			}
		}
		return nil
	})
	if err != nil {
		return &StorageError{Path: r.addr, Op: "apply", Err: err}
	}
	return nil
}

// Keys lists stored keys without the prefix
func (r *RedisKV) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := r.cli.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), r.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, &StorageError{Path: r.addr, Op: "get", Err: err}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close closes the client
func (r *RedisKV) Close() error {
	return r.cli.Close()
}
