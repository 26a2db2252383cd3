package layered

import (
	"context"
	"errors"
	"time"

	"github.com/bool64/ctxd"
	"github.com/go-redis/redis/v8"
)

var _ Remote = &RedisRemote{}

// RedisRemoteConfig controls a Redis remote tier adapter.
type RedisRemoteConfig struct {
	// Logger is an instance of contextualized logger, can be nil.
	Logger ctxd.Logger

	// Client is a configured Redis client, required.
	//
	// The adapter does not own the client and never closes it.
	Client redis.UniversalClient
}

// RedisRemote adapts a Redis client to the remote tier contract.
//
// All cache instances of a process usually share one adapter, key prefixes
// keep their entries apart.
type RedisRemote struct {
	client redis.UniversalClient
	log    ctxd.Logger
}

// NewRedisRemote creates a remote tier over a Redis client.
func NewRedisRemote(cfg RedisRemoteConfig) (*RedisRemote, error) {
	if cfg.Client == nil {
		return nil, ErrClientRequired
	}

	log := cfg.Logger
	if log == nil {
		log = ctxd.NoOpLogger{}
	}

	return &RedisRemote{client: cfg.Client, log: log}, nil
}

// Get returns the raw payload stored under key, ErrNotFound for a missing key.
func (r *RedisRemote) Get(ctx context.Context, key string) ([]byte, error) {
	payload, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}

		return nil, ctxd.WrapError(ctx, err, "remote get failed", "key", key)
	}

	return payload, nil
}

// Set stores a raw payload under key.
//
// Zero ttl keeps the entry until it is deleted, negative ttl skips the write.
func (r *RedisRemote) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if ttl < 0 {
		r.log.Debug(ctx, "skipping remote write", "key", key, "ttl", ttl)

		return nil
	}

	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return ctxd.WrapError(ctx, err, "remote set failed", "key", key)
	}

	return nil
}

// Del removes keys, missing keys are ignored.
func (r *RedisRemote) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return ctxd.WrapError(ctx, err, "remote del failed", "keys", keys)
	}

	return nil
}

// Keys lists the keys matching a glob pattern.
//
// KEYS blocks the server while it scans the whole keyspace, the pattern is
// expected to be a narrow cache prefix.
func (r *RedisRemote) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys, err := r.client.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, ctxd.WrapError(ctx, err, "remote keys failed", "pattern", pattern)
	}

	return keys, nil
}
