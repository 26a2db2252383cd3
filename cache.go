package layered

import (
	"context"
	"errors"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
)

// nullValue marks a cached absence in the local tier.
type nullValue struct{}

// Cache is a named two-tier cache pairing an owned local tier with a shared
// remote tier. Please use NewCache to create instance.
//
// Values are served from the local tier when possible, a remote tier hit
// refreshes the local entry. Writes go to the remote tier first so that a
// failed write never leaves the shared store behind the local one.
type Cache struct {
	config CacheConfig
	local  *Local
	log    ctxd.Logger
	stat   stats.Tracker
}

// NewCache creates a cache instance from a configuration snapshot.
//
// Zero bounds take defaults, negative bounds fail with ErrInvalidConfig.
// NewCache is the default registry factory.
func NewCache(cfg CacheConfig) (*Cache, error) {
	if cfg.Name == "" {
		return nil, ErrNameRequired
	}

	if cfg.Remote == nil {
		return nil, ErrRemoteRequired
	}

	if cfg.RemoteExpiration < 0 {
		return nil, ctxd.WrapError(context.Background(),
			ErrInvalidConfig, "negative remote expiration",
			"name", cfg.Name, "expiration", cfg.RemoteExpiration)
	}

	if cfg.LocalInitialCapacity == 0 {
		cfg.LocalInitialCapacity = DefaultLocalInitialCapacity
	}

	if cfg.LocalMaxSize == 0 {
		cfg.LocalMaxSize = DefaultLocalMaxSize
	}

	if cfg.LocalTimeToLive == 0 {
		cfg.LocalTimeToLive = DefaultLocalTimeToLive
	}

	if cfg.Codec == nil {
		cfg.Codec = GobCodec{}
	}

	lt, err := NewLocal(LocalConfig{
		Logger:          cfg.Logger,
		Stats:           cfg.Stats,
		Name:            cfg.Name,
		InitialCapacity: cfg.LocalInitialCapacity,
		MaxSize:         cfg.LocalMaxSize,
		TimeToLive:      cfg.LocalTimeToLive,
	})
	if err != nil {
		return nil, err
	}

	c := &Cache{
		config: cfg,
		local:  lt,
		log:    cfg.Logger,
		stat:   cfg.Stats,
	}

	if c.log == nil {
		c.log = ctxd.NoOpLogger{}
	}

	if c.stat == nil {
		c.stat = stats.NoOp{}
	}

	return c, nil
}

// Name returns the cache name.
func (c *Cache) Name() string {
	return c.config.Name
}

// Config returns the configuration snapshot captured at construction,
// zero fields resolved to their defaults.
func (c *Cache) Config() CacheConfig {
	return c.config
}

// Local returns the owned local tier.
func (c *Cache) Local() *Local {
	return c.local
}

func (c *Cache) remoteKey(key string) string {
	return c.config.Prefix + key
}

// Get returns a cached value.
//
// The local tier is read first, a remote tier hit refreshes the local entry.
// ErrNotFound is returned when both tiers miss. A cached null yields (nil, nil)
// if the cache allows null values and ErrNotFound otherwise.
func (c *Cache) Get(ctx context.Context, key string) (interface{}, error) {
	v, err := c.local.Read(ctx, key)
	if err == nil {
		if _, isNull := v.(nullValue); isNull {
			return nil, nil
		}

		return v, nil
	}

	if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrExpired) {
		return nil, err
	}

	payload, err := c.config.Remote.Get(ctx, c.remoteKey(key))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.stat.Add(ctx, MetricMiss, 1, "name", c.config.Name, "tier", "remote")

			return nil, ErrNotFound
		}

		return nil, err
	}

	value, err := c.config.Codec.Decode(payload)
	if err != nil {
		return nil, ctxd.WrapError(ctx, err, "failed to decode remote payload",
			"name", c.config.Name, "key", key)
	}

	if value == nil && !c.config.AllowNullValues {
		// A null written by a null-allowing process stays hidden here,
		// the caller observes a miss.
		c.stat.Add(ctx, MetricMiss, 1, "name", c.config.Name, "tier", "remote")

		return nil, ErrNotFound
	}

	c.stat.Add(ctx, MetricHit, 1, "name", c.config.Name, "tier", "remote")
	c.log.Debug(ctx, "remote tier hit", "name", c.config.Name, "key", key)

	if value == nil {
		c.refreshLocal(ctx, key, nullValue{})

		return nil, nil
	}

	c.refreshLocal(ctx, key, value)

	return value, nil
}

func (c *Cache) refreshLocal(ctx context.Context, key string, value interface{}) {
	if err := c.local.Write(ctx, key, value); err != nil {
		c.log.Warn(ctx, "failed to refresh local tier",
			"error", err, "name", c.config.Name, "key", key)
	}
}

// Put stores a value in both tiers, remote tier first.
//
// A nil value requires AllowNullValues and is stored as a null marker.
// TTL of the remote entry is the configured expiration unless overridden
// with WithTTL, an override applies to the local entry too. Without an
// override the local entry keeps the tier's own time to live.
func (c *Cache) Put(ctx context.Context, key string, value interface{}) error {
	if value == nil && !c.config.AllowNullValues {
		return ErrNullValueDisallowed
	}

	payload, err := c.config.Codec.Encode(value)
	if err != nil {
		return ctxd.WrapError(ctx, err, "failed to encode remote payload",
			"name", c.config.Name, "key", key)
	}

	ttl := TTL(ctx)
	if ttl == DefaultTTL {
		ttl = c.config.RemoteExpiration
	}

	if err := c.config.Remote.Set(ctx, c.remoteKey(key), payload, ttl); err != nil {
		return ctxd.WrapError(ctx, err, "failed to write remote tier",
			"name", c.config.Name, "key", key)
	}

	if ttl >= 0 {
		c.stat.Add(ctx, MetricWrite, 1, "name", c.config.Name, "tier", "remote")
	}

	if value == nil {
		value = nullValue{}
	}

	return c.local.Write(ctx, key, value)
}

// Evict removes a key from both tiers, remote tier first.
//
// Other processes keep their local copies until those expire, use an
// Invalidator hooked to an application side channel to expire them sooner.
func (c *Cache) Evict(ctx context.Context, key string) error {
	if err := c.config.Remote.Del(ctx, c.remoteKey(key)); err != nil {
		return ctxd.WrapError(ctx, err, "failed to delete from remote tier",
			"name", c.config.Name, "key", key)
	}

	if err := c.local.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	c.log.Debug(ctx, "evicted cache entry", "name", c.config.Name, "key", key)

	return nil
}

// Clear drops all entries of this cache.
//
// Remote tier entries can only be targeted through the key prefix. Without a
// prefix the shared keyspace is left intact and only the local tier is
// cleared.
func (c *Cache) Clear(ctx context.Context) error {
	if c.config.Prefix == "" {
		c.log.Warn(ctx, "clearing cache without a key prefix leaves remote tier intact",
			"name", c.config.Name)

		c.local.RemoveAll()

		return nil
	}

	keys, err := c.config.Remote.Keys(ctx, c.config.Prefix+"*")
	if err != nil {
		return ctxd.WrapError(ctx, err, "failed to list remote tier keys",
			"name", c.config.Name)
	}

	if len(keys) > 0 {
		if err := c.config.Remote.Del(ctx, keys...); err != nil {
			return ctxd.WrapError(ctx, err, "failed to clear remote tier",
				"name", c.config.Name)
		}
	}

	c.local.RemoveAll()

	c.log.Debug(ctx, "cleared cache", "name", c.config.Name, "keys", len(keys))

	return nil
}

// ExpireLocal marks all local tier entries of this cache expired.
//
// The next Get of an affected key falls through to the remote tier.
func (c *Cache) ExpireLocal() {
	c.local.ExpireAll()
}
