package layered

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
)

// entry is a cache entry.
type entry struct {
	Val interface{}
	Exp time.Time
}

func (e entry) Value() interface{} {
	return e.Val
}

func (e entry) ExpireAt() time.Time {
	return e.Exp
}

type errExpired struct {
	entry entry
}

func (e errExpired) Error() string {
	return ErrExpired.Error()
}

func (e errExpired) Value() interface{} {
	return e.entry.Val
}

func (e errExpired) ExpiredAt() time.Time {
	return e.entry.Exp
}

func (e errExpired) Is(err error) bool {
	return err == ErrExpired
}

// LocalConfig controls an in-process cache tier instance.
type LocalConfig struct {
	// Logger is an instance of contextualized logger, can be nil.
	Logger ctxd.Logger

	// Stats is metrics collector, can be nil.
	Stats stats.Tracker

	// Name is cache instance name, used in stats and logging.
	Name string

	// InitialCapacity is a size hint for the backing map, default 5.
	InitialCapacity int

	// MaxSize limits the number of entries, default 1000.
	// On overflow a batch of entries closest to expiration is evicted.
	MaxSize int

	// EvictFraction is a fraction of entries (0, 1] evicted on overflow, default 0.1 (10% of entries).
	EvictFraction float64

	// TimeToLive is delay before entry expiration, default 1m.
	TimeToLive time.Duration

	// DeleteExpiredAfter is delay before expired entry is deleted from cache, default 24h.
	DeleteExpiredAfter time.Duration

	// DeleteExpiredJobInterval is delay between two consecutive cleanups, default 1h.
	DeleteExpiredJobInterval time.Duration

	// ItemsCountReportInterval is items count metric report interval, default 1m.
	ItemsCountReportInterval time.Duration

	// ExpirationJitter is a fraction of TTL to randomize, default 0.1.
	// Use -1 to disable.
	// If enabled, entry TTL will be randomly altered in bounds of ±(ExpirationJitter * TTL / 2).
	ExpirationJitter float64
}

var (
	_ ReadWriter = &Local{}
	_ Deleter    = &Local{}
	_ Walker     = &Local{}
)

// Local is a bounded in-process cache tier. Please use NewLocal to create it.
//
// Background jobs of an instance stop once it becomes unreachable, an
// abandoned instance needs no explicit close.
type Local struct {
	*local
}

type local struct {
	sync.RWMutex
	data   map[string]entry
	closed chan struct{}

	config LocalConfig
	log    ctxd.Logger
	stat   stats.Tracker
}

// NewLocal creates an instance of in-process cache tier with optional configuration.
func NewLocal(cfg LocalConfig) (*Local, error) {
	switch {
	case cfg.InitialCapacity < 0:
		return nil, fmt.Errorf("%w: negative initial capacity %d", ErrInvalidConfig, cfg.InitialCapacity)
	case cfg.MaxSize < 0:
		return nil, fmt.Errorf("%w: negative max size %d", ErrInvalidConfig, cfg.MaxSize)
	case cfg.EvictFraction < 0 || cfg.EvictFraction > 1:
		return nil, fmt.Errorf("%w: evict fraction %v not in (0, 1]", ErrInvalidConfig, cfg.EvictFraction)
	case cfg.TimeToLive < 0:
		return nil, fmt.Errorf("%w: negative time to live %s", ErrInvalidConfig, cfg.TimeToLive)
	}

	if cfg.InitialCapacity == 0 {
		cfg.InitialCapacity = DefaultLocalInitialCapacity
	}

	if cfg.MaxSize == 0 {
		cfg.MaxSize = DefaultLocalMaxSize
	}

	if cfg.TimeToLive == 0 {
		cfg.TimeToLive = DefaultLocalTimeToLive
	}

	if cfg.DeleteExpiredAfter == 0 {
		cfg.DeleteExpiredAfter = 24 * time.Hour
	}

	if cfg.DeleteExpiredJobInterval == 0 {
		cfg.DeleteExpiredJobInterval = time.Hour
	}

	if cfg.ItemsCountReportInterval == 0 {
		cfg.ItemsCountReportInterval = time.Minute
	}

	if cfg.ExpirationJitter == 0 {
		cfg.ExpirationJitter = 0.1
	}

	c := &local{
		data:   make(map[string]entry, cfg.InitialCapacity),
		config: cfg,
		stat:   cfg.Stats,
		log:    cfg.Logger,
		closed: make(chan struct{}),
	}

	C := &Local{local: c}

	if c.stat != nil {
		go c.reportItemsCount()
	}

	go c.cleaner()

	runtime.SetFinalizer(C, func(l *Local) {
		close(l.closed)
	})

	return C, nil
}

// Read gets value.
func (c *local) Read(ctx context.Context, k string) (interface{}, error) {
	if SkipLocal(ctx) {
		return nil, ErrNotFound
	}

	c.RLock()
	cacheEntry, ok := c.data[k]
	c.RUnlock()

	if !ok {
		if c.log != nil {
			c.log.Debug(ctx, "cache miss",
				"name", c.config.Name,
				"key", k)
		}

		if c.stat != nil {
			c.stat.Add(ctx, MetricMiss, 1, "name", c.config.Name)
		}

		return nil, ErrNotFound
	}

	if cacheEntry.Exp.Before(time.Now()) {
		if c.log != nil {
			c.log.Debug(ctx, "cache key expired",
				"name", c.config.Name,
				"key", k)
		}

		if c.stat != nil {
			c.stat.Add(ctx, MetricExpired, 1, "name", c.config.Name)
		}

		return cacheEntry.Val, errExpired{entry: cacheEntry}
	}

	if c.stat != nil {
		c.stat.Add(ctx, MetricHit, 1, "name", c.config.Name)
	}

	if c.log != nil {
		c.log.Debug(ctx, "cache hit",
			"name", c.config.Name,
			"key", k,
			"entry", cacheEntry)
	}

	return cacheEntry.Val, nil
}

// Write sets value.
func (c *local) Write(ctx context.Context, k string, v interface{}) error {
	ttl := TTL(ctx)
	if ttl == SkipWriteTTL {
		return nil
	}

	if ttl == DefaultTTL {
		ttl = c.config.TimeToLive
	}

	if c.config.ExpirationJitter > 0 {
		ttl += time.Duration(float64(ttl) * c.config.ExpirationJitter * (rand.Float64() - 0.5))
	}

	c.Lock()
	defer c.Unlock()

	if _, ok := c.data[k]; !ok && len(c.data) >= c.config.MaxSize {
		c.evictOverflow(ctx)
	}

	c.data[k] = entry{Val: v, Exp: time.Now().Add(ttl)}

	if c.log != nil {
		c.log.Debug(ctx, "wrote to cache", "name", c.config.Name, "key", k, "value", v, "ttl", ttl)
	}

	if c.stat != nil {
		c.stat.Add(ctx, MetricWrite, 1, "name", c.config.Name)
	}

	return nil
}

// Delete removes an entry, it returns ErrNotFound for a missing key.
func (c *local) Delete(ctx context.Context, k string) error {
	c.Lock()
	defer c.Unlock()

	if _, ok := c.data[k]; !ok {
		return ErrNotFound
	}

	delete(c.data, k)

	if c.log != nil {
		c.log.Debug(ctx, "deleted cache entry",
			"name", c.config.Name,
			"key", k)
	}

	return nil
}

// ExpireAll marks all entries as expired, they can still serve stale cache.
func (c *local) ExpireAll() {
	now := time.Now()

	c.Lock()
	for k, v := range c.data {
		v.Exp = now
		c.data[k] = v
	}
	c.Unlock()
}

// RemoveAll deletes all entries.
func (c *local) RemoveAll() {
	c.Lock()
	c.data = make(map[string]entry, c.config.InitialCapacity)
	c.Unlock()
}

func (c *local) cleaner() {
	for {
		select {
		case <-time.After(c.config.DeleteExpiredJobInterval):
			c.clearExpired()
		case <-c.closed:
			return
		}
	}
}

func (c *local) clearExpired() {
	expirationBoundary := time.Now().Add(-c.config.DeleteExpiredAfter)
	keys := make([]string, 0, 100)

	c.RLock()
	for k, i := range c.data {
		if i.Exp.Before(expirationBoundary) {
			keys = append(keys, k)
		}
	}
	c.RUnlock()

	if c.log != nil {
		c.log.Debug(context.Background(), "clearing expired cache items",
			"name", c.config.Name,
			"items", keys,
		)
	}

	c.Lock()
	for _, k := range keys {
		delete(c.data, k)
	}
	c.Unlock()
}

func (c *local) reportItemsCount() {
	for {
		select {
		case <-c.closed:
			return
		case <-time.After(c.config.ItemsCountReportInterval):
			count := c.Len()

			if c.log != nil {
				c.log.Debug(context.Background(), "cache items count",
					"name", c.config.Name,
					"count", count,
				)
			}

			if c.stat != nil {
				c.stat.Set(context.Background(), MetricItems, float64(count), "name", c.config.Name)
			}
		}
	}
}

// Len returns number of elements in cache.
func (c *local) Len() int {
	c.RLock()
	cnt := len(c.data)
	c.RUnlock()

	return cnt
}

// Walk walks cached entries.
func (c *local) Walk(walkFn func(key string, value Entry) error) (int, error) {
	c.RLock()
	defer c.RUnlock()

	n := 0

	for k, v := range c.data {
		c.RUnlock()

		err := walkFn(k, v)

		c.RLock()

		if err != nil {
			return n, err
		}

		n++
	}

	return n, nil
}
