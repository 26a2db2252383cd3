package layered

import (
	"context"
	"sync"
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
	"github.com/puzpuzpuz/xsync"
)

// Registry owns a named collection of cache instances and the configuration
// they are built from. Please use NewRegistry to create instance.
//
// Lookups of registered names are lock-free. Construction of missing
// instances is serialized, a name is built at most once no matter how many
// goroutines ask for it first.
//
// A registry is either dynamic or fixed. A dynamic registry builds an
// instance for any name on first lookup, a fixed one serves the preloaded
// name set and rejects the rest with ErrUnknownCache. The mode follows the
// last SetCacheNames call, a non-empty set pins the registry, an empty one
// releases it.
type Registry struct {
	entries *xsync.Map // cache name to *Cache

	mu      sync.Mutex // guards config, dynamic and construction
	config  RegistryConfig
	dynamic bool

	log  ctxd.Logger
	stat stats.Tracker
}

// NewRegistry creates a cache registry.
//
// A remote tier handle is required. A non-empty RegistryConfig.CacheNames
// preloads instances eagerly and fixes the registry to that name set, a
// construction failure of any preloaded name fails the whole registry.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if cfg.Remote == nil {
		return nil, ErrRemoteRequired
	}

	if cfg.Prefixer == nil {
		cfg.Prefixer = DelimiterPrefixer(DefaultPrefixDelimiter)
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

	if cfg.Factory == nil {
		cfg.Factory = NewCache
	}

	r := &Registry{
		entries: xsync.NewMap(),
		config:  cfg,
		dynamic: len(cfg.CacheNames) == 0,
		log:     cfg.Logger,
		stat:    cfg.Stats,
	}

	if r.log == nil {
		r.log = ctxd.NoOpLogger{}
	}

	if r.stat == nil {
		r.stat = stats.NoOp{}
	}

	for _, name := range cfg.CacheNames {
		c, err := r.createCache(name)
		if err != nil {
			return nil, err
		}

		r.entries.Store(name, c)
	}

	return r, nil
}

// Cache returns the instance registered under a name.
//
// A fixed registry returns ErrUnknownCache for names outside its set. A
// dynamic registry builds a missing instance from the current configuration
// and registers it, concurrent first lookups of one name receive the same
// instance. Construction failure leaves the name unregistered, a later
// lookup retries.
func (r *Registry) Cache(name string) (*Cache, error) {
	if c, ok := r.entries.Load(name); ok {
		return c.(*Cache), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Construction could have finished while this caller waited for the lock.
	if c, ok := r.entries.Load(name); ok {
		return c.(*Cache), nil
	}

	if !r.dynamic {
		return nil, ErrUnknownCache
	}

	c, err := r.createCache(name)
	if err != nil {
		return nil, err
	}

	r.entries.Store(name, c)

	return c, nil
}

// CacheNames returns registered names in no particular order.
func (r *Registry) CacheNames() []string {
	names := make([]string, 0)

	r.entries.Range(func(name string, _ interface{}) bool {
		names = append(names, name)

		return true
	})

	return names
}

// AllowNullValues returns the current null value policy.
func (r *Registry) AllowNullValues() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.config.AllowNullValues
}

// SetCacheNames replaces the working name set.
//
// Every listed name is built eagerly from the current configuration, names
// that already exist are rebuilt and swapped. Previously registered names
// missing from the list stay registered, the operation adds and replaces
// but never removes.
//
// A non-empty list fixes the registry to known names, an empty or nil list
// switches it to dynamic construction. The first failed construction aborts
// the call, names built before the failure are already swapped.
func (r *Registry) SetCacheNames(names []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range names {
		c, err := r.createCache(name)
		if err != nil {
			return err
		}

		r.entries.Store(name, c)
	}

	r.dynamic = len(names) == 0

	return nil
}

// SetAllowNullValues updates the null value policy.
//
// Unlike other setters this one is retroactive, a changed flag rebuilds
// every registered instance so the policy applies to caches that already
// exist. Their local tiers start over cold, remote tier data is untouched.
// An unchanged flag is a no-op.
func (r *Registry) SetAllowNullValues(allow bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.config.AllowNullValues == allow {
		return nil
	}

	r.config.AllowNullValues = allow

	return r.refreshKnownCaches()
}

// SetUsePrefix toggles remote tier key prefixing for instances built after
// the call, existing instances keep the prefix they were built with.
func (r *Registry) SetUsePrefix(use bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.config.UsePrefix = use
}

// SetRemoteExpirationSeconds sets TTL of remote tier entries, in seconds,
// for instances built after the call. Zero keeps entries until deleted.
func (r *Registry) SetRemoteExpirationSeconds(sec int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.config.RemoteExpiration = time.Duration(sec) * time.Second
}

// SetLocalInitialCapacity sets the local tier size hint for instances built
// after the call.
func (r *Registry) SetLocalInitialCapacity(capacity int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.config.LocalInitialCapacity = capacity
}

// SetLocalMaxSize sets the local tier entry bound for instances built after
// the call.
func (r *Registry) SetLocalMaxSize(size int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.config.LocalMaxSize = size
}

// SetLocalTimeToLiveMillis sets expire-after-write of local tiers, in
// milliseconds, for instances built after the call.
func (r *Registry) SetLocalTimeToLiveMillis(ms int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.config.LocalTimeToLive = time.Duration(ms) * time.Millisecond
}

// ExpireLocalTiers marks local tier entries of every registered cache
// expired, the next reads fall through to the remote tier.
//
// Hook it to an Invalidator to refresh a process after another one changed
// shared data.
func (r *Registry) ExpireLocalTiers() {
	r.entries.Range(func(_ string, value interface{}) bool {
		value.(*Cache).ExpireLocal()

		return true
	})
}

// createCache builds an instance from the current configuration.
//
// Callers hold r.mu, except NewRegistry which builds before the registry is
// shared. The result is not registered, publishing is up to the caller so
// that a failed construction never becomes visible.
func (r *Registry) createCache(name string) (*Cache, error) {
	prefix := ""
	if r.config.UsePrefix {
		prefix = r.config.Prefixer(name)
	}

	c, err := r.config.Factory(CacheConfig{
		Logger:               r.config.Logger,
		Stats:                r.config.Stats,
		Name:                 name,
		Prefix:               prefix,
		Remote:               r.config.Remote,
		AllowNullValues:      r.config.AllowNullValues,
		RemoteExpiration:     r.config.RemoteExpiration,
		LocalInitialCapacity: r.config.LocalInitialCapacity,
		LocalMaxSize:         r.config.LocalMaxSize,
		LocalTimeToLive:      r.config.LocalTimeToLive,
		Codec:                r.config.Codec,
	})
	if err != nil {
		return nil, ctxd.WrapError(context.Background(), err, "failed to build cache",
			"name", name)
	}

	r.stat.Add(context.Background(), MetricBuild, 1, "name", name)
	r.log.Debug(context.Background(), "built cache instance", "name", name)

	return c, nil
}

// refreshKnownCaches rebuilds every registered instance from the current
// configuration and swaps it in. Replaced instances stay usable for the
// callers that hold them, their local tiers are simply abandoned.
//
// Callers hold r.mu.
func (r *Registry) refreshKnownCaches() error {
	var names []string

	r.entries.Range(func(name string, _ interface{}) bool {
		names = append(names, name)

		return true
	})

	for _, name := range names {
		c, err := r.createCache(name)
		if err != nil {
			return err
		}

		r.entries.Store(name, c)
	}

	return nil
}
