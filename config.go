package layered

import (
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
)

// Local tier defaults applied to zero configuration fields.
const (
	DefaultLocalInitialCapacity = 5
	DefaultLocalMaxSize         = 1000
	DefaultLocalTimeToLive      = time.Minute
)

// RegistryConfig controls a cache registry.
//
// Remote is the only required field.
type RegistryConfig struct {
	// Logger is an instance of contextualized logger, can be nil.
	Logger ctxd.Logger

	// Stats is metrics collector, can be nil.
	Stats stats.Tracker

	// Remote is the shared remote tier handle, required.
	//
	// The handle outlives cache instances, the registry never closes it.
	Remote Remote

	// CacheNames preloads cache instances for a fixed set of names.
	// A non-empty set disables construction of unknown names on lookup.
	CacheNames []string

	// AllowNullValues permits caching of nil values, useful to remember
	// absence of data and protect its source from repeated lookups.
	AllowNullValues bool

	// UsePrefix namespaces remote tier keys with a prefix derived from the
	// cache name, so that caches sharing a remote store do not collide.
	UsePrefix bool

	// Prefixer derives the remote key prefix from a cache name,
	// DelimiterPrefixer(DefaultPrefixDelimiter) is used by default.
	// It only applies when UsePrefix is enabled.
	Prefixer Prefixer

	// RemoteExpiration is TTL of remote tier entries,
	// zero keeps entries until they are deleted.
	RemoteExpiration time.Duration

	// LocalInitialCapacity is a size hint for the local tier, default 5.
	LocalInitialCapacity int

	// LocalMaxSize limits the number of local tier entries, default 1000.
	LocalMaxSize int

	// LocalTimeToLive is expire-after-write delay of the local tier, default 1m.
	LocalTimeToLive time.Duration

	// Codec converts values to and from remote tier payloads,
	// GobCodec is used by default.
	Codec Codec

	// Factory builds cache instances, NewCache is used by default.
	//
	// A factory must not use the registry it serves,
	// construction happens under the registry lock.
	Factory Factory
}

// CacheConfig is the configuration of a single cache instance, captured by
// value when the instance is built.
//
// The snapshot is frozen, later registry reconfiguration never mutates an
// existing instance.
type CacheConfig struct {
	// Logger is an instance of contextualized logger, can be nil.
	Logger ctxd.Logger

	// Stats is metrics collector, can be nil.
	Stats stats.Tracker

	// Name is cache instance name, used in lookups, stats and logging.
	Name string

	// Prefix namespaces the remote tier keys of this cache,
	// empty disables prefixing.
	Prefix string

	// Remote is the shared remote tier handle, required.
	Remote Remote

	// AllowNullValues permits caching of nil values.
	AllowNullValues bool

	// RemoteExpiration is TTL of remote tier entries,
	// zero keeps entries until they are deleted.
	RemoteExpiration time.Duration

	// LocalInitialCapacity is a size hint for the local tier, default 5.
	LocalInitialCapacity int

	// LocalMaxSize limits the number of local tier entries, default 1000.
	LocalMaxSize int

	// LocalTimeToLive is expire-after-write delay of the local tier, default 1m.
	LocalTimeToLive time.Duration

	// Codec converts values to and from remote tier payloads,
	// GobCodec is used by default.
	Codec Codec
}

// Factory builds a cache instance from a configuration snapshot.
type Factory func(cfg CacheConfig) (*Cache, error)
