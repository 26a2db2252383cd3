package layered

// Metrics reported to the stats tracker.
//
// The local tier reports with a "name" label, the layered cache adds a
// "tier" label to samples that come from the remote tier.
const (
	// MetricHit is a name of metric to count cache hits.
	MetricHit = "cache_hit"

	// MetricMiss is a name of metric to count cache misses.
	MetricMiss = "cache_miss"

	// MetricExpired is a name of metric to count expired cache hits.
	MetricExpired = "cache_expired"

	// MetricWrite is a name of metric to count cache writes.
	MetricWrite = "cache_write"

	// MetricEvict is a name of metric to count evictions of the local tier.
	MetricEvict = "cache_evict"

	// MetricItems is a name of gauge to count entries in the local tier.
	MetricItems = "cache_items"

	// MetricBuild is a name of metric to count cache instance constructions.
	MetricBuild = "cache_build"
)
