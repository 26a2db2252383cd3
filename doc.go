// Package layered manages named two-tier caches that pair a bounded
// in-process tier with a shared remote tier.
//
// Features:
//
//   - Registry of named cache instances with lazy at-most-once construction.
//   - Fixed or dynamic name sets, switchable at runtime.
//   - Tier configuration captured as a frozen snapshot per instance.
//   - Retroactive null value policy that rebuilds registered instances.
//   - Remote keys optionally namespaced per cache to share one store safely.
//   - Bounded local tier with expire-after-write, jitter and overflow eviction.
//   - Redis remote tier adapter, pluggable payload codec (gob by default).
//   - Allows logging and stats collection.
//   - Propagates context to allow better control of tier operations.
package layered
