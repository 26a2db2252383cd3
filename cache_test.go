package layered_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bool64/stats"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veartutop/layered"
)

type profile struct {
	ID    int
	Email string
}

// nolint:gochecknoinits // Cached types are registered once per process.
func init() {
	layered.GobRegister(profile{})
}

func newTestRemote(t *testing.T) (*layered.RedisRemote, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() {
		assert.NoError(t, client.Close())
	})

	remote, err := layered.NewRedisRemote(layered.RedisRemoteConfig{Client: client})
	require.NoError(t, err)

	return remote, srv
}

func TestCache_GetPut(t *testing.T) {
	ctx := context.Background()
	remote, srv := newTestRemote(t)

	r, err := layered.NewRegistry(layered.RegistryConfig{
		Remote:    remote,
		UsePrefix: true,
	})
	require.NoError(t, err)

	users, err := r.Cache("users")
	require.NoError(t, err)

	// Both tiers miss.
	_, err = users.Get(ctx, "42")
	assert.True(t, errors.Is(err, layered.ErrNotFound))

	val := profile{ID: 42, Email: "alice@example.com"}
	require.NoError(t, users.Put(ctx, "42", val))

	// The remote tier holds the entry under a prefixed key.
	assert.True(t, srv.Exists("users:42"))

	got, err := users.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, val, got)

	// The local tier keeps serving after the remote entry is gone.
	srv.Del("users:42")

	got, err = users.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, val, got)

	// An expired local tier falls through to the remote tier and misses.
	users.ExpireLocal()

	_, err = users.Get(ctx, "42")
	assert.True(t, errors.Is(err, layered.ErrNotFound))
}

func TestCache_Get_refreshesLocal(t *testing.T) {
	ctx := context.Background()
	remote, srv := newTestRemote(t)

	r, err := layered.NewRegistry(layered.RegistryConfig{
		Remote:    remote,
		UsePrefix: true,
	})
	require.NoError(t, err)

	users, err := r.Cache("users")
	require.NoError(t, err)

	require.NoError(t, users.Put(ctx, "42", "alice"))
	users.ExpireLocal()

	// A remote tier hit refreshes the local entry.
	got, err := users.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "alice", got)

	// Served locally now, the remote entry is not needed anymore.
	srv.Del("users:42")

	got, err = users.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "alice", got)
}

func TestCache_Get_skipLocal(t *testing.T) {
	ctx := context.Background()
	remote, _ := newTestRemote(t)

	// Two registries on one remote store stand in for two processes.
	r1, err := layered.NewRegistry(layered.RegistryConfig{Remote: remote, UsePrefix: true})
	require.NoError(t, err)

	r2, err := layered.NewRegistry(layered.RegistryConfig{Remote: remote, UsePrefix: true})
	require.NoError(t, err)

	users1, err := r1.Cache("users")
	require.NoError(t, err)

	users2, err := r2.Cache("users")
	require.NoError(t, err)

	require.NoError(t, users1.Put(ctx, "42", "alice"))

	// The other process updates the shared entry behind our back.
	require.NoError(t, users2.Put(ctx, "42", "bob"))

	// The first process still serves its local copy.
	got, err := users1.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "alice", got)

	// Skipping the local tier picks up the foreign write.
	got, err = users1.Get(layered.WithSkipLocal(ctx), "42")
	require.NoError(t, err)
	assert.Equal(t, "bob", got)

	// The local entry is refreshed along the way.
	got, err = users1.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "bob", got)
}

func TestCache_Put_remoteTTL(t *testing.T) {
	ctx := context.Background()
	remote, srv := newTestRemote(t)

	r, err := layered.NewRegistry(layered.RegistryConfig{
		Remote:    remote,
		UsePrefix: true,
	})
	require.NoError(t, err)

	users, err := r.Cache("users")
	require.NoError(t, err)

	// Zero expiration keeps remote entries until they are deleted.
	require.NoError(t, users.Put(ctx, "41", "alice"))
	assert.Equal(t, time.Duration(0), srv.TTL("users:41"))

	// The configured expiration applies to instances built after the call.
	r.SetRemoteExpirationSeconds(600)

	orders, err := r.Cache("orders")
	require.NoError(t, err)

	require.NoError(t, orders.Put(ctx, "1", 100))
	assert.Equal(t, 10*time.Minute, srv.TTL("orders:1"))

	// A per-write override takes precedence.
	require.NoError(t, orders.Put(layered.WithTTL(ctx, time.Minute), "2", 200))
	assert.Equal(t, time.Minute, srv.TTL("orders:2"))

	// SkipWriteTTL bypasses both tiers.
	require.NoError(t, orders.Put(layered.WithTTL(ctx, layered.SkipWriteTTL), "3", 300))
	assert.False(t, srv.Exists("orders:3"))

	_, err = orders.Get(ctx, "3")
	assert.True(t, errors.Is(err, layered.ErrNotFound))
}

func TestCache_nullValues(t *testing.T) {
	ctx := context.Background()
	remote, srv := newTestRemote(t)

	r, err := layered.NewRegistry(layered.RegistryConfig{
		Remote:          remote,
		UsePrefix:       true,
		AllowNullValues: true,
	})
	require.NoError(t, err)

	users, err := r.Cache("users")
	require.NoError(t, err)

	// A cached null is a successful lookup of a known absence.
	require.NoError(t, users.Put(ctx, "42", nil))

	got, err := users.Get(ctx, "42")
	require.NoError(t, err)
	assert.Nil(t, got)

	// The null marker is a single byte in the remote tier.
	raw, err := srv.Get("users:42")
	require.NoError(t, err)
	assert.Equal(t, "\x00", raw)

	// An expired local entry is refreshed from the remote marker.
	users.ExpireLocal()

	got, err = users.Get(ctx, "42")
	require.NoError(t, err)
	assert.Nil(t, got)

	// A cache that disallows nulls rejects nil writes and hides foreign markers.
	st := stats.TrackerMock{}

	strict, err := layered.NewRegistry(layered.RegistryConfig{
		Remote:    remote,
		UsePrefix: true,
		Stats:     &st,
	})
	require.NoError(t, err)

	strictUsers, err := strict.Cache("users")
	require.NoError(t, err)

	assert.EqualError(t, strictUsers.Put(ctx, "42", nil), layered.ErrNullValueDisallowed.Error())

	_, err = strictUsers.Get(ctx, "42")
	assert.True(t, errors.Is(err, layered.ErrNotFound))

	// The hidden marker counts as a miss in both tiers, never as a hit.
	assert.Equal(t, 2, st.Int(layered.MetricMiss))
	assert.Equal(t, 0, st.Int(layered.MetricHit))
}

func TestCache_Evict(t *testing.T) {
	ctx := context.Background()
	remote, srv := newTestRemote(t)

	r, err := layered.NewRegistry(layered.RegistryConfig{
		Remote:    remote,
		UsePrefix: true,
	})
	require.NoError(t, err)

	users, err := r.Cache("users")
	require.NoError(t, err)

	require.NoError(t, users.Put(ctx, "1", "alice"))
	require.NoError(t, users.Evict(ctx, "1"))

	assert.False(t, srv.Exists("users:1"))

	_, err = users.Get(ctx, "1")
	assert.True(t, errors.Is(err, layered.ErrNotFound))

	// Evicting a missing key is not an error.
	require.NoError(t, users.Evict(ctx, "1"))
}

func TestCache_Clear(t *testing.T) {
	ctx := context.Background()
	remote, srv := newTestRemote(t)

	r, err := layered.NewRegistry(layered.RegistryConfig{
		Remote:    remote,
		UsePrefix: true,
	})
	require.NoError(t, err)

	users, err := r.Cache("users")
	require.NoError(t, err)

	orders, err := r.Cache("orders")
	require.NoError(t, err)

	require.NoError(t, users.Put(ctx, "1", "alice"))
	require.NoError(t, users.Put(ctx, "2", "bob"))
	require.NoError(t, orders.Put(ctx, "1", 100))

	// Clear drops only the keys of this cache.
	require.NoError(t, users.Clear(ctx))

	assert.False(t, srv.Exists("users:1"))
	assert.False(t, srv.Exists("users:2"))
	assert.True(t, srv.Exists("orders:1"))

	_, err = users.Get(ctx, "1")
	assert.True(t, errors.Is(err, layered.ErrNotFound))

	got, err := orders.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 100, got)
}

func TestCache_Clear_noPrefix(t *testing.T) {
	ctx := context.Background()
	remote, srv := newTestRemote(t)

	r, err := layered.NewRegistry(layered.RegistryConfig{
		Remote: remote,
	})
	require.NoError(t, err)

	users, err := r.Cache("users")
	require.NoError(t, err)

	require.NoError(t, users.Put(ctx, "1", "alice"))

	// Without a key prefix only the local tier is dropped,
	// the shared keyspace cannot be matched safely.
	require.NoError(t, users.Clear(ctx))
	assert.True(t, srv.Exists("1"))

	got, err := users.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got)
}

func TestCache_Get_badPayload(t *testing.T) {
	ctx := context.Background()
	remote, srv := newTestRemote(t)

	r, err := layered.NewRegistry(layered.RegistryConfig{
		Remote:    remote,
		UsePrefix: true,
	})
	require.NoError(t, err)

	users, err := r.Cache("users")
	require.NoError(t, err)

	require.NoError(t, srv.Set("users:42", "\x07junk"))

	_, err = users.Get(ctx, "42")
	assert.True(t, errors.Is(err, layered.ErrBadPayload))
}

func TestNewCache_validation(t *testing.T) {
	_, err := layered.NewCache(layered.CacheConfig{Remote: layered.NoOpRemote{}})
	assert.EqualError(t, err, layered.ErrNameRequired.Error())

	_, err = layered.NewCache(layered.CacheConfig{Name: "users"})
	assert.EqualError(t, err, layered.ErrRemoteRequired.Error())

	_, err = layered.NewCache(layered.CacheConfig{
		Name:             "users",
		Remote:           layered.NoOpRemote{},
		RemoteExpiration: -time.Second,
	})
	assert.True(t, errors.Is(err, layered.ErrInvalidConfig))

	c, err := layered.NewCache(layered.CacheConfig{Name: "users", Remote: layered.NoOpRemote{}})
	require.NoError(t, err)
	assert.Equal(t, layered.DefaultLocalMaxSize, c.Config().LocalMaxSize)
	assert.Equal(t, layered.DefaultLocalInitialCapacity, c.Config().LocalInitialCapacity)
	assert.Equal(t, layered.DefaultLocalTimeToLive, c.Config().LocalTimeToLive)
}
