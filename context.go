package layered

import (
	"context"
	"time"
)

type (
	skipLocalCtxKey struct{}
	ttlCtxKey       struct{}
)

// WithSkipLocal returns context with local tier reads disabled.
//
// A Cache.Get with such context serves from the remote tier and refreshes
// the local entry, useful to pick up writes of other processes immediately.
func WithSkipLocal(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipLocalCtxKey{}, true)
}

// SkipLocal returns true if local tier reads are disabled in context.
func SkipLocal(ctx context.Context) bool {
	_, ok := ctx.Value(skipLocalCtxKey{}).(bool)

	return ok
}

// WithTTL returns context with an overridden cache write TTL.
//
// The override applies to both tiers, use SkipWriteTTL to skip writing
// altogether.
func WithTTL(ctx context.Context, ttl time.Duration) context.Context {
	return context.WithValue(ctx, ttlCtxKey{}, ttl)
}

// TTL returns cache write TTL from context or DefaultTTL if none is set.
func TTL(ctx context.Context) time.Duration {
	ttl, ok := ctx.Value(ttlCtxKey{}).(time.Duration)
	if !ok {
		return DefaultTTL
	}

	return ttl
}
