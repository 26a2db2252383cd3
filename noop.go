package layered

import (
	"context"
	"time"
)

var _ Remote = NoOpRemote{}

// NoOpRemote is a remote tier stub that misses every read and discards every
// write.
//
// It keeps a registry functional without a shared store, cache instances
// degrade to their local tiers.
type NoOpRemote struct{}

// Get does not find anything.
func (NoOpRemote) Get(_ context.Context, _ string) ([]byte, error) {
	return nil, ErrNotFound
}

// Set discards the payload.
func (NoOpRemote) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	return nil
}

// Del ignores the keys.
func (NoOpRemote) Del(_ context.Context, _ ...string) error {
	return nil
}

// Keys matches nothing.
func (NoOpRemote) Keys(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}
