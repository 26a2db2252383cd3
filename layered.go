package layered

import (
	"context"
	"time"
)

// DefaultTTL marks entry to be stored with default TTL of the tier.
const DefaultTTL = time.Duration(0)

// SkipWriteTTL marks entry to skip cache writing.
const SkipWriteTTL = time.Duration(-1)

// Reader reads from a cache tier.
type Reader interface {
	// Read returns a cached value.
	//
	// An entry that is past expiration is still returned together with
	// ErrExpired so that the caller can decide whether to serve it stale.
	Read(ctx context.Context, key string) (interface{}, error)
}

// Writer writes to a cache tier.
type Writer interface {
	// Write stores value in cache with a given key.
	Write(ctx context.Context, key string, value interface{}) error
}

// ReadWriter reads from and writes to a cache tier.
type ReadWriter interface {
	Reader
	Writer
}

// Deleter deletes from a cache tier.
type Deleter interface {
	// Delete removes a cache entry with a given key,
	// it returns ErrNotFound if the entry is missing.
	Delete(ctx context.Context, key string) error
}

// Entry is a cache entry of the local tier.
type Entry interface {
	Value() interface{}
}

// Expirable defines entry with expiration time.
type Expirable interface {
	ExpireAt() time.Time
}

// Walker iterates entries of the local tier.
type Walker interface {
	// Walk walks through the entries and calls a function for each of them.
	// If the function returns an error, the iteration stops.
	Walk(func(key string, entry Entry) error) (int, error)
}

// Remote is a handle to the shared remote tier.
//
// It outlives any cache instance and is shared by all caches of a registry,
// instances separate their keys with a prefix. Implementations must be safe
// for concurrent use.
type Remote interface {
	// Get returns the raw payload stored under key,
	// ErrNotFound for a missing key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a raw payload under key.
	// Zero ttl keeps the entry until it is deleted, negative ttl skips the write.
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// Del removes keys, missing keys are ignored.
	Del(ctx context.Context, keys ...string) error

	// Keys lists the keys matching a glob pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// Codec converts values to and from remote tier payloads.
type Codec interface {
	// Encode turns a value into a payload, nil value encodes a null marker.
	Encode(value interface{}) ([]byte, error)

	// Decode turns a payload back into a value, a null marker decodes to nil.
	Decode(payload []byte) (interface{}, error)
}
