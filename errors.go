package layered

import "time"

// ErrExpiredEntry defines an expiration error with entry details.
type ErrExpiredEntry interface {
	error

	// Value returns the expired entry as it was stored.
	Value() interface{}

	// ExpiredAt returns entry expiration timestamp.
	ExpiredAt() time.Time
}

// SentinelError is an error.
type SentinelError string

// Error returns error message.
func (e SentinelError) Error() string {
	return string(e)
}

const (
	// ErrNotFound indicates a missing cache entry.
	ErrNotFound = SentinelError("missing cache entry")

	// ErrExpired indicates an expired cache entry, it may carry entry
	// details implementing ErrExpiredEntry.
	ErrExpired = SentinelError("expired cache entry")

	// ErrUnknownCache is returned by a registry with a fixed name set for a
	// name that is not registered.
	ErrUnknownCache = SentinelError("unknown cache name")

	// ErrRemoteRequired indicates construction without a remote tier handle.
	ErrRemoteRequired = SentinelError("remote store is required")

	// ErrClientRequired indicates construction without a backend client.
	ErrClientRequired = SentinelError("backend client is required")

	// ErrNameRequired indicates cache construction without a name.
	ErrNameRequired = SentinelError("cache name is required")

	// ErrNullValueDisallowed indicates a nil value stored in a cache that
	// does not allow null values.
	ErrNullValueDisallowed = SentinelError("null values are disallowed")

	// ErrInvalidConfig indicates configuration bounds that make no sense,
	// for example a negative size.
	ErrInvalidConfig = SentinelError("invalid cache configuration")

	// ErrBadPayload indicates a remote tier payload that could not be decoded.
	ErrBadPayload = SentinelError("malformed remote payload")

	// ErrNothingToInvalidate indicates an invalidator without callbacks.
	ErrNothingToInvalidate = SentinelError("nothing to invalidate")

	// ErrAlreadyInvalidated indicates a suppressed invalidation
	// that happened too soon after the previous one.
	ErrAlreadyInvalidated = SentinelError("already invalidated")
)
