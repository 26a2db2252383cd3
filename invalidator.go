package layered

import (
	"fmt"
	"sync"
	"time"
)

// Invalidator is a registry of local tier expiration triggers.
//
// An application that learns about remote data changes through its own side
// channel, for example a pub/sub subscription, hooks
// Registry.ExpireLocalTiers into Callbacks and calls Invalidate on every
// received event.
type Invalidator struct {
	sync.Mutex

	// SkipInterval defines minimal duration between two cache invalidations (flood protection).
	SkipInterval time.Duration

	// Callbacks contains a list of functions to call on invalidate.
	Callbacks []func()

	lastRun time.Time
}

// NewInvalidator creates a trigger that expires local tiers of the given
// registries.
func NewInvalidator(registries ...*Registry) *Invalidator {
	i := &Invalidator{}

	for _, r := range registries {
		i.Callbacks = append(i.Callbacks, r.ExpireLocalTiers)
	}

	return i
}

// Invalidate triggers cache expiration.
func (i *Invalidator) Invalidate() error {
	if i.Callbacks == nil {
		return ErrNothingToInvalidate
	}

	i.Lock()
	defer i.Unlock()

	if i.SkipInterval == 0 {
		i.SkipInterval = 15 * time.Second
	}

	if time.Since(i.lastRun) < i.SkipInterval {
		return fmt.Errorf("%w at %s, %s did not pass",
			ErrAlreadyInvalidated, i.lastRun.String(), i.SkipInterval.String())
	}

	i.lastRun = time.Now()
	for _, cb := range i.Callbacks {
		cb()
	}

	return nil
}
