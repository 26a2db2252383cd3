package layered

import (
	"context"
	"sort"
	"time"
)

// evictOverflow deletes a batch of entries closest to expiration to make room
// for a new one. The write lock must be held.
func (c *local) evictOverflow(ctx context.Context) {
	type item struct {
		key      string
		expireAt time.Time
	}

	entries := make([]item, 0, len(c.data))

	// Collect all keys and expirations.
	for k, v := range c.data {
		entries = append(entries, item{key: k, expireAt: v.Exp})
	}

	// Sort entries to put most expired in head.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].expireAt.Before(entries[j].expireAt)
	})

	evictFraction := c.config.EvictFraction
	if evictFraction == 0 {
		evictFraction = 0.1
	}

	evictItems := int(float64(len(entries)) * evictFraction)
	if evictItems < 1 {
		evictItems = 1
	}

	for i := 0; i < evictItems; i++ {
		delete(c.data, entries[i].key)
	}

	if c.log != nil {
		c.log.Debug(ctx, "evicted entries closest to expiration",
			"name", c.config.Name,
			"count", evictItems)
	}

	if c.stat != nil {
		c.stat.Add(ctx, MetricEvict, float64(evictItems), "name", c.config.Name)
	}
}
