package synth

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/MrWong99/nexusvoice/internal/observe"
)

// DefaultCapacity is the number of payloads kept when none is configured.
const DefaultCapacity = 100

// ComputeFunc produces the payload for a cache miss.
type ComputeFunc func(ctx context.Context, req Request) ([]byte, error)

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Len       int
	Capacity  int
}

// Cache memoises synthesis results in a bounded LRU.
//
// At most one compute runs per key at a time; concurrent callers for the
// same key wait for it and share its result. Failures are never stored.
// Each caller receives its own copy of the payload.
type Cache struct {
	entries  *lru.Cache[Request, []byte]
	flights  singleflight.Group
	capacity int
	metrics  *observe.Metrics

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// CacheOption configures a [Cache].
type CacheOption func(*Cache)

// WithCacheMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithCacheMetrics(m *observe.Metrics) CacheOption {
	return func(c *Cache) { c.metrics = m }
}

// NewCache creates a cache holding up to capacity payloads. Non-positive
// capacities select [DefaultCapacity].
func NewCache(capacity int, opts ...CacheOption) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Cache{capacity: capacity}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}

	// Entries are never removed explicitly, so every callback is a
	// capacity eviction.
	entries, err := lru.NewWithEvict(capacity, func(Request, []byte) {
		c.evictions.Add(1)
		c.metrics.CacheEvictions.Add(context.Background(), 1)
	})
	if err != nil {
		return nil, fmt.Errorf("synth: create cache: %w", err)
	}
	c.entries = entries
	return c, nil
}

// GetOrCompute returns the payload for req, calling compute on a miss.
//
// compute runs on a context detached from ctx's cancellation: a caller that
// gives up stops waiting, but the call it started finishes and still
// populates the cache for the next caller.
func (c *Cache) GetOrCompute(ctx context.Context, req Request, compute ComputeFunc) ([]byte, error) {
	if audio, ok := c.entries.Get(req); ok {
		c.hits.Add(1)
		c.metrics.RecordCacheLookup(ctx, true)
		return slices.Clone(audio), nil
	}
	c.misses.Add(1)
	c.metrics.RecordCacheLookup(ctx, false)

	detached := context.WithoutCancel(ctx)
	ch := c.flights.DoChan(req.key(), func() (any, error) {
		// A flight for this key may have completed between our Get and
		// joining the group.
		if audio, ok := c.entries.Peek(req); ok {
			return audio, nil
		}
		audio, err := compute(detached, req)
		if err != nil {
			return nil, err
		}
		c.entries.Add(req, audio)
		return audio, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]byte)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Contains reports whether req is cached without touching its recency.
func (c *Cache) Contains(req Request) bool {
	return c.entries.Contains(req)
}

// Len returns the number of cached payloads.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Stats returns the current counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Len:       c.entries.Len(),
		Capacity:  c.capacity,
	}
}
