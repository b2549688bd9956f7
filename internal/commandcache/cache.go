package commandcache

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/unillama15/fergun/pkg/fergun"
)

const (
	// DefaultMaxAge is how long an entry may live before the sweep removes it.
	DefaultMaxAge = 2 * time.Hour
	// DefaultSweepInterval is how often the background sweep runs.
	DefaultSweepInterval = 30 * time.Minute
)

// Config controls cache bounds and sweep cadence.
type Config struct {
	// Capacity is the maximum number of live entries. Must be >= 1.
	Capacity int
	// MaxAge bounds entry age as decoded from the trigger snowflake.
	// Zero selects DefaultMaxAge.
	MaxAge time.Duration
	// SweepInterval is the background sweep period. Zero selects
	// DefaultSweepInterval.
	SweepInterval time.Duration
}

// Option mutates cache configuration.
type Option func(*Cache)

// WithLogger injects a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cache *Cache) {
		if logger != nil {
			cache.logger = logger
		}
	}
}

// withClock overrides the time source for deterministic tests.
func withClock(clock func() time.Time) Option {
	return func(cache *Cache) {
		if clock != nil {
			cache.clock = clock
		}
	}
}

// Cache is the concurrent trigger-to-response correlation store.
//
// All operations are safe under unbounded concurrent callers. The live
// counter is maintained alongside structural mutations and resynchronized
// from structural size after every bulk operation, healing drift from
// interleavings the individual operations tolerate.
type Cache struct {
	logger        *slog.Logger
	capacity      int
	maxAge        time.Duration
	sweepInterval time.Duration
	clock         func() time.Time

	entries sync.Map // fergun.Snowflake -> fergun.Snowflake
	live    atomic.Int64

	closed  atomic.Bool
	done    chan struct{}
	sweeper sync.WaitGroup
}

// New validates the configuration and starts the background sweep.
func New(cfg Config, options ...Option) (*Cache, error) {
	if cfg.Capacity < 1 {
		return nil, fmt.Errorf("new command cache: capacity %d: %w", cfg.Capacity, fergun.ErrInvalidCacheConfig)
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	cache := &Cache{
		logger:        slog.Default(),
		capacity:      cfg.Capacity,
		maxAge:        cfg.MaxAge,
		sweepInterval: cfg.SweepInterval,
		clock:         time.Now,
		done:          make(chan struct{}),
	}
	for _, option := range options {
		option(cache)
	}

	cache.sweeper.Add(1)
	go cache.sweepLoop()

	return cache, nil
}

// Put registers the response produced for a trigger, evicting the oldest
// entries first when inserting a brand-new key would exceed capacity.
//
// Eviction order follows the timestamp encoded in the key, not insertion
// order: the key is the chronological identity of the entry, so a key that
// arrived late but decodes earlier is still evicted first.
func (c *Cache) Put(triggerID, responseID fergun.Snowflake) {
	if _, exists := c.entries.Load(triggerID); exists {
		c.entries.Store(triggerID, responseID)
		return
	}

	if overflow := int(c.live.Load()) - c.capacity + 1; overflow > 0 {
		c.evictOldest(overflow)
	}

	if _, loaded := c.entries.LoadOrStore(triggerID, responseID); loaded {
		c.entries.Store(triggerID, responseID)
		return
	}
	c.live.Add(1)
}

// Get returns the response registered for a trigger.
func (c *Cache) Get(triggerID fergun.Snowflake) (fergun.Snowflake, bool) {
	value, exists := c.entries.Load(triggerID)
	if !exists {
		return 0, false
	}

	return value.(fergun.Snowflake), true
}

// Remove deletes one entry and reports whether a removal took effect.
func (c *Cache) Remove(triggerID fergun.Snowflake) bool {
	if _, loaded := c.entries.LoadAndDelete(triggerID); !loaded {
		return false
	}
	c.live.Add(-1)

	return true
}

// Clear empties the cache and resets the live counter.
func (c *Cache) Clear() {
	c.entries.Clear()
	c.live.Store(0)
}

// Size returns a best-effort snapshot of the live entry count.
func (c *Cache) Size() int {
	size := c.live.Load()
	if size < 0 {
		return 0
	}

	return int(size)
}

// Close stops the background sweep exactly once. A second call reports
// fergun.ErrCacheClosed instead of corrupting lifecycle state.
func (c *Cache) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("close command cache: %w", fergun.ErrCacheClosed)
	}
	close(c.done)
	c.sweeper.Wait()

	return nil
}

// evictOldest removes up to quota entries with the smallest decoded
// timestamps. Entries vanishing concurrently are tolerated; eviction keeps
// trying candidates until the quota is met or candidates run out, then the
// live counter is resynchronized from structural size.
func (c *Cache) evictOldest(quota int) {
	candidates := c.snapshotKeys()
	sort.Slice(candidates, func(i, j int) bool {
		left, right := candidates[i].Timestamp(), candidates[j].Timestamp()
		if left.Equal(right) {
			return candidates[i] < candidates[j]
		}

		return left.Before(right)
	})

	evicted := 0
	for _, key := range candidates {
		if evicted >= quota {
			break
		}
		if _, loaded := c.entries.LoadAndDelete(key); loaded {
			evicted++
		}
	}
	c.resyncLive()

	c.logger.Debug("command cache capacity eviction",
		"evicted", evicted,
		"quota", quota,
		"live", c.Size(),
	)
}

// sweepLoop runs the age sweep until Close.
func (c *Cache) sweepLoop() {
	defer c.sweeper.Done()

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.sweep(c.clock().UTC())
		}
	}
}

// sweep removes every entry whose snowflake age reached maxAge, then
// resynchronizes the live counter. Point operations on unrelated keys are
// never blocked; a key expiring mid-sweep while being re-inserted may be
// kept or dropped, either outcome is acceptable.
func (c *Cache) sweep(now time.Time) {
	expired := make([]fergun.Snowflake, 0)
	c.entries.Range(func(key, _ any) bool {
		triggerID := key.(fergun.Snowflake)
		if now.Sub(triggerID.Timestamp()) >= c.maxAge {
			expired = append(expired, triggerID)
		}

		return true
	})

	removed := 0
	for _, triggerID := range expired {
		if _, loaded := c.entries.LoadAndDelete(triggerID); loaded {
			removed++
		}
	}
	c.resyncLive()

	if removed > 0 {
		c.logger.Debug("command cache sweep",
			"removed", removed,
			"live", c.Size(),
		)
	}
}

// resyncLive heals counter drift by recounting structural size.
func (c *Cache) resyncLive() {
	var size int64
	c.entries.Range(func(_, _ any) bool {
		size++

		return true
	})
	c.live.Store(size)
}

func (c *Cache) snapshotKeys() []fergun.Snowflake {
	keys := make([]fergun.Snowflake, 0)
	c.entries.Range(func(key, _ any) bool {
		keys = append(keys, key.(fergun.Snowflake))

		return true
	})

	return keys
}
