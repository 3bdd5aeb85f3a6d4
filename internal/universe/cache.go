package universe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/demandzone/screener/pkg/logger"
)

// Cache holds the universe snapshot for the life of the process and
// refreshes it through the discoverer when it ages out. Concurrent
// refreshes collapse into a single discovery call; a failed refresh
// degrades to the stale snapshot, then to the static fallback.
type Cache struct {
	discoverer Discoverer
	logger     *logger.Logger

	mu   sync.Mutex
	snap *Snapshot

	group singleflight.Group
	now   func() time.Time
}

// NewCache creates a universe cache around a discoverer
func NewCache(discoverer Discoverer, log *logger.Logger) *Cache {
	return &Cache{
		discoverer: discoverer,
		logger:     log,
		now:        time.Now,
	}
}

// Snapshot returns the current universe, refreshing when the cached
// snapshot is older than maxAge. A zero maxAge forces a refresh
// attempt. Discovery failure degrades instead of failing the caller,
// so there is no error return. The returned snapshot is a copy;
// mutating it does not affect the cache.
func (c *Cache) Snapshot(ctx context.Context, maxAge time.Duration) Snapshot {
	if cur, ok := c.fresh(maxAge); ok {
		return cur
	}

	v, err, _ := c.group.Do("sp500", func() (interface{}, error) {
		// A refresh may have landed while this call waited
		if cur, ok := c.fresh(maxAge); ok {
			return cur, nil
		}
		return c.refresh(ctx)
	})
	if err == nil {
		return v.(Snapshot)
	}

	// Discovery failed: prefer stale data over nothing
	c.mu.Lock()
	stale := c.snap
	c.mu.Unlock()

	if stale != nil {
		c.logger.WithError(err).WithFields(map[string]interface{}{
			"age":     c.now().Sub(stale.FetchedAt).String(),
			"symbols": len(stale.Symbols),
		}).Warn("Universe discovery failed, serving stale snapshot")
		return copySnapshot(*stale)
	}

	c.logger.WithError(err).WithField("symbols", len(fallbackSymbols)).
		Warn("Universe discovery failed with empty cache, using static fallback")

	// Not stored: the next call should retry discovery
	return Snapshot{
		Symbols:   FallbackSymbols(),
		FetchedAt: c.now(),
		Source:    SourceFallback,
	}
}

// fresh returns a copy of the snapshot when it is within maxAge
func (c *Cache) fresh(maxAge time.Duration) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snap == nil || maxAge <= 0 {
		return Snapshot{}, false
	}
	if c.now().Sub(c.snap.FetchedAt) > maxAge {
		return Snapshot{}, false
	}
	return copySnapshot(*c.snap), true
}

// refresh runs one discovery and atomically replaces the snapshot
func (c *Cache) refresh(ctx context.Context) (Snapshot, error) {
	symbols, err := c.discoverer.Discover(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("universe discovery: %w", err)
	}

	deduped := NormalizeList(symbols)
	if len(deduped) == 0 {
		return Snapshot{}, fmt.Errorf("universe discovery: no symbols returned")
	}

	snap := Snapshot{
		Symbols:   deduped,
		FetchedAt: c.now(),
		Source:    SourceDiscovery,
	}

	c.mu.Lock()
	c.snap = &snap
	c.mu.Unlock()

	c.logger.WithField("symbols", len(deduped)).Info("Universe snapshot refreshed")

	return copySnapshot(snap), nil
}

func copySnapshot(s Snapshot) Snapshot {
	symbols := make([]string, len(s.Symbols))
	copy(symbols, s.Symbols)
	s.Symbols = symbols
	return s
}
