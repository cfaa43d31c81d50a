// Package position caches broker reported positions and runs pre-trade
// exposure checks against them.
package position

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/helix-quant/cta-trading/internal/logger"
	"github.com/helix-quant/cta-trading/internal/types"
	"github.com/helix-quant/cta-trading/pkg/errors"
)

// DefaultTTL is how long a cached snapshot is trusted before a read triggers
// a refresh.
const DefaultTTL = 5 * time.Second

// boundaryMargin is the distance from the position limit below which a
// projection is considered boundary and must be checked against a fresh
// snapshot.
const boundaryMargin = 1.0

// Querier is the position query surface of the execution service. A nil
// snapshot with a nil error means the service knows no position for the key.
type Querier interface {
	GetPositions(strategyName, symbol string) (*types.PositionSnapshot, error)
}

type cacheKey struct {
	Strategy string
	Symbol   string
}

// Cache is a read-through TTL cache of position snapshots keyed by
// (strategy, symbol). Each entry is an atomically swapped immutable snapshot:
// the dispatch thread reads without locking while refresh tasks overwrite,
// last writer wins. Staleness beyond one refresh cycle is tolerated.
type Cache struct {
	querier Querier
	ttl     time.Duration
	log     *logger.Logger

	mu      sync.Mutex
	entries map[cacheKey]*atomic.Pointer[types.PositionSnapshot]
}

// NewCache creates a cache backed by the given querier. A non-positive ttl
// falls back to DefaultTTL.
func NewCache(querier Querier, ttl time.Duration, log *logger.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Cache{
		querier: querier,
		ttl:     ttl,
		log:     log,
		entries: make(map[cacheKey]*atomic.Pointer[types.PositionSnapshot]),
	}
}

// Get returns the freshest available snapshot for the key, querying the
// execution service when the cached value is missing or older than the TTL.
// On a failed query the last known snapshot (possibly nil) is returned along
// with the error, so callers can decide whether staleness is acceptable.
func (c *Cache) Get(strategyName, symbol string) (*types.PositionSnapshot, error) {
	entry := c.entry(strategyName, symbol)

	cached := entry.Load()
	if cached != nil && time.Since(cached.FetchedAt) < c.ttl {
		return cached, nil
	}

	fresh, err := c.refresh(strategyName, symbol, entry)
	if err != nil {
		return cached, err
	}

	return fresh, nil
}

// Refresh synchronously queries the execution service and swaps the cache
// entry. Used when precision matters, e.g. near the position limit.
func (c *Cache) Refresh(strategyName, symbol string) (*types.PositionSnapshot, error) {
	return c.refresh(strategyName, symbol, c.entry(strategyName, symbol))
}

// RefreshAsync refreshes the entry on a short-lived goroutine without
// blocking the caller. Failures are logged and otherwise ignored; the next
// synchronous read will retry.
func (c *Cache) RefreshAsync(strategyName, symbol string) {
	go func() {
		if _, err := c.Refresh(strategyName, symbol); err != nil {
			c.log.Warn("Async position refresh failed",
				zap.String("strategy", strategyName),
				zap.String("symbol", symbol),
				zap.Error(err),
			)
		}
	}()
}

// PreTradeCheck projects the net position after the intended trade and
// rejects the intent if the projection exceeds maxPosition. Projections
// within one unit of the limit are re-checked against a fresh snapshot; if
// that query fails the check fails safe and rejects.
func (c *Cache) PreTradeCheck(intent types.OrderIntent, maxPosition float64) error {
	if maxPosition <= 0 {
		return nil
	}

	delta := signedVolume(intent)
	if delta == 0 {
		return nil
	}

	entry := c.entry(intent.StrategyName, intent.Symbol)
	cached := entry.Load()

	net := 0.0
	if cached != nil {
		net = cached.Net
	}

	projected := net + delta

	switch {
	case math.Abs(projected) >= maxPosition-boundaryMargin:
		// Near the limit the projection must be computed from a fresh value.
		fresh, err := c.refresh(intent.StrategyName, intent.Symbol, entry)
		if err != nil {
			return errors.Wrap(errors.ErrCodePositionQueryFailed,
				"position query failed near position limit, rejecting trade", err)
		}

		projected = fresh.Net + delta
	case cached == nil || time.Since(cached.FetchedAt) >= c.ttl:
		fresh, err := c.refresh(intent.StrategyName, intent.Symbol, entry)
		if err != nil {
			// Stale or absent value is acceptable away from the limit.
			c.log.Debug("Using stale position for pre-trade check",
				zap.String("strategy", intent.StrategyName),
				zap.String("symbol", intent.Symbol),
				zap.Error(err),
			)
		} else {
			projected = fresh.Net + delta
		}
	}

	if math.Abs(projected) > maxPosition {
		return errors.Newf(errors.ErrCodePositionLimitHit,
			"projected position %.1f exceeds limit %.1f for %s", projected, maxPosition, intent.Symbol)
	}

	return nil
}

// Invalidate drops the cached entry for the key, forcing the next read to
// query.
func (c *Cache) Invalidate(strategyName, symbol string) {
	c.entry(strategyName, symbol).Store(nil)
}

func (c *Cache) entry(strategyName, symbol string) *atomic.Pointer[types.PositionSnapshot] {
	key := cacheKey{Strategy: strategyName, Symbol: symbol}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		entry = &atomic.Pointer[types.PositionSnapshot]{}
		c.entries[key] = entry
	}

	return entry
}

func (c *Cache) refresh(strategyName, symbol string, entry *atomic.Pointer[types.PositionSnapshot]) (*types.PositionSnapshot, error) {
	snapshot, err := c.querier.GetPositions(strategyName, symbol)
	if err != nil {
		return nil, err
	}

	if snapshot == nil {
		// No broker side position: cache an explicit flat snapshot so the TTL
		// applies to the absence as well.
		snapshot = &types.PositionSnapshot{
			Symbol:    symbol,
			FetchedAt: time.Now(),
		}
	}

	entry.Store(snapshot)

	return snapshot, nil
}

func signedVolume(intent types.OrderIntent) float64 {
	switch {
	case intent.Direction == types.DirectionLong && intent.Action == types.ActionOpen:
		return intent.Volume
	case intent.Direction == types.DirectionShort && intent.Action == types.ActionClose:
		return intent.Volume
	case intent.Direction == types.DirectionShort && intent.Action == types.ActionOpen:
		return -intent.Volume
	case intent.Direction == types.DirectionLong && intent.Action == types.ActionClose:
		return -intent.Volume
	default:
		return 0
	}
}
