package history

import (
	"context"
	"encoding/json"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type cacheEntry struct {
	StoredAt time.Time               `json:"stored_at"`
	Trades   []types.HistoricalTrade `json:"trades"`
}

// CachedStore caches another Store's trades for a fixed TTL. Entries are stored
// serialized, so every caller gets its own copy.
type CachedStore struct {
	inner  Store
	cache  *bigcache.BigCache
	group  singleflight.Group
	ttl    time.Duration
	now    func() time.Time
	logger *logger.Logger
}

// NewCachedStore wraps inner with a TTL cache.
func NewCachedStore(ctx context.Context, inner Store, ttl time.Duration, log *logger.Logger) (*CachedStore, error) {
	if ttl <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "history cache ttl must be positive, got %s", ttl)
	}

	config := bigcache.DefaultConfig(ttl)
	config.CleanWindow = ttl
	config.Verbose = false

	cache, err := bigcache.New(ctx, config)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCacheFailed, "failed to create history cache", err)
	}

	return &CachedStore{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		now:    time.Now,
		logger: log.Named("history_cache"),
	}, nil
}

// Trades implements Store. Concurrent misses for the same strategy share one load.
// The shared load ignores the cancellation of whichever caller started it; each
// caller stops waiting when its own ctx is done.
func (c *CachedStore) Trades(ctx context.Context, strategyID string) ([]types.HistoricalTrade, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if trades, ok := c.lookup(strategyID); ok {
		return trades, nil
	}

	loaded := c.group.DoChan(strategyID, func() (any, error) {
		return c.load(context.WithoutCancel(ctx), strategyID)
	})

	var result singleflight.Result

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result = <-loaded:
	}

	if result.Err != nil {
		return nil, result.Err
	}

	var entry cacheEntry
	if err := json.Unmarshal(result.Val.([]byte), &entry); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCacheFailed, "failed to decode cached trades", err)
	}

	return entry.Trades, nil
}

func (c *CachedStore) load(ctx context.Context, strategyID string) ([]byte, error) {
	trades, err := c.inner.Trades(ctx, strategyID)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(cacheEntry{StoredAt: c.now(), Trades: trades})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCacheFailed, "failed to encode cached trades", err)
	}

	if err := c.cache.Set(strategyID, data); err != nil {
		c.logger.Warn("failed to cache historical trades", zap.String("strategy", strategyID), zap.Error(err))
	}

	return data, nil
}

func (c *CachedStore) lookup(strategyID string) ([]types.HistoricalTrade, bool) {
	data, err := c.cache.Get(strategyID)
	if err != nil {
		if !errors.Is(err, bigcache.ErrEntryNotFound) {
			c.logger.Warn("history cache read failed", zap.String("strategy", strategyID), zap.Error(err))
		}

		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}

	if c.now().Sub(entry.StoredAt) >= c.ttl {
		return nil, false
	}

	return entry.Trades, true
}

// Invalidate drops the cached trades of a strategy.
func (c *CachedStore) Invalidate(strategyID string) {
	if err := c.cache.Delete(strategyID); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		c.logger.Warn("failed to invalidate history cache", zap.String("strategy", strategyID), zap.Error(err))
	}
}

// Close stops the cache's cleanup goroutine.
func (c *CachedStore) Close() error {
	return c.cache.Close()
}
