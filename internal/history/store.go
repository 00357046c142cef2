package history

import (
	"context"
	"sync"

	"github.com/rxtech-lab/argo-signal/internal/types"
)

// Store provides the closed historical trades of a strategy.
type Store interface {
	// Trades returns the strategy's trades in exit-time order. A strategy
	// without history yields an empty slice, not an error.
	Trades(ctx context.Context, strategyID string) ([]types.HistoricalTrade, error)
}

// MemoryStore keeps trades in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	trades map[string][]types.HistoricalTrade
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trades: make(map[string][]types.HistoricalTrade),
	}
}

// Add appends trades to the strategy's history.
func (m *MemoryStore) Add(strategyID string, trades ...types.HistoricalTrade) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, trade := range trades {
		trade.StrategyID = strategyID
		m.trades[strategyID] = append(m.trades[strategyID], trade)
	}
}

// Trades implements Store. The returned slice is a copy.
func (m *MemoryStore) Trades(ctx context.Context, strategyID string) ([]types.HistoricalTrade, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return types.SortByExitTime(m.trades[strategyID]), nil
}
