package types

import (
	"sort"
	"time"
)

// HistoricalTrade is a closed trade produced by a past run of a strategy.
type HistoricalTrade struct {
	StrategyID string    `json:"strategy_id" yaml:"strategy_id" csv:"strategy_id"`
	Symbol     string    `json:"symbol" yaml:"symbol" csv:"symbol"`
	Direction  Direction `json:"direction" yaml:"direction" csv:"direction"`
	EntryTime  time.Time `json:"entry_time" yaml:"entry_time" csv:"entry_time"`
	ExitTime   time.Time `json:"exit_time" yaml:"exit_time" csv:"exit_time"`
	EntryPrice float64   `json:"entry_price" yaml:"entry_price" csv:"entry_price"`
	ExitPrice  float64   `json:"exit_price" yaml:"exit_price" csv:"exit_price"`
	PnL        float64   `json:"pnl" yaml:"pnl" csv:"pnl"`
	// ReturnPct is the trade return as a fraction of equity at entry (0.01 = 1%).
	// Zero means unknown; it is then derived from PnL and running equity.
	ReturnPct float64 `json:"return_pct" yaml:"return_pct" csv:"return_pct"`
	// Regime is the market regime at entry, used as Bayesian evidence.
	Regime MarketRegime `json:"regime,omitempty" yaml:"regime,omitempty" csv:"regime"`
}

// IsWin reports whether the trade made money.
func (t HistoricalTrade) IsWin() bool {
	return t.PnL > 0
}

// IsLoss reports whether the trade did not make money. Breakeven trades count as losses.
func (t HistoricalTrade) IsLoss() bool {
	return !t.IsWin()
}

// SortByExitTime returns a copy of trades in chronological exit order.
// Trades with equal exit times keep their input order.
func SortByExitTime(trades []HistoricalTrade) []HistoricalTrade {
	sorted := make([]HistoricalTrade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ExitTime.Before(sorted[j].ExitTime)
	})

	return sorted
}

// TradeReturns converts trades to per-trade fractional returns in chronological order.
// When a trade carries no ReturnPct the return is PnL divided by the running equity
// before the trade. A non-positive running equity yields a zero return.
func TradeReturns(trades []HistoricalTrade, initialCapital float64) []float64 {
	sorted := SortByExitTime(trades)
	returns := make([]float64, 0, len(sorted))
	equity := initialCapital

	for _, trade := range sorted {
		r := trade.ReturnPct
		if r == 0 && trade.PnL != 0 && equity > 0 {
			r = trade.PnL / equity
		}

		returns = append(returns, r)
		equity += trade.PnL
	}

	return returns
}
