package types

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// BacktestResult holds performance statistics over a strategy's historical trades.
type BacktestResult struct {
	StrategyName    string `yaml:"strategy_name" json:"strategy_name"`
	TotalTrades     int    `yaml:"total_trades" json:"total_trades"`
	WinningTrades   int    `yaml:"winning_trades" json:"winning_trades"`
	LosingTrades    int    `yaml:"losing_trades" json:"losing_trades"`
	BreakevenTrades int    `yaml:"breakeven_trades" json:"breakeven_trades"`
	// WinRate is a percentage between 0 and 100.
	WinRate float64 `yaml:"win_rate" json:"win_rate"`
	// ProfitFactor is gross profit / gross loss. +Inf when there are no losses but some profit.
	ProfitFactor float64 `yaml:"profit_factor" json:"profit_factor"`
	SharpeRatio  float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	// MaxDrawdown is the largest peak-to-trough equity decline as a percentage of the peak.
	MaxDrawdown float64 `yaml:"max_drawdown" json:"max_drawdown"`
	// TotalReturn is the net return over initial capital, in percent.
	TotalReturn float64 `yaml:"total_return" json:"total_return"`
	GrossProfit float64 `yaml:"gross_profit" json:"gross_profit"`
	GrossLoss   float64 `yaml:"gross_loss" json:"gross_loss"`
	TotalPnL    float64 `yaml:"total_pnl" json:"total_pnl"`
	AverageWin  float64 `yaml:"average_win" json:"average_win"`
	AverageLoss float64 `yaml:"average_loss" json:"average_loss"`
	Expectancy  float64 `yaml:"expectancy" json:"expectancy"`
	// RiskOfRuin is a Kelly-based estimate, in percent.
	RiskOfRuin               float64   `yaml:"risk_of_ruin" json:"risk_of_ruin"`
	Significant              bool      `yaml:"significant" json:"significant"`
	MinTradesForSignificance int       `yaml:"min_trades_for_significance" json:"min_trades_for_significance"`
	ComputedAt               time.Time `yaml:"computed_at" json:"computed_at"`
}

// MarshalJSON encodes an infinite profit factor as null.
func (r BacktestResult) MarshalJSON() ([]byte, error) {
	type plain BacktestResult

	var profitFactor *float64
	if !math.IsInf(r.ProfitFactor, 0) && !math.IsNaN(r.ProfitFactor) {
		profitFactor = &r.ProfitFactor
	}

	return json.Marshal(struct {
		plain
		ProfitFactor *float64 `json:"profit_factor"`
	}{plain: plain(r), ProfitFactor: profitFactor})
}

// UnmarshalJSON restores the infinite profit factor sentinel from null.
func (r *BacktestResult) UnmarshalJSON(data []byte) error {
	type plain BacktestResult

	aux := struct {
		*plain
		ProfitFactor *float64 `json:"profit_factor"`
	}{plain: (*plain)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	switch {
	case aux.ProfitFactor != nil:
		r.ProfitFactor = *aux.ProfitFactor
	case r.GrossProfit > 0:
		r.ProfitFactor = math.Inf(1)
	default:
		r.ProfitFactor = 0
	}

	return nil
}

// WriteBacktestResult writes the result as YAML into <folder>/<fileName>.
func WriteBacktestResult(folder, fileName string, result BacktestResult) error {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return fmt.Errorf("failed to create result folder: %w", err)
	}

	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal backtest result: %w", err)
	}

	path := filepath.Join(folder, fileName)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write backtest result: %w", err)
	}

	return nil
}
