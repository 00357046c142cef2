package scoring

import (
	"fmt"

	"github.com/rxtech-lab/argo-signal/internal/types"
)

// GateConfig holds the quality-gate thresholds. MaxDrawdown and MinProfitFactor are
// disabled when zero.
type GateConfig struct {
	MinScore       float64 `yaml:"min_score" json:"min_score" validate:"gte=0,lte=10"`
	MinProbability float64 `yaml:"min_probability" json:"min_probability" validate:"gte=0,lte=1"`
	// MinWinRate is a percentage between 0 and 100.
	MinWinRate float64 `yaml:"min_win_rate" json:"min_win_rate" validate:"gte=0,lte=100"`
	MinSharpe  float64 `yaml:"min_sharpe" json:"min_sharpe"`
	MinTrades  int     `yaml:"min_trades" json:"min_trades" validate:"gte=0"`
	// MaxDrawdown is a percentage of peak equity.
	MaxDrawdown     float64 `yaml:"max_drawdown" json:"max_drawdown" validate:"gte=0,lte=100"`
	MinProfitFactor float64 `yaml:"min_profit_factor" json:"min_profit_factor" validate:"gte=0"`
}

// DefaultGateConfig returns score ≥ 7, probability ≥ 0.60, win rate ≥ 55%, Sharpe ≥ 1.5 and ≥ 100 trades.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MinScore:        7.0,
		MinProbability:  0.60,
		MinWinRate:      55,
		MinSharpe:       1.5,
		MinTrades:       100,
		MaxDrawdown:     0,
		MinProfitFactor: 0,
	}
}

// GateResult lists every failed criterion. Passed is true only when none failed.
type GateResult struct {
	Passed   bool     `json:"passed"`
	Failures []string `json:"failures,omitempty"`
}

// Gate is the conjunctive quality gate a candidate must clear before it becomes a Signal.
type Gate struct {
	config GateConfig
}

// NewGate creates a gate with the given thresholds.
func NewGate(config GateConfig) *Gate {
	return &Gate{config: config}
}

// Check evaluates every criterion and reports all failures.
func (g *Gate) Check(score types.SignalScore, probability float64, backtest types.BacktestResult) GateResult {
	failures := make([]string, 0)

	if !(score.Composite >= g.config.MinScore) {
		failures = append(failures, fmt.Sprintf("score %.2f below %.2f", score.Composite, g.config.MinScore))
	}

	if !(probability >= g.config.MinProbability) {
		failures = append(failures, fmt.Sprintf("probability %.3f below %.3f", probability, g.config.MinProbability))
	}

	if !(backtest.WinRate >= g.config.MinWinRate) {
		failures = append(failures, fmt.Sprintf("win rate %.2f%% below %.2f%%", backtest.WinRate, g.config.MinWinRate))
	}

	if !(backtest.SharpeRatio >= g.config.MinSharpe) {
		failures = append(failures, fmt.Sprintf("sharpe ratio %.2f below %.2f", backtest.SharpeRatio, g.config.MinSharpe))
	}

	if backtest.TotalTrades < g.config.MinTrades {
		failures = append(failures, fmt.Sprintf("trade count %d below %d", backtest.TotalTrades, g.config.MinTrades))
	}

	if g.config.MaxDrawdown > 0 && backtest.MaxDrawdown > g.config.MaxDrawdown {
		failures = append(failures, fmt.Sprintf("max drawdown %.2f%% above %.2f%%", backtest.MaxDrawdown, g.config.MaxDrawdown))
	}

	if g.config.MinProfitFactor > 0 && !(backtest.ProfitFactor >= g.config.MinProfitFactor) {
		failures = append(failures, fmt.Sprintf("profit factor %.2f below %.2f", backtest.ProfitFactor, g.config.MinProfitFactor))
	}

	return GateResult{
		Passed:   len(failures) == 0,
		Failures: failures,
	}
}
