package backtest

import (
	"math"
	"time"

	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// DefaultInitialCapital is used when a non-positive initial capital is supplied.
	DefaultInitialCapital = 10000.0
	// DefaultMinTradesForSignificance is the sample size below which results are not significant.
	DefaultMinTradesForSignificance = 100
	// DefaultTradesPerYear annualizes the per-trade Sharpe ratio.
	DefaultTradesPerYear = 252.0
)

// Config controls the metrics engine.
type Config struct {
	MinTradesForSignificance int     `yaml:"min_trades_for_significance" json:"min_trades_for_significance" validate:"gte=0"`
	TradesPerYear            float64 `yaml:"trades_per_year" json:"trades_per_year" validate:"gte=0"`
	InitialCapital           float64 `yaml:"initial_capital" json:"initial_capital" validate:"gte=0"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		MinTradesForSignificance: DefaultMinTradesForSignificance,
		TradesPerYear:            DefaultTradesPerYear,
		InitialCapital:           DefaultInitialCapital,
	}
}

// Engine computes performance statistics over historical trades. It is stateless
// and safe for concurrent use.
type Engine struct {
	config Config
	logger *logger.Logger
	now    func() time.Time
}

// NewEngine creates a metrics engine. Zero config values fall back to the defaults.
func NewEngine(config Config, log *logger.Logger) *Engine {
	if config.MinTradesForSignificance <= 0 {
		config.MinTradesForSignificance = DefaultMinTradesForSignificance
	}

	if config.TradesPerYear <= 0 {
		config.TradesPerYear = DefaultTradesPerYear
	}

	if config.InitialCapital <= 0 {
		config.InitialCapital = DefaultInitialCapital
	}

	return &Engine{
		config: config,
		logger: log.Named("backtest"),
		now:    time.Now,
	}
}

// InitialCapital returns the configured starting equity.
func (e *Engine) InitialCapital() float64 {
	return e.config.InitialCapital
}

// Run computes the backtest result for trades. Trades are processed in exit-time order.
func (e *Engine) Run(strategyName string, trades []types.HistoricalTrade, initialCapital float64) types.BacktestResult {
	result := types.BacktestResult{
		StrategyName:             strategyName,
		MinTradesForSignificance: e.config.MinTradesForSignificance,
		ComputedAt:               e.now(),
	}

	if len(trades) == 0 {
		result.RiskOfRuin = 100
		return result
	}

	if initialCapital <= 0 || math.IsNaN(initialCapital) || math.IsInf(initialCapital, 0) {
		initialCapital = DefaultInitialCapital
	}

	sorted := types.SortByExitTime(trades)

	grossProfit := decimal.Zero
	grossLoss := decimal.Zero

	for _, trade := range sorted {
		pnl := decimal.NewFromFloat(finiteOrZero(trade.PnL))

		switch {
		case pnl.IsPositive():
			result.WinningTrades++
			grossProfit = grossProfit.Add(pnl)
		case pnl.IsNegative():
			result.LosingTrades++
			grossLoss = grossLoss.Add(pnl.Abs())
		default:
			// breakeven counts as a loss so that winning + losing == total
			result.LosingTrades++
			result.BreakevenTrades++
		}
	}

	result.TotalTrades = len(sorted)
	result.WinRate = float64(result.WinningTrades) / float64(result.TotalTrades) * 100
	result.GrossProfit = grossProfit.InexactFloat64()
	result.GrossLoss = grossLoss.InexactFloat64()
	result.TotalPnL = grossProfit.Sub(grossLoss).InexactFloat64()
	result.ProfitFactor = ProfitFactor(result.GrossProfit, result.GrossLoss)

	if result.WinningTrades > 0 {
		result.AverageWin = grossProfit.Div(decimal.NewFromInt(int64(result.WinningTrades))).InexactFloat64()
	}

	if result.LosingTrades > 0 {
		result.AverageLoss = grossLoss.Div(decimal.NewFromInt(int64(result.LosingTrades))).InexactFloat64()
	}

	winProb := result.WinRate / 100
	result.Expectancy = winProb*result.AverageWin - (1-winProb)*result.AverageLoss

	result.SharpeRatio = SharpeRatio(types.TradeReturns(sorted, initialCapital), e.config.TradesPerYear)
	result.MaxDrawdown = MaxDrawdown(sorted, initialCapital)
	result.TotalReturn = result.TotalPnL / initialCapital * 100
	result.RiskOfRuin = RiskOfRuin(result.WinRate, result.AverageWin, result.AverageLoss, result.TotalTrades)
	result.Significant = result.TotalTrades >= e.config.MinTradesForSignificance

	e.logger.Debug("backtest computed",
		zap.String("strategy", strategyName),
		zap.Int("trades", result.TotalTrades),
		zap.Float64("win_rate", result.WinRate),
		zap.Float64("sharpe", result.SharpeRatio),
		zap.Float64("max_drawdown", result.MaxDrawdown),
	)

	return result
}

// ProfitFactor is gross profit over gross loss. +Inf when only profits exist, 0 when neither does.
func ProfitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossProfit > 0 {
			return math.Inf(1)
		}

		return 0
	}

	return grossProfit / grossLoss
}

// SharpeRatio is mean/sample-stdev of returns scaled by sqrt(periodsPerYear).
// Fewer than two returns or zero variance yields 0.
func SharpeRatio(returns []float64, periodsPerYear float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}

	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}

	variance /= float64(len(returns) - 1)

	std := math.Sqrt(variance)
	if std == 0 || math.IsNaN(std) {
		return 0
	}

	sharpe := mean / std * math.Sqrt(periodsPerYear)
	if math.IsNaN(sharpe) || math.IsInf(sharpe, 0) {
		return 0
	}

	return sharpe
}

// MaxDrawdown walks the equity curve of trades (already in chronological order)
// and returns the largest decline from a running peak as a percentage of that peak.
func MaxDrawdown(trades []types.HistoricalTrade, initialCapital float64) float64 {
	equity := initialCapital
	peak := initialCapital
	maxDD := 0.0

	for _, trade := range trades {
		equity += finiteOrZero(trade.PnL)
		if equity > peak {
			peak = equity
		}

		if peak <= 0 {
			continue
		}

		if dd := (peak - equity) / peak * 100; dd > maxDD {
			maxDD = dd
		}
	}

	return maxDD
}

// RiskOfRuin is ((1-k)/(1+k))^n in percent, where k is the Kelly edge
// winRate*avgWin/avgLoss - lossRate. No edge is certain ruin.
func RiskOfRuin(winRatePct, avgWin, avgLoss float64, trades int) float64 {
	if winRatePct <= 0 {
		return 100
	}

	if avgLoss <= 0 {
		return 0
	}

	p := winRatePct / 100
	kelly := p*avgWin/avgLoss - (1 - p)

	if kelly <= 0 {
		return 100
	}

	if kelly >= 1 {
		return 0
	}

	ruin := math.Pow((1-kelly)/(1+kelly), float64(trades)) * 100
	if math.IsNaN(ruin) {
		return 100
	}

	return ruin
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	return v
}
