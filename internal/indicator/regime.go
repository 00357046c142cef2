package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-signal/internal/types"
)

const (
	regimeMinCandles  = 20
	regimeFastPeriod  = 20
	regimeSlowPeriod  = 50
	trendingThreshold = 0.5
)

// RegimeReport is the outcome of regime detection.
type RegimeReport struct {
	Regime types.MarketRegime `json:"regime"`
	// TrendStrength is |SMA20 - SMA50| / SMA50 in percent.
	TrendStrength float64 `json:"trend_strength"`
	ATR           float64 `json:"atr"`
}

// DetectRegime classifies candles (oldest first) as trending or ranging.
// Fewer than 20 candles is unknown. When fewer than 50 candles are available
// the slow average uses every candle.
func DetectRegime(candles []types.Candle) RegimeReport {
	if len(candles) < regimeMinCandles {
		return RegimeReport{Regime: types.MarketRegimeUnknown}
	}

	prices := closes(candles)

	fast, _ := CalculateSMA(prices, regimeFastPeriod)
	slow, _ := CalculateSMA(prices, min(regimeSlowPeriod, len(prices)))

	report := RegimeReport{Regime: types.MarketRegimeRanging}

	if atr, err := CalculateATR(candles, min(14, len(candles)-1)); err == nil {
		report.ATR = atr
	}

	if slow == 0 {
		return report
	}

	report.TrendStrength = math.Abs(fast-slow) / slow * 100
	if report.TrendStrength > trendingThreshold {
		report.Regime = types.MarketRegimeTrending
	}

	return report
}
