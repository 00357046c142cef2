package types

import "time"

// Candle is a single OHLCV bar.
type Candle struct {
	Time   time.Time `json:"time" yaml:"time"`
	Open   float64   `json:"open" yaml:"open"`
	High   float64   `json:"high" yaml:"high"`
	Low    float64   `json:"low" yaml:"low"`
	Close  float64   `json:"close" yaml:"close"`
	Volume float64   `json:"volume" yaml:"volume"`
}

// MarketRegime classifies the current market state.
type MarketRegime string

const (
	MarketRegimeTrending MarketRegime = "trending"
	MarketRegimeRanging  MarketRegime = "ranging"
	MarketRegimeUnknown  MarketRegime = "unknown"
)

// MarketSnapshot is the market state for one symbol at one tick.
// It is produced by the feed, consumed once and never retained by the pipeline.
type MarketSnapshot struct {
	// Symbol of the trading pair (e.g. EURUSD, BTCUSDT)
	Symbol string `json:"symbol"`
	// Time is the timestamp of the tick
	Time time.Time `json:"time"`
	// Candle is the current OHLCV candle
	Candle Candle `json:"candle"`
	// IsClosed is true when the candle is final. Only closed candles trigger evaluations.
	IsClosed bool `json:"is_closed"`
	// Indicators holds derived indicator values keyed by name (e.g. "rsi", "ema_200", "atr")
	Indicators map[string]float64 `json:"indicators"`
	// History is the recent candle history, oldest first, excluding the current candle.
	History []Candle `json:"history,omitempty"`
	// Regime is the detected market regime at this tick.
	Regime MarketRegime `json:"regime"`
}

// Price returns the current close price.
func (s MarketSnapshot) Price() float64 {
	return s.Candle.Close
}

// Indicator returns the named indicator value and whether it is present.
func (s MarketSnapshot) Indicator(name string) (float64, bool) {
	if s.Indicators == nil {
		return 0, false
	}

	v, ok := s.Indicators[name]

	return v, ok
}
