package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-signal/internal/types"
)

// DataGenerator generates realistic candles and historical trades for tests.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how candles are generated.
type GeneratorConfig struct {
	// Symbol is the trading symbol (e.g., "EURUSD", "BTCUSDT")
	Symbol string
	// StartTime is the beginning of the data series
	StartTime time.Time
	// Interval is the duration between each bar
	Interval time.Duration
	// Count is the number of candles to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement (0.01 = 1% typical per-bar volatility)
	Volatility float64
	// Trend is the total drift over the series (-0.1 to 0.1 for bearish to bullish)
	Trend float64
	// VolumeBase is the average volume per bar
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0)
	VolumeVariance float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:         "EURUSD",
		StartTime:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:       time.Hour,
		Count:          500,
		InitialPrice:   1.1,
		Volatility:     0.002, // 0.2% per bar
		Trend:          0.0,   // neutral
		VolumeBase:     10000,
		VolumeVariance: 0.3,
	}
}

// GenerateCandles creates candles following a geometric Brownian motion model.
func (g *DataGenerator) GenerateCandles(config GeneratorConfig) []types.Candle {
	data := make([]types.Candle, config.Count)
	currentPrice := config.InitialPrice
	currentTime := config.StartTime

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Box-Muller transform for a normal draw
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(1-u1)) * math.Cos(2*math.Pi*u2)

		priceChange := config.Volatility * z
		drift := config.Trend / float64(config.Count)

		closePrice := open * (1 + priceChange + drift)
		if closePrice <= 0 {
			closePrice = open * 0.99
		}

		highExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)

		high := math.Max(open, closePrice) + highExtension

		low := math.Min(open, closePrice) - lowExtension
		if low <= 0 {
			low = math.Min(open, closePrice) * 0.99
		}

		volume := config.VolumeBase * (1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance)
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		data[i] = types.Candle{
			Time:   currentTime,
			Open:   roundToDecimals(open, 5),
			High:   roundToDecimals(high, 5),
			Low:    roundToDecimals(low, 5),
			Close:  roundToDecimals(closePrice, 5),
			Volume: roundToDecimals(volume, 2),
		}

		currentPrice = closePrice
		currentTime = currentTime.Add(config.Interval)
	}

	return data
}

// GenerateSnapshots turns generated candles into closed snapshots, each carrying
// up to historySize previous candles.
func (g *DataGenerator) GenerateSnapshots(config GeneratorConfig, historySize int) []types.MarketSnapshot {
	candles := g.GenerateCandles(config)
	snapshots := make([]types.MarketSnapshot, len(candles))

	for i, candle := range candles {
		start := max(0, i-historySize)
		history := make([]types.Candle, i-start)
		copy(history, candles[start:i])

		snapshots[i] = types.MarketSnapshot{
			Symbol:     config.Symbol,
			Time:       candle.Time,
			Candle:     candle,
			IsClosed:   true,
			Indicators: map[string]float64{},
			History:    history,
			Regime:     "",
		}
	}

	return snapshots
}

// TradeConfig configures how historical trades are generated.
type TradeConfig struct {
	StrategyID string
	Symbol     string
	// Count is the total number of trades
	Count int
	// Wins is the exact number of winning trades; the rest are losses
	Wins int
	// WinReturn is the fractional return of a winning trade (0.02 = 2%)
	WinReturn float64
	// LossReturn is the fractional loss of a losing trade as a positive number
	LossReturn     float64
	InitialCapital float64
	StartTime      time.Time
	Interval       time.Duration
	Regime         types.MarketRegime
}

// DefaultTradeConfig returns 150 trades with a 62% win rate, +2% wins and -1% losses.
func DefaultTradeConfig() TradeConfig {
	return TradeConfig{
		StrategyID:     "test-strategy",
		Symbol:         "EURUSD",
		Count:          150,
		Wins:           93,
		WinReturn:      0.02,
		LossReturn:     0.01,
		InitialCapital: 10000,
		StartTime:      time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:       24 * time.Hour,
		Regime:         types.MarketRegimeTrending,
	}
}

// GenerateTrades creates closed trades with exactly config.Wins winners in a shuffled order.
// PnL compounds on running equity starting from InitialCapital.
func (g *DataGenerator) GenerateTrades(config TradeConfig) []types.HistoricalTrade {
	outcomes := make([]bool, config.Count)
	for i := 0; i < config.Wins && i < config.Count; i++ {
		outcomes[i] = true
	}

	g.rng.Shuffle(len(outcomes), func(i, j int) {
		outcomes[i], outcomes[j] = outcomes[j], outcomes[i]
	})

	trades := make([]types.HistoricalTrade, config.Count)
	equity := config.InitialCapital
	entryTime := config.StartTime

	for i, win := range outcomes {
		ret := -config.LossReturn
		if win {
			ret = config.WinReturn
		}

		entryPrice := roundToDecimals(1.0+g.rng.Float64()*0.2, 5)
		pnl := roundToDecimals(equity*ret, 2)

		trades[i] = types.HistoricalTrade{
			StrategyID: config.StrategyID,
			Symbol:     config.Symbol,
			Direction:  types.DirectionLong,
			EntryTime:  entryTime,
			ExitTime:   entryTime.Add(config.Interval / 2),
			EntryPrice: entryPrice,
			ExitPrice:  roundToDecimals(entryPrice*(1+ret), 5),
			PnL:        pnl,
			ReturnPct:  ret,
			Regime:     config.Regime,
		}

		equity += pnl
		entryTime = entryTime.Add(config.Interval)
	}

	return trades
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
