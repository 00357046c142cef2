package indicator

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/mocks"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type IndicatorTestSuite struct {
	suite.Suite
}

func TestIndicatorSuite(t *testing.T) {
	suite.Run(t, new(IndicatorTestSuite))
}

func candlesFromCloses(prices ...float64) []types.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]types.Candle, len(prices))

	for i, p := range prices {
		candles[i] = types.Candle{
			Time:  base.Add(time.Duration(i) * time.Hour),
			Open:  p,
			High:  p + 1,
			Low:   p - 1,
			Close: p,
		}
	}

	return candles
}

func (suite *IndicatorTestSuite) TestSMA() {
	value, err := CalculateSMA([]float64{1, 2, 3, 4, 5}, 3)
	suite.NoError(err)
	suite.InDelta(4.0, value, 1e-9)

	_, err = CalculateSMA([]float64{1, 2}, 3)
	suite.True(errors.IsInsufficientDataError(err))

	_, err = CalculateSMA([]float64{1, 2}, 0)
	suite.Error(err)
	suite.False(errors.IsInsufficientDataError(err))
}

func (suite *IndicatorTestSuite) TestEMA() {
	// seed = SMA(1,2,3) = 2, alpha = 0.5, then 4 -> 3, 5 -> 4
	value, err := CalculateEMA([]float64{1, 2, 3, 4, 5}, 3)
	suite.NoError(err)
	suite.InDelta(4.0, value, 1e-9)

	value, err = CalculateEMA([]float64{2, 2, 2, 2}, 2)
	suite.NoError(err)
	suite.InDelta(2.0, value, 1e-9)

	_, err = CalculateEMA([]float64{1}, 3)
	suite.True(errors.IsInsufficientDataError(err))
}

func (suite *IndicatorTestSuite) TestRSI() {
	rising := make([]float64, 20)
	for i := range rising {
		rising[i] = float64(i + 1)
	}

	value, err := CalculateRSI(rising, 14)
	suite.NoError(err)
	suite.Equal(100.0, value)

	falling := make([]float64, 20)
	for i := range falling {
		falling[i] = float64(100 - i)
	}

	value, err = CalculateRSI(falling, 14)
	suite.NoError(err)
	suite.InDelta(0.0, value, 1e-9)

	flat := []float64{5, 5, 5, 5}
	value, err = CalculateRSI(flat, 3)
	suite.NoError(err)
	suite.Equal(50.0, value)

	// one gain of 2 and one loss of 1 over period 2: RS = 2 -> RSI = 66.67
	value, err = CalculateRSI([]float64{10, 12, 11}, 2)
	suite.NoError(err)
	suite.InDelta(66.6667, value, 1e-3)

	_, err = CalculateRSI([]float64{1, 2, 3}, 14)
	suite.True(errors.IsInsufficientDataError(err))
}

func (suite *IndicatorTestSuite) TestATR() {
	candles := candlesFromCloses(10, 11, 12, 13)
	// each true range: high-low = 2, |high-prevClose| = 2, |low-prevClose| = 0
	value, err := CalculateATR(candles, 3)
	suite.NoError(err)
	suite.InDelta(2.0, value, 1e-9)

	_, err = CalculateATR(candles, 5)
	suite.True(errors.IsInsufficientDataError(err))
}

func (suite *IndicatorTestSuite) TestBollingerBands() {
	upper, middle, lower, err := CalculateBollingerBands([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8, 2)
	suite.NoError(err)
	suite.InDelta(5.0, middle, 1e-9)
	suite.InDelta(9.0, upper, 1e-9)
	suite.InDelta(1.0, lower, 1e-9)
}

func (suite *IndicatorTestSuite) TestMACD() {
	macd := NewMACD()
	suite.Error(macd.Config(26, 12))
	suite.NoError(macd.Config(2, 4))

	values, err := macd.Values(candlesFromCloses(5, 5, 5, 5, 5))
	suite.NoError(err)
	suite.InDelta(0.0, values["macd"], 1e-9)
}

func (suite *IndicatorTestSuite) TestConfigValidation() {
	rsi := NewRSI()
	suite.NoError(rsi.Config(7))
	suite.NoError(rsi.Config(7.0))
	suite.Error(rsi.Config(7.5))
	suite.Error(rsi.Config("7"))
	suite.Error(rsi.Config())

	ema := NewEMA(20)
	suite.Equal("ema_20", ema.Name())
	suite.NoError(ema.Config(50))
	suite.Equal("ema_50", ema.Name())
	suite.Equal("sma_10", NewSMA(10).Name())

	bb := NewBollingerBands()
	suite.NoError(bb.Config(10, 1.5))
	suite.Error(bb.Config(10, -1.0))
}

func (suite *IndicatorTestSuite) TestDetectRegime() {
	report := DetectRegime(candlesFromCloses(1, 2, 3))
	suite.Equal(types.MarketRegimeUnknown, report.Regime)

	flat := make([]float64, 60)
	for i := range flat {
		flat[i] = 100
	}

	report = DetectRegime(candlesFromCloses(flat...))
	suite.Equal(types.MarketRegimeRanging, report.Regime)
	suite.InDelta(0.0, report.TrendStrength, 1e-9)
	suite.InDelta(2.0, report.ATR, 1e-9)

	trend := make([]float64, 60)
	for i := range trend {
		trend[i] = 100 + float64(i)
	}

	report = DetectRegime(candlesFromCloses(trend...))
	suite.Equal(types.MarketRegimeTrending, report.Regime)
	suite.Greater(report.TrendStrength, 0.5)
}

func (suite *IndicatorTestSuite) TestRegistry() {
	registry := NewIndicatorRegistry()
	suite.NoError(registry.RegisterIndicator(NewRSI()))
	suite.Error(registry.RegisterIndicator(NewRSI()))

	ind, err := registry.GetIndicator("rsi")
	suite.NoError(err)
	suite.Equal("rsi", ind.Name())

	_, err = registry.GetIndicator("missing")
	suite.Error(err)

	suite.NoError(registry.RegisterIndicator(NewATR()))
	suite.Equal([]string{"atr", "rsi"}, registry.ListIndicators())

	suite.NoError(registry.RemoveIndicator("atr"))
	suite.Error(registry.RemoveIndicator("atr"))
	suite.Equal([]string{"rsi"}, registry.ListIndicators())
}

func (suite *IndicatorTestSuite) TestDefaultRegistry() {
	registry, err := NewDefaultRegistry(14, 14, []int{50, 200}, []int{20})
	suite.NoError(err)
	suite.ElementsMatch([]string{"atr", "bb", "ema_200", "ema_50", "macd", "rsi", "sma_20"}, registry.ListIndicators())

	_, err = NewDefaultRegistry(0, 14, nil, nil)
	suite.Error(err)

	_, err = NewDefaultRegistry(14, 14, []int{50, 50}, nil)
	suite.Error(err)
}

func (suite *IndicatorTestSuite) TestEnricher() {
	registry, err := NewDefaultRegistry(14, 14, []int{50, 200}, []int{20})
	suite.Require().NoError(err)

	enricher := NewEnricher(registry, logger.NewNopLogger())

	config := mocks.DefaultConfig()
	config.Count = 120
	snapshots := mocks.NewDataGenerator(42).GenerateSnapshots(config, 100)

	last := snapshots[len(snapshots)-1]
	last.Indicators = map[string]float64{"rsi": 12.5}

	enriched := enricher.Enrich(last)

	// supplied values win
	suite.Equal(12.5, enriched.Indicators["rsi"])
	suite.Contains(enriched.Indicators, "ema_50")
	suite.Contains(enriched.Indicators, "sma_20")
	suite.Contains(enriched.Indicators, "atr")
	suite.Contains(enriched.Indicators, "bb_upper")
	suite.Contains(enriched.Indicators, "macd")
	// 101 candles are not enough for ema_200
	suite.NotContains(enriched.Indicators, "ema_200")
	suite.NotEqual(types.MarketRegimeUnknown, enriched.Regime)
	suite.NotEmpty(enriched.Regime)

	// the input snapshot is not modified
	suite.Len(last.Indicators, 1)

	early := enricher.Enrich(snapshots[3])
	suite.Equal(types.MarketRegimeUnknown, early.Regime)
	suite.NotContains(early.Indicators, "rsi")
}
