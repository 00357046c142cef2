package rules

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/stretchr/testify/suite"
)

type ConditionTestSuite struct {
	suite.Suite
	registry ConditionRegistry
}

func TestConditionSuite(t *testing.T) {
	suite.Run(t, new(ConditionTestSuite))
}

func (suite *ConditionTestSuite) SetupTest() {
	suite.registry = NewDefaultRegistry()
}

func (suite *ConditionTestSuite) check(name string, snapshot types.MarketSnapshot, params Params) (bool, error) {
	condition, err := suite.registry.GetCondition(name)
	suite.Require().NoError(err)

	return condition.Check(snapshot, params)
}

func (suite *ConditionTestSuite) TestRegistry() {
	suite.Equal([]string{
		"above_ema", "asia", "bearish_engulfing", "below_ema", "bullish_engulfing", "expression",
		"indicator_above", "indicator_below", "liquidity_sweep", "london", "new_york",
		"rsi_overbought", "rsi_oversold",
	}, suite.registry.ListConditions())

	err := suite.registry.RegisterCondition(Condition{Name: "london", Type: types.RuleTypeSession, Check: func(types.MarketSnapshot, Params) (bool, error) { return true, nil }})
	suite.Error(err)

	err = suite.registry.RegisterCondition(Condition{Name: "noop"})
	suite.Error(err)

	_, err = suite.registry.GetCondition("missing")
	suite.Error(err)
}

func (suite *ConditionTestSuite) TestRSIThresholds() {
	snap := snapshotAt(0, 1, map[string]float64{"rsi": 29.9})

	ok, err := suite.check("rsi_oversold", snap, nil)
	suite.NoError(err)
	suite.True(ok)

	ok, err = suite.check("rsi_oversold", snap, Params{"threshold": 25.0})
	suite.NoError(err)
	suite.False(ok)

	ok, err = suite.check("rsi_overbought", snapshotAt(0, 1, map[string]float64{"rsi": 70}), nil)
	suite.NoError(err)
	suite.False(ok)

	_, err = suite.check("rsi_oversold", snap, Params{"threshold": 150})
	suite.Error(err)
}

func (suite *ConditionTestSuite) TestEMAConditions() {
	snap := snapshotAt(0, 1.2, map[string]float64{"ema_200": 1.1, "ema_50": 1.3})

	ok, err := suite.check("above_ema", snap, nil)
	suite.NoError(err)
	suite.True(ok)

	ok, err = suite.check("below_ema", snap, Params{"period": 50})
	suite.NoError(err)
	suite.True(ok)

	ok, err = suite.check("above_ema", snap, Params{"period": 20})
	suite.NoError(err)
	suite.False(ok)

	_, err = suite.check("above_ema", snap, Params{"period": 20.5})
	suite.Error(err)

	_, err = suite.check("above_ema", snap, Params{"period": -1})
	suite.Error(err)
}

func (suite *ConditionTestSuite) TestIndicatorComparisons() {
	snap := snapshotAt(0, 1, map[string]float64{"atr": 0.002})

	ok, err := suite.check("indicator_above", snap, Params{"name": "atr", "value": 0.001})
	suite.NoError(err)
	suite.True(ok)

	ok, err = suite.check("indicator_below", snap, Params{"name": "atr", "value": 0.001})
	suite.NoError(err)
	suite.False(ok)

	ok, err = suite.check("indicator_below", snap, Params{"name": "macd", "value": 0})
	suite.NoError(err)
	suite.False(ok)

	_, err = suite.check("indicator_above", snap, Params{"value": 1})
	suite.Error(err)

	_, err = suite.check("indicator_above", snap, Params{"name": "atr"})
	suite.Error(err)
}

func (suite *ConditionTestSuite) TestSessionsUseSnapshotTime() {
	cases := []struct {
		hour    int
		london  bool
		newYork bool
		asia    bool
	}{
		{hour: 0, asia: true},
		{hour: 7, london: true, asia: true},
		{hour: 9, london: true},
		{hour: 13, london: true, newYork: true},
		{hour: 16, newYork: true},
		{hour: 22},
	}

	for _, c := range cases {
		snap := snapshotAt(c.hour, 1, nil)

		ok, err := suite.check("london", snap, nil)
		suite.NoError(err)
		suite.Equal(c.london, ok, "london at %d", c.hour)

		ok, _ = suite.check("new_york", snap, nil)
		suite.Equal(c.newYork, ok, "new_york at %d", c.hour)

		ok, _ = suite.check("asia", snap, nil)
		suite.Equal(c.asia, ok, "asia at %d", c.hour)
	}

	// non-UTC timestamps are converted
	snap := snapshotAt(9, 1, nil)
	snap.Time = snap.Time.In(time.FixedZone("UTC+8", 8*3600))
	ok, _ := suite.check("london", snap, nil)
	suite.True(ok)

	wrapping := TradingSession{Name: "sydney", StartHour: 21, EndHour: 6}
	suite.True(wrapping.Contains(23))
	suite.True(wrapping.Contains(2))
	suite.False(wrapping.Contains(12))
}

func history(lows, highs []float64) []types.Candle {
	out := make([]types.Candle, len(lows))
	for i := range lows {
		out[i] = types.Candle{Low: lows[i], High: highs[i], Open: (lows[i] + highs[i]) / 2, Close: (lows[i] + highs[i]) / 2}
	}

	return out
}

func (suite *ConditionTestSuite) TestLiquiditySweep() {
	snap := snapshotAt(0, 1.0, nil)
	snap.History = history([]float64{1.00, 0.99, 1.01}, []float64{1.05, 1.04, 1.06})
	snap.Candle = types.Candle{Open: 1.0, Low: 0.98, High: 1.02, Close: 1.0}

	ok, err := suite.check("liquidity_sweep", snap, Params{"lookback": 3})
	suite.NoError(err)
	suite.True(ok)

	// closing below the swept low is a breakdown, not a sweep
	snap.Candle.Close = 0.985
	ok, _ = suite.check("liquidity_sweep", snap, Params{"lookback": 3})
	suite.False(ok)

	// not enough history
	ok, err = suite.check("liquidity_sweep", snap, Params{"lookback": 10})
	suite.NoError(err)
	suite.False(ok)

	snap.Candle = types.Candle{Open: 1.05, Low: 1.03, High: 1.07, Close: 1.05}
	ok, err = suite.check("liquidity_sweep", snap, Params{"lookback": 3, "side": "bearish"})
	suite.NoError(err)
	suite.True(ok)

	_, err = suite.check("liquidity_sweep", snap, Params{"side": "sideways"})
	suite.Error(err)
}

func (suite *ConditionTestSuite) TestEngulfing() {
	snap := snapshotAt(0, 1.0, nil)
	snap.History = []types.Candle{{Open: 1.02, Close: 1.00, High: 1.03, Low: 0.99}}
	snap.Candle = types.Candle{Open: 0.995, Close: 1.025, High: 1.03, Low: 0.99}

	ok, err := suite.check("bullish_engulfing", snap, nil)
	suite.NoError(err)
	suite.True(ok)

	ok, _ = suite.check("bearish_engulfing", snap, nil)
	suite.False(ok)

	snap.History = []types.Candle{{Open: 1.00, Close: 1.02}}
	snap.Candle = types.Candle{Open: 1.025, Close: 0.995}
	ok, _ = suite.check("bearish_engulfing", snap, nil)
	suite.True(ok)

	snap.History = nil
	ok, _ = suite.check("bearish_engulfing", snap, nil)
	suite.False(ok)
}

func (suite *ConditionTestSuite) TestExpression() {
	snap := snapshotAt(14, 1.2, map[string]float64{"rsi": 25, "ema_200": 1.1})

	ok, err := suite.check("expression", snap, Params{"expr": "indicators.rsi < 30 && close > indicators.ema_200 && hour >= 13"})
	suite.NoError(err)
	suite.True(ok)

	ok, err = suite.check("expression", snap, Params{"expr": `symbol == "USDJPY"`})
	suite.NoError(err)
	suite.False(ok)

	// missing indicator evaluates to false
	ok, err = suite.check("expression", snap, Params{"expr": "indicators.macd > 0"})
	suite.NoError(err)
	suite.False(ok)

	ok, err = suite.check("expression", snap, Params{"expr": "indicators.macd * 2 > indicators.rsi"})
	suite.NoError(err)
	suite.False(ok)

	// type errors on present data are reported
	_, err = suite.check("expression", snap, Params{"expr": "symbol > 1"})
	suite.Error(err)
	suite.Contains(err.Error(), "symbol > 1")

	_, err = suite.check("expression", snap, Params{"expr": "close >"})
	suite.Error(err)

	_, err = suite.check("expression", snap, Params{})
	suite.Error(err)
}
