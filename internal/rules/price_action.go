package rules

import (
	"fmt"

	"github.com/rxtech-lab/argo-signal/internal/types"
)

func priceActionConditions() []Condition {
	return []Condition{
		{Name: "liquidity_sweep", Type: types.RuleTypePriceAction, Check: checkLiquiditySweep},
		{Name: "bullish_engulfing", Type: types.RuleTypePriceAction, Check: checkEngulfing(true)},
		{Name: "bearish_engulfing", Type: types.RuleTypePriceAction, Check: checkEngulfing(false)},
	}
}

// checkLiquiditySweep fires when the current candle trades through the extreme of the
// previous lookback candles and closes back inside it. Param side selects a sweep of
// lows ("bullish", default) or highs ("bearish").
func checkLiquiditySweep(snapshot types.MarketSnapshot, params Params) (bool, error) {
	lookback, err := params.PositiveInt("lookback", 20)
	if err != nil {
		return false, err
	}

	side, err := params.String("side", "bullish", false)
	if err != nil {
		return false, err
	}

	if side != "bullish" && side != "bearish" {
		return false, fmt.Errorf("parameter \"side\" must be bullish or bearish, got %q", side)
	}

	if len(snapshot.History) < lookback {
		return false, nil
	}

	window := snapshot.History[len(snapshot.History)-lookback:]
	current := snapshot.Candle

	if side == "bullish" {
		lowest := window[0].Low
		for _, c := range window[1:] {
			lowest = min(lowest, c.Low)
		}

		return current.Low < lowest && current.Close > lowest, nil
	}

	highest := window[0].High
	for _, c := range window[1:] {
		highest = max(highest, c.High)
	}

	return current.High > highest && current.Close < highest, nil
}

func checkEngulfing(bullish bool) CheckFunc {
	return func(snapshot types.MarketSnapshot, _ Params) (bool, error) {
		if len(snapshot.History) == 0 {
			return false, nil
		}

		prev := snapshot.History[len(snapshot.History)-1]
		cur := snapshot.Candle

		if bullish {
			return prev.Close < prev.Open && cur.Close > cur.Open &&
				cur.Open <= prev.Close && cur.Close >= prev.Open, nil
		}

		return prev.Close > prev.Open && cur.Close < cur.Open &&
			cur.Open >= prev.Close && cur.Close <= prev.Open, nil
	}
}
