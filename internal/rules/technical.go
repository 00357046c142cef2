package rules

import (
	"fmt"

	"github.com/rxtech-lab/argo-signal/internal/types"
)

func technicalConditions() []Condition {
	return []Condition{
		{Name: "rsi_oversold", Type: types.RuleTypeTechnical, Check: rsiCheck(30, func(rsi, threshold float64) bool { return rsi < threshold })},
		{Name: "rsi_overbought", Type: types.RuleTypeTechnical, Check: rsiCheck(70, func(rsi, threshold float64) bool { return rsi > threshold })},
		{Name: "above_ema", Type: types.RuleTypeTechnical, Check: emaCheck(func(price, ema float64) bool { return price > ema })},
		{Name: "below_ema", Type: types.RuleTypeTechnical, Check: emaCheck(func(price, ema float64) bool { return price < ema })},
		{Name: "indicator_above", Type: types.RuleTypeTechnical, Check: indicatorCheck(func(v, limit float64) bool { return v > limit })},
		{Name: "indicator_below", Type: types.RuleTypeTechnical, Check: indicatorCheck(func(v, limit float64) bool { return v < limit })},
	}
}

func rsiCheck(defaultThreshold float64, cmp func(rsi, threshold float64) bool) CheckFunc {
	return func(snapshot types.MarketSnapshot, params Params) (bool, error) {
		threshold, err := params.Float("threshold", defaultThreshold)
		if err != nil {
			return false, err
		}

		if threshold < 0 || threshold > 100 {
			return false, fmt.Errorf("parameter \"threshold\" must be between 0 and 100, got %v", threshold)
		}

		rsi, ok := snapshot.Indicator("rsi")
		if !ok {
			return false, nil
		}

		return cmp(rsi, threshold), nil
	}
}

func emaCheck(cmp func(price, ema float64) bool) CheckFunc {
	return func(snapshot types.MarketSnapshot, params Params) (bool, error) {
		period, err := params.PositiveInt("period", 200)
		if err != nil {
			return false, err
		}

		ema, ok := snapshot.Indicator(fmt.Sprintf("ema_%d", period))
		if !ok {
			return false, nil
		}

		return cmp(snapshot.Price(), ema), nil
	}
}

func indicatorCheck(cmp func(value, limit float64) bool) CheckFunc {
	return func(snapshot types.MarketSnapshot, params Params) (bool, error) {
		name, err := params.String("name", "", true)
		if err != nil {
			return false, err
		}

		if _, ok := params["value"]; !ok {
			return false, fmt.Errorf("parameter \"value\" is required")
		}

		limit, err := params.Float("value", 0)
		if err != nil {
			return false, err
		}

		value, ok := snapshot.Indicator(name)
		if !ok {
			return false, nil
		}

		return cmp(value, limit), nil
	}
}
