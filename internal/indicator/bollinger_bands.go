package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// BollingerBands represents the Bollinger Bands indicator.
type BollingerBands struct {
	period int
	stdDev float64
}

// NewBollingerBands creates Bollinger Bands with period 20 and 2 standard deviations.
func NewBollingerBands() Indicator {
	return &BollingerBands{period: 20, stdDev: 2}
}

// Name returns the name of the indicator.
func (bb *BollingerBands) Name() string {
	return "bb"
}

// Config expects period (int) and optionally the standard deviation multiplier (float64).
func (bb *BollingerBands) Config(params ...any) error {
	if len(params) < 1 || len(params) > 2 {
		return errors.New(errors.ErrCodeMissingParameter, "Config expects period (int) and optional std dev (float64)")
	}

	period, ok := periodParam(params[0])
	if !ok {
		return errors.Newf(errors.ErrCodeInvalidParameter, "period must be a positive integer, got %v", params[0])
	}

	bb.period = period

	if len(params) == 2 {
		stdDev, ok := params[1].(float64)
		if !ok || stdDev <= 0 {
			return errors.Newf(errors.ErrCodeInvalidParameter, "std dev must be a positive float64, got %v", params[1])
		}

		bb.stdDev = stdDev
	}

	return nil
}

// Values returns bb_upper, bb_middle and bb_lower.
func (bb *BollingerBands) Values(candles []types.Candle) (map[string]float64, error) {
	upper, middle, lower, err := CalculateBollingerBands(closes(candles), bb.period, bb.stdDev)
	if err != nil {
		return nil, err
	}

	return map[string]float64{
		"bb_upper":  upper,
		"bb_middle": middle,
		"bb_lower":  lower,
	}, nil
}

// CalculateBollingerBands returns the SMA middle band and bands at stdDev population deviations.
func CalculateBollingerBands(prices []float64, period int, stdDev float64) (upper, middle, lower float64, err error) {
	middle, err = CalculateSMA(prices, period)
	if err != nil {
		return 0, 0, 0, err
	}

	var squaredDiffSum float64

	for _, p := range prices[len(prices)-period:] {
		diff := p - middle
		squaredDiffSum += diff * diff
	}

	deviation := math.Sqrt(squaredDiffSum / float64(period))

	return middle + stdDev*deviation, middle, middle - stdDev*deviation, nil
}
