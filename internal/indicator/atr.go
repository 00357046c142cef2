package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// ATR represents the Average True Range indicator.
type ATR struct {
	period int
}

// NewATR creates a new ATR indicator with the default period of 14.
func NewATR() Indicator {
	return &ATR{period: 14}
}

// Name returns the name of the indicator.
func (a *ATR) Name() string {
	return "atr"
}

// Config configures the ATR indicator. Expected parameters: period (int).
func (a *ATR) Config(params ...any) error {
	if len(params) != 1 {
		return errors.New(errors.ErrCodeMissingParameter, "Config expects 1 parameter: period (int)")
	}

	period, ok := periodParam(params[0])
	if !ok {
		return errors.Newf(errors.ErrCodeInvalidParameter, "period must be a positive integer, got %v", params[0])
	}

	a.period = period

	return nil
}

// Values returns {"atr": value}.
func (a *ATR) Values(candles []types.Candle) (map[string]float64, error) {
	value, err := CalculateATR(candles, a.period)
	if err != nil {
		return nil, err
	}

	return map[string]float64{a.Name(): value}, nil
}

// TrueRange is max(high-low, |high-prevClose|, |low-prevClose|).
func TrueRange(current types.Candle, prevClose float64) float64 {
	return math.Max(
		math.Max(current.High-current.Low, math.Abs(current.High-prevClose)),
		math.Abs(current.Low-prevClose),
	)
}

// CalculateATR is the mean true range of the last period candles. It needs period+1 candles.
func CalculateATR(candles []types.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "period must be a positive integer, got %d", period)
	}

	if len(candles) < period+1 {
		return 0, errors.NewInsufficientDataErrorf(period+1, len(candles), "atr",
			"insufficient data for ATR: required %d, got %d", period+1, len(candles))
	}

	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += TrueRange(candles[i], candles[i-1].Close)
	}

	return sum / float64(period), nil
}
