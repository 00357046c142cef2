package indicator

import (
	"fmt"

	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// MovingAverageKind selects between simple and exponential averaging.
type MovingAverageKind string

const (
	MovingAverageSimple      MovingAverageKind = "sma"
	MovingAverageExponential MovingAverageKind = "ema"
)

// MovingAverage is an SMA or EMA over closing prices.
type MovingAverage struct {
	kind   MovingAverageKind
	period int
}

// NewEMA creates an exponential moving average with the given period.
func NewEMA(period int) Indicator {
	return &MovingAverage{kind: MovingAverageExponential, period: period}
}

// NewSMA creates a simple moving average with the given period.
func NewSMA(period int) Indicator {
	return &MovingAverage{kind: MovingAverageSimple, period: period}
}

// Name returns e.g. "ema_200" or "sma_20".
func (m *MovingAverage) Name() string {
	return fmt.Sprintf("%s_%d", m.kind, m.period)
}

// Config configures the average. Expected parameters: period (int).
func (m *MovingAverage) Config(params ...any) error {
	if len(params) != 1 {
		return errors.New(errors.ErrCodeMissingParameter, "Config expects 1 parameter: period (int)")
	}

	period, ok := periodParam(params[0])
	if !ok {
		return errors.Newf(errors.ErrCodeInvalidParameter, "period must be a positive integer, got %v", params[0])
	}

	m.period = period

	return nil
}

// Values returns the average keyed by Name.
func (m *MovingAverage) Values(candles []types.Candle) (map[string]float64, error) {
	var (
		value float64
		err   error
	)

	if m.kind == MovingAverageExponential {
		value, err = CalculateEMA(closes(candles), m.period)
	} else {
		value, err = CalculateSMA(closes(candles), m.period)
	}

	if err != nil {
		return nil, err
	}

	return map[string]float64{m.Name(): value}, nil
}

// CalculateSMA averages the last period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "period must be a positive integer, got %d", period)
	}

	if len(prices) < period {
		return 0, errors.NewInsufficientDataErrorf(period, len(prices), "sma",
			"insufficient data for SMA: required %d, got %d", period, len(prices))
	}

	sum := 0.0
	for _, p := range prices[len(prices)-period:] {
		sum += p
	}

	return sum / float64(period), nil
}

// CalculateEMA seeds with the SMA of the first period prices and then applies
// EMA = price*alpha + prev*(1-alpha) with alpha = 2/(period+1).
func CalculateEMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "period must be a positive integer, got %d", period)
	}

	if len(prices) < period {
		return 0, errors.NewInsufficientDataErrorf(period, len(prices), "ema",
			"insufficient data for EMA: required %d, got %d", period, len(prices))
	}

	ema := 0.0
	for i := 0; i < period; i++ {
		ema += prices[i]
	}

	ema /= float64(period)

	alpha := 2.0 / float64(period+1)
	for i := period; i < len(prices); i++ {
		ema = prices[i]*alpha + ema*(1-alpha)
	}

	return ema, nil
}
