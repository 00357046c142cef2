package indicator

import (
	"fmt"

	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// RSI represents the Relative Strength Index indicator.
type RSI struct {
	period int
}

// NewRSI creates a new RSI indicator with the default period of 14.
func NewRSI() Indicator {
	return &RSI{period: 14}
}

// Name returns the name of the indicator.
func (r *RSI) Name() string {
	return "rsi"
}

// Config configures the RSI indicator. Expected parameters: period (int).
func (r *RSI) Config(params ...any) error {
	if len(params) != 1 {
		return errors.New(errors.ErrCodeMissingParameter, "Config expects 1 parameter: period (int)")
	}

	period, ok := periodParam(params[0])
	if !ok {
		return errors.Newf(errors.ErrCodeInvalidParameter, "period must be a positive integer, got %v", params[0])
	}

	r.period = period

	return nil
}

// Values returns {"rsi": value}.
func (r *RSI) Values(candles []types.Candle) (map[string]float64, error) {
	value, err := CalculateRSI(closes(candles), r.period)
	if err != nil {
		return nil, err
	}

	return map[string]float64{r.Name(): value}, nil
}

// CalculateRSI computes RSI with Wilder's smoothing. It needs period+1 prices.
func CalculateRSI(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "period must be a positive integer, got %d", period)
	}

	if len(prices) < period+1 {
		return 0, errors.NewInsufficientDataErrorf(period+1, len(prices), "rsi",
			"insufficient data for RSI: required %d, got %d", period+1, len(prices))
	}

	gains := make([]float64, 0, len(prices)-1)
	losses := make([]float64, 0, len(prices)-1)

	for i := 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains = append(gains, change)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -change)
		}
	}

	avgGain := 0.0
	avgLoss := 0.0

	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}

	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50, nil
		}

		return 100, nil
	}

	rs := avgGain / avgLoss

	return 100 - (100 / (1 + rs)), nil
}

func (r *RSI) String() string {
	return fmt.Sprintf("RSI(%d)", r.period)
}
