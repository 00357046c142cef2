package indicator

import (
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// MACD is the difference between a fast and a slow EMA.
type MACD struct {
	fastPeriod int
	slowPeriod int
}

// NewMACD creates a MACD with the usual 12/26 periods.
func NewMACD() Indicator {
	return &MACD{fastPeriod: 12, slowPeriod: 26}
}

// Name returns the name of the indicator.
func (m *MACD) Name() string {
	return "macd"
}

// Config expects fast period (int) and slow period (int).
func (m *MACD) Config(params ...any) error {
	if len(params) != 2 {
		return errors.New(errors.ErrCodeMissingParameter, "Config expects 2 parameters: fast period (int), slow period (int)")
	}

	fast, ok := periodParam(params[0])
	if !ok {
		return errors.Newf(errors.ErrCodeInvalidParameter, "fast period must be a positive integer, got %v", params[0])
	}

	slow, ok := periodParam(params[1])
	if !ok {
		return errors.Newf(errors.ErrCodeInvalidParameter, "slow period must be a positive integer, got %v", params[1])
	}

	if fast >= slow {
		return errors.Newf(errors.ErrCodeInvalidParameter, "fast period %d must be lower than slow period %d", fast, slow)
	}

	m.fastPeriod = fast
	m.slowPeriod = slow

	return nil
}

// Values returns {"macd": fastEMA - slowEMA}.
func (m *MACD) Values(candles []types.Candle) (map[string]float64, error) {
	prices := closes(candles)

	slow, err := CalculateEMA(prices, m.slowPeriod)
	if err != nil {
		return nil, err
	}

	fast, err := CalculateEMA(prices, m.fastPeriod)
	if err != nil {
		return nil, err
	}

	return map[string]float64{m.Name(): fast - slow}, nil
}
