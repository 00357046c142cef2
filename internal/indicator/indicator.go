package indicator

import (
	"github.com/rxtech-lab/argo-signal/internal/types"
)

// Indicator computes one or more named values from a candle series (oldest first).
type Indicator interface {
	// Name returns the registry key of the indicator (e.g. "rsi", "ema_200")
	Name() string
	// Values computes the indicator output keyed by snapshot indicator name
	Values(candles []types.Candle) (map[string]float64, error)
	// Config configures the indicator parameters
	Config(params ...any) error
}

// periodParam reads a positive period from an int or float64 parameter.
func periodParam(param any) (int, bool) {
	switch p := param.(type) {
	case int:
		return p, p > 0
	case float64:
		return int(p), p > 0 && p == float64(int(p))
	default:
		return 0, false
	}
}

func closes(candles []types.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}

	return out
}
