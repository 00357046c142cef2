package rules

import (
	"fmt"
	"math"
)

// Params are the condition parameters of a rule. Values come from YAML or JSON,
// so numbers may arrive as int, int64, uint64 or float64.
type Params map[string]any

// Float returns the named parameter as float64, or def when absent.
func (p Params) Float(name string, def float64) (float64, error) {
	raw, ok := p[name]
	if !ok || raw == nil {
		return def, nil
	}

	var value float64

	switch v := raw.(type) {
	case float64:
		value = v
	case float32:
		value = float64(v)
	case int:
		value = float64(v)
	case int64:
		value = float64(v)
	case uint64:
		value = float64(v)
	default:
		return 0, fmt.Errorf("parameter %q must be a number, got %T", name, raw)
	}

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("parameter %q must be finite, got %v", name, value)
	}

	return value, nil
}

// PositiveInt returns the named parameter as a positive int, or def when absent.
func (p Params) PositiveInt(name string, def int) (int, error) {
	if _, ok := p[name]; !ok {
		return def, nil
	}

	value, err := p.Float(name, float64(def))
	if err != nil {
		return 0, err
	}

	if value != math.Trunc(value) || value <= 0 {
		return 0, fmt.Errorf("parameter %q must be a positive integer, got %v", name, value)
	}

	return int(value), nil
}

// String returns the named parameter as a string. A missing parameter is an error
// when required is true, otherwise def is returned.
func (p Params) String(name, def string, required bool) (string, error) {
	raw, ok := p[name]
	if !ok || raw == nil {
		if required {
			return "", fmt.Errorf("parameter %q is required", name)
		}

		return def, nil
	}

	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q must be a string, got %T", name, raw)
	}

	if required && value == "" {
		return "", fmt.Errorf("parameter %q must not be empty", name)
	}

	return value, nil
}
