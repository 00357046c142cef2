package rules

import (
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rxtech-lab/argo-signal/internal/types"
)

// expressionCache holds compiled programs keyed by source.
type expressionCache struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
}

func (c *expressionCache) compile(source string) (*vm.Program, error) {
	c.mu.RLock()
	program, ok := c.programs[source]
	c.mu.RUnlock()

	if ok {
		return program, nil
	}

	program, err := expr.Compile(source, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("failed to compile expression %q: %w", source, err)
	}

	c.mu.Lock()
	c.programs[source] = program
	c.mu.Unlock()

	return program, nil
}

func newExpressionCondition() Condition {
	cache := &expressionCache{
		mu:       sync.RWMutex{},
		programs: make(map[string]*vm.Program),
	}

	return Condition{
		Name: "expression",
		Type: types.RuleTypeExpression,
		Check: func(snapshot types.MarketSnapshot, params Params) (bool, error) {
			source, err := params.String("expr", "", true)
			if err != nil {
				return false, err
			}

			program, err := cache.compile(source)
			if err != nil {
				return false, err
			}

			output, err := expr.Run(program, expressionEnv(snapshot))
			if err != nil {
				if missingOperand(err) {
					return false, nil
				}

				return false, fmt.Errorf("failed to evaluate expression %q: %w", source, err)
			}

			passed, ok := output.(bool)

			return ok && passed, nil
		},
	}
}

// missingOperand reports whether a runtime error came from a nil operand, which is
// what an indicator absent from the snapshot evaluates to.
func missingOperand(err error) bool {
	return strings.Contains(err.Error(), "<nil>")
}

// expressionEnv exposes the snapshot to expressions. Indicators are exposed as
// map[string]any so a missing key evaluates to nil.
func expressionEnv(snapshot types.MarketSnapshot) map[string]any {
	indicators := make(map[string]any, len(snapshot.Indicators))
	for k, v := range snapshot.Indicators {
		indicators[k] = v
	}

	return map[string]any{
		"open":       snapshot.Candle.Open,
		"high":       snapshot.Candle.High,
		"low":        snapshot.Candle.Low,
		"close":      snapshot.Candle.Close,
		"volume":     snapshot.Candle.Volume,
		"symbol":     snapshot.Symbol,
		"hour":       snapshot.Time.UTC().Hour(),
		"regime":     string(snapshot.Regime),
		"indicators": indicators,
	}
}
