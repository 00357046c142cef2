package types

import "strings"

// Direction is the side of a trade.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// RuleType groups rule conditions.
type RuleType string

const (
	RuleTypeTechnical   RuleType = "technical"
	RuleTypePriceAction RuleType = "price_action"
	RuleTypeSession     RuleType = "session"
	RuleTypeExpression  RuleType = "expression"
)

// RuleCondition is one entry of a strategy's ordered rule list.
type RuleCondition struct {
	// Type is the rule family (technical, price_action, session, expression)
	Type RuleType `json:"type" yaml:"type" validate:"required"`
	// Condition is the registered condition name (e.g. rsi_oversold, london)
	Condition string `json:"condition" yaml:"condition" validate:"required"`
	// Parameters are condition specific (e.g. threshold, period, lookback)
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// PositionSizingRule names how position size is derived from account equity.
type PositionSizingRule string

const (
	// PositionSizingFixedFraction commits RiskPercent of equity as the position's notional.
	PositionSizingFixedFraction PositionSizingRule = "fixed_fraction"
	// PositionSizingFixedRisk sizes the position so that a stop-out loses RiskPercent of equity.
	PositionSizingFixedRisk PositionSizingRule = "fixed_risk"
)

// DefaultRiskPercent is used when a strategy leaves RiskPercent unset.
const DefaultRiskPercent = 2.0

// RiskManagement holds the stop/target distances and position sizing.
type RiskManagement struct {
	StopLossPips   float64 `json:"stop_loss_pips" yaml:"stop_loss_pips" validate:"gt=0"`
	TakeProfitPips float64 `json:"take_profit_pips" yaml:"take_profit_pips" validate:"gt=0"`
	// PipSize overrides the default pip size for the symbol when set.
	PipSize        float64            `json:"pip_size,omitempty" yaml:"pip_size,omitempty" validate:"gte=0"`
	PositionSizing PositionSizingRule `json:"position_sizing,omitempty" yaml:"position_sizing,omitempty" validate:"omitempty,oneof=fixed_fraction fixed_risk"`
	// RiskPercent is the share of equity the sizing rule uses, in percent. Zero means DefaultRiskPercent.
	RiskPercent float64 `json:"risk_percent,omitempty" yaml:"risk_percent,omitempty" validate:"gte=0,lte=100"`
}

// StrategyDefinition is an immutable rule set evaluated against snapshots.
type StrategyDefinition struct {
	ID      string `json:"id" yaml:"id" validate:"required"`
	Name    string `json:"name" yaml:"name" validate:"required"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	// Direction of the trades this strategy proposes. Defaults to long.
	Direction Direction       `json:"direction,omitempty" yaml:"direction,omitempty" validate:"omitempty,oneof=long short"`
	Rules     []RuleCondition `json:"rules" yaml:"rules" validate:"required,min=1,dive"`
	Risk      RiskManagement  `json:"risk_management" yaml:"risk_management"`
	// Symbols restricts the strategy to these symbols. Empty means every symbol.
	Symbols []string `json:"symbols,omitempty" yaml:"symbols,omitempty"`
	Active  bool     `json:"active" yaml:"active"`
}

// TradeDirection returns the configured direction, defaulting to long.
func (s StrategyDefinition) TradeDirection() Direction {
	if s.Direction == "" {
		return DirectionLong
	}

	return s.Direction
}

// Monitors reports whether the strategy watches the given symbol.
func (s StrategyDefinition) Monitors(symbol string) bool {
	if len(s.Symbols) == 0 {
		return true
	}

	for _, sym := range s.Symbols {
		if strings.EqualFold(sym, symbol) {
			return true
		}
	}

	return false
}

// DefaultPipSize returns the pip size for a symbol: 0.01 for JPY pairs, 0.0001 otherwise.
func DefaultPipSize(symbol string) float64 {
	if strings.Contains(strings.ToUpper(symbol), "JPY") {
		return 0.01
	}

	return 0.0001
}
