package rules

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/internal/version"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Evaluator decides whether a strategy's rules hold for a market snapshot and,
// when they do, proposes a trade candidate.
type Evaluator struct {
	registry      ConditionRegistry
	schemaVersion string
	equity        decimal.Decimal
	logger        *logger.Logger
}

// NewEvaluator creates an evaluator over the given registry. A nil registry uses the built-in conditions.
func NewEvaluator(registry ConditionRegistry, log *logger.Logger) *Evaluator {
	if registry == nil {
		registry = NewDefaultRegistry()
	}

	return &Evaluator{
		registry:      registry,
		schemaVersion: version.RuleSchemaVersion,
		logger:        log.Named("rules"),
	}
}

// WithEquity sets the account equity positions are sized against. Without equity,
// candidates carry a zero position size.
func (e *Evaluator) WithEquity(equity float64) *Evaluator {
	if equity > 0 {
		e.equity = decimal.NewFromFloat(equity)
	}

	return e
}

// Validate checks a strategy against the evaluator without a snapshot: schema version
// compatibility and that every rule names a registered condition of the declared type.
func (e *Evaluator) Validate(strategy types.StrategyDefinition) error {
	if err := version.CheckRuleSchemaCompatibility(e.schemaVersion, strategy.Version); err != nil {
		return errors.NewConfigurationError(strategy.ID, "incompatible rule schema version", err)
	}

	for _, rule := range strategy.Rules {
		if _, err := e.lookup(strategy.ID, rule); err != nil {
			return err
		}
	}

	return nil
}

// Evaluate returns a candidate when every rule holds (AND semantics), None otherwise.
// Unknown conditions and malformed parameters are configuration errors.
func (e *Evaluator) Evaluate(strategy types.StrategyDefinition, snapshot types.MarketSnapshot) (optional.Option[types.TradeCandidate], error) {
	if err := e.Validate(strategy); err != nil {
		return optional.None[types.TradeCandidate](), err
	}

	if len(strategy.Rules) == 0 {
		return optional.None[types.TradeCandidate](), nil
	}

	for _, rule := range strategy.Rules {
		condition, err := e.lookup(strategy.ID, rule)
		if err != nil {
			return optional.None[types.TradeCandidate](), err
		}

		ok, err := condition.Check(snapshot, Params(rule.Parameters))
		if err != nil {
			return optional.None[types.TradeCandidate](), errors.NewConfigurationError(
				strategy.ID, "invalid parameters for condition "+rule.Condition, err)
		}

		if !ok {
			return optional.None[types.TradeCandidate](), nil
		}
	}

	candidate, err := e.buildCandidate(strategy, snapshot)
	if err != nil {
		return optional.None[types.TradeCandidate](), err
	}

	e.logger.Debug("strategy triggered",
		zap.String("strategy", strategy.ID),
		zap.String("symbol", snapshot.Symbol),
		zap.Float64("entry", candidate.Entry),
	)

	return optional.Some(candidate), nil
}

func (e *Evaluator) lookup(strategyID string, rule types.RuleCondition) (Condition, error) {
	condition, err := e.registry.GetCondition(rule.Condition)
	if err != nil {
		return Condition{}, errors.NewUnknownConditionError(strategyID, string(rule.Type), rule.Condition)
	}

	if rule.Type != "" && rule.Type != condition.Type {
		return Condition{}, errors.NewUnknownConditionError(strategyID, string(rule.Type), rule.Condition)
	}

	return condition, nil
}

// buildCandidate derives stop and target from the strategy's pip distances.
// Prices are computed in decimal and rounded to 5 places.
func (e *Evaluator) buildCandidate(strategy types.StrategyDefinition, snapshot types.MarketSnapshot) (types.TradeCandidate, error) {
	risk := strategy.Risk
	if risk.StopLossPips <= 0 || risk.TakeProfitPips <= 0 {
		return types.TradeCandidate{}, errors.NewConfigurationErrorf(strategy.ID,
			"stop loss and take profit pips must be positive, got %v and %v", risk.StopLossPips, risk.TakeProfitPips)
	}

	pipSize := risk.PipSize
	if pipSize <= 0 {
		pipSize = types.DefaultPipSize(snapshot.Symbol)
	}

	pip := decimal.NewFromFloat(pipSize)
	entry := decimal.NewFromFloat(snapshot.Price())
	stopDistance := decimal.NewFromFloat(risk.StopLossPips).Mul(pip)
	targetDistance := decimal.NewFromFloat(risk.TakeProfitPips).Mul(pip)

	direction := strategy.TradeDirection()

	var stop, target decimal.Decimal
	if direction == types.DirectionShort {
		stop = entry.Add(stopDistance)
		target = entry.Sub(targetDistance)
	} else {
		stop = entry.Sub(stopDistance)
		target = entry.Add(targetDistance)
	}

	riskPercent := risk.RiskPercent
	if riskPercent <= 0 {
		riskPercent = types.DefaultRiskPercent
	}

	return types.TradeCandidate{
		StrategyID:   strategy.ID,
		StrategyName: strategy.Name,
		Symbol:       snapshot.Symbol,
		Direction:    direction,
		Entry:        entry.InexactFloat64(),
		Stop:         stop.Round(5).InexactFloat64(),
		Target:       target.Round(5).InexactFloat64(),
		RiskPercent:  riskPercent,
		PositionSize: e.positionSize(risk.PositionSizing, riskPercent, entry, stopDistance),
		CreatedAt:    snapshot.Time,
	}, nil
}

// positionSize returns the quantity in instrument units, rounded to 2 places.
// fixed_fraction spends riskPercent of equity on the position; fixed_risk loses
// riskPercent of equity when the stop is hit. An empty rule is fixed_fraction.
func (e *Evaluator) positionSize(rule types.PositionSizingRule, riskPercent float64, entry, stopDistance decimal.Decimal) float64 {
	budget := e.equity.Mul(decimal.NewFromFloat(riskPercent)).Div(decimal.NewFromInt(100))

	per := entry
	if rule == types.PositionSizingFixedRisk {
		per = stopDistance
	}

	if budget.IsZero() || !per.IsPositive() {
		return 0
	}

	return budget.Div(per).Round(2).InexactFloat64()
}
