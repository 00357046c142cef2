package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-signal/internal/probability/bayesian"
	"github.com/rxtech-lab/argo-signal/internal/probability/montecarlo"
	"github.com/rxtech-lab/argo-signal/internal/store"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	stageHistory    = "history"
	stageBacktest   = "backtest"
	stageBayesian   = "bayesian"
	stageMonteCarlo = "monte_carlo"
	stageScoring    = "scoring"
)

// evaluate runs one trigger through the state machine. It returns None when the
// strategy's rules do not hold for the snapshot.
func (p *Pipeline) evaluate(parent context.Context, entry *activeStrategy, snapshot types.MarketSnapshot) optional.Option[Outcome] {
	definition := entry.definition
	outcome := Outcome{
		StrategyID: definition.ID,
		Symbol:     snapshot.Symbol,
		Candidate:  optional.None[types.TradeCandidate](),
		Signal:     optional.None[types.Signal](),
	}

	var (
		candidate optional.Option[types.TradeCandidate]
		err       error
	)

	if recovered := panics.Try(func() {
		candidate, err = p.deps.Evaluator.Evaluate(definition, snapshot)
	}); recovered != nil {
		err = errors.NewComputationError("rules", "rule evaluation panicked", recovered.AsError())
	}

	if err != nil {
		p.logger.Warn("strategy evaluation failed",
			zap.String("strategy", definition.ID),
			zap.String("symbol", snapshot.Symbol),
			zap.Error(err),
		)

		return optional.Some(p.reject(outcome, err))
	}

	if candidate.IsNone() {
		return optional.None[Outcome]()
	}

	outcome.Candidate = candidate
	outcome.State = StateTriggered
	p.deps.Metrics.Trigger(definition.ID)
	p.deps.Metrics.Outcome(definition.ID, string(StateTriggered))

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	stop := context.AfterFunc(entry.ctx, cancel)
	defer stop()

	if p.config.EvaluationTimeout > 0 {
		var cancelTimeout context.CancelFunc

		ctx, cancelTimeout = context.WithTimeout(ctx, p.config.EvaluationTimeout)
		defer cancelTimeout()
	}

	ctx, span := p.tracer.Start(ctx, "Pipeline.Evaluate", trace.WithAttributes(
		attribute.String("strategy.id", definition.ID),
		attribute.String("symbol", snapshot.Symbol),
	))
	defer span.End()

	if err := p.slots.Acquire(ctx, 1); err != nil {
		return optional.Some(p.finishRejected(ctx, span, outcome, canceled(ctx, err)))
	}
	defer p.slots.Release(1)

	outcome.State = StateEvaluating
	p.deps.Metrics.Outcome(definition.ID, string(StateEvaluating))

	done := p.deps.Metrics.EvaluationStarted()
	defer done()

	outcome, err = p.runStages(ctx, outcome, definition, snapshot)
	if err != nil {
		p.logger.Warn("evaluation aborted",
			zap.String("strategy", definition.ID),
			zap.String("symbol", snapshot.Symbol),
			zap.Error(err),
		)

		return optional.Some(p.finishRejected(ctx, span, outcome, err))
	}

	start := time.Now()
	outcome.Score = p.deps.Scorer.Score(outcome.Backtest, outcome.Posterior, outcome.Simulation)
	result := p.deps.Gate.Check(outcome.Score, outcome.Posterior, outcome.Backtest)
	p.deps.Metrics.ObserveStage(stageScoring, time.Since(start))

	span.SetAttributes(attribute.Float64("score.composite", outcome.Score.Composite))

	if !result.Passed {
		outcome.Failures = result.Failures
		p.logger.Info("candidate rejected",
			zap.String("strategy", definition.ID),
			zap.String("symbol", snapshot.Symbol),
			zap.Float64("score", outcome.Score.Composite),
			zap.Strings("failures", result.Failures),
		)

		return optional.Some(p.finishRejected(ctx, span, outcome, nil))
	}

	// deactivation after the gate still discards the candidate
	if err := ctx.Err(); err != nil {
		return optional.Some(p.finishRejected(ctx, span, outcome, canceled(ctx, err)))
	}

	c := candidate.Unwrap()
	signal := types.NewSignal(
		c,
		outcome.Backtest,
		outcome.Simulation,
		outcome.Score,
		outcome.Posterior,
		explain(c, outcome),
		c.CreatedAt,
		p.config.SignalTTL,
	)
	signal.WinRateInterval = outcome.WinRateInterval
	signal.Expectancy = outcome.Expectancy

	outcome.State = StateAccepted
	outcome.Signal = optional.Some(signal)
	p.deps.Metrics.Outcome(definition.ID, string(StateAccepted))
	span.SetStatus(codes.Ok, "accepted")

	p.logger.Info("signal accepted",
		zap.String("id", signal.ID),
		zap.String("strategy", definition.ID),
		zap.String("symbol", snapshot.Symbol),
		zap.String("direction", string(c.Direction)),
		zap.Float64("score", outcome.Score.Composite),
		zap.String("confidence", string(outcome.Score.Confidence)),
	)

	outcome.saved = p.handoff(ctx, signal)

	return optional.Some(outcome)
}

// runStages fetches the strategy's history and runs the backtest, Bayesian and
// Monte Carlo stages concurrently. The first stage error cancels the others.
func (p *Pipeline) runStages(ctx context.Context, outcome Outcome, definition types.StrategyDefinition, snapshot types.MarketSnapshot) (Outcome, error) {
	start := time.Now()

	trades, err := p.deps.History.Trades(ctx, definition.ID)
	if err != nil {
		if ctx.Err() != nil {
			return outcome, canceled(ctx, ctx.Err())
		}

		return outcome, errors.Wrapf(errors.ErrCodeHistoricalDataFailed, err, "failed to load history of %s", definition.ID)
	}

	p.deps.Metrics.ObserveStage(stageHistory, time.Since(start))

	simulator := p.deps.Simulator.Config()
	capital := p.deps.Backtest.InitialCapital()

	var (
		backtestResult types.BacktestResult
		posterior      float64
		simulation     types.SimulationResult
	)

	stages := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()

	stages.Go(p.stage(stageBacktest, func(context.Context) error {
		backtestResult = p.deps.Backtest.Run(definition.Name, trades, capital)
		return nil
	}))

	stages.Go(p.stage(stageBayesian, func(context.Context) error {
		posterior = p.deps.Bayesian.Posterior(
			bayesian.PriorFromTrades(trades),
			bayesian.EvidenceFromTrades(trades, snapshot.Regime),
		)

		return nil
	}))

	stages.Go(p.stage(stageMonteCarlo, func(ctx context.Context) error {
		result, err := p.deps.Simulator.Simulate(ctx,
			montecarlo.StatsFromTrades(trades, capital), simulator.NumSimulations, simulator.PathLength)
		if err != nil {
			return err
		}

		simulation = result

		return nil
	}))

	if err := stages.Wait(); err != nil {
		if ctx.Err() != nil {
			return outcome, canceled(ctx, ctx.Err())
		}

		return outcome, err
	}

	if err := ctx.Err(); err != nil {
		return outcome, canceled(ctx, err)
	}

	expectancy, err := montecarlo.SimulateTradeOutcome(
		posterior, outcome.Candidate.Unwrap().RiskReward(), simulator.NumSimulations, simulation.Seed)
	if err != nil {
		return outcome, errors.NewComputationError(stageMonteCarlo, "failed to simulate trade outcome", err)
	}

	lower, upper := bayesian.ConfidenceInterval(backtestResult.WinRate, backtestResult.TotalTrades, 0.95)

	outcome.Backtest = backtestResult
	outcome.Posterior = posterior
	outcome.Simulation = simulation
	outcome.WinRateInterval = types.Interval{Lower: lower, Upper: upper}
	outcome.Expectancy = expectancy

	return outcome, nil
}

// stage times fn and converts a panic into a computation error.
func (p *Pipeline) stage(name string, fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		start := time.Now()
		defer func() {
			p.deps.Metrics.ObserveStage(name, time.Since(start))
		}()

		var err error
		if recovered := panics.Try(func() { err = fn(ctx) }); recovered != nil {
			return errors.NewComputationError(name, "stage panicked", recovered.AsError())
		}

		return err
	}
}

func canceled(ctx context.Context, cause error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.Wrap(errors.ErrCodeEvaluationAborted, "evaluation timed out", cause)
	}

	return errors.Wrap(errors.ErrCodeEvaluationCanceled, "evaluation canceled", cause)
}

func (p *Pipeline) reject(outcome Outcome, err error) Outcome {
	outcome.State = StateRejected
	outcome.Err = err
	p.deps.Metrics.Outcome(outcome.StrategyID, string(StateRejected))

	return outcome
}

func (p *Pipeline) finishRejected(ctx context.Context, span trace.Span, outcome Outcome, err error) Outcome {
	outcome = p.reject(outcome, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Error, "rejected by quality gate")
	}

	if p.deps.Rejections != nil && outcome.Candidate.IsSome() {
		rejection := store.Rejection{
			Candidate:  outcome.Candidate.Unwrap(),
			Composite:  outcome.Score.Composite,
			Reasons:    outcome.Failures,
			RejectedAt: outcome.Candidate.Unwrap().CreatedAt,
		}

		if err != nil {
			rejection.Error = err.Error()
		}

		p.deliver(ctx, "rejections", func(ctx context.Context) error {
			return p.deps.Rejections.RecordRejection(ctx, rejection)
		})
	}

	return outcome
}

// handoff delivers the signal to the store and every distributor without waiting.
// It returns the store delivery's completion channel, nil without a store.
func (p *Pipeline) handoff(ctx context.Context, signal types.Signal) <-chan struct{} {
	var saved <-chan struct{}

	if p.deps.Signals != nil {
		saved = p.deliver(ctx, "store", func(ctx context.Context) error {
			return p.deps.Signals.Save(ctx, signal)
		})
	}

	for _, distributor := range p.deps.Distributors {
		p.deliver(ctx, distributor.Name(), func(ctx context.Context) error {
			return distributor.Distribute(ctx, signal)
		})
	}

	return saved
}

// deliver runs fn in its own goroutine, detached from the evaluation's cancellation.
// Failures are logged and counted, never retried. The returned channel is closed
// when the delivery has finished.
func (p *Pipeline) deliver(parent context.Context, target string, fn func(context.Context) error) <-chan struct{} {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), p.config.HandoffTimeout)
	done := make(chan struct{})

	p.handoffs.Add(1)

	go func() {
		defer p.handoffs.Done()
		defer close(done)
		defer cancel()

		var err error
		if recovered := panics.Try(func() { err = fn(ctx) }); recovered != nil {
			err = fmt.Errorf("delivery to %s panicked: %w", target, recovered.AsError())
		}

		p.deps.Metrics.Delivery(target, err)

		if err != nil {
			p.logger.Warn("delivery failed", zap.String("target", target), zap.Error(err))
		}
	}()

	return done
}

// String renders an outcome for logs and the CLI.
func (o Outcome) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s %s", o.StrategyID, o.Symbol, o.State)

	if o.State == StateAccepted || len(o.Failures) > 0 {
		fmt.Fprintf(&b, " score=%.2f", o.Score.Composite)
	}

	if o.State == StateRejected {
		fmt.Fprintf(&b, " (%s)", o.Reason())
	}

	return b.String()
}
