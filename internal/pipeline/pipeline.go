package pipeline

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-signal/internal/backtest"
	"github.com/rxtech-lab/argo-signal/internal/distribution"
	"github.com/rxtech-lab/argo-signal/internal/feed"
	"github.com/rxtech-lab/argo-signal/internal/history"
	"github.com/rxtech-lab/argo-signal/internal/lifecycle"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/metrics"
	"github.com/rxtech-lab/argo-signal/internal/probability/bayesian"
	"github.com/rxtech-lab/argo-signal/internal/probability/montecarlo"
	"github.com/rxtech-lab/argo-signal/internal/rules"
	"github.com/rxtech-lab/argo-signal/internal/scoring"
	"github.com/rxtech-lab/argo-signal/internal/store"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/rxtech-lab/argo-signal/pkg/strategy"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Config controls scheduling of trigger evaluations.
type Config struct {
	// MaxConcurrentEvaluations bounds the evaluations that run the statistical stages at once.
	MaxConcurrentEvaluations int `yaml:"max_concurrent_evaluations" json:"max_concurrent_evaluations" validate:"gt=0"`
	// EvaluationTimeout aborts a single evaluation. Zero disables the timeout.
	EvaluationTimeout time.Duration `yaml:"evaluation_timeout" json:"evaluation_timeout" validate:"gte=0"`
	// SignalTTL is how long an emitted signal stays active.
	SignalTTL time.Duration `yaml:"signal_ttl" json:"signal_ttl" validate:"gt=0"`
	// HandoffTimeout bounds each delivery to a distributor or the signal store.
	HandoffTimeout time.Duration `yaml:"handoff_timeout" json:"handoff_timeout" validate:"gt=0"`
}

// DefaultConfig returns 8 evaluation slots, a 30s evaluation timeout and a 24h signal TTL.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentEvaluations: 8,
		EvaluationTimeout:        30 * time.Second,
		SignalTTL:                24 * time.Hour,
		HandoffTimeout:           10 * time.Second,
	}
}

// Dependencies are the collaborators a pipeline composes. Distributors, Signals,
// Rejections, Lifecycle and Metrics are optional.
type Dependencies struct {
	Evaluator    *rules.Evaluator
	History      history.Store
	Backtest     *backtest.Engine
	Bayesian     *bayesian.Engine
	Simulator    *montecarlo.Simulator
	Scorer       *scoring.Scorer
	Gate         *scoring.Gate
	Distributors []distribution.Distributor
	Signals      store.SignalStore
	Rejections   store.RejectionRecorder
	Lifecycle    *lifecycle.Manager
	Metrics      *metrics.Metrics
	Logger       *logger.Logger
}

type activeStrategy struct {
	definition types.StrategyDefinition
	ctx        context.Context
	cancel     context.CancelFunc
}

// Pipeline evaluates active strategies against market snapshots and emits the
// candidates that pass the quality gate as signals.
type Pipeline struct {
	config Config
	deps   Dependencies
	logger *logger.Logger
	tracer trace.Tracer
	slots  *semaphore.Weighted

	mu         sync.RWMutex
	strategies map[string]*activeStrategy

	handoffs sync.WaitGroup
}

// New validates the configuration and creates a pipeline with no active strategies.
func New(config Config, deps Dependencies) (*Pipeline, error) {
	defaults := DefaultConfig()

	if config.MaxConcurrentEvaluations <= 0 {
		config.MaxConcurrentEvaluations = defaults.MaxConcurrentEvaluations
	}

	if config.SignalTTL <= 0 {
		config.SignalTTL = defaults.SignalTTL
	}

	if config.HandoffTimeout <= 0 {
		config.HandoffTimeout = defaults.HandoffTimeout
	}

	missing := make([]string, 0)

	if deps.Evaluator == nil {
		missing = append(missing, "evaluator")
	}

	if deps.History == nil {
		missing = append(missing, "history store")
	}

	if deps.Backtest == nil {
		missing = append(missing, "backtest engine")
	}

	if deps.Bayesian == nil {
		missing = append(missing, "bayesian engine")
	}

	if deps.Simulator == nil {
		missing = append(missing, "simulator")
	}

	if deps.Scorer == nil {
		missing = append(missing, "scorer")
	}

	if deps.Gate == nil {
		missing = append(missing, "quality gate")
	}

	if len(missing) > 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "pipeline is missing %s", strings.Join(missing, ", "))
	}

	return &Pipeline{
		config:     config,
		deps:       deps,
		logger:     deps.Logger.Named("pipeline"),
		tracer:     otel.Tracer("pipeline"),
		slots:      semaphore.NewWeighted(int64(config.MaxConcurrentEvaluations)),
		strategies: make(map[string]*activeStrategy),
	}, nil
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config {
	return p.config
}

// Activate starts evaluating a strategy. Activating an already active ID replaces
// the definition and cancels evaluations still running under the old one.
func (p *Pipeline) Activate(definition types.StrategyDefinition) error {
	if err := strategy.Validate(definition); err != nil {
		return err
	}

	if err := p.deps.Evaluator.Validate(definition); err != nil {
		return err
	}

	definition.Active = true
	ctx, cancel := context.WithCancel(context.Background())

	p.mu.Lock()
	previous, replaced := p.strategies[definition.ID]
	p.strategies[definition.ID] = &activeStrategy{definition: definition, ctx: ctx, cancel: cancel}
	count := len(p.strategies)
	p.mu.Unlock()

	if replaced {
		previous.cancel()
	}

	p.deps.Metrics.SetActiveStrategies(count)
	p.logger.Info("strategy activated",
		zap.String("strategy", definition.ID),
		zap.String("version", definition.Version),
		zap.Bool("replaced", replaced),
	)

	return nil
}

// Deactivate stops evaluating a strategy and cancels its in-flight evaluations.
// It reports whether the strategy was active.
func (p *Pipeline) Deactivate(strategyID string) bool {
	p.mu.Lock()
	entry, ok := p.strategies[strategyID]
	delete(p.strategies, strategyID)
	count := len(p.strategies)
	p.mu.Unlock()

	if !ok {
		return false
	}

	entry.cancel()
	p.deps.Metrics.SetActiveStrategies(count)
	p.logger.Info("strategy deactivated", zap.String("strategy", strategyID))

	return true
}

// Strategies returns the active definitions ordered by ID.
func (p *Pipeline) Strategies() []types.StrategyDefinition {
	p.mu.RLock()
	defer p.mu.RUnlock()

	definitions := make([]types.StrategyDefinition, 0, len(p.strategies))
	for _, entry := range p.strategies {
		definitions = append(definitions, entry.definition)
	}

	slices.SortFunc(definitions, func(a, b types.StrategyDefinition) int {
		return strings.Compare(a.ID, b.ID)
	})

	return definitions
}

func (p *Pipeline) monitoring(symbol string) []*activeStrategy {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries := make([]*activeStrategy, 0, len(p.strategies))
	for _, entry := range p.strategies {
		if entry.definition.Monitors(symbol) {
			entries = append(entries, entry)
		}
	}

	return entries
}

// HandleSnapshot evaluates every active strategy monitoring the snapshot's symbol
// and returns one outcome per trigger, ordered by strategy ID. Snapshots of open
// candles trigger nothing. Safe for concurrent use.
func (p *Pipeline) HandleSnapshot(ctx context.Context, snapshot types.MarketSnapshot) []Outcome {
	if !snapshot.IsClosed {
		return nil
	}

	entries := p.monitoring(snapshot.Symbol)
	if len(entries) == 0 {
		return nil
	}

	results := pool.NewWithResults[optional.Option[Outcome]]()

	for _, entry := range entries {
		results.Go(func() optional.Option[Outcome] {
			return p.evaluate(ctx, entry, snapshot)
		})
	}

	outcomes := make([]Outcome, 0, len(entries))

	for _, result := range results.Wait() {
		if outcome, err := result.Take(); err == nil {
			outcomes = append(outcomes, outcome)
		}
	}

	slices.SortFunc(outcomes, func(a, b Outcome) int {
		return strings.Compare(a.StrategyID, b.StrategyID)
	})

	return outcomes
}

// Run consumes the feed until it is exhausted or ctx is done. Each snapshot first
// drives the signal lifecycle, then its evaluations are dispatched concurrently.
// With a lifecycle manager, a snapshot is observed only after the evaluations of
// earlier snapshots of the same symbol finished and their signals were stored, so
// exits on the following candles are never missed. Run returns after every
// dispatched evaluation has finished.
func (p *Pipeline) Run(ctx context.Context, source feed.Feed) (Summary, error) {
	dispatch := pool.NewWithResults[[]Outcome]().WithMaxGoroutines(p.config.MaxConcurrentEvaluations)
	pending := make(map[string]<-chan struct{})

	var streamErr error

	for snapshot, err := range source.Stream(ctx) {
		if err != nil {
			streamErr = err
			break
		}

		key := strings.ToUpper(snapshot.Symbol)

		if p.deps.Lifecycle != nil && snapshot.IsClosed {
			if previous, ok := pending[key]; ok {
				<-previous
			}

			if _, err := p.deps.Lifecycle.Observe(ctx, snapshot); err != nil {
				p.logger.Warn("lifecycle update failed", zap.String("symbol", snapshot.Symbol), zap.Error(err))
			}
		}

		done := make(chan struct{})
		pending[key] = done

		dispatch.Go(func() []Outcome {
			defer close(done)

			outcomes := p.HandleSnapshot(ctx, snapshot)
			for _, outcome := range outcomes {
				outcome.waitSaved()
			}

			return outcomes
		})
	}

	summary := Summary{}
	for _, outcomes := range dispatch.Wait() {
		summary.add(outcomes)
	}

	p.logger.Info("feed finished",
		zap.Int("snapshots", summary.Snapshots),
		zap.Int("triggers", summary.Triggers),
		zap.Int("accepted", summary.Accepted),
		zap.Int("rejected", summary.Rejected),
	)

	if streamErr != nil {
		return summary, streamErr
	}

	return summary, nil
}

// Wait blocks until every pending delivery to distributors, the signal store and
// the rejection recorder has finished.
func (p *Pipeline) Wait() {
	p.handoffs.Wait()
}

// Close deactivates every strategy and waits for pending deliveries.
func (p *Pipeline) Close() {
	for _, definition := range p.Strategies() {
		p.Deactivate(definition.ID)
	}

	p.Wait()
}
