package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
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
	"github.com/rxtech-lab/argo-signal/mocks"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type PipelineTestSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	history *history.MemoryStore
	log     *logger.Logger
	start   time.Time
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineTestSuite))
}

func (suite *PipelineTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.history = history.NewMemoryStore()
	suite.log = logger.NewNopLogger()
	suite.start = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
}

// trades spreads wins evenly over total trades. Wins return +2%, losses -1%.
func (suite *PipelineTestSuite) trades(strategyID string, total, wins int) []types.HistoricalTrade {
	trades := make([]types.HistoricalTrade, total)

	for i := range total {
		entry := suite.start.Add(time.Duration(i) * 2 * time.Hour)
		trade := types.HistoricalTrade{
			StrategyID: strategyID,
			Symbol:     "EURUSD",
			Direction:  types.DirectionLong,
			EntryTime:  entry,
			ExitTime:   entry.Add(time.Hour),
			EntryPrice: 1.1,
			PnL:        -100,
			ReturnPct:  -0.01,
		}

		if (i*wins)/total != ((i+1)*wins)/total {
			trade.PnL = 200
			trade.ReturnPct = 0.02
		}

		trades[i] = trade
	}

	return trades
}

func rsiStrategy(id string) types.StrategyDefinition {
	return types.StrategyDefinition{
		ID:   id,
		Name: "RSI " + id,
		Rules: []types.RuleCondition{
			{Type: types.RuleTypeTechnical, Condition: "rsi_oversold", Parameters: map[string]any{"threshold": 30}},
		},
		Risk:   types.RiskManagement{StopLossPips: 20, TakeProfitPips: 40},
		Active: true,
	}
}

func snapshot(symbol string, rsi float64, closed bool) types.MarketSnapshot {
	at := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)

	return types.MarketSnapshot{
		Symbol:     symbol,
		Time:       at,
		Candle:     types.Candle{Time: at, Open: 1.1, High: 1.1, Low: 1.1, Close: 1.1},
		IsClosed:   closed,
		Indicators: map[string]float64{"rsi": rsi},
		Regime:     types.MarketRegimeUnknown,
	}
}

func (suite *PipelineTestSuite) dependencies() Dependencies {
	scorer, err := scoring.NewScorer(scoring.DefaultScorerConfig())
	suite.Require().NoError(err)

	engine, err := bayesian.NewEngine(bayesian.DefaultConfig())
	suite.Require().NoError(err)

	simulation := montecarlo.DefaultConfig()
	simulation.Seed = 42
	simulation.NumSimulations = 500

	return Dependencies{
		Evaluator: rules.NewEvaluator(nil, suite.log),
		History:   suite.history,
		Backtest:  backtest.NewEngine(backtest.DefaultConfig(), suite.log),
		Bayesian:  engine,
		Simulator: montecarlo.NewSimulator(simulation, suite.log),
		Scorer:    scorer,
		Gate:      scoring.NewGate(scoring.DefaultGateConfig()),
		Logger:    suite.log,
	}
}

func (suite *PipelineTestSuite) newPipeline(deps Dependencies, strategies ...types.StrategyDefinition) *Pipeline {
	p, err := New(DefaultConfig(), deps)
	suite.Require().NoError(err)

	for _, s := range strategies {
		suite.Require().NoError(p.Activate(s))
	}

	return p
}

func (suite *PipelineTestSuite) TestNewRequiresCollaborators() {
	_, err := New(DefaultConfig(), Dependencies{Logger: suite.log})
	suite.Error(err)
	suite.Equal(errors.ErrCodeInvalidConfiguration, errors.GetCode(err))
	suite.Contains(err.Error(), "history store")
}

func (suite *PipelineTestSuite) TestAcceptedSignalIsHandedOff() {
	suite.history.Add("rsi", suite.trades("rsi", 150, 93)...)

	distributor := mocks.NewMockDistributor(suite.ctrl)
	signals := mocks.NewMockSignalStore(suite.ctrl)
	received := make(chan types.Signal, 1)
	saved := make(chan types.Signal, 1)

	distributor.EXPECT().Name().Return("mock").AnyTimes()
	distributor.EXPECT().Distribute(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, signal types.Signal) error {
		received <- signal
		return nil
	})
	signals.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, signal types.Signal) error {
		saved <- signal
		return nil
	})

	deps := suite.dependencies()
	deps.Evaluator = rules.NewEvaluator(nil, suite.log).WithEquity(10000)
	deps.Distributors = []distribution.Distributor{distributor}
	deps.Signals = signals

	p := suite.newPipeline(deps, rsiStrategy("rsi"))
	outcomes := p.HandleSnapshot(context.Background(), snapshot("EURUSD", 25, true))
	p.Wait()

	suite.Require().Len(outcomes, 1)
	outcome := outcomes[0]
	suite.Require().Equal(StateAccepted, outcome.State, outcome.Reason())
	suite.True(outcome.Accepted())
	suite.Equal(150, outcome.Backtest.TotalTrades)
	suite.InDelta(62.0, outcome.Backtest.WinRate, 1e-9)
	suite.True(outcome.Backtest.Significant)
	suite.GreaterOrEqual(outcome.Backtest.SharpeRatio, 1.5)
	suite.InDelta(94.0/152.0, outcome.Posterior, 1e-9)
	suite.GreaterOrEqual(outcome.Score.Composite, 7.0)
	suite.Empty(outcome.Failures)

	signal := outcome.Signal.Unwrap()
	suite.True(signal.IsActive())
	suite.Equal("rsi", signal.Candidate.StrategyID)
	suite.Equal(signal.CreatedAt.Add(DefaultConfig().SignalTTL), signal.ExpiresAt)
	suite.Contains(signal.Explanation, "EURUSD")
	suite.Equal(signal.ID, (<-received).ID)

	stored := <-saved
	suite.Equal(signal.ID, stored.ID)

	// 95% interval of a 62% win rate over 150 trades
	suite.InDelta(54.23, signal.WinRateInterval.Lower, 0.01)
	suite.InDelta(69.77, signal.WinRateInterval.Upper, 0.01)
	suite.Equal(outcome.WinRateInterval, stored.WinRateInterval)

	// posterior 0.618 at R:R 2 expects about 0.85R per trade
	suite.InDelta(0.855, signal.Expectancy.ExpectedValueR, 0.3)
	suite.InDelta(outcome.Posterior, signal.Expectancy.ProbabilityPositive, 0.1)
	suite.Equal(outcome.Expectancy, stored.Expectancy)

	suite.Equal(181.82, signal.Candidate.PositionSize)
	suite.Contains(signal.Explanation, "95% CI 54.2-69.8%")
	suite.Contains(signal.Explanation, "size 181.82 at 2.0% of equity")
	suite.Contains(signal.Explanation, "R, ruin")
}

func (suite *PipelineTestSuite) TestSmallSampleIsRejected() {
	suite.history.Add("rsi", suite.trades("rsi", 40, 25)...)

	p := suite.newPipeline(suite.dependencies(), rsiStrategy("rsi"))
	outcomes := p.HandleSnapshot(context.Background(), snapshot("EURUSD", 25, true))

	suite.Require().Len(outcomes, 1)
	outcome := outcomes[0]
	suite.Equal(StateRejected, outcome.State)
	suite.NoError(outcome.Err)
	suite.False(outcome.Backtest.Significant)
	suite.True(outcome.Score.StatisticalCapped)
	suite.Less(outcome.Score.Composite, 7.0)
	suite.Contains(outcome.Failures, "trade count 40 below 100")
	suite.True(outcome.Signal.IsNone())
}

func (suite *PipelineTestSuite) TestNoHistoryIsRejectedWithPrior() {
	p := suite.newPipeline(suite.dependencies(), rsiStrategy("rsi"))
	outcomes := p.HandleSnapshot(context.Background(), snapshot("EURUSD", 25, true))

	suite.Require().Len(outcomes, 1)
	outcome := outcomes[0]
	suite.Equal(StateRejected, outcome.State)
	suite.NoError(outcome.Err)
	suite.Equal(0, outcome.Backtest.TotalTrades)
	suite.InDelta(0.5, outcome.Posterior, 1e-12)
	suite.Contains(outcome.Failures, "trade count 0 below 100")
}

func (suite *PipelineTestSuite) TestNoTriggerWithoutCandidate() {
	p := suite.newPipeline(suite.dependencies(), rsiStrategy("rsi"))

	suite.Empty(p.HandleSnapshot(context.Background(), snapshot("EURUSD", 55, true)))
	suite.Empty(p.HandleSnapshot(context.Background(), snapshot("EURUSD", 25, false)))
}

func (suite *PipelineTestSuite) TestOnlyMonitoredSymbols() {
	gbp := rsiStrategy("gbp")
	gbp.Symbols = []string{"GBPUSD"}

	p := suite.newPipeline(suite.dependencies(), gbp, rsiStrategy("all"))
	outcomes := p.HandleSnapshot(context.Background(), snapshot("EURUSD", 25, true))

	suite.Require().Len(outcomes, 1)
	suite.Equal("all", outcomes[0].StrategyID)

	outcomes = p.HandleSnapshot(context.Background(), snapshot("GBPUSD", 25, true))
	suite.Require().Len(outcomes, 2)
	suite.Equal("all", outcomes[0].StrategyID)
	suite.Equal("gbp", outcomes[1].StrategyID)
}

func (suite *PipelineTestSuite) TestActivateRejectsUnknownCondition() {
	p := suite.newPipeline(suite.dependencies())

	broken := rsiStrategy("broken")
	broken.Rules = []types.RuleCondition{{Type: types.RuleTypeTechnical, Condition: "moon_phase"}}

	err := p.Activate(broken)
	suite.Error(err)
	suite.True(errors.IsConfigurationError(err))
	suite.Empty(p.Strategies())
}

func (suite *PipelineTestSuite) TestActivateAndDeactivate() {
	p := suite.newPipeline(suite.dependencies(), rsiStrategy("b"), rsiStrategy("a"))

	strategies := p.Strategies()
	suite.Require().Len(strategies, 2)
	suite.Equal("a", strategies[0].ID)
	suite.Equal("b", strategies[1].ID)

	suite.True(p.Deactivate("a"))
	suite.False(p.Deactivate("a"))
	suite.Len(p.Strategies(), 1)

	outcomes := p.HandleSnapshot(context.Background(), snapshot("EURUSD", 25, true))
	suite.Require().Len(outcomes, 1)
	suite.Equal("b", outcomes[0].StrategyID)
}

func (suite *PipelineTestSuite) TestDeactivationCancelsInFlightEvaluation() {
	trades := mocks.NewMockStore(suite.ctrl)
	distributor := mocks.NewMockDistributor(suite.ctrl)
	signals := mocks.NewMockSignalStore(suite.ctrl)
	started := make(chan struct{})

	trades.EXPECT().Trades(gomock.Any(), "rsi").DoAndReturn(func(ctx context.Context, _ string) ([]types.HistoricalTrade, error) {
		close(started)
		<-ctx.Done()

		return nil, ctx.Err()
	})

	deps := suite.dependencies()
	deps.History = trades
	deps.Distributors = []distribution.Distributor{distributor}
	deps.Signals = signals

	p := suite.newPipeline(deps, rsiStrategy("rsi"))

	go func() {
		<-started
		p.Deactivate("rsi")
	}()

	outcomes := p.HandleSnapshot(context.Background(), snapshot("EURUSD", 25, true))
	p.Wait()

	suite.Require().Len(outcomes, 1)
	suite.Equal(StateRejected, outcomes[0].State)
	suite.Equal(errors.ErrCodeEvaluationCanceled, errors.GetCode(outcomes[0].Err))
	suite.True(outcomes[0].Signal.IsNone())
}

func (suite *PipelineTestSuite) TestEvaluationTimeout() {
	trades := mocks.NewMockStore(suite.ctrl)
	trades.EXPECT().Trades(gomock.Any(), "rsi").DoAndReturn(func(ctx context.Context, _ string) ([]types.HistoricalTrade, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	deps := suite.dependencies()
	deps.History = trades

	config := DefaultConfig()
	config.EvaluationTimeout = 20 * time.Millisecond

	p, err := New(config, deps)
	suite.Require().NoError(err)
	suite.Require().NoError(p.Activate(rsiStrategy("rsi")))

	outcomes := p.HandleSnapshot(context.Background(), snapshot("EURUSD", 25, true))
	suite.Require().Len(outcomes, 1)
	suite.Equal(errors.ErrCodeEvaluationAborted, errors.GetCode(outcomes[0].Err))
}

func (suite *PipelineTestSuite) TestHistoryFailureAbortsEvaluation() {
	trades := mocks.NewMockStore(suite.ctrl)
	trades.EXPECT().Trades(gomock.Any(), "rsi").Return(nil, fmt.Errorf("connection refused"))

	deps := suite.dependencies()
	deps.History = trades

	p := suite.newPipeline(deps, rsiStrategy("rsi"))
	outcomes := p.HandleSnapshot(context.Background(), snapshot("EURUSD", 25, true))

	suite.Require().Len(outcomes, 1)
	suite.Equal(StateRejected, outcomes[0].State)
	suite.Equal(errors.ErrCodeHistoricalDataFailed, errors.GetCode(outcomes[0].Err))
	suite.Contains(outcomes[0].Reason(), "connection refused")
}

func (suite *PipelineTestSuite) TestDeliveryFailureDoesNotChangeOutcome() {
	suite.history.Add("rsi", suite.trades("rsi", 150, 93)...)

	distributor := mocks.NewMockDistributor(suite.ctrl)
	distributor.EXPECT().Name().Return("broken").AnyTimes()
	distributor.EXPECT().Distribute(gomock.Any(), gomock.Any()).Return(fmt.Errorf("network down"))

	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	suite.Require().NoError(err)

	deps := suite.dependencies()
	deps.Distributors = []distribution.Distributor{distributor}
	deps.Metrics = m

	p := suite.newPipeline(deps, rsiStrategy("rsi"))
	outcomes := p.HandleSnapshot(context.Background(), snapshot("EURUSD", 25, true))
	p.Wait()

	suite.Require().Len(outcomes, 1)
	suite.True(outcomes[0].Accepted())
	suite.Equal(1.0, testutil.ToFloat64(m.Deliveries.WithLabelValues("broken", "failed")))
	suite.Equal(1.0, testutil.ToFloat64(m.Triggers.WithLabelValues("rsi")))
	suite.Equal(1.0, testutil.ToFloat64(m.Outcomes.WithLabelValues("rsi", string(StateAccepted))))
	suite.Equal(0.0, testutil.ToFloat64(m.InFlight))
}

func (suite *PipelineTestSuite) TestRejectionsAreRecorded() {
	suite.history.Add("rsi", suite.trades("rsi", 40, 25)...)

	recorder := mocks.NewMockRejectionRecorder(suite.ctrl)
	recorded := make(chan store.Rejection, 1)
	recorder.EXPECT().RecordRejection(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, rejection store.Rejection) error {
		recorded <- rejection
		return nil
	})

	deps := suite.dependencies()
	deps.Rejections = recorder

	p := suite.newPipeline(deps, rsiStrategy("rsi"))
	p.HandleSnapshot(context.Background(), snapshot("EURUSD", 25, true))
	p.Wait()

	rejection := <-recorded
	suite.Equal("rsi", rejection.Candidate.StrategyID)
	suite.Contains(rejection.Reasons, "trade count 40 below 100")
	suite.Empty(rejection.Error)
}

func (suite *PipelineTestSuite) TestRunConsumesFeed() {
	suite.history.Add("rsi", suite.trades("rsi", 150, 93)...)

	channel := distribution.NewChannelDistributor(4)
	deps := suite.dependencies()
	deps.Distributors = []distribution.Distributor{channel}

	p := suite.newPipeline(deps, rsiStrategy("rsi"))
	source := feed.NewSliceFeed(
		snapshot("EURUSD", 25, true),
		snapshot("EURUSD", 50, true),
		snapshot("EURUSD", 25, false),
	)

	summary, err := p.Run(context.Background(), source)
	suite.Require().NoError(err)
	p.Wait()

	suite.Equal(3, summary.Snapshots)
	suite.Equal(1, summary.Triggers)
	suite.Equal(1, summary.Accepted)
	suite.Equal(0, summary.Rejected)

	signal := <-channel.Signals()
	suite.Equal("rsi", signal.Candidate.StrategyID)
}

func (suite *PipelineTestSuite) TestRunClosesSignalOnFollowingCandle() {
	suite.history.Add("rsi", suite.trades("rsi", 150, 93)...)

	signals, err := store.NewDuckDBStore("", suite.log)
	suite.Require().NoError(err)
	defer signals.Close()

	deps := suite.dependencies()
	deps.Signals = signals
	deps.Lifecycle = lifecycle.NewManager(signals, suite.log)

	p := suite.newPipeline(deps, rsiStrategy("rsi"))

	at := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	candles := make([]types.MarketSnapshot, 0, 6)

	for i := range 6 {
		s := snapshot("EURUSD", 50, true)
		s.Time = at.Add(time.Duration(i) * time.Hour)
		s.Candle.Time = s.Time
		candles = append(candles, s)
	}

	// the first candle triggers with stop 1.098, the second trades through it
	candles[0].Indicators["rsi"] = 25
	candles[1].Candle.Low = 1.09

	summary, err := p.Run(context.Background(), feed.NewSliceFeed(candles...))
	suite.Require().NoError(err)
	p.Wait()

	suite.Equal(1, summary.Accepted)

	stored, err := signals.ListByStrategy(context.Background(), "rsi")
	suite.Require().NoError(err)
	suite.Require().Len(stored, 1)
	suite.Equal(types.SignalStatusClosed, stored[0].Status)
	suite.InDelta(-0.002, stored[0].RealizedPnL.Unwrap(), 1e-9)
	suite.True(candles[1].Time.Equal(stored[0].ClosedAt.Unwrap()))
}

func (suite *PipelineTestSuite) TestRunStopsOnCanceledContext() {
	p := suite.newPipeline(suite.dependencies(), rsiStrategy("rsi"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := p.Run(ctx, feed.NewSliceFeed(snapshot("EURUSD", 25, true)))
	suite.Error(err)
	suite.Equal(0, summary.Snapshots)
}

func (suite *PipelineTestSuite) TestOutcomeString() {
	outcome := Outcome{StrategyID: "rsi", Symbol: "EURUSD", State: StateRejected, Failures: []string{"score 6.00 below 7.00"}}
	suite.Equal("rsi EURUSD rejected score=0.00 (score 6.00 below 7.00)", outcome.String())
}
