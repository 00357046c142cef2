package scoring

import (
	"math"
	"testing"

	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ScoringTestSuite struct {
	suite.Suite
	scorer *Scorer
	gate   *Gate
}

func TestScoringSuite(t *testing.T) {
	suite.Run(t, new(ScoringTestSuite))
}

func (suite *ScoringTestSuite) SetupTest() {
	scorer, err := NewScorer(DefaultScorerConfig())
	suite.Require().NoError(err)
	suite.scorer = scorer
	suite.gate = NewGate(DefaultGateConfig())
}

func backtestWith(trades int, winRate, sharpe float64) types.BacktestResult {
	return types.BacktestResult{
		TotalTrades:   trades,
		WinningTrades: int(float64(trades) * winRate / 100),
		WinRate:       winRate,
		SharpeRatio:   sharpe,
		Significant:   trades >= 100,
	}
}

func (suite *ScoringTestSuite) TestAcceptedScenario() {
	backtest := backtestWith(150, 60, 1.8)
	score := suite.scorer.Score(backtest, 0.65, types.SimulationResult{ProbRuin: 0.05})

	suite.InDelta(6.0, score.Statistical, 1e-9)
	suite.InDelta(6.5, score.Probability, 1e-9)
	suite.InDelta(9.5, score.Risk, 1e-9)
	suite.InDelta(7.05, score.Composite, 1e-9)
	suite.False(score.StatisticalCapped)
	suite.Equal(types.ConfidenceMedium, score.Confidence)
	suite.Equal(types.RiskLow, score.RiskLevel)

	result := suite.gate.Check(score, 0.65, backtest)
	suite.True(result.Passed)
	suite.Empty(result.Failures)
}

func (suite *ScoringTestSuite) TestSmallSampleIsCapped() {
	backtest := backtestWith(40, 60, 1.8)
	score := suite.scorer.Score(backtest, 0.65, types.SimulationResult{ProbRuin: 0.05})

	suite.True(score.StatisticalCapped)
	suite.Equal(4.0, score.Statistical)
	suite.InDelta(6.25, score.Composite, 1e-9)
	suite.Less(score.Composite, 7.0)

	result := suite.gate.Check(score, 0.65, backtest)
	suite.False(result.Passed)
	suite.Len(result.Failures, 2)
	suite.Contains(result.Failures[0], "score")
	suite.Contains(result.Failures[1], "trade count")
}

func (suite *ScoringTestSuite) TestClampedUnderExtremes() {
	cases := []struct {
		backtest    types.BacktestResult
		probability float64
		ruin        float64
	}{
		{backtestWith(1000, 100, 1000), 1, 0},
		{backtestWith(1000, 1000, math.Inf(1)), 5, -3},
		{backtestWith(1000, -50, -1000), -1, 4},
		{backtestWith(1000, math.NaN(), math.NaN()), math.NaN(), math.NaN()},
		{backtestWith(0, 0, 0), 0, 1},
	}

	for _, c := range cases {
		score := suite.scorer.Score(c.backtest, c.probability, types.SimulationResult{ProbRuin: c.ruin})
		for _, v := range []float64{score.Composite, score.Statistical, score.Probability, score.Risk} {
			suite.False(math.IsNaN(v))
			suite.GreaterOrEqual(v, 0.0)
			suite.LessOrEqual(v, 10.0)
		}
	}

	perfect := suite.scorer.Score(backtestWith(1000, 100, 1000), 1, types.SimulationResult{ProbRuin: 0})
	suite.InDelta(10.0, perfect.Composite, 1e-9)
	suite.Equal(types.ConfidenceHigh, perfect.Confidence)
}

func (suite *ScoringTestSuite) TestLabels() {
	score := suite.scorer.Score(backtestWith(200, 50, 0), 0.3, types.SimulationResult{ProbRuin: 0.2})
	suite.Equal(types.ConfidenceLow, score.Confidence)
	suite.Equal(types.RiskMedium, score.RiskLevel)

	score = suite.scorer.Score(backtestWith(200, 50, 0), 0.3, types.SimulationResult{ProbRuin: 0.31})
	suite.Equal(types.RiskHigh, score.RiskLevel)
}

func (suite *ScoringTestSuite) TestInvalidWeights() {
	config := DefaultScorerConfig()
	config.Weights.Risk = 0.5

	_, err := NewScorer(config)
	suite.Error(err)
	suite.Equal(errors.ErrCodeInvalidWeights, errors.GetCode(err))

	config = DefaultScorerConfig()
	config.Weights = Weights{Statistical: 1.2, Probability: -0.2, Risk: 0}
	_, err = NewScorer(config)
	suite.Equal(errors.ErrCodeInvalidWeights, errors.GetCode(err))

	config = DefaultScorerConfig()
	config.Weights = Weights{Statistical: 0.4, Probability: 0.35, Risk: 0.255}
	_, err = NewScorer(config)
	suite.NoError(err)

	config = DefaultScorerConfig()
	config.SharpeCeiling = 0
	_, err = NewScorer(config)
	suite.Error(err)
}

func (suite *ScoringTestSuite) TestGateIsConjunctive() {
	backtest := backtestWith(150, 50, 2.0)
	score := types.SignalScore{Composite: 9.0}

	result := suite.gate.Check(score, 0.9, backtest)
	suite.False(result.Passed)
	suite.Equal([]string{"win rate 50.00% below 55.00%"}, result.Failures)
}

func (suite *ScoringTestSuite) TestGateReportsEveryFailure() {
	result := suite.gate.Check(types.SignalScore{Composite: 2}, 0.4, backtestWith(0, 0, 0))
	suite.False(result.Passed)
	suite.Len(result.Failures, 5)

	result = suite.gate.Check(types.SignalScore{Composite: math.NaN()}, math.NaN(), backtestWith(200, 60, 2))
	suite.False(result.Passed)
	suite.Len(result.Failures, 2)
}

func (suite *ScoringTestSuite) TestOptionalGateCriteria() {
	config := DefaultGateConfig()
	config.MaxDrawdown = 20
	config.MinProfitFactor = 1.5
	gate := NewGate(config)

	backtest := backtestWith(200, 60, 2)
	backtest.MaxDrawdown = 25
	backtest.ProfitFactor = 1.2

	result := gate.Check(types.SignalScore{Composite: 8}, 0.7, backtest)
	suite.False(result.Passed)
	suite.Len(result.Failures, 2)

	backtest.MaxDrawdown = 10
	backtest.ProfitFactor = math.Inf(1)
	suite.True(gate.Check(types.SignalScore{Composite: 8}, 0.7, backtest).Passed)

	// disabled by default
	backtest.MaxDrawdown = 90
	backtest.ProfitFactor = 0.1
	suite.True(suite.gate.Check(types.SignalScore{Composite: 8}, 0.7, backtest).Passed)
}
