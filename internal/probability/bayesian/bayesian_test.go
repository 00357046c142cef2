package bayesian

import (
	"math"
	"testing"

	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/mocks"
	"github.com/stretchr/testify/suite"
)

type BayesianTestSuite struct {
	suite.Suite
	engine *Engine
}

func TestBayesianSuite(t *testing.T) {
	suite.Run(t, new(BayesianTestSuite))
}

func (suite *BayesianTestSuite) SetupTest() {
	engine, err := NewEngine(DefaultConfig())
	suite.Require().NoError(err)
	suite.engine = engine
}

func (suite *BayesianTestSuite) TestNoDataReturnsPriorMean() {
	suite.Equal(0.5, suite.engine.Posterior(types.PriorStats{}, types.FeatureEvidence{}))

	skewed, err := NewEngine(Config{PriorAlpha: 3, PriorBeta: 1, EvidenceWeight: 1})
	suite.Require().NoError(err)
	suite.Equal(0.75, skewed.Posterior(types.PriorStats{}, types.FeatureEvidence{}))
	suite.Equal(0.75, skewed.PriorMean())
}

func (suite *BayesianTestSuite) TestPosteriorMean() {
	// alpha = 1 + 6 + 2, beta = 1 + 4 + 0
	posterior := suite.engine.Posterior(types.PriorStats{Wins: 6, Losses: 4}, types.FeatureEvidence{Wins: 2})
	suite.InDelta(9.0/14.0, posterior, 1e-12)

	weighted, err := NewEngine(Config{PriorAlpha: 1, PriorBeta: 1, EvidenceWeight: 0.5})
	suite.Require().NoError(err)
	posterior = weighted.Posterior(types.PriorStats{Wins: 6, Losses: 4}, types.FeatureEvidence{Wins: 2, Losses: 2})
	suite.InDelta(8.0/14.0, posterior, 1e-12)
}

func (suite *BayesianTestSuite) TestMonotonicity() {
	evidence := types.FeatureEvidence{Wins: 5, Losses: 7}
	previous := -1.0

	for wins := 0; wins <= 200; wins += 5 {
		posterior := suite.engine.Posterior(types.PriorStats{Wins: wins, Losses: 30}, evidence)
		suite.GreaterOrEqual(posterior, previous)
		previous = posterior
	}

	previous = 2.0

	for losses := 0; losses <= 200; losses += 5 {
		posterior := suite.engine.Posterior(types.PriorStats{Wins: 30, Losses: losses}, evidence)
		suite.LessOrEqual(posterior, previous)
		previous = posterior
	}

	base := suite.engine.Posterior(types.PriorStats{Wins: 10, Losses: 10}, types.FeatureEvidence{})
	more := suite.engine.Posterior(types.PriorStats{Wins: 10, Losses: 10}, types.FeatureEvidence{Wins: 3})
	suite.Greater(more, base)
}

func (suite *BayesianTestSuite) TestNegativeCountsClamped() {
	posterior := suite.engine.Posterior(types.PriorStats{Wins: -5, Losses: -5}, types.FeatureEvidence{Wins: -1})
	suite.Equal(0.5, posterior)
	suite.False(math.IsNaN(posterior))
}

func (suite *BayesianTestSuite) TestInvalidConfig() {
	_, err := NewEngine(Config{PriorAlpha: 0, PriorBeta: 1, EvidenceWeight: 1})
	suite.Error(err)

	_, err = NewEngine(Config{PriorAlpha: 1, PriorBeta: math.NaN(), EvidenceWeight: 1})
	suite.Error(err)

	_, err = NewEngine(Config{PriorAlpha: 1, PriorBeta: 1, EvidenceWeight: -1})
	suite.Error(err)
}

func (suite *BayesianTestSuite) TestFromTrades() {
	config := mocks.DefaultTradeConfig()
	trades := mocks.NewDataGenerator(9).GenerateTrades(config)

	ranging := mocks.DefaultTradeConfig()
	ranging.Count = 10
	ranging.Wins = 2
	ranging.Regime = types.MarketRegimeRanging
	trades = append(trades, mocks.NewDataGenerator(10).GenerateTrades(ranging)...)

	prior := PriorFromTrades(trades)
	suite.Equal(95, prior.Wins)
	suite.Equal(65, prior.Losses)

	evidence := EvidenceFromTrades(trades, types.MarketRegimeTrending)
	suite.Equal(93, evidence.Wins)
	suite.Equal(57, evidence.Losses)
	suite.Equal(150, evidence.Total())

	evidence = EvidenceFromTrades(trades, types.MarketRegimeUnknown)
	suite.Equal(0, evidence.Total())

	posterior := suite.engine.Posterior(PriorFromTrades(trades[:150]), EvidenceFromTrades(trades[:150], types.MarketRegimeTrending))
	suite.GreaterOrEqual(posterior, 0.6)
}

func (suite *BayesianTestSuite) TestConfidenceInterval() {
	lower, upper := ConfidenceInterval(60, 5, 0.95)
	suite.Equal(0.0, lower)
	suite.Equal(100.0, upper)

	lower, upper = ConfidenceInterval(60, 100, 0.95)
	se := math.Sqrt(0.6 * 0.4 / 100)
	suite.InDelta((0.6-1.96*se)*100, lower, 1e-9)
	suite.InDelta((0.6+1.96*se)*100, upper, 1e-9)

	lower99, upper99 := ConfidenceInterval(60, 100, 0.99)
	suite.Less(lower99, lower)
	suite.Greater(upper99, upper)

	// unknown level falls back to 95%
	l, u := ConfidenceInterval(60, 100, 0.5)
	suite.Equal(lower, l)
	suite.Equal(upper, u)

	lower, upper = ConfidenceInterval(100, 50, 0.95)
	suite.Equal(100.0, lower)
	suite.Equal(100.0, upper)
}
