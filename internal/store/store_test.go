package store

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type StoreTestSuite struct {
	suite.Suite
	store *DuckDBStore
	now   time.Time
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (suite *StoreTestSuite) SetupTest() {
	store, err := NewDuckDBStore("", logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.store = store
	suite.now = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
}

func (suite *StoreTestSuite) TearDownTest() {
	suite.Require().NoError(suite.store.Close())
}

func (suite *StoreTestSuite) newSignal(strategyID string, createdAt time.Time, ttl time.Duration) types.Signal {
	candidate := types.TradeCandidate{
		StrategyID:   strategyID,
		StrategyName: "RSI London",
		Symbol:       "EURUSD",
		Direction:    types.DirectionLong,
		Entry:        1.1,
		Stop:         1.098,
		Target:       1.104,
		CreatedAt:    createdAt,
	}
	backtest := types.BacktestResult{StrategyName: "RSI London", TotalTrades: 150, WinningTrades: 150, WinRate: 100, GrossProfit: 300, ProfitFactor: math.Inf(1)}
	score := types.SignalScore{Composite: 7.4, Confidence: types.ConfidenceMedium, RiskLevel: types.RiskLow}

	return types.NewSignal(candidate, backtest, types.SimulationResult{NumSimulations: 100}, score, 0.66, "rsi oversold in london", createdAt, ttl)
}

func (suite *StoreTestSuite) TestSaveAndGet() {
	ctx := context.Background()
	signal := suite.newSignal("rsi", suite.now, time.Hour)
	suite.Require().NoError(suite.store.Save(ctx, signal))

	loaded, err := suite.store.Get(ctx, signal.ID)
	suite.Require().NoError(err)
	suite.Require().True(loaded.IsSome())

	got := loaded.Unwrap()
	suite.Equal(signal.ID, got.ID)
	suite.Equal(signal.Candidate.Entry, got.Candidate.Entry)
	suite.Equal(7.4, got.Score.Composite)
	suite.True(math.IsInf(got.Backtest.ProfitFactor, 1))
	suite.Equal(types.SignalStatusActive, got.Status)
	suite.True(got.RealizedPnL.IsNone())
	suite.True(got.ClosedAt.IsNone())
	suite.True(signal.ExpiresAt.Equal(got.ExpiresAt))

	missing, err := suite.store.Get(ctx, "nope")
	suite.NoError(err)
	suite.True(missing.IsNone())
}

func (suite *StoreTestSuite) TestCloseSignal() {
	ctx := context.Background()
	signal := suite.newSignal("rsi", suite.now, time.Hour)
	suite.Require().NoError(suite.store.Save(ctx, signal))

	closed, err := suite.store.CloseSignal(ctx, signal.ID, 42.5, suite.now.Add(30*time.Minute))
	suite.Require().NoError(err)
	suite.Equal(types.SignalStatusClosed, closed.Status)

	loaded, err := suite.store.Get(ctx, signal.ID)
	suite.Require().NoError(err)
	got := loaded.Unwrap()
	suite.Equal(types.SignalStatusClosed, got.Status)
	suite.Equal(42.5, got.RealizedPnL.Unwrap())
	suite.True(suite.now.Add(30 * time.Minute).Equal(got.ClosedAt.Unwrap()))

	_, err = suite.store.CloseSignal(ctx, signal.ID, 1, suite.now)
	suite.Equal(errors.ErrCodeSignalNotActive, errors.GetCode(err))

	_, err = suite.store.CloseSignal(ctx, "missing", 1, suite.now)
	suite.Equal(errors.ErrCodeSignalNotFound, errors.GetCode(err))

	active, err := suite.store.ListActive(ctx)
	suite.NoError(err)
	suite.Empty(active)
}

func (suite *StoreTestSuite) TestExpireOverdue() {
	ctx := context.Background()
	short := suite.newSignal("rsi", suite.now, time.Hour)
	long := suite.newSignal("ema", suite.now.Add(time.Minute), 24*time.Hour)
	suite.Require().NoError(suite.store.Save(ctx, short))
	suite.Require().NoError(suite.store.Save(ctx, long))

	active, err := suite.store.ListActive(ctx)
	suite.Require().NoError(err)
	suite.Require().Len(active, 2)
	suite.Equal(short.ID, active[0].ID)

	expired, err := suite.store.ExpireOverdue(ctx, suite.now.Add(time.Hour))
	suite.Require().NoError(err)
	suite.Require().Len(expired, 1)
	suite.Equal(short.ID, expired[0].ID)
	suite.Equal(types.SignalStatusExpired, expired[0].Status)

	again, err := suite.store.ExpireOverdue(ctx, suite.now.Add(time.Hour))
	suite.NoError(err)
	suite.Empty(again)

	active, err = suite.store.ListActive(ctx)
	suite.Require().NoError(err)
	suite.Require().Len(active, 1)
	suite.Equal(long.ID, active[0].ID)

	byStrategy, err := suite.store.ListByStrategy(ctx, "rsi")
	suite.Require().NoError(err)
	suite.Require().Len(byStrategy, 1)
	suite.Equal(types.SignalStatusExpired, byStrategy[0].Status)
}

func (suite *StoreTestSuite) TestRejections() {
	ctx := context.Background()
	candidate := types.TradeCandidate{StrategyID: "rsi", Symbol: "EURUSD", Direction: types.DirectionShort, Entry: 1.1, Stop: 1.102, Target: 1.096}

	suite.Require().NoError(suite.store.RecordRejection(ctx, Rejection{
		Candidate:  candidate,
		Composite:  6.25,
		Reasons:    []string{"score 6.25 below 7.00", "trade count 40 below 100"},
		RejectedAt: suite.now,
	}))
	suite.Require().NoError(suite.store.RecordRejection(ctx, Rejection{
		Candidate:  candidate,
		Error:      "computation error",
		RejectedAt: suite.now.Add(time.Minute),
	}))

	rejections, err := suite.store.Rejections(ctx, "rsi")
	suite.Require().NoError(err)
	suite.Require().Len(rejections, 2)
	suite.NotEmpty(rejections[0].ID)
	suite.Equal([]string{"score 6.25 below 7.00", "trade count 40 below 100"}, rejections[0].Reasons)
	suite.Equal(types.DirectionShort, rejections[0].Candidate.Direction)
	suite.Empty(rejections[1].Reasons)
	suite.Equal("computation error", rejections[1].Error)

	none, err := suite.store.Rejections(ctx, "other")
	suite.NoError(err)
	suite.Empty(none)
}
