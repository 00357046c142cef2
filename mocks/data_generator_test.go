package mocks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type DataGeneratorTestSuite struct {
	suite.Suite
}

func TestDataGeneratorSuite(t *testing.T) {
	suite.Run(t, new(DataGeneratorTestSuite))
}

func (suite *DataGeneratorTestSuite) TestGenerateCandles() {
	gen := NewDataGenerator(42)
	config := DefaultConfig()
	config.Count = 100

	data := gen.GenerateCandles(config)
	suite.Len(data, 100)

	for i, d := range data {
		if i > 0 {
			suite.True(d.Time.After(data[i-1].Time), "index %d out of order", i)
		}

		suite.Positive(d.Open)
		suite.Positive(d.Low)
		suite.GreaterOrEqual(d.High, d.Low)
		suite.GreaterOrEqual(d.High, d.Close)
		suite.LessOrEqual(d.Low, d.Close)
	}
}

func (suite *DataGeneratorTestSuite) TestGenerateCandlesIsReproducible() {
	config := DefaultConfig()
	config.Count = 50

	a := NewDataGenerator(7).GenerateCandles(config)
	b := NewDataGenerator(7).GenerateCandles(config)
	suite.Equal(a, b)
}

func (suite *DataGeneratorTestSuite) TestGenerateSnapshots() {
	config := DefaultConfig()
	config.Count = 30

	snapshots := NewDataGenerator(1).GenerateSnapshots(config, 10)
	suite.Len(snapshots, 30)
	suite.Empty(snapshots[0].History)
	suite.Len(snapshots[5].History, 5)
	suite.Len(snapshots[29].History, 10)
	suite.Equal(snapshots[28].Candle, snapshots[29].History[9])
	suite.True(snapshots[29].IsClosed)
}

func (suite *DataGeneratorTestSuite) TestGenerateTrades() {
	config := DefaultTradeConfig()
	trades := NewDataGenerator(3).GenerateTrades(config)

	suite.Len(trades, 150)

	wins := 0
	for i, trade := range trades {
		if trade.IsWin() {
			wins++
			suite.InDelta(0.02, trade.ReturnPct, 1e-12)
		} else {
			suite.InDelta(-0.01, trade.ReturnPct, 1e-12)
		}

		if i > 0 {
			suite.Equal(config.Interval, trade.EntryTime.Sub(trades[i-1].EntryTime))
		}

		suite.Equal(12*time.Hour, trade.ExitTime.Sub(trade.EntryTime))
	}

	suite.Equal(93, wins)
}
