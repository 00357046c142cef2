package montecarlo

import (
	"math"

	"github.com/rxtech-lab/argo-signal/internal/types"
)

// StatsFromTrades derives simulator input from a strategy's history: the
// chronological return series plus the win rate and mean win/loss magnitudes
// used when the series is too short to resample.
func StatsFromTrades(trades []types.HistoricalTrade, initialCapital float64) types.SimulationStats {
	returns := types.TradeReturns(trades, initialCapital)
	stats := types.SimulationStats{Returns: returns}

	if len(returns) == 0 {
		return stats
	}

	var (
		wins, losses       int
		sumWins, sumLosses float64
	)

	for _, r := range returns {
		if r > 0 {
			wins++
			sumWins += r
		} else {
			losses++
			sumLosses += math.Abs(r)
		}
	}

	stats.WinRate = float64(wins) / float64(len(returns))

	if wins > 0 {
		stats.AvgWinPct = sumWins / float64(wins)
	}

	if losses > 0 {
		stats.AvgLossPct = sumLosses / float64(losses)
	}

	return stats
}
