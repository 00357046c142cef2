package montecarlo

import (
	"math"
	"math/rand/v2"

	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// SimulateTradeOutcome draws n outcomes of one setup: +riskReward R with probability
// winProb, otherwise -1R.
func SimulateTradeOutcome(winProb, riskReward float64, n int, seed int64) (types.TradeOutcome, error) {
	if n <= 0 {
		return types.TradeOutcome{}, errors.Newf(errors.ErrCodeInvalidParameter, "simulation count must be positive, got %d", n)
	}

	if !(winProb >= 0 && winProb <= 1) || !isFinite(riskReward) || riskReward < 0 {
		return types.TradeOutcome{}, errors.Newf(errors.ErrCodeInvalidParameter,
			"win probability must be within [0,1] and risk reward non-negative, got %v and %v", winProb, riskReward)
	}

	rng := rand.New(rand.NewPCG(uint64(seed), 0))

	var sum, sumSq float64

	wins := 0

	for i := 0; i < n; i++ {
		outcome := -1.0
		if rng.Float64() < winProb {
			outcome = riskReward
		}

		if outcome > 0 {
			wins++
		}

		sum += outcome
		sumSq += outcome * outcome
	}

	mean := sum / float64(n)

	return types.TradeOutcome{
		ExpectedValueR:      mean,
		ProbabilityPositive: float64(wins) / float64(n),
		StdR:                math.Sqrt(math.Max(0, sumSq/float64(n)-mean*mean)),
	}, nil
}
