package montecarlo

import (
	"context"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"
)

const stage = "monte_carlo"

// Config controls the simulator.
type Config struct {
	NumSimulations int `yaml:"num_simulations" json:"num_simulations" validate:"gt=0"`
	PathLength     int `yaml:"path_length" json:"path_length" validate:"gt=0"`
	// RuinThreshold is the drawdown from initial equity (0.20 = 20%) that counts as ruin.
	RuinThreshold float64 `yaml:"ruin_threshold" json:"ruin_threshold" validate:"gt=0,lte=1"`
	// MinEmpiricalTrades is the number of historical returns needed for bootstrap resampling.
	MinEmpiricalTrades int `yaml:"min_empirical_trades" json:"min_empirical_trades" validate:"gte=0"`
	// Seed fixes the random streams. Zero derives a seed from the clock.
	Seed int64 `yaml:"seed" json:"seed"`
	// MaxGoroutines bounds path parallelism. Zero uses GOMAXPROCS.
	MaxGoroutines int `yaml:"max_goroutines" json:"max_goroutines" validate:"gte=0"`
}

// DefaultConfig returns 10,000 paths of 100 trades with a 20% ruin threshold.
func DefaultConfig() Config {
	return Config{
		NumSimulations:     10000,
		PathLength:         100,
		RuinThreshold:      0.20,
		MinEmpiricalTrades: 30,
		Seed:               0,
		MaxGoroutines:      0,
	}
}

// ProgressFunc receives the number of completed paths. It may be called concurrently.
type ProgressFunc func(completed int)

// Simulator runs Monte Carlo equity-path simulations. It keeps no state between runs.
type Simulator struct {
	config Config
	logger *logger.Logger
}

// NewSimulator creates a simulator. Zero-valued fields fall back to DefaultConfig.
func NewSimulator(config Config, log *logger.Logger) *Simulator {
	defaults := DefaultConfig()

	if config.NumSimulations <= 0 {
		config.NumSimulations = defaults.NumSimulations
	}

	if config.PathLength <= 0 {
		config.PathLength = defaults.PathLength
	}

	if config.RuinThreshold <= 0 {
		config.RuinThreshold = defaults.RuinThreshold
	}

	if config.MinEmpiricalTrades <= 0 {
		config.MinEmpiricalTrades = defaults.MinEmpiricalTrades
	}

	if config.MaxGoroutines <= 0 {
		config.MaxGoroutines = runtime.GOMAXPROCS(0)
	}

	return &Simulator{
		config: config,
		logger: log.Named("montecarlo"),
	}
}

// Config returns the effective configuration.
func (s *Simulator) Config() Config {
	return s.config
}

type pathResult struct {
	finalReturn float64
	maxDrawdown float64
	ruined      bool
	nonFinite   bool
}

// Simulate runs numSimulations paths of pathLength trades using the configured seed.
func (s *Simulator) Simulate(ctx context.Context, stats types.SimulationStats, numSimulations, pathLength int) (types.SimulationResult, error) {
	return s.SimulateWithProgress(ctx, stats, numSimulations, pathLength, nil)
}

// SimulateWithProgress is Simulate with a progress callback.
func (s *Simulator) SimulateWithProgress(
	ctx context.Context,
	stats types.SimulationStats,
	numSimulations, pathLength int,
	progress ProgressFunc,
) (types.SimulationResult, error) {
	if numSimulations <= 0 || pathLength <= 0 {
		return types.SimulationResult{}, errors.Newf(errors.ErrCodeInvalidParameter,
			"simulation count and path length must be positive, got %d and %d", numSimulations, pathLength)
	}

	method, err := s.method(stats)
	if err != nil {
		return types.SimulationResult{}, err
	}

	seed := s.config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	paths := make([]pathResult, numSimulations)

	var (
		completed atomic.Int64
		canceled  atomic.Bool
	)

	iterator := iter.Iterator[pathResult]{MaxGoroutines: s.config.MaxGoroutines}
	iterator.ForEachIdx(paths, func(i int, path *pathResult) {
		if canceled.Load() {
			return
		}

		if ctx.Err() != nil {
			canceled.Store(true)
			return
		}

		rng := rand.New(rand.NewPCG(uint64(seed), uint64(i)))
		*path = s.runPath(rng, stats, method, pathLength)

		if progress != nil {
			progress(int(completed.Add(1)))
		}
	})

	if canceled.Load() || ctx.Err() != nil {
		return types.SimulationResult{}, errors.Wrap(errors.ErrCodeEvaluationCanceled, "simulation canceled", ctx.Err())
	}

	result, err := s.aggregate(paths, pathLength, seed, method)
	if err != nil {
		return types.SimulationResult{}, err
	}

	s.logger.Debug("simulation completed",
		zap.Int("paths", numSimulations),
		zap.String("method", string(method)),
		zap.Float64("prob_ruin", result.ProbRuin),
		zap.Float64("prob_profit", result.ProbProfit),
	)

	return result, nil
}

func (s *Simulator) method(stats types.SimulationStats) (types.SimulationMethod, error) {
	for _, r := range stats.Returns {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return "", errors.NewComputationError(stage, "historical returns contain non-finite values", nil)
		}
	}

	if len(stats.Returns) >= s.config.MinEmpiricalTrades {
		return types.SimulationMethodEmpirical, nil
	}

	if math.IsNaN(stats.WinRate) || stats.WinRate < 0 || stats.WinRate > 1 {
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "win rate must be within [0,1], got %v", stats.WinRate)
	}

	if !isFinite(stats.AvgWinPct) || !isFinite(stats.AvgLossPct) {
		return "", errors.NewComputationError(stage, "average win/loss must be finite", nil)
	}

	return types.SimulationMethodParametric, nil
}

func (s *Simulator) runPath(rng *rand.Rand, stats types.SimulationStats, method types.SimulationMethod, pathLength int) pathResult {
	equity := 1.0
	peak := 1.0
	result := pathResult{}

	for step := 0; step < pathLength; step++ {
		var r float64

		if method == types.SimulationMethodEmpirical {
			r = stats.Returns[rng.IntN(len(stats.Returns))]
		} else if rng.Float64() < stats.WinRate {
			r = math.Abs(stats.AvgWinPct)
		} else {
			r = -math.Abs(stats.AvgLossPct)
		}

		equity *= 1 + r
		if !isFinite(equity) {
			result.nonFinite = true
			return result
		}

		if equity <= 0 {
			equity = 0
		}

		if equity > peak {
			peak = equity
		}

		if dd := (peak - equity) / peak; dd > result.maxDrawdown {
			result.maxDrawdown = dd
		}

		if 1-equity >= s.config.RuinThreshold {
			result.ruined = true
		}

		if equity == 0 {
			break
		}
	}

	result.finalReturn = equity - 1

	return result
}

func (s *Simulator) aggregate(paths []pathResult, pathLength int, seed int64, method types.SimulationMethod) (types.SimulationResult, error) {
	n := float64(len(paths))
	finals := make([]float64, len(paths))

	var sum, ddSum float64

	var ruined, ddExceeds, profitable int

	for i, p := range paths {
		if p.nonFinite {
			return types.SimulationResult{}, errors.NewOverflowError(stage, "equity path %d overflowed", i)
		}

		finals[i] = p.finalReturn
		sum += p.finalReturn
		ddSum += p.maxDrawdown

		if p.ruined {
			ruined++
		}

		if p.maxDrawdown >= s.config.RuinThreshold {
			ddExceeds++
		}

		if p.finalReturn > 0 {
			profitable++
		}
	}

	mean := sum / n

	variance := 0.0
	for _, f := range finals {
		variance += (f - mean) * (f - mean)
	}

	std := math.Sqrt(variance / n)

	if !isFinite(mean) || !isFinite(std) {
		return types.SimulationResult{}, errors.NewOverflowError(stage, "final return statistics are not finite")
	}

	sort.Float64s(finals)

	return types.SimulationResult{
		NumSimulations:    len(paths),
		PathLength:        pathLength,
		Seed:              seed,
		Method:            method,
		MeanFinalReturn:   mean,
		StdFinalReturn:    std,
		MedianFinalReturn: percentile(finals, 50),
		Percentiles: types.Percentiles{
			P5:  percentile(finals, 5),
			P25: percentile(finals, 25),
			P50: percentile(finals, 50),
			P75: percentile(finals, 75),
			P95: percentile(finals, 95),
		},
		MeanMaxDrawdown:     ddSum / n,
		ProbDrawdownExceeds: float64(ddExceeds) / n,
		ProbRuin:            float64(ruined) / n,
		ProbProfit:          float64(profitable) / n,
		RuinThreshold:       s.config.RuinThreshold,
	}, nil
}

// percentile interpolates linearly between closest ranks of sorted values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}

	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))

	if lower == upper {
		return sorted[lower]
	}

	frac := rank - float64(lower)

	return sorted[lower] + (sorted[upper]-sorted[lower])*frac
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
