package types

// SimulationMethod names how Monte Carlo paths are generated.
type SimulationMethod string

const (
	// SimulationMethodEmpirical resamples historical per-trade returns with replacement.
	SimulationMethodEmpirical SimulationMethod = "empirical"
	// SimulationMethodParametric draws Bernoulli win/loss outcomes from summary statistics.
	SimulationMethodParametric SimulationMethod = "parametric"
)

// SimulationStats is the input to the Monte Carlo simulator.
type SimulationStats struct {
	// Returns are historical per-trade fractional returns.
	Returns []float64 `json:"returns,omitempty"`
	// WinRate in [0,1], used by the parametric method.
	WinRate float64 `json:"win_rate"`
	// AvgWinPct is the mean winning return as a positive fraction.
	AvgWinPct float64 `json:"avg_win_pct"`
	// AvgLossPct is the mean losing return as a positive fraction.
	AvgLossPct float64 `json:"avg_loss_pct"`
}

// Percentiles of the final return distribution.
type Percentiles struct {
	P5  float64 `json:"p5" yaml:"p5"`
	P25 float64 `json:"p25" yaml:"p25"`
	P50 float64 `json:"p50" yaml:"p50"`
	P75 float64 `json:"p75" yaml:"p75"`
	P95 float64 `json:"p95" yaml:"p95"`
}

// SimulationResult summarises the simulated path distribution.
// All probabilities are in [0,1].
type SimulationResult struct {
	NumSimulations      int              `json:"num_simulations" yaml:"num_simulations"`
	PathLength          int              `json:"path_length" yaml:"path_length"`
	Seed                int64            `json:"seed" yaml:"seed"`
	Method              SimulationMethod `json:"method" yaml:"method"`
	MeanFinalReturn     float64          `json:"mean_final_return" yaml:"mean_final_return"`
	StdFinalReturn      float64          `json:"std_final_return" yaml:"std_final_return"`
	MedianFinalReturn   float64          `json:"median_final_return" yaml:"median_final_return"`
	Percentiles         Percentiles      `json:"percentiles" yaml:"percentiles"`
	MeanMaxDrawdown     float64          `json:"mean_max_drawdown" yaml:"mean_max_drawdown"`
	ProbDrawdownExceeds float64          `json:"prob_drawdown_exceeds" yaml:"prob_drawdown_exceeds"`
	ProbRuin            float64          `json:"prob_ruin" yaml:"prob_ruin"`
	ProbProfit          float64          `json:"prob_profit" yaml:"prob_profit"`
	RuinThreshold       float64          `json:"ruin_threshold" yaml:"ruin_threshold"`
}

// TradeOutcome summarises simulated outcomes of a single setup in R multiples.
type TradeOutcome struct {
	ExpectedValueR      float64 `json:"expected_value_r" yaml:"expected_value_r"`
	ProbabilityPositive float64 `json:"probability_positive" yaml:"probability_positive"`
	StdR                float64 `json:"std_r" yaml:"std_r"`
}
