package scoring

import (
	"math"

	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// Weights of the three sub-scores in the composite. They must sum to 1 (±0.01).
type Weights struct {
	Statistical float64 `yaml:"statistical" json:"statistical" validate:"gte=0,lte=1"`
	Probability float64 `yaml:"probability" json:"probability" validate:"gte=0,lte=1"`
	Risk        float64 `yaml:"risk" json:"risk" validate:"gte=0,lte=1"`
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.Statistical + w.Probability + w.Risk
}

// ScorerConfig holds the weights and label thresholds.
type ScorerConfig struct {
	Weights Weights `yaml:"weights" json:"weights"`
	// NotSignificantCap is the ceiling of the statistical sub-score for small samples.
	NotSignificantCap float64 `yaml:"not_significant_cap" json:"not_significant_cap" validate:"gte=0,lte=10"`
	// SharpeCeiling is the Sharpe ratio that earns the full Sharpe half of the statistical sub-score.
	SharpeCeiling    float64 `yaml:"sharpe_ceiling" json:"sharpe_ceiling" validate:"gt=0"`
	HighConfidence   float64 `yaml:"high_confidence" json:"high_confidence" validate:"gte=0,lte=10"`
	MediumConfidence float64 `yaml:"medium_confidence" json:"medium_confidence" validate:"gte=0,lte=10"`
	// LowRiskMaxRuin and MediumRiskMaxRuin are ruin probabilities in [0,1].
	LowRiskMaxRuin    float64 `yaml:"low_risk_max_ruin" json:"low_risk_max_ruin" validate:"gte=0,lte=1"`
	MediumRiskMaxRuin float64 `yaml:"medium_risk_max_ruin" json:"medium_risk_max_ruin" validate:"gte=0,lte=1"`
}

// DefaultScorerConfig returns weights 0.40/0.35/0.25 and the documented label thresholds.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		Weights:           Weights{Statistical: 0.40, Probability: 0.35, Risk: 0.25},
		NotSignificantCap: 4.0,
		SharpeCeiling:     3.0,
		HighConfidence:    8.0,
		MediumConfidence:  6.0,
		LowRiskMaxRuin:    0.10,
		MediumRiskMaxRuin: 0.30,
	}
}

// Scorer turns backtest, posterior and simulation results into a SignalScore.
type Scorer struct {
	config ScorerConfig
}

// NewScorer validates the configuration and creates a scorer.
func NewScorer(config ScorerConfig) (*Scorer, error) {
	w := config.Weights
	for _, v := range []float64{w.Statistical, w.Probability, w.Risk} {
		if math.IsNaN(v) || v < 0 {
			return nil, errors.Newf(errors.ErrCodeInvalidWeights, "scoring weights must be non-negative, got %+v", w)
		}
	}

	if math.Abs(w.Sum()-1) > 0.01 {
		return nil, errors.Newf(errors.ErrCodeInvalidWeights, "scoring weights must sum to 1, got %.4f", w.Sum())
	}

	if !(config.SharpeCeiling > 0) {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "sharpe ceiling must be positive, got %v", config.SharpeCeiling)
	}

	if config.MediumConfidence > config.HighConfidence {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "medium confidence threshold must not exceed high")
	}

	if config.LowRiskMaxRuin > config.MediumRiskMaxRuin {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "low risk ruin threshold must not exceed medium")
	}

	return &Scorer{config: config}, nil
}

// Score computes the weighted composite in [0,10] and its labels.
func (s *Scorer) Score(backtest types.BacktestResult, probability float64, simulation types.SimulationResult) types.SignalScore {
	statistical := s.statistical(backtest)
	capped := false

	if !backtest.Significant && statistical > s.config.NotSignificantCap {
		statistical = s.config.NotSignificantCap
		capped = true
	}

	prob := clamp(sanitize(probability)*10, 0, 10)
	ruin := clamp(sanitize(simulation.ProbRuin), 0, 1)
	risk := clamp((1-ruin)*10, 0, 10)

	w := s.config.Weights
	composite := clamp(w.Statistical*statistical+w.Probability*prob+w.Risk*risk, 0, 10)

	return types.SignalScore{
		Composite:         composite,
		Statistical:       statistical,
		Probability:       prob,
		Risk:              risk,
		Confidence:        s.confidence(composite),
		RiskLevel:         s.riskLevel(ruin),
		StatisticalCapped: capped,
	}
}

// statistical averages the win rate (as 0..10) and the Sharpe ratio scaled against the ceiling.
func (s *Scorer) statistical(backtest types.BacktestResult) float64 {
	winPart := clamp(sanitize(backtest.WinRate)/10, 0, 10)
	sharpePart := math.Min(math.Max(sanitize(backtest.SharpeRatio), 0)/s.config.SharpeCeiling, 1) * 10

	return clamp(0.5*winPart+0.5*sharpePart, 0, 10)
}

func (s *Scorer) confidence(composite float64) types.ConfidenceLevel {
	switch {
	case composite >= s.config.HighConfidence:
		return types.ConfidenceHigh
	case composite >= s.config.MediumConfidence:
		return types.ConfidenceMedium
	default:
		return types.ConfidenceLow
	}
}

func (s *Scorer) riskLevel(ruin float64) types.RiskLevel {
	switch {
	case ruin <= s.config.LowRiskMaxRuin:
		return types.RiskLow
	case ruin <= s.config.MediumRiskMaxRuin:
		return types.RiskMedium
	default:
		return types.RiskHigh
	}
}

// sanitize maps NaN to 0 and infinities to the largest finite value of the same sign.
func sanitize(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	default:
		return v
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
