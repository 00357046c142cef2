package bayesian

import (
	"math"

	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// Config holds the Beta prior and the weight given to feature evidence.
type Config struct {
	// PriorAlpha and PriorBeta are the uninformative prior pseudo-counts.
	PriorAlpha float64 `yaml:"prior_alpha" json:"prior_alpha" validate:"gt=0"`
	PriorBeta  float64 `yaml:"prior_beta" json:"prior_beta" validate:"gt=0"`
	// EvidenceWeight scales the feature-matched pseudo-observations.
	EvidenceWeight float64 `yaml:"evidence_weight" json:"evidence_weight" validate:"gte=0"`
}

// DefaultConfig returns a uniform Beta(1,1) prior with unit evidence weight.
func DefaultConfig() Config {
	return Config{PriorAlpha: 1, PriorBeta: 1, EvidenceWeight: 1}
}

// Engine computes Beta-Binomial posterior win probabilities.
type Engine struct {
	config Config
}

// NewEngine validates the configuration and creates an engine.
func NewEngine(config Config) (*Engine, error) {
	if !(config.PriorAlpha > 0) || !(config.PriorBeta > 0) || math.IsInf(config.PriorAlpha, 0) || math.IsInf(config.PriorBeta, 0) {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration,
			"prior alpha and beta must be positive and finite, got %v and %v", config.PriorAlpha, config.PriorBeta)
	}

	if !(config.EvidenceWeight >= 0) || math.IsInf(config.EvidenceWeight, 0) {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration,
			"evidence weight must be non-negative and finite, got %v", config.EvidenceWeight)
	}

	return &Engine{config: config}, nil
}

// PriorMean is the posterior with no data at all.
func (e *Engine) PriorMean() float64 {
	return e.config.PriorAlpha / (e.config.PriorAlpha + e.config.PriorBeta)
}

// Posterior returns the posterior mean win probability in [0,1]:
//
//	alpha = priorAlpha + wins + w*evidenceWins
//	beta  = priorBeta + losses + w*evidenceLosses
//
// Negative counts are treated as zero.
func (e *Engine) Posterior(prior types.PriorStats, evidence types.FeatureEvidence) float64 {
	w := e.config.EvidenceWeight

	alpha := e.config.PriorAlpha + float64(max(prior.Wins, 0)) + w*float64(max(evidence.Wins, 0))
	beta := e.config.PriorBeta + float64(max(prior.Losses, 0)) + w*float64(max(evidence.Losses, 0))

	posterior := alpha / (alpha + beta)
	if math.IsNaN(posterior) || math.IsInf(posterior, 0) {
		return e.PriorMean()
	}

	return math.Min(1, math.Max(0, posterior))
}

// PriorFromTrades counts wins and losses over a strategy's history.
func PriorFromTrades(trades []types.HistoricalTrade) types.PriorStats {
	stats := types.PriorStats{}

	for _, trade := range trades {
		if trade.IsWin() {
			stats.Wins++
		} else {
			stats.Losses++
		}
	}

	return stats
}

// EvidenceFromTrades counts outcomes of trades entered in the same market regime.
// An unknown regime carries no evidence.
func EvidenceFromTrades(trades []types.HistoricalTrade, regime types.MarketRegime) types.FeatureEvidence {
	evidence := types.FeatureEvidence{Regime: regime}

	if regime == "" || regime == types.MarketRegimeUnknown {
		return evidence
	}

	for _, trade := range trades {
		if trade.Regime != regime {
			continue
		}

		if trade.IsWin() {
			evidence.Wins++
		} else {
			evidence.Losses++
		}
	}

	return evidence
}

var zScores = map[float64]float64{
	0.90: 1.645,
	0.95: 1.96,
	0.99: 2.576,
}

// ConfidenceInterval returns a normal-approximation interval for a win rate given in
// percent. Fewer than 10 trades yields the uninformative (0, 100). Unknown confidence
// levels use 95%.
func ConfidenceInterval(winRatePct float64, totalTrades int, level float64) (lower, upper float64) {
	if totalTrades < 10 {
		return 0, 100
	}

	z, ok := zScores[level]
	if !ok {
		z = zScores[0.95]
	}

	p := math.Min(1, math.Max(0, winRatePct/100))
	se := math.Sqrt(p * (1 - p) / float64(totalTrades))

	return math.Max(0, p-z*se) * 100, math.Min(1, p+z*se) * 100
}
