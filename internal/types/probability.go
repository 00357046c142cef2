package types

// PriorStats are the win/loss counts of the strategy's own history.
type PriorStats struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
}

// FeatureEvidence are win/loss counts from trades that share the current market features.
type FeatureEvidence struct {
	Regime MarketRegime `json:"regime"`
	Wins   int          `json:"wins"`
	Losses int          `json:"losses"`
}

// Total returns the number of trades behind the evidence.
func (e FeatureEvidence) Total() int {
	return e.Wins + e.Losses
}

// Interval is a two-sided confidence interval, in percent.
type Interval struct {
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
}
