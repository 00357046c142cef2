package types

// ConfidenceLevel labels the composite score.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// RiskLevel labels the probability of ruin.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// SignalScore is the weighted quality score of a candidate. All scores are in [0,10].
type SignalScore struct {
	Composite         float64         `json:"composite" yaml:"composite"`
	Statistical       float64         `json:"statistical" yaml:"statistical"`
	Probability       float64         `json:"probability" yaml:"probability"`
	Risk              float64         `json:"risk" yaml:"risk"`
	Confidence        ConfidenceLevel `json:"confidence" yaml:"confidence"`
	RiskLevel         RiskLevel       `json:"risk_level" yaml:"risk_level"`
	StatisticalCapped bool            `json:"statistical_capped" yaml:"statistical_capped"`
}
