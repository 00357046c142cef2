package types

import (
	"math"
	"time"
)

// TradeCandidate is a proposed trade created by the rule evaluator.
// It is a value: a modified candidate is a new TradeCandidate.
type TradeCandidate struct {
	StrategyID   string    `json:"strategy_id"`
	StrategyName string    `json:"strategy_name"`
	Symbol       string    `json:"symbol"`
	Direction    Direction `json:"direction"`
	Entry        float64   `json:"entry_price"`
	Stop         float64   `json:"stop_loss"`
	Target       float64   `json:"take_profit"`
	// RiskPercent is the share of equity the position sizing rule used, in percent.
	RiskPercent float64 `json:"risk_percent"`
	// PositionSize is the quantity in instrument units. Zero when no equity is configured.
	PositionSize float64   `json:"position_size"`
	CreatedAt    time.Time `json:"created_at"`
}

// Risk is the absolute price distance between entry and stop.
func (c TradeCandidate) Risk() float64 {
	return math.Abs(c.Entry - c.Stop)
}

// Reward is the absolute price distance between entry and target.
func (c TradeCandidate) Reward() float64 {
	return math.Abs(c.Target - c.Entry)
}

// RiskReward returns reward/risk, or 0 when risk is zero.
func (c TradeCandidate) RiskReward() float64 {
	risk := c.Risk()
	if risk == 0 {
		return 0
	}

	return c.Reward() / risk
}
