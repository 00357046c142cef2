package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
)

// SignalStatus is the lifecycle state of an emitted signal.
type SignalStatus string

const (
	SignalStatusActive  SignalStatus = "active"
	SignalStatusClosed  SignalStatus = "closed"
	SignalStatusExpired SignalStatus = "expired"
)

// Signal is a validated, scored trade recommendation that passed the quality gate.
// A Signal is a value: lifecycle transitions return a new Signal.
type Signal struct {
	ID         string           `json:"id"`
	Candidate  TradeCandidate   `json:"candidate"`
	Backtest   BacktestResult   `json:"backtest"`
	Simulation SimulationResult `json:"simulation"`
	Score      SignalScore      `json:"score"`
	Posterior  float64          `json:"posterior_probability"`
	// WinRateInterval is the 95% confidence interval of the backtest win rate.
	WinRateInterval Interval `json:"win_rate_interval"`
	// Expectancy is the simulated outcome of this setup at the posterior win probability.
	Expectancy  TradeOutcome               `json:"expectancy"`
	Explanation string                     `json:"explanation"`
	CreatedAt   time.Time                  `json:"created_at"`
	ExpiresAt   time.Time                  `json:"expires_at"`
	Status      SignalStatus               `json:"status"`
	RealizedPnL optional.Option[float64]   `json:"realized_pnl"`
	ClosedAt    optional.Option[time.Time] `json:"closed_at"`
}

// NewSignal creates an active signal with a fresh ID.
func NewSignal(
	candidate TradeCandidate,
	backtest BacktestResult,
	simulation SimulationResult,
	score SignalScore,
	posterior float64,
	explanation string,
	createdAt time.Time,
	ttl time.Duration,
) Signal {
	return Signal{
		ID:          uuid.New().String(),
		Candidate:   candidate,
		Backtest:    backtest,
		Simulation:  simulation,
		Score:       score,
		Posterior:   posterior,
		Explanation: explanation,
		CreatedAt:   createdAt,
		ExpiresAt:   createdAt.Add(ttl),
		Status:      SignalStatusActive,
		RealizedPnL: optional.None[float64](),
		ClosedAt:    optional.None[time.Time](),
	}
}

// IsActive reports whether the signal can still be acted on.
func (s Signal) IsActive() bool {
	return s.Status == SignalStatusActive
}

// IsExpiredAt reports whether an active signal has passed its expiry at the given time.
func (s Signal) IsExpiredAt(at time.Time) bool {
	return s.IsActive() && !s.ExpiresAt.IsZero() && !at.Before(s.ExpiresAt)
}

// Close returns a closed copy of the signal with the realized PnL recorded.
func (s Signal) Close(pnl float64, at time.Time) (Signal, error) {
	if !s.IsActive() {
		return s, fmt.Errorf("cannot close signal %s in status %s", s.ID, s.Status)
	}

	closed := s
	closed.Status = SignalStatusClosed
	closed.RealizedPnL = optional.Some(pnl)
	closed.ClosedAt = optional.Some(at)

	return closed, nil
}

// Expire returns an expired copy of the signal.
func (s Signal) Expire(at time.Time) (Signal, error) {
	if !s.IsActive() {
		return s, fmt.Errorf("cannot expire signal %s in status %s", s.ID, s.Status)
	}

	expired := s
	expired.Status = SignalStatusExpired
	expired.ClosedAt = optional.Some(at)

	return expired, nil
}
