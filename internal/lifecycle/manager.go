package lifecycle

import (
	"context"
	"strings"
	"time"

	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/store"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Outcome is the exit a candle produced for an active signal.
type Outcome string

const (
	OutcomeNone       Outcome = ""
	OutcomeStopLoss   Outcome = "stop_loss"
	OutcomeTakeProfit Outcome = "take_profit"
)

// CheckOutcome reports whether the candle reached the signal's stop or target and
// the realized PnL per unit at that level. When both are inside the candle's range
// the stop is assumed to fill first.
func CheckOutcome(candidate types.TradeCandidate, candle types.Candle) (Outcome, float64) {
	var outcome Outcome

	switch candidate.Direction {
	case types.DirectionShort:
		switch {
		case candle.High >= candidate.Stop:
			outcome = OutcomeStopLoss
		case candle.Low <= candidate.Target:
			outcome = OutcomeTakeProfit
		}
	default:
		switch {
		case candle.Low <= candidate.Stop:
			outcome = OutcomeStopLoss
		case candle.High >= candidate.Target:
			outcome = OutcomeTakeProfit
		}
	}

	if outcome == OutcomeNone {
		return OutcomeNone, 0
	}

	exit := candidate.Target
	if outcome == OutcomeStopLoss {
		exit = candidate.Stop
	}

	pnl := decimal.NewFromFloat(exit).Sub(decimal.NewFromFloat(candidate.Entry))
	if candidate.Direction == types.DirectionShort {
		pnl = pnl.Neg()
	}

	return outcome, pnl.Round(5).InexactFloat64()
}

// Manager moves stored signals through their lifecycle: expiry and stop/target exits.
type Manager struct {
	store  store.SignalStore
	logger *logger.Logger
	now    func() time.Time
}

func NewManager(signals store.SignalStore, log *logger.Logger) *Manager {
	return &Manager{
		store:  signals,
		logger: log.Named("lifecycle"),
		now:    time.Now,
	}
}

// Observe closes the active signals on the snapshot's symbol whose stop or target
// the snapshot's candle reached, then expires overdue signals as of the snapshot time.
// Only signals created before the snapshot are considered.
func (m *Manager) Observe(ctx context.Context, snapshot types.MarketSnapshot) ([]types.Signal, error) {
	active, err := m.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	at := snapshot.Time
	changed := make([]types.Signal, 0)

	for _, signal := range active {
		if !strings.EqualFold(signal.Candidate.Symbol, snapshot.Symbol) || !signal.CreatedAt.Before(at) {
			continue
		}

		if signal.IsExpiredAt(at) {
			continue
		}

		outcome, pnl := CheckOutcome(signal.Candidate, snapshot.Candle)
		if outcome == OutcomeNone {
			continue
		}

		closed, err := m.store.CloseSignal(ctx, signal.ID, pnl, at)
		if err != nil {
			m.logger.Warn("failed to close signal", zap.String("id", signal.ID), zap.Error(err))

			continue
		}

		m.logger.Info("signal exit",
			zap.String("id", signal.ID),
			zap.String("outcome", string(outcome)),
			zap.Float64("pnl", pnl),
		)

		changed = append(changed, closed)
	}

	expired, err := m.store.ExpireOverdue(ctx, at)
	if err != nil {
		return changed, err
	}

	return append(changed, expired...), nil
}

// ExpireOverdue expires active signals as of the current time.
func (m *Manager) ExpireOverdue(ctx context.Context) ([]types.Signal, error) {
	return m.store.ExpireOverdue(ctx, m.now())
}

// Run sweeps expired signals every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := m.ExpireOverdue(ctx); err != nil {
				m.logger.Warn("expiry sweep failed", zap.Error(err))
			}
		}
	}
}
