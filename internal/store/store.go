package store

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-signal/internal/types"
)

// SignalStore persists emitted signals and their lifecycle transitions.
type SignalStore interface {
	Save(ctx context.Context, signal types.Signal) error
	Get(ctx context.Context, id string) (optional.Option[types.Signal], error)
	ListActive(ctx context.Context) ([]types.Signal, error)
	// CloseSignal records the realized PnL of an active signal.
	CloseSignal(ctx context.Context, id string, pnl float64, at time.Time) (types.Signal, error)
	// ExpireOverdue expires every active signal whose expiry is at or before at.
	ExpireOverdue(ctx context.Context, at time.Time) ([]types.Signal, error)
}

// Rejection is a candidate that did not become a signal.
type Rejection struct {
	ID         string               `json:"id"`
	Candidate  types.TradeCandidate `json:"candidate"`
	Composite  float64              `json:"composite"`
	Reasons    []string             `json:"reasons"`
	Error      string               `json:"error,omitempty"`
	RejectedAt time.Time            `json:"rejected_at"`
}

// RejectionRecorder stores rejected candidates for later analysis.
type RejectionRecorder interface {
	RecordRejection(ctx context.Context, rejection Rejection) error
}
