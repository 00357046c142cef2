package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"go.uber.org/zap"
)

// DuckDBStore keeps signals and rejections in a DuckDB database.
type DuckDBStore struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
	// mu serializes read-modify-write lifecycle transitions
	mu sync.Mutex
}

// NewDuckDBStore opens the database at path and creates the tables.
// An empty path opens an in-memory database.
func NewDuckDBStore(path string, log *logger.Logger) (*DuckDBStore, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSignalStoreFailed, "failed to open signal database", err)
	}

	store := &DuckDBStore{
		db:     db,
		logger: log.Named("signal_store"),
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := store.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return store, nil
}

func (d *DuckDBStore) initialize() error {
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			id TEXT PRIMARY KEY,
			strategy_id TEXT,
			symbol TEXT,
			direction TEXT,
			composite DOUBLE,
			status TEXT,
			created_at TIMESTAMP,
			expires_at TIMESTAMP,
			closed_at TIMESTAMP,
			realized_pnl DOUBLE,
			payload TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSignalStoreFailed, "failed to create signals table", err)
	}

	_, err = d.db.Exec(`
		CREATE TABLE IF NOT EXISTS rejections (
			id TEXT PRIMARY KEY,
			strategy_id TEXT,
			symbol TEXT,
			direction TEXT,
			entry DOUBLE,
			stop DOUBLE,
			target DOUBLE,
			composite DOUBLE,
			reasons TEXT,
			error TEXT,
			rejected_at TIMESTAMP
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSignalStoreFailed, "failed to create rejections table", err)
	}

	return nil
}

// Save implements SignalStore. Saving an existing ID replaces the stored signal.
func (d *DuckDBStore) Save(ctx context.Context, signal types.Signal) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.save(ctx, signal)
}

func (d *DuckDBStore) save(ctx context.Context, signal types.Signal) error {
	payload, err := json.Marshal(signal)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSignalStoreFailed, "failed to encode signal", err)
	}

	var closedAt any
	if signal.ClosedAt.IsSome() {
		closedAt = signal.ClosedAt.Unwrap().UTC()
	}

	var realizedPnL any
	if signal.RealizedPnL.IsSome() {
		realizedPnL = signal.RealizedPnL.Unwrap()
	}

	query, args, err := d.sq.
		Insert("signals").
		Options("OR REPLACE").
		Columns(
			"id", "strategy_id", "symbol", "direction", "composite", "status",
			"created_at", "expires_at", "closed_at", "realized_pnl", "payload",
		).
		Values(
			signal.ID, signal.Candidate.StrategyID, signal.Candidate.Symbol, string(signal.Candidate.Direction),
			signal.Score.Composite, string(signal.Status),
			signal.CreatedAt.UTC(), signal.ExpiresAt.UTC(), closedAt, realizedPnL, string(payload),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(errors.ErrCodeSignalStoreFailed, err, "failed to save signal %s", signal.ID)
	}

	return nil
}

// Get implements SignalStore.
func (d *DuckDBStore) Get(ctx context.Context, id string) (optional.Option[types.Signal], error) {
	signals, err := d.query(ctx, squirrel.Eq{"id": id})
	if err != nil {
		return optional.None[types.Signal](), err
	}

	if len(signals) == 0 {
		return optional.None[types.Signal](), nil
	}

	return optional.Some(signals[0]), nil
}

// ListActive implements SignalStore. Signals are ordered by creation time.
func (d *DuckDBStore) ListActive(ctx context.Context) ([]types.Signal, error) {
	return d.query(ctx, squirrel.Eq{"status": string(types.SignalStatusActive)})
}

// ListByStrategy returns every stored signal of a strategy.
func (d *DuckDBStore) ListByStrategy(ctx context.Context, strategyID string) ([]types.Signal, error) {
	return d.query(ctx, squirrel.Eq{"strategy_id": strategyID})
}

// CloseSignal implements SignalStore.
func (d *DuckDBStore) CloseSignal(ctx context.Context, id string, pnl float64, at time.Time) (types.Signal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	existing, err := d.Get(ctx, id)
	if err != nil {
		return types.Signal{}, err
	}

	if existing.IsNone() {
		return types.Signal{}, errors.Newf(errors.ErrCodeSignalNotFound, "signal %s not found", id)
	}

	closed, err := existing.Unwrap().Close(pnl, at)
	if err != nil {
		return types.Signal{}, errors.Wrap(errors.ErrCodeSignalNotActive, "failed to close signal", err)
	}

	if err := d.save(ctx, closed); err != nil {
		return types.Signal{}, err
	}

	d.logger.Info("signal closed", zap.String("id", id), zap.Float64("pnl", pnl))

	return closed, nil
}

// ExpireOverdue implements SignalStore.
func (d *DuckDBStore) ExpireOverdue(ctx context.Context, at time.Time) ([]types.Signal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	overdue, err := d.query(ctx, squirrel.And{
		squirrel.Eq{"status": string(types.SignalStatusActive)},
		squirrel.LtOrEq{"expires_at": at.UTC()},
	})
	if err != nil {
		return nil, err
	}

	expired := make([]types.Signal, 0, len(overdue))

	for _, signal := range overdue {
		next, err := signal.Expire(at)
		if err != nil {
			continue
		}

		if err := d.save(ctx, next); err != nil {
			return expired, err
		}

		expired = append(expired, next)
	}

	if len(expired) > 0 {
		d.logger.Info("signals expired", zap.Int("count", len(expired)))
	}

	return expired, nil
}

func (d *DuckDBStore) query(ctx context.Context, where squirrel.Sqlizer) ([]types.Signal, error) {
	query, args, err := d.sq.
		Select("payload", "status", "closed_at", "realized_pnl").
		From("signals").
		Where(where).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSignalStoreFailed, "failed to query signals", err)
	}
	defer rows.Close()

	signals := make([]types.Signal, 0)

	for rows.Next() {
		var (
			payload     string
			status      string
			closedAt    sql.NullTime
			realizedPnL sql.NullFloat64
		)

		if err := rows.Scan(&payload, &status, &closedAt, &realizedPnL); err != nil {
			return nil, errors.Wrap(errors.ErrCodeSignalStoreFailed, "failed to scan signal", err)
		}

		var signal types.Signal
		if err := json.Unmarshal([]byte(payload), &signal); err != nil {
			return nil, errors.Wrap(errors.ErrCodeSignalStoreFailed, "failed to decode signal", err)
		}

		// the columns are authoritative for lifecycle state
		signal.Status = types.SignalStatus(status)
		signal.ClosedAt = optional.None[time.Time]()
		signal.RealizedPnL = optional.None[float64]()

		if closedAt.Valid {
			signal.ClosedAt = optional.Some(closedAt.Time)
		}

		if realizedPnL.Valid {
			signal.RealizedPnL = optional.Some(realizedPnL.Float64)
		}

		signals = append(signals, signal)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSignalStoreFailed, "failed to read signals", err)
	}

	return signals, nil
}

// RecordRejection implements RejectionRecorder.
func (d *DuckDBStore) RecordRejection(ctx context.Context, rejection Rejection) error {
	if rejection.ID == "" {
		rejection.ID = uuid.New().String()
	}

	candidate := rejection.Candidate

	query, args, err := d.sq.
		Insert("rejections").
		Columns(
			"id", "strategy_id", "symbol", "direction", "entry", "stop", "target",
			"composite", "reasons", "error", "rejected_at",
		).
		Values(
			rejection.ID, candidate.StrategyID, candidate.Symbol, string(candidate.Direction),
			candidate.Entry, candidate.Stop, candidate.Target, rejection.Composite,
			strings.Join(rejection.Reasons, "; "), rejection.Error, rejection.RejectedAt.UTC(),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(errors.ErrCodeSignalStoreFailed, "failed to record rejection", err)
	}

	return nil
}

// Rejections returns the recorded rejections of a strategy, oldest first.
func (d *DuckDBStore) Rejections(ctx context.Context, strategyID string) ([]Rejection, error) {
	query, args, err := d.sq.
		Select(
			"id", "strategy_id", "symbol", "direction", "entry", "stop", "target",
			"composite", "reasons", "error", "rejected_at",
		).
		From("rejections").
		Where(squirrel.Eq{"strategy_id": strategyID}).
		OrderBy("rejected_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSignalStoreFailed, "failed to query rejections", err)
	}
	defer rows.Close()

	rejections := make([]Rejection, 0)

	for rows.Next() {
		var (
			rejection Rejection
			reasons   string
		)

		err := rows.Scan(
			&rejection.ID,
			&rejection.Candidate.StrategyID,
			&rejection.Candidate.Symbol,
			&rejection.Candidate.Direction,
			&rejection.Candidate.Entry,
			&rejection.Candidate.Stop,
			&rejection.Candidate.Target,
			&rejection.Composite,
			&reasons,
			&rejection.Error,
			&rejection.RejectedAt,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeSignalStoreFailed, "failed to scan rejection", err)
		}

		if reasons != "" {
			rejection.Reasons = strings.Split(reasons, "; ")
		}

		rejections = append(rejections, rejection)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSignalStoreFailed, "failed to read rejections", err)
	}

	return rejections, nil
}

// Close releases the database.
func (d *DuckDBStore) Close() error {
	return d.db.Close()
}
