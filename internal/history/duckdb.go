package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"go.uber.org/zap"
)

const tradesTable = "historical_trades"

var tradeColumns = []string{
	"strategy_id", "symbol", "direction", "entry_time", "exit_time",
	"entry_price", "exit_price", "pnl", "return_pct", "regime",
}

// DuckDBStore reads historical trades from a DuckDB database.
type DuckDBStore struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBStore opens the database at path and creates the trade table.
// An empty path opens an in-memory database.
func NewDuckDBStore(path string, log *logger.Logger) (*DuckDBStore, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open history database", err)
	}

	store := &DuckDBStore{
		db:     db,
		logger: log.Named("history"),
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
		CREATE TABLE IF NOT EXISTS historical_trades (
			strategy_id TEXT,
			symbol TEXT,
			direction TEXT,
			entry_time TIMESTAMP,
			exit_time TIMESTAMP,
			entry_price DOUBLE,
			exit_price DOUBLE,
			pnl DOUBLE,
			return_pct DOUBLE,
			regime TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create historical_trades table", err)
	}

	return nil
}

// Import loads trades from a CSV or Parquet file. The file must provide the
// strategy_id, symbol, direction, entry_time, exit_time, entry_price, exit_price
// and pnl columns; return_pct and regime may be null.
func (d *DuckDBStore) Import(ctx context.Context, path string) (int64, error) {
	var reader string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		reader = "read_csv_auto"
	case ".parquet":
		reader = "read_parquet"
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported history file: %s", path)
	}

	// read_* table functions do not accept bound parameters
	query := fmt.Sprintf(`
		INSERT INTO historical_trades
		SELECT
			CAST(strategy_id AS TEXT), CAST(symbol AS TEXT), CAST(direction AS TEXT),
			CAST(entry_time AS TIMESTAMP), CAST(exit_time AS TIMESTAMP),
			CAST(entry_price AS DOUBLE), CAST(exit_price AS DOUBLE), CAST(pnl AS DOUBLE),
			COALESCE(CAST(return_pct AS DOUBLE), 0), COALESCE(CAST(regime AS TEXT), '')
		FROM %s('%s')
	`, reader, strings.ReplaceAll(path, "'", "''"))

	result, err := d.db.ExecContext(ctx, query)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeHistoricalDataFailed, err, "failed to import trades from %s", path)
	}

	rows, _ := result.RowsAffected()

	d.logger.Info("imported historical trades", zap.String("path", path), zap.Int64("rows", rows))

	return rows, nil
}

// Insert stores trades in a single transaction.
func (d *DuckDBStore) Insert(ctx context.Context, trades ...types.HistoricalTrade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := d.sq.Insert(tradesTable).Columns(tradeColumns...)
	for _, trade := range trades {
		query = query.Values(
			trade.StrategyID, trade.Symbol, string(trade.Direction), trade.EntryTime.UTC(), trade.ExitTime.UTC(),
			trade.EntryPrice, trade.ExitPrice, trade.PnL, trade.ReturnPct, string(trade.Regime),
		)
	}

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		tx.Rollback()

		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := tx.ExecContext(ctx, sqlQuery, args...); err != nil {
		tx.Rollback()

		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert historical trades", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Trades implements Store.
func (d *DuckDBStore) Trades(ctx context.Context, strategyID string) ([]types.HistoricalTrade, error) {
	sqlQuery, args, err := d.sq.
		Select(tradeColumns...).
		From(tradesTable).
		Where(squirrel.Eq{"strategy_id": strategyID}).
		OrderBy("exit_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeHistoricalDataFailed, "failed to query historical trades", err)
	}
	defer rows.Close()

	trades := make([]types.HistoricalTrade, 0)

	for rows.Next() {
		var trade types.HistoricalTrade

		err := rows.Scan(
			&trade.StrategyID,
			&trade.Symbol,
			&trade.Direction,
			&trade.EntryTime,
			&trade.ExitTime,
			&trade.EntryPrice,
			&trade.ExitPrice,
			&trade.PnL,
			&trade.ReturnPct,
			&trade.Regime,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeHistoricalDataFailed, "failed to scan historical trade", err)
		}

		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeHistoricalDataFailed, "failed to read historical trades", err)
	}

	return types.SortByExitTime(trades), nil
}

// Close releases the database.
func (d *DuckDBStore) Close() error {
	return d.db.Close()
}
