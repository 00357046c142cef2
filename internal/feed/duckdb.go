package feed

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-signal/internal/indicator"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"go.uber.org/zap"
)

// ReplayConfig selects the candles a ReplayFeed replays.
type ReplayConfig struct {
	// Symbols restricts the replay. Empty replays every symbol in the file.
	Symbols []string
	Start   optional.Option[time.Time]
	End     optional.Option[time.Time]
	// HistorySize is the number of previous candles attached to each snapshot.
	HistorySize int
}

// ReplayFeed replays closed candles from a CSV or Parquet file through DuckDB.
// Each snapshot carries the symbol's recent history and, when an enricher is set,
// the derived indicators and regime.
type ReplayFeed struct {
	db       *sql.DB
	config   ReplayConfig
	enricher *indicator.Enricher
	logger   *logger.Logger
	sq       squirrel.StatementBuilderType
}

// NewReplayFeed opens an in-memory DuckDB and exposes the candle file as the market_data view.
// The file needs time, symbol, open, high, low, close and volume columns.
func NewReplayFeed(path string, config ReplayConfig, enricher *indicator.Enricher, log *logger.Logger) (*ReplayFeed, error) {
	reader, err := readerFor(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	query := fmt.Sprintf(`CREATE VIEW market_data AS SELECT * FROM %s('%s');`, reader, strings.ReplaceAll(path, "'", "''"))
	if _, err := db.Exec(query); err != nil {
		_ = db.Close()

		return nil, errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to read candles from %s", path)
	}

	if config.HistorySize < 0 {
		config.HistorySize = 0
	}

	return &ReplayFeed{
		db:       db,
		config:   config,
		enricher: enricher,
		logger:   log.Named("feed"),
		sq:       squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

func readerFor(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "read_csv_auto", nil
	case ".parquet":
		return "read_parquet", nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "unsupported candle file %s: want .csv or .parquet", path)
	}
}

func (f *ReplayFeed) filter(builder squirrel.SelectBuilder) squirrel.SelectBuilder {
	if len(f.config.Symbols) > 0 {
		builder = builder.Where(squirrel.Eq{"symbol": f.config.Symbols})
	}

	if f.config.Start.IsSome() {
		builder = builder.Where(squirrel.GtOrEq{"CAST(time AS TIMESTAMP)": f.config.Start.Unwrap()})
	}

	if f.config.End.IsSome() {
		builder = builder.Where(squirrel.LtOrEq{"CAST(time AS TIMESTAMP)": f.config.End.Unwrap()})
	}

	return builder
}

// Count returns the number of candles the replay will yield.
func (f *ReplayFeed) Count(ctx context.Context) (int, error) {
	query, args, err := f.filter(f.sq.Select("COUNT(*)").From("market_data")).ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build count query", err)
	}

	var count int
	if err := f.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count candles", err)
	}

	return count, nil
}

// Stream implements Feed. Candles are replayed in time order, then by symbol.
func (f *ReplayFeed) Stream(ctx context.Context) iter.Seq2[types.MarketSnapshot, error] {
	return func(yield func(types.MarketSnapshot, error) bool) {
		query, args, err := f.filter(f.sq.Select(
			"CAST(time AS TIMESTAMP)",
			"CAST(symbol AS VARCHAR)",
			"CAST(open AS DOUBLE)",
			"CAST(high AS DOUBLE)",
			"CAST(low AS DOUBLE)",
			"CAST(close AS DOUBLE)",
			"CAST(volume AS DOUBLE)",
		).From("market_data").OrderBy("1 ASC", "2 ASC")).ToSql()
		if err != nil {
			yield(types.MarketSnapshot{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build replay query", err))
			return
		}

		rows, err := f.db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(types.MarketSnapshot{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query candles", err))
			return
		}
		defer rows.Close()

		histories := make(map[string][]types.Candle)
		replayed := 0

		for rows.Next() {
			if err := ctx.Err(); err != nil {
				yield(types.MarketSnapshot{}, errors.Wrap(errors.ErrCodeEvaluationCanceled, "feed canceled", err))
				return
			}

			var (
				symbol string
				candle types.Candle
			)

			if err := rows.Scan(&candle.Time, &symbol, &candle.Open, &candle.High, &candle.Low, &candle.Close, &candle.Volume); err != nil {
				if !yield(types.MarketSnapshot{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan candle", err)) {
					return
				}

				continue
			}

			history := histories[symbol]
			snapshot := types.MarketSnapshot{
				Symbol:   symbol,
				Time:     candle.Time,
				Candle:   candle,
				IsClosed: true,
				History:  append([]types.Candle(nil), history...),
				Regime:   types.MarketRegimeUnknown,
			}

			if f.enricher != nil {
				snapshot = f.enricher.Enrich(snapshot)
			}

			history = append(history, candle)
			if len(history) > f.config.HistorySize {
				history = history[len(history)-f.config.HistorySize:]
			}

			histories[symbol] = history
			replayed++

			if !yield(snapshot, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.MarketSnapshot{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate candles", err))
			return
		}

		f.logger.Debug("replay finished", zap.Int("candles", replayed))
	}
}

// Close releases the underlying database.
func (f *ReplayFeed) Close() error {
	return f.db.Close()
}
