package main

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rxtech-lab/argo-signal/internal/backtest"
	"github.com/rxtech-lab/argo-signal/internal/config"
	"github.com/rxtech-lab/argo-signal/internal/feed"
	"github.com/rxtech-lab/argo-signal/internal/history"
	"github.com/rxtech-lab/argo-signal/internal/probability/montecarlo"
	"github.com/rxtech-lab/argo-signal/internal/store"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/strategy"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// progressFeed advances a progress bar for every snapshot the wrapped feed yields.
type progressFeed struct {
	feed.Feed
	bar *progressbar.ProgressBar
}

func (p progressFeed) Stream(ctx context.Context) iter.Seq2[types.MarketSnapshot, error] {
	return func(yield func(types.MarketSnapshot, error) bool) {
		for snapshot, err := range p.Feed.Stream(ctx) {
			if err == nil {
				_ = p.bar.Add(1)
			}

			if !yield(snapshot, err) {
				return
			}
		}
	}
}

func printYAML(v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}

	_, err = os.Stdout.Write(data)

	return err
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Replay a candle file through the signal pipeline",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "candles",
				Usage:    "CSV or Parquet file with time, symbol, open, high, low, close and volume columns",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "strategies",
				Usage:    "Directory of strategy definitions (YAML or JSON)",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:  "symbol",
				Usage: "Only replay these symbols",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Reload strategies when files in the strategy directory change",
			},
			&cli.BoolFlag{
				Name:  "serve",
				Usage: "Keep the WebSocket hub and metrics endpoint running after the replay until interrupted",
			},
			&cli.BoolFlag{
				Name:  "progress",
				Usage: "Show a progress bar",
				Value: true,
			},
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg := configFrom(ctx)
	log := loggerFrom(ctx)

	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := buildServices(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	watcher := strategy.NewWatcher(cmd.String("strategies"), svc.pipeline, strategy.DefaultDebounce, log)
	if err := watcher.Sync(); err != nil {
		return err
	}

	if len(svc.pipeline.Strategies()) == 0 {
		return fmt.Errorf("no active strategies in %s", cmd.String("strategies"))
	}

	if cmd.Bool("watch") {
		go func() {
			if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
				log.Warn("strategy watcher stopped", zap.Error(err))
			}
		}()
	}

	replay, err := feed.NewReplayFeed(cmd.String("candles"), feed.ReplayConfig{
		Symbols:     cmd.StringSlice("symbol"),
		HistorySize: cfg.Indicators.HistorySize,
	}, svc.enricher, log)
	if err != nil {
		return err
	}
	defer replay.Close()

	var source feed.Feed = replay

	if cmd.Bool("progress") {
		total, err := replay.Count(ctx)
		if err != nil {
			return err
		}

		source = progressFeed{
			Feed: replay,
			bar: progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Replaying candles"),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWriter(os.Stderr),
			),
		}
	}

	summary, err := svc.pipeline.Run(ctx, source)
	if err != nil && ctx.Err() == nil {
		return err
	}

	svc.pipeline.Wait()

	if cmd.Bool("serve") && ctx.Err() == nil {
		if svc.hub != nil {
			log.Info("serving signals", zap.String("url", svc.hub.URL()))
		}

		go func() {
			if err := svc.lifecycle.Run(ctx, time.Minute); err != nil && ctx.Err() == nil {
				log.Warn("expiry sweep stopped", zap.Error(err))
			}
		}()

		<-ctx.Done()
	}

	return printYAML(summary)
}

func loadTrades(ctx context.Context, path, strategyID string) ([]types.HistoricalTrade, error) {
	log := loggerFrom(ctx)

	trades, err := history.NewDuckDBStore("", log)
	if err != nil {
		return nil, err
	}
	defer trades.Close()

	if _, err := trades.Import(ctx, path); err != nil {
		return nil, err
	}

	return trades.Trades(ctx, strategyID)
}

func tradeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "trades",
			Usage:    "CSV or Parquet file of historical trades",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "strategy",
			Usage:    "Strategy ID whose trades are analysed",
			Required: true,
		},
	}
}

func backtestCommand() *cli.Command {
	return &cli.Command{
		Name:  "backtest",
		Usage: "Compute backtest metrics for a strategy's historical trades",
		Flags: append(tradeFlags(),
			&cli.StringFlag{
				Name:  "output",
				Usage: "Write the result as YAML into this folder instead of stdout",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := configFrom(ctx)

			trades, err := loadTrades(ctx, cmd.String("trades"), cmd.String("strategy"))
			if err != nil {
				return err
			}

			engine := backtest.NewEngine(cfg.Backtest, loggerFrom(ctx))
			result := engine.Run(cmd.String("strategy"), trades, engine.InitialCapital())

			if output := cmd.String("output"); output != "" {
				return types.WriteBacktestResult(output, cmd.String("strategy")+".yaml", result)
			}

			return printYAML(result)
		},
	}
}

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Run the Monte Carlo simulation over a strategy's historical trades",
		Flags: append(tradeFlags(),
			&cli.IntFlag{
				Name:  "simulations",
				Usage: "Number of simulated paths. Zero uses the configured count",
			},
			&cli.IntFlag{
				Name:  "path-length",
				Usage: "Trades per path. Zero uses the configured length",
			},
			&cli.IntFlag{
				Name:  "seed",
				Usage: "Random seed for reproducible runs. Zero uses the configured seed",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := configFrom(ctx)

			trades, err := loadTrades(ctx, cmd.String("trades"), cmd.String("strategy"))
			if err != nil {
				return err
			}

			simulation := cfg.MonteCarlo
			if seed := int64(cmd.Int("seed")); seed != 0 {
				simulation.Seed = seed
			}

			simulations := simulation.NumSimulations
			if n := int(cmd.Int("simulations")); n > 0 {
				simulations = n
			}

			pathLength := simulation.PathLength
			if n := int(cmd.Int("path-length")); n > 0 {
				pathLength = n
			}

			bar := progressbar.NewOptions(simulations,
				progressbar.OptionSetDescription("Simulating paths"),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionThrottle(100*time.Millisecond),
			)

			simulator := montecarlo.NewSimulator(simulation, loggerFrom(ctx))
			stats := montecarlo.StatsFromTrades(trades, cfg.Backtest.InitialCapital)

			result, err := simulator.SimulateWithProgress(ctx, stats, simulations, pathLength, func(completed int) {
				_ = bar.Set(completed)
			})
			if err != nil {
				return err
			}

			_ = bar.Finish()

			return printYAML(result)
		},
	}
}

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Print JSON schemas",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "JSON schema of the configuration file",
				Action: func(_ context.Context, _ *cli.Command) error {
					schema, err := config.SchemaJSON()
					if err != nil {
						return err
					}

					fmt.Println(schema)

					return nil
				},
			},
			{
				Name:  "strategy",
				Usage: "JSON schema of strategy definitions",
				Action: func(_ context.Context, _ *cli.Command) error {
					schema, err := strategy.DefinitionSchema()
					if err != nil {
						return err
					}

					fmt.Println(schema)

					return nil
				},
			},
		},
	}
}

func openSignals(ctx context.Context, cmd *cli.Command) (*store.DuckDBStore, error) {
	path := configFrom(ctx).Storage.SignalDB
	if db := cmd.String("db"); db != "" {
		path = db
	}

	if path == "" {
		return nil, fmt.Errorf("no signal database configured: set storage.signal_db or --db")
	}

	return store.NewDuckDBStore(path, loggerFrom(ctx))
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "db",
		Usage: "Signal database path. Defaults to storage.signal_db",
	}
}

func signalsCommand() *cli.Command {
	return &cli.Command{
		Name:  "signals",
		Usage: "List signals",
		Flags: []cli.Flag{
			dbFlag(),
			&cli.StringFlag{
				Name:  "strategy",
				Usage: "List every signal of this strategy instead of the active ones",
			},
			&cli.BoolFlag{
				Name:  "expire",
				Usage: "Expire overdue signals before listing",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			signals, err := openSignals(ctx, cmd)
			if err != nil {
				return err
			}
			defer signals.Close()

			if cmd.Bool("expire") {
				if _, err := signals.ExpireOverdue(ctx, time.Now()); err != nil {
					return err
				}
			}

			var list []types.Signal
			if id := cmd.String("strategy"); id != "" {
				list, err = signals.ListByStrategy(ctx, id)
			} else {
				list, err = signals.ListActive(ctx)
			}

			if err != nil {
				return err
			}

			return printJSON(list)
		},
	}
}

func rejectionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "rejections",
		Usage: "List rejected candidates of a strategy (requires storage.record_rejections)",
		Flags: []cli.Flag{
			dbFlag(),
			&cli.StringFlag{
				Name:     "strategy",
				Usage:    "Strategy ID",
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			signals, err := openSignals(ctx, cmd)
			if err != nil {
				return err
			}
			defer signals.Close()

			rejections, err := signals.Rejections(ctx, cmd.String("strategy"))
			if err != nil {
				return err
			}

			return printJSON(rejections)
		},
	}
}

func closeCommand() *cli.Command {
	return &cli.Command{
		Name:  "close",
		Usage: "Close an active signal with its realized profit or loss",
		Flags: []cli.Flag{
			dbFlag(),
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Signal ID",
				Required: true,
			},
			&cli.FloatFlag{
				Name:     "pnl",
				Usage:    "Realized profit (negative for a loss)",
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			signals, err := openSignals(ctx, cmd)
			if err != nil {
				return err
			}
			defer signals.Close()

			closed, err := signals.CloseSignal(ctx, cmd.String("id"), cmd.Float("pnl"), time.Now())
			if err != nil {
				return err
			}

			return printJSON(closed)
		},
	}
}
