package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/rxtech-lab/argo-signal/internal/config"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/urfave/cli/v3"
)

type contextKey string

const (
	configKey contextKey = "config"
	loggerKey contextKey = "logger"
)

// setup loads the .env file and the configuration, then creates the logger.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	envFile := cmd.String("env-file")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ctx, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := config.DefaultConfig()

	if path := cmd.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return ctx, err
		}

		cfg = loaded
	} else {
		cfg.ApplyEnv()

		if err := cfg.Validate(); err != nil {
			return ctx, err
		}
	}

	if level := cmd.String("log-level"); level != "" {
		cfg.Logging.Level = level
	}

	zapLogger, err := logger.NewLoggerWithOptions(cfg.Logging)
	if err != nil {
		return ctx, fmt.Errorf("failed to create logger: %w", err)
	}

	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, zapLogger)

	return ctx, nil
}

func configFrom(ctx context.Context) config.Config {
	if cfg, ok := ctx.Value(configKey).(config.Config); ok {
		return cfg
	}

	return config.DefaultConfig()
}

func loggerFrom(ctx context.Context) *logger.Logger {
	if l, ok := ctx.Value(loggerKey).(*logger.Logger); ok {
		return l
	}

	return logger.NewNopLogger()
}

func main() {
	cmd := &cli.Command{
		Name:  "signalctl",
		Usage: "Validate strategy triggers and emit high-confidence trading signals",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a .env file with environment overrides",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override the configured log level (debug, info, warn, error)",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			runCommand(),
			backtestCommand(),
			simulateCommand(),
			schemaCommand(),
			signalsCommand(),
			rejectionsCommand(),
			closeCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
