package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rxtech-lab/argo-signal/internal/backtest"
	"github.com/rxtech-lab/argo-signal/internal/config"
	"github.com/rxtech-lab/argo-signal/internal/distribution"
	"github.com/rxtech-lab/argo-signal/internal/history"
	"github.com/rxtech-lab/argo-signal/internal/indicator"
	"github.com/rxtech-lab/argo-signal/internal/lifecycle"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/metrics"
	"github.com/rxtech-lab/argo-signal/internal/pipeline"
	"github.com/rxtech-lab/argo-signal/internal/probability/bayesian"
	"github.com/rxtech-lab/argo-signal/internal/probability/montecarlo"
	"github.com/rxtech-lab/argo-signal/internal/rules"
	"github.com/rxtech-lab/argo-signal/internal/scoring"
	"github.com/rxtech-lab/argo-signal/internal/store"
	"go.uber.org/zap"
)

// services is the fully wired signal service.
type services struct {
	config    config.Config
	logger    *logger.Logger
	pipeline  *pipeline.Pipeline
	lifecycle *lifecycle.Manager
	signals   *store.DuckDBStore
	hub       *distribution.Hub
	enricher  *indicator.Enricher
	metrics   *http.Server

	closers []func() error
}

// openHistory opens the trade store, imports the configured file and wraps it in the TTL cache.
func openHistory(ctx context.Context, cfg config.Config, log *logger.Logger) (history.Store, []func() error, error) {
	trades, err := history.NewDuckDBStore(cfg.History.Path, log)
	if err != nil {
		return nil, nil, err
	}

	closers := []func() error{trades.Close}

	if cfg.History.ImportFile != "" {
		if _, err := trades.Import(ctx, cfg.History.ImportFile); err != nil {
			_ = trades.Close()
			return nil, nil, err
		}
	}

	if cfg.History.CacheTTL <= 0 {
		return trades, closers, nil
	}

	cached, err := history.NewCachedStore(ctx, trades, cfg.History.CacheTTL, log)
	if err != nil {
		_ = trades.Close()
		return nil, nil, err
	}

	return cached, append(closers, cached.Close), nil
}

func buildDistributors(cfg config.DistributionConfig, log *logger.Logger) ([]distribution.Distributor, *distribution.Hub, []func() error, error) {
	distributors := make([]distribution.Distributor, 0)
	closers := make([]func() error, 0)

	if cfg.Log {
		distributors = append(distributors, distribution.NewLogDistributor(log))
	}

	var hub *distribution.Hub

	if cfg.WebSocket.Enabled {
		hub = distribution.NewHub(cfg.WebSocket.HubConfig, log)
		if err := hub.Start(cfg.WebSocket.Address); err != nil {
			return nil, nil, closers, err
		}

		distributors = append(distributors, hub)
		closers = append(closers, hub.Stop)
	}

	if cfg.Webhook.Enabled {
		webhook, err := distribution.NewWebhook(cfg.Webhook.WebhookConfig, log)
		if err != nil {
			return nil, nil, closers, err
		}

		distributors = append(distributors, webhook)
	}

	if cfg.Kafka.Enabled {
		kafka, err := distribution.NewKafka(cfg.Kafka.KafkaConfig, log)
		if err != nil {
			return nil, nil, closers, err
		}

		distributors = append(distributors, kafka)
		closers = append(closers, kafka.Close)
	}

	if cfg.Redis.Enabled {
		redis, err := distribution.NewRedis(cfg.Redis.RedisConfig, log)
		if err != nil {
			return nil, nil, closers, err
		}

		distributors = append(distributors, redis)
		closers = append(closers, redis.Close)
	}

	return distributors, hub, closers, nil
}

func serveMetrics(cfg config.MetricsConfig, registry *prometheus.Registry, log *logger.Logger) (*http.Server, error) {
	router := mux.NewRouter()
	router.Handle(cfg.Path, metrics.Handler(registry)).Methods(http.MethodGet)

	listener, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for metrics: %w", err)
	}

	server := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()

	log.Info("metrics listening", zap.String("address", listener.Addr().String()), zap.String("path", cfg.Path))

	return server, nil
}

// buildServices wires every component named by the configuration.
func buildServices(ctx context.Context, cfg config.Config, log *logger.Logger) (svc *services, err error) {
	svc = &services{config: cfg, logger: log}

	defer func() {
		if err != nil {
			svc.Close()
			svc = nil
		}
	}()

	trades, closers, err := openHistory(ctx, cfg, log)
	if err != nil {
		return svc, err
	}

	svc.closers = append(svc.closers, closers...)

	registry, err := indicator.NewDefaultRegistry(cfg.Indicators.RSIPeriod, cfg.Indicators.ATRPeriod, cfg.Indicators.EMAPeriods, cfg.Indicators.SMAPeriods)
	if err != nil {
		return svc, err
	}

	svc.enricher = indicator.NewEnricher(registry, log)

	bayesianEngine, err := bayesian.NewEngine(cfg.Bayesian)
	if err != nil {
		return svc, err
	}

	scorer, err := scoring.NewScorer(cfg.Scoring)
	if err != nil {
		return svc, err
	}

	signals, err := store.NewDuckDBStore(cfg.Storage.SignalDB, log)
	if err != nil {
		return svc, err
	}

	svc.signals = signals
	svc.closers = append(svc.closers, signals.Close)
	svc.lifecycle = lifecycle.NewManager(signals, log)

	promRegistry := prometheus.NewRegistry()

	collectors, err := metrics.New(promRegistry)
	if err != nil {
		return svc, err
	}

	if cfg.Metrics.Enabled {
		server, err := serveMetrics(cfg.Metrics, promRegistry, log)
		if err != nil {
			return svc, err
		}

		svc.metrics = server
	}

	distributors, hub, closers, err := buildDistributors(cfg.Distribution, log)
	svc.closers = append(svc.closers, closers...)

	if err != nil {
		return svc, err
	}

	svc.hub = hub

	engine := backtest.NewEngine(cfg.Backtest, log)

	deps := pipeline.Dependencies{
		Evaluator:    rules.NewEvaluator(nil, log).WithEquity(engine.InitialCapital()),
		History:      trades,
		Backtest:     engine,
		Bayesian:     bayesianEngine,
		Simulator:    montecarlo.NewSimulator(cfg.MonteCarlo, log),
		Scorer:       scorer,
		Gate:         scoring.NewGate(cfg.Gate),
		Distributors: distributors,
		Signals:      signals,
		Lifecycle:    svc.lifecycle,
		Metrics:      collectors,
		Logger:       log,
	}

	if cfg.Storage.RecordRejections {
		deps.Rejections = signals
	}

	svc.pipeline, err = pipeline.New(cfg.Pipeline, deps)
	if err != nil {
		return svc, err
	}

	return svc, nil
}

// Close stops the pipeline, waits for pending deliveries and releases resources in reverse order.
func (s *services) Close() {
	if s.pipeline != nil {
		s.pipeline.Close()
	}

	if s.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = s.metrics.Shutdown(ctx)

		cancel()
	}

	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn("failed to release resource", zap.Error(err))
		}
	}
}
