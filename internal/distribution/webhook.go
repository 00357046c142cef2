package distribution

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// WebhookConfig configures the webhook poster.
type WebhookConfig struct {
	URL     string        `yaml:"url" json:"url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures uint32 `yaml:"max_failures" json:"max_failures"`
	// OpenTimeout is how long the circuit stays open before a trial request.
	OpenTimeout time.Duration `yaml:"open_timeout" json:"open_timeout"`
	// RatePerSecond limits outbound requests. Zero means unlimited.
	RatePerSecond float64           `yaml:"rate_per_second" json:"rate_per_second" validate:"gte=0"`
	Burst         int               `yaml:"burst" json:"burst" validate:"gte=0"`
	Headers       map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

func DefaultWebhookConfig() WebhookConfig {
	return WebhookConfig{
		Timeout:       5 * time.Second,
		MaxFailures:   5,
		OpenTimeout:   30 * time.Second,
		RatePerSecond: 0,
		Burst:         1,
	}
}

// Webhook POSTs each signal as JSON to a URL behind a circuit breaker.
type Webhook struct {
	config  WebhookConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	logger  *logger.Logger
}

// NewWebhook creates a webhook distributor. The URL is required.
func NewWebhook(config WebhookConfig, log *logger.Logger) (*Webhook, error) {
	if config.URL == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "webhook url is required")
	}

	defaults := DefaultWebhookConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	if config.MaxFailures == 0 {
		config.MaxFailures = defaults.MaxFailures
	}

	if config.OpenTimeout <= 0 {
		config.OpenTimeout = defaults.OpenTimeout
	}

	limit := rate.Inf
	if config.RatePerSecond > 0 {
		limit = rate.Limit(config.RatePerSecond)
	}

	burst := max(config.Burst, 1)
	webhookLogger := log.Named("webhook")
	maxFailures := config.MaxFailures

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "webhook",
		MaxRequests: 1,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			webhookLogger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Webhook{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		breaker: breaker,
		limiter: rate.NewLimiter(limit, burst),
		logger:  webhookLogger,
	}, nil
}

func (w *Webhook) Name() string {
	return "webhook"
}

// State returns the circuit breaker state.
func (w *Webhook) State() gobreaker.State {
	return w.breaker.State()
}

// Distribute implements Distributor.
func (w *Webhook) Distribute(ctx context.Context, signal types.Signal) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeDistributionFailed, "webhook rate limit wait aborted", err)
	}

	payload, err := Encode(signal, time.Now())
	if err != nil {
		return err
	}

	_, err = w.breaker.Execute(func() (interface{}, error) {
		return nil, w.post(ctx, payload)
	})
	if err != nil {
		return errors.Wrapf(errors.ErrCodeDistributionFailed, err, "failed to deliver signal %s", signal.ID)
	}

	return nil
}

func (w *Webhook) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	for key, value := range w.config.Headers {
		req.Header.Set(key, value)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
