package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-signal/internal/backtest"
	"github.com/rxtech-lab/argo-signal/internal/distribution"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/pipeline"
	"github.com/rxtech-lab/argo-signal/internal/probability/bayesian"
	"github.com/rxtech-lab/argo-signal/internal/probability/montecarlo"
	"github.com/rxtech-lab/argo-signal/internal/scoring"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvLogLevel    = "ARGO_SIGNAL_LOG_LEVEL"
	EnvHistoryPath = "ARGO_SIGNAL_HISTORY_PATH"
	EnvSignalDB    = "ARGO_SIGNAL_SIGNAL_DB"
	EnvWebhookURL  = "ARGO_SIGNAL_WEBHOOK_URL"
)

// IndicatorConfig selects the indicators computed for feeds that supply raw candles only.
type IndicatorConfig struct {
	RSIPeriod  int   `yaml:"rsi_period" json:"rsi_period" validate:"gt=0"`
	ATRPeriod  int   `yaml:"atr_period" json:"atr_period" validate:"gt=0"`
	EMAPeriods []int `yaml:"ema_periods" json:"ema_periods" validate:"dive,gt=0"`
	SMAPeriods []int `yaml:"sma_periods" json:"sma_periods" validate:"dive,gt=0"`
	// HistorySize is the number of prior candles attached to each replayed snapshot.
	HistorySize int `yaml:"history_size" json:"history_size" validate:"gte=0"`
}

type HistoryConfig struct {
	// Path is the DuckDB database holding historical trades. Empty uses an in-memory database.
	Path string `yaml:"path" json:"path"`
	// ImportFile is an optional CSV or Parquet file loaded into the trade table on startup.
	ImportFile string `yaml:"import_file" json:"import_file"`
	// CacheTTL bounds how long historical trades are reused. Zero disables caching.
	CacheTTL time.Duration `yaml:"cache_ttl" json:"cache_ttl" validate:"gte=0"`
}

type StorageConfig struct {
	// SignalDB is the DuckDB database for emitted signals. Empty uses an in-memory database.
	SignalDB string `yaml:"signal_db" json:"signal_db"`
	// RecordRejections stores rejected candidates next to the signals.
	RecordRejections bool `yaml:"record_rejections" json:"record_rejections"`
}

type WebSocketConfig struct {
	Enabled                bool `yaml:"enabled" json:"enabled"`
	distribution.HubConfig `yaml:",inline" json:",inline"`
}

type WebhookConfig struct {
	Enabled                    bool `yaml:"enabled" json:"enabled"`
	distribution.WebhookConfig `yaml:",inline" json:",inline"`
}

type KafkaConfig struct {
	Enabled                  bool `yaml:"enabled" json:"enabled"`
	distribution.KafkaConfig `yaml:",inline" json:",inline"`
}

type RedisConfig struct {
	Enabled                  bool `yaml:"enabled" json:"enabled"`
	distribution.RedisConfig `yaml:",inline" json:",inline"`
}

type DistributionConfig struct {
	Log       bool            `yaml:"log" json:"log"`
	WebSocket WebSocketConfig `yaml:"websocket" json:"websocket"`
	Webhook   WebhookConfig   `yaml:"webhook" json:"webhook"`
	Kafka     KafkaConfig     `yaml:"kafka" json:"kafka"`
	Redis     RedisConfig     `yaml:"redis" json:"redis"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address" json:"address"`
	Path    string `yaml:"path" json:"path"`
}

// Config is the complete configuration surface of the signal service.
type Config struct {
	Logging      logger.Options       `yaml:"logging" json:"logging"`
	Indicators   IndicatorConfig      `yaml:"indicators" json:"indicators"`
	Backtest     backtest.Config      `yaml:"backtest" json:"backtest"`
	Bayesian     bayesian.Config      `yaml:"bayesian" json:"bayesian"`
	MonteCarlo   montecarlo.Config    `yaml:"monte_carlo" json:"monte_carlo"`
	Scoring      scoring.ScorerConfig `yaml:"scoring" json:"scoring"`
	Gate         scoring.GateConfig   `yaml:"gate" json:"gate"`
	Pipeline     pipeline.Config      `yaml:"pipeline" json:"pipeline"`
	History      HistoryConfig        `yaml:"history" json:"history"`
	Storage      StorageConfig        `yaml:"storage" json:"storage"`
	Distribution DistributionConfig   `yaml:"distribution" json:"distribution"`
	Metrics      MetricsConfig        `yaml:"metrics" json:"metrics"`
}

// DefaultConfig returns the documented defaults for every section.
func DefaultConfig() Config {
	return Config{
		Logging: logger.DefaultOptions(),
		Indicators: IndicatorConfig{
			RSIPeriod:   14,
			ATRPeriod:   14,
			EMAPeriods:  []int{20, 50, 200},
			SMAPeriods:  []int{20, 50},
			HistorySize: 250,
		},
		Backtest:   backtest.DefaultConfig(),
		Bayesian:   bayesian.DefaultConfig(),
		MonteCarlo: montecarlo.DefaultConfig(),
		Scoring:    scoring.DefaultScorerConfig(),
		Gate:       scoring.DefaultGateConfig(),
		Pipeline:   pipeline.DefaultConfig(),
		History: HistoryConfig{
			CacheTTL: 5 * time.Minute,
		},
		Storage: StorageConfig{},
		Distribution: DistributionConfig{
			Log: true,
			WebSocket: WebSocketConfig{
				HubConfig: distribution.DefaultHubConfig(),
			},
			Webhook: WebhookConfig{
				WebhookConfig: distribution.DefaultWebhookConfig(),
			},
			Kafka: KafkaConfig{
				KafkaConfig: distribution.DefaultKafkaConfig(),
			},
			Redis: RedisConfig{
				RedisConfig: distribution.DefaultRedisConfig(),
			},
		},
		Metrics: MetricsConfig{
			Address: ":9090",
			Path:    "/metrics",
		},
	}
}

// Load reads a YAML file over the defaults, applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
	}

	return Parse(data)
}

// Parse decodes YAML over the defaults, applies environment overrides and validates the result.
func Parse(data []byte) (Config, error) {
	config := DefaultConfig()

	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// ApplyEnv overrides data paths, the webhook URL and the log level from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(EnvHistoryPath); v != "" {
		c.History.Path = v
	}

	if v := os.Getenv(EnvSignalDB); v != "" {
		c.Storage.SignalDB = v
	}

	if v := os.Getenv(EnvWebhookURL); v != "" {
		c.Distribution.Webhook.URL = v
		c.Distribution.Webhook.Enabled = true
	}
}

// Validate checks field constraints and the cross-field rules the tags cannot express.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	if sum := c.Scoring.Weights.Sum(); math.Abs(sum-1) > 0.01 {
		return errors.Newf(errors.ErrCodeInvalidWeights, "scoring weights must sum to 1, got %.4f", sum)
	}

	if c.Scoring.MediumConfidence > c.Scoring.HighConfidence {
		return errors.New(errors.ErrCodeInvalidConfiguration, "scoring.medium_confidence must not exceed scoring.high_confidence")
	}

	if c.Scoring.LowRiskMaxRuin > c.Scoring.MediumRiskMaxRuin {
		return errors.New(errors.ErrCodeInvalidConfiguration, "scoring.low_risk_max_ruin must not exceed scoring.medium_risk_max_ruin")
	}

	if c.Distribution.Webhook.Enabled && c.Distribution.Webhook.URL == "" {
		return errors.New(errors.ErrCodeInvalidConfiguration, "distribution.webhook.url is required when the webhook is enabled")
	}

	if c.Distribution.Kafka.Enabled && (len(c.Distribution.Kafka.Brokers) == 0 || c.Distribution.Kafka.Topic == "") {
		return errors.New(errors.ErrCodeInvalidConfiguration, "distribution.kafka.brokers and topic are required when kafka is enabled")
	}

	if c.Distribution.Redis.Enabled && (c.Distribution.Redis.Address == "" || c.Distribution.Redis.Channel == "") {
		return errors.New(errors.ErrCodeInvalidConfiguration, "distribution.redis.address and channel are required when redis is enabled")
	}

	return nil
}

// Write stores the configuration as YAML.
func (c Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
