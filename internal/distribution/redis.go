package distribution

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// RedisConfig configures the Redis pub/sub publisher.
type RedisConfig struct {
	Address  string `yaml:"address" json:"address"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db" validate:"gte=0"`
	// Channel receives every signal. A per-symbol channel "<channel>:<symbol>" is published too.
	Channel string `yaml:"channel" json:"channel"`
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Address: "localhost:6379",
		Channel: "signals",
	}
}

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// Redis publishes signals on a Redis pub/sub channel.
type Redis struct {
	client  publisher
	channel string
	logger  *logger.Logger
}

// NewRedis creates a Redis distributor.
func NewRedis(config RedisConfig, log *logger.Logger) (*Redis, error) {
	if config.Address == "" || config.Channel == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "redis address and channel are required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})

	return newRedis(client, config.Channel, log), nil
}

func newRedis(client publisher, channel string, log *logger.Logger) *Redis {
	return &Redis{
		client:  client,
		channel: channel,
		logger:  log.Named("redis"),
	}
}

func (r *Redis) Name() string {
	return "redis"
}

// Distribute implements Distributor.
func (r *Redis) Distribute(ctx context.Context, signal types.Signal) error {
	payload, err := Encode(signal, time.Now())
	if err != nil {
		return err
	}

	for _, channel := range []string{r.channel, r.channel + ":" + signal.Candidate.Symbol} {
		if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
			return errors.Wrapf(errors.ErrCodeDistributionFailed, err, "failed to publish signal %s on %s", signal.ID, channel)
		}
	}

	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
