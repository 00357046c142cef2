package distribution

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// KafkaConfig configures the Kafka publisher.
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers" json:"brokers"`
	Topic        string        `yaml:"topic" json:"topic"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
}

func DefaultKafkaConfig() KafkaConfig {
	return KafkaConfig{
		Topic:        "trading-signals",
		WriteTimeout: 10 * time.Second,
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Kafka publishes signals to a topic, keyed by strategy so a strategy's signals stay ordered.
type Kafka struct {
	writer messageWriter
	topic  string
	logger *logger.Logger
}

// NewKafka creates a Kafka distributor. At least one broker and a topic are required.
func NewKafka(config KafkaConfig, log *logger.Logger) (*Kafka, error) {
	if len(config.Brokers) == 0 || config.Topic == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "kafka brokers and topic are required")
	}

	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultKafkaConfig().WriteTimeout
	}

	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafkago.Hash{},
		WriteTimeout: config.WriteTimeout,
		MaxAttempts:  5,
		RequiredAcks: kafkago.RequireAll,
	}

	return newKafka(writer, config.Topic, log), nil
}

func newKafka(writer messageWriter, topic string, log *logger.Logger) *Kafka {
	return &Kafka{
		writer: writer,
		topic:  topic,
		logger: log.Named("kafka"),
	}
}

func (k *Kafka) Name() string {
	return "kafka"
}

// Distribute implements Distributor. The trace context travels in the message headers.
func (k *Kafka) Distribute(ctx context.Context, signal types.Signal) error {
	ctx, span := otel.Tracer("distribution").Start(ctx, "Kafka.Publish", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()

	value, err := Encode(signal, time.Now())
	if err != nil {
		return err
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := make([]kafkago.Header, 0, len(carrier))
	for key, val := range carrier {
		headers = append(headers, kafkago.Header{Key: key, Value: []byte(val)})
	}

	msg := kafkago.Message{
		Key:     []byte(signal.Candidate.StrategyID),
		Value:   value,
		Headers: headers,
		Time:    signal.CreatedAt,
	}

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		span.SetStatus(codes.Error, err.Error())
		k.logger.Warn("failed to publish signal", zap.String("topic", k.topic), zap.String("id", signal.ID), zap.Error(err))

		return errors.Wrapf(errors.ErrCodeDistributionFailed, err, "failed to publish signal %s", signal.ID)
	}

	return nil
}

// Close flushes and closes the writer.
func (k *Kafka) Close() error {
	return k.writer.Close()
}
