package distribution

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Distributor delivers accepted signals to a consumer.
type Distributor interface {
	Name() string
	Distribute(ctx context.Context, signal types.Signal) error
}

// MessageTypeSignal is the type of a message carrying a new signal.
const MessageTypeSignal = "signal"

// Message is the wire envelope every distributor sends.
type Message struct {
	Type   string       `json:"type"`
	Signal types.Signal `json:"signal"`
	SentAt time.Time    `json:"sent_at"`
}

// Encode returns the JSON message for a signal.
func Encode(signal types.Signal, at time.Time) ([]byte, error) {
	data, err := json.Marshal(Message{Type: MessageTypeSignal, Signal: signal, SentAt: at.UTC()})
	if err != nil {
		return nil, fmt.Errorf("failed to encode signal %s: %w", signal.ID, err)
	}

	return data, nil
}

// Multi fans a signal out to several distributors concurrently and joins their errors.
type Multi struct {
	distributors []Distributor
}

func NewMulti(distributors ...Distributor) *Multi {
	return &Multi{distributors: distributors}
}

func (m *Multi) Name() string {
	return "multi"
}

// Distributors returns the wrapped distributors.
func (m *Multi) Distributors() []Distributor {
	return m.distributors
}

// Distribute implements Distributor. Every distributor runs even when another fails.
func (m *Multi) Distribute(ctx context.Context, signal types.Signal) error {
	p := pool.New().WithErrors().WithContext(ctx)

	for _, distributor := range m.distributors {
		p.Go(func(ctx context.Context) error {
			if err := distributor.Distribute(ctx, signal); err != nil {
				return fmt.Errorf("%s: %w", distributor.Name(), err)
			}

			return nil
		})
	}

	return p.Wait()
}

// LogDistributor writes accepted signals to the structured log.
type LogDistributor struct {
	logger *logger.Logger
}

func NewLogDistributor(log *logger.Logger) *LogDistributor {
	return &LogDistributor{logger: log.Named("signals")}
}

func (l *LogDistributor) Name() string {
	return "log"
}

func (l *LogDistributor) Distribute(_ context.Context, signal types.Signal) error {
	l.logger.Info("signal",
		zap.String("id", signal.ID),
		zap.String("strategy", signal.Candidate.StrategyID),
		zap.String("symbol", signal.Candidate.Symbol),
		zap.String("direction", string(signal.Candidate.Direction)),
		zap.Float64("entry", signal.Candidate.Entry),
		zap.Float64("stop", signal.Candidate.Stop),
		zap.Float64("target", signal.Candidate.Target),
		zap.Float64("score", signal.Score.Composite),
		zap.String("confidence", string(signal.Score.Confidence)),
		zap.Float64("probability", signal.Posterior),
		zap.Time("expires_at", signal.ExpiresAt),
	)

	return nil
}

// ChannelDistributor sends signals to a Go channel, for in-process consumers.
type ChannelDistributor struct {
	ch chan types.Signal
}

// NewChannelDistributor creates a distributor over a channel with the given buffer.
func NewChannelDistributor(buffer int) *ChannelDistributor {
	return &ChannelDistributor{ch: make(chan types.Signal, buffer)}
}

func (c *ChannelDistributor) Name() string {
	return "channel"
}

// Signals returns the receiving side of the channel.
func (c *ChannelDistributor) Signals() <-chan types.Signal {
	return c.ch
}

// Distribute blocks until the signal is buffered or ctx is done.
func (c *ChannelDistributor) Distribute(ctx context.Context, signal types.Signal) error {
	select {
	case c.ch <- signal:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
