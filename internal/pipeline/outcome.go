package pipeline

import (
	"fmt"
	"strings"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-signal/internal/types"
)

// State is the position of a trigger evaluation in its state machine:
// Triggered -> Evaluating -> {Accepted, Rejected}.
type State string

const (
	StateTriggered  State = "triggered"
	StateEvaluating State = "evaluating"
	StateAccepted   State = "accepted"
	StateRejected   State = "rejected"
)

// Outcome is the terminal result of one trigger evaluation.
type Outcome struct {
	StrategyID string
	Symbol     string
	State      State
	// Candidate is None when the strategy failed before proposing a trade.
	Candidate  optional.Option[types.TradeCandidate]
	Backtest   types.BacktestResult
	Simulation types.SimulationResult
	Posterior  float64
	// WinRateInterval is the 95% confidence interval of the backtest win rate.
	WinRateInterval types.Interval
	// Expectancy is the setup's simulated outcome in R at the posterior win probability.
	Expectancy types.TradeOutcome
	Score      types.SignalScore
	// Failures lists the quality gate criteria that did not hold.
	Failures []string
	// Signal is set only for accepted outcomes.
	Signal optional.Option[types.Signal]
	// Err is the configuration, computation or cancellation error that aborted the evaluation.
	Err error

	// saved is closed once an accepted signal's store save has finished.
	saved <-chan struct{}
}

// waitSaved blocks until the signal store has the outcome's signal. Outcomes
// without a stored signal return immediately.
func (o Outcome) waitSaved() {
	if o.saved != nil {
		<-o.saved
	}
}

// Accepted reports whether the evaluation produced a signal.
func (o Outcome) Accepted() bool {
	return o.State == StateAccepted
}

// Reason summarises why the evaluation ended the way it did.
func (o Outcome) Reason() string {
	switch {
	case o.Err != nil:
		return o.Err.Error()
	case len(o.Failures) > 0:
		return strings.Join(o.Failures, "; ")
	default:
		return string(o.State)
	}
}

// Summary counts the outcomes of a feed run.
type Summary struct {
	Snapshots int `json:"snapshots"`
	Triggers  int `json:"triggers"`
	Accepted  int `json:"accepted"`
	Rejected  int `json:"rejected"`
	Errors    int `json:"errors"`
}

func (s *Summary) add(outcomes []Outcome) {
	s.Snapshots++

	for _, outcome := range outcomes {
		s.Triggers++

		if outcome.Accepted() {
			s.Accepted++
			continue
		}

		s.Rejected++

		if outcome.Err != nil {
			s.Errors++
		}
	}
}

// explain renders the human-readable explanation carried by a signal.
func explain(candidate types.TradeCandidate, outcome Outcome) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s %s at %.5f (stop %.5f, target %.5f, R:R %.2f)",
		candidate.StrategyName,
		strings.ToUpper(string(candidate.Direction)),
		candidate.Symbol,
		candidate.Entry,
		candidate.Stop,
		candidate.Target,
		candidate.RiskReward(),
	)

	if candidate.PositionSize > 0 {
		fmt.Fprintf(&b, ", size %.2f at %.1f%% of equity", candidate.PositionSize, candidate.RiskPercent)
	}

	fmt.Fprintf(&b, ": win rate %.1f%% (95%% CI %.1f-%.1f%%) over %d trades, sharpe %.2f, "+
		"posterior %.1f%%, expected %.2fR, ruin %.1f%%; score %.2f (%s confidence, %s risk)",
		outcome.Backtest.WinRate,
		outcome.WinRateInterval.Lower,
		outcome.WinRateInterval.Upper,
		outcome.Backtest.TotalTrades,
		outcome.Backtest.SharpeRatio,
		outcome.Posterior*100,
		outcome.Expectancy.ExpectedValueR,
		outcome.Simulation.ProbRuin*100,
		outcome.Score.Composite,
		outcome.Score.Confidence,
		outcome.Score.RiskLevel,
	)

	return b.String()
}
