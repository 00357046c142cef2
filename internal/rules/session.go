package rules

import (
	"github.com/rxtech-lab/argo-signal/internal/types"
)

// TradingSession is an hour window in UTC, start inclusive and end exclusive.
type TradingSession struct {
	Name      string
	StartHour int
	EndHour   int
}

// Sessions are the built-in trading sessions.
var Sessions = []TradingSession{
	{Name: "london", StartHour: 7, EndHour: 16},
	{Name: "new_york", StartHour: 13, EndHour: 22},
	{Name: "asia", StartHour: 0, EndHour: 9},
}

// Contains reports whether the hour falls inside the session.
func (s TradingSession) Contains(hour int) bool {
	if s.StartHour <= s.EndHour {
		return hour >= s.StartHour && hour < s.EndHour
	}

	// window wraps midnight
	return hour >= s.StartHour || hour < s.EndHour
}

func sessionConditions() []Condition {
	conditions := make([]Condition, 0, len(Sessions))

	for _, session := range Sessions {
		s := session
		conditions = append(conditions, Condition{
			Name: s.Name,
			Type: types.RuleTypeSession,
			Check: func(snapshot types.MarketSnapshot, _ Params) (bool, error) {
				return s.Contains(snapshot.Time.UTC().Hour()), nil
			},
		})
	}

	return conditions
}
