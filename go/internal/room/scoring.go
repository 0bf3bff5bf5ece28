package room

import (
	"math"
	"time"
)

const (
	basePoints   = 10
	wrongPenalty = 5

	// ReferenceWindow is the scoring window used in whole-session mode,
	// where questions carry no countdown of their own.
	ReferenceWindow = 20 * time.Second
)

// Score returns the points delta for one submitted answer. A blank
// submission changes nothing, a wrong one costs a flat penalty, and a
// correct one earns a time-decayed bonus: 10 points floor for a
// last-instant answer, growing by one per four seconds of window left.
func Score(correct, blank bool, elapsed, window time.Duration) int {
	if blank {
		return 0
	}
	if !correct {
		return -wrongPenalty
	}
	remaining := window - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return basePoints + int(math.Ceil(remaining.Seconds()/4))
}

// ScoringWindow resolves the base window for the session's timing mode.
func (s Settings) ScoringWindow() time.Duration {
	if s.TimingMode == TimingWholeSession {
		return ReferenceWindow
	}
	return time.Duration(s.Duration) * time.Second
}
