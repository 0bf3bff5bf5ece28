// Package scheduler tracks the cancelable deadline timers of live rooms.
// Timers are keyed by room code and kind, never by closure over room state;
// a callback that fires after its room moved on is rejected by the
// coordinator's generation/epoch guards, not by the scheduler.
package scheduler

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Kind distinguishes the deadline timers a room may hold at once.
type Kind int

const (
	// KindQuestion is the per-question countdown.
	KindQuestion Kind = iota
	// KindSession is the whole-session countdown.
	KindSession
	// KindAdvance is the short post-answer grace delay before the next
	// question, letting clients display the reveal.
	KindAdvance
)

// Scheduler arms and cancels room deadline timers on an injected clock so
// tests can drive time.
type Scheduler struct {
	clock clockwork.Clock

	mu     sync.Mutex
	timers map[string]map[Kind]clockwork.Timer
}

func New(clock clockwork.Clock) *Scheduler {
	return &Scheduler{
		clock:  clock,
		timers: make(map[string]map[Kind]clockwork.Timer),
	}
}

// Schedule arms a timer for the room, replacing any pending timer of the
// same kind. fn runs on its own goroutine when the deadline elapses.
func (s *Scheduler) Schedule(code string, kind Kind, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if byKind, ok := s.timers[code]; ok {
		if t, ok := byKind[kind]; ok {
			t.Stop()
		}
	} else {
		s.timers[code] = make(map[Kind]clockwork.Timer)
	}

	s.timers[code][kind] = s.clock.AfterFunc(d, func() {
		s.forget(code, kind)
		fn()
	})
}

// Cancel stops a pending timer; canceling an absent timer is a no-op.
func (s *Scheduler) Cancel(code string, kind Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if byKind, ok := s.timers[code]; ok {
		if t, ok := byKind[kind]; ok {
			t.Stop()
			delete(byKind, kind)
		}
	}
}

// CancelAll stops every pending timer of a room. Called on game over,
// restart, and room deletion.
func (s *Scheduler) CancelAll(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.timers[code] {
		t.Stop()
	}
	delete(s.timers, code)
}

func (s *Scheduler) forget(code string, kind Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if byKind, ok := s.timers[code]; ok {
		delete(byKind, kind)
		if len(byKind) == 0 {
			delete(s.timers, code)
		}
	}
}
