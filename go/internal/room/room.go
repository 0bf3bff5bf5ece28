// Package room holds the per-room aggregate: membership, phase, the fixed
// question sequence, the answer window, and scoring. It carries no locking
// of its own; the session coordinator owns every room and serializes access.
package room

import (
	"sort"
	"time"

	"github.com/mertyk/kpss-arena/go/internal/question"
)

// Phase is a room's lifecycle state.
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseInProgress
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhaseInProgress:
		return "inProgress"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// TimingMode selects between per-question countdowns and one countdown over
// the whole session.
type TimingMode string

const (
	TimingPerQuestion  TimingMode = "perQuestion"
	TimingWholeSession TimingMode = "wholeSession"
)

// Settings are the resolved timing settings for one session.
type Settings struct {
	TimingMode TimingMode
	// Duration is seconds per question in per-question mode, minutes for
	// the whole session otherwise.
	Duration int
}

// Room is one live trivia session. Created on an explicit create request,
// destroyed when the last player leaves, at any phase.
type Room struct {
	Code    string
	Players map[string]*Player
	Phase   Phase

	// Questions is fixed once the phase enters InProgress; options are
	// already shuffled for presentation.
	Questions    []question.Record
	CurrentIndex int
	Settings     Settings

	AnswerCount       int
	QuestionStartedAt time.Time
	SessionDeadline   time.Time

	// Generation increments per game start, Epoch per question delivery.
	// Timer callbacks capture them at arm time and re-validate on fire so a
	// stale continuation cannot mutate a room that has moved on.
	Generation int
	Epoch      int
}

// New creates an empty room in the lobby phase.
func New(code string) *Room {
	return &Room{
		Code:    code,
		Players: make(map[string]*Player),
		Phase:   PhaseLobby,
	}
}

// AddPlayer enrolls a player; the first player in is the host.
func (r *Room) AddPlayer(id, name string) *Player {
	p := &Player{
		ID:     id,
		Name:   name,
		IsHost: len(r.Players) == 0,
	}
	r.Players[id] = p
	return p
}

// RemovePlayer drops a player; it reports whether the player was present.
// A departing player's answer leaves the window with them, keeping the
// answered count consistent with the remaining player set.
func (r *Room) RemovePlayer(id string) bool {
	p, ok := r.Players[id]
	if !ok {
		return false
	}
	if p.Answered && r.AnswerCount > 0 {
		r.AnswerCount--
	}
	delete(r.Players, id)
	return true
}

// Empty reports whether no players remain.
func (r *Room) Empty() bool {
	return len(r.Players) == 0
}

// ResetScores zeroes every score at game start.
func (r *Room) ResetScores() {
	for _, p := range r.Players {
		p.Score = 0
	}
}

// ResetRound clears the answer window for a fresh question: the answered
// count and every player's flag, exactly once per question transition.
func (r *Room) ResetRound() {
	r.AnswerCount = 0
	for _, p := range r.Players {
		p.Answered = false
	}
}

// AllAnswered reports whether the full current player set has answered the
// active question (the quorum).
func (r *Room) AllAnswered() bool {
	return r.AnswerCount >= len(r.Players)
}

// Standings returns the players sorted by score descending, name ascending
// as a tiebreak.
func (r *Room) Standings() []*Player {
	out := make([]*Player, 0, len(r.Players))
	for _, p := range r.Players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	return out
}
