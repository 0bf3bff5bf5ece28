// Package arena is the session coordinator: it owns the live-room table
// with exclusive mutation rights, routes inbound client events to the right
// room, runs selection once at game start, and drives timer-based
// progression. Every handler and fired timer callback runs to completion
// under one lock, so rooms need no locking of their own.
package arena

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mertyk/kpss-arena/go/internal/arena/scheduler"
	"github.com/mertyk/kpss-arena/go/internal/events"
	"github.com/mertyk/kpss-arena/go/internal/question"
	"github.com/mertyk/kpss-arena/go/internal/room"
	"github.com/mertyk/kpss-arena/go/internal/selection"
)

var (
	// ErrRoomNotFound is the one lookup failure surfaced to the requester;
	// every other room lookup miss is a silent no-op.
	ErrRoomNotFound = errors.New("böyle bir oda bulunamadı")
	// ErrGameInProgress rejects a join after the lobby phase when late
	// joins are disabled by policy.
	ErrGameInProgress = errors.New("oyun çoktan başladı")
	// ErrNotHost rejects a start request from a non-host when starts are
	// host-restricted by policy.
	ErrNotHost = errors.New("oyunu sadece oda sahibi başlatabilir")
)

// blankAnswer is the sentinel a client submits for "no answer".
const blankAnswer = -1

// Coordinator owns all live rooms of one process.
type Coordinator struct {
	store     *question.Store
	broadcast events.Broadcaster
	sched     *scheduler.Scheduler
	clock     clockwork.Clock
	policy    Policy

	mu    sync.Mutex
	rooms map[string]*room.Room
	rng   *rand.Rand
}

// New creates a coordinator on the given clock; production passes
// clockwork.NewRealClock().
func New(store *question.Store, broadcast events.Broadcaster, clock clockwork.Clock, policy Policy) *Coordinator {
	if policy.AdvanceGrace <= 0 {
		policy.AdvanceGrace = DefaultPolicy().AdvanceGrace
	}
	return &Coordinator{
		store:     store,
		broadcast: broadcast,
		sched:     scheduler.New(clock),
		clock:     clock,
		policy:    policy,
		rooms:     make(map[string]*room.Room),
		rng:       rand.New(rand.NewSource(clock.Now().UnixNano())),
	}
}

// CreateRoom opens a new room in the lobby phase with the caller as host
// and returns its code. Codes are 4-digit strings, retried until free
// among live rooms.
func (c *Coordinator) CreateRoom(connID, name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	code := c.newCode()
	r := room.New(code)
	r.AddPlayer(connID, name)
	c.rooms[code] = r

	log.Info().Str("room", code).Str("player", name).Msg("room created")
	c.sendToPlayer(connID, code, events.TypeRoomCreated, events.RoomCreatedPayload{Code: code})
	c.broadcastPlayerList(r)
	return code
}

func (c *Coordinator) newCode() string {
	for {
		code := fmt.Sprintf("%04d", 1000+c.rng.Intn(9000))
		if _, taken := c.rooms[code]; !taken {
			return code
		}
	}
}

// JoinRoom enrolls the caller as a non-host player with a zero score.
func (c *Coordinator) JoinRoom(connID, name, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.rooms[code]
	if !ok {
		return ErrRoomNotFound
	}
	if !c.policy.AllowLateJoin && r.Phase != room.PhaseLobby {
		return ErrGameInProgress
	}

	r.AddPlayer(connID, name)
	log.Info().Str("room", code).Str("player", name).Msg("player joined")
	c.sendToPlayer(connID, code, events.TypeRoomJoined, events.RoomJoinedPayload{Code: code})
	c.broadcastPlayerList(r)
	return nil
}

// StartGame resolves the config, fixes the question sequence, resets
// scores, and delivers the first question. A missing room is a silent
// no-op; restarting a finished or running game is allowed.
func (c *Coordinator) StartGame(connID, code string, cfg GameConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.rooms[code]
	if !ok {
		return nil
	}
	if c.policy.HostOnlyStart {
		p, ok := r.Players[connID]
		if !ok || !p.IsHost {
			return ErrNotHost
		}
	}

	// A restart supersedes every timer of the previous game.
	c.sched.CancelAll(code)

	qs := selection.Select(c.store.All(), cfg.selection(), c.rng)
	if len(qs) == 0 {
		text := "Seçilen kriterlere uygun soru bulunamadı!"
		if cfg.IsMistakeMode {
			text = "Hatalı soru bulunamadı! Tarayıcı geçmişi silinmiş olabilir."
		}
		qs = []question.Record{question.Placeholder(text)}
	}

	r.Questions = qs
	r.Settings = cfg.settings()
	r.ResetScores()
	r.Phase = room.PhaseInProgress
	r.CurrentIndex = 0
	r.Generation++

	log.Info().
		Str("room", code).
		Int("questions", len(qs)).
		Str("mode", string(r.Settings.TimingMode)).
		Bool("mistake_mode", cfg.IsMistakeMode).
		Msg("game started")

	if r.Settings.TimingMode == room.TimingWholeSession {
		total := time.Duration(r.Settings.Duration) * time.Minute
		r.SessionDeadline = c.clock.Now().Add(total)
		gen := r.Generation
		c.sched.Schedule(code, scheduler.KindSession, total, func() {
			c.onSessionDeadline(code, gen)
		})
	}

	c.deliverQuestion(r)
	return nil
}

// SubmitAnswer records one player's answer for the current question. Any
// precondition failure — unknown room, wrong phase, unknown player, or a
// duplicate submission — is a silent no-op.
func (c *Coordinator) SubmitAnswer(connID, code string, answerIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.rooms[code]
	if !ok || r.Phase != room.PhaseInProgress {
		return
	}
	p, ok := r.Players[connID]
	if !ok || p.Answered {
		return
	}

	p.Answered = true
	r.AnswerCount++

	q := r.Questions[r.CurrentIndex]
	blank := answerIndex == blankAnswer
	correct := !blank && answerIndex == q.Correct
	elapsed := c.clock.Now().Sub(r.QuestionStartedAt)
	points := room.Score(correct, blank, elapsed, r.Settings.ScoringWindow())
	p.Score += points

	c.sendToPlayer(connID, code, events.TypeAnswerResult, events.AnswerResultPayload{
		Correct:       correct,
		CorrectIndex:  q.Correct,
		SelectedIndex: answerIndex,
		IsBlank:       blank,
		Points:        points,
	})
	c.broadcastPlayerList(r)

	c.advanceOnQuorum(code, r)
}

// advanceOnQuorum schedules the grace advance once the full current player
// set has answered, superseding any pending question deadline. The quorum
// can complete on an answer or on the last unanswered player leaving.
// Caller holds c.mu.
func (c *Coordinator) advanceOnQuorum(code string, r *room.Room) {
	if !r.AllAnswered() {
		return
	}
	c.sched.Cancel(code, scheduler.KindQuestion)
	epoch := r.Epoch
	c.sched.Schedule(code, scheduler.KindAdvance, c.policy.AdvanceGrace, func() {
		c.advanceFrom(code, epoch)
	})
}

// JumpToQuestion forces the cursor for single-player navigation and
// re-delivers the question with a fresh timer window. A multi-player room
// or an out-of-range index rejects silently.
func (c *Coordinator) JumpToQuestion(code string, index int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.rooms[code]
	if !ok || r.Phase != room.PhaseInProgress {
		return
	}
	if len(r.Players) > 1 {
		return
	}
	if index < 0 || index >= len(r.Questions) {
		return
	}

	r.CurrentIndex = index
	c.deliverQuestion(r)
}

// Disconnect removes the player from every room they occupy and deletes
// any room left empty, at any phase.
func (c *Coordinator) Disconnect(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for code, r := range c.rooms {
		if !r.RemovePlayer(connID) {
			continue
		}
		if r.Empty() {
			c.sched.CancelAll(code)
			delete(c.rooms, code)
			log.Info().Str("room", code).Msg("room deleted, last player left")
			continue
		}
		c.broadcastPlayerList(r)
		if r.Phase == room.PhaseInProgress {
			c.advanceOnQuorum(code, r)
		}
	}
}
