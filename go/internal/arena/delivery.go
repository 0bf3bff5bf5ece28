package arena

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mertyk/kpss-arena/go/internal/arena/scheduler"
	"github.com/mertyk/kpss-arena/go/internal/events"
	"github.com/mertyk/kpss-arena/go/internal/room"
)

// deliverQuestion broadcasts the current question, or ends the game when
// the cursor has run off the sequence. Caller holds c.mu.
func (c *Coordinator) deliverQuestion(r *room.Room) {
	if r.CurrentIndex >= len(r.Questions) {
		c.finishGame(r)
		return
	}

	r.ResetRound()
	r.QuestionStartedAt = c.clock.Now()
	r.Epoch++

	q := r.Questions[r.CurrentIndex]

	remaining := 0
	if r.Settings.TimingMode == room.TimingWholeSession {
		remaining = int(r.SessionDeadline.Sub(c.clock.Now()).Seconds())
		if remaining < 0 {
			remaining = 0
		}
	}

	// The correct index stays server-side; clients learn it per answer.
	c.broadcastToRoom(r.Code, events.TypeNewQuestion, events.NewQuestionPayload{
		Text:          q.Text,
		Options:       q.Options,
		Subject:       q.Subject,
		Difficulty:    q.Difficulty,
		Source:        q.Source,
		Image:         q.Image,
		Explanation:   q.Explanation,
		Index:         r.CurrentIndex + 1,
		Total:         len(r.Questions),
		Duration:      r.Settings.Duration,
		Mode:          string(r.Settings.TimingMode),
		RemainingTime: remaining,
	})

	if r.Settings.TimingMode == room.TimingPerQuestion {
		epoch := r.Epoch
		code := r.Code
		c.sched.Schedule(code, scheduler.KindQuestion,
			time.Duration(r.Settings.Duration)*time.Second, func() {
				c.advanceFrom(code, epoch)
			})
	} else {
		c.sched.Cancel(r.Code, scheduler.KindQuestion)
	}
}

// advanceFrom moves the room past the question it was on when the firing
// timer was armed. The epoch guard rejects stale continuations: a deadline
// that lost the race with a quorum advance, navigation, restart, or room
// deletion must not move the cursor again.
func (c *Coordinator) advanceFrom(code string, epoch int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.rooms[code]
	if !ok || r.Phase != room.PhaseInProgress || r.Epoch != epoch {
		return
	}
	r.CurrentIndex++
	c.deliverQuestion(r)
}

// onSessionDeadline ends the game when the whole-session budget elapses,
// unless the game it was armed for is already over or replaced.
func (c *Coordinator) onSessionDeadline(code string, generation int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.rooms[code]
	if !ok || r.Phase != room.PhaseInProgress || r.Generation != generation {
		return
	}
	log.Info().Str("room", code).Msg("session time elapsed")
	c.finishGame(r)
}

// finishGame broadcasts the final standings and parks the room in the
// finished phase. Caller holds c.mu.
func (c *Coordinator) finishGame(r *room.Room) {
	c.sched.CancelAll(r.Code)
	r.Phase = room.PhaseFinished
	log.Info().Str("room", r.Code).Msg("game over")
	c.broadcastToRoom(r.Code, events.TypeGameOver, events.GameOverPayload{
		Players: c.playerInfos(r),
	})
}

func (c *Coordinator) playerInfos(r *room.Room) []events.PlayerInfo {
	standings := r.Standings()
	out := make([]events.PlayerInfo, len(standings))
	for i, p := range standings {
		out[i] = events.PlayerInfo{ID: p.ID, Name: p.Name, Score: p.Score, IsHost: p.IsHost}
	}
	return out
}

func (c *Coordinator) broadcastPlayerList(r *room.Room) {
	c.broadcastToRoom(r.Code, events.TypePlayerList, events.PlayerListPayload{
		Players: c.playerInfos(r),
	})
}

func (c *Coordinator) broadcastToRoom(code string, typ events.Type, payload any) {
	evt, err := events.NewAt(code, typ, payload, c.clock.Now())
	if err != nil {
		log.Error().Err(err).Str("room", code).Str("type", string(typ)).Msg("failed to build event")
		return
	}
	c.broadcast.BroadcastToRoom(code, evt)
}

func (c *Coordinator) sendToPlayer(playerID, code string, typ events.Type, payload any) {
	evt, err := events.NewAt(code, typ, payload, c.clock.Now())
	if err != nil {
		log.Error().Err(err).Str("room", code).Str("type", string(typ)).Msg("failed to build event")
		return
	}
	c.broadcast.SendToPlayer(playerID, evt)
}
