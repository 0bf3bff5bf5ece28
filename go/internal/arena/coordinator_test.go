package arena

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mertyk/kpss-arena/go/internal/events"
	"github.com/mertyk/kpss-arena/go/internal/question"
	"github.com/mertyk/kpss-arena/go/internal/room"
)

// recorder captures everything the coordinator emits. Timer callbacks fire
// from their own goroutines, so access is serialized.
type recorder struct {
	mu      sync.Mutex
	rooms   []*events.Event
	private map[string][]*events.Event
}

func newRecorder() *recorder {
	return &recorder{private: make(map[string][]*events.Event)}
}

func (rec *recorder) BroadcastToRoom(code string, evt *events.Event) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.rooms = append(rec.rooms, evt)
}

func (rec *recorder) SendToPlayer(playerID string, evt *events.Event) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.private[playerID] = append(rec.private[playerID], evt)
}

func (rec *recorder) broadcastsOf(typ events.Type) []*events.Event {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	var out []*events.Event
	for _, evt := range rec.rooms {
		if evt.Type == typ {
			out = append(out, evt)
		}
	}
	return out
}

func (rec *recorder) privateOf(playerID string, typ events.Type) []*events.Event {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	var out []*events.Event
	for _, evt := range rec.private[playerID] {
		if evt.Type == typ {
			out = append(out, evt)
		}
	}
	return out
}

func decodePayload[T any](t *testing.T, evt *events.Event) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(evt.Data, &out))
	return out
}

// singleOptionCorpus writes n one-option questions; their correct index
// survives option shuffling, so answer index 0 is always right.
func singleOptionCorpus(t *testing.T, n int) *question.Store {
	t.Helper()
	records := make([]question.Record, n)
	for i := range records {
		records[i] = question.Record{
			Text:    "Soru " + string(rune('A'+i)),
			Subject: "Tarih",
			Options: []string{"Doğru"},
			Correct: 0,
		}
	}
	raw, err := json.Marshal(records)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "questions.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return question.Load(path)
}

func newTestCoordinator(t *testing.T, n int, policy Policy) (*Coordinator, *recorder, *clockwork.FakeClock) {
	t.Helper()
	rec := newRecorder()
	clock := clockwork.NewFakeClock()
	return New(singleOptionCorpus(t, n), rec, clock, policy), rec, clock
}

func perQuestionConfig(count, seconds int) GameConfig {
	return GameConfig{
		Count:     FlexInt(count),
		TimerMode: room.TimingPerQuestion,
		Duration:  FlexInt(seconds),
	}
}

func lastQuestionIndex(rec *recorder, t *testing.T) int {
	t.Helper()
	evts := rec.broadcastsOf(events.TypeNewQuestion)
	if len(evts) == 0 {
		return 0
	}
	return decodePayload[events.NewQuestionPayload](t, evts[len(evts)-1]).Index
}

func TestCreateAndJoinRoom(t *testing.T) {
	c, rec, _ := newTestCoordinator(t, 3, DefaultPolicy())

	code := c.CreateRoom("c1", "Ayşe")
	require.Len(t, code, 4)

	created := rec.privateOf("c1", events.TypeRoomCreated)
	require.Len(t, created, 1)
	assert.Equal(t, code, decodePayload[events.RoomCreatedPayload](t, created[0]).Code)

	require.NoError(t, c.JoinRoom("c2", "Mehmet", code))

	lists := rec.broadcastsOf(events.TypePlayerList)
	require.NotEmpty(t, lists)
	last := decodePayload[events.PlayerListPayload](t, lists[len(lists)-1])
	require.Len(t, last.Players, 2)
}

func TestJoinRoom_UnknownCode(t *testing.T) {
	c, _, _ := newTestCoordinator(t, 3, DefaultPolicy())
	assert.ErrorIs(t, c.JoinRoom("c1", "Ayşe", "0000"), ErrRoomNotFound)
}

func TestJoinRoom_LateJoinDisabled(t *testing.T) {
	policy := DefaultPolicy()
	policy.AllowLateJoin = false
	c, _, _ := newTestCoordinator(t, 3, policy)

	code := c.CreateRoom("c1", "Ayşe")
	require.NoError(t, c.StartGame("c1", code, perQuestionConfig(3, 20)))

	assert.ErrorIs(t, c.JoinRoom("c2", "Mehmet", code), ErrGameInProgress)
}

func TestStartGame_HostOnly(t *testing.T) {
	policy := DefaultPolicy()
	policy.HostOnlyStart = true
	c, _, _ := newTestCoordinator(t, 3, policy)

	code := c.CreateRoom("c1", "Ayşe")
	require.NoError(t, c.JoinRoom("c2", "Mehmet", code))

	assert.ErrorIs(t, c.StartGame("c2", code, perQuestionConfig(3, 20)), ErrNotHost)
	assert.NoError(t, c.StartGame("c1", code, perQuestionConfig(3, 20)))
}

func TestStartGame_DeliversFirstQuestion(t *testing.T) {
	c, rec, _ := newTestCoordinator(t, 3, DefaultPolicy())

	code := c.CreateRoom("c1", "Ayşe")
	require.NoError(t, c.StartGame("c1", code, perQuestionConfig(3, 20)))

	qs := rec.broadcastsOf(events.TypeNewQuestion)
	require.Len(t, qs, 1)
	payload := decodePayload[events.NewQuestionPayload](t, qs[0])
	assert.Equal(t, 1, payload.Index)
	assert.Equal(t, 3, payload.Total)
	assert.Equal(t, 20, payload.Duration)
	assert.Equal(t, string(room.TimingPerQuestion), payload.Mode)
}

func TestStartGame_PlaceholderWhenNothingMatches(t *testing.T) {
	c, rec, _ := newTestCoordinator(t, 3, DefaultPolicy())

	code := c.CreateRoom("c1", "Ayşe")
	cfg := GameConfig{
		IsMistakeMode: true,
		MistakeList:   []string{"yok böyle bir soru"},
		TimerMode:     room.TimingPerQuestion,
		Duration:      20,
	}
	require.NoError(t, c.StartGame("c1", code, cfg))

	qs := rec.broadcastsOf(events.TypeNewQuestion)
	require.Len(t, qs, 1)
	payload := decodePayload[events.NewQuestionPayload](t, qs[0])
	assert.Contains(t, payload.Text, "Hatalı soru bulunamadı")
	assert.Equal(t, []string{"Tamam"}, payload.Options)
	assert.Equal(t, 1, payload.Total)
}

func TestSubmitAnswer_CorrectAndResult(t *testing.T) {
	c, rec, _ := newTestCoordinator(t, 3, DefaultPolicy())

	code := c.CreateRoom("c1", "Ayşe")
	require.NoError(t, c.JoinRoom("c2", "Mehmet", code))
	require.NoError(t, c.StartGame("c1", code, perQuestionConfig(3, 20)))

	c.SubmitAnswer("c1", code, 0)

	results := rec.privateOf("c1", events.TypeAnswerResult)
	require.Len(t, results, 1)
	payload := decodePayload[events.AnswerResultPayload](t, results[0])
	assert.True(t, payload.Correct)
	assert.False(t, payload.IsBlank)
	assert.Equal(t, 0, payload.CorrectIndex)
	// full window left: 10 base + 20/4 bonus
	assert.Equal(t, 15, payload.Points)
}

func TestSubmitAnswer_WrongAndBlank(t *testing.T) {
	c, rec, _ := newTestCoordinator(t, 3, DefaultPolicy())

	code := c.CreateRoom("c1", "Ayşe")
	require.NoError(t, c.JoinRoom("c2", "Mehmet", code))
	require.NoError(t, c.StartGame("c1", code, perQuestionConfig(3, 20)))

	c.SubmitAnswer("c1", code, 3)
	c.SubmitAnswer("c2", code, -1)

	wrong := decodePayload[events.AnswerResultPayload](t, rec.privateOf("c1", events.TypeAnswerResult)[0])
	assert.False(t, wrong.Correct)
	assert.Equal(t, -5, wrong.Points)

	blank := decodePayload[events.AnswerResultPayload](t, rec.privateOf("c2", events.TypeAnswerResult)[0])
	assert.True(t, blank.IsBlank)
	assert.False(t, blank.Correct)
	assert.Zero(t, blank.Points)
}

func TestSubmitAnswer_DuplicateIgnored(t *testing.T) {
	c, rec, _ := newTestCoordinator(t, 3, DefaultPolicy())

	code := c.CreateRoom("c1", "Ayşe")
	require.NoError(t, c.JoinRoom("c2", "Mehmet", code))
	require.NoError(t, c.StartGame("c1", code, perQuestionConfig(3, 20)))

	c.SubmitAnswer("c1", code, 0)
	c.SubmitAnswer("c1", code, 0)

	assert.Len(t, rec.privateOf("c1", events.TypeAnswerResult), 1)
}

func TestSubmitAnswer_FasterScoresMore(t *testing.T) {
	c, rec, clock := newTestCoordinator(t, 3, DefaultPolicy())

	code := c.CreateRoom("c1", "Ayşe")
	require.NoError(t, c.JoinRoom("c2", "Mehmet", code))
	require.NoError(t, c.StartGame("c1", code, perQuestionConfig(3, 20)))

	c.SubmitAnswer("c1", code, 0)
	clock.Advance(8 * time.Second)
	c.SubmitAnswer("c2", code, 0)

	fast := decodePayload[events.AnswerResultPayload](t, rec.privateOf("c1", events.TypeAnswerResult)[0])
	slow := decodePayload[events.AnswerResultPayload](t, rec.privateOf("c2", events.TypeAnswerResult)[0])
	assert.Greater(t, fast.Points, slow.Points)
	assert.GreaterOrEqual(t, slow.Points, 10)
}

func TestQuorumAdvancesAfterGrace(t *testing.T) {
	c, rec, clock := newTestCoordinator(t, 3, DefaultPolicy())

	code := c.CreateRoom("c1", "Ayşe")
	require.NoError(t, c.JoinRoom("c2", "Mehmet", code))
	require.NoError(t, c.StartGame("c1", code, perQuestionConfig(3, 60)))

	c.SubmitAnswer("c1", code, 0)
	c.SubmitAnswer("c2", code, -1)

	// quorum supersedes the 60 s deadline; the reveal grace is all that runs
	clock.Advance(DefaultPolicy().AdvanceGrace)
	require.Eventually(t, func() bool {
		return lastQuestionIndex(rec, t) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestQuorumAdvancesInWholeSessionMode(t *testing.T) {
	c, rec, clock := newTestCoordinator(t, 3, DefaultPolicy())

	code := c.CreateRoom("c1", "Ayşe")
	cfg := GameConfig{Count: 3, TimerMode: room.TimingWholeSession, Duration: 30}
	require.NoError(t, c.StartGame("c1", code, cfg))

	c.SubmitAnswer("c1", code, 0)

	clock.Advance(DefaultPolicy().AdvanceGrace)
	require.Eventually(t, func() bool {
		return lastQuestionIndex(rec, t) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPerQuestionDeadlineAdvances(t *testing.T) {
	c, rec, clock := newTestCoordinator(t, 3, DefaultPolicy())

	code := c.CreateRoom("c1", "Ayşe")
	require.NoError(t, c.StartGame("c1", code, perQuestionConfig(3, 5)))

	clock.Advance(5 * time.Second)
	require.Eventually(t, func() bool {
		return lastQuestionIndex(rec, t) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGameOverAfterLastQuestion(t *testing.T) {
	c, rec, clock := newTestCoordinator(t, 1, DefaultPolicy())

	code := c.CreateRoom("c1", "Ayşe")
	require.NoError(t, c.StartGame("c1", code, perQuestionConfig(1, 5)))

	c.SubmitAnswer("c1", code, 0)

	clock.Advance(DefaultPolicy().AdvanceGrace)
	require.Eventually(t, func() bool {
		return len(rec.broadcastsOf(events.TypeGameOver)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	over := decodePayload[events.GameOverPayload](t, rec.broadcastsOf(events.TypeGameOver)[0])
	require.Len(t, over.Players, 1)
	assert.Equal(t, "Ayşe", over.Players[0].Name)
	assert.Equal(t, 15, over.Players[0].Score)
}

func TestWholeSessionDeadlineEndsGame(t *testing.T) {
	c, rec, clock := newTestCoordinator(t, 3, DefaultPolicy())

	code := c.CreateRoom("c1", "Ayşe")
	cfg := GameConfig{Count: 3, TimerMode: room.TimingWholeSession, Duration: 1}
	require.NoError(t, c.StartGame("c1", code, cfg))

	clock.Advance(time.Minute)
	require.Eventually(t, func() bool {
		return len(rec.broadcastsOf(events.TypeGameOver)) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestJumpToQuestion_SinglePlayerOnly(t *testing.T) {
	c, rec, _ := newTestCoordinator(t, 3, DefaultPolicy())

	code := c.CreateRoom("c1", "Ayşe")
	require.NoError(t, c.StartGame("c1", code, perQuestionConfig(3, 20)))

	c.JumpToQuestion(code, 2)
	assert.Equal(t, 3, lastQuestionIndex(rec, t))

	// out-of-range indexes reject silently
	c.JumpToQuestion(code, 7)
	assert.Equal(t, 3, lastQuestionIndex(rec, t))

	// a second player disables navigation
	require.NoError(t, c.JoinRoom("c2", "Mehmet", code))
	c.JumpToQuestion(code, 0)
	assert.Equal(t, 3, lastQuestionIndex(rec, t))
}

func TestDisconnect_LastUnansweredPlayerCompletesQuorum(t *testing.T) {
	c, rec, clock := newTestCoordinator(t, 3, DefaultPolicy())

	code := c.CreateRoom("c1", "Ayşe")
	require.NoError(t, c.JoinRoom("c2", "Mehmet", code))
	cfg := GameConfig{Count: 3, TimerMode: room.TimingWholeSession, Duration: 30}
	require.NoError(t, c.StartGame("c1", code, cfg))

	c.SubmitAnswer("c1", code, 0)
	// the only player still owing an answer leaves; everyone remaining has
	// answered, so the room must not stall until the session deadline
	c.Disconnect("c2")

	clock.Advance(DefaultPolicy().AdvanceGrace)
	require.Eventually(t, func() bool {
		return lastQuestionIndex(rec, t) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDisconnect_AnsweredPlayerLeavingDoesNotAdvance(t *testing.T) {
	c, rec, clock := newTestCoordinator(t, 3, DefaultPolicy())

	code := c.CreateRoom("c1", "Ayşe")
	require.NoError(t, c.JoinRoom("c2", "Mehmet", code))
	require.NoError(t, c.JoinRoom("c3", "Ali", code))
	require.NoError(t, c.StartGame("c1", code, perQuestionConfig(3, 60)))

	c.SubmitAnswer("c1", code, 0)
	c.Disconnect("c1")

	// two unanswered players remain; their quorum is still open
	clock.Advance(DefaultPolicy().AdvanceGrace)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, lastQuestionIndex(rec, t))
}

func TestEventTimestampsFollowClock(t *testing.T) {
	c, rec, clock := newTestCoordinator(t, 3, DefaultPolicy())

	c.CreateRoom("c1", "Ayşe")

	created := rec.privateOf("c1", events.TypeRoomCreated)
	require.Len(t, created, 1)
	assert.True(t, created[0].Timestamp.Equal(clock.Now()))
}

func TestDisconnect_LastPlayerDeletesRoom(t *testing.T) {
	c, _, _ := newTestCoordinator(t, 3, DefaultPolicy())

	code := c.CreateRoom("c1", "Ayşe")
	c.Disconnect("c1")

	assert.ErrorIs(t, c.JoinRoom("c2", "Mehmet", code), ErrRoomNotFound)
}

func TestDisconnect_OthersKeepPlaying(t *testing.T) {
	c, rec, _ := newTestCoordinator(t, 3, DefaultPolicy())

	code := c.CreateRoom("c1", "Ayşe")
	require.NoError(t, c.JoinRoom("c2", "Mehmet", code))

	c.Disconnect("c1")

	lists := rec.broadcastsOf(events.TypePlayerList)
	require.NotEmpty(t, lists)
	last := decodePayload[events.PlayerListPayload](t, lists[len(lists)-1])
	require.Len(t, last.Players, 1)
	assert.Equal(t, "Mehmet", last.Players[0].Name)
}
