package gateway

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/mertyk/kpss-arena/go/internal/arena"
	"github.com/mertyk/kpss-arena/go/internal/events"
	"github.com/mertyk/kpss-arena/go/internal/question"
	"github.com/mertyk/kpss-arena/go/internal/reports"
)

// Engine is what the gateway needs from the session coordinator.
type Engine interface {
	CreateRoom(connID, name string) string
	JoinRoom(connID, name, code string) error
	StartGame(connID, code string, cfg arena.GameConfig) error
	SubmitAnswer(connID, code string, answerIndex int)
	JumpToQuestion(code string, index int)
	Disconnect(connID string)
}

// clientCommand is the inbound message envelope.
type clientCommand struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type createRoomPayload struct {
	Username string `json:"username"`
}

type joinRoomPayload struct {
	Username string `json:"username"`
	RoomCode string `json:"roomCode"`
}

type startGamePayload struct {
	RoomCode string           `json:"roomCode"`
	Settings arena.GameConfig `json:"settings"`
}

type submitAnswerPayload struct {
	RoomCode    string `json:"roomCode"`
	AnswerIndex *int   `json:"answerIndex"`
}

type jumpPayload struct {
	RoomCode string `json:"roomCode"`
	Index    int    `json:"index"`
}

type reportPayload struct {
	Username string `json:"username"`
	Question string `json:"soru"`
	Source   string `json:"deneme"`
	Reason   string `json:"reason"`
}

// handleCommand routes one inbound client message. A malformed message is
// dropped with a log line; per-room faults never escape the handler.
func (s *Service) handleCommand(conn *Connection, raw []byte) {
	var cmd clientCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		log.Warn().Err(err).Str("connection_id", conn.ID).Msg("malformed client command")
		return
	}

	switch cmd.Type {
	case "createRoom":
		var p createRoomPayload
		if err := json.Unmarshal(cmd.Data, &p); err != nil {
			s.sendError(conn, "geçersiz istek")
			return
		}
		code := s.engine.CreateRoom(conn.ID, p.Username)
		s.cm.JoinRoom(conn, code)

	case "joinRoom":
		var p joinRoomPayload
		if err := json.Unmarshal(cmd.Data, &p); err != nil {
			s.sendError(conn, "geçersiz istek")
			return
		}
		if err := s.engine.JoinRoom(conn.ID, p.Username, p.RoomCode); err != nil {
			s.sendError(conn, err.Error())
			return
		}
		s.cm.JoinRoom(conn, p.RoomCode)

	case "startGame":
		var p startGamePayload
		if err := json.Unmarshal(cmd.Data, &p); err != nil {
			s.sendError(conn, "geçersiz istek")
			return
		}
		if err := s.engine.StartGame(conn.ID, p.RoomCode, p.Settings); err != nil {
			s.sendError(conn, err.Error())
		}

	case "submitAnswer":
		var p submitAnswerPayload
		if err := json.Unmarshal(cmd.Data, &p); err != nil || p.AnswerIndex == nil {
			return
		}
		s.engine.SubmitAnswer(conn.ID, p.RoomCode, *p.AnswerIndex)

	case "jumpToQuestion":
		var p jumpPayload
		if err := json.Unmarshal(cmd.Data, &p); err != nil {
			return
		}
		s.engine.JumpToQuestion(p.RoomCode, p.Index)

	case "reportQuestion":
		var p reportPayload
		if err := json.Unmarshal(cmd.Data, &p); err != nil {
			return
		}
		log.Warn().Str("question", p.Question).Str("reporter", p.Username).Msg("question reported")
		s.reports.Submit(reports.Report{
			Reporter: p.Username,
			Question: p.Question,
			Source:   p.Source,
			Reason:   p.Reason,
		})

	case "addQuestion":
		var q question.Record
		if err := json.Unmarshal(cmd.Data, &q); err != nil {
			s.sendError(conn, "geçersiz soru")
			return
		}
		s.store.Append(q)

	default:
		log.Debug().Str("type", cmd.Type).Str("connection_id", conn.ID).Msg("unknown client command")
	}
}

func (s *Service) sendError(conn *Connection, reason string) {
	evt, err := events.New("", events.TypeErrorMsg, events.ErrorPayload{Reason: reason})
	if err != nil {
		return
	}
	s.cm.SendToPlayer(conn.ID, evt)
}
