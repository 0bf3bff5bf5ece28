// Package events defines the outbound event surface of the session engine:
// a typed envelope carried over whatever transport is wired in, and the
// Broadcaster port the engine emits through.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type identifies an outbound room event. The values are the wire names
// clients subscribe to.
type Type string

const (
	TypeRoomCreated   Type = "roomCreated"
	TypeRoomJoined    Type = "roomJoined"
	TypeErrorMsg      Type = "errorMsg"
	TypePlayerList    Type = "updatePlayerList"
	TypeNewQuestion   Type = "newQuestion"
	TypeAnswerResult  Type = "answerResult"
	TypeGameOver      Type = "gameOver"
	TypeSetList       Type = "updateDenemeList"
	TypeSubjectList   Type = "updateSubjectList"
)

// Event is the envelope for every outbound event.
type Event struct {
	ID        string          `json:"id"`
	Room      string          `json:"room,omitempty"`
	Type      Type            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// New wraps a payload into an envelope stamped with wall-clock time.
// Marshal failures cannot happen for the payload types in this package, so
// they only surface in the error.
func New(roomCode string, typ Type, payload any) (*Event, error) {
	return NewAt(roomCode, typ, payload, time.Now())
}

// NewAt is New with an explicit timestamp; the session engine passes its
// own clock's time so envelopes stay consistent with game timing.
func NewAt(roomCode string, typ Type, payload any, at time.Time) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:        uuid.New().String(),
		Room:      roomCode,
		Type:      typ,
		Timestamp: at,
		Data:      data,
	}, nil
}

// Broadcaster is how the engine pushes events out; the transport layer
// implements it. Room broadcasts reach every member, player sends exactly
// one connection.
type Broadcaster interface {
	BroadcastToRoom(code string, evt *Event)
	SendToPlayer(playerID string, evt *Event)
}
