package room

// Player is one connected member of a room. The ID is the transport
// connection identifier; scores may go negative.
type Player struct {
	ID     string
	Name   string
	Score  int
	IsHost bool
	// Answered guards against duplicate submissions within one question.
	Answered bool
}
