package events

// PlayerInfo is one scoreboard row.
type PlayerInfo struct {
	ID     string `json:"id"`
	Name   string `json:"username"`
	Score  int    `json:"score"`
	IsHost bool   `json:"isHost"`
}

// RoomCreatedPayload goes privately to the creator.
type RoomCreatedPayload struct {
	Code string `json:"roomCode"`
}

// RoomJoinedPayload goes privately to the joiner.
type RoomJoinedPayload struct {
	Code string `json:"roomCode"`
}

// ErrorPayload carries a user-facing failure reason.
type ErrorPayload struct {
	Reason string `json:"reason"`
}

// PlayerListPayload is the room-wide scoreboard broadcast.
type PlayerListPayload struct {
	Players []PlayerInfo `json:"players"`
}

// NewQuestionPayload presents one question without its correct index.
type NewQuestionPayload struct {
	Text        string   `json:"soru"`
	Options     []string `json:"siklar"`
	Subject     string   `json:"ders"`
	Difficulty  string   `json:"zorluk,omitempty"`
	Source      string   `json:"deneme,omitempty"`
	Image       string   `json:"resim,omitempty"`
	Explanation string   `json:"cozum,omitempty"`

	Index    int    `json:"index"` // 1-based
	Total    int    `json:"total"`
	Duration int    `json:"duration"`
	Mode     string `json:"timerMode"`
	// RemainingTime is the remaining whole-session budget in seconds; zero
	// in per-question mode.
	RemainingTime int `json:"remainingTime"`
}

// AnswerResultPayload goes privately to the answerer.
type AnswerResultPayload struct {
	Correct       bool `json:"correct"`
	CorrectIndex  int  `json:"correctIndex"`
	SelectedIndex int  `json:"selectedIndex"`
	IsBlank       bool `json:"isBlank"`
	Points        int  `json:"points"`
}

// GameOverPayload carries the final standings.
type GameOverPayload struct {
	Players []PlayerInfo `json:"players"`
}

// SetListPayload is the connect-time inventory of question sources.
type SetListPayload struct {
	Sources       map[string]int `json:"denemeler"`
	OriginalCount int            `json:"ozgunSayi"`
}

// SubjectListPayload is the connect-time list of available subjects.
type SubjectListPayload struct {
	Subjects []string `json:"subjects"`
}
