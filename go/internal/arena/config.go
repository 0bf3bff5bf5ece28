package arena

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/mertyk/kpss-arena/go/internal/room"
	"github.com/mertyk/kpss-arena/go/internal/selection"
)

// Policy is the server-side configuration of the open policy questions:
// who may start a game, whether joins after the lobby phase are allowed,
// and how long the post-answer reveal grace lasts.
type Policy struct {
	HostOnlyStart bool
	AllowLateJoin bool
	AdvanceGrace  time.Duration
}

// DefaultPolicy matches the reference behavior: anyone may start, late
// joins allowed, 1.5 s reveal grace.
func DefaultPolicy() Policy {
	return Policy{
		HostOnlyStart: false,
		AllowLateJoin: true,
		AdvanceGrace:  1500 * time.Millisecond,
	}
}

// GameConfig is the session configuration a client submits with startGame.
// Clients are browser code, so scalar fields arrive as numbers or numeric
// strings and list fields as a single label or an array.
type GameConfig struct {
	Count         FlexInt         `json:"count"`
	Subject       StringList      `json:"subject"`
	Difficulty    string          `json:"difficulty"`
	OptionCount   FlexInt         `json:"optionCount"`
	TimerMode     room.TimingMode `json:"timerMode"`
	Duration      FlexInt         `json:"duration"`
	IsMistakeMode bool            `json:"isMistakeMode"`
	MistakeList   []string        `json:"mistakeList"`
	Sources       StringList      `json:"sources"`
}

// selection resolves the request into selection engine filters.
func (g GameConfig) selection() selection.Config {
	return selection.Config{
		Count:       int(g.Count),
		Subjects:    g.Subject,
		Difficulty:  g.Difficulty,
		OptionCount: int(g.OptionCount),
		MistakeMode: g.IsMistakeMode,
		MistakeList: g.MistakeList,
		Sources:     g.Sources,
	}
}

// settings resolves the request into room timing settings with defaults.
func (g GameConfig) settings() room.Settings {
	mode := g.TimerMode
	if mode != room.TimingWholeSession {
		mode = room.TimingPerQuestion
	}
	duration := int(g.Duration)
	if duration <= 0 {
		if mode == room.TimingWholeSession {
			duration = 30 // minutes
		} else {
			duration = 20 // seconds
		}
	}
	return room.Settings{TimingMode: mode, Duration: duration}
}

// StringList decodes a JSON string or array of strings.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*l = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "\"") {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*l = list
	return nil
}

// FlexInt decodes a JSON number or numeric string; anything unparsable
// decodes to zero so a sloppy client falls back to server defaults instead
// of failing the whole request.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	trimmed := strings.Trim(strings.TrimSpace(string(data)), "\"")
	if trimmed == "" || trimmed == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(trimmed)
	if err != nil {
		*n = 0
		return nil
	}
	*n = FlexInt(v)
	return nil
}
