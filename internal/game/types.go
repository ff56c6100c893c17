package game

import (
	"time"

	"gambweb/internal/wager"
)

const (
	MessageSession  = "session"
	MessageFeedback = "feedback"
	MessageFrame    = "frame"
	MessageSound    = "sound"
	MessageWelcome  = "welcome"
	MessageError    = "error"
	MessagePong     = "pong"
)

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type FeedbackMessage struct {
	Signal string    `json:"signal"`
	Flavor string    `json:"flavor,omitempty"`
	Cue    string    `json:"cue"`
	At     time.Time `json:"at"`
}

// FrameMessage is a decorative in-flight value. It is never the result.
type FrameMessage struct {
	Game    GameType `json:"game"`
	RoundID string   `json:"round_id"`
	Value   any      `json:"value"`
}

type SoundMessage struct {
	Muted bool `json:"muted"`
}

// TableView is the state of one table as the player may see it.
type TableView struct {
	Game    GameType       `json:"game"`
	Profile Profile        `json:"profile"`
	RoundID string         `json:"round_id,omitempty"`
	Active  bool           `json:"active"`
	Ready   bool           `json:"ready"`
	Round   any            `json:"round,omitempty"`
	Kernel  any            `json:"kernel,omitempty"`
	Session wager.Snapshot `json:"session"`
}
