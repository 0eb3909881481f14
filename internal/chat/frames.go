package chat

import "github.com/satishskid/codegurufs/internal/tutor"

// Client frame types.
const (
	FrameSelectGrade = "select_grade"
	FrameMessage     = "message"
	FrameAction      = "action"
)

// Server frame types.
const (
	FrameSnapshot = "snapshot"
	FrameThinking = "thinking"
	FrameError    = "error"
)

// InboundFrame is sent by a terminal. Which field is read depends on Type.
type InboundFrame struct {
	Type  string `json:"type"`
	Grade string `json:"grade,omitempty"`
	Text  string `json:"text,omitempty"`
	Label string `json:"label,omitempty"`
}

// OutboundFrame is sent to a terminal.
type OutboundFrame struct {
	Type     string      `json:"type"`
	Session  *tutor.View `json:"session,omitempty"`
	Thinking bool        `json:"thinking,omitempty"`
	Message  string      `json:"message,omitempty"`
}
