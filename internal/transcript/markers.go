// Package transcript interprets the control markers the tutor persona embeds
// in its replies and turns messages into renderable blocks.
//
// Two markers are recognised:
//
//	[SHOW_ACTIONS]     offer the three canned quick replies
//	[CURRICULUM_MAP]   draw the progress widget at this point in the text
//
// Both are honoured on a best-effort basis; a reply without markers is plain prose.
package transcript

import (
	"strings"
)

const (
	MarkerShowActions   = "[SHOW_ACTIONS]"
	MarkerCurriculumMap = "[CURRICULUM_MAP]"
)

// QuickReply is a canned response button. An empty Prompt means the button
// only moves focus to the input box.
type QuickReply struct {
	Label  string `json:"label"`
	Prompt string `json:"prompt,omitempty"`
}

// Sends reports whether choosing the reply sends a message.
func (q QuickReply) Sends() bool {
	return q.Prompt != ""
}

// DefaultQuickReplies are offered whenever a reply carries [SHOW_ACTIONS].
func DefaultQuickReplies() []QuickReply {
	return []QuickReply{
		{Label: "Yep, I got it!", Prompt: "I understand. What's the challenge?"},
		{Label: "Explain it differently", Prompt: "Can you please explain that in a different way?"},
		{Label: "I have a question..."},
	}
}

// FindQuickReply looks up a default quick reply by its label.
func FindQuickReply(label string) (QuickReply, bool) {
	for _, q := range DefaultQuickReplies() {
		if q.Label == label {
			return q, true
		}
	}
	return QuickReply{}, false
}

// Reply is an AI response after marker processing.
type Reply struct {
	Text         string
	QuickReplies []QuickReply
}

// ParseReply strips every [SHOW_ACTIONS] marker. When at least one was
// present the three default quick replies are returned; otherwise none.
// [CURRICULUM_MAP] is left in place for rendering.
func ParseReply(raw string) Reply {
	if !strings.Contains(raw, MarkerShowActions) {
		return Reply{Text: raw}
	}
	return Reply{
		Text:         strings.TrimSpace(strings.ReplaceAll(raw, MarkerShowActions, "")),
		QuickReplies: DefaultQuickReplies(),
	}
}
