// Package progress holds the persisted state of one student on one terminal
// and the stores that keep it.
package progress

import (
	"github.com/google/uuid"

	"github.com/satishskid/codegurufs/internal/curriculum"
)

// Sender tags who produced a chat message.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderAI     Sender = "ai"
	SenderSystem Sender = "system"
)

// Meta carries optional per-message attachments.
type Meta struct {
	Curriculum *curriculum.Curriculum `json:"curriculum,omitempty"`
}

// ChatMessage is one entry of the append-only transcript.
type ChatMessage struct {
	ID         string `json:"id"`
	Sender     Sender `json:"sender"`
	Text       string `json:"text"`
	Meta       *Meta  `json:"meta,omitempty"`
	IsThinking bool   `json:"-"`
}

// NewMessage creates a message with a fresh ID.
func NewMessage(sender Sender, text string) ChatMessage {
	return ChatMessage{ID: uuid.NewString(), Sender: sender, Text: text}
}

// WithSnapshot attaches a point-in-time copy of c to the message.
func (m ChatMessage) WithSnapshot(c curriculum.Curriculum) ChatMessage {
	snap := c.Clone()
	m.Meta = &Meta{Curriculum: &snap}
	return m
}

// Snapshot returns the attached curriculum, or nil.
func (m ChatMessage) Snapshot() *curriculum.Curriculum {
	if m.Meta == nil {
		return nil
	}
	return m.Meta.Curriculum
}

func (m ChatMessage) clone() ChatMessage {
	if m.Meta != nil && m.Meta.Curriculum != nil {
		snap := m.Meta.Curriculum.Clone()
		m.Meta = &Meta{Curriculum: &snap}
	}
	return m
}

// StudentProgress is everything persisted for one student.
type StudentProgress struct {
	Grade      curriculum.Grade      `json:"grade,omitempty"`
	Curriculum curriculum.Curriculum `json:"curriculum"`
	History    []ChatMessage         `json:"history"`
}

// Clone returns a deep copy.
func (p StudentProgress) Clone() StudentProgress {
	out := StudentProgress{Grade: p.Grade, Curriculum: p.Curriculum.Clone()}
	if p.History != nil {
		out.History = make([]ChatMessage, len(p.History))
		for i, m := range p.History {
			out.History[i] = m.clone()
		}
	}
	return out
}

// Append adds messages to the history.
func (p *StudentProgress) Append(msgs ...ChatMessage) {
	p.History = append(p.History, msgs...)
}

// ForModel returns the history the tutor model is allowed to see: system
// banners are dropped.
func (p StudentProgress) ForModel() []ChatMessage {
	out := make([]ChatMessage, 0, len(p.History))
	for _, m := range p.History {
		if m.Sender == SenderSystem {
			continue
		}
		out = append(out, m)
	}
	return out
}

// hasCurriculum reports whether the curriculum field carries data. An empty
// curriculum in a save payload leaves the stored one untouched.
func (p StudentProgress) hasCurriculum() bool {
	return p.Curriculum.Title != "" || len(p.Curriculum.Topics) > 0
}

// merge overlays the fields present in patch onto p.
func (p StudentProgress) merge(patch StudentProgress) StudentProgress {
	if patch.Grade != "" {
		p.Grade = patch.Grade
	}
	if patch.hasCurriculum() {
		p.Curriculum = patch.Curriculum
	}
	if patch.History != nil {
		p.History = patch.History
	}
	return p
}

// document is the JSON object stored for a save payload, holding only the
// fields present in it.
func (p StudentProgress) document() map[string]any {
	doc := map[string]any{}
	if p.Grade != "" {
		doc["grade"] = p.Grade
	}
	if p.hasCurriculum() {
		doc["curriculum"] = p.Curriculum
	}
	if p.History != nil {
		doc["history"] = p.History
	}
	return doc
}
