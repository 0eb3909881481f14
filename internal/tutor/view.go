package tutor

import (
	"github.com/satishskid/codegurufs/internal/curriculum"
	"github.com/satishskid/codegurufs/internal/progress"
	"github.com/satishskid/codegurufs/internal/transcript"
)

// MessageView is a transcript entry with its text already split into
// displayable blocks.
type MessageView struct {
	ID     string             `json:"id"`
	Sender progress.Sender    `json:"sender"`
	Text   string             `json:"text"`
	Blocks []transcript.Block `json:"blocks"`
}

// View is the client-facing form of a session.
type View struct {
	TerminalID   string                  `json:"terminalId"`
	StudentName  string                  `json:"studentName"`
	State        string                  `json:"state"`
	Grade        curriculum.Grade        `json:"grade,omitempty"`
	Curriculum   *curriculum.Curriculum  `json:"curriculum,omitempty"`
	CurrentTopic string                  `json:"currentTopic,omitempty"`
	History      []MessageView           `json:"history"`
	QuickReplies []transcript.QuickReply `json:"quickReplies"`
	Thinking     bool                    `json:"thinking"`
}

// View renders the snapshot. Map markers resolve against each message's own
// snapshot first, then the live curriculum.
func (s Snapshot) View() View {
	v := View{
		TerminalID:   s.TerminalID,
		StudentName:  s.StudentName,
		State:        s.State.String(),
		Grade:        s.Progress.Grade,
		History:      make([]MessageView, 0, len(s.Progress.History)),
		QuickReplies: s.QuickReplies,
		Thinking:     s.Thinking,
	}
	if v.QuickReplies == nil {
		v.QuickReplies = []transcript.QuickReply{}
	}

	var live *curriculum.Curriculum
	if s.State != StateNoGrade {
		cur := s.Progress.Curriculum
		live = &cur
		v.Curriculum = live
		if t, ok := cur.CurrentTopic(); ok {
			v.CurrentTopic = t.Name
		}
	}

	for _, m := range s.Progress.History {
		v.History = append(v.History, MessageView{
			ID:     m.ID,
			Sender: m.Sender,
			Text:   m.Text,
			Blocks: transcript.Render(m.Text, m.Snapshot(), live),
		})
	}
	return v
}
