package tutor_test

import (
	"context"
	"testing"

	"github.com/satishskid/codegurufs/internal/curriculum"
	"github.com/satishskid/codegurufs/internal/transcript"
)

func TestSnapshot_View(t *testing.T) {
	f := newFixture(t)
	sess := f.open(t)

	v := sess.Snapshot().View()
	if v.State != "no_grade_selected" || v.Curriculum != nil || len(v.History) != 0 {
		t.Errorf("fresh view = %+v", v)
	}
	if v.QuickReplies == nil {
		t.Error("QuickReplies should encode as an empty list")
	}

	f.ai.Responses = []string{"Hello! Ready?\n[SHOW_ACTIONS]"}
	if err := sess.SelectGrade(context.Background(), curriculum.GradeJunior); err != nil {
		t.Fatalf("SelectGrade() error = %v", err)
	}

	v = sess.Snapshot().View()
	if v.State != "in_progress" || v.Grade != curriculum.GradeJunior {
		t.Errorf("State/Grade = %s/%s", v.State, v.Grade)
	}
	if v.CurrentTopic != "What is a Computer?" {
		t.Errorf("CurrentTopic = %q", v.CurrentTopic)
	}
	if len(v.QuickReplies) != 3 {
		t.Errorf("len(QuickReplies) = %d, want 3", len(v.QuickReplies))
	}

	welcome := v.History[0]
	if len(welcome.Blocks) != 3 {
		t.Fatalf("welcome blocks = %+v", welcome.Blocks)
	}
	if welcome.Blocks[1].Kind != transcript.SegmentCurriculumMap || welcome.Blocks[1].Widget == nil {
		t.Errorf("block 1 = %+v, want a curriculum widget", welcome.Blocks[1])
	}
	if welcome.Blocks[1].Widget.Title != "The Thinker's Path" {
		t.Errorf("widget title = %q", welcome.Blocks[1].Widget.Title)
	}
}
