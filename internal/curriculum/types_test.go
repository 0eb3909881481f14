package curriculum_test

import (
	"testing"

	"github.com/satishskid/codegurufs/internal/curriculum"
)

func sample(completed ...bool) curriculum.Curriculum {
	names := []string{"print", "variables", "if/else", "lists"}
	c := curriculum.Curriculum{Title: "Python"}
	for i, name := range names {
		done := i < len(completed) && completed[i]
		c.Topics = append(c.Topics, curriculum.Topic{Name: name, Duration: "5-10 mins", Completed: done})
	}
	return c
}

func TestParseGrade(t *testing.T) {
	tests := []struct {
		in      string
		want    curriculum.Grade
		wantErr bool
	}{
		{"EXPLORER", curriculum.GradeExplorer, false},
		{"junior", curriculum.GradeJunior, false},
		{" Pro ", curriculum.GradePro, false},
		{"senior", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := curriculum.ParseGrade(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseGrade(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseGrade(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCurriculum_CurrentTopic(t *testing.T) {
	tests := []struct {
		name      string
		completed []bool
		wantIndex int
		wantName  string
	}{
		{"fresh", nil, 0, "print"},
		{"first done", []bool{true}, 1, "variables"},
		{"gap", []bool{true, false, true}, 1, "variables"},
		{"all done", []bool{true, true, true, true}, -1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := sample(tt.completed...)
			if got := c.CurrentIndex(); got != tt.wantIndex {
				t.Errorf("CurrentIndex() = %d, want %d", got, tt.wantIndex)
			}
			topic, ok := c.CurrentTopic()
			if ok != (tt.wantIndex >= 0) {
				t.Errorf("CurrentTopic() ok = %v, want %v", ok, tt.wantIndex >= 0)
			}
			if topic.Name != tt.wantName {
				t.Errorf("CurrentTopic().Name = %q, want %q", topic.Name, tt.wantName)
			}
			if c.IsComplete() != (tt.wantIndex < 0) {
				t.Errorf("IsComplete() = %v", c.IsComplete())
			}
		})
	}
}

func TestCurriculum_CompleteTouchesOnlyOneTopic(t *testing.T) {
	for i := range 4 {
		orig := sample(true)
		got, err := orig.Complete(i)
		if err != nil {
			t.Fatalf("Complete(%d) error = %v", i, err)
		}
		for j, topic := range got.Topics {
			want := orig.Topics[j].Completed
			if j == i {
				want = true
			}
			if topic.Completed != want {
				t.Errorf("Complete(%d): Topics[%d].Completed = %v, want %v", i, j, topic.Completed, want)
			}
			if topic.Name != orig.Topics[j].Name {
				t.Errorf("Complete(%d): Topics[%d].Name changed", i, j)
			}
		}
		if i > 0 && orig.Topics[i].Completed {
			t.Errorf("Complete(%d) mutated the receiver", i)
		}
	}
}

func TestCurriculum_CompleteOutOfRange(t *testing.T) {
	c := sample()
	if _, err := c.Complete(-1); err == nil {
		t.Error("Complete(-1) should fail")
	}
	if _, err := c.Complete(4); err == nil {
		t.Error("Complete(4) should fail")
	}
}

func TestCurriculum_Clone(t *testing.T) {
	orig := sample()
	clone := orig.Clone()
	clone.Topics[0].Completed = true
	if orig.Topics[0].Completed {
		t.Error("Clone() shares topic storage with the original")
	}
}

func TestCurriculum_InOrder(t *testing.T) {
	tests := []struct {
		completed []bool
		want      bool
	}{
		{nil, true},
		{[]bool{true, true}, true},
		{[]bool{true, false, true}, false},
		{[]bool{false, true}, false},
		{[]bool{true, true, true, true}, true},
	}
	for _, tt := range tests {
		if got := sample(tt.completed...).InOrder(); got != tt.want {
			t.Errorf("InOrder(%v) = %v, want %v", tt.completed, got, tt.want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in     string
		lo, hi int
	}{
		{"10-15 mins", 10, 15},
		{"5-10 mins", 5, 10},
		{"5 mins", 5, 5},
		{"20", 20, 20},
		{"", 0, 0},
		{"garbage", 0, 0},
		{"ten-15 mins", 0, 15},
		{"15-20 minutes", 15, 20},
		{"5 minutes", 5, 5},
		{"10-15 mins approx", 10, 15},
		{" 7 - 9 min", 7, 9},
		{"about 5 mins", 0, 0},
	}
	for _, tt := range tests {
		lo, hi := curriculum.ParseDuration(tt.in)
		if lo != tt.lo || hi != tt.hi {
			t.Errorf("ParseDuration(%q) = (%d,%d), want (%d,%d)", tt.in, lo, hi, tt.lo, tt.hi)
		}
	}
}

func TestCurriculum_Estimate(t *testing.T) {
	c := curriculum.Curriculum{Topics: []curriculum.Topic{
		{Name: "a", Duration: "5-10 mins"},
		{Name: "b", Duration: "15-20 mins"},
	}}
	lo, hi := c.Estimate()
	if got := curriculum.FormatRange(lo, hi); got != "20-30 mins" {
		t.Errorf("estimate = %q, want %q", got, "20-30 mins")
	}

	explorer, _ := curriculum.DefaultCatalog().Get(curriculum.GradeExplorer)
	lo, hi = explorer.Estimate()
	if lo != 70 || hi != 100 {
		t.Errorf("EXPLORER estimate = (%d,%d), want (70,100)", lo, hi)
	}
}
