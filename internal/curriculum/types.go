// Package curriculum holds the per-grade topic catalog and the rules for
// walking a student's copy of it.
package curriculum

import (
	"fmt"
	"strings"
)

// Grade is a grade tier.
type Grade string

const (
	GradeJunior   Grade = "JUNIOR"
	GradeExplorer Grade = "EXPLORER"
	GradePro      Grade = "PRO"
)

// Grades lists the tiers in ascending order.
var Grades = []Grade{GradeJunior, GradeExplorer, GradePro}

// ParseGrade accepts a tier name in any case.
func ParseGrade(s string) (Grade, error) {
	g := Grade(strings.ToUpper(strings.TrimSpace(s)))
	if !g.Valid() {
		return "", fmt.Errorf("unknown grade %q", s)
	}
	return g, nil
}

// Valid reports whether g is a known tier.
func (g Grade) Valid() bool {
	switch g {
	case GradeJunior, GradeExplorer, GradePro:
		return true
	}
	return false
}

// Band returns the school grades a tier covers, e.g. "7-9".
func (g Grade) Band() string {
	switch g {
	case GradeJunior:
		return "4-6"
	case GradeExplorer:
		return "7-9"
	case GradePro:
		return "10-12"
	}
	return ""
}

// Topic is one lesson. Name is its identity; only Completed ever changes.
type Topic struct {
	Name      string `json:"name" yaml:"name"`
	Duration  string `json:"duration" yaml:"duration"`
	Completed bool   `json:"completed" yaml:"completed"`
}

// Curriculum is an ordered topic list. The current topic is the first one
// not yet completed.
type Curriculum struct {
	Title  string  `json:"title" yaml:"title"`
	Topics []Topic `json:"topics" yaml:"topics"`
}

// Clone returns a deep copy.
func (c Curriculum) Clone() Curriculum {
	out := Curriculum{Title: c.Title}
	if c.Topics != nil {
		out.Topics = make([]Topic, len(c.Topics))
		copy(out.Topics, c.Topics)
	}
	return out
}

// CurrentIndex returns the index of the first incomplete topic, or -1 when
// every topic is complete.
func (c Curriculum) CurrentIndex() int {
	for i, t := range c.Topics {
		if !t.Completed {
			return i
		}
	}
	return -1
}

// CurrentTopic returns the first incomplete topic.
func (c Curriculum) CurrentTopic() (Topic, bool) {
	i := c.CurrentIndex()
	if i < 0 {
		return Topic{}, false
	}
	return c.Topics[i], true
}

// IsComplete reports whether every topic is complete.
func (c Curriculum) IsComplete() bool {
	return c.CurrentIndex() < 0
}

// CompletedCount returns the number of completed topics.
func (c Curriculum) CompletedCount() int {
	n := 0
	for _, t := range c.Topics {
		if t.Completed {
			n++
		}
	}
	return n
}

// Complete returns a copy with topic i marked complete. No other topic changes.
func (c Curriculum) Complete(i int) (Curriculum, error) {
	if i < 0 || i >= len(c.Topics) {
		return Curriculum{}, fmt.Errorf("topic index %d out of range [0,%d)", i, len(c.Topics))
	}
	out := c.Clone()
	out.Topics[i].Completed = true
	return out, nil
}

// InOrder reports whether completions form a prefix of the topic list.
// Nothing enforces this; callers may only observe it.
func (c Curriculum) InOrder() bool {
	seenIncomplete := false
	for _, t := range c.Topics {
		if !t.Completed {
			seenIncomplete = true
			continue
		}
		if seenIncomplete {
			return false
		}
	}
	return true
}
