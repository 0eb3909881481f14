package transcript

import (
	"fmt"
	"strings"

	"github.com/satishskid/codegurufs/internal/curriculum"
)

// Status is a topic's position relative to the student's progress.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCurrent   Status = "current"
	StatusUpcoming  Status = "upcoming"
)

// Icon returns the glyph drawn next to a topic.
func (s Status) Icon() string {
	switch s {
	case StatusCompleted:
		return "✔"
	case StatusCurrent:
		return "▶"
	default:
		return "•"
	}
}

// WidgetItem is one row of the progress widget.
type WidgetItem struct {
	Name     string `json:"name"`
	Duration string `json:"duration"`
	Status   Status `json:"status"`
}

// Widget is the structured progress map drawn for [CURRICULUM_MAP].
type Widget struct {
	Title    string       `json:"title"`
	Items    []WidgetItem `json:"items"`
	TotalMin int          `json:"total_min"`
	TotalMax int          `json:"total_max"`
}

// NewWidget lays out a curriculum in topic order. The current topic is the
// first incomplete one.
func NewWidget(c curriculum.Curriculum) Widget {
	current := c.CurrentIndex()
	w := Widget{Title: c.Title, Items: make([]WidgetItem, len(c.Topics))}
	for i, t := range c.Topics {
		status := StatusUpcoming
		switch {
		case t.Completed:
			status = StatusCompleted
		case i == current:
			status = StatusCurrent
		}
		w.Items[i] = WidgetItem{Name: t.Name, Duration: t.Duration, Status: status}
	}
	w.TotalMin, w.TotalMax = c.Estimate()
	return w
}

// Estimate renders the summed duration, e.g. "20-30 mins".
func (w Widget) Estimate() string {
	return curriculum.FormatRange(w.TotalMin, w.TotalMax)
}

// PlainText draws the widget without styling.
func (w Widget) PlainText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (Est. %s)\n", w.Title, w.Estimate())
	for _, item := range w.Items {
		fmt.Fprintf(&b, "  %s %s  [%s]\n", item.Status.Icon(), item.Name, item.Duration)
	}
	return strings.TrimRight(b.String(), "\n")
}
