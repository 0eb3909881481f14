package transcript

import (
	"strings"

	"github.com/satishskid/codegurufs/internal/curriculum"
)

// SegmentKind distinguishes prose from widget placeholders.
type SegmentKind string

const (
	SegmentText          SegmentKind = "text"
	SegmentCurriculumMap SegmentKind = "curriculum_map"
)

// Segment is a piece of message text in display order.
type Segment struct {
	Kind SegmentKind `json:"kind"`
	Text string      `json:"text,omitempty"`
}

// Split cuts text at every [CURRICULUM_MAP] marker. Leftover
// [SHOW_ACTIONS] markers are dropped from prose, and prose that is empty
// after trimming is omitted.
func Split(text string) []Segment {
	parts := strings.Split(text, MarkerCurriculumMap)
	segments := make([]Segment, 0, 2*len(parts)-1)
	for i, part := range parts {
		if i > 0 {
			segments = append(segments, Segment{Kind: SegmentCurriculumMap})
		}
		prose := strings.TrimSpace(strings.ReplaceAll(part, MarkerShowActions, ""))
		if prose != "" {
			segments = append(segments, Segment{Kind: SegmentText, Text: prose})
		}
	}
	return segments
}

// Block is a rendered segment. Widget is set only for map segments that
// had a curriculum to draw.
type Block struct {
	Kind   SegmentKind `json:"kind"`
	Text   string      `json:"text,omitempty"`
	Widget *Widget     `json:"widget,omitempty"`
}

// Render resolves every map marker against the message's own snapshot,
// falling back to the live curriculum. Markers with neither are dropped.
func Render(text string, snapshot, live *curriculum.Curriculum) []Block {
	source := snapshot
	if source == nil {
		source = live
	}

	segments := Split(text)
	blocks := make([]Block, 0, len(segments))
	for _, seg := range segments {
		if seg.Kind == SegmentText {
			blocks = append(blocks, Block{Kind: SegmentText, Text: seg.Text})
			continue
		}
		if source == nil {
			continue
		}
		w := NewWidget(*source)
		blocks = append(blocks, Block{Kind: SegmentCurriculumMap, Widget: &w})
	}
	return blocks
}
