package transcript_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishskid/codegurufs/internal/curriculum"
	"github.com/satishskid/codegurufs/internal/transcript"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantText    string
		wantReplies int
	}{
		{"no marker", "Loops repeat things.", "Loops repeat things.", 0},
		{"trailing marker", "Think of chai.\nMakes sense?\n[SHOW_ACTIONS]", "Think of chai.\nMakes sense?", 3},
		{"marker twice", "[SHOW_ACTIONS] hello [SHOW_ACTIONS]", "hello", 3},
		{"map kept", "Shabash!\n[CURRICULUM_MAP]\nNext up", "Shabash!\n[CURRICULUM_MAP]\nNext up", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := transcript.ParseReply(tt.raw)
			assert.Equal(t, tt.wantText, got.Text)
			assert.Len(t, got.QuickReplies, tt.wantReplies)
			assert.NotContains(t, got.Text, transcript.MarkerShowActions)
		})
	}
}

func TestDefaultQuickReplies(t *testing.T) {
	replies := transcript.DefaultQuickReplies()
	require.Len(t, replies, 3)

	assert.Equal(t, "Yep, I got it!", replies[0].Label)
	assert.Equal(t, "I understand. What's the challenge?", replies[0].Prompt)
	assert.Equal(t, "Explain it differently", replies[1].Label)
	assert.Equal(t, "Can you please explain that in a different way?", replies[1].Prompt)
	assert.Equal(t, "I have a question...", replies[2].Label)
	assert.False(t, replies[2].Sends())

	q, ok := transcript.FindQuickReply("Explain it differently")
	assert.True(t, ok)
	assert.True(t, q.Sends())
	_, ok = transcript.FindQuickReply("Skip")
	assert.False(t, ok)
}

func TestExtractSubmission(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantCode string
		wantOK   bool
	}{
		{
			name:     "python tag and inline run",
			text:     "```python\nprint(\"Hello\")\n// run\n```",
			wantCode: `print("Hello")`,
			wantOK:   true,
		},
		{
			name:     "run after block",
			text:     "here you go\n```\nx = 5\nprint(x)\n```\n//run",
			wantCode: "x = 5\nprint(x)",
			wantOK:   true,
		},
		{
			name:     "javascript tag",
			text:     "```javascript\nconsole.log(1) // run\n```",
			wantCode: "console.log(1)",
			wantOK:   true,
		},
		{
			name:     "first line is code not a tag",
			text:     "```x = 1\nprint(x)\n// run```",
			wantCode: "x = 1\nprint(x)",
			wantOK:   true,
		},
		{
			name:     "only first block",
			text:     "```py\na()\n```\n```py\nb()\n```\n// run",
			wantCode: "a()",
			wantOK:   true,
		},
		{
			name:     "tag on the same line as the code",
			text:     "```python print(1) // run```",
			wantCode: "print(1)",
			wantOK:   true,
		},
		{
			name:     "inline tag then more lines",
			text:     "```javascript let x = 2;\nconsole.log(x)\n// run\n```",
			wantCode: "let x = 2;\nconsole.log(x)",
			wantOK:   true,
		},
		{
			name:     "code that starts with a word",
			text:     "```print(\"python rocks\") // run```",
			wantCode: `print("python rocks")`,
			wantOK:   true,
		},
		{name: "no run directive", text: "```python\nprint(1)\n```"},
		{name: "run without block", text: "print(1) // run"},
		{name: "unterminated block", text: "```python\nprint(1) // run"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := transcript.ExtractSubmission(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantOK, transcript.IsSubmission(tt.text))
		})
	}
}

func explorer(t *testing.T) curriculum.Curriculum {
	t.Helper()
	c, ok := curriculum.DefaultCatalog().Get(curriculum.GradeExplorer)
	require.True(t, ok)
	return c
}

func TestSplit(t *testing.T) {
	segs := transcript.Split("Great choice!\n[CURRICULUM_MAP]\nLet's begin. [SHOW_ACTIONS]")
	require.Len(t, segs, 3)
	assert.Equal(t, transcript.Segment{Kind: transcript.SegmentText, Text: "Great choice!"}, segs[0])
	assert.Equal(t, transcript.SegmentCurriculumMap, segs[1].Kind)
	assert.Equal(t, "Let's begin.", segs[2].Text)

	only := transcript.Split("[CURRICULUM_MAP]")
	require.Len(t, only, 1)
	assert.Equal(t, transcript.SegmentCurriculumMap, only[0].Kind)

	plain := transcript.Split("just words")
	require.Len(t, plain, 1)
	assert.Equal(t, "just words", plain[0].Text)
}

func TestNewWidget(t *testing.T) {
	c := explorer(t)
	c.Topics[0].Completed = true

	w := transcript.NewWidget(c)
	assert.Equal(t, "The Python Adventure", w.Title)
	require.Len(t, w.Items, len(c.Topics))
	for i, item := range w.Items {
		assert.Equal(t, c.Topics[i].Name, item.Name, "order must match the curriculum")
	}
	assert.Equal(t, transcript.StatusCompleted, w.Items[0].Status)
	assert.Equal(t, transcript.StatusCurrent, w.Items[1].Status)
	for _, item := range w.Items[2:] {
		assert.Equal(t, transcript.StatusUpcoming, item.Status)
	}
	assert.Equal(t, "70-100 mins", w.Estimate())
}

func TestWidget_Estimate(t *testing.T) {
	w := transcript.NewWidget(curriculum.Curriculum{Title: "t", Topics: []curriculum.Topic{
		{Name: "a", Duration: "5-10 mins"},
		{Name: "b", Duration: "15-20 mins"},
		{Name: "c", Duration: "soon"},
	}})
	assert.Equal(t, "20-30 mins", w.Estimate())
	assert.Contains(t, w.PlainText(), "Est. 20-30 mins")
	assert.Contains(t, w.PlainText(), "▶ a")
}

func TestRender(t *testing.T) {
	live := explorer(t)
	snapshot := live.Clone()
	live.Topics[0].Completed = true

	blocks := transcript.Render("Hi\n[CURRICULUM_MAP]\nBye", &snapshot, &live)
	require.Len(t, blocks, 3)
	require.NotNil(t, blocks[1].Widget)
	assert.Equal(t, transcript.StatusCurrent, blocks[1].Widget.Items[0].Status, "snapshot wins over live")

	blocks = transcript.Render("[CURRICULUM_MAP]", nil, &live)
	require.Len(t, blocks, 1)
	assert.Equal(t, transcript.StatusCompleted, blocks[0].Widget.Items[0].Status)

	blocks = transcript.Render("Hi [CURRICULUM_MAP]", nil, nil)
	require.Len(t, blocks, 1)
	assert.Equal(t, "Hi", blocks[0].Text)
}
