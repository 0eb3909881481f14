package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/satishskid/codegurufs/internal/progress"
	"github.com/satishskid/codegurufs/internal/transcript"
	"github.com/satishskid/codegurufs/internal/tutor"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#5B8DEF")).
			Padding(0, 1)
	senderAIStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	senderUserStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	systemStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Italic(true)
	statusStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errorStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	replyStyle        = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#666666"))
	replySelected     = replyStyle.BorderForeground(lipgloss.Color("#5B8DEF")).Bold(true)
	widgetBox         = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#5B8DEF")).Padding(0, 1)
	widgetTitle       = lipgloss.NewStyle().Bold(true)
	itemCompleted     = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	itemCurrent       = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	itemUpcoming      = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	itemDurationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// RenderWidget draws the curriculum map.
func RenderWidget(w transcript.Widget, width int) string {
	lines := []string{
		widgetTitle.Render(w.Title) + " " + itemDurationStyle.Render("(Est. "+w.Estimate()+")"),
	}
	for _, item := range w.Items {
		style := itemUpcoming
		switch item.Status {
		case transcript.StatusCompleted:
			style = itemCompleted
		case transcript.StatusCurrent:
			style = itemCurrent
		}
		lines = append(lines, fmt.Sprintf("%s %s",
			style.Render(item.Status.Icon()+" "+item.Name),
			itemDurationStyle.Render("["+item.Duration+"]"),
		))
	}
	return widgetBox.Width(max(20, width-2)).Render(strings.Join(lines, "\n"))
}

// RenderMessage draws one transcript entry with its blocks in order.
func RenderMessage(m tutor.MessageView, width int) string {
	body := lipgloss.NewStyle().Width(max(20, width))

	if m.Sender == progress.SenderSystem {
		return systemStyle.Width(max(20, width)).Render(m.Text)
	}

	label := senderAIStyle.Render("Code Buddy")
	if m.Sender == progress.SenderUser {
		label = senderUserStyle.Render("You")
	}

	parts := []string{label}
	for _, b := range m.Blocks {
		switch {
		case b.Kind == transcript.SegmentCurriculumMap && b.Widget != nil:
			parts = append(parts, RenderWidget(*b.Widget, width))
		case b.Kind == transcript.SegmentText:
			parts = append(parts, body.Render(b.Text))
		}
	}
	if len(m.Blocks) == 0 {
		parts = append(parts, body.Render(m.Text))
	}
	return strings.Join(parts, "\n")
}

// RenderQuickReplies draws the reply buttons, highlighting selected.
func RenderQuickReplies(replies []transcript.QuickReply, selected int) string {
	if len(replies) == 0 {
		return ""
	}
	buttons := make([]string, len(replies))
	for i, q := range replies {
		style := replyStyle
		if i == selected {
			style = replySelected
		}
		buttons[i] = style.Render(q.Label)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, buttons...)
}
