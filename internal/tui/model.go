// Package tui is the classroom terminal's chat interface.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/satishskid/codegurufs/internal/chat"
	"github.com/satishskid/codegurufs/internal/curriculum"
	"github.com/satishskid/codegurufs/internal/tutor"
)

// Conn is the server connection the model drives. *chat.Client implements it.
type Conn interface {
	SelectGrade(ctx context.Context, grade string) error
	SendText(ctx context.Context, text string) error
	Act(ctx context.Context, label string) error
	Next(ctx context.Context) (chat.OutboundFrame, error)
	Close() error
}

type frameMsg struct {
	frame chat.OutboundFrame
}

// connErrMsg reports a failed call. A fatal one means the socket is gone.
type connErrMsg struct {
	err   error
	fatal bool
}

// Model is the bubbletea model for one student's session.
type Model struct {
	ctx  context.Context
	conn Conn

	student  string
	session  *tutor.View
	thinking bool
	selected int // highlighted quick reply
	status   string
	err      string
	closed   bool

	viewport viewport.Model
	input    textarea.Model
	width    int
	height   int
}

// New creates the model. ctx bounds every call on conn.
func New(ctx context.Context, conn Conn, student string) Model {
	ta := textarea.New()
	ta.Placeholder = "Type a message or paste code… (Enter sends, Ctrl+J new line)"
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline.SetKeys("ctrl+j", "alt+enter")
	ta.Focus()

	return Model{
		ctx:      ctx,
		conn:     conn,
		student:  student,
		selected: -1,
		viewport: viewport.New(80, 20),
		input:    ta,
		width:    80,
		height:   30,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.listen())
}

// listen waits for the next server frame.
func (m Model) listen() tea.Cmd {
	return func() tea.Msg {
		f, err := m.conn.Next(m.ctx)
		if err != nil {
			return connErrMsg{err: err, fatal: true}
		}
		return frameMsg{frame: f}
	}
}

// call runs fn against the connection, reporting only failures.
func (m Model) call(fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(m.ctx); err != nil {
			return connErrMsg{err: err}
		}
		return nil
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case frameMsg:
		m.apply(msg.frame)
		return m, m.listen()

	case connErrMsg:
		m.err = msg.err.Error()
		m.closed = m.closed || msg.fatal
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) apply(f chat.OutboundFrame) {
	switch f.Type {
	case chat.FrameSnapshot:
		m.session = f.Session
		m.thinking = f.Thinking
		m.err = ""
		if m.session == nil || m.selected >= len(m.session.QuickReplies) {
			m.selected = -1
		}
		m.refresh()
	case chat.FrameThinking:
		m.thinking = f.Thinking
	case chat.FrameError:
		m.err = f.Message
	}
}

func (m Model) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.String() {
	case "ctrl+c", "esc":
		m.conn.Close()
		return m, tea.Quit

	case "tab":
		if n := m.replyCount(); n > 0 {
			m.selected = (m.selected + 1) % n
		}
		return m, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(k)
		return m, cmd

	case "enter":
		return m.submit()
	}

	if m.pickingGrade() && strings.TrimSpace(m.input.Value()) == "" {
		if g, ok := gradeForKey(k.String()); ok {
			m.status = fmt.Sprintf("Starting %s…", g)
			return m, m.call(func(ctx context.Context) error { return m.conn.SelectGrade(ctx, string(g)) })
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(k)
	return m, cmd
}

// submit sends the typed text, or the highlighted quick reply when the input
// is empty.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		if m.selected < 0 || m.selected >= m.replyCount() {
			return m, nil
		}
		label := m.session.QuickReplies[m.selected].Label
		m.selected = -1
		return m, m.call(func(ctx context.Context) error { return m.conn.Act(ctx, label) })
	}
	if m.pickingGrade() {
		m.err = "Pick a grade first: press 1, 2 or 3."
		return m, nil
	}
	m.input.Reset()
	m.selected = -1
	return m, m.call(func(ctx context.Context) error { return m.conn.SendText(ctx, text) })
}

func (m Model) replyCount() int {
	if m.session == nil {
		return 0
	}
	return len(m.session.QuickReplies)
}

func (m Model) pickingGrade() bool {
	return m.session != nil && m.session.State == tutor.StateNoGrade.String()
}

func gradeForKey(key string) (curriculum.Grade, bool) {
	for i, g := range curriculum.Grades {
		if key == fmt.Sprint(i+1) {
			return g, true
		}
	}
	return "", false
}

func (m *Model) layout() {
	m.input.SetWidth(m.width)
	m.viewport.Width = m.width
	m.viewport.Height = max(3, m.height-m.input.Height()-6)
	m.refresh()
}

// refresh redraws the transcript and scrolls to the newest message.
func (m *Model) refresh() {
	if m.session == nil {
		m.viewport.SetContent("Connecting…")
		return
	}
	var parts []string
	if m.pickingGrade() {
		parts = append(parts, gradePicker())
	}
	for _, msg := range m.session.History {
		parts = append(parts, RenderMessage(msg, m.width))
	}
	m.viewport.SetContent(strings.Join(parts, "\n\n"))
	m.viewport.GotoBottom()
}

func gradePicker() string {
	lines := []string{"Welcome to Code Buddy! Which grade are you in?"}
	for i, g := range curriculum.Grades {
		lines = append(lines, fmt.Sprintf("  %d) %s  (grades %s)", i+1, g, g.Band()))
	}
	return strings.Join(lines, "\n")
}

func (m Model) header() string {
	text := "Code Buddy · " + m.student
	if m.session != nil && m.session.Curriculum != nil {
		done := 0
		for _, t := range m.session.Curriculum.Topics {
			if t.Completed {
				done++
			}
		}
		text += fmt.Sprintf(" · %s %d/%d", m.session.Curriculum.Title, done, len(m.session.Curriculum.Topics))
		if m.session.CurrentTopic != "" {
			text += " · " + m.session.CurrentTopic
		}
	}
	return headerStyle.Width(max(20, m.width)).Render(text)
}

func (m Model) View() string {
	var status string
	switch {
	case m.closed:
		status = errorStyle.Render("Disconnected: " + m.err)
	case m.err != "":
		status = errorStyle.Render(m.err)
	case m.thinking:
		status = statusStyle.Render("Code Buddy is thinking…")
	default:
		status = statusStyle.Render(m.status)
	}

	sections := []string{m.header(), m.viewport.View()}
	if m.session != nil {
		if bar := RenderQuickReplies(m.session.QuickReplies, m.selected); bar != "" {
			sections = append(sections, bar+statusStyle.Render("  Tab to choose, Enter to send"))
		}
	}
	sections = append(sections, status, m.input.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
