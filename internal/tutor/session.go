package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/satishskid/codegurufs/internal/ai"
	"github.com/satishskid/codegurufs/internal/curriculum"
	"github.com/satishskid/codegurufs/internal/judge"
	"github.com/satishskid/codegurufs/internal/progress"
	"github.com/satishskid/codegurufs/internal/transcript"
)

var (
	ErrSessionBusy   = errors.New("session is busy with another request")
	ErrEmptyMessage  = errors.New("message is empty")
	ErrNoGrade       = errors.New("no grade selected")
	ErrGradeSelected = errors.New("grade already selected")
	ErrUnknownGrade  = errors.New("unknown grade")
	ErrUnknownAction = errors.New("unknown quick reply")
)

// State is the session's position in the tutoring flow.
type State int

const (
	StateNoGrade State = iota
	StateInProgress
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateNoGrade:
		return "no_grade_selected"
	case StateInProgress:
		return "in_progress"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only copy of a session for rendering.
type Snapshot struct {
	TerminalID   string
	StudentName  string
	State        State
	Progress     progress.StudentProgress
	QuickReplies []transcript.QuickReply
	Thinking     bool
}

// Session is one student's tutoring state. At most one operation runs at a
// time; a second caller gets ErrSessionBusy instead of queueing.
type Session struct {
	svc         *Service
	terminalID  string
	studentName string

	gate sync.Mutex
	last atomic.Int64 // unix nanos of the last open or commit

	mu       sync.RWMutex
	state    progress.StudentProgress
	replies  []transcript.QuickReply
	thinking bool
	apiKey   string
	watchers map[chan struct{}]struct{}
}

func newSession(svc *Service, terminalID, studentName string, state progress.StudentProgress) *Session {
	sess := &Session{
		svc:         svc,
		terminalID:  terminalID,
		studentName: studentName,
		state:       state,
		watchers:    make(map[chan struct{}]struct{}),
	}
	sess.touch()
	return sess
}

func (s *Session) touch() {
	s.last.Store(time.Now().UnixNano())
}

func (s *Session) lastUsed() time.Time {
	return time.Unix(0, s.last.Load())
}

func (s *Session) watched() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.watchers) > 0
}

// Watch returns a channel that receives a value whenever the snapshot may
// have changed. Notifications coalesce; the receiver should re-read Snapshot.
// Call cancel when done watching.
func (s *Session) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		delete(s.watchers, ch)
		s.mu.Unlock()
		s.touch()
	}
}

// notify must be called with mu held.
func (s *Session) notify() {
	for ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// SetAPIKey sets a per-student provider key used instead of the server's.
func (s *Session) SetAPIKey(key string) {
	s.mu.Lock()
	s.apiKey = strings.TrimSpace(key)
	s.mu.Unlock()
}

// State reports where the session is in the flow.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stateOf(s.state)
}

func stateOf(p progress.StudentProgress) State {
	switch {
	case p.Grade == "":
		return StateNoGrade
	case p.Curriculum.IsComplete():
		return StateComplete
	default:
		return StateInProgress
	}
}

// Progress returns a copy of the persisted state.
func (s *Session) Progress() progress.StudentProgress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// QuickReplies returns the replies currently offered.
func (s *Session) QuickReplies() []transcript.QuickReply {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]transcript.QuickReply(nil), s.replies...)
}

// Thinking reports whether a model call is in flight.
func (s *Session) Thinking() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.thinking
}

// CurrentTopic returns the first incomplete topic.
func (s *Session) CurrentTopic() (curriculum.Topic, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Curriculum.CurrentTopic()
}

// Snapshot returns everything a client needs to draw the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		TerminalID:   s.terminalID,
		StudentName:  s.studentName,
		State:        stateOf(s.state),
		Progress:     s.state.Clone(),
		QuickReplies: append([]transcript.QuickReply(nil), s.replies...),
		Thinking:     s.thinking,
	}
}

// SelectGrade starts the curriculum for g, records the welcome message and
// asks the tutor to open the first lesson. The opening instruction itself is
// not recorded.
func (s *Session) SelectGrade(ctx context.Context, g curriculum.Grade) error {
	if !s.gate.TryLock() {
		return ErrSessionBusy
	}
	defer s.gate.Unlock()

	if s.State() != StateNoGrade {
		return ErrGradeSelected
	}
	cur, ok := s.svc.catalog.Get(g)
	if !ok || len(cur.Topics) == 0 {
		return fmt.Errorf("%w: %q", ErrUnknownGrade, g)
	}
	first := cur.Topics[0].Name

	welcome := progress.NewMessage(progress.SenderAI, WelcomeText(cur.Title, first)).WithSnapshot(cur)
	s.commit(ctx, func(p *progress.StudentProgress) {
		p.Grade = g
		p.Curriculum = cur
		p.History = []progress.ChatMessage{welcome}
		s.replies = nil
	})
	s.svc.logEvent(s.event(EventGradeSelected, map[string]any{"grade": string(g), "curriculum": cur.Title}))

	reply, err := s.ask(ctx, nil, GradePrompt(g, first))
	if err != nil {
		return err
	}
	s.commit(ctx, func(p *progress.StudentProgress) {
		p.Append(progress.NewMessage(progress.SenderAI, reply.Text))
		s.replies = reply.QuickReplies
	})
	return nil
}

// Send records a student message and answers it. A message holding a fenced
// code block and a run directive goes to the judge instead of the tutor.
func (s *Session) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if !s.gate.TryLock() {
		return ErrSessionBusy
	}
	defer s.gate.Unlock()

	if s.State() == StateNoGrade {
		return ErrNoGrade
	}

	before := s.Progress()
	s.commit(ctx, func(p *progress.StudentProgress) {
		p.Append(progress.NewMessage(progress.SenderUser, text))
		s.replies = nil
	})
	s.svc.logEvent(s.event(EventMessageSent, map[string]any{"text_len": len(text)}))

	if code, ok := transcript.ExtractSubmission(text); ok {
		return s.submit(ctx, before, code)
	}
	return s.chat(ctx, before.ForModel(), text)
}

// Act handles a quick reply. Replies with a canned prompt record the label
// as the student's turn and send the prompt; the others only clear the bar.
func (s *Session) Act(ctx context.Context, label string) error {
	q, ok := transcript.FindQuickReply(label)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, label)
	}
	if !s.gate.TryLock() {
		return ErrSessionBusy
	}
	defer s.gate.Unlock()

	if s.State() == StateNoGrade {
		return ErrNoGrade
	}
	if !q.Sends() {
		s.mu.Lock()
		s.replies = nil
		s.notify()
		s.mu.Unlock()
		return nil
	}

	before := s.Progress()
	s.commit(ctx, func(p *progress.StudentProgress) {
		p.Append(progress.NewMessage(progress.SenderUser, "*"+q.Label+"*"))
		s.replies = nil
	})
	s.svc.logEvent(s.event(EventMessageSent, map[string]any{"quick_reply": q.Label}))

	return s.chat(ctx, before.ForModel(), q.Prompt)
}

func (s *Session) chat(ctx context.Context, history []progress.ChatMessage, prompt string) error {
	reply, err := s.ask(ctx, history, prompt)
	if err != nil {
		return err
	}
	s.commit(ctx, func(p *progress.StudentProgress) {
		p.Append(progress.NewMessage(progress.SenderAI, reply.Text))
		s.replies = reply.QuickReplies
	})
	return nil
}

func (s *Session) submit(ctx context.Context, before progress.StudentProgress, code string) error {
	idx := before.Curriculum.CurrentIndex()
	topic := fallbackTopic
	if idx >= 0 {
		topic = before.Curriculum.Topics[idx].Name
	}
	s.svc.logEvent(s.event(EventCodeSubmitted, map[string]any{"topic": topic, "code_len": len(code)}))

	eval, err := s.evaluate(ctx, topic, code)
	if err != nil {
		if errors.Is(err, judge.ErrMalformedVerdict) {
			slog.Warn("judge reply without verdict",
				"terminal_id", s.terminalID,
				"student", s.studentName,
				"topic", topic,
			)
			s.svc.logEvent(s.event(EventJudgeMalformed, map[string]any{"topic": topic, "reply_len": len(eval.Raw)}))
		}
		return err
	}

	if !eval.Correct() {
		s.commit(ctx, func(p *progress.StudentProgress) {
			p.Append(progress.NewMessage(progress.SenderAI, eval.Body))
		})
		s.svc.logEvent(s.event(EventCodeIncorrect, map[string]any{"topic": topic}))
		return nil
	}

	s.commit(ctx, func(p *progress.StudentProgress) {
		p.Append(progress.NewMessage(progress.SenderSystem, eval.Body))
	})

	next := before.Curriculum
	if idx >= 0 {
		if next, err = before.Curriculum.Complete(idx); err != nil {
			return fmt.Errorf("complete topic: %w", err)
		}
	}
	nextTopic := ""
	if t, ok := next.CurrentTopic(); ok {
		nextTopic = t.Name
	}

	reply, err := s.ask(ctx, before.History, TransitionPrompt(topic, nextTopic))
	if err != nil {
		return err
	}

	s.commit(ctx, func(p *progress.StudentProgress) {
		p.Append(progress.NewMessage(progress.SenderAI, reply.Text).WithSnapshot(next))
		p.Curriculum = next
		s.replies = reply.QuickReplies
	})
	if !next.InOrder() {
		slog.Warn("topics completed out of order",
			"terminal_id", s.terminalID,
			"student", s.studentName,
		)
	}
	if idx < 0 {
		return nil
	}
	s.svc.logEvent(s.event(EventTopicCompleted, map[string]any{"topic": topic, "next": nextTopic}))
	if next.IsComplete() {
		s.svc.logEvent(s.event(EventCurriculumCompleted, map[string]any{"curriculum": next.Title}))
	}
	return nil
}

// ask runs one tutoring completion with the persona. history is sent as
// prior turns and prompt as the final user turn.
func (s *Session) ask(ctx context.Context, history []progress.ChatMessage, prompt string) (transcript.Reply, error) {
	if err := s.checkBudget(ctx); err != nil {
		return transcript.Reply{}, err
	}
	done := s.think()
	defer done()

	messages := make([]ai.Message, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, ai.Message{Role: roleFor(m.Sender), Content: m.Text})
	}
	messages = append(messages, ai.Message{Role: ai.RoleUser, Content: prompt})

	resp, err := s.svc.ai.Complete(ctx, ai.CompletionRequest{
		System:    Persona,
		Messages:  messages,
		Model:     s.svc.model,
		MaxTokens: s.svc.maxTokens,
		Task:      ai.TaskTutoring,
		APIKey:    s.key(),
	})
	if err != nil {
		slog.Error("tutor completion failed",
			"terminal_id", s.terminalID,
			"student", s.studentName,
			"error", err,
		)
		return transcript.Reply{}, fmt.Errorf("tutor completion: %w", err)
	}
	s.recordUsage(ctx, resp)
	return transcript.ParseReply(resp.Content), nil
}

func (s *Session) evaluate(ctx context.Context, topic, code string) (judge.Evaluation, error) {
	if err := s.checkBudget(ctx); err != nil {
		return judge.Evaluation{}, err
	}
	done := s.think()
	defer done()

	eval, err := s.svc.judge.Evaluate(ctx, topic, code, s.key())
	s.recordUsage(ctx, eval.Response)
	if err != nil && !errors.Is(err, judge.ErrMalformedVerdict) {
		slog.Error("code evaluation failed",
			"terminal_id", s.terminalID,
			"student", s.studentName,
			"error", err,
		)
	}
	return eval, err
}

func roleFor(sender progress.Sender) string {
	if sender == progress.SenderUser {
		return ai.RoleUser
	}
	return ai.RoleAssistant
}

func (s *Session) checkBudget(ctx context.Context) error {
	if s.svc.budget == nil {
		return nil
	}
	ok, err := s.svc.budget.Check(ctx, s.terminalID, s.studentName)
	if err != nil {
		return fmt.Errorf("check budget: %w", err)
	}
	if !ok {
		return ai.ErrBudgetExhausted
	}
	return nil
}

func (s *Session) recordUsage(ctx context.Context, resp ai.CompletionResponse) {
	if s.svc.budget == nil || resp.TotalTokens() == 0 {
		return
	}
	if err := s.svc.budget.Record(ctx, s.terminalID, s.studentName, resp.TotalTokens()); err != nil {
		slog.Warn("failed to record token usage", "student", s.studentName, "error", err)
	}
}

func (s *Session) think() func() {
	s.mu.Lock()
	s.thinking = true
	s.notify()
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.thinking = false
		s.notify()
		s.mu.Unlock()
	}
}

func (s *Session) key() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiKey
}

// replace saves p and reloads the merged document once the gate is free.
func (s *Session) replace(ctx context.Context, p progress.StudentProgress) error {
	s.gate.Lock()
	defer s.gate.Unlock()

	if err := s.svc.store.Save(ctx, s.terminalID, s.studentName, p); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	stored, err := s.svc.store.Load(ctx, s.terminalID, s.studentName)
	if err != nil {
		return fmt.Errorf("reload progress: %w", err)
	}

	s.mu.Lock()
	s.state = *stored
	s.replies = nil
	s.notify()
	s.mu.Unlock()
	s.touch()
	return nil
}

// commit applies fn to the state and persists it. Save failures are logged;
// the in-memory transcript stays authoritative for the session.
func (s *Session) commit(ctx context.Context, fn func(p *progress.StudentProgress)) {
	s.mu.Lock()
	fn(&s.state)
	saved := s.state.Clone()
	s.notify()
	s.mu.Unlock()
	s.touch()

	if err := s.svc.store.Save(context.WithoutCancel(ctx), s.terminalID, s.studentName, saved); err != nil {
		slog.Error("failed to save progress",
			"terminal_id", s.terminalID,
			"student", s.studentName,
			"error", err,
		)
	}
}

func (s *Session) event(eventType string, data map[string]any) Event {
	return Event{
		TerminalID:  s.terminalID,
		StudentName: s.studentName,
		EventType:   eventType,
		Data:        data,
	}
}
