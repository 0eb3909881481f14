package tutor_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/satishskid/codegurufs/internal/ai"
	"github.com/satishskid/codegurufs/internal/curriculum"
	"github.com/satishskid/codegurufs/internal/judge"
	"github.com/satishskid/codegurufs/internal/progress"
	"github.com/satishskid/codegurufs/internal/tutor"
)

const submission = "```python\nprint(\"Hello, World!\")\n// run\n```"

type fixture struct {
	ai     *ai.MockProvider
	store  *progress.MemoryStore
	events *tutor.MemoryEventLogger
	svc    *tutor.Service
}

func newFixture(t *testing.T, responses ...string) *fixture {
	t.Helper()
	f := &fixture{
		ai:     &ai.MockProvider{Responses: responses},
		store:  progress.NewMemoryStore(),
		events: tutor.NewMemoryEventLogger(),
	}
	f.svc = tutor.NewService(tutor.Config{
		AI:     f.ai,
		Store:  f.store,
		Events: f.events,
		Model:  "gemini-2.5-flash",
	})
	return f
}

func (f *fixture) open(t *testing.T) *tutor.Session {
	t.Helper()
	sess, err := f.svc.Open(context.Background(), "term_123", "Asha")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return sess
}

// started returns a session that has picked EXPLORER.
func (f *fixture) started(t *testing.T) *tutor.Session {
	t.Helper()
	f.ai.Responses = append([]string{"Think of print() like a loudspeaker. Makes sense?\n[SHOW_ACTIONS]"}, f.ai.Responses...)
	sess := f.open(t)
	if err := sess.SelectGrade(context.Background(), curriculum.GradeExplorer); err != nil {
		t.Fatalf("SelectGrade() error = %v", err)
	}
	return sess
}

func TestSession_SelectGrade(t *testing.T) {
	f := newFixture(t)
	sess := f.started(t)

	if sess.State() != tutor.StateInProgress {
		t.Errorf("State() = %s, want in_progress", sess.State())
	}
	p := sess.Progress()
	if p.Grade != curriculum.GradeExplorer {
		t.Errorf("Grade = %q", p.Grade)
	}
	if p.Curriculum.Title != "The Python Adventure" || len(p.Curriculum.Topics) != 6 {
		t.Errorf("Curriculum = %q with %d topics", p.Curriculum.Title, len(p.Curriculum.Topics))
	}
	if p.Curriculum.CompletedCount() != 0 {
		t.Error("a fresh curriculum has no completed topics")
	}
	topic, ok := sess.CurrentTopic()
	if !ok || topic.Name != "print(): Saying Hello" {
		t.Errorf("CurrentTopic() = %q, %v", topic.Name, ok)
	}

	if len(p.History) != 2 {
		t.Fatalf("len(History) = %d, want welcome + reply", len(p.History))
	}
	welcome := p.History[0]
	if welcome.Sender != progress.SenderAI || !strings.Contains(welcome.Text, "[CURRICULUM_MAP]") {
		t.Errorf("welcome = %+v", welcome)
	}
	if welcome.Snapshot() == nil || welcome.Snapshot().Title != "The Python Adventure" {
		t.Error("welcome should carry a curriculum snapshot")
	}
	if strings.Contains(p.History[1].Text, "[SHOW_ACTIONS]") {
		t.Error("marker should be stripped from the reply")
	}
	if got := len(sess.QuickReplies()); got != 3 {
		t.Errorf("len(QuickReplies()) = %d, want 3", got)
	}

	req := f.ai.LastRequest
	if req.System != tutor.Persona {
		t.Error("tutoring call must carry the persona")
	}
	if len(req.Messages) != 1 || req.Messages[0].Content != tutor.GradePrompt(curriculum.GradeExplorer, "print(): Saying Hello") {
		t.Errorf("Messages = %+v, want only the opening instruction", req.Messages)
	}
	if req.Task != ai.TaskTutoring {
		t.Errorf("Task = %s", req.Task)
	}

	stored, err := f.store.Load(context.Background(), "term_123", "asha")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(stored.History) != 2 {
		t.Errorf("stored history = %d messages, want 2", len(stored.History))
	}

	if err := sess.SelectGrade(context.Background(), curriculum.GradePro); !errors.Is(err, tutor.ErrGradeSelected) {
		t.Errorf("second SelectGrade() error = %v, want ErrGradeSelected", err)
	}
}

func TestSession_SelectGrade_Unknown(t *testing.T) {
	f := newFixture(t)
	sess := f.open(t)
	if err := sess.SelectGrade(context.Background(), "KINDER"); !errors.Is(err, tutor.ErrUnknownGrade) {
		t.Errorf("SelectGrade() error = %v, want ErrUnknownGrade", err)
	}
	if sess.State() != tutor.StateNoGrade {
		t.Errorf("State() = %s, want no_grade_selected", sess.State())
	}
}

func TestSession_RequiresGrade(t *testing.T) {
	f := newFixture(t)
	sess := f.open(t)
	if err := sess.Send(context.Background(), "hello"); !errors.Is(err, tutor.ErrNoGrade) {
		t.Errorf("Send() error = %v, want ErrNoGrade", err)
	}
	if f.ai.Calls() != 0 {
		t.Error("no model call before a grade is chosen")
	}
}

func TestSession_Send_Chat(t *testing.T) {
	f := newFixture(t, "Great question! Strings use quotes.")
	sess := f.started(t)

	if err := sess.Send(context.Background(), "Why the quotes?"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	p := sess.Progress()
	if len(p.History) != 4 {
		t.Fatalf("len(History) = %d, want 4", len(p.History))
	}
	if p.History[2].Sender != progress.SenderUser || p.History[2].Text != "Why the quotes?" {
		t.Errorf("user message = %+v", p.History[2])
	}
	if p.History[3].Text != "Great question! Strings use quotes." {
		t.Errorf("reply = %q", p.History[3].Text)
	}
	if len(sess.QuickReplies()) != 0 {
		t.Error("a reply without the marker clears quick replies")
	}

	req := f.ai.LastRequest
	if len(req.Messages) != 3 {
		t.Fatalf("len(Messages) = %d, want 2 prior turns + prompt", len(req.Messages))
	}
	if req.Messages[0].Role != ai.RoleAssistant || req.Messages[2].Role != ai.RoleUser {
		t.Errorf("roles = %s, %s", req.Messages[0].Role, req.Messages[2].Role)
	}
	if req.Messages[2].Content != "Why the quotes?" {
		t.Errorf("final turn = %q", req.Messages[2].Content)
	}
}

func TestSession_Send_Empty(t *testing.T) {
	f := newFixture(t)
	sess := f.started(t)
	before := len(sess.Progress().History)

	if err := sess.Send(context.Background(), "   \n"); !errors.Is(err, tutor.ErrEmptyMessage) {
		t.Errorf("Send() error = %v, want ErrEmptyMessage", err)
	}
	if len(sess.Progress().History) != before {
		t.Error("empty message must not be recorded")
	}
}

func TestSession_Send_CorrectCode(t *testing.T) {
	f := newFixture(t,
		"CODE_CORRECT\nGreat job!",
		"Shabash!\n[CURRICULUM_MAP]\nNow let's store things in variables.\n[SHOW_ACTIONS]",
	)
	sess := f.started(t)
	explorer, _ := curriculum.DefaultCatalog().Get(curriculum.GradeExplorer)

	if err := sess.Send(context.Background(), submission); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	p := sess.Progress()
	if len(p.History) != 5 {
		t.Fatalf("len(History) = %d, want 5", len(p.History))
	}
	banner := p.History[3]
	if banner.Sender != progress.SenderSystem || banner.Text != "Great job!" {
		t.Errorf("system message = %+v", banner)
	}
	if !p.Curriculum.Topics[0].Completed {
		t.Error("topic 0 should be completed")
	}
	for i, topic := range p.Curriculum.Topics[1:] {
		if topic.Completed {
			t.Errorf("topic %d changed", i+1)
		}
	}
	current, _ := sess.CurrentTopic()
	if current.Name != explorer.Topics[1].Name {
		t.Errorf("CurrentTopic() = %q, want %q", current.Name, explorer.Topics[1].Name)
	}

	last := p.History[4]
	if last.Snapshot() == nil || !last.Snapshot().Topics[0].Completed {
		t.Error("transition reply should carry the new curriculum snapshot")
	}
	if p.History[0].Snapshot().Topics[0].Completed {
		t.Error("older snapshots are point-in-time")
	}
	if len(sess.QuickReplies()) != 3 {
		t.Error("transition reply offered quick replies")
	}

	judgeReq := f.ai.Requests[1]
	if judgeReq.Task != ai.TaskJudging || judgeReq.System != "" {
		t.Errorf("judge request = task %s, system %q", judgeReq.Task, judgeReq.System)
	}
	if !strings.Contains(judgeReq.Messages[0].Content, `print("Hello, World!")`) ||
		strings.Contains(judgeReq.Messages[0].Content, "// run") {
		t.Errorf("judge prompt = %q", judgeReq.Messages[0].Content)
	}

	transition := f.ai.Requests[2]
	want := tutor.TransitionPrompt("print(): Saying Hello", explorer.Topics[1].Name)
	if got := transition.Messages[len(transition.Messages)-1].Content; got != want {
		t.Errorf("transition prompt = %q, want %q", got, want)
	}
	if len(transition.Messages) != 3 {
		t.Errorf("transition history = %d turns, want history before the submission + prompt", len(transition.Messages))
	}

	types := f.events.Types()
	if !contains(types, tutor.EventTopicCompleted) || !contains(types, tutor.EventCodeSubmitted) {
		t.Errorf("events = %v", types)
	}
}

func TestSession_Send_IncorrectCode(t *testing.T) {
	f := newFixture(t, "CODE_INCORRECT\nCheck your loop bounds.")
	sess := f.started(t)

	if err := sess.Send(context.Background(), submission); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	p := sess.Progress()
	last := p.History[len(p.History)-1]
	if last.Sender != progress.SenderAI || last.Text != "Check your loop bounds." {
		t.Errorf("hint = %+v", last)
	}
	if p.Curriculum.CompletedCount() != 0 {
		t.Error("no topic may change on an incorrect verdict")
	}
	if f.ai.Calls() != 2 {
		t.Errorf("Calls() = %d, want grade + judge only", f.ai.Calls())
	}
	if !contains(f.events.Types(), tutor.EventCodeIncorrect) {
		t.Errorf("events = %v", f.events.Types())
	}
}

func TestSession_Send_MalformedVerdict(t *testing.T) {
	f := newFixture(t, "Looks good to me!")
	sess := f.started(t)

	err := sess.Send(context.Background(), submission)
	if !errors.Is(err, judge.ErrMalformedVerdict) {
		t.Fatalf("Send() error = %v, want ErrMalformedVerdict", err)
	}

	p := sess.Progress()
	if len(p.History) != 3 {
		t.Errorf("len(History) = %d, want only the submission appended", len(p.History))
	}
	if p.Curriculum.CompletedCount() != 0 {
		t.Error("malformed verdict must not complete a topic")
	}
	if !contains(f.events.Types(), tutor.EventJudgeMalformed) {
		t.Errorf("events = %v", f.events.Types())
	}
}

func TestSession_Send_AIFailure(t *testing.T) {
	f := newFixture(t)
	sess := f.started(t)
	f.ai.Err = errors.New("quota exceeded")

	if err := sess.Send(context.Background(), "hi"); err == nil {
		t.Fatal("Send() should surface the model failure")
	}
	if sess.Thinking() {
		t.Error("Thinking() should clear after a failure")
	}
	if got := len(sess.Progress().History); got != 3 {
		t.Errorf("len(History) = %d, want the user turn only", got)
	}

	if err := sess.Send(context.Background(), submission); err == nil {
		t.Fatal("Send() should surface the judge failure")
	}
	if sess.Progress().Curriculum.CompletedCount() != 0 {
		t.Error("curriculum must not change when the judge fails")
	}
	if f.ai.Calls() != 3 {
		t.Errorf("Calls() = %d, want no retries", f.ai.Calls())
	}
}

func TestSession_CompletesCurriculum(t *testing.T) {
	cat, err := curriculum.ParseCatalog([]byte(`curricula:
  - grade: JUNIOR
    title: Tiny
    topics:
      - name: Only
        duration: 5 mins
  - grade: EXPLORER
    title: Tiny
    topics:
      - name: Only
        duration: 5 mins
  - grade: PRO
    title: Tiny
    topics:
      - name: Only
        duration: 5 mins
`))
	if err != nil {
		t.Fatalf("ParseCatalog() error = %v", err)
	}
	mock := &ai.MockProvider{Responses: []string{
		"Welcome", "CODE_CORRECT\nYes!", "You finished!\n[CURRICULUM_MAP]",
		"CODE_CORRECT\nStill right!", "Nothing left to learn here!",
	}}
	events := tutor.NewMemoryEventLogger()
	svc := tutor.NewService(tutor.Config{AI: mock, Catalog: cat, Events: events})

	sess, err := svc.Open(context.Background(), "term_123", "asha")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := sess.SelectGrade(context.Background(), curriculum.GradePro); err != nil {
		t.Fatalf("SelectGrade() error = %v", err)
	}
	if err := sess.Send(context.Background(), submission); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if sess.State() != tutor.StateComplete {
		t.Errorf("State() = %s, want complete", sess.State())
	}
	if _, ok := sess.CurrentTopic(); ok {
		t.Error("CurrentTopic() should be undefined once every topic is done")
	}
	prompt := mock.LastRequest.Messages[len(mock.LastRequest.Messages)-1].Content
	if !strings.Contains(prompt, `"the final project"`) {
		t.Errorf("transition prompt = %q", prompt)
	}
	if !contains(events.Types(), tutor.EventCurriculumCompleted) {
		t.Errorf("events = %v", events.Types())
	}

	// A correct submission after the last topic completes nothing new.
	if err := sess.Send(context.Background(), submission); err != nil {
		t.Fatalf("Send() after completion error = %v", err)
	}
	if n := count(events.Types(), tutor.EventTopicCompleted); n != 1 {
		t.Errorf("topic_completed logged %d times, want 1", n)
	}
	if n := count(events.Types(), tutor.EventCurriculumCompleted); n != 1 {
		t.Errorf("curriculum_completed logged %d times, want 1", n)
	}
}

func TestSession_Act(t *testing.T) {
	f := newFixture(t, "Here is your challenge: print your name.")
	sess := f.started(t)

	if err := sess.Act(context.Background(), "Yep, I got it!"); err != nil {
		t.Fatalf("Act() error = %v", err)
	}
	p := sess.Progress()
	if p.History[2].Text != "*Yep, I got it!*" || p.History[2].Sender != progress.SenderUser {
		t.Errorf("label message = %+v", p.History[2])
	}
	req := f.ai.LastRequest
	if got := req.Messages[len(req.Messages)-1].Content; got != "I understand. What's the challenge?" {
		t.Errorf("prompt = %q", got)
	}
	for _, m := range req.Messages {
		if m.Content == "*Yep, I got it!*" {
			t.Error("the label is display-only and not sent to the model")
		}
	}
}

func TestSession_Act_FocusOnly(t *testing.T) {
	f := newFixture(t)
	sess := f.started(t)
	calls := f.ai.Calls()
	before := len(sess.Progress().History)

	if err := sess.Act(context.Background(), "I have a question..."); err != nil {
		t.Fatalf("Act() error = %v", err)
	}
	if f.ai.Calls() != calls || len(sess.Progress().History) != before {
		t.Error("focus-only reply must not call the model or record anything")
	}
	if len(sess.QuickReplies()) != 0 {
		t.Error("quick replies should be cleared")
	}

	if err := sess.Act(context.Background(), "Skip"); !errors.Is(err, tutor.ErrUnknownAction) {
		t.Errorf("Act() error = %v, want ErrUnknownAction", err)
	}
}

func TestSession_Budget(t *testing.T) {
	mock := &ai.MockProvider{Response: "ok"}
	svc := tutor.NewService(tutor.Config{AI: mock, Budget: ai.NewInMemoryBudget(5)})
	sess, err := svc.Open(context.Background(), "term_123", "asha")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := sess.SelectGrade(context.Background(), curriculum.GradeJunior); err != nil {
		t.Fatalf("SelectGrade() error = %v", err)
	}
	if err := sess.Send(context.Background(), "hi"); !errors.Is(err, ai.ErrBudgetExhausted) {
		t.Errorf("Send() error = %v, want ErrBudgetExhausted", err)
	}
	if mock.Calls() != 1 {
		t.Errorf("Calls() = %d, want 1", mock.Calls())
	}
}

type blockingProvider struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *blockingProvider) Complete(ctx context.Context, _ ai.CompletionRequest) (ai.CompletionResponse, error) {
	p.once.Do(func() { close(p.entered) })
	select {
	case <-p.release:
		return ai.CompletionResponse{Content: "done"}, nil
	case <-ctx.Done():
		return ai.CompletionResponse{}, ctx.Err()
	}
}

func TestSession_BusyGate(t *testing.T) {
	p := &blockingProvider{entered: make(chan struct{}), release: make(chan struct{})}
	svc := tutor.NewService(tutor.Config{AI: p})
	sess, err := svc.Open(context.Background(), "term_123", "asha")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	errc := make(chan error, 1)
	go func() { errc <- sess.SelectGrade(context.Background(), curriculum.GradeJunior) }()
	<-p.entered

	if !sess.Thinking() {
		t.Error("Thinking() should be true while the call is in flight")
	}
	if err := sess.Send(context.Background(), "hello?"); !errors.Is(err, tutor.ErrSessionBusy) {
		t.Errorf("Send() error = %v, want ErrSessionBusy", err)
	}

	close(p.release)
	if err := <-errc; err != nil {
		t.Fatalf("SelectGrade() error = %v", err)
	}
	if sess.Thinking() {
		t.Error("Thinking() should clear once the call returns")
	}
}

func count(list []string, s string) int {
	n := 0
	for _, v := range list {
		if v == s {
			n++
		}
	}
	return n
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestSession_WatchNotifiesOnChange(t *testing.T) {
	f := newFixture(t, "Welcome aboard!")
	sess := f.open(t)

	changed, cancel := sess.Watch()
	defer cancel()

	if err := sess.SelectGrade(context.Background(), curriculum.GradeJunior); err != nil {
		t.Fatalf("SelectGrade() error = %v", err)
	}
	select {
	case <-changed:
	default:
		t.Fatal("no change notification after SelectGrade")
	}

	cancel()
	if err := sess.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	select {
	case <-changed:
		t.Error("notification delivered after cancel")
	default:
	}
}
