// Package tutor runs the per-student tutoring state machine: grade
// selection, chat turns, code submissions and curriculum advancement.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/satishskid/codegurufs/internal/ai"
	"github.com/satishskid/codegurufs/internal/curriculum"
	"github.com/satishskid/codegurufs/internal/judge"
	"github.com/satishskid/codegurufs/internal/progress"
)

const (
	defaultMaxTokens   = 1024
	defaultIdleTimeout = 30 * time.Minute
)

// ErrInvalidIdentity is returned when a session is opened without a terminal
// or student name.
var ErrInvalidIdentity = errors.New("terminal ID and student name are required")

// Completer is the slice of the AI router the tutor needs.
type Completer interface {
	Complete(ctx context.Context, req ai.CompletionRequest) (ai.CompletionResponse, error)
}

// Evaluator judges a code submission for a topic.
type Evaluator interface {
	Evaluate(ctx context.Context, topic, code, apiKey string) (judge.Evaluation, error)
}

// Config holds dependencies for the tutor service.
type Config struct {
	AI        Completer
	Judge     Evaluator // defaults to a judge over AI
	Store     progress.Store
	Catalog   *curriculum.Catalog
	Budget    ai.BudgetChecker // optional
	Events    EventLogger
	Model     string
	MaxTokens int // per tutoring reply (default 1024)
	// IdleTimeout evicts unwatched sessions untouched for this long
	// (default 30m).
	IdleTimeout time.Duration
}

// Service opens and caches sessions.
type Service struct {
	ai        Completer
	judge     Evaluator
	store     progress.Store
	catalog   *curriculum.Catalog
	budget    ai.BudgetChecker
	events    EventLogger
	model     string
	maxTokens int
	idle      time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewService creates a tutor service.
func NewService(cfg Config) *Service {
	store := cfg.Store
	if store == nil {
		store = progress.NewMemoryStore()
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = curriculum.DefaultCatalog()
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	j := cfg.Judge
	if j == nil {
		j = judge.New(cfg.AI, cfg.Model)
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	return &Service{
		ai:        cfg.AI,
		judge:     j,
		store:     store,
		catalog:   catalog,
		budget:    cfg.Budget,
		events:    events,
		model:     cfg.Model,
		maxTokens: maxTokens,
		idle:      idle,
		sessions:  make(map[string]*Session),
	}
}

// Catalog returns the curriculum catalog sessions draw from.
func (s *Service) Catalog() *curriculum.Catalog {
	return s.catalog
}

// Open returns the live session for a student, loading stored progress on
// first use. A student with nothing stored starts without a grade; any other
// load failure is returned and no session is created.
func (s *Service) Open(ctx context.Context, terminalID, studentName string) (*Session, error) {
	if strings.TrimSpace(terminalID) == "" || strings.TrimSpace(studentName) == "" {
		return nil, ErrInvalidIdentity
	}
	key := progress.Key(terminalID, studentName)

	if sess := s.live(key); sess != nil {
		return sess, nil
	}

	var state progress.StudentProgress
	stored, err := s.store.Load(ctx, terminalID, studentName)
	switch {
	case errors.Is(err, progress.ErrNotFound):
		slog.Info("new student", "terminal_id", terminalID, "student", studentName)
	case err != nil:
		return nil, fmt.Errorf("open session: %w", err)
	default:
		state = *stored
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[key]; ok {
		sess.touch()
		return sess, nil
	}
	sess := newSession(s, terminalID, studentName, state)
	s.sessions[key] = sess
	return sess, nil
}

func (s *Service) live(key string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[key]
	if !ok {
		return nil
	}
	sess.touch()
	return sess
}

// Save merges p into the stored progress. A live session is reloaded in
// place once its running turn, if any, has finished, so every holder of the
// session sees the saved state.
func (s *Service) Save(ctx context.Context, terminalID, studentName string, p progress.StudentProgress) error {
	if sess := s.live(progress.Key(terminalID, studentName)); sess != nil {
		return sess.replace(ctx, p)
	}
	if err := s.store.Save(ctx, terminalID, studentName, p); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// Sweep evicts sessions that nobody watches, that are not running a turn and
// that have been idle longer than idle. It returns how many were evicted.
func (s *Service) Sweep(idle time.Duration) int {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key, sess := range s.sessions {
		if now.Sub(sess.lastUsed()) < idle || sess.watched() {
			continue
		}
		if !sess.gate.TryLock() {
			continue
		}
		delete(s.sessions, key)
		sess.gate.Unlock()
		n++
	}
	return n
}

// Run sweeps idle sessions until ctx is done.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(s.idle); n > 0 {
				slog.Debug("evicted idle sessions", "count", n)
			}
		}
	}
}

// Close drops the cached session. Stored progress is untouched.
func (s *Service) Close(terminalID, studentName string) {
	s.mu.Lock()
	delete(s.sessions, progress.Key(terminalID, studentName))
	s.mu.Unlock()
}

func (s *Service) logEvent(e Event) {
	if err := s.events.LogEvent(e); err != nil {
		slog.Warn("failed to log event", "type", e.EventType, "error", err)
	}
}
