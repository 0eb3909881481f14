package progress

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrNotFound means no progress was ever saved for the student. Callers treat
// it as "new student", never as a failure.
var ErrNotFound = errors.New("progress not found")

var fold = cases.Lower(language.Und)

// Key is the storage identity of a student on a terminal. The terminal ID is
// case-sensitive, the student name is not.
func Key(terminalID, studentName string) string {
	return terminalID + "_" + fold.String(studentName)
}

// Store persists student progress. Save merges: fields absent from the
// payload keep their stored value.
type Store interface {
	Load(ctx context.Context, terminalID, studentName string) (*StudentProgress, error)
	Save(ctx context.Context, terminalID, studentName string, p StudentProgress) error
}

// Record is one stored student, as listed for reports.
type Record struct {
	TerminalID  string
	StudentName string
	Progress    StudentProgress
	UpdatedAt   time.Time
}

// Lister enumerates the students of a terminal.
type Lister interface {
	List(ctx context.Context, terminalID string) ([]Record, error)
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	records map[string]Record
	mu      sync.RWMutex
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		now:     time.Now,
	}
}

func (s *MemoryStore) Load(_ context.Context, terminalID, studentName string) (*StudentProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[Key(terminalID, studentName)]
	if !ok {
		return nil, ErrNotFound
	}
	p := rec.Progress.Clone()
	return &p, nil
}

func (s *MemoryStore) Save(_ context.Context, terminalID, studentName string, p StudentProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := Key(terminalID, studentName)
	rec := s.records[key]
	rec.TerminalID = terminalID
	rec.StudentName = studentName
	rec.Progress = rec.Progress.merge(p.Clone())
	rec.UpdatedAt = s.now()
	s.records[key] = rec
	return nil
}

func (s *MemoryStore) List(_ context.Context, terminalID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, rec := range s.records {
		if rec.TerminalID != terminalID {
			continue
		}
		rec.Progress = rec.Progress.Clone()
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return fold.String(out[i].StudentName) < fold.String(out[j].StudentName)
	})
	return out, nil
}
