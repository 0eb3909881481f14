// Package terminal tracks the classroom devices students log in from. A
// terminal is activated once with a one-time token and can be switched off
// by an administrator.
package terminal

import (
	"context"
	"encoding/hex"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
)

var (
	ErrNotFound     = errors.New("terminal not found")
	ErrDeactivated  = errors.New("terminal deactivated")
	ErrInvalidToken = errors.New("invalid activation token")
)

// Info describes where a terminal lives.
type Info struct {
	SchoolName  string `json:"schoolName"`
	ClassName   string `json:"className"`
	TeacherName string `json:"teacherName"`
}

// Terminal is a registered device.
type Terminal struct {
	ID          string     `json:"terminalId"`
	Info        Info       `json:"terminalInfo"`
	Active      bool       `json:"active"`
	ActivatedAt *time.Time `json:"activatedAt,omitempty"`
}

// Registry stores terminals and their activation tokens.
type Registry interface {
	// Activate marks the token's terminal active and returns it.
	Activate(ctx context.Context, token string) (Terminal, error)
	// Status returns an active terminal. An inactive one is returned with
	// ErrDeactivated.
	Status(ctx context.Context, id string) (Terminal, error)
	Register(ctx context.Context, t Terminal, token string) error
	SetActive(ctx context.Context, id string, active bool) error
	List(ctx context.Context) ([]Terminal, error)
}

// HashToken returns the stored form of an activation token.
func HashToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// MemoryRegistry is an in-memory Registry.
type MemoryRegistry struct {
	mu        sync.RWMutex
	terminals map[string]Terminal
	tokens    map[string]string // token hash -> terminal ID
	now       func() time.Time
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		terminals: make(map[string]Terminal),
		tokens:    make(map[string]string),
		now:       time.Now,
	}
}

func (r *MemoryRegistry) Activate(_ context.Context, token string) (Terminal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.tokens[HashToken(token)]
	if !ok {
		return Terminal{}, ErrInvalidToken
	}
	t, ok := r.terminals[id]
	if !ok {
		return Terminal{}, ErrNotFound
	}
	now := r.now()
	t.Active = true
	t.ActivatedAt = &now
	r.terminals[id] = t
	return t, nil
}

func (r *MemoryRegistry) Status(_ context.Context, id string) (Terminal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.terminals[id]
	if !ok {
		return Terminal{}, ErrNotFound
	}
	if !t.Active {
		return t, ErrDeactivated
	}
	return t, nil
}

func (r *MemoryRegistry) Register(_ context.Context, t Terminal, token string) error {
	if t.ID == "" || token == "" {
		return errors.New("terminal ID and token are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.terminals[t.ID] = t
	r.tokens[HashToken(token)] = t.ID
	return nil
}

func (r *MemoryRegistry) SetActive(_ context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.terminals[id]
	if !ok {
		return ErrNotFound
	}
	t.Active = active
	r.terminals[id] = t
	return nil
}

func (r *MemoryRegistry) List(_ context.Context) ([]Terminal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Terminal, 0, len(r.terminals))
	for _, t := range r.terminals {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Demo terminals registered by Seed.
var demo = []struct {
	terminal Terminal
	token    string
}{
	{Terminal{ID: "term_123", Info: Info{SchoolName: "Vibgyor High", ClassName: "Grade 7B", TeacherName: "Priya Sharma"}, Active: true}, "token_abc"},
	{Terminal{ID: "term_456", Info: Info{SchoolName: "Delhi Public School", ClassName: "Grade 10", TeacherName: "Rohan Mehta"}}, "token_def"},
}

// Seed registers the demo terminals.
func Seed(ctx context.Context, r Registry) error {
	for _, d := range demo {
		if err := r.Register(ctx, d.terminal, d.token); err != nil {
			return err
		}
	}
	return nil
}
