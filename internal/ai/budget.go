package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrBudgetExhausted is returned when a student has used up their token budget.
var ErrBudgetExhausted = errors.New("AI token budget exhausted")

// BudgetChecker checks and records token usage against budgets.
type BudgetChecker interface {
	// Check returns true if the terminal/student has budget remaining.
	Check(ctx context.Context, terminalID, student string) (bool, error)
	// Record records token usage for a terminal/student.
	Record(ctx context.Context, terminalID, student string, tokens int) error
	// Usage returns current usage for a terminal/student.
	Usage(ctx context.Context, terminalID, student string) (used int64, budget int64, err error)
}

// InMemoryBudget is a simple in-memory budget tracker for development and tests.
// Usage never resets.
type InMemoryBudget struct {
	mu       sync.RWMutex
	fallback int64            // applied when no per-key budget is set; 0 means unlimited
	budgets  map[string]int64 // key -> budget limit
	usage    map[string]int64 // key -> tokens used
}

// NewInMemoryBudget creates a new in-memory budget tracker. A zero limit is unlimited.
func NewInMemoryBudget(limit int64) *InMemoryBudget {
	return &InMemoryBudget{
		fallback: limit,
		budgets:  make(map[string]int64),
		usage:    make(map[string]int64),
	}
}

// SetBudget sets the token budget for a terminal/student.
func (b *InMemoryBudget) SetBudget(terminalID, student string, tokens int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.budgets[budgetKey(terminalID, student)] = tokens
}

func (b *InMemoryBudget) limit(key string) int64 {
	if v, ok := b.budgets[key]; ok {
		return v
	}
	return b.fallback
}

func (b *InMemoryBudget) Check(_ context.Context, terminalID, student string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	key := budgetKey(terminalID, student)
	budget := b.limit(key)
	if budget <= 0 {
		return true, nil
	}
	return b.usage[key] < budget, nil
}

func (b *InMemoryBudget) Record(_ context.Context, terminalID, student string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.usage[budgetKey(terminalID, student)] += int64(tokens)
	return nil
}

func (b *InMemoryBudget) Usage(_ context.Context, terminalID, student string) (int64, int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	key := budgetKey(terminalID, student)
	return b.usage[key], b.limit(key), nil
}

// RedisBudget tracks daily token usage in Redis. Counters expire two days
// after they are first written.
type RedisBudget struct {
	client redis.Cmdable
	limit  int64
	now    func() time.Time
}

const budgetTTL = 48 * time.Hour

// NewRedisBudget creates a daily budget tracker. A zero limit is unlimited.
func NewRedisBudget(client redis.Cmdable, limit int64) *RedisBudget {
	return &RedisBudget{client: client, limit: limit, now: time.Now}
}

func (b *RedisBudget) dayKey(terminalID, student string) string {
	return "budget:" + b.now().UTC().Format("2006-01-02") + ":" + budgetKey(terminalID, student)
}

func (b *RedisBudget) Check(ctx context.Context, terminalID, student string) (bool, error) {
	if b.limit <= 0 {
		return true, nil
	}
	used, _, err := b.Usage(ctx, terminalID, student)
	if err != nil {
		return false, err
	}
	return used < b.limit, nil
}

func (b *RedisBudget) Record(ctx context.Context, terminalID, student string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}
	key := b.dayKey(terminalID, student)
	pipe := b.client.TxPipeline()
	pipe.IncrBy(ctx, key, int64(tokens))
	pipe.Expire(ctx, key, budgetTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

func (b *RedisBudget) Usage(ctx context.Context, terminalID, student string) (int64, int64, error) {
	used, err := b.client.Get(ctx, b.dayKey(terminalID, student)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, b.limit, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("read usage: %w", err)
	}
	return used, b.limit, nil
}

func budgetKey(terminalID, student string) string {
	return terminalID + ":" + student
}
