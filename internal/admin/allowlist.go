// Package admin keeps the staff allowlist and decides who may use the admin
// endpoints.
package admin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const dbTimeout = 5 * time.Second

var fold = cases.Lower(language.Und)

var (
	ErrNotFound    = errors.New("user not on allowlist")
	ErrInvalidRole = errors.New("role must be admin or member")
)

// Role is an allowlisted user's permission level.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// User is an allowlist entry. Email is stored lowercased.
type User struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// NormalizeEmail is the allowlist's key form.
func NormalizeEmail(email string) string {
	return fold.String(strings.TrimSpace(email))
}

// Allowlist stores staff users.
type Allowlist interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, email string) (User, error)
	Upsert(ctx context.Context, u User) error
	Delete(ctx context.Context, email string) error
}

// IsAdmin reports whether email belongs to an admin. Lookup failures other
// than a missing user are returned.
func IsAdmin(ctx context.Context, list Allowlist, email string) (bool, error) {
	if NormalizeEmail(email) == "" {
		return false, nil
	}
	u, err := list.Get(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.Role == RoleAdmin, nil
}

// Seed adds users to the allowlist.
func Seed(ctx context.Context, list Allowlist, users ...User) error {
	for _, u := range users {
		if err := list.Upsert(ctx, u); err != nil {
			return fmt.Errorf("seed %s: %w", u.Email, err)
		}
	}
	return nil
}

// MemoryAllowlist is an in-memory Allowlist.
type MemoryAllowlist struct {
	mu    sync.RWMutex
	users map[string]Role
}

// NewMemoryAllowlist creates an empty allowlist.
func NewMemoryAllowlist() *MemoryAllowlist {
	return &MemoryAllowlist{users: make(map[string]Role)}
}

func (l *MemoryAllowlist) List(_ context.Context) ([]User, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]User, 0, len(l.users))
	for email, role := range l.users {
		out = append(out, User{Email: email, Role: role})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (l *MemoryAllowlist) Get(_ context.Context, email string) (User, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	key := NormalizeEmail(email)
	role, ok := l.users[key]
	if !ok {
		return User{}, ErrNotFound
	}
	return User{Email: key, Role: role}, nil
}

func (l *MemoryAllowlist) Upsert(_ context.Context, u User) error {
	key := NormalizeEmail(u.Email)
	if key == "" {
		return fmt.Errorf("email is required")
	}
	if !u.Role.Valid() {
		return ErrInvalidRole
	}
	l.mu.Lock()
	l.users[key] = u.Role
	l.mu.Unlock()
	return nil
}

func (l *MemoryAllowlist) Delete(_ context.Context, email string) error {
	l.mu.Lock()
	delete(l.users, NormalizeEmail(email))
	l.mu.Unlock()
	return nil
}

// PostgresAllowlist stores the allowlist in allowlist_users.
type PostgresAllowlist struct {
	pool *pgxpool.Pool
}

// NewPostgresAllowlist creates a PostgreSQL-backed allowlist.
func NewPostgresAllowlist(pool *pgxpool.Pool) (*PostgresAllowlist, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresAllowlist{pool: pool}, nil
}

func (l *PostgresAllowlist) List(ctx context.Context) ([]User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := l.pool.Query(ctx, `SELECT email, role FROM allowlist_users ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("query allowlist: %w", err)
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (User, error) {
		var u User
		err := row.Scan(&u.Email, &u.Role)
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan allowlist: %w", err)
	}
	return users, nil
}

func (l *PostgresAllowlist) Get(ctx context.Context, email string) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var u User
	err := l.pool.QueryRow(ctx,
		`SELECT email, role FROM allowlist_users WHERE email = $1`,
		NormalizeEmail(email),
	).Scan(&u.Email, &u.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get allowlist user: %w", err)
	}
	return u, nil
}

func (l *PostgresAllowlist) Upsert(ctx context.Context, u User) error {
	key := NormalizeEmail(u.Email)
	if key == "" {
		return fmt.Errorf("email is required")
	}
	if !u.Role.Valid() {
		return ErrInvalidRole
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := l.pool.Exec(ctx,
		`INSERT INTO allowlist_users (email, role, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (email) DO UPDATE SET role = EXCLUDED.role, updated_at = NOW()`,
		key, string(u.Role),
	)
	if err != nil {
		return fmt.Errorf("upsert allowlist user: %w", err)
	}
	return nil
}

func (l *PostgresAllowlist) Delete(ctx context.Context, email string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := l.pool.Exec(ctx, `DELETE FROM allowlist_users WHERE email = $1`, NormalizeEmail(email)); err != nil {
		return fmt.Errorf("delete allowlist user: %w", err)
	}
	return nil
}
