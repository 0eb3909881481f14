package terminal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresRegistry is a PostgreSQL-backed Registry.
type PostgresRegistry struct {
	pool *pgxpool.Pool
}

// NewPostgresRegistry creates a registry over the terminals table.
func NewPostgresRegistry(pool *pgxpool.Pool) (*PostgresRegistry, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresRegistry{pool: pool}, nil
}

const terminalColumns = `id, school_name, class_name, teacher_name, active, activated_at`

func scanTerminal(row pgx.Row) (Terminal, error) {
	var t Terminal
	err := row.Scan(&t.ID, &t.Info.SchoolName, &t.Info.ClassName, &t.Info.TeacherName, &t.Active, &t.ActivatedAt)
	return t, err
}

func (r *PostgresRegistry) Activate(ctx context.Context, token string) (Terminal, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	t, err := scanTerminal(r.pool.QueryRow(ctx,
		`UPDATE terminals SET active = TRUE, activated_at = NOW()
		 WHERE token_hash = $1
		 RETURNING `+terminalColumns,
		HashToken(token),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Terminal{}, ErrInvalidToken
		}
		return Terminal{}, fmt.Errorf("activate terminal: %w", err)
	}
	return t, nil
}

func (r *PostgresRegistry) Status(ctx context.Context, id string) (Terminal, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	t, err := scanTerminal(r.pool.QueryRow(ctx,
		`SELECT `+terminalColumns+` FROM terminals WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Terminal{}, ErrNotFound
		}
		return Terminal{}, fmt.Errorf("get terminal: %w", err)
	}
	if !t.Active {
		return t, ErrDeactivated
	}
	return t, nil
}

func (r *PostgresRegistry) Register(ctx context.Context, t Terminal, token string) error {
	if t.ID == "" || token == "" {
		return fmt.Errorf("terminal ID and token are required")
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO terminals (id, token_hash, school_name, class_name, teacher_name, active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE
		 SET token_hash = EXCLUDED.token_hash,
		     school_name = EXCLUDED.school_name,
		     class_name = EXCLUDED.class_name,
		     teacher_name = EXCLUDED.teacher_name`,
		t.ID,
		HashToken(token),
		t.Info.SchoolName,
		t.Info.ClassName,
		t.Info.TeacherName,
		t.Active,
	)
	if err != nil {
		return fmt.Errorf("register terminal: %w", err)
	}
	return nil
}

func (r *PostgresRegistry) SetActive(ctx context.Context, id string, active bool) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := r.pool.Exec(ctx, `UPDATE terminals SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("set terminal active: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRegistry) List(ctx context.Context) ([]Terminal, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `SELECT `+terminalColumns+` FROM terminals ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query terminals: %w", err)
	}
	defer rows.Close()

	var out []Terminal
	for rows.Next() {
		t, err := scanTerminal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan terminal: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate terminals: %w", err)
	}
	return out, nil
}
