package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore keeps each student as one JSONB document in student_progress.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed progress store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Load(ctx context.Context, terminalID, studentName string) (*StudentProgress, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT doc FROM student_progress WHERE key = $1`,
		Key(terminalID, studentName),
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load progress: %w", err)
	}

	var p StudentProgress
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	return &p, nil
}

// Save upserts the payload. Top-level keys of the stored document not present
// in the payload survive the JSONB concatenation.
func (s *PostgresStore) Save(ctx context.Context, terminalID, studentName string, p StudentProgress) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	doc, err := json.Marshal(p.document())
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO student_progress (key, terminal_id, student_name, doc, updated_at)
		 VALUES ($1, $2, $3, $4::jsonb, NOW())
		 ON CONFLICT (key) DO UPDATE
		 SET doc = student_progress.doc || EXCLUDED.doc,
		     student_name = EXCLUDED.student_name,
		     updated_at = EXCLUDED.updated_at`,
		Key(terminalID, studentName),
		terminalID,
		studentName,
		string(doc),
	)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, terminalID string) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT student_name, doc, updated_at
		 FROM student_progress
		 WHERE terminal_id = $1
		 ORDER BY lower(student_name) ASC`,
		terminalID,
	)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec := Record{TerminalID: terminalID}
		var doc []byte
		if err := rows.Scan(&rec.StudentName, &doc, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		if err := json.Unmarshal(doc, &rec.Progress); err != nil {
			return nil, fmt.Errorf("decode progress for %s: %w", rec.StudentName, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return out, nil
}
