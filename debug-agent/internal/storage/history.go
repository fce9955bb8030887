package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

var ErrRunNotFound = errors.New("run not found")

const defaultListLimit = 50

// Run is one recorded workflow invocation.
type Run struct {
	ID         string    `json:"id"`
	Query      string    `json:"query"`
	Answer     string    `json:"answer"`
	Iterations int       `json:"iterations"`
	Validated  bool      `json:"validated"`
	LastError  string    `json:"last_error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// History persists runs in Postgres.
type History struct {
	db *sql.DB
}

// OpenHistory connects with lib/pq and creates the runs table.
func OpenHistory(ctx context.Context, url string) (*History, error) {
	if url == "" {
		url = DefaultPostgresURL
	}
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging history database: %w", err)
	}
	h := NewHistory(db)
	if err := h.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

func NewHistory(db *sql.DB) *History {
	return &History{db: db}
}

func (h *History) Migrate(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		id UUID PRIMARY KEY,
		query TEXT NOT NULL,
		answer TEXT NOT NULL,
		iterations INTEGER NOT NULL,
		validated BOOLEAN NOT NULL,
		last_error TEXT NOT NULL DEFAULT '',
		duration_ms BIGINT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`
	if _, err := h.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("creating runs table: %w", err)
	}
	return nil
}

// Record stores run, assigning its ID and creation time.
func (h *History) Record(ctx context.Context, run Run) (Run, error) {
	run.ID = uuid.NewString()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO runs (id, query, answer, iterations, validated, last_error, duration_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.Query, run.Answer, run.Iterations, run.Validated, run.LastError,
		run.DurationMS, run.CreatedAt)
	if err != nil {
		return Run{}, fmt.Errorf("recording run: %w", err)
	}
	return run, nil
}

func (h *History) Get(ctx context.Context, id string) (Run, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Run{}, ErrRunNotFound
	}
	row := h.db.QueryRowContext(ctx,
		`SELECT id, query, answer, iterations, validated, last_error, duration_ms, created_at
		 FROM runs WHERE id = $1`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("loading run %s: %w", id, err)
	}
	return run, nil
}

// List returns the newest runs first.
func (h *History) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, query, answer, iterations, validated, last_error, duration_ms, created_at
		 FROM runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (h *History) Ping(ctx context.Context) error {
	return h.db.PingContext(ctx)
}

func (h *History) Close() error {
	return h.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var run Run
	err := s.Scan(&run.ID, &run.Query, &run.Answer, &run.Iterations, &run.Validated,
		&run.LastError, &run.DurationMS, &run.CreatedAt)
	return run, err
}
