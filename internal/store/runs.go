package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/plantops/pmsched/internal/database"
	"github.com/plantops/pmsched/internal/pm"
)

// Run statuses. A run that produced no work because the roster was
// empty is recorded, not errored.
const (
	RunCompleted     = "completed"
	RunNoTechnicians = "no_technicians"
	RunFailed        = "failed"
)

// Run is one recorded generation run. Summary holds the full JSON
// summary the engine produced; the scalar columns back listing queries.
type Run struct {
	ID           string          `json:"id"`
	WeekStart    time.Time       `json:"week_start"`
	Status       string          `json:"status"`
	CreatedCount int             `json:"created_count"`
	Summary      json.RawMessage `json:"summary,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
}

// RunStore records generation runs for reporting.
type RunStore struct {
	db *database.DB
}

func NewRunStore(db *database.DB) *RunStore {
	return &RunStore{db: db}
}

// Create inserts a finished run record.
func (s *RunStore) Create(ctx context.Context, r *Run) error {
	query := `
		INSERT INTO runs (id, week_start, status, created_count, summary, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	summary := r.Summary
	if len(summary) == 0 {
		summary = json.RawMessage(`{}`)
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ID,
		fmtDate(r.WeekStart),
		r.Status,
		r.CreatedCount,
		string(summary),
		r.StartedAt.UTC().Format(time.RFC3339),
		formatFinished(r.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", r.ID, database.ClassifyError(err))
	}

	return nil
}

// Get retrieves a run by ID.
func (s *RunStore) Get(ctx context.Context, id string) (*Run, error) {
	query := `
		SELECT id, week_start, status, created_count, summary, started_at, finished_at
		FROM runs
		WHERE id = ?
	`

	r, err := scanRun(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying run %s: %w", id, err)
	}

	return r, nil
}

// List retrieves the most recent runs, newest first. A week filter
// narrows to runs for that week; limit <= 0 means no limit.
func (s *RunStore) List(ctx context.Context, week *time.Time, limit int) ([]*Run, error) {
	query := `
		SELECT id, week_start, status, created_count, summary, started_at, finished_at
		FROM runs
	`
	args := []any{}

	if week != nil {
		query += ` WHERE week_start = ?`
		args = append(args, fmtDate(*week))
	}

	query += ` ORDER BY started_at DESC, id DESC`

	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	return runs, nil
}

// DeleteOlderThan trims run history past the retention window.
func (s *RunStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM runs WHERE started_at < ?`

	result, err := s.db.ExecContext(ctx, query, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("deleting old runs: %w", err)
	}

	return result.RowsAffected()
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var weekStr, startedStr, finishedStr string
	var summary string

	if err := row.Scan(&r.ID, &weekStr, &r.Status, &r.CreatedCount, &summary, &startedStr, &finishedStr); err != nil {
		return nil, err
	}

	week, err := pm.ParseDate(weekStr)
	if err != nil {
		return nil, fmt.Errorf("parsing week_start: %w", err)
	}
	r.WeekStart = week

	started, err := time.Parse(time.RFC3339, startedStr)
	if err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	r.StartedAt = started

	if finishedStr != "" {
		finished, err := time.Parse(time.RFC3339, finishedStr)
		if err != nil {
			return nil, fmt.Errorf("parsing finished_at: %w", err)
		}
		r.FinishedAt = finished
	}

	r.Summary = json.RawMessage(summary)
	return &r, nil
}

func formatFinished(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
