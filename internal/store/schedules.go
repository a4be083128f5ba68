package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/plantops/pmsched/internal/database"
	"github.com/plantops/pmsched/internal/pm"
)

// ScheduleStore reads and writes weekly schedule entries. ReplaceWeek is
// the engine's single write path.
type ScheduleStore struct {
	db *database.DB
}

func NewScheduleStore(db *database.DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

// ReplaceWeek atomically swaps the still-Scheduled entries of a week for
// the new set. Completed entries are never touched. On any failure the
// transaction rolls back and the prior schedule stays intact. Returns the
// number of entries created.
func (s *ScheduleStore) ReplaceWeek(ctx context.Context, week time.Time, entries []pm.ScheduleEntry) (int, error) {
	week = pm.Midnight(week)
	created := 0

	err := s.db.Transaction(ctx, func(tx *database.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM schedule_entries WHERE week_start = ? AND status = ?
		`, fmtDate(week), string(pm.EntryScheduled)); err != nil {
			return fmt.Errorf("clearing scheduled entries: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO schedule_entries (week_start, equipment_no, category, technician, scheduled_on, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		now := database.Now()
		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx,
				fmtDate(week), e.Equipment, string(e.Category), e.Technician,
				fmtDate(e.ScheduledOn), string(e.Status), now,
			); err != nil {
				return fmt.Errorf("inserting entry for %s/%s: %w", e.Equipment, e.Category, database.ClassifyError(err))
			}
			created++
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return created, nil
}

// ListWeek returns every entry for the week, both Scheduled and Completed,
// in a stable order.
func (s *ScheduleStore) ListWeek(ctx context.Context, week time.Time) ([]pm.ScheduleEntry, error) {
	query := `
		SELECT id, week_start, equipment_no, category, technician, scheduled_on, status, completed_on
		FROM schedule_entries
		WHERE week_start = ?
		ORDER BY scheduled_on, technician, equipment_no, category
	`

	rows, err := s.db.QueryContext(ctx, query, fmtDate(pm.Midnight(week)))
	if err != nil {
		return nil, fmt.Errorf("listing week %s: %w", pm.FormatDate(week), err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListPendingSince returns Scheduled entries from any week whose scheduled
// date falls on or after the cutoff. These still count as in flight for
// duplicate suppression.
func (s *ScheduleStore) ListPendingSince(ctx context.Context, cutoff time.Time) ([]pm.ScheduleEntry, error) {
	query := `
		SELECT id, week_start, equipment_no, category, technician, scheduled_on, status, completed_on
		FROM schedule_entries
		WHERE status = ? AND scheduled_on >= ?
		ORDER BY scheduled_on, id
	`

	rows, err := s.db.QueryContext(ctx, query, string(pm.EntryScheduled), fmtDate(cutoff))
	if err != nil {
		return nil, fmt.Errorf("listing pending entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// MarkCompletedTx marks the oldest matching Scheduled entry Completed
// inside an open transaction. Returns false when no entry matched, which
// is fine: completions arrive for unscheduled work too.
func (s *ScheduleStore) MarkCompletedTx(ctx context.Context, tx *database.Tx, equipment string, cat pm.Category, completedOn time.Time) (bool, error) {
	query := `
		UPDATE schedule_entries
		SET status = ?, completed_on = ?
		WHERE id = (
			SELECT id FROM schedule_entries
			WHERE equipment_no = ? AND category = ? AND status = ?
			ORDER BY week_start, id
			LIMIT 1
		)
	`

	res, err := tx.ExecContext(ctx, query,
		string(pm.EntryCompleted), fmtDate(completedOn),
		equipment, string(cat), string(pm.EntryScheduled),
	)
	if err != nil {
		return false, fmt.Errorf("marking entry completed: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}

	return n > 0, nil
}

func scanEntries(rows *sql.Rows) ([]pm.ScheduleEntry, error) {
	var result []pm.ScheduleEntry
	for rows.Next() {
		var e pm.ScheduleEntry
		var weekStart, cat, scheduledOn, status string
		var completedOn sql.NullString

		if err := rows.Scan(&e.ID, &weekStart, &e.Equipment, &cat, &e.Technician, &scheduledOn, &status, &completedOn); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}

		var err error
		if e.WeekStart, err = scanDate(weekStart); err != nil {
			return nil, err
		}
		if e.ScheduledOn, err = scanDate(scheduledOn); err != nil {
			return nil, err
		}
		if e.CompletedOn, err = scanNullDate(completedOn); err != nil {
			return nil, err
		}
		e.Category = pm.Category(cat)
		e.Status = pm.EntryStatus(status)

		result = append(result, e)
	}

	return result, rows.Err()
}
