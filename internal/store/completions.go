package store

import (
	"context"
	"fmt"
	"time"

	"github.com/plantops/pmsched/internal/database"
	"github.com/plantops/pmsched/internal/pm"
)

// CompletionStore reads the append-only completion history.
type CompletionStore struct {
	db *database.DB
}

func NewCompletionStore(db *database.DB) *CompletionStore {
	return &CompletionStore{db: db}
}

// CreateTx appends a completion record inside an open transaction and
// fills in the generated id.
func (s *CompletionStore) CreateTx(ctx context.Context, tx *database.Tx, c *pm.Completion) error {
	query := `
		INSERT INTO completions (equipment_no, category, technician, completed_on, labor_minutes, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	res, err := tx.ExecContext(ctx, query,
		c.Equipment, string(c.Category), c.Technician,
		fmtDate(c.CompletedOn), c.LaborMinutes, c.Notes, database.Now(),
	)
	if err != nil {
		return fmt.Errorf("inserting completion: %w", database.ClassifyError(err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading completion id: %w", err)
	}
	c.ID = id

	return nil
}

// ListSince returns completions on or after the cutoff date, oldest first.
// The engine reads history only as far back as the widest duplicate window.
func (s *CompletionStore) ListSince(ctx context.Context, cutoff time.Time) ([]pm.Completion, error) {
	query := `
		SELECT id, equipment_no, category, technician, completed_on, labor_minutes, notes
		FROM completions
		WHERE completed_on >= ?
		ORDER BY completed_on, id
	`

	rows, err := s.db.QueryContext(ctx, query, fmtDate(cutoff))
	if err != nil {
		return nil, fmt.Errorf("listing completions: %w", err)
	}
	defer rows.Close()

	var result []pm.Completion
	for rows.Next() {
		var c pm.Completion
		var cat, completedOn string
		if err := rows.Scan(&c.ID, &c.Equipment, &cat, &c.Technician, &completedOn, &c.LaborMinutes, &c.Notes); err != nil {
			return nil, fmt.Errorf("scanning completion: %w", err)
		}
		c.Category = pm.Category(cat)
		if c.CompletedOn, err = scanDate(completedOn); err != nil {
			return nil, err
		}
		result = append(result, c)
	}

	return result, rows.Err()
}

// ListForEquipment returns the full history for one equipment number,
// newest first.
func (s *CompletionStore) ListForEquipment(ctx context.Context, number string) ([]pm.Completion, error) {
	query := `
		SELECT id, equipment_no, category, technician, completed_on, labor_minutes, notes
		FROM completions
		WHERE equipment_no = ?
		ORDER BY completed_on DESC, id DESC
	`

	rows, err := s.db.QueryContext(ctx, query, number)
	if err != nil {
		return nil, fmt.Errorf("listing completions for %s: %w", number, err)
	}
	defer rows.Close()

	var result []pm.Completion
	for rows.Next() {
		var c pm.Completion
		var cat, completedOn string
		if err := rows.Scan(&c.ID, &c.Equipment, &cat, &c.Technician, &completedOn, &c.LaborMinutes, &c.Notes); err != nil {
			return nil, fmt.Errorf("scanning completion: %w", err)
		}
		c.Category = pm.Category(cat)
		if c.CompletedOn, err = scanDate(completedOn); err != nil {
			return nil, err
		}
		result = append(result, c)
	}

	return result, rows.Err()
}
