package store

import (
	"context"
	"fmt"

	"github.com/plantops/pmsched/internal/database"
	"github.com/plantops/pmsched/internal/pm"
)

// TechnicianStore manages the assignment roster. Roster order is
// sort_order then name, and assignment tie-breaks follow it.
type TechnicianStore struct {
	db *database.DB
}

func NewTechnicianStore(db *database.DB) *TechnicianStore {
	return &TechnicianStore{db: db}
}

// Upsert inserts a technician or updates their active flag and position,
// filling t.ID either way.
func (s *TechnicianStore) Upsert(ctx context.Context, t *pm.Technician) error {
	query := `
		INSERT INTO technicians (name, active, sort_order)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			active = excluded.active,
			sort_order = excluded.sort_order
		RETURNING id
	`

	if err := s.db.QueryRowContext(ctx, query, t.Name, t.Active, t.SortOrder).Scan(&t.ID); err != nil {
		return fmt.Errorf("upserting technician %s: %w", t.Name, database.ClassifyError(err))
	}

	return nil
}

// List returns the roster in assignment order. With activeOnly set it
// returns only technicians available for scheduling.
func (s *TechnicianStore) List(ctx context.Context, activeOnly bool) ([]pm.Technician, error) {
	query := `SELECT id, name, active, sort_order FROM technicians`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY sort_order, name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing technicians: %w", err)
	}
	defer rows.Close()

	var result []pm.Technician
	for rows.Next() {
		var t pm.Technician
		if err := rows.Scan(&t.ID, &t.Name, &t.Active, &t.SortOrder); err != nil {
			return nil, fmt.Errorf("scanning technician: %w", err)
		}
		result = append(result, t)
	}

	return result, rows.Err()
}
