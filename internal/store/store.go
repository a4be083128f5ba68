// Package store holds the SQL access layer for the scheduling tables. Each
// entity gets its own store over the shared database handle; the engine
// performs its bulk reads here and never queries per equipment item.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/plantops/pmsched/internal/database"
	"github.com/plantops/pmsched/internal/pm"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Stores bundles the entity stores over one database handle.
type Stores struct {
	Equipment   *EquipmentStore
	Completions *CompletionStore
	Schedules   *ScheduleStore
	Technicians *TechnicianStore
	Runs        *RunStore
}

// New builds the store bundle.
func New(db *database.DB) *Stores {
	return &Stores{
		Equipment:   NewEquipmentStore(db),
		Completions: NewCompletionStore(db),
		Schedules:   NewScheduleStore(db),
		Technicians: NewTechnicianStore(db),
		Runs:        NewRunStore(db),
	}
}

// fmtDate renders a civil date column value.
func fmtDate(t time.Time) string {
	return pm.FormatDate(t)
}

// nullDate renders an optional civil date column value.
func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return pm.FormatDate(*t)
}

// scanDate parses a required civil date column.
func scanDate(s string) (time.Time, error) {
	t, err := pm.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("scanning date: %w", err)
	}
	return t, nil
}

// scanNullDate parses an optional civil date column.
func scanNullDate(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := pm.ParseDate(ns.String)
	if err != nil {
		return nil, fmt.Errorf("scanning date: %w", err)
	}
	return &t, nil
}
