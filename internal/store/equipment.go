package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/plantops/pmsched/internal/database"
	"github.com/plantops/pmsched/internal/pm"
)

// EquipmentStore reads and writes the equipment catalog. The engine only
// reads it; the completion workflow advances the cycle dates.
type EquipmentStore struct {
	db *database.DB
}

func NewEquipmentStore(db *database.DB) *EquipmentStore {
	return &EquipmentStore{db: db}
}

const equipmentColumns = `equipment_no, description, location, status,
	monthly, six_month, annual,
	last_monthly, next_monthly, last_six_month, next_six_month, last_annual, next_annual`

// Upsert inserts or replaces a catalog record. Catalog maintenance is an
// external concern; this exists for imports and fixtures.
func (s *EquipmentStore) Upsert(ctx context.Context, eq *pm.Equipment) error {
	query := `
		INSERT INTO equipment (` + equipmentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(equipment_no) DO UPDATE SET
			description = excluded.description,
			location = excluded.location,
			status = excluded.status,
			monthly = excluded.monthly,
			six_month = excluded.six_month,
			annual = excluded.annual,
			last_monthly = excluded.last_monthly,
			next_monthly = excluded.next_monthly,
			last_six_month = excluded.last_six_month,
			next_six_month = excluded.next_six_month,
			last_annual = excluded.last_annual,
			next_annual = excluded.next_annual,
			updated_at = datetime('now')
	`

	_, err := s.db.ExecContext(ctx, query,
		eq.Number, eq.Description, eq.Location, eq.Status,
		eq.Monthly, eq.SixMonth, eq.Annual,
		nullDate(eq.LastMonthly), nullDate(eq.NextMonthly),
		nullDate(eq.LastSixMonth), nullDate(eq.NextSixMonth),
		nullDate(eq.LastAnnual), nullDate(eq.NextAnnual),
	)
	if err != nil {
		return fmt.Errorf("upserting equipment %s: %w", eq.Number, database.ClassifyError(err))
	}

	return nil
}

// Get fetches one catalog record by equipment number.
func (s *EquipmentStore) Get(ctx context.Context, number string) (*pm.Equipment, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipment WHERE equipment_no = ?`

	eq, err := scanEquipment(s.db.QueryRowContext(ctx, query, number))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting equipment %s: %w", number, err)
	}

	return eq, nil
}

// List returns the whole catalog ordered by equipment number. Status
// filtering belongs to the eligibility rules, not the query.
func (s *EquipmentStore) List(ctx context.Context) ([]pm.Equipment, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipment ORDER BY equipment_no`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing equipment: %w", err)
	}
	defer rows.Close()

	var result []pm.Equipment
	for rows.Next() {
		eq, err := scanEquipment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning equipment: %w", err)
		}
		result = append(result, *eq)
	}

	return result, rows.Err()
}

// SetCycleDatesTx updates one category's last/next dates inside an open
// transaction. Only the completion workflow calls this.
func (s *EquipmentStore) SetCycleDatesTx(ctx context.Context, tx *database.Tx, number string, cat pm.Category, last, next time.Time) error {
	var lastCol, nextCol string
	switch cat {
	case pm.CategoryMonthly:
		lastCol, nextCol = "last_monthly", "next_monthly"
	case pm.CategorySixMonth:
		lastCol, nextCol = "last_six_month", "next_six_month"
	case pm.CategoryAnnual:
		lastCol, nextCol = "last_annual", "next_annual"
	default:
		return fmt.Errorf("unknown category %q", cat)
	}

	query := fmt.Sprintf(`
		UPDATE equipment
		SET %s = ?, %s = ?, updated_at = datetime('now')
		WHERE equipment_no = ?
	`, lastCol, nextCol)

	res, err := tx.ExecContext(ctx, query, fmtDate(last), fmtDate(next), number)
	if err != nil {
		return fmt.Errorf("updating cycle dates for %s: %w", number, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEquipment(row rowScanner) (*pm.Equipment, error) {
	var eq pm.Equipment
	var lastMonthly, nextMonthly, lastSixMonth, nextSixMonth, lastAnnual, nextAnnual sql.NullString

	err := row.Scan(
		&eq.Number, &eq.Description, &eq.Location, &eq.Status,
		&eq.Monthly, &eq.SixMonth, &eq.Annual,
		&lastMonthly, &nextMonthly, &lastSixMonth, &nextSixMonth, &lastAnnual, &nextAnnual,
	)
	if err != nil {
		return nil, err
	}

	for _, pair := range []struct {
		src sql.NullString
		dst **time.Time
	}{
		{lastMonthly, &eq.LastMonthly},
		{nextMonthly, &eq.NextMonthly},
		{lastSixMonth, &eq.LastSixMonth},
		{nextSixMonth, &eq.NextSixMonth},
		{lastAnnual, &eq.LastAnnual},
		{nextAnnual, &eq.NextAnnual},
	} {
		t, err := scanNullDate(pair.src)
		if err != nil {
			return nil, err
		}
		*pair.dst = t
	}

	return &eq, nil
}
