// Package completion implements the completion-entry workflow: recording
// performed maintenance, advancing equipment cycle dates, and closing the
// matching schedule entry. It is the only writer of equipment cycle dates;
// the generation engine reads them and never mutates them.
package completion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"

	"github.com/plantops/pmsched/internal/database"
	"github.com/plantops/pmsched/internal/events"
	"github.com/plantops/pmsched/internal/metrics"
	"github.com/plantops/pmsched/internal/pm"
	"github.com/plantops/pmsched/internal/store"
)

// notesPolicy strips all markup from free-text notes.
var notesPolicy = bluemonday.StrictPolicy()

// ValidationError reports a rejected completion input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Input is one reported completion. CompletedOn defaults to today when
// zero. Category accepts the interchange spellings ("Monthly", "Six
// Month", "Annual").
type Input struct {
	Equipment    string    `json:"equipment"`
	Category     string    `json:"category"`
	Technician   string    `json:"technician"`
	CompletedOn  time.Time `json:"completed_on,omitempty"`
	LaborMinutes int       `json:"labor_minutes,omitempty"`
	Notes        string    `json:"notes,omitempty"`
}

// Recorded is the outcome of a successful Record call.
type Recorded struct {
	Completion  *pm.Completion `json:"completion"`
	NextDue     time.Time      `json:"next_due"`
	EntryClosed bool           `json:"entry_closed"`
}

// Service coordinates the completion transaction.
type Service struct {
	db     *database.DB
	stores *store.Stores
	bus    *events.Bus
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithBus publishes each recorded completion to the event feed.
func WithBus(bus *events.Bus) Option {
	return func(s *Service) {
		s.bus = bus
	}
}

// NewService builds the completion workflow over the store bundle.
func NewService(db *database.DB, stores *store.Stores, opts ...Option) *Service {
	s := &Service{
		db:     db,
		stores: stores,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record validates and persists one completion. In a single transaction it
// appends the history row, advances the equipment's cycle dates for the
// category, and marks the oldest matching Scheduled entry Completed when
// one exists. Unknown equipment surfaces as store.ErrNotFound; bad input as
// a ValidationError. On any failure nothing is written.
//
// The next due date moves to completion date plus the nominal interval;
// Annual work additionally gets the per-equipment spread offset so whole
// cohorts completed together do not fall due together a year later.
func (s *Service) Record(ctx context.Context, in Input) (*Recorded, error) {
	number := strings.TrimSpace(in.Equipment)
	if number == "" {
		return nil, &ValidationError{Field: "equipment", Message: "required"}
	}

	cat, err := pm.ParseCategory(strings.TrimSpace(in.Category))
	if err != nil {
		return nil, &ValidationError{Field: "category", Message: err.Error()}
	}

	technician := strings.TrimSpace(in.Technician)
	if technician == "" {
		return nil, &ValidationError{Field: "technician", Message: "required"}
	}

	if in.LaborMinutes < 0 {
		return nil, &ValidationError{Field: "labor_minutes", Message: "must not be negative"}
	}

	today := pm.Midnight(s.now())
	completedOn := pm.Midnight(in.CompletedOn)
	if in.CompletedOn.IsZero() {
		completedOn = today
	}
	if completedOn.After(today) {
		return nil, &ValidationError{Field: "completed_on", Message: "must not be in the future"}
	}

	eq, err := s.stores.Equipment.Get(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("looking up equipment %s: %w", number, err)
	}
	if !eq.Applies(cat) {
		return nil, &ValidationError{
			Field:   "category",
			Message: fmt.Sprintf("%s maintenance is not enabled for %s", cat, number),
		}
	}

	var nextDue time.Time
	if cat == pm.CategoryAnnual {
		nextDue = pm.NextAnnualDue(number, completedOn)
	} else {
		nextDue = completedOn.AddDate(0, 0, cat.Interval())
	}

	completion := &pm.Completion{
		Equipment:    number,
		Category:     cat,
		Technician:   technician,
		CompletedOn:  completedOn,
		LaborMinutes: in.LaborMinutes,
		Notes:        strings.TrimSpace(notesPolicy.Sanitize(in.Notes)),
	}

	var entryClosed bool
	err = s.db.Transaction(ctx, func(tx *database.Tx) error {
		if err := s.stores.Completions.CreateTx(ctx, tx, completion); err != nil {
			return err
		}
		if err := s.stores.Equipment.SetCycleDatesTx(ctx, tx, number, cat, completedOn, nextDue); err != nil {
			return err
		}
		closed, err := s.stores.Schedules.MarkCompletedTx(ctx, tx, number, cat, completedOn)
		if err != nil {
			return err
		}
		entryClosed = closed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("recording completion for %s/%s: %w", number, cat, err)
	}

	metrics.RecordCompletion()
	log.Info().
		Str("equipment", number).
		Str("category", string(cat)).
		Str("technician", technician).
		Str("completed_on", pm.FormatDate(completedOn)).
		Str("next_due", pm.FormatDate(nextDue)).
		Bool("entry_closed", entryClosed).
		Msg("Completion recorded")

	rec := &Recorded{
		Completion:  completion,
		NextDue:     nextDue,
		EntryClosed: entryClosed,
	}
	if s.bus != nil {
		s.bus.Publish(ctx, events.TopicCompletionRecorded, rec)
	}
	return rec, nil
}
