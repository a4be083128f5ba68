// Package pm holds the preventive-maintenance domain model and the pure
// scheduling primitives: eligibility evaluation, candidate ranking, load
// balancing, and the annual due-date spreader. Nothing in this package
// touches the database; callers assemble an Index from bulk reads and pass
// it through the pipeline.
package pm

import (
	"fmt"
	"time"
)

// Category is a maintenance cycle type.
type Category string

const (
	CategoryMonthly  Category = "Monthly"
	CategorySixMonth Category = "SixMonth"
	CategoryAnnual   Category = "Annual"
)

// Categories lists all cycle types in evaluation order. Annual is evaluated
// first so the cross-category suppression rule is settled before the shorter
// cycles are considered.
var Categories = []Category{CategoryAnnual, CategorySixMonth, CategoryMonthly}

// Interval returns the nominal recurrence interval in days.
func (c Category) Interval() int {
	switch c {
	case CategoryMonthly:
		return 30
	case CategorySixMonth:
		return 180
	case CategoryAnnual:
		return 365
	}
	return 0
}

// MinRecurrence returns the duplicate-detection window in days. It is
// intentionally shorter than the nominal interval so an early completion
// does not read as a false duplicate.
func (c Category) MinRecurrence() int {
	switch c {
	case CategoryMonthly:
		return 25
	case CategorySixMonth:
		return 150
	case CategoryAnnual:
		return 300
	}
	return 0
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryMonthly, CategorySixMonth, CategoryAnnual:
		return true
	}
	return false
}

// ParseCategory normalizes external category spellings ("Six Month",
// "six-month") to a Category.
func ParseCategory(s string) (Category, error) {
	switch s {
	case "Monthly", "monthly":
		return CategoryMonthly, nil
	case "SixMonth", "Six Month", "six month", "six-month", "sixmonth":
		return CategorySixMonth, nil
	case "Annual", "annual":
		return CategoryAnnual, nil
	}
	return "", fmt.Errorf("unknown maintenance category %q", s)
}

// Equipment statuses. Anything other than Active is withheld from
// scheduling entirely.
const (
	StatusActive       = "Active"
	StatusMissing      = "Missing"
	StatusRunToFailure = "Run to Failure"
	StatusCannotFind   = "Cannot Find"
)

// Equipment is one catalog item with its per-category cycle state.
type Equipment struct {
	Number      string `json:"number"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	Status      string `json:"status"`

	Monthly  bool `json:"monthly"`
	SixMonth bool `json:"six_month"`
	Annual   bool `json:"annual"`

	LastMonthly  *time.Time `json:"last_monthly,omitempty"`
	NextMonthly  *time.Time `json:"next_monthly,omitempty"`
	LastSixMonth *time.Time `json:"last_six_month,omitempty"`
	NextSixMonth *time.Time `json:"next_six_month,omitempty"`
	LastAnnual   *time.Time `json:"last_annual,omitempty"`
	NextAnnual   *time.Time `json:"next_annual,omitempty"`
}

// Applies reports whether the category is enabled for this equipment.
func (e *Equipment) Applies(c Category) bool {
	switch c {
	case CategoryMonthly:
		return e.Monthly
	case CategorySixMonth:
		return e.SixMonth
	case CategoryAnnual:
		return e.Annual
	}
	return false
}

// NextDue returns the recorded next-due date for the category, or nil when
// the equipment has never been completed for it.
func (e *Equipment) NextDue(c Category) *time.Time {
	switch c {
	case CategoryMonthly:
		return e.NextMonthly
	case CategorySixMonth:
		return e.NextSixMonth
	case CategoryAnnual:
		return e.NextAnnual
	}
	return nil
}

// Schedulable reports whether the equipment status permits scheduling at all.
func (e *Equipment) Schedulable() bool {
	return e.Status == StatusActive
}

// Completion is an immutable historical record of performed maintenance.
type Completion struct {
	ID           int64     `json:"id"`
	Equipment    string    `json:"equipment"`
	Category     Category  `json:"category"`
	Technician   string    `json:"technician"`
	CompletedOn  time.Time `json:"completed_on"`
	LaborMinutes int       `json:"labor_minutes,omitempty"`
	Notes        string    `json:"notes,omitempty"`
}

// EntryStatus is the lifecycle state of a schedule entry.
type EntryStatus string

const (
	EntryScheduled EntryStatus = "Scheduled"
	EntryCompleted EntryStatus = "Completed"
)

// ScheduleEntry is one assignment in a weekly schedule.
type ScheduleEntry struct {
	ID          int64       `json:"id"`
	WeekStart   time.Time   `json:"week_start"`
	Equipment   string      `json:"equipment"`
	Category    Category    `json:"category"`
	Technician  string      `json:"technician"`
	ScheduledOn time.Time   `json:"scheduled_on"`
	Status      EntryStatus `json:"status"`
	CompletedOn *time.Time  `json:"completed_on,omitempty"`
}

// Technician is one member of the assignment roster.
type Technician struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	SortOrder int    `json:"sort_order"`
}

// ReasonCode explains why an equipment/category pair was not scheduled.
// Ineligibility is an expected outcome, not an error.
type ReasonCode string

const (
	ReasonNotApplicable     ReasonCode = "not-applicable"
	ReasonExcludedStatus    ReasonCode = "excluded-status"
	ReasonRecentlyCompleted ReasonCode = "recently-completed"
	ReasonAlreadyPending    ReasonCode = "already-pending"
	ReasonAnnualConflict    ReasonCode = "annual-conflict"
	ReasonNotYetDue         ReasonCode = "not-yet-due"
	ReasonFiltered          ReasonCode = "filtered"
)

// DefaultTier is the priority tier assigned to equipment that appears on no
// priority list. Explicit tiers count from 1 and always rank above it.
const DefaultTier = 99

// Candidate is an eligible equipment/category pair awaiting ranking and
// assignment.
type Candidate struct {
	Equipment   string   `json:"equipment"`
	Category    Category `json:"category"`
	Tier        int      `json:"tier"`
	OverdueDays int      `json:"overdue_days"`
}
