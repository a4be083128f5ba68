package engine

import (
	"time"

	"github.com/plantops/pmsched/internal/pm"
)

// Request describes one generation run.
type Request struct {
	// Week is the target week's Monday.
	Week time.Time `json:"week"`

	// WeeklyTarget overrides the configured entry ceiling when positive.
	WeeklyTarget int `json:"weekly_target,omitempty"`

	// Exclusions names technicians to leave out of this run's pool.
	Exclusions []string `json:"exclusions,omitempty"`

	// DryRun evaluates and assigns without committing anything.
	DryRun bool `json:"dry_run,omitempty"`
}

// Result is the outcome of one generation run. Status no_technicians is a
// diagnostic outcome, not an error: the run completed but could place
// nothing.
type Result struct {
	RunID      string             `json:"run_id"`
	Week       time.Time          `json:"week"`
	Status     string             `json:"status"`
	Created    int                `json:"created"`
	Entries    []pm.ScheduleEntry `json:"entries,omitempty"`
	Summary    RunSummary         `json:"summary"`
	DryRun     bool               `json:"dry_run,omitempty"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
}

// RunSummary aggregates what happened during a run for reporting: entries
// per technician, skips per ineligibility reason, and the eligible work
// that did not fit under the weekly target.
type RunSummary struct {
	Week          string                `json:"week"`
	Status        string                `json:"status"`
	Candidates    int                   `json:"candidates"`
	Created       int                   `json:"created"`
	PerTechnician map[string]int        `json:"per_technician,omitempty"`
	Skipped       map[pm.ReasonCode]int `json:"skipped,omitempty"`
	Overflow      []pm.Candidate        `json:"overflow,omitempty"`
	Roster        []string              `json:"roster,omitempty"`
	Excluded      []string              `json:"excluded,omitempty"`
	DryRun        bool                  `json:"dry_run,omitempty"`
	Error         string                `json:"error,omitempty"`
}
