// Package engine drives weekly schedule generation: one bulk snapshot of
// catalog, history, and roster in, one transactionally committed set of
// schedule entries out.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/plantops/pmsched/internal/config"
	"github.com/plantops/pmsched/internal/metrics"
	"github.com/plantops/pmsched/internal/pm"
	"github.com/plantops/pmsched/internal/store"
)

// ErrInvalidWeek is returned when the requested week is not a Monday.
var ErrInvalidWeek = errors.New("target week must be a Monday")

// ErrWeekBusy is returned when another run is already generating the same
// week.
var ErrWeekBusy = errors.New("week generation already in progress")

// TierSource supplies the current priority tiers keyed by equipment
// number. Lower tier numbers rank first.
type TierSource interface {
	Tiers() map[string]int
}

// StaticTiers adapts a fixed map as a TierSource.
type StaticTiers map[string]int

func (s StaticTiers) Tiers() map[string]int { return s }

// RunHook observes committed generation runs. Hooks run synchronously
// after the run record is persisted; dry runs never reach them.
type RunHook interface {
	RunCompleted(ctx context.Context, result *Result)
}

// Engine generates weekly schedules. It carries no state between runs
// beyond the per-week locks that serialize concurrent generation of the
// same week.
type Engine struct {
	stores  *store.Stores
	cfg     config.SchedulingConfig
	filters *pm.FilterSet
	tiers   TierSource
	hooks   []RunHook
	now     func() time.Time

	mu    sync.Mutex
	weeks map[string]*sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithTierSource sets the priority tier provider.
func WithTierSource(ts TierSource) Option {
	return func(e *Engine) {
		e.tiers = ts
	}
}

// WithFilters sets the operator veto filter set.
func WithFilters(fs *pm.FilterSet) Option {
	return func(e *Engine) {
		e.filters = fs
	}
}

// WithHooks appends run hooks.
func WithHooks(hooks ...RunHook) Option {
	return func(e *Engine) {
		e.hooks = append(e.hooks, hooks...)
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New builds an Engine over the store bundle.
func New(stores *store.Stores, cfg config.SchedulingConfig, opts ...Option) *Engine {
	e := &Engine{
		stores: stores,
		cfg:    cfg,
		now:    time.Now,
		weeks:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Generate runs the full pipeline for one week: bulk reads, eligibility,
// ranking, assignment, and the transactional commit. Eligibility windows
// are measured from the week's Monday, so running on the Friday before or
// re-running mid-week produces the same schedule from the same inputs.
//
// Re-running for a week replaces its still-Scheduled entries and never
// touches Completed ones. A second call for a week that is already
// generating fails fast with ErrWeekBusy; different weeks run
// independently.
func (e *Engine) Generate(ctx context.Context, req Request) (*Result, error) {
	week := pm.Midnight(req.Week)
	if !pm.IsMonday(week) {
		return nil, fmt.Errorf("%w: %s is a %s", ErrInvalidWeek, pm.FormatDate(week), week.Weekday())
	}

	unlock, ok := e.lockWeek(week)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWeekBusy, pm.FormatDate(week))
	}
	defer unlock()

	result := &Result{
		RunID:     uuid.NewString(),
		Week:      week,
		DryRun:    req.DryRun,
		StartedAt: e.now(),
	}

	err := e.run(ctx, req, week, result)
	result.FinishedAt = e.now()
	duration := result.FinishedAt.Sub(result.StartedAt)

	if err != nil {
		result.Status = store.RunFailed
		result.Summary.Status = store.RunFailed
		result.Summary.Error = err.Error()
		if !req.DryRun {
			e.record(ctx, result)
		}
		metrics.RecordRun(store.RunFailed, 0, duration)
		log.Error().Err(err).
			Str("run_id", result.RunID).
			Str("week", pm.FormatDate(week)).
			Msg("Generation run failed")
		return nil, err
	}

	if !req.DryRun {
		e.record(ctx, result)
		for _, h := range e.hooks {
			h.RunCompleted(ctx, result)
		}
	}

	metrics.RecordRun(result.Status, result.Created, duration)
	metrics.RecordSkips(reasonCounts(result.Summary.Skipped))
	metrics.RecordOverflow(len(result.Summary.Overflow))

	log.Info().
		Str("run_id", result.RunID).
		Str("week", pm.FormatDate(week)).
		Str("status", result.Status).
		Int("candidates", result.Summary.Candidates).
		Int("created", result.Created).
		Bool("dry_run", req.DryRun).
		Dur("duration", duration).
		Msg("Generation run finished")

	return result, nil
}

// run executes the pipeline and fills the result. It returns an error only
// for input or persistence failures; an empty roster is a diagnostic
// status, not an error.
func (e *Engine) run(ctx context.Context, req Request, week time.Time, result *Result) error {
	target := req.WeeklyTarget
	if target <= 0 {
		target = e.cfg.WeeklyTarget
	}

	// Bulk reads. Everything after this point works off the in-memory
	// snapshot; no per-equipment queries.
	equipment, err := e.stores.Equipment.List(ctx)
	if err != nil {
		return fmt.Errorf("loading equipment catalog: %w", err)
	}

	historyCutoff := week.AddDate(0, 0, -e.cfg.HistoryDays)
	completions, err := e.stores.Completions.ListSince(ctx, historyCutoff)
	if err != nil {
		return fmt.Errorf("loading completion history: %w", err)
	}

	pendingCutoff := week.AddDate(0, 0, -e.cfg.GraceDays)
	pendingAll, err := e.stores.Schedules.ListPendingSince(ctx, pendingCutoff)
	if err != nil {
		return fmt.Errorf("loading pending entries: %w", err)
	}
	// The target week's own Scheduled entries are about to be replaced;
	// only other weeks' entries count as in flight.
	pending := pendingAll[:0:0]
	for _, entry := range pendingAll {
		if !entry.WeekStart.Equal(week) {
			pending = append(pending, entry)
		}
	}

	weekEntries, err := e.stores.Schedules.ListWeek(ctx, week)
	if err != nil {
		return fmt.Errorf("loading week entries: %w", err)
	}
	survivors := weekEntries[:0:0]
	for _, entry := range weekEntries {
		if entry.Status == pm.EntryCompleted {
			survivors = append(survivors, entry)
		}
	}

	roster, err := e.stores.Technicians.List(ctx, true)
	if err != nil {
		return fmt.Errorf("loading technician roster: %w", err)
	}

	var tiers map[string]int
	if e.tiers != nil {
		tiers = e.tiers.Tiers()
	}

	idx := pm.NewIndex(pm.IndexInputs{
		AsOf:        week,
		Week:        week,
		Equipment:   equipment,
		Completions: completions,
		Pending:     pending,
		WeekEntries: survivors,
		Tiers:       tiers,
		Roster:      roster,
	})

	ev := pm.NewEvaluator(idx, pm.EvalOptions{
		LookaheadDays: e.cfg.LookaheadDays,
		GraceDays:     e.cfg.GraceDays,
		Filters:       e.filters,
	})
	candidates, skipped := ev.EvaluateAll()
	ranked := pm.Rank(candidates)

	effective := pm.EffectiveRoster(roster, req.Exclusions)

	result.Summary = RunSummary{
		Week:       pm.FormatDate(week),
		Candidates: len(ranked),
		Skipped:    skipped,
		Roster:     technicianNames(effective),
		Excluded:   req.Exclusions,
		DryRun:     req.DryRun,
	}

	if len(effective) == 0 {
		result.Status = store.RunNoTechnicians
		result.Summary.Status = store.RunNoTechnicians
		log.Warn().
			Str("week", pm.FormatDate(week)).
			Int("candidates", len(ranked)).
			Msg("No available technicians, nothing scheduled")
		return nil
	}

	entries, overflow := pm.Assign(ranked, effective, week, target, survivors)
	result.Entries = entries
	result.Summary.Overflow = overflow
	result.Summary.PerTechnician = perTechnician(entries)

	if req.DryRun {
		result.Created = len(entries)
	} else {
		created, err := e.stores.Schedules.ReplaceWeek(ctx, week, entries)
		if err != nil {
			return fmt.Errorf("committing schedule: %w", err)
		}
		result.Created = created
	}

	result.Status = store.RunCompleted
	result.Summary.Status = store.RunCompleted
	result.Summary.Created = result.Created
	return nil
}

// record persists the run for history. Failures here are logged, not
// fatal: the schedule itself already committed.
func (e *Engine) record(ctx context.Context, result *Result) {
	summary, err := json.Marshal(result.Summary)
	if err != nil {
		log.Warn().Err(err).Str("run_id", result.RunID).Msg("Failed to encode run summary")
		summary = []byte(`{}`)
	}

	run := &store.Run{
		ID:           result.RunID,
		WeekStart:    result.Week,
		Status:       result.Status,
		CreatedCount: result.Created,
		Summary:      summary,
		StartedAt:    result.StartedAt,
		FinishedAt:   result.FinishedAt,
	}
	if err := e.stores.Runs.Create(ctx, run); err != nil {
		log.Warn().Err(err).Str("run_id", result.RunID).Msg("Failed to record run")
	}
}

func (e *Engine) lockWeek(week time.Time) (func(), bool) {
	key := pm.FormatDate(week)

	e.mu.Lock()
	lock, ok := e.weeks[key]
	if !ok {
		lock = &sync.Mutex{}
		e.weeks[key] = lock
	}
	e.mu.Unlock()

	if !lock.TryLock() {
		return nil, false
	}
	return lock.Unlock, true
}

func technicianNames(roster []pm.Technician) []string {
	names := make([]string, len(roster))
	for i, t := range roster {
		names[i] = t.Name
	}
	return names
}

func perTechnician(entries []pm.ScheduleEntry) map[string]int {
	if len(entries) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, e := range entries {
		counts[e.Technician]++
	}
	return counts
}

func reasonCounts(skipped map[pm.ReasonCode]int) map[string]int {
	if len(skipped) == 0 {
		return nil
	}
	out := make(map[string]int, len(skipped))
	for reason, n := range skipped {
		out[string(reason)] = n
	}
	return out
}
