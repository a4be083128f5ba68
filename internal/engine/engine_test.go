package engine

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/plantops/pmsched/internal/config"
	"github.com/plantops/pmsched/internal/database"
	"github.com/plantops/pmsched/internal/pm"
	"github.com/plantops/pmsched/internal/store"
)

var testClock = time.Date(2026, 8, 21, 15, 0, 0, 0, time.UTC) // Friday before the target week

func testEngine(t *testing.T, opts ...Option) (*Engine, *store.Stores, *database.DB) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(&config.DatabaseConfig{
		Path:         dbPath,
		WALMode:      true,
		ForeignKeys:  true,
		CacheSize:    -2000,
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	stores := store.New(db)

	cfg := config.SchedulingConfig{
		WeeklyTarget:  130,
		LookaheadDays: 7,
		GraceDays:     7,
		HistoryDays:   400,
	}

	opts = append([]Option{WithClock(func() time.Time { return testClock })}, opts...)
	return New(stores, cfg, opts...), stores, db
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := pm.ParseDate(s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}

func datePtr(t *testing.T, s string) *time.Time {
	d := date(t, s)
	return &d
}

func seedTechnicians(t *testing.T, s *store.Stores, names ...string) {
	t.Helper()
	ctx := context.Background()
	for i, name := range names {
		tech := &pm.Technician{Name: name, Active: true, SortOrder: i}
		if err := s.Technicians.Upsert(ctx, tech); err != nil {
			t.Fatalf("seeding technician %s: %v", name, err)
		}
	}
}

func seedEquipment(t *testing.T, s *store.Stores, eq pm.Equipment) {
	t.Helper()
	if eq.Status == "" {
		eq.Status = pm.StatusActive
	}
	if err := s.Equipment.Upsert(context.Background(), &eq); err != nil {
		t.Fatalf("seeding equipment %s: %v", eq.Number, err)
	}
}

func seedCompletion(t *testing.T, s *store.Stores, db *database.DB, equipment string, cat pm.Category, day string) {
	t.Helper()
	ctx := context.Background()
	err := db.Transaction(ctx, func(tx *database.Tx) error {
		c := &pm.Completion{Equipment: equipment, Category: cat, Technician: "seed", CompletedOn: date(t, day)}
		return s.Completions.CreateTx(ctx, tx, c)
	})
	if err != nil {
		t.Fatalf("seeding completion for %s: %v", equipment, err)
	}
}

// Monthly equipment that is overdue and has no blocking history.
func overdueMonthly(number, nextDue string) pm.Equipment {
	next, _ := pm.ParseDate(nextDue)
	return pm.Equipment{Number: number, Status: pm.StatusActive, Monthly: true, NextMonthly: &next}
}

func TestGenerateRejectsNonMonday(t *testing.T) {
	eng, _, _ := testEngine(t)

	_, err := eng.Generate(context.Background(), Request{Week: date(t, "2026-08-26")})
	if err == nil {
		t.Fatal("expected error for non-Monday week")
	}
}

func TestGenerateWeekBusy(t *testing.T) {
	eng, _, _ := testEngine(t)

	unlock, ok := eng.lockWeek(date(t, "2026-08-24"))
	if !ok {
		t.Fatal("could not take the week lock")
	}
	defer unlock()

	_, err := eng.Generate(context.Background(), Request{Week: date(t, "2026-08-24")})
	if !errors.Is(err, ErrWeekBusy) {
		t.Errorf("expected ErrWeekBusy, got %v", err)
	}

	// Other weeks are unaffected.
	if _, err := eng.Generate(context.Background(), Request{Week: date(t, "2026-08-31")}); err != nil {
		t.Errorf("different week should generate: %v", err)
	}
}

func TestGenerateBasicScenario(t *testing.T) {
	// One eligible item, one recently completed, target 1: exactly one
	// entry, first technician in roster order, Monday.
	eng, stores, db := testEngine(t)
	ctx := context.Background()
	week := date(t, "2026-08-24")

	seedTechnicians(t, stores, "Alice", "Bob")
	seedEquipment(t, stores, overdueMonthly("E1", "2026-08-09"))
	seedEquipment(t, stores, overdueMonthly("E2", "2026-08-09"))
	seedCompletion(t, stores, db, "E1", pm.CategoryMonthly, "2026-07-15") // 40 days before week
	seedCompletion(t, stores, db, "E2", pm.CategoryMonthly, "2026-08-14") // 10 days before week

	res, err := eng.Generate(ctx, Request{Week: week, WeeklyTarget: 1})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if res.Status != store.RunCompleted {
		t.Errorf("expected completed status, got %s", res.Status)
	}
	if res.Created != 1 {
		t.Fatalf("expected 1 entry created, got %d", res.Created)
	}

	entry := res.Entries[0]
	if entry.Equipment != "E1" || entry.Category != pm.CategoryMonthly {
		t.Errorf("expected E1/Monthly, got %s/%s", entry.Equipment, entry.Category)
	}
	if entry.Technician != "Alice" {
		t.Errorf("expected roster-order tie to pick Alice, got %s", entry.Technician)
	}
	if !entry.ScheduledOn.Equal(week) {
		t.Errorf("expected Monday %v, got %v", week, entry.ScheduledOn)
	}

	if res.Summary.Skipped[pm.ReasonRecentlyCompleted] != 1 {
		t.Errorf("expected E2 skipped as recently completed, got %v", res.Summary.Skipped)
	}

	persisted, err := stores.Schedules.ListWeek(ctx, week)
	if err != nil {
		t.Fatalf("list week: %v", err)
	}
	if len(persisted) != 1 || persisted[0].Equipment != "E1" {
		t.Errorf("expected persisted schedule to match result, got %+v", persisted)
	}
}

func TestGenerateIdempotent(t *testing.T) {
	eng, stores, _ := testEngine(t)
	ctx := context.Background()
	week := date(t, "2026-08-24")

	seedTechnicians(t, stores, "Alice", "Bob")
	for _, no := range []string{"E1", "E2", "E3", "E4", "E5"} {
		seedEquipment(t, stores, overdueMonthly(no, "2026-08-10"))
	}

	if _, err := eng.Generate(ctx, Request{Week: week}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first, err := stores.Schedules.ListWeek(ctx, week)
	if err != nil {
		t.Fatalf("list after first run: %v", err)
	}

	if _, err := eng.Generate(ctx, Request{Week: week}); err != nil {
		t.Fatalf("second run: %v", err)
	}
	second, err := stores.Schedules.ListWeek(ctx, week)
	if err != nil {
		t.Fatalf("list after second run: %v", err)
	}

	if len(first) != 5 || len(second) != 5 {
		t.Fatalf("expected 5 entries in both runs, got %d and %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		if a.Equipment != b.Equipment || a.Category != b.Category ||
			a.Technician != b.Technician || !a.ScheduledOn.Equal(b.ScheduledOn) {
			t.Errorf("entry %d differs between runs: %+v vs %+v", i, a, b)
		}
	}
}

func TestGeneratePreservesCompleted(t *testing.T) {
	eng, stores, db := testEngine(t)
	ctx := context.Background()
	week := date(t, "2026-08-24")

	seedTechnicians(t, stores, "Alice", "Bob")
	seedEquipment(t, stores, overdueMonthly("E3", "2026-08-10"))
	seedEquipment(t, stores, overdueMonthly("E4", "2026-08-10"))

	// E3's entry was already worked off earlier in the week.
	initial := []pm.ScheduleEntry{{
		Equipment: "E3", Category: pm.CategoryMonthly, Technician: "Alice",
		ScheduledOn: week, Status: pm.EntryScheduled,
	}}
	if _, err := stores.Schedules.ReplaceWeek(ctx, week, initial); err != nil {
		t.Fatalf("seed schedule: %v", err)
	}
	err := db.Transaction(ctx, func(tx *database.Tx) error {
		_, err := stores.Schedules.MarkCompletedTx(ctx, tx, "E3", pm.CategoryMonthly, week)
		return err
	})
	if err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	res, err := eng.Generate(ctx, Request{Week: week})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	for _, entry := range res.Entries {
		if entry.Equipment == "E3" && entry.Category == pm.CategoryMonthly {
			t.Error("expected E3/Monthly not to be recreated")
		}
	}

	persisted, err := stores.Schedules.ListWeek(ctx, week)
	if err != nil {
		t.Fatalf("list week: %v", err)
	}

	var completed, scheduled int
	for _, entry := range persisted {
		switch entry.Status {
		case pm.EntryCompleted:
			completed++
			if entry.Equipment != "E3" {
				t.Errorf("unexpected completed entry: %+v", entry)
			}
		case pm.EntryScheduled:
			scheduled++
		}
	}
	if completed != 1 {
		t.Errorf("expected the completed entry to survive, got %d completed", completed)
	}
	if scheduled != 1 {
		t.Errorf("expected one new entry for E4, got %d scheduled", scheduled)
	}

	// The completed entry occupies Alice's Monday, so the new entry lands
	// with Bob.
	for _, entry := range persisted {
		if entry.Status == pm.EntryScheduled && entry.Technician != "Bob" {
			t.Errorf("expected count initialization to route new work to Bob, got %s", entry.Technician)
		}
	}
}

func TestGenerateNoTechnicians(t *testing.T) {
	eng, stores, _ := testEngine(t)
	ctx := context.Background()
	week := date(t, "2026-08-24")

	seedTechnicians(t, stores, "Alice")
	seedEquipment(t, stores, overdueMonthly("E1", "2026-08-10"))

	// Seed a prior schedule to prove the aborted run does not clear it.
	prior := []pm.ScheduleEntry{{
		Equipment: "E1", Category: pm.CategoryMonthly, Technician: "Alice",
		ScheduledOn: week, Status: pm.EntryScheduled,
	}}
	if _, err := stores.Schedules.ReplaceWeek(ctx, week, prior); err != nil {
		t.Fatalf("seed schedule: %v", err)
	}

	res, err := eng.Generate(ctx, Request{Week: week, Exclusions: []string{"Alice"}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if res.Status != store.RunNoTechnicians {
		t.Errorf("expected no_technicians status, got %s", res.Status)
	}
	if res.Created != 0 || len(res.Entries) != 0 {
		t.Errorf("expected zero entries, got %d", res.Created)
	}

	persisted, err := stores.Schedules.ListWeek(ctx, week)
	if err != nil {
		t.Fatalf("list week: %v", err)
	}
	if len(persisted) != 1 {
		t.Errorf("expected prior schedule untouched, got %d entries", len(persisted))
	}

	runs, err := stores.Runs.List(ctx, nil, 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != store.RunNoTechnicians {
		t.Errorf("expected recorded diagnostic run, got %+v", runs)
	}
}

func TestGenerateWeeklyTargetOverflow(t *testing.T) {
	eng, stores, _ := testEngine(t)
	ctx := context.Background()
	week := date(t, "2026-08-24")

	seedTechnicians(t, stores, "Alice", "Bob")
	for _, no := range []string{"E1", "E2", "E3", "E4", "E5", "E6"} {
		seedEquipment(t, stores, overdueMonthly(no, "2026-08-10"))
	}

	res, err := eng.Generate(ctx, Request{Week: week, WeeklyTarget: 4})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if res.Created != 4 {
		t.Errorf("expected 4 entries, got %d", res.Created)
	}
	if len(res.Summary.Overflow) != 2 {
		t.Fatalf("expected 2 overflow candidates, got %d", len(res.Summary.Overflow))
	}
}

func TestGenerateEvenDistribution(t *testing.T) {
	eng, stores, _ := testEngine(t)
	ctx := context.Background()
	week := date(t, "2026-08-24")

	seedTechnicians(t, stores, "Alice", "Bob", "Carol")
	for _, no := range []string{"E1", "E2", "E3", "E4", "E5", "E6", "E7"} {
		seedEquipment(t, stores, overdueMonthly(no, "2026-08-10"))
	}

	res, err := eng.Generate(ctx, Request{Week: week})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	counts := res.Summary.PerTechnician
	min, max := 1<<30, 0
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		n := counts[name]
		if n < min {
			min = n
		}
		if n > max {
			max = n
		}
	}
	if max-min > 1 {
		t.Errorf("uneven distribution: %v", counts)
	}
}

func TestGenerateAnnualSuppressesMonthly(t *testing.T) {
	eng, stores, _ := testEngine(t)
	ctx := context.Background()
	week := date(t, "2026-08-24")

	seedTechnicians(t, stores, "Alice")
	next := date(t, "2026-08-10")
	seedEquipment(t, stores, pm.Equipment{
		Number: "AHU-001", Status: pm.StatusActive,
		Monthly: true, Annual: true,
		NextMonthly: &next, NextAnnual: &next,
	})

	res, err := eng.Generate(ctx, Request{Week: week})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if res.Created != 1 {
		t.Fatalf("expected only the annual entry, got %d entries", res.Created)
	}
	if res.Entries[0].Category != pm.CategoryAnnual {
		t.Errorf("expected Annual, got %s", res.Entries[0].Category)
	}
	if res.Summary.Skipped[pm.ReasonAnnualConflict] != 1 {
		t.Errorf("expected 1 annual-conflict skip, got %v", res.Summary.Skipped)
	}
}

func TestGenerateTierOrdering(t *testing.T) {
	tiers := StaticTiers{"PMP-104": 1}
	eng, stores, _ := testEngine(t, WithTierSource(tiers))
	ctx := context.Background()
	week := date(t, "2026-08-24")

	seedTechnicians(t, stores, "Alice")
	// AAA-001 is far more overdue, but PMP-104 sits on tier 1.
	seedEquipment(t, stores, overdueMonthly("AAA-001", "2026-05-01"))
	seedEquipment(t, stores, overdueMonthly("PMP-104", "2026-08-20"))

	res, err := eng.Generate(ctx, Request{Week: week, WeeklyTarget: 1})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if res.Created != 1 || res.Entries[0].Equipment != "PMP-104" {
		t.Errorf("expected tier 1 equipment first, got %+v", res.Entries)
	}
}

func TestGenerateDryRun(t *testing.T) {
	eng, stores, _ := testEngine(t)
	ctx := context.Background()
	week := date(t, "2026-08-24")

	seedTechnicians(t, stores, "Alice")
	seedEquipment(t, stores, overdueMonthly("E1", "2026-08-10"))

	res, err := eng.Generate(ctx, Request{Week: week, DryRun: true})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if res.Created != 1 {
		t.Errorf("expected dry run to report 1 would-be entry, got %d", res.Created)
	}

	persisted, err := stores.Schedules.ListWeek(ctx, week)
	if err != nil {
		t.Fatalf("list week: %v", err)
	}
	if len(persisted) != 0 {
		t.Errorf("expected dry run to write nothing, got %d entries", len(persisted))
	}

	runs, err := stores.Runs.List(ctx, nil, 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected dry run to record nothing, got %d runs", len(runs))
	}
}

func TestGeneratePendingOtherWeekBlocks(t *testing.T) {
	eng, stores, _ := testEngine(t)
	ctx := context.Background()
	week := date(t, "2026-08-24")
	priorWeek := date(t, "2026-08-17")

	seedTechnicians(t, stores, "Alice")
	seedEquipment(t, stores, overdueMonthly("E1", "2026-08-10"))

	// Still-open entry from last week blocks a duplicate this week.
	prior := []pm.ScheduleEntry{{
		Equipment: "E1", Category: pm.CategoryMonthly, Technician: "Alice",
		ScheduledOn: date(t, "2026-08-19"), Status: pm.EntryScheduled,
	}}
	if _, err := stores.Schedules.ReplaceWeek(ctx, priorWeek, prior); err != nil {
		t.Fatalf("seed prior week: %v", err)
	}

	res, err := eng.Generate(ctx, Request{Week: week})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if res.Created != 0 {
		t.Errorf("expected no entries while prior week's is pending, got %d", res.Created)
	}
	if res.Summary.Skipped[pm.ReasonAlreadyPending] != 1 {
		t.Errorf("expected already-pending skip, got %v", res.Summary.Skipped)
	}
}

func TestGenerateRecordsRun(t *testing.T) {
	eng, stores, _ := testEngine(t)
	ctx := context.Background()
	week := date(t, "2026-08-24")

	seedTechnicians(t, stores, "Alice")
	seedEquipment(t, stores, overdueMonthly("E1", "2026-08-10"))

	res, err := eng.Generate(ctx, Request{Week: week})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	run, err := stores.Runs.Get(ctx, res.RunID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run.Status != store.RunCompleted || run.CreatedCount != 1 {
		t.Errorf("unexpected run record: %+v", run)
	}

	var summary RunSummary
	if err := json.Unmarshal(run.Summary, &summary); err != nil {
		t.Fatalf("decoding summary: %v", err)
	}
	if summary.Created != 1 || summary.Week != "2026-08-24" {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

type hookFunc func(ctx context.Context, result *Result)

func (f hookFunc) RunCompleted(ctx context.Context, result *Result) { f(ctx, result) }

func TestGenerateFiresHooks(t *testing.T) {
	var got *Result
	hook := hookFunc(func(_ context.Context, result *Result) { got = result })

	eng, stores, _ := testEngine(t, WithHooks(hook))
	ctx := context.Background()
	week := date(t, "2026-08-24")

	seedTechnicians(t, stores, "Alice")
	seedEquipment(t, stores, overdueMonthly("E1", "2026-08-10"))

	res, err := eng.Generate(ctx, Request{Week: week})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if got == nil {
		t.Fatal("expected hook to fire")
	}
	if got.RunID != res.RunID {
		t.Errorf("hook saw run %s, want %s", got.RunID, res.RunID)
	}

	// Dry runs stay invisible to hooks.
	got = nil
	if _, err := eng.Generate(ctx, Request{Week: week, DryRun: true}); err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if got != nil {
		t.Error("expected dry run not to fire hooks")
	}
}
