package scheduler

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/plantops/pmsched/internal/config"
	"github.com/plantops/pmsched/internal/database"
	"github.com/plantops/pmsched/internal/engine"
	"github.com/plantops/pmsched/internal/pm"
	"github.com/plantops/pmsched/internal/store"
)

// Friday afternoon, week of 2026-08-17.
var testNow = time.Date(2026, 8, 21, 15, 0, 0, 0, time.UTC)

type fakeGenerator struct {
	mu   sync.Mutex
	reqs []engine.Request
}

func (f *fakeGenerator) Generate(ctx context.Context, req engine.Request) (*engine.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return &engine.Result{RunID: "run-test", Week: req.Week, Status: "completed", Created: 1}, nil
}

func (f *fakeGenerator) calls() []engine.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.Request(nil), f.reqs...)
}

func testStores(t *testing.T) *store.Stores {
	t.Helper()

	db, err := database.Open(&config.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "test.db"),
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

	return store.New(db)
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := pm.ParseDate(s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}

func seedWeek(t *testing.T, stores *store.Stores, week time.Time) {
	t.Helper()
	entries := []pm.ScheduleEntry{{
		Equipment: "AHU-001", Category: pm.CategoryMonthly, Technician: "Alice",
		ScheduledOn: week, Status: pm.EntryScheduled,
	}}
	if _, err := stores.Schedules.ReplaceWeek(context.Background(), week, entries); err != nil {
		t.Fatalf("seed week: %v", err)
	}
}

func testScheduler(t *testing.T, cfg config.AutoGenerateConfig) (*Scheduler, *fakeGenerator, *store.Stores) {
	t.Helper()

	gen := &fakeGenerator{}
	stores := testStores(t)
	s, err := New(gen, stores.Schedules, cfg, WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	return s, gen, stores
}

func TestRunOnceTargetsNextWeek(t *testing.T) {
	s, gen, _ := testScheduler(t, config.AutoGenerateConfig{Cron: "0 15 * * FRI"})

	if err := s.runOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	calls := gen.calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 generation, got %d", len(calls))
	}
	if want := date(t, "2026-08-24"); !calls[0].Week.Equal(want) {
		t.Errorf("week = %v, want %v", calls[0].Week, want)
	}
}

func TestRunOnceSkipsScheduledWeek(t *testing.T) {
	s, gen, stores := testScheduler(t, config.AutoGenerateConfig{Cron: "0 15 * * FRI"})
	seedWeek(t, stores, date(t, "2026-08-24"))

	if err := s.runOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	if calls := gen.calls(); len(calls) != 0 {
		t.Errorf("expected no generation for an already scheduled week, got %d", len(calls))
	}
}

func TestRunOnceRegenerates(t *testing.T) {
	s, gen, stores := testScheduler(t, config.AutoGenerateConfig{Cron: "0 15 * * FRI", Regenerate: true})
	seedWeek(t, stores, date(t, "2026-08-24"))

	if err := s.runOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	if calls := gen.calls(); len(calls) != 1 {
		t.Errorf("expected regeneration, got %d calls", len(calls))
	}
}

func TestNewRejectsBadCron(t *testing.T) {
	gen := &fakeGenerator{}
	stores := testStores(t)

	if _, err := New(gen, stores.Schedules, config.AutoGenerateConfig{Cron: "every friday"}); err == nil {
		t.Error("expected error for invalid cron spec")
	}
}

func TestStartFiresOnSchedule(t *testing.T) {
	s, gen, _ := testScheduler(t, config.AutoGenerateConfig{Cron: "@every 50ms"})

	s.Start()
	defer s.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if len(gen.calls()) >= 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("cron never fired")
}
