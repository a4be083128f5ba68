package completion

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/plantops/pmsched/internal/config"
	"github.com/plantops/pmsched/internal/database"
	"github.com/plantops/pmsched/internal/events"
	"github.com/plantops/pmsched/internal/pm"
	"github.com/plantops/pmsched/internal/store"
)

var testNow = time.Date(2026, 8, 21, 15, 0, 0, 0, time.UTC)

func testService(t *testing.T, opts ...Option) (*Service, *store.Stores) {
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
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewService(db, stores, opts...), stores
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := pm.ParseDate(s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
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

func TestRecordMonthly(t *testing.T) {
	svc, stores := testService(t)
	ctx := context.Background()
	week := date(t, "2026-08-17")

	seedEquipment(t, stores, pm.Equipment{Number: "AHU-001", Monthly: true})
	entries := []pm.ScheduleEntry{{
		Equipment: "AHU-001", Category: pm.CategoryMonthly, Technician: "Alice",
		ScheduledOn: date(t, "2026-08-19"), Status: pm.EntryScheduled,
	}}
	if _, err := stores.Schedules.ReplaceWeek(ctx, week, entries); err != nil {
		t.Fatalf("seed schedule: %v", err)
	}

	rec, err := svc.Record(ctx, Input{
		Equipment:    "AHU-001",
		Category:     "Monthly",
		Technician:   "Alice",
		CompletedOn:  date(t, "2026-08-19"),
		LaborMinutes: 45,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	if rec.Completion.ID == 0 {
		t.Error("expected completion id to be filled")
	}
	if !rec.EntryClosed {
		t.Error("expected the scheduled entry to be closed")
	}
	if want := date(t, "2026-09-18"); !rec.NextDue.Equal(want) {
		t.Errorf("next due = %v, want %v", rec.NextDue, want)
	}

	eq, err := stores.Equipment.Get(ctx, "AHU-001")
	if err != nil {
		t.Fatalf("get equipment: %v", err)
	}
	if eq.LastMonthly == nil || !eq.LastMonthly.Equal(date(t, "2026-08-19")) {
		t.Errorf("last monthly = %v, want 2026-08-19", eq.LastMonthly)
	}
	if eq.NextMonthly == nil || !eq.NextMonthly.Equal(date(t, "2026-09-18")) {
		t.Errorf("next monthly = %v, want 2026-09-18", eq.NextMonthly)
	}

	persisted, err := stores.Schedules.ListWeek(ctx, week)
	if err != nil {
		t.Fatalf("list week: %v", err)
	}
	if len(persisted) != 1 || persisted[0].Status != pm.EntryCompleted {
		t.Errorf("expected entry marked completed, got %+v", persisted)
	}

	history, err := stores.Completions.ListForEquipment(ctx, "AHU-001")
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 1 || history[0].LaborMinutes != 45 {
		t.Errorf("unexpected history: %+v", history)
	}
}

func TestRecordAnnualSpread(t *testing.T) {
	svc, stores := testService(t)
	ctx := context.Background()

	seedEquipment(t, stores, pm.Equipment{Number: "BFM-0042", Annual: true})

	completed := date(t, "2026-08-19")
	rec, err := svc.Record(ctx, Input{
		Equipment: "BFM-0042", Category: "Annual", Technician: "Bob", CompletedOn: completed,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	if want := pm.NextAnnualDue("BFM-0042", completed); !rec.NextDue.Equal(want) {
		t.Errorf("next due = %v, want spreader result %v", rec.NextDue, want)
	}
	offset := pm.DaysBetween(completed.AddDate(0, 0, 365), rec.NextDue)
	if offset < -30 || offset > 30 {
		t.Errorf("spread offset %d outside [-30, 30]", offset)
	}

	eq, err := stores.Equipment.Get(ctx, "BFM-0042")
	if err != nil {
		t.Fatalf("get equipment: %v", err)
	}
	if eq.NextAnnual == nil || !eq.NextAnnual.Equal(rec.NextDue) {
		t.Errorf("next annual = %v, want %v", eq.NextAnnual, rec.NextDue)
	}
}

func TestRecordWithoutScheduledEntry(t *testing.T) {
	svc, stores := testService(t)
	ctx := context.Background()

	seedEquipment(t, stores, pm.Equipment{Number: "PMP-104", Monthly: true})

	rec, err := svc.Record(ctx, Input{
		Equipment: "PMP-104", Category: "Monthly", Technician: "Alice",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec.EntryClosed {
		t.Error("expected no entry to close")
	}
	// Zero date defaults to the clock's today.
	if want := date(t, "2026-08-21"); !rec.Completion.CompletedOn.Equal(want) {
		t.Errorf("completed on = %v, want %v", rec.Completion.CompletedOn, want)
	}
}

func TestRecordUnknownEquipment(t *testing.T) {
	svc, _ := testService(t)

	_, err := svc.Record(context.Background(), Input{
		Equipment: "NOPE-1", Category: "Monthly", Technician: "Alice",
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordValidation(t *testing.T) {
	svc, stores := testService(t)
	seedEquipment(t, stores, pm.Equipment{Number: "CT-12", Annual: true})

	cases := []struct {
		name  string
		in    Input
		field string
	}{
		{"missing equipment", Input{Category: "Monthly", Technician: "Alice"}, "equipment"},
		{"bad category", Input{Equipment: "CT-12", Category: "Weekly", Technician: "Alice"}, "category"},
		{"missing technician", Input{Equipment: "CT-12", Category: "Annual"}, "technician"},
		{"negative minutes", Input{Equipment: "CT-12", Category: "Annual", Technician: "Alice", LaborMinutes: -5}, "labor_minutes"},
		{"future date", Input{Equipment: "CT-12", Category: "Annual", Technician: "Alice", CompletedOn: testNow.AddDate(0, 0, 3)}, "completed_on"},
		{"category not enabled", Input{Equipment: "CT-12", Category: "Monthly", Technician: "Alice"}, "category"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Record(context.Background(), tc.in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Field != tc.field {
				t.Errorf("field = %s, want %s", verr.Field, tc.field)
			}
		})
	}
}

func TestRecordPublishesEvent(t *testing.T) {
	bus := events.NewBus()
	svc, stores := testService(t, WithBus(bus))
	ctx := context.Background()

	var received *events.Event
	bus.Subscribe(events.TopicCompletionRecorded, func(ctx context.Context, event *events.Event) {
		received = event
	})

	seedEquipment(t, stores, pm.Equipment{Number: "AHU-001", Monthly: true})
	if _, err := svc.Record(ctx, Input{
		Equipment: "AHU-001", Category: "Monthly", Technician: "Alice",
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	if received == nil {
		t.Fatal("expected a completion.recorded event")
	}
	var payload Recorded
	if err := json.Unmarshal(received.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Completion == nil || payload.Completion.Equipment != "AHU-001" {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestRecordSanitizesNotes(t *testing.T) {
	svc, stores := testService(t)
	ctx := context.Background()

	seedEquipment(t, stores, pm.Equipment{Number: "FAN-07", Monthly: true})

	rec, err := svc.Record(ctx, Input{
		Equipment: "FAN-07", Category: "Monthly", Technician: "Alice",
		Notes: "<script>alert(1)</script>Greased <b>both</b> bearings",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	want := "Greased both bearings"
	if rec.Completion.Notes != want {
		t.Errorf("notes = %q, want %q", rec.Completion.Notes, want)
	}

	history, err := stores.Completions.ListForEquipment(ctx, "FAN-07")
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 1 || history[0].Notes != want {
		t.Errorf("persisted notes = %+v, want %q", history, want)
	}
}
