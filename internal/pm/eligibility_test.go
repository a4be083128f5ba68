package pm

import (
	"testing"
	"time"
)

// testIndex builds an index for a single reference date with the given
// state. asOf is a Monday so the target week equals the reference week.
func testIndex(t *testing.T, in IndexInputs) *Index {
	t.Helper()
	if in.AsOf.IsZero() {
		in.AsOf = date("2026-08-24")
	}
	if in.Week.IsZero() {
		in.Week = in.AsOf
	}
	return NewIndex(in)
}

func monthlyEquipment(number string, lastDone, nextDue *time.Time) Equipment {
	return Equipment{
		Number:      number,
		Status:      StatusActive,
		Monthly:     true,
		LastMonthly: lastDone,
		NextMonthly: nextDue,
	}
}

func datePtr(s string) *time.Time {
	d := date(s)
	return &d
}

func TestEvaluateRuleOrder(t *testing.T) {
	asOf := date("2026-08-24")

	tests := []struct {
		name       string
		equipment  Equipment
		category   Category
		inputs     IndexInputs
		wantOK     bool
		wantReason ReasonCode
	}{
		{
			name:       "category does not apply",
			equipment:  Equipment{Number: "E1", Status: StatusActive, Monthly: true},
			category:   CategoryAnnual,
			wantReason: ReasonNotApplicable,
		},
		{
			name:       "missing equipment withheld",
			equipment:  Equipment{Number: "E2", Status: StatusMissing, Monthly: true},
			category:   CategoryMonthly,
			wantReason: ReasonExcludedStatus,
		},
		{
			name:       "run to failure withheld",
			equipment:  Equipment{Number: "E3", Status: StatusRunToFailure, Monthly: true},
			category:   CategoryMonthly,
			wantReason: ReasonExcludedStatus,
		},
		{
			name:      "recent completion inside minimum recurrence",
			equipment: monthlyEquipment("E4", nil, datePtr("2026-08-20")),
			category:  CategoryMonthly,
			inputs: IndexInputs{
				Completions: []Completion{
					{Equipment: "E4", Category: CategoryMonthly, CompletedOn: date("2026-08-14")},
				},
			},
			wantReason: ReasonRecentlyCompleted,
		},
		{
			name:      "old completion clears minimum recurrence",
			equipment: monthlyEquipment("E5", nil, datePtr("2026-08-20")),
			category:  CategoryMonthly,
			inputs: IndexInputs{
				Completions: []Completion{
					{Equipment: "E5", Category: CategoryMonthly, CompletedOn: date("2026-07-15")},
				},
			},
			wantOK: true,
		},
		{
			name:      "pending entry in another week blocks",
			equipment: monthlyEquipment("E6", nil, datePtr("2026-08-20")),
			category:  CategoryMonthly,
			inputs: IndexInputs{
				Pending: []ScheduleEntry{
					{Equipment: "E6", Category: CategoryMonthly, WeekStart: date("2026-08-17"), ScheduledOn: date("2026-08-19"), Status: EntryScheduled},
				},
			},
			wantReason: ReasonAlreadyPending,
		},
		{
			name:      "completed entry in target week blocks recreation",
			equipment: monthlyEquipment("E7", nil, datePtr("2026-08-20")),
			category:  CategoryMonthly,
			inputs: IndexInputs{
				WeekEntries: []ScheduleEntry{
					{Equipment: "E7", Category: CategoryMonthly, WeekStart: asOf, ScheduledOn: asOf, Status: EntryCompleted},
				},
			},
			wantReason: ReasonAlreadyPending,
		},
		{
			name:      "annual entry this week suppresses monthly",
			equipment: monthlyEquipment("E8", nil, datePtr("2026-08-20")),
			category:  CategoryMonthly,
			inputs: IndexInputs{
				WeekEntries: []ScheduleEntry{
					{Equipment: "E8", Category: CategoryAnnual, WeekStart: asOf, ScheduledOn: asOf, Status: EntryCompleted},
				},
			},
			wantReason: ReasonAnnualConflict,
		},
		{
			name:       "due date beyond lookahead",
			equipment:  monthlyEquipment("E9", datePtr("2026-07-01"), datePtr("2026-09-10")),
			category:   CategoryMonthly,
			wantReason: ReasonNotYetDue,
		},
		{
			name:      "due date inside lookahead",
			equipment: monthlyEquipment("E10", datePtr("2026-07-25"), datePtr("2026-08-28")),
			category:  CategoryMonthly,
			wantOK:    true,
		},
		{
			name:      "never completed is due immediately",
			equipment: monthlyEquipment("E11", nil, nil),
			category:  CategoryMonthly,
			wantOK:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.inputs.Equipment = []Equipment{tt.equipment}
			idx := testIndex(t, tt.inputs)
			ev := NewEvaluator(idx, EvalOptions{LookaheadDays: 7, GraceDays: 7})

			eq, _ := idx.Lookup(tt.equipment.Number)
			ok, reason := ev.Evaluate(eq, tt.category)
			if ok != tt.wantOK {
				t.Fatalf("Evaluate() ok = %v, want %v (reason %q)", ok, tt.wantOK, reason)
			}
			if !tt.wantOK && reason != tt.wantReason {
				t.Errorf("Evaluate() reason = %q, want %q", reason, tt.wantReason)
			}
		})
	}
}

func TestAnnualCandidateSuppressesShorterCycles(t *testing.T) {
	eq := Equipment{
		Number:   "E20",
		Status:   StatusActive,
		Monthly:  true,
		SixMonth: true,
		Annual:   true,
	}
	idx := testIndex(t, IndexInputs{Equipment: []Equipment{eq}})
	ev := NewEvaluator(idx, EvalOptions{LookaheadDays: 7, GraceDays: 7})

	candidates, skipped := ev.EvaluateAll()

	if len(candidates) != 1 {
		t.Fatalf("EvaluateAll() produced %d candidates, want 1 (annual only): %+v", len(candidates), candidates)
	}
	if candidates[0].Category != CategoryAnnual {
		t.Errorf("surviving candidate = %s, want Annual", candidates[0].Category)
	}
	if skipped[ReasonAnnualConflict] != 2 {
		t.Errorf("annual-conflict skips = %d, want 2", skipped[ReasonAnnualConflict])
	}
}

func TestMonthlyDoesNotSuppressAnnual(t *testing.T) {
	// Reverse direction stays open: a monthly entry this week must not
	// block annual work for the same equipment.
	eq := Equipment{Number: "E21", Status: StatusActive, Annual: true}
	idx := testIndex(t, IndexInputs{
		Equipment: []Equipment{eq},
		WeekEntries: []ScheduleEntry{
			{Equipment: "E21", Category: CategoryMonthly, WeekStart: date("2026-08-24"), ScheduledOn: date("2026-08-24"), Status: EntryCompleted},
		},
	})
	ev := NewEvaluator(idx, EvalOptions{LookaheadDays: 7, GraceDays: 7})

	eqp, _ := idx.Lookup("E21")
	ok, reason := ev.Evaluate(eqp, CategoryAnnual)
	if !ok {
		t.Fatalf("annual blocked by monthly entry: reason %q", reason)
	}
}

func TestEvaluateAllDeterministic(t *testing.T) {
	var equipment []Equipment
	for _, n := range []string{"B2", "A1", "C3", "A2"} {
		equipment = append(equipment, Equipment{Number: n, Status: StatusActive, Monthly: true, Annual: true})
	}
	in := IndexInputs{Equipment: equipment}

	first, _ := NewEvaluator(testIndex(t, in), EvalOptions{LookaheadDays: 7}).EvaluateAll()
	second, _ := NewEvaluator(testIndex(t, in), EvalOptions{LookaheadDays: 7}).EvaluateAll()

	if len(first) != len(second) {
		t.Fatalf("candidate counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("candidate %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestEvaluateFiltered(t *testing.T) {
	fs, err := CompileFilters([]string{`equipment.location == "Annex"`})
	if err != nil {
		t.Fatalf("CompileFilters: %v", err)
	}

	equipment := []Equipment{
		{Number: "F1", Status: StatusActive, Monthly: true, Location: "Annex"},
		{Number: "F2", Status: StatusActive, Monthly: true, Location: "Main"},
	}
	idx := testIndex(t, IndexInputs{Equipment: equipment})
	ev := NewEvaluator(idx, EvalOptions{LookaheadDays: 7, Filters: fs})

	candidates, skipped := ev.EvaluateAll()
	if len(candidates) != 1 || candidates[0].Equipment != "F2" {
		t.Fatalf("candidates = %+v, want only F2", candidates)
	}
	if skipped[ReasonFiltered] != 1 {
		t.Errorf("filtered skips = %d, want 1", skipped[ReasonFiltered])
	}
}
