package pm

import "testing"

func TestRankTierBeatsOverdue(t *testing.T) {
	candidates := []Candidate{
		{Equipment: "LOW", Category: CategoryMonthly, Tier: DefaultTier, OverdueDays: 500},
		{Equipment: "P1", Category: CategoryMonthly, Tier: 1, OverdueDays: 0},
		{Equipment: "P2", Category: CategoryMonthly, Tier: 2, OverdueDays: 100},
	}

	ranked := Rank(candidates)

	want := []string{"P1", "P2", "LOW"}
	for i, eq := range want {
		if ranked[i].Equipment != eq {
			t.Errorf("ranked[%d] = %s, want %s", i, ranked[i].Equipment, eq)
		}
	}
}

func TestRankOverdueWithinTier(t *testing.T) {
	candidates := []Candidate{
		{Equipment: "A", Category: CategoryMonthly, Tier: 1, OverdueDays: 3},
		{Equipment: "B", Category: CategoryMonthly, Tier: 1, OverdueDays: 40},
		{Equipment: "C", Category: CategoryMonthly, Tier: 1, OverdueDays: 10},
	}

	ranked := Rank(candidates)

	want := []string{"B", "C", "A"}
	for i, eq := range want {
		if ranked[i].Equipment != eq {
			t.Errorf("ranked[%d] = %s, want %s", i, ranked[i].Equipment, eq)
		}
	}
}

func TestRankStableTieBreak(t *testing.T) {
	candidates := []Candidate{
		{Equipment: "Z9", Category: CategoryMonthly, Tier: 1, OverdueDays: 5},
		{Equipment: "A1", Category: CategoryMonthly, Tier: 1, OverdueDays: 5},
		{Equipment: "A1", Category: CategoryAnnual, Tier: 1, OverdueDays: 5},
		{Equipment: "M5", Category: CategoryMonthly, Tier: 1, OverdueDays: 5},
	}

	ranked := Rank(candidates)

	if ranked[0].Equipment != "A1" || ranked[0].Category != CategoryAnnual {
		t.Errorf("ranked[0] = %s/%s, want A1/Annual", ranked[0].Equipment, ranked[0].Category)
	}
	if ranked[1].Equipment != "A1" || ranked[1].Category != CategoryMonthly {
		t.Errorf("ranked[1] = %s/%s, want A1/Monthly", ranked[1].Equipment, ranked[1].Category)
	}
	if ranked[2].Equipment != "M5" || ranked[3].Equipment != "Z9" {
		t.Errorf("tail = %s, %s, want M5, Z9", ranked[2].Equipment, ranked[3].Equipment)
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	candidates := []Candidate{
		{Equipment: "B", Tier: 2},
		{Equipment: "A", Tier: 1},
	}

	_ = Rank(candidates)

	if candidates[0].Equipment != "B" {
		t.Error("Rank mutated its input slice")
	}
}

func TestRankDeterministic(t *testing.T) {
	candidates := []Candidate{
		{Equipment: "D", Category: CategoryMonthly, Tier: 3, OverdueDays: 12},
		{Equipment: "C", Category: CategoryAnnual, Tier: 3, OverdueDays: 12},
		{Equipment: "B", Category: CategoryMonthly, Tier: 1, OverdueDays: 1},
		{Equipment: "A", Category: CategoryMonthly, Tier: DefaultTier, OverdueDays: overdueNever},
	}

	first := Rank(candidates)
	second := Rank(candidates)

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("rank order not reproducible at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}
