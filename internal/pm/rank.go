package pm

import "sort"

// categoryOrder fixes the tie-break order between categories of the same
// equipment: longer cycles first, matching the evaluation order.
func categoryOrder(c Category) int {
	switch c {
	case CategoryAnnual:
		return 0
	case CategorySixMonth:
		return 1
	case CategoryMonthly:
		return 2
	}
	return 3
}

// Rank orders eligible candidates for assignment: explicit priority tier
// first (lower tier number wins), then degree of overdue-ness (more overdue
// first), then equipment number and category as a stable tie-break. The
// result is fully deterministic for identical input.
func Rank(candidates []Candidate) []Candidate {
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Tier != b.Tier {
			return a.Tier < b.Tier
		}
		if a.OverdueDays != b.OverdueDays {
			return a.OverdueDays > b.OverdueDays
		}
		if a.Equipment != b.Equipment {
			return a.Equipment < b.Equipment
		}
		return categoryOrder(a.Category) < categoryOrder(b.Category)
	})

	return ranked
}
