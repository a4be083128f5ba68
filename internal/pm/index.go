package pm

import "time"

// overdueNever ranks never-completed equipment ahead of everything with a
// recorded due date.
const overdueNever = 1 << 20

type pairKey struct {
	equipment string
	category  Category
}

// IndexInputs is the raw material for an Index, produced by a constant
// number of bulk reads.
type IndexInputs struct {
	AsOf      time.Time
	Week      time.Time
	Equipment []Equipment
	// Completions is raw history; the index keeps only the latest date per
	// equipment/category pair.
	Completions []Completion
	// Pending holds Scheduled entries from weeks other than the target week
	// whose scheduled date is recent enough to still count as in flight. The
	// target week's own Scheduled entries never belong here: regeneration
	// replaces them wholesale and they must not block their own recreation.
	Pending []ScheduleEntry
	// WeekEntries holds the target week's entries that survive a
	// regeneration, i.e. the Completed ones. They block recreation of their
	// pair and seed the load balancer's running counts.
	WeekEntries []ScheduleEntry
	Tiers       map[string]int
	Roster      []Technician
}

// Index is the immutable in-memory snapshot the evaluator, ranker, and
// assigner read from. All lookups are O(1) so evaluation never issues a
// query per equipment item.
type Index struct {
	AsOf      time.Time
	Week      time.Time
	Equipment []Equipment
	Roster    []Technician

	byNumber    map[string]*Equipment
	lastDone    map[pairKey]time.Time
	pending     map[pairKey]bool
	weekEntries map[pairKey]*ScheduleEntry
	weekAnnual  map[string]bool
	tiers       map[string]int
}

// NewIndex assembles the lookup maps from bulk-read inputs.
func NewIndex(in IndexInputs) *Index {
	idx := &Index{
		AsOf:        Midnight(in.AsOf),
		Week:        Midnight(in.Week),
		Equipment:   in.Equipment,
		Roster:      in.Roster,
		byNumber:    make(map[string]*Equipment, len(in.Equipment)),
		lastDone:    make(map[pairKey]time.Time),
		pending:     make(map[pairKey]bool, len(in.Pending)),
		weekEntries: make(map[pairKey]*ScheduleEntry, len(in.WeekEntries)),
		weekAnnual:  make(map[string]bool),
		tiers:       in.Tiers,
	}
	if idx.tiers == nil {
		idx.tiers = map[string]int{}
	}

	for i := range idx.Equipment {
		eq := &idx.Equipment[i]
		idx.byNumber[eq.Number] = eq
	}

	for _, c := range in.Completions {
		key := pairKey{c.Equipment, c.Category}
		if prev, ok := idx.lastDone[key]; !ok || c.CompletedOn.After(prev) {
			idx.lastDone[key] = Midnight(c.CompletedOn)
		}
	}

	for _, e := range in.Pending {
		idx.pending[pairKey{e.Equipment, e.Category}] = true
	}

	for i := range in.WeekEntries {
		e := &in.WeekEntries[i]
		idx.weekEntries[pairKey{e.Equipment, e.Category}] = e
		if e.Category == CategoryAnnual {
			idx.weekAnnual[e.Equipment] = true
		}
	}

	return idx
}

// Lookup returns the equipment record for a number.
func (idx *Index) Lookup(number string) (*Equipment, bool) {
	eq, ok := idx.byNumber[number]
	return eq, ok
}

// LastCompleted returns the most recent completion date for the pair.
func (idx *Index) LastCompleted(equipment string, c Category) (time.Time, bool) {
	t, ok := idx.lastDone[pairKey{equipment, c}]
	return t, ok
}

// HasPending reports whether a still-in-flight Scheduled entry exists for
// the pair in any week.
func (idx *Index) HasPending(equipment string, c Category) bool {
	return idx.pending[pairKey{equipment, c}]
}

// WeekEntry returns the target week's entry for the pair, if any.
func (idx *Index) WeekEntry(equipment string, c Category) (*ScheduleEntry, bool) {
	e, ok := idx.weekEntries[pairKey{equipment, c}]
	return e, ok
}

// AnnualThisWeek reports whether the target week already holds an Annual
// entry for the equipment.
func (idx *Index) AnnualThisWeek(equipment string) bool {
	return idx.weekAnnual[equipment]
}

// Tier returns the explicit priority tier for the equipment, or DefaultTier
// when it appears on no list.
func (idx *Index) Tier(equipment string) int {
	if t, ok := idx.tiers[equipment]; ok {
		return t
	}
	return DefaultTier
}

// OverdueDays measures how far past due the pair is at the reference date.
// Equipment with no recorded due date counts as maximally overdue.
func (idx *Index) OverdueDays(eq *Equipment, c Category) int {
	due := eq.NextDue(c)
	if due == nil {
		return overdueNever
	}
	return DaysBetween(*due, idx.AsOf)
}
