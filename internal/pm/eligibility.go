package pm

// EvalOptions tunes the eligibility window checks.
type EvalOptions struct {
	// LookaheadDays is how far into the future a due date may sit and still
	// be scheduled this week.
	LookaheadDays int
	// GraceDays widens the already-pending check backwards from the
	// reference date, so a stale Scheduled entry from a recent week still
	// blocks a duplicate.
	GraceDays int
	// Filters holds optional operator veto expressions.
	Filters *FilterSet
}

// Evaluator applies the eligibility rules for one generation run. It is
// stateful only in that an Annual candidate emitted for an equipment
// suppresses that equipment's shorter cycles for the rest of the run.
type Evaluator struct {
	idx    *Index
	opts   EvalOptions
	annual map[string]bool
}

// NewEvaluator builds an evaluator over an index snapshot.
func NewEvaluator(idx *Index, opts EvalOptions) *Evaluator {
	return &Evaluator{
		idx:    idx,
		opts:   opts,
		annual: make(map[string]bool),
	}
}

// Evaluate decides whether the equipment/category pair may be scheduled in
// the target week. Rules run in a fixed order and the first failure wins;
// the reason code names it. Ineligibility is an expected outcome, never an
// error.
func (ev *Evaluator) Evaluate(eq *Equipment, cat Category) (bool, ReasonCode) {
	if !eq.Applies(cat) {
		return false, ReasonNotApplicable
	}
	if !eq.Schedulable() {
		return false, ReasonExcludedStatus
	}

	if last, ok := ev.idx.LastCompleted(eq.Number, cat); ok {
		if DaysBetween(last, ev.idx.AsOf) < cat.MinRecurrence() {
			return false, ReasonRecentlyCompleted
		}
	}

	// An in-flight Scheduled entry anywhere, or any entry already persisted
	// for the target week, blocks a duplicate assignment of the same pair.
	if ev.idx.HasPending(eq.Number, cat) {
		return false, ReasonAlreadyPending
	}
	if _, ok := ev.idx.WeekEntry(eq.Number, cat); ok {
		return false, ReasonAlreadyPending
	}

	// Annual work suppresses the shorter cycles for the same equipment in
	// the same week. The reverse direction is deliberately open: monthly
	// work never blocks an annual.
	if cat != CategoryAnnual {
		if ev.idx.AnnualThisWeek(eq.Number) || ev.annual[eq.Number] {
			return false, ReasonAnnualConflict
		}
	}

	if due := eq.NextDue(cat); due != nil {
		if DaysBetween(ev.idx.AsOf, *due) > ev.opts.LookaheadDays {
			return false, ReasonNotYetDue
		}
	}

	if ev.opts.Filters != nil {
		vetoed, err := ev.opts.Filters.Vetoed(eq)
		if err != nil || vetoed {
			return false, ReasonFiltered
		}
	}

	if cat == CategoryAnnual {
		ev.annual[eq.Number] = true
	}
	return true, ""
}

// EvaluateAll walks the whole catalog in order, categories per
// Categories, and returns the eligible candidates plus a count of
// skips per reason. The walk order is fixed so repeated runs over identical
// input produce identical candidate lists.
func (ev *Evaluator) EvaluateAll() ([]Candidate, map[ReasonCode]int) {
	var candidates []Candidate
	skipped := make(map[ReasonCode]int)

	for i := range ev.idx.Equipment {
		eq := &ev.idx.Equipment[i]
		for _, cat := range Categories {
			ok, reason := ev.Evaluate(eq, cat)
			if !ok {
				if reason != ReasonNotApplicable {
					skipped[reason]++
				}
				continue
			}
			candidates = append(candidates, Candidate{
				Equipment:   eq.Number,
				Category:    cat,
				Tier:        ev.idx.Tier(eq.Number),
				OverdueDays: ev.idx.OverdueDays(eq, cat),
			})
		}
	}

	return candidates, skipped
}
