package pm

import (
	"strings"
	"time"
)

// EffectiveRoster filters technicians to those active and not named in the
// exclusion set, preserving roster order. Name matching ignores surrounding
// whitespace.
func EffectiveRoster(roster []Technician, excluded []string) []Technician {
	skip := make(map[string]bool, len(excluded))
	for _, name := range excluded {
		skip[strings.TrimSpace(name)] = true
	}

	var effective []Technician
	for _, t := range roster {
		if !t.Active || skip[strings.TrimSpace(t.Name)] {
			continue
		}
		effective = append(effective, t)
	}
	return effective
}

// Assign walks the ranked candidate list and greedily places each entry
// with the least-loaded technician (ties broken by roster order) on the
// least-loaded weekday (ties broken by earlier day). Running counts start
// from the entries already persisted for the week, so a partially completed
// week keeps its balance. Assignment stops when weeklyTarget new entries
// exist or candidates run out; weeklyTarget <= 0 means no ceiling.
//
// The second return value is the eligible overflow: candidates that were
// due but could not be placed before the ceiling, reported for capacity
// visibility.
func Assign(ranked []Candidate, roster []Technician, week time.Time, weeklyTarget int, existing []ScheduleEntry) ([]ScheduleEntry, []Candidate) {
	if len(roster) == 0 {
		return nil, nil
	}

	week = Midnight(week)

	techCount := make([]int, len(roster))
	techIdx := make(map[string]int, len(roster))
	for i, t := range roster {
		techIdx[t.Name] = i
	}

	var dayCount [Workdays]int

	for _, e := range existing {
		if i, ok := techIdx[e.Technician]; ok {
			techCount[i]++
		}
		if d := DaysBetween(week, e.ScheduledOn); d >= 0 && d < Workdays {
			dayCount[d]++
		}
	}

	var entries []ScheduleEntry
	for pos, cand := range ranked {
		if weeklyTarget > 0 && len(entries) >= weeklyTarget {
			overflow := make([]Candidate, len(ranked)-pos)
			copy(overflow, ranked[pos:])
			return entries, overflow
		}

		tech := argmin(techCount)
		day := argmin(dayCount[:])

		entries = append(entries, ScheduleEntry{
			WeekStart:   week,
			Equipment:   cand.Equipment,
			Category:    cand.Category,
			Technician:  roster[tech].Name,
			ScheduledOn: week.AddDate(0, 0, day),
			Status:      EntryScheduled,
		})
		techCount[tech]++
		dayCount[day]++
	}

	return entries, nil
}

// argmin returns the first index holding the minimum value, so ties resolve
// to roster order for technicians and to the earlier day for weekdays.
func argmin(counts []int) int {
	best := 0
	for i, c := range counts {
		if c < counts[best] {
			best = i
		}
	}
	return best
}
