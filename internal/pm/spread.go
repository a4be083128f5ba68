package pm

import (
	"hash/fnv"
	"time"
)

// spreadRange covers offsets in [-30, +30].
const spreadRange = 61

// NextAnnualDue computes the next annual due date for a completion:
// completion date plus 365 days plus a per-equipment offset in [-30, +30]
// days. Equipment completed in the same week would otherwise all fall due in
// the same week a year later; the offset spreads that spike while staying
// stable for any given equipment number, so repeated computation always
// lands on the same date.
//
// The offset is derived from the trailing digit run of the equipment number
// (e.g. "BFM-0042" -> 42). Numbers without digits fall back to FNV-1a over
// the whole string.
func NextAnnualDue(equipmentNo string, completedOn time.Time) time.Time {
	return Midnight(completedOn).AddDate(0, 0, 365+spreadOffset(equipmentNo))
}

// spreadOffset maps an equipment number to a deterministic day offset in
// [-30, +30].
func spreadOffset(equipmentNo string) int {
	if n, ok := trailingNumber(equipmentNo); ok {
		return n%spreadRange - 30
	}
	h := fnv.New32a()
	h.Write([]byte(equipmentNo))
	return int(h.Sum32()%spreadRange) - 30
}

// trailingNumber extracts the last run of decimal digits in s as an int.
// Runs longer than 18 digits keep only the low-order 18 to avoid overflow.
func trailingNumber(s string) (int, bool) {
	end := -1
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] >= '0' && s[i] <= '9' {
			end = i + 1
			break
		}
	}
	if end == -1 {
		return 0, false
	}
	start := end
	for start > 0 && s[start-1] >= '0' && s[start-1] <= '9' {
		start--
	}
	if end-start > 18 {
		start = end - 18
	}
	n := 0
	for _, c := range s[start:end] {
		n = n*10 + int(c-'0')
	}
	return n, true
}
