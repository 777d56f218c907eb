/*
coverage.go - Scheduled-vs-worked shift matching

PURPOSE:
  Decides, for each published scheduled shift inside the worked-through
  window, whether some worked shift satisfies it. Matching is fuzzy on
  shift type: a double covers either of its halves, and a single logged
  half satisfies a scheduled double (the missing half is caught by the
  variance checks, not by coverage).

ALGORITHM:
  1. Index worked shifts by (employee, store, business date of planned start).
  2. An explicit linkedScheduledShiftID always matches.
  3. Otherwise any worked shift under the same key with a compatible type
     matches.
  4. Whatever remains is the missing-coverage anomaly set.

SEE ALSO:
  - anomaly.go: consumes MatchResult
*/
package engine

// coverageKey identifies the day a schedule slot and a clock record must
// share before type compatibility is even considered.
type coverageKey struct {
	EmployeeID string
	StoreID    string
	Date       BusinessDate
}

// MatchedSchedule pairs a scheduled shift with the worked shift that
// satisfied it.
type MatchedSchedule struct {
	Schedule ScheduledShift
	Worked   WorkedShift
	ByLink   bool
}

// MatchResult is the coverage matcher's full output.
type MatchResult struct {
	Matched []MatchedSchedule

	// Missing holds published schedules with no satisfying worked shift.
	Missing []ScheduledShift
}

// MatchCoverage pairs each scheduled shift with zero-or-one worked shift.
// Schedules must already be filtered to published rows in the
// worked-through window; shifts to non-deleted rows.
func MatchCoverage(region Region, schedules []ScheduledShift, shifts []WorkedShift) MatchResult {
	byKey := make(map[coverageKey][]WorkedShift)
	byLink := make(map[string]WorkedShift)
	for _, w := range shifts {
		k := coverageKey{
			EmployeeID: w.EmployeeID,
			StoreID:    w.StoreID,
			Date:       region.BusinessDateOf(w.PlannedStart),
		}
		byKey[k] = append(byKey[k], w)
		if w.LinkedScheduledShiftID != "" {
			// Index by the link target for the explicit-match pass.
			byLink[w.LinkedScheduledShiftID] = w
		}
	}

	var result MatchResult
	for _, s := range schedules {
		if w, ok := byLink[s.ID]; ok {
			result.Matched = append(result.Matched, MatchedSchedule{Schedule: s, Worked: w, ByLink: true})
			continue
		}

		k := coverageKey{EmployeeID: s.EmployeeID, StoreID: s.StoreID, Date: s.Date}
		if w, ok := firstCompatible(s.ShiftType, byKey[k]); ok {
			result.Matched = append(result.Matched, MatchedSchedule{Schedule: s, Worked: w})
			continue
		}

		result.Missing = append(result.Missing, s)
	}
	return result
}

func firstCompatible(scheduled ShiftType, candidates []WorkedShift) (WorkedShift, bool) {
	for _, w := range candidates {
		if Compatible(scheduled, w.ShiftType) {
			return w, true
		}
	}
	return WorkedShift{}, false
}

// Compatible reports whether a worked shift of type worked satisfies a
// scheduled slot of type scheduled.
//
// Equal types always match. A worked double covers a scheduled open or
// close (it spans that half), and a worked open or close covers a
// scheduled double: a single logged half satisfies the double because the
// other half may be logged separately or missing, which the variance
// checks surface instead of coverage.
func Compatible(scheduled, worked ShiftType) bool {
	if scheduled == worked {
		return true
	}
	if worked == ShiftDouble && (scheduled == ShiftOpen || scheduled == ShiftClose) {
		return true
	}
	if scheduled == ShiftDouble && (worked == ShiftOpen || worked == ShiftClose) {
		return true
	}
	return false
}
