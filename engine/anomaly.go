/*
anomaly.go - Operational checks over the worked-through window

PURPOSE:
  Four independent, non-exclusive checks a manager must clear before
  submitting payroll:

    unapproved_shifts    force-closed shifts awaiting review, or
                         override-flagged shifts ended without approval
    missing_coverage     published schedules nobody clocked against
    open_shifts          clock-ins with no clock-out
    unexplained_variance linked shifts whose planned-start-to-end duration
                         drifts from the schedule by at least the store
                         threshold, with no override note explaining it

  Each check keeps its true count uncapped but caps the details payload at
  10 entries for display.

DRIFT IS MEASURED FROM PLANNED START:
  Actual duration for the variance check runs from plannedStart, not
  actualStart. A late-but-undocumented arrival therefore contributes to
  the flagged drift itself.
*/
package engine

import "github.com/shopspring/decimal"

// CheckKey identifies one of the four fixed operational checks.
type CheckKey string

const (
	CheckUnapprovedShifts    CheckKey = "unapproved_shifts"
	CheckMissingCoverage     CheckKey = "missing_coverage"
	CheckOpenShifts          CheckKey = "open_shifts"
	CheckUnexplainedVariance CheckKey = "unexplained_variance"
)

// maxCheckDetails caps the details payload per check. Counts stay exact.
const maxCheckDetails = 10

// CheckDetail is one flagged record inside an operational check.
type CheckDetail struct {
	WorkedShiftID    string
	ScheduledShiftID string
	EmployeeID       string
	StoreID          string
	Date             BusinessDate
	Note             string
}

// OperationalCheck is one check's outcome.
type OperationalCheck struct {
	Key     CheckKey
	Label   string
	OK      bool
	Count   int
	Details []CheckDetail
}

func (c *OperationalCheck) flag(d CheckDetail) {
	c.Count++
	c.OK = false
	if len(c.Details) < maxCheckDetails {
		c.Details = append(c.Details, d)
	}
}

// RunChecks evaluates all four checks over the worked-through shift set and
// the coverage matcher's output. scheduleByID must cover every schedule a
// worked shift may link to.
func RunChecks(
	region Region,
	shifts []WorkedShift,
	coverage MatchResult,
	scheduleByID map[string]ScheduledShift,
	driftWarnHours decimal.Decimal,
) []OperationalCheck {
	unapproved := OperationalCheck{Key: CheckUnapprovedShifts, Label: "Force-closed or override shifts awaiting approval", OK: true}
	missing := OperationalCheck{Key: CheckMissingCoverage, Label: "Published schedules with no logged shift", OK: true}
	open := OperationalCheck{Key: CheckOpenShifts, Label: "Shifts still clocked in", OK: true}
	variance := OperationalCheck{Key: CheckUnexplainedVariance, Label: "Unexplained schedule drift", OK: true}

	for _, w := range shifts {
		date := region.BusinessDateOf(w.PlannedStart)

		if needsApproval(w) {
			unapproved.flag(CheckDetail{
				WorkedShiftID: w.ID,
				EmployeeID:    w.EmployeeID,
				StoreID:       w.StoreID,
				Date:          date,
				Note:          approvalNote(w),
			})
		}

		if !w.Ended() {
			open.flag(CheckDetail{
				WorkedShiftID: w.ID,
				EmployeeID:    w.EmployeeID,
				StoreID:       w.StoreID,
				Date:          date,
			})
		}

		if w.LinkedScheduledShiftID != "" && w.Ended() && w.OverrideNote == "" {
			s, ok := scheduleByID[w.LinkedScheduledShiftID]
			if !ok {
				continue
			}
			drift := driftHours(w.PlannedMinutes() - s.ScheduledMinutes())
			if drift.GreaterThanOrEqual(driftWarnHours) {
				variance.flag(CheckDetail{
					WorkedShiftID:    w.ID,
					ScheduledShiftID: s.ID,
					EmployeeID:       w.EmployeeID,
					StoreID:          w.StoreID,
					Date:             date,
					Note:             drift.StringFixed(2) + "h drift",
				})
			}
		}
	}

	for _, s := range coverage.Missing {
		missing.flag(CheckDetail{
			ScheduledShiftID: s.ID,
			EmployeeID:       s.EmployeeID,
			StoreID:          s.StoreID,
			Date:             s.Date,
		})
	}

	return []OperationalCheck{unapproved, missing, open, variance}
}

// needsApproval reports whether a shift awaits a manager action:
// a manual close nobody reviewed, or an override-flagged shift that ended
// without an approval.
func needsApproval(w WorkedShift) bool {
	if w.ManuallyClosed && w.ManualCloseReviewedAt == nil {
		return true
	}
	if w.RequiresOverride && w.Ended() && w.OverrideApprovedAt == nil {
		return true
	}
	return false
}

func approvalNote(w WorkedShift) string {
	if w.ManuallyClosed && w.ManualCloseReviewedAt == nil {
		return "manual close not reviewed"
	}
	return "override not approved"
}
