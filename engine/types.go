/*
Package engine implements the payroll & shift reconciliation engine.

PURPOSE:
  This package reconciles three independent, imperfectly-overlapping data
  sources — published schedules, actual clock events, and manual payroll
  advances — into (a) an auditable set of anomaly flags a manager must act
  on, and (b) a canonical "hours to submit" figure per employee for a
  payroll period.

KEY CONCEPTS IN THIS FILE (types.go):
  - ScheduledShift: A published (or draft) slot on the schedule
  - WorkedShift:    An actual clock-in/clock-out record
  - PayrollAdvance: Hours paid out ahead of the normal payroll run
  - StoreSettings:  Per-store reconciliation thresholds
  - Report:         The full output of a reconciliation run

DESIGN PRINCIPLES:
  1. Purity: the engine performs no I/O. It consumes already-fetched,
     already-authorized row sets and emits plain data structures.
  2. Precision: all hour amounts are decimal.Decimal. No floating money.
  3. One clock: all business-date math goes through the Region normalizer
     (civil.go). Duplicating offset math elsewhere is a defect.
  4. Derived state is transient: nothing computed here is ever written back.

USAGE:
  region, _ := engine.NewRegion("America/Chicago")
  report, err := engine.Reconcile(region, engine.Input{...})

SEE ALSO:
  - civil.go:    BusinessDate and regional offset math
  - rounding.go: Payroll hour rounding policy
  - coverage.go: Scheduled-vs-worked shift matching
  - anomaly.go:  Operational checks
  - aggregate.go: Per-employee and per-store rollups
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SHIFT TYPES AND STATUSES
// =============================================================================

// ShiftType classifies a shift slot. Open and close are the two halves of a
// trading day; a double spans both.
type ShiftType string

const (
	ShiftOpen   ShiftType = "open"
	ShiftClose  ShiftType = "close"
	ShiftDouble ShiftType = "double"
	ShiftOther  ShiftType = "other"
)

// ScheduleStatus is the publication state of a scheduled shift.
// Only published schedules participate in reconciliation.
type ScheduleStatus string

const (
	ScheduleDraft     ScheduleStatus = "draft"
	SchedulePublished ScheduleStatus = "published"
)

// AdvanceStatus is the verification state of a payroll advance.
// Only verified advances reduce payable hours.
type AdvanceStatus string

const (
	AdvancePendingVerification AdvanceStatus = "pending_verification"
	AdvanceVerified            AdvanceStatus = "verified"
	AdvanceVoided              AdvanceStatus = "voided"
)

// =============================================================================
// PERSISTED INPUT ROWS
// =============================================================================

// ScheduledShift is a slot on the published schedule. Created by the
// scheduling subsystem; immutable once published except through it.
type ScheduledShift struct {
	ID         string
	EmployeeID string
	StoreID    string
	Date       BusinessDate
	ShiftType  ShiftType
	Start      TimeOfDay
	End        TimeOfDay
	Status     ScheduleStatus
}

// ScheduledMinutes returns the slot length in minutes. End before start
// means an overnight wrap (+24h).
func (s ScheduledShift) ScheduledMinutes() int {
	return MinutesBetweenTimesOfDay(s.Start, s.End)
}

// WorkedShift is an actual clock record. Created at clock-in; mutated at
// clock-out, admin edit, force-close, and override approval. Never
// hard-deleted: soft-deleted shifts are excluded from all reconciliation
// views.
type WorkedShift struct {
	ID         string
	EmployeeID string
	StoreID    string
	ShiftType  ShiftType

	// PlannedStart is the shift's nominal start; ActualStart is when the
	// employee really clocked in. Drift checks measure from PlannedStart.
	PlannedStart time.Time
	ActualStart  time.Time
	End          *time.Time // nil = still open

	LinkedScheduledShiftID string // "" = not linked

	RequiresOverride   bool
	OverrideApprovedAt *time.Time
	OverrideNote       string

	ManuallyClosed        bool
	ManualCloseReviewedAt *time.Time

	SoftDeleted bool
}

// Ended reports whether the shift has been clocked out or closed.
func (w WorkedShift) Ended() bool { return w.End != nil }

// WorkedMinutes returns the elapsed minutes from actual clock-in to end.
// Returns 0 for open shifts. A garbled row (end before start) comes back
// negative so RoundToPayrollHours can clamp and log it.
func (w WorkedShift) WorkedMinutes() int {
	if w.End == nil {
		return 0
	}
	return int(w.End.Sub(w.ActualStart) / time.Minute)
}

// PlannedMinutes returns the elapsed minutes from planned start to end,
// negative for garbled rows. Returns 0 for open shifts.
func (w WorkedShift) PlannedMinutes() int {
	if w.End == nil {
		return 0
	}
	return int(w.End.Sub(w.PlannedStart) / time.Minute)
}

// PayrollAdvance is a manual payout of hours ahead of the payroll run.
type PayrollAdvance struct {
	ID         string
	EmployeeID string
	StoreID    string
	Date       BusinessDate
	Hours      decimal.Decimal
	Status     AdvanceStatus
}

// StoreSettings holds per-store reconciliation thresholds, in hours.
type StoreSettings struct {
	StoreID             string
	VarianceWarnHours   decimal.Decimal
	ShiftDriftWarnHours decimal.Decimal
}

// =============================================================================
// ENGINE INPUT
// =============================================================================

// BucketFunc classifies a store into a named staffing bucket for the
// cross-store rollup. Returns ok=false when the store belongs to no named
// bucket; such stores count only in the grand total.
type BucketFunc func(storeID string) (label string, ok bool)

// Input is everything a reconciliation run consumes. All row sets must be
// pre-filtered to the caller's authorized store scope; the engine performs
// no authorization.
type Input struct {
	From BusinessDate
	To   BusinessDate

	// AsOf marks how far payroll has actually been worked. Must satisfy
	// From <= AsOf <= To. WorkedShifts through AsOf are actuals; published
	// schedules after AsOf are projections.
	AsOf BusinessDate

	StoreIDs []string

	Schedules []ScheduledShift
	Shifts    []WorkedShift
	Advances  []PayrollAdvance
	Settings  []StoreSettings

	// EmployeeNames maps employee id to display name. Missing entries fall
	// back to the id.
	EmployeeNames map[string]string

	Bucket BucketFunc
}

// =============================================================================
// DERIVED OUTPUT (transient, never persisted)
// =============================================================================

// EmployeeSummary is the per-employee payroll rollup.
// SubmitHours = WorkedHours + ProjectedHours - AdvanceHours.
type EmployeeSummary struct {
	EmployeeID     string
	Name           string
	WorkedHours    decimal.Decimal
	ProjectedHours decimal.Decimal
	ScheduledHours decimal.Decimal
	AdvanceHours   decimal.Decimal
	SubmitHours    decimal.Decimal
}

// StaffingBucket is one named bucket in the cross-store scheduled-hours
// rollup.
type StaffingBucket struct {
	Label          string
	ScheduledHours decimal.Decimal
}

// StaffingRollup is the store-level bucket view of published schedule hours
// over the full period, plus the worked-through matched/total split that
// feeds coverage percent.
type StaffingRollup struct {
	Buckets []StaffingBucket

	// TotalScheduledHours covers every in-scope store, bucketed or not.
	TotalScheduledHours decimal.Decimal

	// Worked-through window only: scheduled hours with and without a
	// covering worked shift.
	WorkedThroughScheduledHours decimal.Decimal
	WorkedThroughMatchedHours   decimal.Decimal
}

// Deltas are the cross-view reconciliation figures. All are plain
// arithmetic over already-computed totals.
type Deltas struct {
	ScheduledMinusSubmitted decimal.Decimal
	SubmittedMinusScheduled decimal.Decimal
	OpenMinusSubmitted      decimal.Decimal

	// CoveragePercent is matched worked-through scheduled hours over total
	// worked-through scheduled hours, times 100. An empty schedule is fully
	// covered (100).
	CoveragePercent decimal.Decimal
}

// Thresholds are the effective warn levels for a run: the minimum across
// in-scope stores' settings, defaulting to 2 hours when no store has a
// settings row.
type Thresholds struct {
	VarianceWarnHours   decimal.Decimal
	ShiftDriftWarnHours decimal.Decimal
}

// ReportStatus summarizes whether a manager needs to act.
type ReportStatus string

const (
	StatusOK             ReportStatus = "ok"
	StatusNeedsAttention ReportStatus = "needs_attention"
)

// Report is the full output of a reconciliation run. Downstream formatters
// must print these numbers verbatim, never recompute them.
type Report struct {
	From     BusinessDate
	To       BusinessDate
	AsOf     BusinessDate
	StoreIDs []string

	Status     ReportStatus
	Thresholds Thresholds

	Checks    []OperationalCheck
	Employees []EmployeeSummary
	Staffing  StaffingRollup
	Deltas    Deltas

	TotalScheduledHours decimal.Decimal
	TotalSubmitHours    decimal.Decimal
}

// Check returns the named operational check, or nil.
func (r *Report) Check(key CheckKey) *OperationalCheck {
	for i := range r.Checks {
		if r.Checks[i].Key == key {
			return &r.Checks[i]
		}
	}
	return nil
}
