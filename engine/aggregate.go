/*
aggregate.go - Reconciliation entry point and rollups

PURPOSE:
  Reconcile is the engine's single entry point. It validates the window,
  splits the period into the worked-through [from, asOf] and projected
  (asOf, to] sub-windows, runs coverage matching and the operational
  checks, and rolls everything up into per-employee summaries, a
  cross-store staffing view, and cross-view deltas.

WINDOWS:
  worked-through [from, asOf]: ended worked shifts contribute workedHours;
    schedules here feed the coverage matcher and the anomaly checks.
  projected (asOf, to]: published schedules with no worked counterpart yet
    contribute projectedHours.
  scheduledHours always spans the FULL [from, to] period.

IDENTITY:
  submitHours = workedHours + projectedHours - advanceHours, exactly.
  Inputs are already rounded; no rounding happens at this step.

CONCURRENCY:
  Pure single-threaded computation over in-memory rows. No shared state
  across invocations; concurrent runs for different parameters are safe.
*/
package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Reconcile runs a full reconciliation over validated, pre-authorized row
// sets. The only possible errors are window-validation errors; once the
// window is accepted the computation cannot fail.
func Reconcile(region Region, in Input) (Report, error) {
	if in.AsOf.IsZero() {
		in.AsOf = in.To
	}
	if err := validateWindow(in.From, in.To, in.AsOf); err != nil {
		return Report{}, err
	}

	thresholds := effectiveThresholds(in.StoreIDs, in.Settings)

	// Partition published schedules into the two sub-windows. Draft rows
	// and out-of-period rows never participate.
	var workedThrough, projected, all []ScheduledShift
	scheduleByID := make(map[string]ScheduledShift)
	for _, s := range in.Schedules {
		if s.Status != SchedulePublished || !s.Date.InRange(in.From, in.To) {
			continue
		}
		all = append(all, s)
		scheduleByID[s.ID] = s
		if s.Date.After(in.AsOf) {
			projected = append(projected, s)
		} else {
			workedThrough = append(workedThrough, s)
		}
	}

	// Worked shifts in the worked-through window, soft-deleted excluded.
	var shifts []WorkedShift
	for _, w := range in.Shifts {
		if w.SoftDeleted {
			continue
		}
		if region.BusinessDateOf(w.PlannedStart).InRange(in.From, in.AsOf) {
			shifts = append(shifts, w)
		}
	}

	coverage := MatchCoverage(region, workedThrough, shifts)
	checks := RunChecks(region, shifts, coverage, scheduleByID, thresholds.ShiftDriftWarnHours)

	employees := summarizeEmployees(region, in, all, projected, shifts)
	staffing := rollupStaffing(in.Bucket, all, workedThrough, coverage)

	totalScheduled := decimal.Zero
	totalSubmit := decimal.Zero
	for _, e := range employees {
		totalScheduled = totalScheduled.Add(e.ScheduledHours)
		totalSubmit = totalSubmit.Add(e.SubmitHours)
	}

	deltas := computeDeltas(totalScheduled, totalSubmit, staffing)

	status := StatusOK
	for _, c := range checks {
		if !c.OK {
			status = StatusNeedsAttention
		}
	}
	if deltas.ScheduledMinusSubmitted.Abs().GreaterThan(thresholds.VarianceWarnHours) {
		status = StatusNeedsAttention
	}

	return Report{
		From:                in.From,
		To:                  in.To,
		AsOf:                in.AsOf,
		StoreIDs:            in.StoreIDs,
		Status:              status,
		Thresholds:          thresholds,
		Checks:              checks,
		Employees:           employees,
		Staffing:            staffing,
		Deltas:              deltas,
		TotalScheduledHours: totalScheduled,
		TotalSubmitHours:    totalSubmit,
	}, nil
}

func validateWindow(from, to, asOf BusinessDate) error {
	if to.Before(from) {
		return &DateRangeError{From: from, To: to, AsOf: asOf, Reason: "to before from"}
	}
	if asOf.Before(from) || asOf.After(to) {
		return &DateRangeError{From: from, To: to, AsOf: asOf, Reason: "asOf outside period"}
	}
	return nil
}

// effectiveThresholds takes the minimum across in-scope stores' settings:
// the stricter store governs the whole run. Stores without a settings row
// contribute nothing; if none has one, the hard default of 2 hours applies.
func effectiveThresholds(storeIDs []string, settings []StoreSettings) Thresholds {
	inScope := make(map[string]bool, len(storeIDs))
	for _, id := range storeIDs {
		inScope[id] = true
	}

	t := Thresholds{}
	found := false
	for _, s := range settings {
		if len(storeIDs) > 0 && !inScope[s.StoreID] {
			continue
		}
		if !found {
			t = Thresholds{VarianceWarnHours: s.VarianceWarnHours, ShiftDriftWarnHours: s.ShiftDriftWarnHours}
			found = true
			continue
		}
		if s.VarianceWarnHours.LessThan(t.VarianceWarnHours) {
			t.VarianceWarnHours = s.VarianceWarnHours
		}
		if s.ShiftDriftWarnHours.LessThan(t.ShiftDriftWarnHours) {
			t.ShiftDriftWarnHours = s.ShiftDriftWarnHours
		}
	}
	if !found {
		return Thresholds{
			VarianceWarnHours:   DefaultThresholdHours,
			ShiftDriftWarnHours: DefaultThresholdHours,
		}
	}
	return t
}

// summarizeEmployees builds one summary per employee seen in any input row.
func summarizeEmployees(region Region, in Input, allSchedules, projected []ScheduledShift, shifts []WorkedShift) []EmployeeSummary {
	byEmployee := make(map[string]*EmployeeSummary)
	get := func(employeeID string) *EmployeeSummary {
		if s, ok := byEmployee[employeeID]; ok {
			return s
		}
		name := in.EmployeeNames[employeeID]
		if name == "" {
			name = employeeID
		}
		s := &EmployeeSummary{
			EmployeeID:     employeeID,
			Name:           name,
			WorkedHours:    decimal.Zero,
			ProjectedHours: decimal.Zero,
			ScheduledHours: decimal.Zero,
			AdvanceHours:   decimal.Zero,
			SubmitHours:    decimal.Zero,
		}
		byEmployee[employeeID] = s
		return s
	}

	for _, s := range allSchedules {
		e := get(s.EmployeeID)
		e.ScheduledHours = e.ScheduledHours.Add(RoundToPayrollHours(s.ScheduledMinutes()))
	}
	for _, s := range projected {
		e := get(s.EmployeeID)
		e.ProjectedHours = e.ProjectedHours.Add(RoundToPayrollHours(s.ScheduledMinutes()))
	}
	for _, w := range shifts {
		if !w.Ended() {
			continue
		}
		e := get(w.EmployeeID)
		e.WorkedHours = e.WorkedHours.Add(RoundToPayrollHours(w.WorkedMinutes()))
	}
	for _, a := range in.Advances {
		if a.Status != AdvanceVerified || !a.Date.InRange(in.From, in.To) {
			continue
		}
		e := get(a.EmployeeID)
		e.AdvanceHours = e.AdvanceHours.Add(a.Hours)
	}

	out := make([]EmployeeSummary, 0, len(byEmployee))
	for _, e := range byEmployee {
		e.SubmitHours = e.WorkedHours.Add(e.ProjectedHours).Sub(e.AdvanceHours)
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out
}

// rollupStaffing buckets full-period scheduled hours by store label and
// tracks the worked-through matched/total split behind coverage percent.
// Stores with no bucket label count only in the grand total.
func rollupStaffing(bucket BucketFunc, allSchedules, workedThrough []ScheduledShift, coverage MatchResult) StaffingRollup {
	byLabel := make(map[string]decimal.Decimal)
	total := decimal.Zero
	for _, s := range allSchedules {
		hours := RoundToPayrollHours(s.ScheduledMinutes())
		total = total.Add(hours)
		if bucket == nil {
			continue
		}
		if label, ok := bucket(s.StoreID); ok {
			byLabel[label] = byLabel[label].Add(hours)
		}
	}

	wtTotal := decimal.Zero
	for _, s := range workedThrough {
		wtTotal = wtTotal.Add(RoundToPayrollHours(s.ScheduledMinutes()))
	}
	wtMatched := decimal.Zero
	for _, m := range coverage.Matched {
		wtMatched = wtMatched.Add(RoundToPayrollHours(m.Schedule.ScheduledMinutes()))
	}

	labels := make([]string, 0, len(byLabel))
	for label := range byLabel {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	buckets := make([]StaffingBucket, 0, len(labels))
	for _, label := range labels {
		buckets = append(buckets, StaffingBucket{Label: label, ScheduledHours: byLabel[label]})
	}

	return StaffingRollup{
		Buckets:                     buckets,
		TotalScheduledHours:         total,
		WorkedThroughScheduledHours: wtTotal,
		WorkedThroughMatchedHours:   wtMatched,
	}
}

func computeDeltas(totalScheduled, totalSubmit decimal.Decimal, staffing StaffingRollup) Deltas {
	coverage := hundred
	if !staffing.WorkedThroughScheduledHours.IsZero() {
		coverage = staffing.WorkedThroughMatchedHours.
			Div(staffing.WorkedThroughScheduledHours).
			Mul(hundred)
	}
	return Deltas{
		ScheduledMinusSubmitted: totalScheduled.Sub(totalSubmit),
		SubmittedMinusScheduled: totalSubmit.Sub(totalScheduled),
		OpenMinusSubmitted:      staffing.TotalScheduledHours.Sub(totalSubmit),
		CoveragePercent:         coverage,
	}
}
