/*
Package report renders reconciliation output as plain text.

PURPOSE:
  Turns an engine.Report into the text a manager reads before submitting
  payroll. Pure formatting: every number printed comes verbatim from the
  report structure, nothing is recomputed here.
*/
package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/storeops/shiftledger/engine"
)

// Render produces the human-readable reconciliation summary.
func Render(r engine.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Payroll reconciliation %s to %s (worked through %s)\n", r.From, r.To, r.AsOf)
	fmt.Fprintf(&b, "Status: %s\n\n", r.Status)

	b.WriteString("Checks:\n")
	for _, c := range r.Checks {
		mark := "OK"
		if !c.OK {
			mark = fmt.Sprintf("%d flagged", c.Count)
		}
		fmt.Fprintf(&b, "  [%s] %s\n", mark, c.Label)
		for _, d := range c.Details {
			fmt.Fprintf(&b, "      - %s\n", detailLine(d))
		}
		if c.Count > len(c.Details) {
			fmt.Fprintf(&b, "      ... and %d more\n", c.Count-len(c.Details))
		}
	}

	b.WriteString("\nEmployees:\n")
	if len(r.Employees) == 0 {
		b.WriteString("  (no activity in period)\n")
	}
	for _, e := range r.Employees {
		fmt.Fprintf(&b, "  %-24s worked %6s  projected %6s  advances %6s  submit %6s\n",
			e.Name, hours(e.WorkedHours), hours(e.ProjectedHours),
			hours(e.AdvanceHours), hours(e.SubmitHours))
	}

	if len(r.Staffing.Buckets) > 0 {
		b.WriteString("\nStaffing (scheduled hours):\n")
		for _, bucket := range r.Staffing.Buckets {
			fmt.Fprintf(&b, "  %-12s %s\n", bucket.Label, hours(bucket.ScheduledHours))
		}
		fmt.Fprintf(&b, "  %-12s %s\n", "total", hours(r.Staffing.TotalScheduledHours))
	}

	b.WriteString("\nReconciliation:\n")
	fmt.Fprintf(&b, "  scheduled - submitted: %s\n", hours(r.Deltas.ScheduledMinusSubmitted))
	fmt.Fprintf(&b, "  submitted - scheduled: %s\n", hours(r.Deltas.SubmittedMinusScheduled))
	fmt.Fprintf(&b, "  open - submitted:      %s\n", hours(r.Deltas.OpenMinusSubmitted))
	fmt.Fprintf(&b, "  coverage:              %s%%\n", r.Deltas.CoveragePercent.StringFixed(1))

	return b.String()
}

func detailLine(d engine.CheckDetail) string {
	parts := []string{}
	if d.WorkedShiftID != "" {
		parts = append(parts, "shift "+d.WorkedShiftID)
	}
	if d.ScheduledShiftID != "" {
		parts = append(parts, "schedule "+d.ScheduledShiftID)
	}
	parts = append(parts, d.EmployeeID, d.StoreID, d.Date.String())
	if d.Note != "" {
		parts = append(parts, d.Note)
	}
	return strings.Join(parts, " / ")
}

func hours(d decimal.Decimal) string {
	return d.StringFixed(2) + "h"
}
