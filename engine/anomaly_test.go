package engine_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/storeops/shiftledger/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoHours() decimal.Decimal { return decimal.NewFromInt(2) }

func findCheck(t *testing.T, checks []engine.OperationalCheck, key engine.CheckKey) engine.OperationalCheck {
	t.Helper()
	for _, c := range checks {
		if c.Key == key {
			return c
		}
	}
	t.Fatalf("check %s not found", key)
	return engine.OperationalCheck{}
}

// =============================================================================
// UNAPPROVED SHIFTS
// =============================================================================

func TestRunChecks_ManualCloseWithoutReview(t *testing.T) {
	r := region()
	w := endedShift(r, "ws-1", "emp-1", "store-1", feb10(), engine.ShiftOpen, 8, 0, 14, 0)
	w.ManuallyClosed = true

	checks := engine.RunChecks(r, []engine.WorkedShift{w}, engine.MatchResult{}, nil, twoHours())

	c := findCheck(t, checks, engine.CheckUnapprovedShifts)
	assert.False(t, c.OK)
	assert.Equal(t, 1, c.Count)
	require.Len(t, c.Details, 1)
	assert.Equal(t, "ws-1", c.Details[0].WorkedShiftID)
}

func TestRunChecks_ManualCloseReviewed_OK(t *testing.T) {
	r := region()
	reviewed := localInstant(r, feb10(), 15, 0)
	w := endedShift(r, "ws-1", "emp-1", "store-1", feb10(), engine.ShiftOpen, 8, 0, 14, 0)
	w.ManuallyClosed = true
	w.ManualCloseReviewedAt = &reviewed

	checks := engine.RunChecks(r, []engine.WorkedShift{w}, engine.MatchResult{}, nil, twoHours())

	assert.True(t, findCheck(t, checks, engine.CheckUnapprovedShifts).OK)
}

func TestRunChecks_OverrideEndedWithoutApproval(t *testing.T) {
	r := region()
	w := endedShift(r, "ws-1", "emp-1", "store-1", feb10(), engine.ShiftOpen, 8, 0, 23, 30)
	w.RequiresOverride = true

	checks := engine.RunChecks(r, []engine.WorkedShift{w}, engine.MatchResult{}, nil, twoHours())

	assert.Equal(t, 1, findCheck(t, checks, engine.CheckUnapprovedShifts).Count)
}

func TestRunChecks_OverrideStillOpen_NotUnapproved(t *testing.T) {
	// An override-flagged shift that has not ended yet is only an open
	// shift, not an unapproved one.
	r := region()
	w := engine.WorkedShift{
		ID:               "ws-1",
		EmployeeID:       "emp-1",
		StoreID:          "store-1",
		ShiftType:        engine.ShiftOpen,
		PlannedStart:     localInstant(r, feb10(), 8, 0),
		ActualStart:      localInstant(r, feb10(), 8, 0),
		RequiresOverride: true,
	}

	checks := engine.RunChecks(r, []engine.WorkedShift{w}, engine.MatchResult{}, nil, twoHours())

	assert.True(t, findCheck(t, checks, engine.CheckUnapprovedShifts).OK)
	assert.Equal(t, 1, findCheck(t, checks, engine.CheckOpenShifts).Count)
}

// =============================================================================
// UNEXPLAINED VARIANCE
// =============================================================================

func TestRunChecks_VarianceMeasuredFromPlannedStart(t *testing.T) {
	// GIVEN: scheduled 08:00-14:00 (360 min); planned start 08:00, late
	//        actual clock-in 10:30, ended 11:00
	// THEN: drift runs planned-start to end (180 min vs 360, 3h), so the
	//       undocumented late arrival itself contributes to the flag
	r := region()
	sched := publishedShift("sch-1", "emp-1", "store-1", feb10(), engine.ShiftOpen, "08:00", "14:00")
	byID := map[string]engine.ScheduledShift{"sch-1": sched}

	w := endedShift(r, "ws-1", "emp-1", "store-1", feb10(), engine.ShiftOpen, 8, 0, 11, 0)
	w.ActualStart = localInstant(r, feb10(), 10, 30)
	w.LinkedScheduledShiftID = "sch-1"

	// planned 08:00 to end 11:00 = 180 min, drift 180 min = 3h >= 2h
	checks := engine.RunChecks(r, []engine.WorkedShift{w}, engine.MatchResult{}, byID, twoHours())

	c := findCheck(t, checks, engine.CheckUnexplainedVariance)
	assert.Equal(t, 1, c.Count)
	require.Len(t, c.Details, 1)
	assert.Equal(t, "sch-1", c.Details[0].ScheduledShiftID)
}

func TestRunChecks_VarianceBelowThreshold_OK(t *testing.T) {
	r := region()
	sched := publishedShift("sch-1", "emp-1", "store-1", feb10(), engine.ShiftOpen, "08:00", "14:00")
	byID := map[string]engine.ScheduledShift{"sch-1": sched}

	// 08:00 to 14:50 = 410 min vs 360 scheduled: 50 min drift < 2h
	w := endedShift(r, "ws-1", "emp-1", "store-1", feb10(), engine.ShiftOpen, 8, 0, 14, 50)
	w.LinkedScheduledShiftID = "sch-1"

	checks := engine.RunChecks(r, []engine.WorkedShift{w}, engine.MatchResult{}, byID, twoHours())

	assert.True(t, findCheck(t, checks, engine.CheckUnexplainedVariance).OK)
}

func TestRunChecks_VarianceWithOverrideNote_NotFlagged(t *testing.T) {
	// A documented override note explains the drift.
	r := region()
	sched := publishedShift("sch-1", "emp-1", "store-1", feb10(), engine.ShiftOpen, "08:00", "14:00")
	byID := map[string]engine.ScheduledShift{"sch-1": sched}

	w := endedShift(r, "ws-1", "emp-1", "store-1", feb10(), engine.ShiftOpen, 8, 0, 19, 0)
	w.LinkedScheduledShiftID = "sch-1"
	w.OverrideNote = "covered evening rush, approved by RM"

	checks := engine.RunChecks(r, []engine.WorkedShift{w}, engine.MatchResult{}, byID, twoHours())

	assert.True(t, findCheck(t, checks, engine.CheckUnexplainedVariance).OK)
}

func TestRunChecks_UnlinkedShiftNeverVariance(t *testing.T) {
	r := region()
	w := endedShift(r, "ws-1", "emp-1", "store-1", feb10(), engine.ShiftOpen, 8, 0, 23, 0)

	checks := engine.RunChecks(r, []engine.WorkedShift{w}, engine.MatchResult{}, nil, twoHours())

	assert.True(t, findCheck(t, checks, engine.CheckUnexplainedVariance).OK)
}

// =============================================================================
// DETAILS CAP
// =============================================================================

func TestRunChecks_DetailsCappedCountExact(t *testing.T) {
	// GIVEN: 15 open shifts
	// THEN: count is 15, details hold only the first 10
	r := region()
	var shifts []engine.WorkedShift
	for i := 0; i < 15; i++ {
		shifts = append(shifts, engine.WorkedShift{
			ID:           string(rune('a' + i)),
			EmployeeID:   "emp-1",
			StoreID:      "store-1",
			ShiftType:    engine.ShiftOpen,
			PlannedStart: localInstant(r, feb10(), 8, 0),
			ActualStart:  localInstant(r, feb10(), 8, 0),
		})
	}

	checks := engine.RunChecks(r, shifts, engine.MatchResult{}, nil, twoHours())

	c := findCheck(t, checks, engine.CheckOpenShifts)
	assert.Equal(t, 15, c.Count)
	assert.Len(t, c.Details, 10)
}
