/*
lifecycle_test.go - Worked-shift clock lifecycle tests

Covers the full clock lifecycle: clock-in/out, the one-open-shift rule,
force-close with the override ceiling, approval flows, and soft delete.
*/
package shifts_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storeops/shiftledger/engine"
	"github.com/storeops/shiftledger/shifts"
	"github.com/storeops/shiftledger/store/memory"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

// fixedClock returns a service clock that always reads t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newService(now time.Time) (*shifts.Service, *memory.Store) {
	store := memory.New()
	svc := shifts.NewService(store, nil).WithClock(fixedClock(now))
	return svc, store
}

var baseTime = time.Date(2026, time.February, 10, 14, 0, 0, 0, time.UTC)

// =============================================================================
// CLOCK-IN
// =============================================================================

func TestClockIn_CreatesOpenShift(t *testing.T) {
	// GIVEN a service with no existing shifts
	svc, _ := newService(baseTime)

	// WHEN an employee clocks in
	w, err := svc.ClockIn(context.Background(), shifts.ClockInParams{
		EmployeeID: "emp-1",
		StoreID:    "store-1",
		ShiftType:  engine.ShiftOpen,
	})
	require.NoError(t, err)

	// THEN the shift is open and stamped with the clock instant
	assert.NotEmpty(t, w.ID)
	assert.False(t, w.Ended())
	assert.Equal(t, baseTime, w.ActualStart)
	// No planned start given, so it defaults to the clock-in instant
	assert.Equal(t, baseTime, w.PlannedStart)
}

func TestClockIn_KeepsExplicitPlannedStart(t *testing.T) {
	svc, _ := newService(baseTime)

	planned := baseTime.Add(-10 * time.Minute)
	w, err := svc.ClockIn(context.Background(), shifts.ClockInParams{
		EmployeeID:             "emp-1",
		StoreID:                "store-1",
		ShiftType:              engine.ShiftOpen,
		PlannedStart:           planned,
		LinkedScheduledShiftID: "sch-1",
	})
	require.NoError(t, err)

	assert.Equal(t, planned, w.PlannedStart)
	assert.Equal(t, baseTime, w.ActualStart)
	assert.Equal(t, "sch-1", w.LinkedScheduledShiftID)
}

func TestClockIn_RejectsSecondOpenShiftAtSameStore(t *testing.T) {
	// GIVEN an employee with an open shift at store-1
	svc, _ := newService(baseTime)
	_, err := svc.ClockIn(context.Background(), shifts.ClockInParams{
		EmployeeID: "emp-1", StoreID: "store-1", ShiftType: engine.ShiftOpen,
	})
	require.NoError(t, err)

	// WHEN they clock in again at the same store
	_, err = svc.ClockIn(context.Background(), shifts.ClockInParams{
		EmployeeID: "emp-1", StoreID: "store-1", ShiftType: engine.ShiftClose,
	})

	// THEN the second clock-in is rejected
	assert.ErrorIs(t, err, shifts.ErrAlreadyClockedIn)
}

func TestClockIn_AllowsOpenShiftAtDifferentStore(t *testing.T) {
	svc, _ := newService(baseTime)
	_, err := svc.ClockIn(context.Background(), shifts.ClockInParams{
		EmployeeID: "emp-1", StoreID: "store-1", ShiftType: engine.ShiftOpen,
	})
	require.NoError(t, err)

	_, err = svc.ClockIn(context.Background(), shifts.ClockInParams{
		EmployeeID: "emp-1", StoreID: "store-2", ShiftType: engine.ShiftOpen,
	})
	assert.NoError(t, err)
}

// =============================================================================
// CLOCK-OUT
// =============================================================================

func TestClockOut_EndsShift(t *testing.T) {
	svc, _ := newService(baseTime)
	w, err := svc.ClockIn(context.Background(), shifts.ClockInParams{
		EmployeeID: "emp-1", StoreID: "store-1", ShiftType: engine.ShiftOpen,
	})
	require.NoError(t, err)

	// WHEN they clock out 6h05m later
	end := baseTime.Add(6*time.Hour + 5*time.Minute)
	svc.WithClock(fixedClock(end))
	closed, err := svc.ClockOut(context.Background(), w.ID)
	require.NoError(t, err)

	// THEN the shift is ended with the worked minutes measured from
	// actual start
	require.True(t, closed.Ended())
	assert.Equal(t, end, *closed.End)
	assert.Equal(t, 365, closed.WorkedMinutes())
	assert.False(t, closed.ManuallyClosed)
}

func TestClockOut_RejectsEndedShift(t *testing.T) {
	svc, _ := newService(baseTime)
	w, err := svc.ClockIn(context.Background(), shifts.ClockInParams{
		EmployeeID: "emp-1", StoreID: "store-1", ShiftType: engine.ShiftOpen,
	})
	require.NoError(t, err)
	_, err = svc.ClockOut(context.Background(), w.ID)
	require.NoError(t, err)

	_, err = svc.ClockOut(context.Background(), w.ID)
	assert.ErrorIs(t, err, shifts.ErrShiftAlreadyEnded)
}

func TestClockOut_UnknownShift(t *testing.T) {
	svc, _ := newService(baseTime)
	_, err := svc.ClockOut(context.Background(), "nope")
	assert.ErrorIs(t, err, shifts.ErrShiftNotFound)
}

// =============================================================================
// FORCE-CLOSE AND OVERRIDE
// =============================================================================

func TestForceClose_MarksManualCloseForReview(t *testing.T) {
	// GIVEN a shift that has been open for 5 hours
	svc, _ := newService(baseTime)
	w, err := svc.ClockIn(context.Background(), shifts.ClockInParams{
		EmployeeID: "emp-1", StoreID: "store-1", ShiftType: engine.ShiftClose,
	})
	require.NoError(t, err)

	// WHEN an admin force-closes it
	svc.WithClock(fixedClock(baseTime.Add(5 * time.Hour)))
	closed, err := svc.ForceClose(context.Background(), w.ID, "register left open")
	require.NoError(t, err)

	// THEN it is ended and flagged for manual-close review, but under
	// the ceiling it does not need an override
	assert.True(t, closed.Ended())
	assert.True(t, closed.ManuallyClosed)
	assert.False(t, closed.RequiresOverride)
	assert.Equal(t, "register left open", closed.OverrideNote)
}

func TestForceClose_PastCeilingRequiresOverride(t *testing.T) {
	// GIVEN a shift that has been open past the 14h ceiling
	svc, _ := newService(baseTime)
	w, err := svc.ClockIn(context.Background(), shifts.ClockInParams{
		EmployeeID: "emp-1", StoreID: "store-1", ShiftType: engine.ShiftDouble,
	})
	require.NoError(t, err)

	// WHEN it is force-closed 16 hours in
	svc.WithClock(fixedClock(baseTime.Add(16 * time.Hour)))
	closed, err := svc.ForceClose(context.Background(), w.ID, "forgot to clock out")
	require.NoError(t, err)

	// THEN the shift needs a manager override before payroll can use it
	assert.True(t, closed.RequiresOverride)
	assert.True(t, closed.ManuallyClosed)
}

func TestForceClose_ExactlyAtCeilingDoesNotRequireOverride(t *testing.T) {
	svc, _ := newService(baseTime)
	w, err := svc.ClockIn(context.Background(), shifts.ClockInParams{
		EmployeeID: "emp-1", StoreID: "store-1", ShiftType: engine.ShiftDouble,
	})
	require.NoError(t, err)

	svc.WithClock(fixedClock(baseTime.Add(shifts.OverrideCeiling)))
	closed, err := svc.ForceClose(context.Background(), w.ID, "long double")
	require.NoError(t, err)

	assert.False(t, closed.RequiresOverride)
}

func TestApproveOverride_SetsApproval(t *testing.T) {
	// GIVEN an override-flagged, force-closed shift
	svc, _ := newService(baseTime)
	w, err := svc.ClockIn(context.Background(), shifts.ClockInParams{
		EmployeeID: "emp-1", StoreID: "store-1", ShiftType: engine.ShiftOpen,
	})
	require.NoError(t, err)
	approveAt := baseTime.Add(20 * time.Hour)
	svc.WithClock(fixedClock(baseTime.Add(16 * time.Hour)))
	_, err = svc.ForceClose(context.Background(), w.ID, "stuck")
	require.NoError(t, err)

	// WHEN a manager approves the override
	svc.WithClock(fixedClock(approveAt))
	approved, err := svc.ApproveOverride(context.Background(), w.ID, "confirmed with manager")
	require.NoError(t, err)

	// THEN the approval instant and note are recorded
	require.NotNil(t, approved.OverrideApprovedAt)
	assert.Equal(t, approveAt, *approved.OverrideApprovedAt)
	assert.Equal(t, "confirmed with manager", approved.OverrideNote)
}

func TestApproveOverride_RequiresEndedShift(t *testing.T) {
	svc, _ := newService(baseTime)
	w, err := svc.ClockIn(context.Background(), shifts.ClockInParams{
		EmployeeID: "emp-1", StoreID: "store-1", ShiftType: engine.ShiftOpen,
	})
	require.NoError(t, err)

	_, err = svc.ApproveOverride(context.Background(), w.ID, "")
	assert.ErrorIs(t, err, shifts.ErrShiftStillOpen)
}

func TestApproveOverride_RequiresOverrideFlag(t *testing.T) {
	// A normally clocked-out shift has nothing to approve.
	svc, _ := newService(baseTime)
	w, err := svc.ClockIn(context.Background(), shifts.ClockInParams{
		EmployeeID: "emp-1", StoreID: "store-1", ShiftType: engine.ShiftOpen,
	})
	require.NoError(t, err)
	_, err = svc.ClockOut(context.Background(), w.ID)
	require.NoError(t, err)

	_, err = svc.ApproveOverride(context.Background(), w.ID, "")
	assert.ErrorIs(t, err, shifts.ErrNothingToApprove)
}

func TestReviewManualClose_SetsReviewInstant(t *testing.T) {
	svc, _ := newService(baseTime)
	w, err := svc.ClockIn(context.Background(), shifts.ClockInParams{
		EmployeeID: "emp-1", StoreID: "store-1", ShiftType: engine.ShiftOpen,
	})
	require.NoError(t, err)
	_, err = svc.ForceClose(context.Background(), w.ID, "stuck")
	require.NoError(t, err)

	reviewAt := baseTime.Add(time.Hour)
	svc.WithClock(fixedClock(reviewAt))
	reviewed, err := svc.ReviewManualClose(context.Background(), w.ID)
	require.NoError(t, err)

	require.NotNil(t, reviewed.ManualCloseReviewedAt)
	assert.Equal(t, reviewAt, *reviewed.ManualCloseReviewedAt)
}

func TestReviewManualClose_RejectsRegularShift(t *testing.T) {
	svc, _ := newService(baseTime)
	w, err := svc.ClockIn(context.Background(), shifts.ClockInParams{
		EmployeeID: "emp-1", StoreID: "store-1", ShiftType: engine.ShiftOpen,
	})
	require.NoError(t, err)
	_, err = svc.ClockOut(context.Background(), w.ID)
	require.NoError(t, err)

	_, err = svc.ReviewManualClose(context.Background(), w.ID)
	assert.ErrorIs(t, err, shifts.ErrNothingToApprove)
}

// =============================================================================
// SOFT DELETE
// =============================================================================

func TestSoftDelete_HidesShiftFromLifecycle(t *testing.T) {
	// GIVEN a deleted shift
	svc, store := newService(baseTime)
	w, err := svc.ClockIn(context.Background(), shifts.ClockInParams{
		EmployeeID: "emp-1", StoreID: "store-1", ShiftType: engine.ShiftOpen,
	})
	require.NoError(t, err)
	require.NoError(t, svc.SoftDelete(context.Background(), w.ID))

	// THEN further operations see it as deleted, but the row remains
	_, err = svc.ClockOut(context.Background(), w.ID)
	assert.ErrorIs(t, err, shifts.ErrShiftDeleted)

	row, err := store.GetWorkedShift(context.Background(), w.ID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.True(t, row.SoftDeleted)

	// AND the employee can clock in again
	_, err = svc.ClockIn(context.Background(), shifts.ClockInParams{
		EmployeeID: "emp-1", StoreID: "store-1", ShiftType: engine.ShiftOpen,
	})
	assert.NoError(t, err)
}
