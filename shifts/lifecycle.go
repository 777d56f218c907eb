/*
Package shifts implements the worked-shift clock lifecycle.

PURPOSE:
  Owns the domain rules around clock records: clock-in creates a shift,
  clock-out ends it, an admin can force-close a stuck shift or approve an
  override, and shifts are only ever soft-deleted. The reconciliation
  engine consumes the rows this package writes.

LIFECYCLE:
  clock-in      -> row created, End nil
  clock-out     -> End set
  force-close   -> End set, ManuallyClosed; RequiresOverride when the
                   shift ran past the duration ceiling
  approve       -> OverrideApprovedAt / ManualCloseReviewedAt set
  soft-delete   -> excluded from every reconciliation view

SEE ALSO:
  - engine/types.go: the WorkedShift row shape
  - store/sqlite:    persistence
*/
package shifts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/storeops/shiftledger/engine"
)

// OverrideCeiling is the fixed shift length beyond which a force-close
// flags the shift for manager override before payroll can include it.
const OverrideCeiling = 14 * time.Hour

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrShiftNotFound     = errors.New("shift not found")
	ErrShiftAlreadyEnded = errors.New("shift already ended")
	ErrShiftStillOpen    = errors.New("shift still open")
	ErrAlreadyClockedIn  = errors.New("employee already clocked in at this store")
	ErrNothingToApprove  = errors.New("shift has nothing awaiting approval")
	ErrShiftDeleted      = errors.New("shift is deleted")
)

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store is the persistence surface the lifecycle needs. Worked shifts are
// never hard-deleted; Save always upserts the full row.
type Store interface {
	GetWorkedShift(ctx context.Context, id string) (*engine.WorkedShift, error)
	SaveWorkedShift(ctx context.Context, w engine.WorkedShift) error

	// OpenShiftFor returns the open, non-deleted shift for an employee at
	// a store, or nil.
	OpenShiftFor(ctx context.Context, employeeID, storeID string) (*engine.WorkedShift, error)
}

// =============================================================================
// SERVICE
// =============================================================================

// Service applies lifecycle rules over a Store.
type Service struct {
	store Store
	log   logrus.FieldLogger

	// now is replaceable in tests.
	now func() time.Time
}

func NewService(store Store, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{store: store, log: log, now: time.Now}
}

// WithClock overrides the service clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ClockInParams describes a clock-in. PlannedStart defaults to the clock-in
// instant when zero (walk-in shifts with no schedule behind them).
type ClockInParams struct {
	EmployeeID             string
	StoreID                string
	ShiftType              engine.ShiftType
	PlannedStart           time.Time
	LinkedScheduledShiftID string
}

// ClockIn creates a new open shift. An employee cannot hold two open
// shifts at the same store.
func (s *Service) ClockIn(ctx context.Context, p ClockInParams) (engine.WorkedShift, error) {
	existing, err := s.store.OpenShiftFor(ctx, p.EmployeeID, p.StoreID)
	if err != nil {
		return engine.WorkedShift{}, err
	}
	if existing != nil {
		return engine.WorkedShift{}, fmt.Errorf("%w: shift %s", ErrAlreadyClockedIn, existing.ID)
	}

	now := s.now().UTC()
	planned := p.PlannedStart
	if planned.IsZero() {
		planned = now
	}

	w := engine.WorkedShift{
		ID:                     uuid.NewString(),
		EmployeeID:             p.EmployeeID,
		StoreID:                p.StoreID,
		ShiftType:              p.ShiftType,
		PlannedStart:           planned.UTC(),
		ActualStart:            now,
		LinkedScheduledShiftID: p.LinkedScheduledShiftID,
	}
	if err := s.store.SaveWorkedShift(ctx, w); err != nil {
		return engine.WorkedShift{}, err
	}

	s.log.WithFields(logrus.Fields{
		"shift_id": w.ID,
		"employee": w.EmployeeID,
		"store":    w.StoreID,
	}).Info("clock-in")
	return w, nil
}

// ClockOut ends an open shift at the current instant.
func (s *Service) ClockOut(ctx context.Context, shiftID string) (engine.WorkedShift, error) {
	w, err := s.mutableShift(ctx, shiftID)
	if err != nil {
		return engine.WorkedShift{}, err
	}
	if w.Ended() {
		return engine.WorkedShift{}, ErrShiftAlreadyEnded
	}

	end := s.now().UTC()
	w.End = &end
	if err := s.store.SaveWorkedShift(ctx, *w); err != nil {
		return engine.WorkedShift{}, err
	}

	s.log.WithFields(logrus.Fields{
		"shift_id": w.ID,
		"minutes":  w.WorkedMinutes(),
	}).Info("clock-out")
	return *w, nil
}

// ForceClose ends a stuck shift on behalf of an admin. The close is marked
// for review, and a shift that ran past the ceiling additionally requires
// an override approval before payroll can submit it.
func (s *Service) ForceClose(ctx context.Context, shiftID, note string) (engine.WorkedShift, error) {
	w, err := s.mutableShift(ctx, shiftID)
	if err != nil {
		return engine.WorkedShift{}, err
	}
	if w.Ended() {
		return engine.WorkedShift{}, ErrShiftAlreadyEnded
	}

	end := s.now().UTC()
	w.End = &end
	w.ManuallyClosed = true
	w.OverrideNote = note
	if end.Sub(w.ActualStart) > OverrideCeiling {
		w.RequiresOverride = true
	}
	if err := s.store.SaveWorkedShift(ctx, *w); err != nil {
		return engine.WorkedShift{}, err
	}

	s.log.WithFields(logrus.Fields{
		"shift_id":          w.ID,
		"requires_override": w.RequiresOverride,
	}).Warn("shift force-closed")
	return *w, nil
}

// ApproveOverride records a manager's approval of an override-flagged,
// ended shift.
func (s *Service) ApproveOverride(ctx context.Context, shiftID, note string) (engine.WorkedShift, error) {
	w, err := s.mutableShift(ctx, shiftID)
	if err != nil {
		return engine.WorkedShift{}, err
	}
	if !w.Ended() {
		return engine.WorkedShift{}, ErrShiftStillOpen
	}
	if !w.RequiresOverride {
		return engine.WorkedShift{}, ErrNothingToApprove
	}

	now := s.now().UTC()
	w.OverrideApprovedAt = &now
	if note != "" {
		w.OverrideNote = note
	}
	if err := s.store.SaveWorkedShift(ctx, *w); err != nil {
		return engine.WorkedShift{}, err
	}
	return *w, nil
}

// ReviewManualClose records that a manager looked at a force-closed shift.
func (s *Service) ReviewManualClose(ctx context.Context, shiftID string) (engine.WorkedShift, error) {
	w, err := s.mutableShift(ctx, shiftID)
	if err != nil {
		return engine.WorkedShift{}, err
	}
	if !w.ManuallyClosed {
		return engine.WorkedShift{}, ErrNothingToApprove
	}

	now := s.now().UTC()
	w.ManualCloseReviewedAt = &now
	if err := s.store.SaveWorkedShift(ctx, *w); err != nil {
		return engine.WorkedShift{}, err
	}
	return *w, nil
}

// SoftDelete removes a shift from every reconciliation view. The row stays.
func (s *Service) SoftDelete(ctx context.Context, shiftID string) error {
	w, err := s.mutableShift(ctx, shiftID)
	if err != nil {
		return err
	}
	w.SoftDeleted = true
	return s.store.SaveWorkedShift(ctx, *w)
}

func (s *Service) mutableShift(ctx context.Context, shiftID string) (*engine.WorkedShift, error) {
	w, err := s.store.GetWorkedShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrShiftNotFound
	}
	if w.SoftDeleted {
		return nil, ErrShiftDeleted
	}
	return w, nil
}
