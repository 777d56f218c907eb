// Package memory provides an in-memory store implementation (for
// testing/dev). It implements the payroll row-fetch interface and the
// shift-lifecycle store over plain maps.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/storeops/shiftledger/engine"
)

// Store holds all rows in memory behind one RWMutex.
type Store struct {
	mu sync.RWMutex

	employees map[string]string // id -> name
	schedules map[string]engine.ScheduledShift
	shifts    map[string]engine.WorkedShift
	advances  map[string]engine.PayrollAdvance
	settings  map[string]engine.StoreSettings
}

func New() *Store {
	return &Store{
		employees: make(map[string]string),
		schedules: make(map[string]engine.ScheduledShift),
		shifts:    make(map[string]engine.WorkedShift),
		advances:  make(map[string]engine.PayrollAdvance),
		settings:  make(map[string]engine.StoreSettings),
	}
}

// =============================================================================
// FIXTURE WRITES
// =============================================================================

func (s *Store) PutEmployee(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[id] = name
}

func (s *Store) PutSchedule(row engine.ScheduledShift) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules[row.ID] = row
}

func (s *Store) PutAdvance(row engine.PayrollAdvance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advances[row.ID] = row
}

func (s *Store) PutSettings(row engine.StoreSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[row.StoreID] = row
}

// =============================================================================
// SHIFT LIFECYCLE STORE
// =============================================================================

func (s *Store) GetWorkedShift(_ context.Context, id string) (*engine.WorkedShift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if w, ok := s.shifts[id]; ok {
		copied := w
		return &copied, nil
	}
	return nil, nil
}

func (s *Store) SaveWorkedShift(_ context.Context, w engine.WorkedShift) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shifts[w.ID] = w
	return nil
}

func (s *Store) OpenShiftFor(_ context.Context, employeeID, storeID string) (*engine.WorkedShift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.shifts {
		if w.EmployeeID == employeeID && w.StoreID == storeID && !w.Ended() && !w.SoftDeleted {
			copied := w
			return &copied, nil
		}
	}
	return nil, nil
}

// =============================================================================
// PAYROLL ROW FETCHER
// =============================================================================

func (s *Store) PublishedSchedules(_ context.Context, storeIDs []string, from, to engine.BusinessDate) ([]engine.ScheduledShift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scope := scopeSet(storeIDs)
	var out []engine.ScheduledShift
	for _, row := range s.schedules {
		if row.Status != engine.SchedulePublished {
			continue
		}
		if !scope[row.StoreID] || !row.Date.InRange(from, to) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *Store) WorkedShiftsBetween(_ context.Context, storeIDs []string, startUTC, endUTC time.Time) ([]engine.WorkedShift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scope := scopeSet(storeIDs)
	var out []engine.WorkedShift
	for _, row := range s.shifts {
		if row.SoftDeleted || !scope[row.StoreID] {
			continue
		}
		if row.PlannedStart.Before(startUTC) || !row.PlannedStart.Before(endUTC) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *Store) VerifiedAdvances(_ context.Context, storeIDs []string, from, to engine.BusinessDate) ([]engine.PayrollAdvance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scope := scopeSet(storeIDs)
	var out []engine.PayrollAdvance
	for _, row := range s.advances {
		if row.Status != engine.AdvanceVerified {
			continue
		}
		if !scope[row.StoreID] || !row.Date.InRange(from, to) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *Store) StoreSettings(_ context.Context, storeIDs []string) ([]engine.StoreSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scope := scopeSet(storeIDs)
	var out []engine.StoreSettings
	for _, row := range s.settings {
		if scope[row.StoreID] {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *Store) EmployeeNames(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.employees))
	for id, name := range s.employees {
		out[id] = name
	}
	return out, nil
}

func scopeSet(storeIDs []string) map[string]bool {
	set := make(map[string]bool, len(storeIDs))
	for _, id := range storeIDs {
		set[id] = true
	}
	return set
}
