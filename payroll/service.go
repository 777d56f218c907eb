/*
Package payroll runs reconciliation requests end to end.

PURPOSE:
  The engine is pure; this package is its shell. It validates caller input
  (dates, window, store scope against the caller's allow-list), fetches the
  four row sets, and hands everything to engine.Reconcile.

AUTHORIZATION:
  Which stores a caller may see is decided upstream and arrives here as a
  plain allow-list. This package only enforces that an explicit store
  filter stays inside it; it computes no policy of its own.

FETCHING:
  The four row sets have no ordering dependency and are fetched
  concurrently; the engine needs all of them at once, so the calls join
  before Reconcile runs. A caller-cancelled context simply abandons the
  run — the engine has no side effects to roll back.

SEE ALSO:
  - engine/aggregate.go: the computation itself
  - store/sqlite:        the production RowFetcher
*/
package payroll

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/storeops/shiftledger/engine"
)

// =============================================================================
// ROW FETCH INTERFACE
// =============================================================================

// RowFetcher returns the engine's four input row sets for a store scope
// and period, pre-filtered: published schedules, non-deleted worked
// shifts, verified advances, and per-store settings.
type RowFetcher interface {
	PublishedSchedules(ctx context.Context, storeIDs []string, from, to engine.BusinessDate) ([]engine.ScheduledShift, error)
	WorkedShiftsBetween(ctx context.Context, storeIDs []string, startUTC, endUTC time.Time) ([]engine.WorkedShift, error)
	VerifiedAdvances(ctx context.Context, storeIDs []string, from, to engine.BusinessDate) ([]engine.PayrollAdvance, error)
	StoreSettings(ctx context.Context, storeIDs []string) ([]engine.StoreSettings, error)
	EmployeeNames(ctx context.Context) (map[string]string, error)
}

// =============================================================================
// SERVICE
// =============================================================================

// Params is the raw, unvalidated request for a reconciliation run.
// AsOf empty means "through the end of the period". StoreFilter empty
// means "all authorized stores".
type Params struct {
	From        string
	To          string
	AsOf        string
	StoreFilter []string
}

// Service validates requests and runs the engine over fetched rows.
type Service struct {
	rows   RowFetcher
	region engine.Region
	bucket engine.BucketFunc
	log    logrus.FieldLogger
}

func NewService(rows RowFetcher, region engine.Region, bucket engine.BucketFunc, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{rows: rows, region: region, bucket: bucket, log: log}
}

// Reconcile validates p against the caller's authorized stores, fetches
// the row sets, and runs the engine. All validation errors surface before
// any fetch begins and satisfy engine.IsClientError.
func (s *Service) Reconcile(ctx context.Context, authorizedStores []string, p Params) (engine.Report, error) {
	from, to, asOf, err := parseWindow(p)
	if err != nil {
		return engine.Report{}, err
	}

	storeIDs, err := resolveScope(authorizedStores, p.StoreFilter)
	if err != nil {
		return engine.Report{}, err
	}

	in, err := s.fetch(ctx, storeIDs, from, to)
	if err != nil {
		return engine.Report{}, err
	}
	in.From, in.To, in.AsOf = from, to, asOf
	in.Bucket = s.bucket

	report, err := engine.Reconcile(s.region, in)
	if err != nil {
		return engine.Report{}, err
	}

	s.log.WithFields(logrus.Fields{
		"from":      from.String(),
		"to":        to.String(),
		"as_of":     asOf.String(),
		"stores":    len(storeIDs),
		"employees": len(report.Employees),
		"status":    report.Status,
	}).Info("reconciliation run")
	return report, nil
}

func parseWindow(p Params) (from, to, asOf engine.BusinessDate, err error) {
	if from, err = engine.ParseBusinessDate(p.From); err != nil {
		return
	}
	if to, err = engine.ParseBusinessDate(p.To); err != nil {
		return
	}
	if to.Before(from) {
		err = &engine.DateRangeError{From: from, To: to, AsOf: to, Reason: "to before from"}
		return
	}
	asOf = to
	if p.AsOf != "" {
		if asOf, err = engine.ParseBusinessDate(p.AsOf); err != nil {
			return
		}
		if asOf.Before(from) || asOf.After(to) {
			err = &engine.DateRangeError{From: from, To: to, AsOf: asOf, Reason: "asOf outside period"}
			return
		}
	}
	return
}

// resolveScope applies the allow-list filter. An empty filter means every
// authorized store; an empty allow-list is an error distinct from "stores
// authorized but no data".
func resolveScope(authorized, filter []string) ([]string, error) {
	if len(authorized) == 0 {
		return nil, engine.ErrNoStoresInScope
	}
	if len(filter) == 0 {
		return authorized, nil
	}
	allowed := make(map[string]bool, len(authorized))
	for _, id := range authorized {
		allowed[id] = true
	}
	for _, id := range filter {
		if !allowed[id] {
			return nil, &engine.StoreSelectionError{StoreID: id}
		}
	}
	return filter, nil
}

// fetch pulls the four row sets concurrently and joins before returning.
func (s *Service) fetch(ctx context.Context, storeIDs []string, from, to engine.BusinessDate) (engine.Input, error) {
	startUTC, endUTC := s.region.HalfOpenUTCRange(from, to)

	var (
		in   engine.Input
		mu   sync.Mutex
		wg   sync.WaitGroup
		errs []error
	)
	run := func(fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}

	run(func() error {
		rows, err := s.rows.PublishedSchedules(ctx, storeIDs, from, to)
		mu.Lock()
		in.Schedules = rows
		mu.Unlock()
		return err
	})
	run(func() error {
		rows, err := s.rows.WorkedShiftsBetween(ctx, storeIDs, startUTC, endUTC)
		mu.Lock()
		in.Shifts = rows
		mu.Unlock()
		return err
	})
	run(func() error {
		rows, err := s.rows.VerifiedAdvances(ctx, storeIDs, from, to)
		mu.Lock()
		in.Advances = rows
		mu.Unlock()
		return err
	})
	run(func() error {
		rows, err := s.rows.StoreSettings(ctx, storeIDs)
		mu.Lock()
		in.Settings = rows
		mu.Unlock()
		return err
	})
	run(func() error {
		names, err := s.rows.EmployeeNames(ctx)
		mu.Lock()
		in.EmployeeNames = names
		mu.Unlock()
		return err
	})
	wg.Wait()

	if len(errs) > 0 {
		return engine.Input{}, errs[0]
	}
	in.StoreIDs = storeIDs
	return in, nil
}
