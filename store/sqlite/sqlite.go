/*
Package sqlite provides the SQLite-backed store for the platform.

PURPOSE:
  Implements the payroll row-fetch interface and the shift-lifecycle store
  over SQLite. In production the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

KEY TABLES:
  employees          Staff records
  stores             Store records with optional staffing bucket label
  scheduled_shifts   Published/draft schedule slots (civil dates + HH:MM)
  worked_shifts      Clock records (UTC instants); soft-delete flag, never
                     hard-deleted
  payroll_advances   Manual hour payouts with verification status
  store_settings     Per-store reconciliation thresholds

TIME ENCODING:
  Instants are RFC3339 UTC strings; business dates are YYYY-MM-DD strings;
  slot times are HH:MM strings. Range queries on worked_shifts take the
  half-open UTC range the civil normalizer builds - the store itself never
  does offset math.

WAL MODE:
  SQLite is opened with WAL for better concurrency: multiple readers do
  not block and crash recovery improves.

USAGE:
  store, err := sqlite.New("./data/shiftledger.db")
  defer store.Close()

SEE ALSO:
  - payroll.RowFetcher: the fetch surface this implements
  - shifts.Store:       the lifecycle surface this implements
  - store/memory:       in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/storeops/shiftledger/engine"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stores (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		bucket_label TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS scheduled_shifts (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		store_id TEXT NOT NULL,
		business_date TEXT NOT NULL,
		shift_type TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		status TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scheduled_store_date
		ON scheduled_shifts(store_id, business_date);

	CREATE TABLE IF NOT EXISTS worked_shifts (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		store_id TEXT NOT NULL,
		shift_type TEXT NOT NULL,
		planned_start TEXT NOT NULL,
		actual_start TEXT NOT NULL,
		ended_at TEXT,
		linked_scheduled_shift_id TEXT NOT NULL DEFAULT '',
		requires_override INTEGER NOT NULL DEFAULT 0,
		override_approved_at TEXT,
		override_note TEXT NOT NULL DEFAULT '',
		manually_closed INTEGER NOT NULL DEFAULT 0,
		manual_close_reviewed_at TEXT,
		soft_deleted INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_worked_store_planned
		ON worked_shifts(store_id, planned_start);
	CREATE INDEX IF NOT EXISTS idx_worked_employee_open
		ON worked_shifts(employee_id, store_id) WHERE ended_at IS NULL;

	CREATE TABLE IF NOT EXISTS payroll_advances (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		store_id TEXT NOT NULL,
		advance_date TEXT NOT NULL,
		advance_hours TEXT NOT NULL,
		status TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_advances_store_date
		ON payroll_advances(store_id, advance_date);

	CREATE TABLE IF NOT EXISTS store_settings (
		store_id TEXT PRIMARY KEY,
		variance_warn_hours TEXT NOT NULL,
		shift_drift_warn_hours TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEES AND STORES
// =============================================================================

// Employee is a staff record.
type Employee struct {
	ID   string
	Name string
}

// StoreRecord is a store with its optional staffing bucket label.
type StoreRecord struct {
	ID          string
	Name        string
	BucketLabel string
}

func (s *Store) SaveEmployee(ctx context.Context, e Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		e.ID, e.Name, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM employees ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// EmployeeNames returns the id-to-name map the reconciliation run consumes.
func (s *Store) EmployeeNames(ctx context.Context) (map[string]string, error) {
	employees, err := s.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(employees))
	for _, e := range employees {
		names[e.ID] = e.Name
	}
	return names, nil
}

func (s *Store) SaveStore(ctx context.Context, r StoreRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stores (id, name, bucket_label, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, bucket_label = excluded.bucket_label`,
		r.ID, r.Name, r.BucketLabel, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save store: %w", err)
	}
	return nil
}

func (s *Store) ListStores(ctx context.Context) ([]StoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, bucket_label FROM stores ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	defer rows.Close()

	var out []StoreRecord
	for rows.Next() {
		var r StoreRecord
		if err := rows.Scan(&r.ID, &r.Name, &r.BucketLabel); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// BucketFunc builds the staffing classifier from stored labels with the
// legacy name matcher as fallback.
func (s *Store) BucketFunc(ctx context.Context) (engine.BucketFunc, error) {
	stores, err := s.ListStores(ctx)
	if err != nil {
		return nil, err
	}
	labels := make(map[string]string, len(stores))
	names := make(map[string]string, len(stores))
	for _, r := range stores {
		labels[r.ID] = r.BucketLabel
		names[r.ID] = r.Name
	}
	return engine.StoreBuckets(labels, names), nil
}

// =============================================================================
// SCHEDULED SHIFTS
// =============================================================================

func (s *Store) SaveScheduledShift(ctx context.Context, row engine.ScheduledShift) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scheduled_shifts
		(id, employee_id, store_id, business_date, shift_type, start_time, end_time, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			employee_id = excluded.employee_id,
			store_id = excluded.store_id,
			business_date = excluded.business_date,
			shift_type = excluded.shift_type,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			status = excluded.status`,
		row.ID, row.EmployeeID, row.StoreID, row.Date.String(),
		string(row.ShiftType), row.Start.String(), row.End.String(), string(row.Status))
	if err != nil {
		return fmt.Errorf("failed to save scheduled shift: %w", err)
	}
	return nil
}

// PublishSchedule flips every draft slot for a store and date range to
// published. Returns the number of slots published.
func (s *Store) PublishSchedule(ctx context.Context, storeID string, from, to engine.BusinessDate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_shifts SET status = ?
		WHERE store_id = ? AND status = ? AND business_date >= ? AND business_date <= ?`,
		string(engine.SchedulePublished), storeID, string(engine.ScheduleDraft),
		from.String(), to.String())
	if err != nil {
		return 0, fmt.Errorf("failed to publish schedule: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *Store) PublishedSchedules(ctx context.Context, storeIDs []string, from, to engine.BusinessDate) ([]engine.ScheduledShift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, employee_id, store_id, business_date, shift_type, start_time, end_time, status
		FROM scheduled_shifts
		WHERE status = ? AND business_date >= ? AND business_date <= ?` + storeClause(storeIDs)
	args := append([]any{string(engine.SchedulePublished), from.String(), to.String()}, storeArgs(storeIDs)...)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduled shifts: %w", err)
	}
	defer rows.Close()

	var out []engine.ScheduledShift
	for rows.Next() {
		row, err := scanScheduledShift(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func scanScheduledShift(rows *sql.Rows) (engine.ScheduledShift, error) {
	var (
		row               engine.ScheduledShift
		date, start, end  string
		shiftType, status string
	)
	if err := rows.Scan(&row.ID, &row.EmployeeID, &row.StoreID, &date, &shiftType, &start, &end, &status); err != nil {
		return row, fmt.Errorf("failed to scan scheduled shift: %w", err)
	}

	var err error
	if row.Date, err = engine.ParseBusinessDate(date); err != nil {
		return row, err
	}
	if row.Start, err = engine.ParseTimeOfDay(start); err != nil {
		return row, err
	}
	if row.End, err = engine.ParseTimeOfDay(end); err != nil {
		return row, err
	}
	row.ShiftType = engine.ShiftType(shiftType)
	row.Status = engine.ScheduleStatus(status)
	return row, nil
}

// =============================================================================
// WORKED SHIFTS
// =============================================================================

func (s *Store) SaveWorkedShift(ctx context.Context, w engine.WorkedShift) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO worked_shifts
		(id, employee_id, store_id, shift_type, planned_start, actual_start, ended_at,
		 linked_scheduled_shift_id, requires_override, override_approved_at, override_note,
		 manually_closed, manual_close_reviewed_at, soft_deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			shift_type = excluded.shift_type,
			planned_start = excluded.planned_start,
			actual_start = excluded.actual_start,
			ended_at = excluded.ended_at,
			linked_scheduled_shift_id = excluded.linked_scheduled_shift_id,
			requires_override = excluded.requires_override,
			override_approved_at = excluded.override_approved_at,
			override_note = excluded.override_note,
			manually_closed = excluded.manually_closed,
			manual_close_reviewed_at = excluded.manual_close_reviewed_at,
			soft_deleted = excluded.soft_deleted`,
		w.ID, w.EmployeeID, w.StoreID, string(w.ShiftType),
		formatInstant(w.PlannedStart), formatInstant(w.ActualStart), nullInstant(w.End),
		w.LinkedScheduledShiftID, boolInt(w.RequiresOverride), nullInstant(w.OverrideApprovedAt),
		w.OverrideNote, boolInt(w.ManuallyClosed), nullInstant(w.ManualCloseReviewedAt),
		boolInt(w.SoftDeleted))
	if err != nil {
		return fmt.Errorf("failed to save worked shift: %w", err)
	}
	return nil
}

func (s *Store) GetWorkedShift(ctx context.Context, id string) (*engine.WorkedShift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, workedShiftSelect+` WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get worked shift: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	w, err := scanWorkedShift(rows)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *Store) OpenShiftFor(ctx context.Context, employeeID, storeID string) (*engine.WorkedShift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, workedShiftSelect+`
		WHERE employee_id = ? AND store_id = ? AND ended_at IS NULL AND soft_deleted = 0
		LIMIT 1`, employeeID, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query open shift: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	w, err := scanWorkedShift(rows)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// WorkedShiftsBetween returns non-deleted shifts whose planned start falls
// in the half-open UTC range [startUTC, endUTC).
func (s *Store) WorkedShiftsBetween(ctx context.Context, storeIDs []string, startUTC, endUTC time.Time) ([]engine.WorkedShift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := workedShiftSelect + `
		WHERE soft_deleted = 0 AND planned_start >= ? AND planned_start < ?` + storeClause(storeIDs)
	args := append([]any{formatInstant(startUTC), formatInstant(endUTC)}, storeArgs(storeIDs)...)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query worked shifts: %w", err)
	}
	defer rows.Close()

	var out []engine.WorkedShift
	for rows.Next() {
		w, err := scanWorkedShift(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

const workedShiftSelect = `
	SELECT id, employee_id, store_id, shift_type, planned_start, actual_start, ended_at,
	       linked_scheduled_shift_id, requires_override, override_approved_at, override_note,
	       manually_closed, manual_close_reviewed_at, soft_deleted
	FROM worked_shifts`

func scanWorkedShift(rows *sql.Rows) (engine.WorkedShift, error) {
	var (
		w                           engine.WorkedShift
		shiftType                   string
		plannedStart, actualStart   string
		endedAt, overrideApprovedAt sql.NullString
		manualCloseReviewedAt       sql.NullString
		requiresOverride            int
		manuallyClosed, softDeleted int
	)
	err := rows.Scan(&w.ID, &w.EmployeeID, &w.StoreID, &shiftType,
		&plannedStart, &actualStart, &endedAt,
		&w.LinkedScheduledShiftID, &requiresOverride, &overrideApprovedAt, &w.OverrideNote,
		&manuallyClosed, &manualCloseReviewedAt, &softDeleted)
	if err != nil {
		return w, fmt.Errorf("failed to scan worked shift: %w", err)
	}

	w.ShiftType = engine.ShiftType(shiftType)
	w.PlannedStart, _ = time.Parse(time.RFC3339, plannedStart)
	w.ActualStart, _ = time.Parse(time.RFC3339, actualStart)
	w.End = parseNullInstant(endedAt)
	w.OverrideApprovedAt = parseNullInstant(overrideApprovedAt)
	w.ManualCloseReviewedAt = parseNullInstant(manualCloseReviewedAt)
	w.RequiresOverride = requiresOverride != 0
	w.ManuallyClosed = manuallyClosed != 0
	w.SoftDeleted = softDeleted != 0
	return w, nil
}

// =============================================================================
// PAYROLL ADVANCES
// =============================================================================

func (s *Store) SaveAdvance(ctx context.Context, a engine.PayrollAdvance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payroll_advances (id, employee_id, store_id, advance_date, advance_hours, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			advance_date = excluded.advance_date,
			advance_hours = excluded.advance_hours,
			status = excluded.status`,
		a.ID, a.EmployeeID, a.StoreID, a.Date.String(), a.Hours.String(), string(a.Status))
	if err != nil {
		return fmt.Errorf("failed to save advance: %w", err)
	}
	return nil
}

// SetAdvanceStatus moves an advance through verification.
func (s *Store) SetAdvanceStatus(ctx context.Context, id string, status engine.AdvanceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`UPDATE payroll_advances SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update advance status: %w", err)
	}
	return nil
}

func (s *Store) VerifiedAdvances(ctx context.Context, storeIDs []string, from, to engine.BusinessDate) ([]engine.PayrollAdvance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, employee_id, store_id, advance_date, advance_hours, status
		FROM payroll_advances
		WHERE status = ? AND advance_date >= ? AND advance_date <= ?` + storeClause(storeIDs)
	args := append([]any{string(engine.AdvanceVerified), from.String(), to.String()}, storeArgs(storeIDs)...)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query advances: %w", err)
	}
	defer rows.Close()

	var out []engine.PayrollAdvance
	for rows.Next() {
		var (
			a           engine.PayrollAdvance
			date, hours string
			status      string
		)
		if err := rows.Scan(&a.ID, &a.EmployeeID, &a.StoreID, &date, &hours, &status); err != nil {
			return nil, fmt.Errorf("failed to scan advance: %w", err)
		}
		if a.Date, err = engine.ParseBusinessDate(date); err != nil {
			return nil, err
		}
		if a.Hours, err = decimal.NewFromString(hours); err != nil {
			return nil, fmt.Errorf("failed to parse advance hours: %w", err)
		}
		a.Status = engine.AdvanceStatus(status)
		out = append(out, a)
	}
	return out, rows.Err()
}

// =============================================================================
// STORE SETTINGS
// =============================================================================

func (s *Store) SaveStoreSettings(ctx context.Context, row engine.StoreSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store_settings (store_id, variance_warn_hours, shift_drift_warn_hours)
		VALUES (?, ?, ?)
		ON CONFLICT(store_id) DO UPDATE SET
			variance_warn_hours = excluded.variance_warn_hours,
			shift_drift_warn_hours = excluded.shift_drift_warn_hours`,
		row.StoreID, row.VarianceWarnHours.String(), row.ShiftDriftWarnHours.String())
	if err != nil {
		return fmt.Errorf("failed to save store settings: %w", err)
	}
	return nil
}

func (s *Store) StoreSettings(ctx context.Context, storeIDs []string) ([]engine.StoreSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT store_id, variance_warn_hours, shift_drift_warn_hours FROM store_settings WHERE 1=1` +
		storeClause(storeIDs)
	rows, err := s.db.QueryContext(ctx, query, storeArgs(storeIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query store settings: %w", err)
	}
	defer rows.Close()

	var out []engine.StoreSettings
	for rows.Next() {
		var (
			row             engine.StoreSettings
			variance, drift string
		)
		if err := rows.Scan(&row.StoreID, &variance, &drift); err != nil {
			return nil, fmt.Errorf("failed to scan store settings: %w", err)
		}
		if row.VarianceWarnHours, err = decimal.NewFromString(variance); err != nil {
			return nil, err
		}
		if row.ShiftDriftWarnHours, err = decimal.NewFromString(drift); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

// storeClause appends an IN filter when the scope names specific stores.
func storeClause(storeIDs []string) string {
	if len(storeIDs) == 0 {
		return ""
	}
	return " AND store_id IN (?" + strings.Repeat(", ?", len(storeIDs)-1) + ")"
}

func storeArgs(storeIDs []string) []any {
	args := make([]any, len(storeIDs))
	for i, id := range storeIDs {
		args[i] = id
	}
	return args
}

func formatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nullInstant(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatInstant(*t)
}

func parseNullInstant(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
