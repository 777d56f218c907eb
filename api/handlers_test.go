/*
handlers_test.go - HTTP handler tests

Drives the real router over an in-memory SQLite store: resource CRUD, the
clock lifecycle over HTTP, and request validation on the reconciliation
endpoint.
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storeops/shiftledger/engine"
	"github.com/storeops/shiftledger/payroll"
	"github.com/storeops/shiftledger/shifts"
	"github.com/storeops/shiftledger/store/sqlite"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	region := engine.MustRegion("America/Chicago")
	bucket := func(storeID string) (string, bool) { return "", false }
	h := NewHandler(store,
		shifts.NewService(store, log),
		payroll.NewService(store, region, bucket, log),
		region, log)
	return NewRouter(h)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// =============================================================================
// EMPLOYEES AND STORES
// =============================================================================

func TestCreateAndListEmployees(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/employees", EmployeeDTO{Name: "Dana Cruz"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[EmployeeDTO](t, rec)
	assert.NotEmpty(t, created.ID, "server assigns an id when none given")

	rec = doJSON(t, router, http.MethodGet, "/api/employees", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	employees := decode[[]EmployeeDTO](t, rec)
	require.Len(t, employees, 1)
	assert.Equal(t, "Dana Cruz", employees[0].Name)
}

func TestCreateStoreKeepsBucketLabel(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/stores", StoreDTO{
		ID: "store-1", Name: "Downtown", BucketLabel: engine.BucketFlagship,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/stores", nil)
	stores := decode[[]StoreDTO](t, rec)
	require.Len(t, stores, 1)
	assert.Equal(t, engine.BucketFlagship, stores[0].BucketLabel)
}

// =============================================================================
// SCHEDULES
// =============================================================================

func TestCreateScheduledShift_RejectsMalformedDate(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/schedules", CreateScheduledShiftRequest{
		EmployeeID: "emp-1", StoreID: "store-1",
		Date: "02/10/2026", ShiftType: "open", Start: "08:00", End: "14:00",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublishSchedule_ReportsCount(t *testing.T) {
	router := newTestRouter(t)

	for _, date := range []string{"2026-02-10", "2026-02-11"} {
		rec := doJSON(t, router, http.MethodPost, "/api/schedules", CreateScheduledShiftRequest{
			EmployeeID: "emp-1", StoreID: "store-1",
			Date: date, ShiftType: "open", Start: "08:00", End: "14:00",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/schedules/publish", PublishScheduleRequest{
		StoreID: "store-1", From: "2026-02-10", To: "2026-02-16",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[map[string]int](t, rec)["published"])
}

// =============================================================================
// SHIFT LIFECYCLE
// =============================================================================

func TestClockLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	// Clock in
	rec := doJSON(t, router, http.MethodPost, "/api/shifts/clock-in", ClockInRequest{
		EmployeeID: "emp-1", StoreID: "store-1", ShiftType: "open",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	shift := decode[WorkedShiftDTO](t, rec)
	require.NotEmpty(t, shift.ID)
	assert.Empty(t, shift.EndedAt)

	// A second clock-in at the same store conflicts
	rec = doJSON(t, router, http.MethodPost, "/api/shifts/clock-in", ClockInRequest{
		EmployeeID: "emp-1", StoreID: "store-1", ShiftType: "close",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Clock out
	rec = doJSON(t, router, http.MethodPost, "/api/shifts/"+shift.ID+"/clock-out", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	closed := decode[WorkedShiftDTO](t, rec)
	assert.NotEmpty(t, closed.EndedAt)

	// Clocking out twice conflicts
	rec = doJSON(t, router, http.MethodPost, "/api/shifts/"+shift.ID+"/clock-out", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestClockOut_UnknownShiftIs404(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/shifts/nope/clock-out", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestForceCloseAndReviewOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/shifts/clock-in", ClockInRequest{
		EmployeeID: "emp-1", StoreID: "store-1", ShiftType: "double",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	shift := decode[WorkedShiftDTO](t, rec)

	rec = doJSON(t, router, http.MethodPost, "/api/shifts/"+shift.ID+"/force-close", ForceCloseRequest{
		Note: "register left open",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	closed := decode[WorkedShiftDTO](t, rec)
	assert.True(t, closed.ManuallyClosed)
	// Closed seconds after open: under the ceiling, no override needed
	assert.False(t, closed.RequiresOverride)

	rec = doJSON(t, router, http.MethodPost, "/api/shifts/"+shift.ID+"/review", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	reviewed := decode[WorkedShiftDTO](t, rec)
	assert.NotEmpty(t, reviewed.ManualCloseReviewedAt)
}

// =============================================================================
// ADVANCES
// =============================================================================

func TestAdvanceCreateAndVerify(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/advances", CreateAdvanceRequest{
		EmployeeID: "emp-1", StoreID: "store-1", Date: "2026-02-11", Hours: "1.5",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	adv := decode[AdvanceDTO](t, rec)
	assert.Equal(t, "pending_verification", adv.Status)

	rec = doJSON(t, router, http.MethodPost, "/api/advances/"+adv.ID+"/verify", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateAdvance_RejectsNegativeHours(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/advances", CreateAdvanceRequest{
		EmployeeID: "emp-1", StoreID: "store-1", Date: "2026-02-11", Hours: "-2",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// RECONCILIATION
// =============================================================================

func TestReconciliation_RequiresStoreScope(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/payroll/reconciliation?from=2026-02-10&to=2026-02-16", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReconciliation_MalformedWindowIs400(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/payroll/reconciliation?from=nope&to=2026-02-16", nil)
	req.Header.Set("X-Store-Scope", "store-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReconciliation_EmptyPeriodReportsOK(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/payroll/reconciliation?from=2026-02-10&to=2026-02-16", nil)
	req.Header.Set("X-Store-Scope", "store-1, store-2")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[ReconciliationReportDTO](t, rec)
	assert.Equal(t, "ok", report.Status)
	assert.Equal(t, []string{"store-1", "store-2"}, report.StoreIDs)
	assert.Len(t, report.Checks, 4)
	assert.Equal(t, "100.00", report.Deltas.CoveragePercent)
}

func TestReconciliationText_RendersPlainText(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/payroll/reconciliation.txt?from=2026-02-10&to=2026-02-16", nil)
	req.Header.Set("X-Store-Scope", "store-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "Payroll reconciliation 2026-02-10 to 2026-02-16")
}
