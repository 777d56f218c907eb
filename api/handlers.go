/*
handlers.go - HTTP API handlers for the retail ops platform

PURPOSE:
  Exposes the shift lifecycle, scheduling writes, payroll advances, and
  the reconciliation engine over REST. Handles HTTP request/response and
  JSON serialization, delegating all business rules to the domain
  packages.

ENDPOINTS:
  Employees / stores:
    GET/POST /api/employees, /api/stores

  Schedules:
    POST /api/schedules                     Create a draft slot
    POST /api/schedules/publish             Publish drafts for a store+range

  Shifts:
    POST /api/shifts/clock-in
    POST /api/shifts/{id}/clock-out
    POST /api/shifts/{id}/force-close       Admin
    POST /api/shifts/{id}/approve-override  Admin
    POST /api/shifts/{id}/review            Admin, manual-close review
    DELETE /api/shifts/{id}                 Soft delete

  Advances:
    POST /api/advances
    POST /api/advances/{id}/verify
    POST /api/advances/{id}/void

  Reconciliation:
    GET /api/payroll/reconciliation         JSON report
    GET /api/payroll/reconciliation.txt     Text report

AUTHORIZATION:
  Store scope arrives via the X-Store-Scope header (comma-separated ids),
  standing in for the session-derived allow-list an upstream gateway
  injects. The handlers pass it through; policy lives upstream.

ERROR HANDLING:
  Validation errors (engine.IsClientError, lifecycle rule errors) map to
  400/404/409; everything else is a 500.

SEE ALSO:
  - dto.go:    Request/response shapes
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/storeops/shiftledger/engine"
	"github.com/storeops/shiftledger/payroll"
	"github.com/storeops/shiftledger/report"
	"github.com/storeops/shiftledger/shifts"
	"github.com/storeops/shiftledger/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Shifts  *shifts.Service
	Payroll *payroll.Service
	Region  engine.Region
	Log     logrus.FieldLogger
}

// NewHandler wires the handler over the store and services.
func NewHandler(store *sqlite.Store, shiftSvc *shifts.Service, payrollSvc *payroll.Service, region engine.Region, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{Store: store, Shifts: shiftSvc, Payroll: payrollSvc, Region: region, Log: log}
}

// =============================================================================
// EMPLOYEES AND STORES
// =============================================================================

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}
	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = EmployeeDTO{ID: e.ID, Name: e.Name}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req EmployeeDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if err := h.Store.SaveEmployee(r.Context(), sqlite.Employee{ID: req.ID, Name: req.Name}); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (h *Handler) ListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.Store.ListStores(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list stores", err)
		return
	}
	dtos := make([]StoreDTO, len(stores))
	for i, s := range stores {
		dtos[i] = StoreDTO{ID: s.ID, Name: s.Name, BucketLabel: s.BucketLabel}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateStore(w http.ResponseWriter, r *http.Request) {
	var req StoreDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	record := sqlite.StoreRecord{ID: req.ID, Name: req.Name, BucketLabel: req.BucketLabel}
	if err := h.Store.SaveStore(r.Context(), record); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save store", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// =============================================================================
// SCHEDULES
// =============================================================================

func (h *Handler) CreateScheduledShift(w http.ResponseWriter, r *http.Request) {
	var req CreateScheduledShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := engine.ParseBusinessDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	start, err := engine.ParseTimeOfDay(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start time", err)
		return
	}
	end, err := engine.ParseTimeOfDay(req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end time", err)
		return
	}

	row := engine.ScheduledShift{
		ID:         uuid.NewString(),
		EmployeeID: req.EmployeeID,
		StoreID:    req.StoreID,
		Date:       date,
		ShiftType:  engine.ShiftType(req.ShiftType),
		Start:      start,
		End:        end,
		Status:     engine.ScheduleDraft,
	}
	if err := h.Store.SaveScheduledShift(r.Context(), row); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save scheduled shift", err)
		return
	}

	writeJSON(w, http.StatusCreated, ScheduledShiftDTO{
		ID:         row.ID,
		EmployeeID: row.EmployeeID,
		StoreID:    row.StoreID,
		Date:       row.Date.String(),
		ShiftType:  string(row.ShiftType),
		Start:      row.Start.String(),
		End:        row.End.String(),
		Status:     string(row.Status),
	})
}

func (h *Handler) PublishSchedule(w http.ResponseWriter, r *http.Request) {
	var req PublishScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	from, err := engine.ParseBusinessDate(req.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date", err)
		return
	}
	to, err := engine.ParseBusinessDate(req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date", err)
		return
	}

	n, err := h.Store.PublishSchedule(r.Context(), req.StoreID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to publish schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"published": n})
}

// =============================================================================
// SHIFT LIFECYCLE
// =============================================================================

func (h *Handler) ClockIn(w http.ResponseWriter, r *http.Request) {
	var req ClockInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	params := shifts.ClockInParams{
		EmployeeID:             req.EmployeeID,
		StoreID:                req.StoreID,
		ShiftType:              engine.ShiftType(req.ShiftType),
		LinkedScheduledShiftID: req.LinkedScheduledShiftID,
	}
	if req.PlannedStart != "" {
		planned, err := time.Parse(time.RFC3339, req.PlannedStart)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid planned_start (want RFC3339)", err)
			return
		}
		params.PlannedStart = planned
	}

	shift, err := h.Shifts.ClockIn(r.Context(), params)
	if err != nil {
		writeShiftError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWorkedShiftDTO(shift))
}

func (h *Handler) ClockOut(w http.ResponseWriter, r *http.Request) {
	shift, err := h.Shifts.ClockOut(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeShiftError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkedShiftDTO(shift))
}

func (h *Handler) ForceClose(w http.ResponseWriter, r *http.Request) {
	var req ForceCloseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	shift, err := h.Shifts.ForceClose(r.Context(), chi.URLParam(r, "id"), req.Note)
	if err != nil {
		writeShiftError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkedShiftDTO(shift))
}

func (h *Handler) ApproveOverride(w http.ResponseWriter, r *http.Request) {
	var req ApproveOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	shift, err := h.Shifts.ApproveOverride(r.Context(), chi.URLParam(r, "id"), req.Note)
	if err != nil {
		writeShiftError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkedShiftDTO(shift))
}

func (h *Handler) ReviewManualClose(w http.ResponseWriter, r *http.Request) {
	shift, err := h.Shifts.ReviewManualClose(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeShiftError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkedShiftDTO(shift))
}

func (h *Handler) SoftDeleteShift(w http.ResponseWriter, r *http.Request) {
	if err := h.Shifts.SoftDelete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeShiftError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ADVANCES
// =============================================================================

func (h *Handler) CreateAdvance(w http.ResponseWriter, r *http.Request) {
	var req CreateAdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := engine.ParseBusinessDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	hours, err := decimal.NewFromString(req.Hours)
	if err != nil || hours.IsNegative() {
		writeError(w, http.StatusBadRequest, "Invalid hours", err)
		return
	}

	advance := engine.PayrollAdvance{
		ID:         uuid.NewString(),
		EmployeeID: req.EmployeeID,
		StoreID:    req.StoreID,
		Date:       date,
		Hours:      hours,
		Status:     engine.AdvancePendingVerification,
	}
	if err := h.Store.SaveAdvance(r.Context(), advance); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save advance", err)
		return
	}
	writeJSON(w, http.StatusCreated, AdvanceDTO{
		ID:         advance.ID,
		EmployeeID: advance.EmployeeID,
		StoreID:    advance.StoreID,
		Date:       advance.Date.String(),
		Hours:      advance.Hours.String(),
		Status:     string(advance.Status),
	})
}

func (h *Handler) VerifyAdvance(w http.ResponseWriter, r *http.Request) {
	h.setAdvanceStatus(w, r, engine.AdvanceVerified)
}

func (h *Handler) VoidAdvance(w http.ResponseWriter, r *http.Request) {
	h.setAdvanceStatus(w, r, engine.AdvanceVoided)
}

func (h *Handler) setAdvanceStatus(w http.ResponseWriter, r *http.Request, status engine.AdvanceStatus) {
	id := chi.URLParam(r, "id")
	if err := h.Store.SetAdvanceStatus(r.Context(), id, status); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update advance", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(status)})
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// Reconciliation runs the engine for the query-string period and returns
// the JSON report.
//
// Query params: from, to (required), as_of (optional), stores (optional
// comma-separated filter within the authorized scope).
func (h *Handler) Reconciliation(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.runReconciliation(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(rep))
}

// ReconciliationText renders the same report as plain text.
func (h *Handler) ReconciliationText(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.runReconciliation(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(report.Render(rep)))
}

func (h *Handler) runReconciliation(w http.ResponseWriter, r *http.Request) (engine.Report, bool) {
	q := r.URL.Query()
	params := payroll.Params{
		From: q.Get("from"),
		To:   q.Get("to"),
		AsOf: q.Get("as_of"),
	}
	if stores := q.Get("stores"); stores != "" {
		params.StoreFilter = strings.Split(stores, ",")
	}

	rep, err := h.Payroll.Reconcile(r.Context(), storeScope(r), params)
	if err != nil {
		if engine.IsClientError(err) {
			writeError(w, http.StatusBadRequest, "Invalid reconciliation request", err)
		} else {
			h.Log.WithError(err).Error("Reconciliation run failed")
			writeError(w, http.StatusInternalServerError, "Reconciliation failed", err)
		}
		return engine.Report{}, false
	}
	return rep, true
}

// storeScope reads the caller's authorized stores from the gateway header.
func storeScope(r *http.Request) []string {
	header := r.Header.Get("X-Store-Scope")
	if header == "" {
		return nil
	}
	parts := strings.Split(header, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeShiftError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shifts.ErrShiftNotFound):
		writeError(w, http.StatusNotFound, "Shift not found", err)
	case errors.Is(err, shifts.ErrAlreadyClockedIn),
		errors.Is(err, shifts.ErrShiftAlreadyEnded),
		errors.Is(err, shifts.ErrShiftDeleted):
		writeError(w, http.StatusConflict, "Shift state conflict", err)
	case errors.Is(err, shifts.ErrShiftStillOpen),
		errors.Is(err, shifts.ErrNothingToApprove):
		writeError(w, http.StatusBadRequest, "Invalid shift operation", err)
	default:
		writeError(w, http.StatusInternalServerError, "Shift operation failed", err)
	}
}

func formatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
