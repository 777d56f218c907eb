/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/storeops/shiftledger/engine"
)

// =============================================================================
// EMPLOYEES AND STORES
// =============================================================================

type EmployeeDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type StoreDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	BucketLabel string `json:"bucket_label,omitempty"`
}

// =============================================================================
// SCHEDULES
// =============================================================================

type ScheduledShiftDTO struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id"`
	StoreID    string `json:"store_id"`
	Date       string `json:"date"`
	ShiftType  string `json:"shift_type"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Status     string `json:"status"`
}

type CreateScheduledShiftRequest struct {
	EmployeeID string `json:"employee_id"`
	StoreID    string `json:"store_id"`
	Date       string `json:"date"`
	ShiftType  string `json:"shift_type"`
	Start      string `json:"start"`
	End        string `json:"end"`
}

type PublishScheduleRequest struct {
	StoreID string `json:"store_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// =============================================================================
// SHIFT LIFECYCLE
// =============================================================================

type WorkedShiftDTO struct {
	ID                     string `json:"id"`
	EmployeeID             string `json:"employee_id"`
	StoreID                string `json:"store_id"`
	ShiftType              string `json:"shift_type"`
	PlannedStart           string `json:"planned_start"`
	ActualStart            string `json:"actual_start"`
	EndedAt                string `json:"ended_at,omitempty"`
	LinkedScheduledShiftID string `json:"linked_scheduled_shift_id,omitempty"`
	RequiresOverride       bool   `json:"requires_override"`
	OverrideApprovedAt     string `json:"override_approved_at,omitempty"`
	OverrideNote           string `json:"override_note,omitempty"`
	ManuallyClosed         bool   `json:"manually_closed"`
	ManualCloseReviewedAt  string `json:"manual_close_reviewed_at,omitempty"`
}

type ClockInRequest struct {
	EmployeeID             string `json:"employee_id"`
	StoreID                string `json:"store_id"`
	ShiftType              string `json:"shift_type"`
	PlannedStart           string `json:"planned_start,omitempty"` // RFC3339, optional
	LinkedScheduledShiftID string `json:"linked_scheduled_shift_id,omitempty"`
}

type ForceCloseRequest struct {
	Note string `json:"note"`
}

type ApproveOverrideRequest struct {
	Note string `json:"note,omitempty"`
}

// =============================================================================
// ADVANCES
// =============================================================================

type AdvanceDTO struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id"`
	StoreID    string `json:"store_id"`
	Date       string `json:"date"`
	Hours      string `json:"hours"`
	Status     string `json:"status"`
}

type CreateAdvanceRequest struct {
	EmployeeID string `json:"employee_id"`
	StoreID    string `json:"store_id"`
	Date       string `json:"date"`
	Hours      string `json:"hours"`
}

// =============================================================================
// RECONCILIATION
// =============================================================================

type ReconciliationReportDTO struct {
	From       string               `json:"from"`
	To         string               `json:"to"`
	AsOf       string               `json:"as_of"`
	StoreIDs   []string             `json:"store_ids"`
	Status     string               `json:"status"`
	Checks     []CheckDTO           `json:"checks"`
	Employees  []EmployeeSummaryDTO `json:"employees"`
	Staffing   StaffingDTO          `json:"staffing"`
	Deltas     DeltasDTO            `json:"deltas"`
	Thresholds ThresholdsDTO        `json:"thresholds"`

	TotalScheduledHours string `json:"total_scheduled_hours"`
	TotalSubmitHours    string `json:"total_submit_hours"`
}

type CheckDTO struct {
	Key     string           `json:"key"`
	Label   string           `json:"label"`
	OK      bool             `json:"ok"`
	Count   int              `json:"count"`
	Details []CheckDetailDTO `json:"details"`
}

type CheckDetailDTO struct {
	WorkedShiftID    string `json:"worked_shift_id,omitempty"`
	ScheduledShiftID string `json:"scheduled_shift_id,omitempty"`
	EmployeeID       string `json:"employee_id"`
	StoreID          string `json:"store_id"`
	Date             string `json:"date"`
	Note             string `json:"note,omitempty"`
}

type EmployeeSummaryDTO struct {
	EmployeeID     string `json:"employee_id"`
	Name           string `json:"name"`
	WorkedHours    string `json:"worked_hours"`
	ProjectedHours string `json:"projected_hours"`
	ScheduledHours string `json:"scheduled_hours"`
	AdvanceHours   string `json:"advance_hours"`
	SubmitHours    string `json:"submit_hours"`
}

type StaffingDTO struct {
	Buckets             []StaffingBucketDTO `json:"buckets"`
	TotalScheduledHours string              `json:"total_scheduled_hours"`
}

type StaffingBucketDTO struct {
	Label          string `json:"label"`
	ScheduledHours string `json:"scheduled_hours"`
}

type DeltasDTO struct {
	ScheduledMinusSubmitted string `json:"scheduled_minus_submitted"`
	SubmittedMinusScheduled string `json:"submitted_minus_scheduled"`
	OpenMinusSubmitted      string `json:"open_minus_submitted"`
	CoveragePercent         string `json:"coverage_percent"`
}

type ThresholdsDTO struct {
	VarianceWarnHours   string `json:"variance_warn_hours"`
	ShiftDriftWarnHours string `json:"shift_drift_warn_hours"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toReportDTO(r engine.Report) ReconciliationReportDTO {
	checks := make([]CheckDTO, len(r.Checks))
	for i, c := range r.Checks {
		details := make([]CheckDetailDTO, len(c.Details))
		for j, d := range c.Details {
			details[j] = CheckDetailDTO{
				WorkedShiftID:    d.WorkedShiftID,
				ScheduledShiftID: d.ScheduledShiftID,
				EmployeeID:       d.EmployeeID,
				StoreID:          d.StoreID,
				Date:             d.Date.String(),
				Note:             d.Note,
			}
		}
		checks[i] = CheckDTO{
			Key:     string(c.Key),
			Label:   c.Label,
			OK:      c.OK,
			Count:   c.Count,
			Details: details,
		}
	}

	employees := make([]EmployeeSummaryDTO, len(r.Employees))
	for i, e := range r.Employees {
		employees[i] = EmployeeSummaryDTO{
			EmployeeID:     e.EmployeeID,
			Name:           e.Name,
			WorkedHours:    e.WorkedHours.String(),
			ProjectedHours: e.ProjectedHours.String(),
			ScheduledHours: e.ScheduledHours.String(),
			AdvanceHours:   e.AdvanceHours.String(),
			SubmitHours:    e.SubmitHours.String(),
		}
	}

	buckets := make([]StaffingBucketDTO, len(r.Staffing.Buckets))
	for i, bucket := range r.Staffing.Buckets {
		buckets[i] = StaffingBucketDTO{
			Label:          bucket.Label,
			ScheduledHours: bucket.ScheduledHours.String(),
		}
	}

	return ReconciliationReportDTO{
		From:      r.From.String(),
		To:        r.To.String(),
		AsOf:      r.AsOf.String(),
		StoreIDs:  r.StoreIDs,
		Status:    string(r.Status),
		Checks:    checks,
		Employees: employees,
		Staffing: StaffingDTO{
			Buckets:             buckets,
			TotalScheduledHours: r.Staffing.TotalScheduledHours.String(),
		},
		Deltas: DeltasDTO{
			ScheduledMinusSubmitted: r.Deltas.ScheduledMinusSubmitted.String(),
			SubmittedMinusScheduled: r.Deltas.SubmittedMinusScheduled.String(),
			OpenMinusSubmitted:      r.Deltas.OpenMinusSubmitted.String(),
			CoveragePercent:         r.Deltas.CoveragePercent.StringFixed(2),
		},
		Thresholds: ThresholdsDTO{
			VarianceWarnHours:   r.Thresholds.VarianceWarnHours.String(),
			ShiftDriftWarnHours: r.Thresholds.ShiftDriftWarnHours.String(),
		},
		TotalScheduledHours: r.TotalScheduledHours.String(),
		TotalSubmitHours:    r.TotalSubmitHours.String(),
	}
}

func toWorkedShiftDTO(w engine.WorkedShift) WorkedShiftDTO {
	dto := WorkedShiftDTO{
		ID:                     w.ID,
		EmployeeID:             w.EmployeeID,
		StoreID:                w.StoreID,
		ShiftType:              string(w.ShiftType),
		PlannedStart:           formatInstant(w.PlannedStart),
		ActualStart:            formatInstant(w.ActualStart),
		LinkedScheduledShiftID: w.LinkedScheduledShiftID,
		RequiresOverride:       w.RequiresOverride,
		OverrideNote:           w.OverrideNote,
		ManuallyClosed:         w.ManuallyClosed,
	}
	if w.End != nil {
		dto.EndedAt = formatInstant(*w.End)
	}
	if w.OverrideApprovedAt != nil {
		dto.OverrideApprovedAt = formatInstant(*w.OverrideApprovedAt)
	}
	if w.ManualCloseReviewedAt != nil {
		dto.ManualCloseReviewedAt = formatInstant(*w.ManualCloseReviewedAt)
	}
	return dto
}
