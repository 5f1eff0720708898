package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-engine-go/internal/handler/http/response"
	attendanceService "github.com/cmlabs-hris/attendance-engine-go/internal/service/attendance"
	"github.com/go-chi/chi/v5"
)

type AttendanceHandler interface {
	ClockIn(w http.ResponseWriter, r *http.Request)
	ClockOut(w http.ResponseWriter, r *http.Request)
	Recalculate(w http.ResponseWriter, r *http.Request)
	UpdateSession(w http.ResponseWriter, r *http.Request)
	SetOverride(w http.ResponseWriter, r *http.Request)
	ClearOverride(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	service *attendanceService.Service
}

func NewAttendanceHandler(service *attendanceService.Service) AttendanceHandler {
	return &attendanceHandlerImpl{service: service}
}

type recordResponse struct {
	ID           string     `json:"id"`
	EmployeeID   string     `json:"employee_id"`
	Date         string     `json:"date"`
	ClockIn      *time.Time `json:"clock_in,omitempty"`
	ClockOut     *time.Time `json:"clock_out,omitempty"`
	BreakMinutes int        `json:"break_minutes"`
	IsLate       bool       `json:"is_late"`
	IsHalfDay    bool       `json:"is_half_day"`
	LateMinutes  int        `json:"late_minutes"`
	Status       string     `json:"status"`
	Source       string     `json:"source"`
	Override     string     `json:"override"`
}

func toRecordResponse(r attendance.Record) recordResponse {
	return recordResponse{
		ID:           r.ID,
		EmployeeID:   r.EmployeeID,
		Date:         r.Date.Format("2006-01-02"),
		ClockIn:      r.ClockIn,
		ClockOut:     r.ClockOut,
		BreakMinutes: r.BreakMinutes,
		IsLate:       r.IsLate,
		IsHalfDay:    r.IsHalfDay,
		LateMinutes:  r.LateMinutes,
		Status:       string(r.Status),
		Source:       string(r.Source),
		Override:     string(r.Override),
	}
}

// ClockIn implements AttendanceHandler.
func (h *attendanceHandlerImpl) ClockIn(w http.ResponseWriter, r *http.Request) {
	employeeID := middleware.EmployeeID(r.Context())
	if employeeID == "" {
		response.Forbidden(w, "No employee profile on this account")
		return
	}

	record, err := h.service.ClockIn(r.Context(), employeeID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Clocked in", toRecordResponse(record))
}

// ClockOut implements AttendanceHandler.
func (h *attendanceHandlerImpl) ClockOut(w http.ResponseWriter, r *http.Request) {
	employeeID := middleware.EmployeeID(r.Context())
	if employeeID == "" {
		response.Forbidden(w, "No employee profile on this account")
		return
	}

	var req struct {
		BreakMinutes int `json:"break_minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	if req.BreakMinutes < 0 {
		response.BadRequest(w, "break_minutes must not be negative", nil)
		return
	}

	record, err := h.service.ClockOut(r.Context(), employeeID, req.BreakMinutes)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Clocked out", toRecordResponse(record))
}

// Recalculate implements AttendanceHandler.
func (h *attendanceHandlerImpl) Recalculate(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "id")

	record, err := h.service.Recalculate(r.Context(), recordID, middleware.UserID(r.Context()))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, toRecordResponse(record))
}

// UpdateSession implements AttendanceHandler.
func (h *attendanceHandlerImpl) UpdateSession(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "id")

	var req struct {
		ClockIn      *time.Time `json:"clock_in"`
		ClockOut     *time.Time `json:"clock_out"`
		BreakMinutes *int       `json:"break_minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	record, err := h.service.UpdateSession(r.Context(), recordID, req.ClockIn, req.ClockOut, req.BreakMinutes, middleware.UserID(r.Context()))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Session updated", toRecordResponse(record))
}

// SetOverride implements AttendanceHandler.
func (h *attendanceHandlerImpl) SetOverride(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "id")

	var req struct {
		Override string `json:"override"`
		Reason   string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	override := attendance.Override(req.Override)
	if override != attendance.OverrideHalfDay && override != attendance.OverrideLate {
		response.BadRequest(w, "override must be override_half_day or override_late", nil)
		return
	}
	if req.Reason == "" {
		response.BadRequest(w, "reason is required", nil)
		return
	}

	record, err := h.service.SetOverride(r.Context(), recordID, override, req.Reason, middleware.UserID(r.Context()))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Override set", toRecordResponse(record))
}

// ClearOverride implements AttendanceHandler.
func (h *attendanceHandlerImpl) ClearOverride(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "id")

	record, err := h.service.ClearOverride(r.Context(), recordID, middleware.UserID(r.Context()))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Override cleared", toRecordResponse(record))
}
