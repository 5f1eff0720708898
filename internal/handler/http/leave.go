package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-engine-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-engine-go/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/clock"
	leaveService "github.com/cmlabs-hris/attendance-engine-go/internal/service/leave"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type LeaveHandler interface {
	Submit(w http.ResponseWriter, r *http.Request)
	Approve(w http.ResponseWriter, r *http.Request)
	Reject(w http.ResponseWriter, r *http.Request)
	EditDates(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

type leaveHandlerImpl struct {
	sync  *leaveService.SyncService
	clock *clock.Clock
}

func NewLeaveHandler(sync *leaveService.SyncService, c *clock.Clock) LeaveHandler {
	return &leaveHandlerImpl{sync: sync, clock: c}
}

type submitLeaveRequest struct {
	Type           string   `json:"type"`
	DayPart        string   `json:"day_part"`
	Dates          []string `json:"dates"`
	Reason         string   `json:"reason"`
	AttachmentURL  *string  `json:"attachment_url"`
	AdminOverride  bool     `json:"admin_override"`
	OverrideReason *string  `json:"override_reason"`
	YearEndYear    *int     `json:"year_end_year"`
	YearEndSubType *string  `json:"year_end_sub_type"`
	YearEndDays    *string  `json:"year_end_days"`
}

type leaveRequestResponse struct {
	ID          string   `json:"id"`
	EmployeeID  string   `json:"employee_id"`
	Type        string   `json:"type"`
	DayPart     string   `json:"day_part"`
	Dates       []string `json:"dates"`
	Status      string   `json:"status"`
	IsBackdated bool     `json:"is_backdated"`
	IsProcessed bool     `json:"is_processed"`
}

func (h *leaveHandlerImpl) toResponse(req leave.Request) leaveRequestResponse {
	dates := make([]string, 0, len(req.Dates))
	for _, d := range req.Dates {
		dates = append(dates, h.clock.DateKey(d))
	}
	return leaveRequestResponse{
		ID:          req.ID,
		EmployeeID:  req.EmployeeID,
		Type:        string(req.Type),
		DayPart:     string(req.DayPart),
		Dates:       dates,
		Status:      string(req.Status),
		IsBackdated: req.IsBackdated,
		IsProcessed: req.IsProcessed,
	}
}

func (h *leaveHandlerImpl) parseDates(raw []string) ([]time.Time, error) {
	dates := make([]time.Time, 0, len(raw))
	for _, s := range raw {
		d, err := h.clock.ParseDate(s)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// Submit implements LeaveHandler.
func (h *leaveHandlerImpl) Submit(w http.ResponseWriter, r *http.Request) {
	employeeID := middleware.EmployeeID(r.Context())
	if employeeID == "" {
		response.Forbidden(w, "No employee profile on this account")
		return
	}

	var req submitLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	dates, err := h.parseDates(req.Dates)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	dayPart := leave.DayPart(req.DayPart)
	if dayPart == "" {
		dayPart = leave.FullDay
	}

	request := leave.Request{
		EmployeeID:     employeeID,
		Type:           leave.RequestType(req.Type),
		DayPart:        dayPart,
		Dates:          dates,
		Reason:         req.Reason,
		AttachmentURL:  req.AttachmentURL,
		AdminOverride:  req.AdminOverride,
		OverrideReason: req.OverrideReason,
		YearEndYear:    req.YearEndYear,
	}
	if req.YearEndSubType != nil {
		subType := leave.YearEndSubType(*req.YearEndSubType)
		request.YearEndSubType = &subType
	}
	if req.YearEndDays != nil {
		days, err := decimal.NewFromString(*req.YearEndDays)
		if err != nil {
			response.BadRequest(w, "year_end_days must be a decimal number", nil)
			return
		}
		request.YearEndDays = &days
	}

	created, err := h.sync.Submit(r.Context(), request)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Leave request submitted", h.toResponse(created))
}

// Approve implements LeaveHandler.
func (h *leaveHandlerImpl) Approve(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")

	request, err := h.sync.Approve(r.Context(), requestID, middleware.UserID(r.Context()))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Leave request approved", h.toResponse(request))
}

// Reject implements LeaveHandler.
func (h *leaveHandlerImpl) Reject(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")

	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	if req.Reason == "" {
		response.BadRequest(w, "reason is required", nil)
		return
	}

	request, err := h.sync.Reject(r.Context(), requestID, req.Reason, middleware.UserID(r.Context()))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Leave request rejected", h.toResponse(request))
}

// EditDates implements LeaveHandler.
func (h *leaveHandlerImpl) EditDates(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")

	var req struct {
		Dates []string `json:"dates"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	if len(req.Dates) == 0 {
		response.BadRequest(w, "dates must not be empty", nil)
		return
	}

	dates, err := h.parseDates(req.Dates)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	request, err := h.sync.EditDates(r.Context(), requestID, dates, middleware.UserID(r.Context()))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Leave dates updated", h.toResponse(request))
}

// Delete implements LeaveHandler.
func (h *leaveHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")

	if err := h.sync.Delete(r.Context(), requestID, middleware.UserID(r.Context())); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Leave request deleted", nil)
}
