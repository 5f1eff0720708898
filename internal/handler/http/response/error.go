package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/settings"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/clock"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Policy denials carry their own machine-readable code.
	if violation, ok := leave.AsPolicyViolation(err); ok {
		PolicyDenied(w, violation.Code, violation.Message)
		return
	}

	var formatErr *clock.FormatError
	if errors.As(err, &formatErr) {
		BadRequest(w, formatErr.Error(), nil)
		return
	}

	switch {
	// Attendance domain errors
	case errors.Is(err, attendance.ErrRecordNotFound):
		NotFound(w, "Attendance record not found")
	case errors.Is(err, attendance.ErrAlreadyClockedIn):
		Conflict(w, "Already clocked in today")
	case errors.Is(err, attendance.ErrNotClockedIn):
		BadRequest(w, "No open session to clock out of", nil)
	case errors.Is(err, attendance.ErrSessionConflict):
		Conflict(w, "Session was closed by a concurrent request")
	case errors.Is(err, attendance.ErrOverrideNotSet):
		BadRequest(w, "No override is set on this record", nil)
	case errors.Is(err, attendance.ErrNoShiftAssignment):
		BadRequest(w, "Employee has no shift assignment", nil)

	// Leave domain errors
	case errors.Is(err, leave.ErrRequestNotFound):
		NotFound(w, "Leave request not found")
	case errors.Is(err, leave.ErrAlreadyProcessed):
		Conflict(w, "Leave request already processed")
	case errors.Is(err, leave.ErrNotApproved):
		Conflict(w, "Leave request is not approved")
	case errors.Is(err, leave.ErrYearEndNotProcessed):
		Conflict(w, "Year-end request has not been processed")
	case errors.Is(err, leave.ErrTransitionConflict):
		Conflict(w, "Leave request changed state during processing")
	case errors.Is(err, leave.ErrNoDates):
		BadRequest(w, "Leave request has no dates", nil)

	// Employee domain errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, employee.ErrBalanceNotFound):
		NotFound(w, "Leave balance not found")

	// Schedule domain errors
	case errors.Is(err, schedule.ErrShiftScheduleNotFound):
		NotFound(w, "Shift schedule not found")

	// Settings domain errors
	case errors.Is(err, settings.ErrSettingNotFound):
		NotFound(w, "Setting not found")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
