package leave

import (
	"errors"
	"fmt"
)

var (
	ErrRequestNotFound     = errors.New("Leave request not found")
	ErrAlreadyProcessed    = errors.New("Leave request already processed")
	ErrNotApproved         = errors.New("Leave request is not approved")
	ErrYearEndNotProcessed = errors.New("Year-end request was never processed")
	ErrTransitionConflict  = errors.New("Leave request transition lost a concurrent race")
	ErrNoDates             = errors.New("Leave request has no dates")
)

// Policy rule codes. Stable machine-readable identifiers returned to callers
// alongside the human message.
const (
	CodeEmployeeTypeRestriction = "EMPLOYEE_TYPE_RESTRICTION"
	CodeBackdatedLOPRequired    = "BACKDATED_LOP_REQUIRED"
	CodeCasualAdvanceNotice     = "CASUAL_ADVANCE_NOTICE"
	CodePlannedAdvanceNotice    = "PLANNED_ADVANCE_NOTICE"
	CodeCompOffThursday         = "COMPOFF_THURSDAY_DEADLINE"
	CodeSickCertificateRequired = "SICK_CERTIFICATE_REQUIRED"
	CodeMonthlyRequestLimit     = "MONTHLY_REQUEST_LIMIT"
	CodeMonthlyWorkingDaysLimit = "MONTHLY_WORKING_DAYS_LIMIT"
	CodeTuesdayBlocked          = "TUESDAY_BLOCKED"
	CodeThursdayBlocked         = "THURSDAY_BLOCKED"
	CodeFridayBeforeSaturdayOff = "FRIDAY_BEFORE_SATURDAY_OFF"
)

// PolicyViolation is a denial from the policy validator. It is reported to
// the caller, never retried.
type PolicyViolation struct {
	Code    string
	Message string
}

func (e *PolicyViolation) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AsPolicyViolation unwraps err into a PolicyViolation if it is one.
func AsPolicyViolation(err error) (*PolicyViolation, bool) {
	var pv *PolicyViolation
	if errors.As(err, &pv) {
		return pv, true
	}
	return nil, false
}
