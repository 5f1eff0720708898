package attendance

import "time"

// Status is the authoritative per-day attendance classification.
type Status string

const (
	StatusOnTime  Status = "on_time"
	StatusLate    Status = "late"
	StatusHalfDay Status = "half_day"
	StatusAbsent  Status = "absent"
	StatusLeave   Status = "leave"
)

// StatusSource discriminates how the current status was produced. The
// precedence rule is explicit: admin_override wins until cleared.
type StatusSource string

const (
	SourceComputed      StatusSource = "computed"
	SourceAdminOverride StatusSource = "admin_override"
)

// Override is the administrative suppression flag on a record.
type Override string

const (
	OverrideNone    Override = "none"
	OverrideHalfDay Override = "override_half_day"
	OverrideLate    Override = "override_late"
)

// Record is the single attendance row per (employee, calendar date).
// Status is always a deterministic function of the other fields unless an
// override is set. Preserved* fields hold worked time displaced by a
// backdated leave approval so it is never silently discarded.
type Record struct {
	ID         string
	EmployeeID string
	Date       time.Time // civil midnight

	ClockIn      *time.Time
	ClockOut     *time.Time
	BreakMinutes int // unpaid break time logged against the session

	IsLate      bool
	IsHalfDay   bool
	LateMinutes int
	Status      Status
	Source      StatusSource

	Override       Override
	OverrideReason *string

	LeaveRequestID         *string
	PreservedClockIn       *time.Time
	PreservedClockOut      *time.Time
	PreservedWorkedMinutes *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// WorkedMinutes is the gross session length, zero while the session is open.
func (r Record) WorkedMinutes() int {
	if r.ClockIn == nil || r.ClockOut == nil {
		return 0
	}
	return int(r.ClockOut.Sub(*r.ClockIn).Minutes())
}
