package schedule

import "time"

// SaturdayPolicy controls which Saturdays are working days for an employee.
type SaturdayPolicy string

const (
	SaturdayAllOff     SaturdayPolicy = "all_off"
	SaturdayAllWorking SaturdayPolicy = "all_working"
	SaturdayWeek13Off  SaturdayPolicy = "week_1_3_off"
	SaturdayWeek24Off  SaturdayPolicy = "week_2_4_off"
)

// ShiftSchedule is a single daily start/end shift. Immutable per assignment;
// referenced by attendance resolution, never copied.
type ShiftSchedule struct {
	ID                        string
	Name                      string
	StartTime                 string // HH:MM civil wall-clock
	EndTime                   string
	DurationMinutes           int
	PaidBreakAllowanceMinutes int
	SaturdayPolicy            SaturdayPolicy

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Holiday is a company-wide non-working calendar date.
type Holiday struct {
	ID   string
	Date time.Time
	Name string
}

// IsWorkingSaturday reports whether a Saturday is a working day under the
// policy. The ordinal is the Saturday's position within its month (1-5).
func (p SaturdayPolicy) IsWorkingSaturday(date time.Time) bool {
	if date.Weekday() != time.Saturday {
		return false
	}
	ordinal := (date.Day()-1)/7 + 1
	switch p {
	case SaturdayAllWorking:
		return true
	case SaturdayWeek13Off:
		return ordinal != 1 && ordinal != 3
	case SaturdayWeek24Off:
		return ordinal != 2 && ordinal != 4
	default: // SaturdayAllOff
		return false
	}
}
