package attendance

import "errors"

var (
	ErrRecordNotFound    = errors.New("Attendance record not found")
	ErrAlreadyClockedIn  = errors.New("Employee already clocked in today")
	ErrNotClockedIn      = errors.New("No open attendance session")
	ErrSessionConflict   = errors.New("Attendance session was modified concurrently")
	ErrOverrideNotSet    = errors.New("No admin override set on record")
	ErrNoShiftAssignment = errors.New("Employee has no shift schedule assigned")
)
