package schedule

import "errors"

var (
	ErrShiftScheduleNotFound = errors.New("Shift schedule not found")
)
