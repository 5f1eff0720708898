package schedule

import (
	"context"
	"time"
)

// ShiftScheduleRepository - interface for shift_schedules table
type ShiftScheduleRepository interface {
	Create(ctx context.Context, shift ShiftSchedule) (ShiftSchedule, error)
	GetByID(ctx context.Context, id string) (ShiftSchedule, error)
	List(ctx context.Context) ([]ShiftSchedule, error)
}

// HolidayRepository - interface for holidays table
type HolidayRepository interface {
	Create(ctx context.Context, holiday Holiday) (Holiday, error)
	GetByDateRange(ctx context.Context, from, to time.Time) ([]Holiday, error)
}
