package attendance

import (
	"context"
	"time"
)

// RecordRepository - interface for attendance_records table.
//
// CloseSession must be a conditional update (WHERE clock_out IS NULL) so two
// concurrent clock-outs cannot both succeed; it reports whether the row was
// matched. Upsert keys on (employee_id, date).
type RecordRepository interface {
	Create(ctx context.Context, record Record) (Record, error)
	GetByID(ctx context.Context, id string) (Record, error)
	GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*Record, error)
	Upsert(ctx context.Context, record Record) (Record, error)
	Update(ctx context.Context, record Record) error
	CloseSession(ctx context.Context, id string, clockOut time.Time, breakMinutes int) (bool, error)
	ListOpenBefore(ctx context.Context, date time.Time) ([]Record, error)
	ListByLeaveRequest(ctx context.Context, leaveRequestID string) ([]Record, error)
	Delete(ctx context.Context, id string) error
}
