package leave

import (
	"context"
	"time"
)

// RequestRepository - interface for leave_requests table.
//
// UpdateStatusIf and MarkProcessedIf are conditional writes: they only touch
// the row when it is still in the expected prior state and report whether a
// row was matched, so concurrent transitions cannot both win.
type RequestRepository interface {
	Create(ctx context.Context, request Request) (Request, error)
	GetByID(ctx context.Context, id string) (Request, error)
	Update(ctx context.Context, request Request) error
	UpdateStatusIf(ctx context.Context, id string, from, to RequestStatus, decidedBy string, reason *string) (bool, error)
	MarkProcessedIf(ctx context.Context, id string) (bool, error)
	UpdateDates(ctx context.Context, id string, dates []time.Time) error
	ListForMonth(ctx context.Context, employeeID string, year int, month time.Month, statuses []RequestStatus) ([]Request, error)
	Delete(ctx context.Context, id string) error
}
