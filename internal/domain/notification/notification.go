package notification

import (
	"context"
	"time"
)

type Notification struct {
	ID        string
	UserID    string
	Message   string
	Metadata  map[string]any
	IsRead    bool
	CreatedAt time.Time
}

// Repository - interface for notifications table
type Repository interface {
	CreateBatch(ctx context.Context, notifications []Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, id string) error
}

// Service delivers notifications. Best-effort: delivery failures are logged
// and never surfaced to the triggering operation.
type Service interface {
	Notify(userID, message string, metadata map[string]any)
	NotifyAdmins(message string, metadata map[string]any)
	Stop()
}
