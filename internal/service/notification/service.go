package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/sse"
	"github.com/google/uuid"
)

// Config holds notification service configuration
type Config struct {
	BatchSize     int           // default: 100
	FlushInterval time.Duration // default: 5 seconds
	WorkerCount   int           // default: 2
	QueueSize     int           // default: 1000
}

type service struct {
	repo      notification.Repository
	employees employee.EmployeeRepository
	hub       *sse.Hub
	config    Config

	queue  chan notification.Notification
	wg     sync.WaitGroup
	stopCh chan struct{}
}

// NewService starts background workers that batch-insert queued notifications
// and push them to connected SSE subscribers.
func NewService(repo notification.Repository, employees employee.EmployeeRepository, hub *sse.Hub, cfg Config) notification.Service {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 1000
	}

	s := &service{
		repo:      repo,
		employees: employees,
		hub:       hub,
		config:    cfg,
		queue:     make(chan notification.Notification, cfg.QueueSize),
		stopCh:    make(chan struct{}),
	}

	for i := 0; i < cfg.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	slog.Info("notification service started",
		"workers", cfg.WorkerCount,
		"batch_size", cfg.BatchSize,
		"flush_interval", cfg.FlushInterval,
	)

	return s
}

func (s *service) worker(id int) {
	defer s.wg.Done()

	batch := make([]notification.Notification, 0, s.config.BatchSize)
	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.repo.CreateBatch(ctx, batch); err != nil {
			slog.Error("failed to batch insert notifications", "worker", id, "error", err)
		} else {
			for _, n := range batch {
				s.hub.Publish(n.UserID, sse.Event{
					UserID: n.UserID,
					Event:  "notification",
					Data:   n,
				})
			}
		}

		batch = batch[:0]
	}

	for {
		select {
		case n := <-s.queue:
			batch = append(batch, n)
			if len(batch) >= s.config.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.stopCh:
			flush()
			return
		}
	}
}

// Notify implements notification.Service. Non-blocking: when the queue is
// full the notification is dropped and logged rather than stalling the
// triggering operation.
func (s *service) Notify(userID, message string, metadata map[string]any) {
	n := notification.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Message:   message,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}

	select {
	case s.queue <- n:
	default:
		slog.Warn("notification queue full, dropping", "user_id", userID)
	}
}

// NotifyAdmins implements notification.Service.
func (s *service) NotifyAdmins(message string, metadata map[string]any) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	adminIDs, err := s.employees.ListAdminUserIDs(ctx)
	if err != nil {
		slog.Error("failed to list admin users for notification", "error", err)
		return
	}

	for _, id := range adminIDs {
		s.Notify(id, message, metadata)
	}
}

// Stop flushes pending notifications and waits for the workers to exit.
func (s *service) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	slog.Info("notification service stopped")
}
