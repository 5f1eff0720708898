package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/audit"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-engine-go/internal/service/graceperiod"
)

type Service struct {
	records   attendance.RecordRepository
	employees employee.EmployeeRepository
	resolver  *Resolver
	grace     *graceperiod.Provider
	clock     *clock.Clock
	audit     audit.Sink
	notifier  notification.Service
	hub       *sse.Hub
}

func NewService(
	records attendance.RecordRepository,
	employees employee.EmployeeRepository,
	resolver *Resolver,
	grace *graceperiod.Provider,
	c *clock.Clock,
	auditSink audit.Sink,
	notifier notification.Service,
	hub *sse.Hub,
) *Service {
	return &Service{
		records:   records,
		employees: employees,
		resolver:  resolver,
		grace:     grace,
		clock:     c,
		audit:     auditSink,
		notifier:  notifier,
		hub:       hub,
	}
}

// ClockIn opens today's attendance session and classifies the arrival.
func (s *Service) ClockIn(ctx context.Context, employeeID string) (attendance.Record, error) {
	emp, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to get employee: %w", err)
	}
	if emp.Shift.StartTime == "" {
		return attendance.Record{}, attendance.ErrNoShiftAssignment
	}

	now := s.clock.Now()
	today := s.clock.DateOnly(now)

	existing, err := s.records.GetByEmployeeAndDate(ctx, employeeID, today)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to check today's record: %w", err)
	}
	if existing != nil && existing.ClockIn != nil {
		return attendance.Record{}, attendance.ErrAlreadyClockedIn
	}

	res, err := s.resolver.Resolve(ResolveInput{
		ClockIn:      &now,
		Shift:        emp.Shift,
		GraceMinutes: s.grace.Get(ctx),
	})
	if err != nil {
		return attendance.Record{}, err
	}

	record := attendance.Record{
		EmployeeID: employeeID,
		Date:       today,
		ClockIn:    &now,
		Override:   attendance.OverrideNone,
	}
	if existing != nil {
		record = *existing
		record.ClockIn = &now
	}
	Apply(&record, res)

	saved, err := s.records.Upsert(ctx, record)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to save attendance record: %w", err)
	}

	if res.HalfDayFromLateness {
		s.notifyLateHalfDay(ctx, emp, saved)
	}
	s.hub.Emit("attendance.clock_in", map[string]any{
		"employee_id": employeeID,
		"date":        s.clock.DateKey(today),
		"status":      saved.Status,
	})

	return saved, nil
}

// ClockOut closes today's session with an atomic conditional update so two
// concurrent clock-outs cannot both succeed, then re-resolves the day with
// the worked-hours rule in play.
func (s *Service) ClockOut(ctx context.Context, employeeID string, breakMinutes int) (attendance.Record, error) {
	emp, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to get employee: %w", err)
	}

	now := s.clock.Now()
	today := s.clock.DateOnly(now)

	record, err := s.records.GetByEmployeeAndDate(ctx, employeeID, today)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to get today's record: %w", err)
	}
	if record == nil || record.ClockIn == nil {
		return attendance.Record{}, attendance.ErrNotClockedIn
	}
	if record.ClockOut != nil {
		return attendance.Record{}, attendance.ErrSessionConflict
	}

	closed, err := s.records.CloseSession(ctx, record.ID, now, breakMinutes)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to close session: %w", err)
	}
	if !closed {
		return attendance.Record{}, attendance.ErrSessionConflict
	}
	record.ClockOut = &now
	record.BreakMinutes = breakMinutes

	return s.recalculate(ctx, emp, *record, "")
}

// Recalculate re-derives the day's classification from the record's current
// clock times. Idempotent: unchanged inputs never alter the stored status.
func (s *Service) Recalculate(ctx context.Context, recordID string, actorID string) (attendance.Record, error) {
	record, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, attendance.ErrRecordNotFound) {
			return attendance.Record{}, attendance.ErrRecordNotFound
		}
		return attendance.Record{}, fmt.Errorf("failed to get record: %w", err)
	}

	// Leave-stamped days are owned by the synchronizer.
	if record.Status == attendance.StatusLeave {
		return record, nil
	}

	emp, err := s.employees.GetByID(ctx, record.EmployeeID)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to get employee: %w", err)
	}

	return s.recalculate(ctx, emp, record, actorID)
}

// UpdateSession lets an admin correct clock times; the day is re-resolved
// from the edited values, never from stale stored flags.
func (s *Service) UpdateSession(ctx context.Context, recordID string, clockIn, clockOut *time.Time, breakMinutes *int, actorID string) (attendance.Record, error) {
	record, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to get record: %w", err)
	}

	if clockIn != nil {
		record.ClockIn = clockIn
	}
	if clockOut != nil {
		record.ClockOut = clockOut
	}
	if breakMinutes != nil {
		record.BreakMinutes = *breakMinutes
	}

	emp, err := s.employees.GetByID(ctx, record.EmployeeID)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to get employee: %w", err)
	}

	return s.recalculate(ctx, emp, record, actorID)
}

// SetOverride stamps an administrative override and re-resolves. The override
// wins over the computed classification until explicitly cleared.
func (s *Service) SetOverride(ctx context.Context, recordID string, override attendance.Override, reason string, actorID string) (attendance.Record, error) {
	record, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to get record: %w", err)
	}

	record.Override = override
	record.OverrideReason = &reason

	emp, err := s.employees.GetByID(ctx, record.EmployeeID)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to get employee: %w", err)
	}

	updated, err := s.recalculate(ctx, emp, record, actorID)
	if err != nil {
		return attendance.Record{}, err
	}

	s.audit.Record(ctx, audit.EventOverrideSet, actorID, map[string]any{
		"record_id": recordID,
		"override":  override,
		"reason":    reason,
		"status":    updated.Status,
	})
	return updated, nil
}

// ClearOverride removes the override and returns the day to its computed
// classification.
func (s *Service) ClearOverride(ctx context.Context, recordID string, actorID string) (attendance.Record, error) {
	record, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to get record: %w", err)
	}
	if record.Override == attendance.OverrideNone {
		return attendance.Record{}, attendance.ErrOverrideNotSet
	}

	record.Override = attendance.OverrideNone
	record.OverrideReason = nil

	emp, err := s.employees.GetByID(ctx, record.EmployeeID)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to get employee: %w", err)
	}

	updated, err := s.recalculate(ctx, emp, record, actorID)
	if err != nil {
		return attendance.Record{}, err
	}

	s.audit.Record(ctx, audit.EventOverrideCleared, actorID, map[string]any{
		"record_id": recordID,
		"status":    updated.Status,
	})
	return updated, nil
}

func (s *Service) recalculate(ctx context.Context, emp employee.Employee, record attendance.Record, actorID string) (attendance.Record, error) {
	wasHalfDay := record.IsHalfDay

	res, err := s.resolver.Resolve(ResolveInput{
		ClockIn:      record.ClockIn,
		ClockOut:     record.ClockOut,
		BreakMinutes: record.BreakMinutes,
		Shift:        emp.Shift,
		GraceMinutes: s.grace.Get(ctx),
		Override:     record.Override,
	})
	if err != nil {
		return attendance.Record{}, err
	}
	Apply(&record, res)

	if err := s.records.Update(ctx, record); err != nil {
		return attendance.Record{}, fmt.Errorf("failed to update record: %w", err)
	}

	if res.HalfDayFromLateness && !wasHalfDay {
		s.notifyLateHalfDay(ctx, emp, record)
	}

	return record, nil
}

func (s *Service) notifyLateHalfDay(ctx context.Context, emp employee.Employee, record attendance.Record) {
	s.audit.Record(ctx, audit.EventHalfDayFlagged, emp.ID, map[string]any{
		"record_id":    record.ID,
		"date":         s.clock.DateKey(record.Date),
		"late_minutes": record.LateMinutes,
	})
	s.notifier.Notify(emp.UserID, "Your arrival today was beyond the grace period and counts as a half day.", map[string]any{
		"record_id":    record.ID,
		"late_minutes": record.LateMinutes,
	})
	s.notifier.NotifyAdmins(fmt.Sprintf("%s was marked half-day for late arrival (%d min).", emp.Name, record.LateMinutes), map[string]any{
		"employee_id": emp.ID,
		"record_id":   record.ID,
	})
}
