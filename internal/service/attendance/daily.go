package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-engine-go/internal/service/graceperiod"
)

// DailyJob is the end-of-day sweep: it marks employees with no session on a
// working day as Absent and re-resolves sessions left open past their day.
// Safe to run repeatedly; every write is an idempotent re-derivation.
type DailyJob struct {
	records   attendance.RecordRepository
	employees employee.EmployeeRepository
	holidays  schedule.HolidayRepository
	resolver  *Resolver
	grace     *graceperiod.Provider
	clock     *clock.Clock
}

func NewDailyJob(
	records attendance.RecordRepository,
	employees employee.EmployeeRepository,
	holidays schedule.HolidayRepository,
	resolver *Resolver,
	grace *graceperiod.Provider,
	c *clock.Clock,
) *DailyJob {
	return &DailyJob{
		records:   records,
		employees: employees,
		holidays:  holidays,
		resolver:  resolver,
		grace:     grace,
		clock:     c,
	}
}

// Run sweeps yesterday.
func (j *DailyJob) Run(ctx context.Context) error {
	yesterday := j.clock.TodayDate().AddDate(0, 0, -1)

	if err := j.markAbsent(ctx, yesterday); err != nil {
		return err
	}
	return j.resolveOpenSessions(ctx)
}

func (j *DailyJob) markAbsent(ctx context.Context, date time.Time) error {
	holidays, err := j.holidays.GetByDateRange(ctx, date, date)
	if err != nil {
		return fmt.Errorf("failed to load holidays: %w", err)
	}
	if len(holidays) > 0 {
		return nil
	}
	if date.Weekday() == time.Sunday {
		return nil
	}

	employees, err := j.employees.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active employees: %w", err)
	}

	marked := 0
	for _, emp := range employees {
		if date.Weekday() == time.Saturday && !emp.Shift.SaturdayPolicy.IsWorkingSaturday(date) {
			continue
		}
		if emp.HireDate.After(date) {
			continue
		}

		existing, err := j.records.GetByEmployeeAndDate(ctx, emp.ID, date)
		if err != nil {
			return fmt.Errorf("failed to check record for %s: %w", emp.ID, err)
		}
		if existing != nil {
			continue
		}

		record := attendance.Record{
			EmployeeID: emp.ID,
			Date:       date,
			Status:     attendance.StatusAbsent,
			Source:     attendance.SourceComputed,
			Override:   attendance.OverrideNone,
		}
		if _, err := j.records.Upsert(ctx, record); err != nil {
			return fmt.Errorf("failed to mark %s absent: %w", emp.ID, err)
		}
		marked++
	}

	if marked > 0 {
		slog.Info("marked employees absent", "date", j.clock.DateKey(date), "count", marked)
	}
	return nil
}

func (j *DailyJob) resolveOpenSessions(ctx context.Context) error {
	open, err := j.records.ListOpenBefore(ctx, j.clock.TodayDate())
	if err != nil {
		return fmt.Errorf("failed to list open sessions: %w", err)
	}

	for _, record := range open {
		if record.Status == attendance.StatusLeave {
			continue
		}

		emp, err := j.employees.GetByID(ctx, record.EmployeeID)
		if err != nil {
			slog.Error("failed to load employee for open session", "employee_id", record.EmployeeID, "error", err)
			continue
		}

		res, err := j.resolver.Resolve(ResolveInput{
			ClockIn:      record.ClockIn,
			ClockOut:     record.ClockOut,
			BreakMinutes: record.BreakMinutes,
			Shift:        emp.Shift,
			GraceMinutes: j.grace.Get(ctx),
			Override:     record.Override,
		})
		if err != nil {
			slog.Error("failed to resolve open session", "record_id", record.ID, "error", err)
			continue
		}
		Apply(&record, res)

		if err := j.records.Update(ctx, record); err != nil {
			slog.Error("failed to update open session", "record_id", record.ID, "error", err)
		}
	}

	return nil
}
