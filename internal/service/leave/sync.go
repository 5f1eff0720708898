package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/audit"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/sse"
	attendancesvc "github.com/cmlabs-hris/attendance-engine-go/internal/service/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/service/graceperiod"
	"github.com/shopspring/decimal"
)

// Transactor groups multiple repository writes into one all-or-nothing unit.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// SyncService keeps attendance records and leave balances consistent across
// the leave request lifecycle. Every multi-record mutation (request status +
// N attendance rows + balance) commits atomically or not at all; audit,
// notification and broadcast happen after commit and are best-effort.
type SyncService struct {
	tx        Transactor
	requests  leave.RequestRepository
	records   attendance.RecordRepository
	employees employee.EmployeeRepository
	ledger    *Ledger
	policy    *PolicyValidator
	resolver  *attendancesvc.Resolver
	grace     *graceperiod.Provider
	clock     *clock.Clock
	audit     audit.Sink
	notifier  notification.Service
	hub       *sse.Hub
}

func NewSyncService(
	tx Transactor,
	requests leave.RequestRepository,
	records attendance.RecordRepository,
	employees employee.EmployeeRepository,
	ledger *Ledger,
	policy *PolicyValidator,
	resolver *attendancesvc.Resolver,
	grace *graceperiod.Provider,
	c *clock.Clock,
	auditSink audit.Sink,
	notifier notification.Service,
	hub *sse.Hub,
) *SyncService {
	return &SyncService{
		tx:        tx,
		requests:  requests,
		records:   records,
		employees: employees,
		ledger:    ledger,
		policy:    policy,
		resolver:  resolver,
		grace:     grace,
		clock:     c,
		audit:     auditSink,
		notifier:  notifier,
		hub:       hub,
	}
}

// Submit validates a proposed request against policy and persists it Pending.
func (s *SyncService) Submit(ctx context.Context, req leave.Request) (leave.Request, error) {
	emp, err := s.employees.GetByID(ctx, req.EmployeeID)
	if err != nil {
		return leave.Request{}, fmt.Errorf("failed to get employee: %w", err)
	}

	req.Dates = normalizeDates(s.clock, req.Dates)
	if len(req.Dates) > 0 && s.clock.DateOnly(req.Dates[0]).Before(s.clock.TodayDate()) {
		req.IsBackdated = true
	}
	req.Status = leave.StatusPending
	req.SubmittedAt = s.clock.Now()

	if err := s.policy.Validate(ctx, emp, req); err != nil {
		return leave.Request{}, err
	}

	created, err := s.requests.Create(ctx, req)
	if err != nil {
		return leave.Request{}, fmt.Errorf("failed to create leave request: %w", err)
	}
	return created, nil
}

// Approve transitions Pending -> Approved: stamps every leave date's
// attendance record, deducts the balance, and for year-end requests applies
// the rollover exactly once.
func (s *SyncService) Approve(ctx context.Context, requestID string, actorID string) (leave.Request, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return leave.Request{}, err
	}
	if req.Status != leave.StatusPending {
		return leave.Request{}, leave.ErrAlreadyProcessed
	}

	emp, err := s.employees.GetByID(ctx, req.EmployeeID)
	if err != nil {
		return leave.Request{}, fmt.Errorf("failed to get employee: %w", err)
	}

	if req.Type == leave.TypeYearEnd {
		err = s.approveYearEnd(ctx, &req, actorID)
	} else {
		err = s.approveDated(ctx, &req, emp, actorID)
	}
	if err != nil {
		return leave.Request{}, err
	}

	s.audit.Record(ctx, audit.EventLeaveApproved, actorID, map[string]any{
		"request_id":  req.ID,
		"employee_id": req.EmployeeID,
		"type":        req.Type,
		"dates":       dateKeys(s.clock, req.Dates),
	})
	s.notifier.Notify(emp.UserID, "Your leave request was approved.", map[string]any{"request_id": req.ID})
	s.hub.Emit("leave.approved", map[string]any{"request_id": req.ID, "employee_id": req.EmployeeID})

	return req, nil
}

func (s *SyncService) approveDated(ctx context.Context, req *leave.Request, emp employee.Employee, actorID string) error {
	deduction, err := s.deductionDays(ctx, emp, *req)
	if err != nil {
		return err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.requests.UpdateStatusIf(ctx, req.ID, leave.StatusPending, leave.StatusApproved, actorID, nil)
		if err != nil {
			return fmt.Errorf("failed to approve request: %w", err)
		}
		if !ok {
			return leave.ErrTransitionConflict
		}

		for _, date := range req.Dates {
			if err := s.stampLeave(ctx, req, s.clock.DateOnly(date)); err != nil {
				return err
			}
		}

		if kind, ok := req.BalanceKind(); ok && deduction.IsPositive() {
			year := s.clock.DateOnly(req.Dates[0]).Year()
			if err := s.ledger.Deduct(ctx, req.EmployeeID, year, kind, deduction, req.AdminOverride); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	req.Status = leave.StatusApproved
	return nil
}

func (s *SyncService) approveYearEnd(ctx context.Context, req *leave.Request, actorID string) error {
	if req.YearEndYear == nil || req.YearEndSubType == nil || req.YearEndDays == nil {
		return leave.ErrNoDates
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// The processed flag is checked-and-set in the same transaction as
		// the credit so a request can only ever credit once.
		ok, err := s.requests.MarkProcessedIf(ctx, req.ID)
		if err != nil {
			return fmt.Errorf("failed to mark request processed: %w", err)
		}
		if !ok {
			return leave.ErrAlreadyProcessed
		}

		targetYear := *req.YearEndYear + 1
		switch *req.YearEndSubType {
		case leave.YearEndCarryForward:
			if err := s.ledger.ApplyCarryForward(ctx, req.EmployeeID, employee.BalancePaid, *req.YearEndDays, targetYear); err != nil {
				return err
			}
		case leave.YearEndEncash:
			if err := s.ledger.ApplyEncash(ctx, req.EmployeeID, employee.BalancePaid, *req.YearEndDays, targetYear); err != nil {
				return err
			}
		}

		ok, err = s.requests.UpdateStatusIf(ctx, req.ID, leave.StatusPending, leave.StatusApproved, actorID, nil)
		if err != nil {
			return fmt.Errorf("failed to approve request: %w", err)
		}
		if !ok {
			return leave.ErrTransitionConflict
		}
		return nil
	})
	if err != nil {
		return err
	}

	req.Status = leave.StatusApproved
	req.IsProcessed = true
	s.audit.Record(ctx, audit.EventYearEndProcessed, actorID, map[string]any{
		"request_id": req.ID,
		"sub_type":   *req.YearEndSubType,
		"days":       req.YearEndDays.String(),
	})
	return nil
}

// Reject denies a Pending request, or reverses an Approved one undoing all
// attendance and ledger effects. Once Rejected no further transitions exist.
func (s *SyncService) Reject(ctx context.Context, requestID string, reason string, actorID string) (leave.Request, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return leave.Request{}, err
	}

	emp, err := s.employees.GetByID(ctx, req.EmployeeID)
	if err != nil {
		return leave.Request{}, fmt.Errorf("failed to get employee: %w", err)
	}

	switch req.Status {
	case leave.StatusPending:
		ok, err := s.requests.UpdateStatusIf(ctx, req.ID, leave.StatusPending, leave.StatusRejected, actorID, &reason)
		if err != nil {
			return leave.Request{}, fmt.Errorf("failed to reject request: %w", err)
		}
		if !ok {
			return leave.Request{}, leave.ErrTransitionConflict
		}
		s.audit.Record(ctx, audit.EventLeaveRejected, actorID, map[string]any{"request_id": req.ID})
	case leave.StatusApproved:
		if err := s.reverse(ctx, &req, emp, reason, actorID); err != nil {
			return leave.Request{}, err
		}
		s.audit.Record(ctx, audit.EventLeaveReversed, actorID, map[string]any{"request_id": req.ID})
	default:
		return leave.Request{}, leave.ErrAlreadyProcessed
	}

	req.Status = leave.StatusRejected
	req.RejectionReason = &reason
	s.notifier.Notify(emp.UserID, "Your leave request was rejected.", map[string]any{
		"request_id": req.ID,
		"reason":     reason,
	})
	s.hub.Emit("leave.rejected", map[string]any{"request_id": req.ID, "employee_id": req.EmployeeID})

	return req, nil
}

func (s *SyncService) reverse(ctx context.Context, req *leave.Request, emp employee.Employee, reason string, actorID string) error {
	if req.Type == leave.TypeYearEnd {
		return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			if !req.IsProcessed {
				return leave.ErrYearEndNotProcessed
			}
			ok, err := s.requests.UpdateStatusIf(ctx, req.ID, leave.StatusApproved, leave.StatusRejected, actorID, &reason)
			if err != nil {
				return fmt.Errorf("failed to reverse request: %w", err)
			}
			if !ok {
				return leave.ErrTransitionConflict
			}
			return s.rollbackYearEnd(ctx, *req, actorID)
		})
	}

	deduction, err := s.deductionDays(ctx, emp, *req)
	if err != nil {
		return err
	}

	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.requests.UpdateStatusIf(ctx, req.ID, leave.StatusApproved, leave.StatusRejected, actorID, &reason)
		if err != nil {
			return fmt.Errorf("failed to reverse request: %w", err)
		}
		if !ok {
			return leave.ErrTransitionConflict
		}

		if err := s.revertStamped(ctx, *req, emp); err != nil {
			return err
		}

		if kind, ok := req.BalanceKind(); ok && deduction.IsPositive() {
			year := s.clock.DateOnly(req.Dates[0]).Year()
			if err := s.ledger.Revert(ctx, req.EmployeeID, year, kind, deduction); err != nil {
				return err
			}
		}
		return nil
	})
}

// EditDates re-synchronizes an Approved request after its date set changes:
// removed dates revert to their natural state, added dates are stamped, and
// the balance moves by the working-day delta, all in one transaction.
func (s *SyncService) EditDates(ctx context.Context, requestID string, newDates []time.Time, actorID string) (leave.Request, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return leave.Request{}, err
	}
	if req.Status != leave.StatusApproved {
		return leave.Request{}, leave.ErrNotApproved
	}
	if req.Type == leave.TypeYearEnd {
		return leave.Request{}, leave.ErrNoDates
	}

	emp, err := s.employees.GetByID(ctx, req.EmployeeID)
	if err != nil {
		return leave.Request{}, fmt.Errorf("failed to get employee: %w", err)
	}

	newDates = normalizeDates(s.clock, newDates)
	proposed := req
	proposed.Dates = newDates
	if err := s.policy.Validate(ctx, emp, proposed); err != nil {
		return leave.Request{}, err
	}

	oldDeduction, err := s.deductionDays(ctx, emp, req)
	if err != nil {
		return leave.Request{}, err
	}
	newDeduction, err := s.deductionDays(ctx, emp, proposed)
	if err != nil {
		return leave.Request{}, err
	}

	removed, added := diffDates(s.clock, req.Dates, newDates)

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		for _, date := range removed {
			if err := s.revertDate(ctx, req, emp, date); err != nil {
				return err
			}
		}
		for _, date := range added {
			if err := s.stampLeave(ctx, &req, date); err != nil {
				return err
			}
		}

		if kind, ok := req.BalanceKind(); ok {
			year := s.clock.DateOnly(newDates[0]).Year()
			delta := newDeduction.Sub(oldDeduction)
			switch {
			case delta.IsPositive():
				if err := s.ledger.Deduct(ctx, req.EmployeeID, year, kind, delta, req.AdminOverride); err != nil {
					return err
				}
			case delta.IsNegative():
				if err := s.ledger.Revert(ctx, req.EmployeeID, year, kind, delta.Neg()); err != nil {
					return err
				}
			}
		}

		if err := s.requests.UpdateDates(ctx, req.ID, newDates); err != nil {
			return fmt.Errorf("failed to update request dates: %w", err)
		}
		return nil
	})
	if err != nil {
		return leave.Request{}, err
	}

	req.Dates = newDates
	s.audit.Record(ctx, audit.EventLeaveDatesEdited, actorID, map[string]any{
		"request_id": req.ID,
		"removed":    dateKeys(s.clock, removed),
		"added":      dateKeys(s.clock, added),
	})
	s.notifier.Notify(emp.UserID, "Your approved leave dates were updated.", map[string]any{"request_id": req.ID})

	return req, nil
}

// Delete removes a request. Deleting an Approved request first rolls back its
// attendance and ledger effects in the same transaction as the delete.
func (s *SyncService) Delete(ctx context.Context, requestID string, actorID string) error {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}

	if req.Status != leave.StatusApproved {
		return s.requests.Delete(ctx, requestID)
	}

	emp, err := s.employees.GetByID(ctx, req.EmployeeID)
	if err != nil {
		return fmt.Errorf("failed to get employee: %w", err)
	}

	if req.Type == leave.TypeYearEnd {
		return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			if !req.IsProcessed {
				return leave.ErrYearEndNotProcessed
			}
			if err := s.rollbackYearEnd(ctx, req, actorID); err != nil {
				return err
			}
			return s.requests.Delete(ctx, requestID)
		})
	}

	deduction, err := s.deductionDays(ctx, emp, req)
	if err != nil {
		return err
	}

	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.revertStamped(ctx, req, emp); err != nil {
			return err
		}
		if kind, ok := req.BalanceKind(); ok && deduction.IsPositive() {
			year := s.clock.DateOnly(req.Dates[0]).Year()
			if err := s.ledger.Revert(ctx, req.EmployeeID, year, kind, deduction); err != nil {
				return err
			}
		}
		return s.requests.Delete(ctx, requestID)
	})
}

// stampLeave upserts the date's attendance record as Leave. Already-worked
// time is moved into the preserved side fields, never discarded, and never
// double-counted against the leave day.
func (s *SyncService) stampLeave(ctx context.Context, req *leave.Request, date time.Time) error {
	existing, err := s.records.GetByEmployeeAndDate(ctx, req.EmployeeID, date)
	if err != nil {
		return fmt.Errorf("failed to get attendance record: %w", err)
	}

	record := attendance.Record{
		EmployeeID: req.EmployeeID,
		Date:       date,
		Override:   attendance.OverrideNone,
	}
	if existing != nil {
		record = *existing
		if record.ClockIn != nil {
			worked := record.WorkedMinutes()
			record.PreservedClockIn = record.ClockIn
			record.PreservedClockOut = record.ClockOut
			record.PreservedWorkedMinutes = &worked
			record.ClockIn = nil
			record.ClockOut = nil
		}
	}

	record.Status = attendance.StatusLeave
	record.Source = attendance.SourceComputed
	record.IsLate = false
	record.IsHalfDay = false
	record.LateMinutes = 0
	record.LeaveRequestID = &req.ID

	if _, err := s.records.Upsert(ctx, record); err != nil {
		return fmt.Errorf("failed to stamp leave record: %w", err)
	}
	return nil
}

// revertStamped undoes every attendance row this request stamped, found by
// the stored association rather than the request's date list so rows from an
// earlier date edit are never missed.
func (s *SyncService) revertStamped(ctx context.Context, req leave.Request, emp employee.Employee) error {
	stamped, err := s.records.ListByLeaveRequest(ctx, req.ID)
	if err != nil {
		return fmt.Errorf("failed to list stamped records: %w", err)
	}
	for i := range stamped {
		if err := s.revertRecord(ctx, emp, &stamped[i]); err != nil {
			return err
		}
	}
	return nil
}

// revertDate restores a previously-leave date to its natural computed state,
// or Absent when no clock-in ever occurred.
func (s *SyncService) revertDate(ctx context.Context, req leave.Request, emp employee.Employee, date time.Time) error {
	record, err := s.records.GetByEmployeeAndDate(ctx, req.EmployeeID, date)
	if err != nil {
		return fmt.Errorf("failed to get attendance record: %w", err)
	}
	if record == nil || record.LeaveRequestID == nil || *record.LeaveRequestID != req.ID {
		return nil
	}
	return s.revertRecord(ctx, emp, record)
}

func (s *SyncService) revertRecord(ctx context.Context, emp employee.Employee, record *attendance.Record) error {
	if record.PreservedClockIn != nil {
		record.ClockIn = record.PreservedClockIn
		record.ClockOut = record.PreservedClockOut
	}
	record.PreservedClockIn = nil
	record.PreservedClockOut = nil
	record.PreservedWorkedMinutes = nil
	record.LeaveRequestID = nil

	res, err := s.resolver.Resolve(attendancesvc.ResolveInput{
		ClockIn:      record.ClockIn,
		ClockOut:     record.ClockOut,
		BreakMinutes: record.BreakMinutes,
		Shift:        emp.Shift,
		GraceMinutes: s.grace.Get(ctx),
		Override:     record.Override,
	})
	if err != nil {
		return err
	}
	attendancesvc.Apply(record, res)

	if err := s.records.Update(ctx, *record); err != nil {
		return fmt.Errorf("failed to revert attendance record: %w", err)
	}
	return nil
}

func (s *SyncService) rollbackYearEnd(ctx context.Context, req leave.Request, actorID string) error {
	targetYear := *req.YearEndYear + 1
	if *req.YearEndSubType == leave.YearEndCarryForward {
		if err := s.ledger.RollbackCarryForward(ctx, req.EmployeeID, employee.BalancePaid, targetYear); err != nil {
			return err
		}
	}
	// Encash rollback is a no-op: nothing was credited.
	s.audit.Record(ctx, audit.EventYearEndRolledBack, actorID, map[string]any{
		"request_id": req.ID,
		"sub_type":   *req.YearEndSubType,
	})
	return nil
}

func (s *SyncService) deductionDays(ctx context.Context, emp employee.Employee, req leave.Request) (decimal.Decimal, error) {
	count, err := s.policy.CountWorkingDays(ctx, emp.Shift.SaturdayPolicy, req.Dates)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromInt(int64(count)).Mul(req.DayFraction()), nil
}

// normalizeDates truncates to civil midnight, removes duplicates and sorts.
func normalizeDates(c *clock.Clock, dates []time.Time) []time.Time {
	seen := make(map[string]struct{}, len(dates))
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		date := c.DateOnly(d)
		key := c.DateKey(date)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, date)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Before(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// diffDates returns the dates present only in old (removed) and only in new
// (added), keyed by civil date.
func diffDates(c *clock.Clock, oldDates, newDates []time.Time) (removed, added []time.Time) {
	oldKeys := make(map[string]time.Time, len(oldDates))
	for _, d := range oldDates {
		oldKeys[c.DateKey(d)] = c.DateOnly(d)
	}
	newKeys := make(map[string]time.Time, len(newDates))
	for _, d := range newDates {
		newKeys[c.DateKey(d)] = c.DateOnly(d)
	}
	for k, d := range oldKeys {
		if _, ok := newKeys[k]; !ok {
			removed = append(removed, d)
		}
	}
	for k, d := range newKeys {
		if _, ok := oldKeys[k]; !ok {
			added = append(added, d)
		}
	}
	return removed, added
}
