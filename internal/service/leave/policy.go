package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/audit"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/clock"
	"github.com/shopspring/decimal"
)

const (
	casualNoticeDays       = 5
	plannedNoticeShort     = 30
	plannedNoticeLong      = 60
	monthlyRequestLimit    = 4
	monthlyWorkingDayLimit = 5
	longNoticeExemptDays   = 10
)

// PolicyValidator decides whether a proposed leave request is admissible.
// Checks run in a fixed order and the first failure wins; an admin override
// short-circuits every check and is audited with full context.
type PolicyValidator struct {
	clock    *clock.Clock
	holidays schedule.HolidayRepository
	requests leave.RequestRepository
	audit    audit.Sink
}

func NewPolicyValidator(c *clock.Clock, holidays schedule.HolidayRepository, requests leave.RequestRepository, auditSink audit.Sink) *PolicyValidator {
	return &PolicyValidator{clock: c, holidays: holidays, requests: requests, audit: auditSink}
}

// Validate returns nil when the request is allowed, a *leave.PolicyViolation
// when a rule denies it, or a wrapped error on store failure. Balance
// sufficiency is not a policy rule and is checked by the ledger.
func (v *PolicyValidator) Validate(ctx context.Context, emp employee.Employee, req leave.Request) error {
	if req.Type == leave.TypeYearEnd {
		return nil
	}
	if len(req.Dates) == 0 {
		return leave.ErrNoDates
	}

	if req.AdminOverride {
		reason := ""
		if req.OverrideReason != nil {
			reason = *req.OverrideReason
		}
		v.audit.Record(ctx, audit.EventPolicyOverridden, req.EmployeeID, map[string]any{
			"request_id":   req.ID,
			"request_type": req.Type,
			"dates":        dateKeys(v.clock, req.Dates),
			"reason":       reason,
		})
		return nil
	}

	today := v.clock.TodayDate()
	firstDate := v.clock.DateOnly(req.Dates[0])
	noticeDays := int(firstDate.Sub(today) / (24 * time.Hour))
	backdated := firstDate.Before(today)

	// 1. Employee-type gate.
	if emp.RestrictedToLossOfPay() && req.Type != leave.TypeLossOfPay && req.Type != leave.TypeCompensatory {
		return &leave.PolicyViolation{
			Code:    leave.CodeEmployeeTypeRestriction,
			Message: fmt.Sprintf("%s employees may only request loss-of-pay or compensatory leave", emp.EmploymentType),
		}
	}

	// 2. Backdated gate. Permanent employees keep sick/casual for past dates;
	// probation and interns must use loss-of-pay.
	if backdated {
		allowed := req.Type == leave.TypeLossOfPay || req.Type == leave.TypeBackdated
		if emp.EmploymentType == employee.EmploymentPermanent {
			allowed = allowed || req.Type == leave.TypeSick || req.Type == leave.TypeCasual
		}
		if !allowed {
			return &leave.PolicyViolation{
				Code:    leave.CodeBackdatedLOPRequired,
				Message: "backdated leave for this employee type must be loss-of-pay",
			}
		}
	}

	// 3. Type-specific rules.
	if err := v.checkTypeRules(ctx, emp, req, noticeDays, backdated); err != nil {
		return err
	}

	// 4. Monthly caps.
	if err := v.checkMonthlyCaps(ctx, emp, req, firstDate); err != nil {
		return err
	}

	// 5. Weekday and bridge-day restrictions for short-notice requests.
	if err := v.checkWeekdayRules(emp, req, noticeDays); err != nil {
		return err
	}

	return nil
}

func (v *PolicyValidator) checkTypeRules(ctx context.Context, emp employee.Employee, req leave.Request, noticeDays int, backdated bool) error {
	switch req.Type {
	case leave.TypeCasual:
		if noticeDays < casualNoticeDays {
			return &leave.PolicyViolation{
				Code:    leave.CodeCasualAdvanceNotice,
				Message: fmt.Sprintf("casual leave requires at least %d days' notice, got %d", casualNoticeDays, noticeDays),
			}
		}
	case leave.TypePlanned:
		count, err := v.CountWorkingDays(ctx, emp.Shift.SaturdayPolicy, req.Dates)
		if err != nil {
			return err
		}
		required := plannedNoticeShort
		if count > 7 {
			required = plannedNoticeLong
		}
		if noticeDays < required {
			return &leave.PolicyViolation{
				Code:    leave.CodePlannedAdvanceNotice,
				Message: fmt.Sprintf("planned leave of %d working days requires %d days' notice, got %d", count, required, noticeDays),
			}
		}
	case leave.TypeSick:
		// Same-day sick leave needs no certificate; backdated requires one;
		// future-dated treats it as optional.
		if backdated && (req.AttachmentURL == nil || *req.AttachmentURL == "") {
			return &leave.PolicyViolation{
				Code:    leave.CodeSickCertificateRequired,
				Message: "backdated sick leave requires a medical certificate",
			}
		}
	case leave.TypeCompensatory:
		deadline := thursdayOfWeek(v.clock.DateOnly(req.Dates[0]))
		if v.clock.TodayDate().After(deadline) {
			return &leave.PolicyViolation{
				Code:    leave.CodeCompOffThursday,
				Message: "compensatory leave must be submitted by Thursday of the same week",
			}
		}
	}
	return nil
}

func (v *PolicyValidator) checkMonthlyCaps(ctx context.Context, emp employee.Employee, req leave.Request, firstDate time.Time) error {
	statuses := []leave.RequestStatus{leave.StatusPending, leave.StatusApproved}
	existing, err := v.requests.ListForMonth(ctx, emp.ID, firstDate.Year(), firstDate.Month(), statuses)
	if err != nil {
		return fmt.Errorf("failed to list month's requests: %w", err)
	}

	count := 0
	nonPlannedDays := decimal.Zero
	for _, r := range existing {
		if r.ID == req.ID || r.Type == leave.TypeYearEnd {
			continue
		}
		count++
		if r.Type == leave.TypePlanned {
			continue
		}
		wd, err := v.CountWorkingDays(ctx, emp.Shift.SaturdayPolicy, datesInMonth(r.Dates, firstDate))
		if err != nil {
			return err
		}
		nonPlannedDays = nonPlannedDays.Add(decimal.NewFromInt(int64(wd)).Mul(r.DayFraction()))
	}

	if count >= monthlyRequestLimit {
		return &leave.PolicyViolation{
			Code:    leave.CodeMonthlyRequestLimit,
			Message: fmt.Sprintf("no more than %d leave requests per calendar month", monthlyRequestLimit),
		}
	}

	// Planned leave is explicitly exempt from the working-day cap.
	if req.Type != leave.TypePlanned {
		wd, err := v.CountWorkingDays(ctx, emp.Shift.SaturdayPolicy, datesInMonth(req.Dates, firstDate))
		if err != nil {
			return err
		}
		total := nonPlannedDays.Add(decimal.NewFromInt(int64(wd)).Mul(req.DayFraction()))
		if total.GreaterThan(decimal.NewFromInt(monthlyWorkingDayLimit)) {
			return &leave.PolicyViolation{
				Code:    leave.CodeMonthlyWorkingDaysLimit,
				Message: fmt.Sprintf("no more than %d non-planned working days of leave per calendar month", monthlyWorkingDayLimit),
			}
		}
	}

	return nil
}

func (v *PolicyValidator) checkWeekdayRules(emp employee.Employee, req leave.Request, noticeDays int) error {
	// Exemptions: planned leave that already passed its notice rule, and
	// casual/loss-of-pay with long notice.
	if req.Type == leave.TypePlanned {
		return nil
	}
	if (req.Type == leave.TypeCasual || req.Type == leave.TypeLossOfPay) && noticeDays > longNoticeExemptDays {
		return nil
	}

	for _, d := range req.Dates {
		date := v.clock.DateOnly(d)
		switch date.Weekday() {
		case time.Tuesday:
			return &leave.PolicyViolation{
				Code:    leave.CodeTuesdayBlocked,
				Message: fmt.Sprintf("short-notice leave is not allowed on Tuesday %s", v.clock.DateKey(date)),
			}
		case time.Thursday:
			return &leave.PolicyViolation{
				Code:    leave.CodeThursdayBlocked,
				Message: fmt.Sprintf("short-notice leave is not allowed on Thursday %s", v.clock.DateKey(date)),
			}
		case time.Friday:
			saturday := date.AddDate(0, 0, 1)
			if !emp.Shift.SaturdayPolicy.IsWorkingSaturday(saturday) {
				return &leave.PolicyViolation{
					Code:    leave.CodeFridayBeforeSaturdayOff,
					Message: fmt.Sprintf("Friday %s bridges into a non-working Saturday", v.clock.DateKey(date)),
				}
			}
		}
	}
	return nil
}

// CountWorkingDays counts the dates that are working days: not a Sunday, not
// a non-working Saturday under the policy, not a holiday.
func (v *PolicyValidator) CountWorkingDays(ctx context.Context, policy schedule.SaturdayPolicy, dates []time.Time) (int, error) {
	if len(dates) == 0 {
		return 0, nil
	}

	min, max := v.clock.DateOnly(dates[0]), v.clock.DateOnly(dates[0])
	for _, d := range dates[1:] {
		date := v.clock.DateOnly(d)
		if date.Before(min) {
			min = date
		}
		if date.After(max) {
			max = date
		}
	}

	holidays, err := v.holidays.GetByDateRange(ctx, min, max)
	if err != nil {
		return 0, fmt.Errorf("failed to load holidays: %w", err)
	}
	holidayKeys := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		holidayKeys[v.clock.DateKey(h.Date)] = struct{}{}
	}

	count := 0
	for _, d := range dates {
		date := v.clock.DateOnly(d)
		if date.Weekday() == time.Sunday {
			continue
		}
		if date.Weekday() == time.Saturday && !policy.IsWorkingSaturday(date) {
			continue
		}
		if _, ok := holidayKeys[v.clock.DateKey(date)]; ok {
			continue
		}
		count++
	}
	return count, nil
}

// thursdayOfWeek returns the Thursday of the Monday-anchored week containing
// the date.
func thursdayOfWeek(date time.Time) time.Time {
	weekday := int(date.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday closes the week
	}
	return date.AddDate(0, 0, 4-weekday)
}

func datesInMonth(dates []time.Time, anchor time.Time) []time.Time {
	var out []time.Time
	for _, d := range dates {
		if d.Year() == anchor.Year() && d.Month() == anchor.Month() {
			out = append(out, d)
		}
	}
	return out
}

func dateKeys(c *clock.Clock, dates []time.Time) []string {
	keys := make([]string, 0, len(dates))
	for _, d := range dates {
		keys = append(keys, c.DateKey(d))
	}
	return keys
}
