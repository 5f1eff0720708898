package attendance

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/clock"
)

// FullDayMinutes is the net worked time below which a closed session is
// classified half-day regardless of arrival time (8.5 hours).
const FullDayMinutes = 510

// ResolveInput carries everything the resolver needs. It is re-derived from
// the current record on every recalculation; stale stored flags are never
// reused.
type ResolveInput struct {
	ClockIn      *time.Time
	ClockOut     *time.Time
	BreakMinutes int
	Shift        schedule.ShiftSchedule
	GraceMinutes int
	Override     attendance.Override
}

// ResolveResult is the deterministic classification for one day.
type ResolveResult struct {
	IsLate      bool
	IsHalfDay   bool
	LateMinutes int
	Status      attendance.Status
	Source      attendance.StatusSource

	// HalfDayFromLateness is set only when the half-day classification was
	// triggered by a beyond-grace arrival. Callers notify on this transition
	// but not on hours-based half days.
	HalfDayFromLateness bool
}

// Resolver converts a raw clock-in plus a shift definition into the day's
// attendance classification. Pure: no side effects, identical inputs yield
// identical outputs.
type Resolver struct {
	clock *clock.Clock
}

func NewResolver(c *clock.Clock) *Resolver {
	return &Resolver{clock: c}
}

// Resolve classifies a day.
//
// An arrival exactly at the grace boundary is on time; one minute beyond is
// simultaneously flagged late for reporting and half-day for payroll. This
// dual classification is intentional and must not be collapsed.
func (r *Resolver) Resolve(in ResolveInput) (ResolveResult, error) {
	if in.ClockIn == nil {
		return ResolveResult{
			Status: attendance.StatusAbsent,
			Source: attendance.SourceComputed,
		}, nil
	}

	shiftStart, err := r.clock.ShiftInstant(*in.ClockIn, in.Shift.StartTime)
	if err != nil {
		return ResolveResult{}, fmt.Errorf("resolve shift start: %w", err)
	}

	lateMinutes := 0
	if diff := in.ClockIn.Sub(shiftStart); diff > 0 {
		lateMinutes = int(diff / time.Minute)
	}

	res := ResolveResult{
		LateMinutes: lateMinutes,
		Status:      attendance.StatusOnTime,
		Source:      attendance.SourceComputed,
	}

	if lateMinutes > in.GraceMinutes {
		res.IsLate = true
		res.IsHalfDay = true
		res.HalfDayFromLateness = true
		res.Status = attendance.StatusHalfDay
	}

	// Hours-based half day triggers independently of arrival time.
	if in.ClockOut != nil {
		gross := int(in.ClockOut.Sub(*in.ClockIn) / time.Minute)
		unpaidBreak := in.BreakMinutes - in.Shift.PaidBreakAllowanceMinutes
		if unpaidBreak < 0 {
			unpaidBreak = 0
		}
		if gross-unpaidBreak < FullDayMinutes {
			res.IsHalfDay = true
			res.Status = attendance.StatusHalfDay
		}
	}

	switch in.Override {
	case attendance.OverrideHalfDay:
		// Override suppresses the half-day component until cleared. Late
		// classification still reflects the real arrival.
		res.IsHalfDay = false
		res.HalfDayFromLateness = false
		res.Source = attendance.SourceAdminOverride
		if res.IsLate {
			res.Status = attendance.StatusLate
		} else {
			res.Status = attendance.StatusOnTime
		}
	case attendance.OverrideLate:
		// Clears the punctuality flag; the day-fraction axis is untouched.
		res.IsLate = false
		res.LateMinutes = 0
		res.Source = attendance.SourceAdminOverride
		if res.IsHalfDay {
			res.Status = attendance.StatusHalfDay
		} else {
			res.Status = attendance.StatusOnTime
		}
	}

	return res, nil
}

// Apply stamps a resolve result onto a record.
func Apply(record *attendance.Record, res ResolveResult) {
	record.IsLate = res.IsLate
	record.IsHalfDay = res.IsHalfDay
	record.LateMinutes = res.LateMinutes
	record.Status = res.Status
	record.Source = res.Source
}
