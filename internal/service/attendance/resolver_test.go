package attendance

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResolver(t *testing.T) (*Resolver, *clock.Clock) {
	t.Helper()
	c, err := clock.NewWithNow("Asia/Jakarta", func() time.Time {
		return time.Date(2026, 3, 10, 12, 0, 0, 0, time.FixedZone("WIB", 7*3600))
	})
	require.NoError(t, err)
	return NewResolver(c), c
}

func testShift() schedule.ShiftSchedule {
	return schedule.ShiftSchedule{
		ID:                        "shift-1",
		Name:                      "Day Shift",
		StartTime:                 "09:00",
		EndTime:                   "18:00",
		DurationMinutes:           540,
		PaidBreakAllowanceMinutes: 60,
		SaturdayPolicy:            schedule.SaturdayAllOff,
	}
}

func clockInAt(c *clock.Clock, hhmm string) *time.Time {
	date, _ := c.ParseDate("2026-03-10")
	instant, _ := c.ShiftInstant(date, hhmm)
	return &instant
}

func TestResolveNoClockInIsAbsent(t *testing.T) {
	t.Parallel()
	r, _ := testResolver(t)

	res, err := r.Resolve(ResolveInput{Shift: testShift(), GraceMinutes: 30})
	require.NoError(t, err)

	assert.Equal(t, attendance.StatusAbsent, res.Status)
	assert.False(t, res.IsLate)
	assert.False(t, res.IsHalfDay)
}

func TestResolveGraceBoundaryIsInclusive(t *testing.T) {
	t.Parallel()
	r, c := testResolver(t)

	// Arrival exactly at start + grace is on time.
	res, err := r.Resolve(ResolveInput{
		ClockIn:      clockInAt(c, "09:30"),
		Shift:        testShift(),
		GraceMinutes: 30,
	})
	require.NoError(t, err)

	assert.Equal(t, attendance.StatusOnTime, res.Status)
	assert.False(t, res.IsLate)
	assert.False(t, res.IsHalfDay)
	assert.Equal(t, 30, res.LateMinutes)
}

func TestResolveOneMinuteBeyondGraceFlagsBoth(t *testing.T) {
	t.Parallel()
	r, c := testResolver(t)

	res, err := r.Resolve(ResolveInput{
		ClockIn:      clockInAt(c, "09:31"),
		Shift:        testShift(),
		GraceMinutes: 30,
	})
	require.NoError(t, err)

	// Beyond-grace arrival is late for reporting AND half-day for payroll.
	assert.True(t, res.IsLate)
	assert.True(t, res.IsHalfDay)
	assert.True(t, res.HalfDayFromLateness)
	assert.Equal(t, attendance.StatusHalfDay, res.Status)
	assert.Equal(t, 31, res.LateMinutes)
	assert.Equal(t, attendance.SourceComputed, res.Source)
}

func TestResolveEarlyArrivalHasZeroLateMinutes(t *testing.T) {
	t.Parallel()
	r, c := testResolver(t)

	res, err := r.Resolve(ResolveInput{
		ClockIn:      clockInAt(c, "08:45"),
		Shift:        testShift(),
		GraceMinutes: 30,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, res.LateMinutes)
	assert.Equal(t, attendance.StatusOnTime, res.Status)
}

func TestResolveHoursRuleTriggersHalfDay(t *testing.T) {
	t.Parallel()
	r, c := testResolver(t)

	// 09:00 to 17:00 is 480 gross minutes, under the 510 full-day floor.
	res, err := r.Resolve(ResolveInput{
		ClockIn:      clockInAt(c, "09:00"),
		ClockOut:     clockInAt(c, "17:00"),
		Shift:        testShift(),
		GraceMinutes: 30,
	})
	require.NoError(t, err)

	assert.True(t, res.IsHalfDay)
	assert.False(t, res.IsLate)
	assert.False(t, res.HalfDayFromLateness)
	assert.Equal(t, attendance.StatusHalfDay, res.Status)
}

func TestResolvePaidBreakAllowanceExcluded(t *testing.T) {
	t.Parallel()
	r, c := testResolver(t)

	// 09:00 to 18:00 is 540 gross; a 60-minute break inside the paid
	// allowance leaves 540 net, a full day.
	res, err := r.Resolve(ResolveInput{
		ClockIn:      clockInAt(c, "09:00"),
		ClockOut:     clockInAt(c, "18:00"),
		BreakMinutes: 60,
		Shift:        testShift(),
		GraceMinutes: 30,
	})
	require.NoError(t, err)
	assert.False(t, res.IsHalfDay)
	assert.Equal(t, attendance.StatusOnTime, res.Status)

	// A 100-minute break exceeds the allowance by 40, dropping net time to
	// 500 and triggering the half-day rule.
	res, err = r.Resolve(ResolveInput{
		ClockIn:      clockInAt(c, "09:00"),
		ClockOut:     clockInAt(c, "18:00"),
		BreakMinutes: 100,
		Shift:        testShift(),
		GraceMinutes: 30,
	})
	require.NoError(t, err)
	assert.True(t, res.IsHalfDay)
}

func TestResolveOverrideHalfDaySuppressesHalfDayOnly(t *testing.T) {
	t.Parallel()
	r, c := testResolver(t)

	res, err := r.Resolve(ResolveInput{
		ClockIn:      clockInAt(c, "10:00"),
		Shift:        testShift(),
		GraceMinutes: 30,
		Override:     attendance.OverrideHalfDay,
	})
	require.NoError(t, err)

	// Late classification survives the override; only the half-day falls.
	assert.True(t, res.IsLate)
	assert.False(t, res.IsHalfDay)
	assert.False(t, res.HalfDayFromLateness)
	assert.Equal(t, attendance.StatusLate, res.Status)
	assert.Equal(t, attendance.SourceAdminOverride, res.Source)
}

func TestResolveOverrideLateClearsPunctualityAxis(t *testing.T) {
	t.Parallel()
	r, c := testResolver(t)

	res, err := r.Resolve(ResolveInput{
		ClockIn:      clockInAt(c, "10:00"),
		Shift:        testShift(),
		GraceMinutes: 30,
		Override:     attendance.OverrideLate,
	})
	require.NoError(t, err)

	assert.False(t, res.IsLate)
	assert.Equal(t, 0, res.LateMinutes)
	// The lateness-triggered half day remains on the day-fraction axis.
	assert.True(t, res.IsHalfDay)
	assert.Equal(t, attendance.StatusHalfDay, res.Status)
	assert.Equal(t, attendance.SourceAdminOverride, res.Source)
}

func TestResolveIsIdempotent(t *testing.T) {
	t.Parallel()
	r, c := testResolver(t)

	in := ResolveInput{
		ClockIn:      clockInAt(c, "09:45"),
		ClockOut:     clockInAt(c, "18:30"),
		BreakMinutes: 45,
		Shift:        testShift(),
		GraceMinutes: 30,
	}

	first, err := r.Resolve(in)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := r.Resolve(in)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestResolveRejectsMalformedShiftStart(t *testing.T) {
	t.Parallel()
	r, c := testResolver(t)

	shift := testShift()
	shift.StartTime = "9am"

	_, err := r.Resolve(ResolveInput{
		ClockIn:      clockInAt(c, "09:00"),
		Shift:        shift,
		GraceMinutes: 30,
	})
	assert.Error(t, err)
}

func TestApplyStampsRecord(t *testing.T) {
	t.Parallel()

	record := attendance.Record{Status: attendance.StatusOnTime}
	Apply(&record, ResolveResult{
		IsLate:      true,
		IsHalfDay:   true,
		LateMinutes: 42,
		Status:      attendance.StatusHalfDay,
		Source:      attendance.SourceComputed,
	})

	assert.True(t, record.IsLate)
	assert.True(t, record.IsHalfDay)
	assert.Equal(t, 42, record.LateMinutes)
	assert.Equal(t, attendance.StatusHalfDay, record.Status)
}
