package attendance

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/audit"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/settings"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-engine-go/internal/service/graceperiod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRecordRepo struct {
	mu      sync.Mutex
	records map[string]attendance.Record
	nextID  int
}

func newMemRecordRepo() *memRecordRepo {
	return &memRecordRepo{records: make(map[string]attendance.Record)}
}

func (m *memRecordRepo) key(employeeID string, date time.Time) string {
	return employeeID + "|" + date.Format("2006-01-02")
}

func (m *memRecordRepo) Create(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	return m.Upsert(ctx, record)
}

func (m *memRecordRepo) GetByID(ctx context.Context, id string) (attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return attendance.Record{}, attendance.ErrRecordNotFound
}

func (m *memRecordRepo) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[m.key(employeeID, date)]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memRecordRepo) Upsert(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := m.key(record.EmployeeID, record.Date)
	if existing, ok := m.records[key]; ok {
		record.ID = existing.ID
	} else {
		m.nextID++
		record.ID = fmt.Sprintf("rec-%d", m.nextID)
	}
	m.records[key] = record
	return record, nil
}

func (m *memRecordRepo) Update(ctx context.Context, record attendance.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, r := range m.records {
		if r.ID == record.ID {
			m.records[key] = record
			return nil
		}
	}
	return attendance.ErrRecordNotFound
}

func (m *memRecordRepo) CloseSession(ctx context.Context, id string, clockOut time.Time, breakMinutes int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, r := range m.records {
		if r.ID == id {
			if r.ClockOut != nil {
				return false, nil
			}
			r.ClockOut = &clockOut
			r.BreakMinutes = breakMinutes
			m.records[key] = r
			return true, nil
		}
	}
	return false, nil
}

func (m *memRecordRepo) ListOpenBefore(ctx context.Context, date time.Time) ([]attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []attendance.Record
	for _, r := range m.records {
		if r.Date.Before(date) && r.ClockIn != nil && r.ClockOut == nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRecordRepo) ListByLeaveRequest(ctx context.Context, leaveRequestID string) ([]attendance.Record, error) {
	return nil, nil
}

func (m *memRecordRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, r := range m.records {
		if r.ID == id {
			delete(m.records, key)
			return nil
		}
	}
	return attendance.ErrRecordNotFound
}

type memEmployeeRepo struct {
	employees map[string]employee.Employee
}

func (m *memEmployeeRepo) Create(ctx context.Context, emp employee.Employee) (employee.Employee, error) {
	m.employees[emp.ID] = emp
	return emp, nil
}

func (m *memEmployeeRepo) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	emp, ok := m.employees[id]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return emp, nil
}

func (m *memEmployeeRepo) GetByUserID(ctx context.Context, userID string) (employee.Employee, error) {
	for _, emp := range m.employees {
		if emp.UserID == userID {
			return emp, nil
		}
	}
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func (m *memEmployeeRepo) ListActive(ctx context.Context) ([]employee.Employee, error) {
	var out []employee.Employee
	for _, emp := range m.employees {
		if emp.IsActive {
			out = append(out, emp)
		}
	}
	return out, nil
}

func (m *memEmployeeRepo) ListAdminUserIDs(ctx context.Context) ([]string, error) {
	return []string{"admin-user"}, nil
}

type memAuditSink struct {
	mu     sync.Mutex
	events []string
}

func (m *memAuditSink) Record(ctx context.Context, event string, actorID string, details map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *memAuditSink) has(event string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e == event {
			return true
		}
	}
	return false
}

type memNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (m *memNotifier) Notify(userID, message string, metadata map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
}

func (m *memNotifier) NotifyAdmins(message string, metadata map[string]any) {
	m.Notify("admin-user", message, nil)
}

func (m *memNotifier) Stop() {}

type memSettingsRepo struct {
	value string
}

func (m *memSettingsRepo) Get(ctx context.Context, key string) (settings.Setting, error) {
	if m.value == "" {
		return settings.Setting{}, settings.ErrSettingNotFound
	}
	return settings.Setting{Key: key, Value: m.value}, nil
}

func (m *memSettingsRepo) Set(ctx context.Context, key, value string) error {
	m.value = value
	return nil
}

type serviceFixture struct {
	svc      *Service
	records  *memRecordRepo
	sink     *memAuditSink
	notifier *memNotifier
	clock    *clock.Clock
	now      *time.Time
	emp      employee.Employee
}

// newServiceFixture starts the clock at 09:10 Jakarta on Tuesday 10 March
// 2026; individual tests advance *f.now to move through the day.
func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	start := time.Date(2026, 3, 10, 9, 10, 0, 0, time.FixedZone("WIB", 7*3600))
	now := &start
	c, err := clock.NewWithNow("Asia/Jakarta", func() time.Time { return *now })
	require.NoError(t, err)

	emp := employee.Employee{
		ID:       "emp-1",
		UserID:   "user-1",
		Name:     "Test Employee",
		IsActive: true,
		Shift:    testShift(),
	}

	records := newMemRecordRepo()
	sink := &memAuditSink{}
	notifier := &memNotifier{}

	svc := NewService(
		records,
		&memEmployeeRepo{employees: map[string]employee.Employee{emp.ID: emp}},
		NewResolver(c),
		graceperiod.NewProvider(&memSettingsRepo{value: "30"}, time.Minute, 30),
		c,
		sink,
		notifier,
		sse.NewHub(),
	)

	return &serviceFixture{
		svc:      svc,
		records:  records,
		sink:     sink,
		notifier: notifier,
		clock:    c,
		now:      now,
		emp:      emp,
	}
}

func (f *serviceFixture) advanceTo(hour, minute int) {
	*f.now = time.Date(2026, 3, 10, hour, minute, 0, 0, f.now.Location())
}

func TestClockInWithinGraceIsOnTime(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)

	record, err := f.svc.ClockIn(context.Background(), f.emp.ID)
	require.NoError(t, err)

	assert.Equal(t, attendance.StatusOnTime, record.Status)
	assert.False(t, record.IsLate)
	assert.False(t, record.IsHalfDay)
	assert.Equal(t, 10, record.LateMinutes)
	assert.Empty(t, f.notifier.messages)
}

func TestClockInBeyondGraceFlagsHalfDayAndNotifies(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	f.advanceTo(9, 45)

	record, err := f.svc.ClockIn(context.Background(), f.emp.ID)
	require.NoError(t, err)

	assert.Equal(t, attendance.StatusHalfDay, record.Status)
	assert.True(t, record.IsLate)
	assert.True(t, record.IsHalfDay)
	assert.Equal(t, 45, record.LateMinutes)

	// Employee and admins both hear about it.
	assert.Len(t, f.notifier.messages, 2)
	assert.True(t, f.sink.has(audit.EventHalfDayFlagged))
}

func TestClockInTwiceFails(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)

	_, err := f.svc.ClockIn(context.Background(), f.emp.ID)
	require.NoError(t, err)

	_, err = f.svc.ClockIn(context.Background(), f.emp.ID)
	assert.ErrorIs(t, err, attendance.ErrAlreadyClockedIn)
}

func TestClockInWithoutShiftFails(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	noShift := f.emp
	noShift.ID = "emp-2"
	noShift.Shift.StartTime = ""

	svc := NewService(
		f.records,
		&memEmployeeRepo{employees: map[string]employee.Employee{noShift.ID: noShift}},
		NewResolver(f.clock),
		graceperiod.NewProvider(&memSettingsRepo{value: "30"}, time.Minute, 30),
		f.clock,
		f.sink,
		f.notifier,
		sse.NewHub(),
	)

	_, err := svc.ClockIn(context.Background(), noShift.ID)
	assert.ErrorIs(t, err, attendance.ErrNoShiftAssignment)
}

func TestClockOutWithoutSessionFails(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)

	_, err := f.svc.ClockOut(context.Background(), f.emp.ID, 0)
	assert.ErrorIs(t, err, attendance.ErrNotClockedIn)
}

func TestClockOutFullDayStaysOnTime(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	f.advanceTo(9, 0)

	_, err := f.svc.ClockIn(context.Background(), f.emp.ID)
	require.NoError(t, err)

	// 09:00-18:00 with the 60-minute break fully inside the paid allowance.
	f.advanceTo(18, 0)
	record, err := f.svc.ClockOut(context.Background(), f.emp.ID, 60)
	require.NoError(t, err)

	assert.Equal(t, attendance.StatusOnTime, record.Status)
	assert.False(t, record.IsHalfDay)
	require.NotNil(t, record.ClockOut)
	assert.Equal(t, 60, record.BreakMinutes)
}

func TestClockOutShortSessionIsHalfDay(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	f.advanceTo(9, 0)

	_, err := f.svc.ClockIn(context.Background(), f.emp.ID)
	require.NoError(t, err)

	f.advanceTo(14, 0)
	record, err := f.svc.ClockOut(context.Background(), f.emp.ID, 0)
	require.NoError(t, err)

	assert.Equal(t, attendance.StatusHalfDay, record.Status)
	assert.True(t, record.IsHalfDay)
	assert.False(t, record.IsLate)
}

func TestClockOutTwiceFails(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)

	_, err := f.svc.ClockIn(context.Background(), f.emp.ID)
	require.NoError(t, err)

	f.advanceTo(18, 0)
	_, err = f.svc.ClockOut(context.Background(), f.emp.ID, 0)
	require.NoError(t, err)

	_, err = f.svc.ClockOut(context.Background(), f.emp.ID, 0)
	assert.ErrorIs(t, err, attendance.ErrSessionConflict)
}

func TestSetOverrideHalfDayKeepsLate(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	f.advanceTo(9, 45)

	record, err := f.svc.ClockIn(context.Background(), f.emp.ID)
	require.NoError(t, err)
	require.Equal(t, attendance.StatusHalfDay, record.Status)

	updated, err := f.svc.SetOverride(context.Background(), record.ID, attendance.OverrideHalfDay, "approved exception", "admin-1")
	require.NoError(t, err)

	assert.Equal(t, attendance.StatusLate, updated.Status)
	assert.True(t, updated.IsLate)
	assert.False(t, updated.IsHalfDay)
	assert.Equal(t, attendance.SourceAdminOverride, updated.Source)
	assert.True(t, f.sink.has(audit.EventOverrideSet))
}

func TestClearOverrideRestoresComputedStatus(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	f.advanceTo(9, 45)

	record, err := f.svc.ClockIn(context.Background(), f.emp.ID)
	require.NoError(t, err)

	overridden, err := f.svc.SetOverride(context.Background(), record.ID, attendance.OverrideHalfDay, "exception", "admin-1")
	require.NoError(t, err)
	require.Equal(t, attendance.StatusLate, overridden.Status)

	restored, err := f.svc.ClearOverride(context.Background(), record.ID, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, attendance.StatusHalfDay, restored.Status)
	assert.True(t, restored.IsHalfDay)
	assert.Equal(t, attendance.SourceComputed, restored.Source)
	assert.True(t, f.sink.has(audit.EventOverrideCleared))
}

func TestClearOverrideWithoutOneFails(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)

	record, err := f.svc.ClockIn(context.Background(), f.emp.ID)
	require.NoError(t, err)

	_, err = f.svc.ClearOverride(context.Background(), record.ID, "admin-1")
	assert.ErrorIs(t, err, attendance.ErrOverrideNotSet)
}

func TestUpdateSessionReresolves(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	f.advanceTo(9, 45)

	record, err := f.svc.ClockIn(context.Background(), f.emp.ID)
	require.NoError(t, err)
	require.True(t, record.IsLate)

	// The admin corrects the clock-in to 09:05; the lateness disappears.
	corrected := time.Date(2026, 3, 10, 9, 5, 0, 0, f.now.Location())
	updated, err := f.svc.UpdateSession(context.Background(), record.ID, &corrected, nil, nil, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, attendance.StatusOnTime, updated.Status)
	assert.False(t, updated.IsLate)
	assert.Equal(t, 5, updated.LateMinutes)
}

func TestRecalculateSkipsLeaveDays(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)

	leaveID := "req-1"
	saved, err := f.records.Upsert(context.Background(), attendance.Record{
		EmployeeID:     f.emp.ID,
		Date:           f.clock.TodayDate(),
		Status:         attendance.StatusLeave,
		Source:         attendance.SourceComputed,
		Override:       attendance.OverrideNone,
		LeaveRequestID: &leaveID,
	})
	require.NoError(t, err)

	record, err := f.svc.Recalculate(context.Background(), saved.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusLeave, record.Status)
}
