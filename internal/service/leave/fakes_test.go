package leave

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/settings"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// passthroughTx runs the unit directly; the in-memory fakes have no
// transactional semantics to coordinate.
type passthroughTx struct{}

func (passthroughTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeHolidayRepo struct {
	holidays []schedule.Holiday
}

func (f *fakeHolidayRepo) Create(ctx context.Context, h schedule.Holiday) (schedule.Holiday, error) {
	f.holidays = append(f.holidays, h)
	return h, nil
}

func (f *fakeHolidayRepo) GetByDateRange(ctx context.Context, from, to time.Time) ([]schedule.Holiday, error) {
	var out []schedule.Holiday
	for _, h := range f.holidays {
		if !h.Date.Before(from) && !h.Date.After(to) {
			out = append(out, h)
		}
	}
	return out, nil
}

type fakeRequestRepo struct {
	mu       sync.Mutex
	requests map[string]leave.Request
	nextID   int
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[string]leave.Request)}
}

func (f *fakeRequestRepo) Create(ctx context.Context, request leave.Request) (leave.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	request.ID = fmt.Sprintf("req-%d", f.nextID)
	f.requests[request.ID] = request
	return request, nil
}

func (f *fakeRequestRepo) GetByID(ctx context.Context, id string) (leave.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok {
		return leave.Request{}, leave.ErrRequestNotFound
	}
	return r, nil
}

func (f *fakeRequestRepo) Update(ctx context.Context, request leave.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.requests[request.ID]; !ok {
		return leave.ErrRequestNotFound
	}
	f.requests[request.ID] = request
	return nil
}

func (f *fakeRequestRepo) UpdateStatusIf(ctx context.Context, id string, from, to leave.RequestStatus, decidedBy string, reason *string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	r.DecidedBy = &decidedBy
	r.RejectionReason = reason
	f.requests[id] = r
	return true, nil
}

func (f *fakeRequestRepo) MarkProcessedIf(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok || r.IsProcessed {
		return false, nil
	}
	r.IsProcessed = true
	f.requests[id] = r
	return true, nil
}

func (f *fakeRequestRepo) UpdateDates(ctx context.Context, id string, dates []time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok {
		return leave.ErrRequestNotFound
	}
	r.Dates = dates
	f.requests[id] = r
	return nil
}

func (f *fakeRequestRepo) ListForMonth(ctx context.Context, employeeID string, year int, month time.Month, statuses []leave.RequestStatus) ([]leave.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []leave.Request
	for _, r := range f.requests {
		if r.EmployeeID != employeeID {
			continue
		}
		statusOK := false
		for _, s := range statuses {
			if r.Status == s {
				statusOK = true
			}
		}
		if !statusOK {
			continue
		}
		for _, d := range r.Dates {
			if d.Year() == year && d.Month() == month {
				out = append(out, r)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.requests[id]; !ok {
		return leave.ErrRequestNotFound
	}
	delete(f.requests, id)
	return nil
}

type fakeRecordRepo struct {
	mu      sync.Mutex
	records map[string]attendance.Record // keyed employeeID|date
	nextID  int
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{records: make(map[string]attendance.Record)}
}

func recordKey(employeeID string, date time.Time) string {
	return employeeID + "|" + date.Format(dateLayout)
}

func (f *fakeRecordRepo) Create(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	return f.Upsert(ctx, record)
}

func (f *fakeRecordRepo) GetByID(ctx context.Context, id string) (attendance.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.ID == id {
			return r, nil
		}
	}
	return attendance.Record{}, attendance.ErrRecordNotFound
}

func (f *fakeRecordRepo) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*attendance.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[recordKey(employeeID, date)]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (f *fakeRecordRepo) Upsert(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := recordKey(record.EmployeeID, record.Date)
	if existing, ok := f.records[key]; ok {
		record.ID = existing.ID
	} else {
		f.nextID++
		record.ID = fmt.Sprintf("rec-%d", f.nextID)
	}
	f.records[key] = record
	return record, nil
}

func (f *fakeRecordRepo) Update(ctx context.Context, record attendance.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, r := range f.records {
		if r.ID == record.ID {
			f.records[key] = record
			return nil
		}
	}
	return attendance.ErrRecordNotFound
}

func (f *fakeRecordRepo) CloseSession(ctx context.Context, id string, clockOut time.Time, breakMinutes int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, r := range f.records {
		if r.ID == id {
			if r.ClockOut != nil {
				return false, nil
			}
			r.ClockOut = &clockOut
			r.BreakMinutes = breakMinutes
			f.records[key] = r
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRecordRepo) ListOpenBefore(ctx context.Context, date time.Time) ([]attendance.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []attendance.Record
	for _, r := range f.records {
		if r.Date.Before(date) && r.ClockIn != nil && r.ClockOut == nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRecordRepo) ListByLeaveRequest(ctx context.Context, leaveRequestID string) ([]attendance.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []attendance.Record
	for _, r := range f.records {
		if r.LeaveRequestID != nil && *r.LeaveRequestID == leaveRequestID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRecordRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, r := range f.records {
		if r.ID == id {
			delete(f.records, key)
			return nil
		}
	}
	return attendance.ErrRecordNotFound
}

type fakeEmployeeRepo struct {
	employees map[string]employee.Employee
}

func (f *fakeEmployeeRepo) Create(ctx context.Context, emp employee.Employee) (employee.Employee, error) {
	f.employees[emp.ID] = emp
	return emp, nil
}

func (f *fakeEmployeeRepo) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	emp, ok := f.employees[id]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return emp, nil
}

func (f *fakeEmployeeRepo) GetByUserID(ctx context.Context, userID string) (employee.Employee, error) {
	for _, emp := range f.employees {
		if emp.UserID == userID {
			return emp, nil
		}
	}
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func (f *fakeEmployeeRepo) ListActive(ctx context.Context) ([]employee.Employee, error) {
	var out []employee.Employee
	for _, emp := range f.employees {
		if emp.IsActive {
			out = append(out, emp)
		}
	}
	return out, nil
}

func (f *fakeEmployeeRepo) ListAdminUserIDs(ctx context.Context) ([]string, error) {
	return []string{"admin-user"}, nil
}

type fakeBalanceRepo struct {
	mu       sync.Mutex
	balances map[string]employee.LeaveBalance
}

func newFakeBalanceRepo() *fakeBalanceRepo {
	return &fakeBalanceRepo{balances: make(map[string]employee.LeaveBalance)}
}

func balanceKey(employeeID string, year int, kind employee.BalanceKind) string {
	return fmt.Sprintf("%s|%d|%s", employeeID, year, kind)
}

func (f *fakeBalanceRepo) Get(ctx context.Context, employeeID string, year int, kind employee.BalanceKind) (employee.LeaveBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.balances[balanceKey(employeeID, year, kind)]
	if !ok {
		return employee.LeaveBalance{}, employee.ErrBalanceNotFound
	}
	return b, nil
}

func (f *fakeBalanceRepo) Upsert(ctx context.Context, balance employee.LeaveBalance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[balanceKey(balance.EmployeeID, balance.Year, balance.Kind)] = balance
	return nil
}

func (f *fakeBalanceRepo) SetBalance(ctx context.Context, employeeID string, year int, kind employee.BalanceKind, balance decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := balanceKey(employeeID, year, kind)
	b, ok := f.balances[key]
	if !ok {
		return employee.ErrBalanceNotFound
	}
	b.Balance = balance
	f.balances[key] = b
	return nil
}

type auditEntry struct {
	Event   string
	ActorID string
	Details map[string]any
}

type fakeAuditSink struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (f *fakeAuditSink) Record(ctx context.Context, event string, actorID string, details map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, auditEntry{Event: event, ActorID: actorID, Details: details})
}

func (f *fakeAuditSink) has(event string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.Event == event {
			return true
		}
	}
	return false
}

type sentNotification struct {
	UserID  string
	Message string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (f *fakeNotifier) Notify(userID, message string, metadata map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNotification{UserID: userID, Message: message})
}

func (f *fakeNotifier) NotifyAdmins(message string, metadata map[string]any) {
	f.Notify("admin-user", message, nil)
}

func (f *fakeNotifier) Stop() {}

var _ notification.Service = (*fakeNotifier)(nil)

type fakeSettingsRepo struct {
	value string
}

func (f *fakeSettingsRepo) Get(ctx context.Context, key string) (settings.Setting, error) {
	if f.value == "" {
		return settings.Setting{}, settings.ErrSettingNotFound
	}
	return settings.Setting{Key: key, Value: f.value}, nil
}

func (f *fakeSettingsRepo) Set(ctx context.Context, key, value string) error {
	f.value = value
	return nil
}
