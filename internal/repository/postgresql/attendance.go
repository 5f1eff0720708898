package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const attendanceColumns = `
	id, employee_id, date,
	clock_in, clock_out, break_minutes,
	is_late, is_half_day, late_minutes, status, source,
	override, override_reason,
	leave_request_id, preserved_clock_in, preserved_clock_out, preserved_worked_minutes,
	created_at, updated_at
`

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.RecordRepository {
	return &attendanceRepository{db: db}
}

func scanRecord(row pgx.Row) (attendance.Record, error) {
	var r attendance.Record
	err := row.Scan(
		&r.ID, &r.EmployeeID, &r.Date,
		&r.ClockIn, &r.ClockOut, &r.BreakMinutes,
		&r.IsLate, &r.IsHalfDay, &r.LateMinutes, &r.Status, &r.Source,
		&r.Override, &r.OverrideReason,
		&r.LeaveRequestID, &r.PreservedClockIn, &r.PreservedClockOut, &r.PreservedWorkedMinutes,
		&r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

// Create implements attendance.RecordRepository.
func (a *attendanceRepository) Create(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		INSERT INTO attendance_records (
			employee_id, date, clock_in, clock_out, break_minutes,
			is_late, is_half_day, late_minutes, status, source,
			override, override_reason, leave_request_id,
			preserved_clock_in, preserved_clock_out, preserved_worked_minutes
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		) RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		record.EmployeeID,
		record.Date,
		record.ClockIn,
		record.ClockOut,
		record.BreakMinutes,
		record.IsLate,
		record.IsHalfDay,
		record.LateMinutes,
		record.Status,
		record.Source,
		record.Override,
		record.OverrideReason,
		record.LeaveRequestID,
		record.PreservedClockIn,
		record.PreservedClockOut,
		record.PreservedWorkedMinutes,
	).Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt)

	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to create attendance record: %w", err)
	}

	return record, nil
}

// GetByID implements attendance.RecordRepository.
func (a *attendanceRepository) GetByID(ctx context.Context, id string) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + ` FROM attendance_records WHERE id = $1`

	record, err := scanRecord(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Record{}, attendance.ErrRecordNotFound
		}
		return attendance.Record{}, fmt.Errorf("failed to get attendance record: %w", err)
	}

	return record, nil
}

// GetByEmployeeAndDate implements attendance.RecordRepository. Returns nil
// without error when the day has no record yet.
func (a *attendanceRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + ` FROM attendance_records WHERE employee_id = $1 AND date = $2 LIMIT 1`

	record, err := scanRecord(q.QueryRow(ctx, query, employeeID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attendance record by date: %w", err)
	}

	return &record, nil
}

// Upsert implements attendance.RecordRepository. Keys on (employee_id, date)
// so a day only ever has one row.
func (a *attendanceRepository) Upsert(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		INSERT INTO attendance_records (
			employee_id, date, clock_in, clock_out, break_minutes,
			is_late, is_half_day, late_minutes, status, source,
			override, override_reason, leave_request_id,
			preserved_clock_in, preserved_clock_out, preserved_worked_minutes
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
		ON CONFLICT (employee_id, date) DO UPDATE SET
			clock_in = EXCLUDED.clock_in,
			clock_out = EXCLUDED.clock_out,
			break_minutes = EXCLUDED.break_minutes,
			is_late = EXCLUDED.is_late,
			is_half_day = EXCLUDED.is_half_day,
			late_minutes = EXCLUDED.late_minutes,
			status = EXCLUDED.status,
			source = EXCLUDED.source,
			override = EXCLUDED.override,
			override_reason = EXCLUDED.override_reason,
			leave_request_id = EXCLUDED.leave_request_id,
			preserved_clock_in = EXCLUDED.preserved_clock_in,
			preserved_clock_out = EXCLUDED.preserved_clock_out,
			preserved_worked_minutes = EXCLUDED.preserved_worked_minutes,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		record.EmployeeID,
		record.Date,
		record.ClockIn,
		record.ClockOut,
		record.BreakMinutes,
		record.IsLate,
		record.IsHalfDay,
		record.LateMinutes,
		record.Status,
		record.Source,
		record.Override,
		record.OverrideReason,
		record.LeaveRequestID,
		record.PreservedClockIn,
		record.PreservedClockOut,
		record.PreservedWorkedMinutes,
	).Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt)

	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to upsert attendance record: %w", err)
	}

	return record, nil
}

// Update implements attendance.RecordRepository.
func (a *attendanceRepository) Update(ctx context.Context, record attendance.Record) error {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendance_records SET
			clock_in = $2,
			clock_out = $3,
			break_minutes = $4,
			is_late = $5,
			is_half_day = $6,
			late_minutes = $7,
			status = $8,
			source = $9,
			override = $10,
			override_reason = $11,
			leave_request_id = $12,
			preserved_clock_in = $13,
			preserved_clock_out = $14,
			preserved_worked_minutes = $15,
			updated_at = NOW()
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query,
		record.ID,
		record.ClockIn,
		record.ClockOut,
		record.BreakMinutes,
		record.IsLate,
		record.IsHalfDay,
		record.LateMinutes,
		record.Status,
		record.Source,
		record.Override,
		record.OverrideReason,
		record.LeaveRequestID,
		record.PreservedClockIn,
		record.PreservedClockOut,
		record.PreservedWorkedMinutes,
	)
	if err != nil {
		return fmt.Errorf("failed to update attendance record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrRecordNotFound
	}

	return nil
}

// CloseSession implements attendance.RecordRepository. The clock_out IS NULL
// guard makes the close atomic: of two concurrent clock-outs only one matches.
func (a *attendanceRepository) CloseSession(ctx context.Context, id string, clockOut time.Time, breakMinutes int) (bool, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendance_records
		SET clock_out = $2, break_minutes = $3, updated_at = NOW()
		WHERE id = $1 AND clock_out IS NULL
	`

	tag, err := q.Exec(ctx, query, id, clockOut, breakMinutes)
	if err != nil {
		return false, fmt.Errorf("failed to close session: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ListOpenBefore implements attendance.RecordRepository.
func (a *attendanceRepository) ListOpenBefore(ctx context.Context, date time.Time) ([]attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + `
		FROM attendance_records
		WHERE date < $1 AND clock_in IS NOT NULL AND clock_out IS NULL
		ORDER BY date ASC`

	rows, err := q.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list open sessions: %w", err)
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read open sessions: %w", err)
	}

	return records, nil
}

// ListByLeaveRequest implements attendance.RecordRepository.
func (a *attendanceRepository) ListByLeaveRequest(ctx context.Context, leaveRequestID string) ([]attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + `
		FROM attendance_records
		WHERE leave_request_id = $1
		ORDER BY date ASC`

	rows, err := q.Query(ctx, query, leaveRequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list records by leave request: %w", err)
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records by leave request: %w", err)
	}

	return records, nil
}

// Delete implements attendance.RecordRepository.
func (a *attendanceRepository) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, a.db)

	tag, err := q.Exec(ctx, `DELETE FROM attendance_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete attendance record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrRecordNotFound
	}

	return nil
}
