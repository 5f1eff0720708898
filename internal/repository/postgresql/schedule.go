package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type shiftScheduleRepository struct {
	db *database.DB
}

func NewShiftScheduleRepository(db *database.DB) schedule.ShiftScheduleRepository {
	return &shiftScheduleRepository{db: db}
}

// Create implements schedule.ShiftScheduleRepository.
func (r *shiftScheduleRepository) Create(ctx context.Context, shift schedule.ShiftSchedule) (schedule.ShiftSchedule, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO shift_schedules (name, start_time, end_time, duration_minutes, paid_break_allowance_minutes, saturday_policy)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		shift.Name, shift.StartTime, shift.EndTime, shift.DurationMinutes,
		shift.PaidBreakAllowanceMinutes, shift.SaturdayPolicy,
	).Scan(&shift.ID, &shift.CreatedAt, &shift.UpdatedAt)

	if err != nil {
		return schedule.ShiftSchedule{}, fmt.Errorf("failed to create shift schedule: %w", err)
	}

	return shift, nil
}

// GetByID implements schedule.ShiftScheduleRepository.
func (r *shiftScheduleRepository) GetByID(ctx context.Context, id string) (schedule.ShiftSchedule, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, name, start_time, end_time, duration_minutes, paid_break_allowance_minutes, saturday_policy, created_at, updated_at
		FROM shift_schedules
		WHERE id = $1
	`

	var s schedule.ShiftSchedule
	err := q.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.Name, &s.StartTime, &s.EndTime, &s.DurationMinutes,
		&s.PaidBreakAllowanceMinutes, &s.SaturdayPolicy, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return schedule.ShiftSchedule{}, schedule.ErrShiftScheduleNotFound
		}
		return schedule.ShiftSchedule{}, fmt.Errorf("failed to get shift schedule: %w", err)
	}

	return s, nil
}

// List implements schedule.ShiftScheduleRepository.
func (r *shiftScheduleRepository) List(ctx context.Context) ([]schedule.ShiftSchedule, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, name, start_time, end_time, duration_minutes, paid_break_allowance_minutes, saturday_policy, created_at, updated_at
		FROM shift_schedules
		ORDER BY name ASC
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list shift schedules: %w", err)
	}
	defer rows.Close()

	var shifts []schedule.ShiftSchedule
	for rows.Next() {
		var s schedule.ShiftSchedule
		if err := rows.Scan(
			&s.ID, &s.Name, &s.StartTime, &s.EndTime, &s.DurationMinutes,
			&s.PaidBreakAllowanceMinutes, &s.SaturdayPolicy, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan shift schedule: %w", err)
		}
		shifts = append(shifts, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read shift schedules: %w", err)
	}

	return shifts, nil
}

type holidayRepository struct {
	db *database.DB
}

func NewHolidayRepository(db *database.DB) schedule.HolidayRepository {
	return &holidayRepository{db: db}
}

// Create implements schedule.HolidayRepository.
func (r *holidayRepository) Create(ctx context.Context, holiday schedule.Holiday) (schedule.Holiday, error) {
	q := GetQuerier(ctx, r.db)

	err := q.QueryRow(ctx,
		`INSERT INTO holidays (date, name) VALUES ($1, $2) RETURNING id`,
		holiday.Date, holiday.Name,
	).Scan(&holiday.ID)
	if err != nil {
		return schedule.Holiday{}, fmt.Errorf("failed to create holiday: %w", err)
	}

	return holiday, nil
}

// GetByDateRange implements schedule.HolidayRepository. Both bounds inclusive.
func (r *holidayRepository) GetByDateRange(ctx context.Context, from, to time.Time) ([]schedule.Holiday, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx,
		`SELECT id, date, name FROM holidays WHERE date >= $1 AND date <= $2 ORDER BY date ASC`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	defer rows.Close()

	var holidays []schedule.Holiday
	for rows.Next() {
		var h schedule.Holiday
		if err := rows.Scan(&h.ID, &h.Date, &h.Name); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		holidays = append(holidays, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read holidays: %w", err)
	}

	return holidays, nil
}
