package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const employeeColumns = `
	e.id, e.user_id, e.name, e.email, e.employment_type, e.shift_id, e.hire_date, e.is_active,
	e.created_at, e.updated_at,
	s.id, s.name, s.start_time, s.end_time, s.duration_minutes,
	s.paid_break_allowance_minutes, s.saturday_policy, s.created_at, s.updated_at
`

type employeeRepository struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepository{db: db}
}

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var e employee.Employee
	err := row.Scan(
		&e.ID, &e.UserID, &e.Name, &e.Email, &e.EmploymentType, &e.ShiftID, &e.HireDate, &e.IsActive,
		&e.CreatedAt, &e.UpdatedAt,
		&e.Shift.ID, &e.Shift.Name, &e.Shift.StartTime, &e.Shift.EndTime, &e.Shift.DurationMinutes,
		&e.Shift.PaidBreakAllowanceMinutes, &e.Shift.SaturdayPolicy, &e.Shift.CreatedAt, &e.Shift.UpdatedAt,
	)
	return e, err
}

// Create implements employee.EmployeeRepository.
func (r *employeeRepository) Create(ctx context.Context, emp employee.Employee) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO employees (user_id, name, email, employment_type, shift_id, hire_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		emp.UserID, emp.Name, emp.Email, emp.EmploymentType, emp.ShiftID, emp.HireDate, emp.IsActive,
	).Scan(&emp.ID, &emp.CreatedAt, &emp.UpdatedAt)

	if err != nil {
		return employee.Employee{}, fmt.Errorf("failed to create employee: %w", err)
	}

	return emp, nil
}

// GetByID implements employee.EmployeeRepository. The shift rides along so
// attendance resolution never needs a second round trip.
func (r *employeeRepository) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + employeeColumns + `
		FROM employees e
		JOIN shift_schedules s ON s.id = e.shift_id
		WHERE e.id = $1`

	emp, err := scanEmployee(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee: %w", err)
	}

	return emp, nil
}

// GetByUserID implements employee.EmployeeRepository.
func (r *employeeRepository) GetByUserID(ctx context.Context, userID string) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + employeeColumns + `
		FROM employees e
		JOIN shift_schedules s ON s.id = e.shift_id
		WHERE e.user_id = $1`

	emp, err := scanEmployee(q.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee by user: %w", err)
	}

	return emp, nil
}

// ListActive implements employee.EmployeeRepository.
func (r *employeeRepository) ListActive(ctx context.Context) ([]employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + employeeColumns + `
		FROM employees e
		JOIN shift_schedules s ON s.id = e.shift_id
		WHERE e.is_active = TRUE
		ORDER BY e.name ASC`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}
	defer rows.Close()

	var employees []employee.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read active employees: %w", err)
	}

	return employees, nil
}

// ListAdminUserIDs implements employee.EmployeeRepository.
func (r *employeeRepository) ListAdminUserIDs(ctx context.Context) ([]string, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT id FROM users WHERE role = 'admin'`)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan admin user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read admin users: %w", err)
	}

	return ids, nil
}

type balanceRepository struct {
	db *database.DB
}

func NewBalanceRepository(db *database.DB) employee.BalanceRepository {
	return &balanceRepository{db: db}
}

// Get implements employee.BalanceRepository.
func (r *balanceRepository) Get(ctx context.Context, employeeID string, year int, kind employee.BalanceKind) (employee.LeaveBalance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT employee_id, year, kind, entitlement, balance, updated_at
		FROM leave_balances
		WHERE employee_id = $1 AND year = $2 AND kind = $3
	`

	var b employee.LeaveBalance
	err := q.QueryRow(ctx, query, employeeID, year, kind).Scan(
		&b.EmployeeID, &b.Year, &b.Kind, &b.Entitlement, &b.Balance, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.LeaveBalance{}, employee.ErrBalanceNotFound
		}
		return employee.LeaveBalance{}, fmt.Errorf("failed to get leave balance: %w", err)
	}

	return b, nil
}

// Upsert implements employee.BalanceRepository.
func (r *balanceRepository) Upsert(ctx context.Context, balance employee.LeaveBalance) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO leave_balances (employee_id, year, kind, entitlement, balance)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (employee_id, year, kind) DO UPDATE SET
			entitlement = EXCLUDED.entitlement,
			balance = EXCLUDED.balance,
			updated_at = NOW()
	`

	_, err := q.Exec(ctx, query, balance.EmployeeID, balance.Year, balance.Kind, balance.Entitlement, balance.Balance)
	if err != nil {
		return fmt.Errorf("failed to upsert leave balance: %w", err)
	}

	return nil
}

// SetBalance implements employee.BalanceRepository.
func (r *balanceRepository) SetBalance(ctx context.Context, employeeID string, year int, kind employee.BalanceKind, balance decimal.Decimal) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE leave_balances
		SET balance = $4, updated_at = NOW()
		WHERE employee_id = $1 AND year = $2 AND kind = $3
	`

	tag, err := q.Exec(ctx, query, employeeID, year, kind, balance)
	if err != nil {
		return fmt.Errorf("failed to set leave balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrBalanceNotFound
	}

	return nil
}
