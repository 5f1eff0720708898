package employee

import (
	"context"

	"github.com/shopspring/decimal"
)

// EmployeeRepository - interface for employees table
type EmployeeRepository interface {
	Create(ctx context.Context, emp Employee) (Employee, error)
	GetByID(ctx context.Context, id string) (Employee, error)
	GetByUserID(ctx context.Context, userID string) (Employee, error)
	ListActive(ctx context.Context) ([]Employee, error)
	ListAdminUserIDs(ctx context.Context) ([]string, error)
}

// BalanceRepository - interface for leave_balances table. SetBalance is an
// absolute write so the ledger can clamp before persisting; both operations
// participate in the caller's transaction when one is open.
type BalanceRepository interface {
	Get(ctx context.Context, employeeID string, year int, kind BalanceKind) (LeaveBalance, error)
	Upsert(ctx context.Context, balance LeaveBalance) error
	SetBalance(ctx context.Context, employeeID string, year int, kind BalanceKind, balance decimal.Decimal) error
}
