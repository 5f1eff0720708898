package leave

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/employee"
	"github.com/shopspring/decimal"
)

// Ledger applies and reverts leave balance movements. Every mutating call is
// expected to run inside the synchronizer's transaction; the repository picks
// the open transaction up from the context.
type Ledger struct {
	balances employee.BalanceRepository
}

func NewLedger(balances employee.BalanceRepository) *Ledger {
	return &Ledger{balances: balances}
}

// Deduct subtracts days from the balance. Normal deduction clamps at zero;
// only an explicit administrative override may drive the balance negative.
func (l *Ledger) Deduct(ctx context.Context, employeeID string, year int, kind employee.BalanceKind, days decimal.Decimal, allowNegative bool) error {
	balance, err := l.balances.Get(ctx, employeeID, year, kind)
	if err != nil {
		return fmt.Errorf("failed to get %s balance: %w", kind, err)
	}

	next := balance.Balance.Sub(days)
	if next.IsNegative() && !allowNegative {
		next = decimal.Zero
	}

	if err := l.balances.SetBalance(ctx, employeeID, year, kind, next); err != nil {
		return fmt.Errorf("failed to set %s balance: %w", kind, err)
	}
	return nil
}

// Revert adds days back when an approved leave becomes non-approved.
func (l *Ledger) Revert(ctx context.Context, employeeID string, year int, kind employee.BalanceKind, days decimal.Decimal) error {
	balance, err := l.balances.Get(ctx, employeeID, year, kind)
	if err != nil {
		return fmt.Errorf("failed to get %s balance: %w", kind, err)
	}

	if err := l.balances.SetBalance(ctx, employeeID, year, kind, balance.Balance.Add(days)); err != nil {
		return fmt.Errorf("failed to set %s balance: %w", kind, err)
	}
	return nil
}

// ApplyCarryForward sets the target year's opening balance to that year's
// entitlement plus the carried days. The caller guards idempotence with the
// request's processed flag inside the same transaction.
func (l *Ledger) ApplyCarryForward(ctx context.Context, employeeID string, kind employee.BalanceKind, days decimal.Decimal, targetYear int) error {
	balance, err := l.balances.Get(ctx, employeeID, targetYear, kind)
	if err != nil {
		if !errors.Is(err, employee.ErrBalanceNotFound) {
			return fmt.Errorf("failed to get %s balance for %d: %w", kind, targetYear, err)
		}
		balance = employee.LeaveBalance{
			EmployeeID:  employeeID,
			Year:        targetYear,
			Kind:        kind,
			Entitlement: decimal.Zero,
		}
	}

	balance.Balance = balance.Entitlement.Add(days)
	if err := l.balances.Upsert(ctx, balance); err != nil {
		return fmt.Errorf("failed to apply carry-forward: %w", err)
	}
	return nil
}

// ApplyEncash is informational only: encashment is paid out by payroll and
// never mutates the balance.
func (l *Ledger) ApplyEncash(ctx context.Context, employeeID string, kind employee.BalanceKind, days decimal.Decimal, targetYear int) error {
	return nil
}

// RollbackCarryForward resets the target year's balance to the bare
// entitlement, undoing a processed carry-forward.
func (l *Ledger) RollbackCarryForward(ctx context.Context, employeeID string, kind employee.BalanceKind, targetYear int) error {
	balance, err := l.balances.Get(ctx, employeeID, targetYear, kind)
	if err != nil {
		return fmt.Errorf("failed to get %s balance for %d: %w", kind, targetYear, err)
	}

	if err := l.balances.SetBalance(ctx, employeeID, targetYear, kind, balance.Entitlement); err != nil {
		return fmt.Errorf("failed to rollback carry-forward: %w", err)
	}
	return nil
}
