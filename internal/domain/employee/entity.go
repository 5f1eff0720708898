package employee

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/schedule"
	"github.com/shopspring/decimal"
)

type EmploymentType string

const (
	EmploymentPermanent EmploymentType = "permanent"
	EmploymentProbation EmploymentType = "probation"
	EmploymentIntern    EmploymentType = "intern"
)

// BalanceKind identifies one of the per-type leave balances on the profile.
type BalanceKind string

const (
	BalanceSick   BalanceKind = "sick"
	BalanceCasual BalanceKind = "casual"
	BalancePaid   BalanceKind = "paid"
)

// LeaveBalance is one ledger entry for a (employee, year, kind) tuple.
// Balance never goes negative through normal deduction; only an explicit
// administrative override may drive it below zero.
type LeaveBalance struct {
	EmployeeID  string
	Year        int
	Kind        BalanceKind
	Entitlement decimal.Decimal
	Balance     decimal.Decimal

	UpdatedAt time.Time
}

type Employee struct {
	ID             string
	UserID         string
	Name           string
	Email          string
	EmploymentType EmploymentType
	ShiftID        string
	HireDate       time.Time
	IsActive       bool

	// Loaded with the profile, never mutated outside the synchronizer's
	// transaction boundary.
	Shift schedule.ShiftSchedule

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RestrictedToLossOfPay reports whether the employee type is limited to
// loss-of-pay and compensatory requests.
func (e Employee) RestrictedToLossOfPay() bool {
	return e.EmploymentType == EmploymentProbation || e.EmploymentType == EmploymentIntern
}
