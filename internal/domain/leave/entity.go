package leave

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/employee"
	"github.com/shopspring/decimal"
)

type RequestType string

const (
	TypeSick         RequestType = "sick"
	TypePlanned      RequestType = "planned"
	TypeCasual       RequestType = "casual"
	TypeLossOfPay    RequestType = "loss_of_pay"
	TypeCompensatory RequestType = "compensatory"
	TypeBackdated    RequestType = "backdated"
	TypeYearEnd      RequestType = "year_end"
)

type DayPart string

const (
	FullDay       DayPart = "full_day"
	HalfDayFirst  DayPart = "half_day_first"
	HalfDaySecond DayPart = "half_day_second"
)

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

type YearEndSubType string

const (
	YearEndCarryForward YearEndSubType = "carry_forward"
	YearEndEncash       YearEndSubType = "encash"
)

// Request is a leave request. A year_end request carries no leaveDates and no
// daily attendance implication, only the balance-ledger side effect guarded by
// IsProcessed.
type Request struct {
	ID         string
	EmployeeID string
	Type       RequestType
	DayPart    DayPart
	Dates      []time.Time // ordered, unique civil dates; empty for year_end

	Reason        string
	AttachmentURL *string
	IsBackdated   bool

	AdminOverride  bool
	OverrideReason *string

	Status          RequestStatus
	DecidedBy       *string
	DecidedAt       *time.Time
	RejectionReason *string

	YearEndYear    *int
	YearEndSubType *YearEndSubType
	YearEndDays    *decimal.Decimal
	IsProcessed    bool

	SubmittedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DayFraction is the per-date weight of the request (0.5 for half-day parts).
func (r Request) DayFraction() decimal.Decimal {
	if r.DayPart == HalfDayFirst || r.DayPart == HalfDaySecond {
		return decimal.NewFromFloat(0.5)
	}
	return decimal.NewFromInt(1)
}

// BalanceKind maps the request type to the profile balance it consumes.
// Loss-of-pay and compensatory requests consume no balance.
func (r Request) BalanceKind() (employee.BalanceKind, bool) {
	switch r.Type {
	case TypeSick:
		return employee.BalanceSick, true
	case TypeCasual:
		return employee.BalanceCasual, true
	case TypePlanned:
		return employee.BalancePaid, true
	default:
		return "", false
	}
}
