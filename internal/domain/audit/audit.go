package audit

import "context"

// Event names emitted by the engine.
const (
	EventHalfDayFlagged    = "attendance.half_day_flagged"
	EventOverrideSet       = "attendance.override_set"
	EventOverrideCleared   = "attendance.override_cleared"
	EventPolicyOverridden  = "leave.policy_overridden"
	EventLeaveApproved     = "leave.approved"
	EventLeaveRejected     = "leave.rejected"
	EventLeaveReversed     = "leave.reversed"
	EventLeaveDatesEdited  = "leave.dates_edited"
	EventYearEndProcessed  = "leave.year_end_processed"
	EventYearEndRolledBack = "leave.year_end_rolled_back"
)

// Sink records audit entries. Implementations are fire-and-forget: a failing
// sink must never abort the operation that triggered it.
type Sink interface {
	Record(ctx context.Context, event string, actorID string, details map[string]any)
}
