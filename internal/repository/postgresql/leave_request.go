package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const leaveRequestColumns = `
	id, employee_id, type, day_part, dates,
	reason, attachment_url, is_backdated,
	admin_override, override_reason,
	status, decided_by, decided_at, rejection_reason,
	year_end_year, year_end_sub_type, year_end_days, is_processed,
	submitted_at, created_at, updated_at
`

type leaveRequestRepository struct {
	db *database.DB
}

func NewLeaveRequestRepository(db *database.DB) leave.RequestRepository {
	return &leaveRequestRepository{db: db}
}

func scanLeaveRequest(row pgx.Row) (leave.Request, error) {
	var r leave.Request
	err := row.Scan(
		&r.ID, &r.EmployeeID, &r.Type, &r.DayPart, &r.Dates,
		&r.Reason, &r.AttachmentURL, &r.IsBackdated,
		&r.AdminOverride, &r.OverrideReason,
		&r.Status, &r.DecidedBy, &r.DecidedAt, &r.RejectionReason,
		&r.YearEndYear, &r.YearEndSubType, &r.YearEndDays, &r.IsProcessed,
		&r.SubmittedAt, &r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

// Create implements leave.RequestRepository. Dates is stored as a date[]
// column so the request's date set is one atomic value.
func (l *leaveRequestRepository) Create(ctx context.Context, request leave.Request) (leave.Request, error) {
	q := GetQuerier(ctx, l.db)

	query := `
		INSERT INTO leave_requests (
			employee_id, type, day_part, dates,
			reason, attachment_url, is_backdated,
			admin_override, override_reason, status,
			year_end_year, year_end_sub_type, year_end_days,
			submitted_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		) RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		request.EmployeeID,
		request.Type,
		request.DayPart,
		request.Dates,
		request.Reason,
		request.AttachmentURL,
		request.IsBackdated,
		request.AdminOverride,
		request.OverrideReason,
		request.Status,
		request.YearEndYear,
		request.YearEndSubType,
		request.YearEndDays,
		request.SubmittedAt,
	).Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt)

	if err != nil {
		return leave.Request{}, fmt.Errorf("failed to create leave request: %w", err)
	}

	return request, nil
}

// GetByID implements leave.RequestRepository.
func (l *leaveRequestRepository) GetByID(ctx context.Context, id string) (leave.Request, error) {
	q := GetQuerier(ctx, l.db)

	query := `SELECT ` + leaveRequestColumns + ` FROM leave_requests WHERE id = $1`

	request, err := scanLeaveRequest(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leave.Request{}, leave.ErrRequestNotFound
		}
		return leave.Request{}, fmt.Errorf("failed to get leave request: %w", err)
	}

	return request, nil
}

// Update implements leave.RequestRepository.
func (l *leaveRequestRepository) Update(ctx context.Context, request leave.Request) error {
	q := GetQuerier(ctx, l.db)

	query := `
		UPDATE leave_requests SET
			type = $2,
			day_part = $3,
			dates = $4,
			reason = $5,
			attachment_url = $6,
			is_backdated = $7,
			admin_override = $8,
			override_reason = $9,
			status = $10,
			updated_at = NOW()
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query,
		request.ID,
		request.Type,
		request.DayPart,
		request.Dates,
		request.Reason,
		request.AttachmentURL,
		request.IsBackdated,
		request.AdminOverride,
		request.OverrideReason,
		request.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to update leave request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return leave.ErrRequestNotFound
	}

	return nil
}

// UpdateStatusIf implements leave.RequestRepository. The status guard in the
// WHERE clause makes the transition atomic; a lost race reports false.
func (l *leaveRequestRepository) UpdateStatusIf(ctx context.Context, id string, from, to leave.RequestStatus, decidedBy string, reason *string) (bool, error) {
	q := GetQuerier(ctx, l.db)

	query := `
		UPDATE leave_requests
		SET status = $3, decided_by = $4, decided_at = NOW(), rejection_reason = $5, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`

	tag, err := q.Exec(ctx, query, id, from, to, decidedBy, reason)
	if err != nil {
		return false, fmt.Errorf("failed to transition leave request: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// MarkProcessedIf implements leave.RequestRepository. Flips the processed
// flag only when it is still unset so a request credits at most once.
func (l *leaveRequestRepository) MarkProcessedIf(ctx context.Context, id string) (bool, error) {
	q := GetQuerier(ctx, l.db)

	query := `
		UPDATE leave_requests
		SET is_processed = TRUE, updated_at = NOW()
		WHERE id = $1 AND is_processed = FALSE
	`

	tag, err := q.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark leave request processed: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// UpdateDates implements leave.RequestRepository.
func (l *leaveRequestRepository) UpdateDates(ctx context.Context, id string, dates []time.Time) error {
	q := GetQuerier(ctx, l.db)

	tag, err := q.Exec(ctx, `UPDATE leave_requests SET dates = $2, updated_at = NOW() WHERE id = $1`, id, dates)
	if err != nil {
		return fmt.Errorf("failed to update leave request dates: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return leave.ErrRequestNotFound
	}

	return nil
}

// ListForMonth implements leave.RequestRepository. Matches any request with
// at least one date inside the month.
func (l *leaveRequestRepository) ListForMonth(ctx context.Context, employeeID string, year int, month time.Month, statuses []leave.RequestStatus) ([]leave.Request, error) {
	q := GetQuerier(ctx, l.db)

	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	query := `SELECT ` + leaveRequestColumns + `
		FROM leave_requests
		WHERE employee_id = $1
		  AND status = ANY($2)
		  AND EXISTS (
			SELECT 1 FROM unnest(dates) AS d WHERE d >= $3 AND d < $4
		  )
		ORDER BY submitted_at ASC`

	statusStrings := make([]string, len(statuses))
	for i, s := range statuses {
		statusStrings[i] = string(s)
	}

	rows, err := q.Query(ctx, query, employeeID, statusStrings, monthStart, monthEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list month's leave requests: %w", err)
	}
	defer rows.Close()

	var requests []leave.Request
	for rows.Next() {
		request, err := scanLeaveRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leave request: %w", err)
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read month's leave requests: %w", err)
	}

	return requests, nil
}

// Delete implements leave.RequestRepository.
func (l *leaveRequestRepository) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, l.db)

	tag, err := q.Exec(ctx, `DELETE FROM leave_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete leave request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return leave.ErrRequestNotFound
	}

	return nil
}
