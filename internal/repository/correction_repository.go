package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/kintai-dev/kintai-api/internal/models"
)

// Sentinel errors for the approval transaction. Each maps to a distinct
// client-visible outcome in the service layer.
var (
	// ErrAttendanceMissing: the attendance row behind the request is gone.
	ErrAttendanceMissing = errors.New("attendance record not found")
	// ErrSnapshotChanged: attendance no longer matches the request's
	// original snapshot.
	ErrSnapshotChanged = errors.New("attendance snapshot changed")
	// ErrAlreadyDecided: the request left pending before this decision
	// could land.
	ErrAlreadyDecided = errors.New("request already decided")
)

const correctionColumns = `id, attendance_id, user_id, original_snapshot, proposed_values, reason, status,
       decision_comment, approved_by, approved_at, rejected_by, rejected_at, cancelled_at, created_at, updated_at`

// CorrectionRepository persists correction requests and their approved
// effective-value overlays.
type CorrectionRepository struct {
	db *sqlx.DB
}

// NewCorrectionRepository constructs the repository.
func NewCorrectionRepository(db *sqlx.DB) *CorrectionRepository {
	return &CorrectionRepository{db: db}
}

// Create inserts a new pending request.
func (r *CorrectionRepository) Create(ctx context.Context, req *models.CorrectionRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = models.CorrectionPending
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = req.CreatedAt
	const query = `INSERT INTO attendance_correction_requests
	(id, attendance_id, user_id, original_snapshot, proposed_values, reason, status, created_at, updated_at)
	VALUES (:id, :attendance_id, :user_id, :original_snapshot, :proposed_values, :reason, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create correction request: %w", err)
	}
	return nil
}

// GetByID fetches a request by identifier.
func (r *CorrectionRepository) GetByID(ctx context.Context, id string) (*models.CorrectionRequest, error) {
	query := `SELECT ` + correctionColumns + ` FROM attendance_correction_requests WHERE id = $1`
	var req models.CorrectionRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// GetByIDForUser fetches a request only when it belongs to the given user.
func (r *CorrectionRepository) GetByIDForUser(ctx context.Context, id, userID string) (*models.CorrectionRequest, error) {
	query := `SELECT ` + correctionColumns + ` FROM attendance_correction_requests WHERE id = $1 AND user_id = $2`
	var req models.CorrectionRequest
	if err := r.db.GetContext(ctx, &req, query, id, userID); err != nil {
		return nil, err
	}
	return &req, nil
}

// ListByUser returns all of one user's requests, newest first.
func (r *CorrectionRepository) ListByUser(ctx context.Context, userID string) ([]models.CorrectionRequest, error) {
	query := `SELECT ` + correctionColumns + ` FROM attendance_correction_requests
	WHERE user_id = $1 ORDER BY created_at DESC`
	var rows []models.CorrectionRequest
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("list correction requests: %w", err)
	}
	return rows, nil
}

// ListPaginated returns a requests page plus the total match count. Nil
// filter fields match everything.
func (r *CorrectionRepository) ListPaginated(ctx context.Context, filter models.CorrectionFilter) ([]models.CorrectionRequest, int, error) {
	const where = ` FROM attendance_correction_requests
	WHERE ($1::text IS NULL OR status = $1) AND ($2::uuid IS NULL OR user_id = $2)`

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*)`+where, filter.Status, filter.UserID); err != nil {
		return nil, 0, fmt.Errorf("count correction requests: %w", err)
	}

	limit := filter.PerPage
	offset := (filter.Page - 1) * filter.PerPage
	query := `SELECT ` + correctionColumns + where + ` ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	var rows []models.CorrectionRequest
	if err := r.db.SelectContext(ctx, &rows, query, filter.Status, filter.UserID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list correction requests: %w", err)
	}
	return rows, total, nil
}

// UpdatePendingForUser replaces the proposed values and reason of a pending
// request owned by the user. Returns sql.ErrNoRows when the request is
// missing, owned by someone else, or no longer pending.
func (r *CorrectionRepository) UpdatePendingForUser(ctx context.Context, id, userID string, proposed []byte, reason string) error {
	const query = `UPDATE attendance_correction_requests
	SET proposed_values = $1, reason = $2, updated_at = $3
	WHERE id = $4 AND user_id = $5 AND status = 'pending'`
	result, err := r.db.ExecContext(ctx, query, proposed, reason, time.Now().UTC(), id, userID)
	if err != nil {
		return fmt.Errorf("update correction request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check correction update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CancelPendingForUser marks a pending request cancelled. Returns
// sql.ErrNoRows when nothing matched.
func (r *CorrectionRepository) CancelPendingForUser(ctx context.Context, id, userID string) error {
	now := time.Now().UTC()
	const query = `UPDATE attendance_correction_requests
	SET status = 'cancelled', cancelled_at = $1, updated_at = $1
	WHERE id = $2 AND user_id = $3 AND status = 'pending'`
	result, err := r.db.ExecContext(ctx, query, now, id, userID)
	if err != nil {
		return fmt.Errorf("cancel correction request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check correction cancel rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Reject records a rejection decision on a pending request. Returns
// sql.ErrNoRows when the request already left pending.
func (r *CorrectionRepository) Reject(ctx context.Context, id, reviewerID, comment string) error {
	now := time.Now().UTC()
	const query = `UPDATE attendance_correction_requests
	SET status = 'rejected', rejected_by = $1, rejected_at = $2, decision_comment = $3, updated_at = $2
	WHERE id = $4 AND status = 'pending'`
	result, err := r.db.ExecContext(ctx, query, reviewerID, now, comment, id)
	if err != nil {
		return fmt.Errorf("reject correction request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check correction reject rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ApproveParams carries everything the approval transaction needs.
type ApproveParams struct {
	RequestID    string
	AttendanceID string
	ReviewerID   string
	Comment      string
	Original     models.CorrectionSnapshot
	Proposed     models.CorrectionSnapshot
}

// ApproveAndApplyEffectiveValues runs the whole approval as one transaction:
// lock the attendance row and its breaks, verify the attendance still matches
// the request's original snapshot, flip the request from pending to approved,
// and upsert the effective-value overlay. Row locks plus the pending-only
// guard make exactly one of any set of concurrent approvals win.
func (r *CorrectionRepository) ApproveAndApplyEffectiveValues(ctx context.Context, params ApproveParams) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approve tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var current struct {
		ClockInTime  *time.Time `db:"clock_in_time"`
		ClockOutTime *time.Time `db:"clock_out_time"`
	}
	const lockAttendance = `SELECT clock_in_time, clock_out_time FROM attendance WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &current, lockAttendance, params.AttendanceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAttendanceMissing
		}
		return fmt.Errorf("lock attendance: %w", err)
	}

	const lockBreaks = `SELECT break_start_time, break_end_time FROM break_records
	WHERE attendance_id = $1 ORDER BY break_start_time ASC FOR UPDATE`
	var breaks []models.CorrectionBreakItem
	if err := tx.SelectContext(ctx, &breaks, lockBreaks, params.AttendanceID); err != nil {
		return fmt.Errorf("lock break records: %w", err)
	}

	latest := models.CorrectionSnapshot{
		ClockInTime:  current.ClockInTime,
		ClockOutTime: current.ClockOutTime,
		Breaks:       breaks,
	}
	if !latest.Equal(params.Original) {
		return ErrSnapshotChanged
	}

	now := time.Now().UTC()
	const decide = `UPDATE attendance_correction_requests
	SET status = 'approved', approved_by = $1, approved_at = $2, decision_comment = $3, updated_at = $2
	WHERE id = $4 AND status = 'pending'`
	result, err := tx.ExecContext(ctx, decide, params.ReviewerID, now, params.Comment, params.RequestID)
	if err != nil {
		return fmt.Errorf("approve correction request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check correction approve rows: %w", err)
	}
	if rows == 0 {
		return ErrAlreadyDecided
	}

	breaksJSON, err := json.Marshal(orderedBreaks(params.Proposed.Breaks))
	if err != nil {
		return fmt.Errorf("encode corrected breaks: %w", err)
	}
	const apply = `INSERT INTO attendance_correction_effective_values
	(attendance_id, source_request_id, clock_in_time_corrected, clock_out_time_corrected, break_records_corrected, applied_by, applied_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	ON CONFLICT (attendance_id) DO UPDATE SET
	source_request_id = EXCLUDED.source_request_id,
	clock_in_time_corrected = EXCLUDED.clock_in_time_corrected,
	clock_out_time_corrected = EXCLUDED.clock_out_time_corrected,
	break_records_corrected = EXCLUDED.break_records_corrected,
	applied_by = EXCLUDED.applied_by,
	applied_at = EXCLUDED.applied_at,
	updated_at = EXCLUDED.updated_at`
	if _, err := tx.ExecContext(ctx, apply,
		params.AttendanceID, params.RequestID,
		params.Proposed.ClockInTime, params.Proposed.ClockOutTime,
		breaksJSON, params.ReviewerID, now,
	); err != nil {
		return fmt.Errorf("apply effective values: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit approve tx: %w", err)
	}
	committed = true
	return nil
}

// orderedBreaks never returns nil so the stored JSON is [] rather than null.
func orderedBreaks(items []models.CorrectionBreakItem) []models.CorrectionBreakItem {
	if items == nil {
		return []models.CorrectionBreakItem{}
	}
	return items
}

// GetEffectiveValues returns the overlays for the given attendance ids.
// An empty id list short-circuits without touching the database.
func (r *CorrectionRepository) GetEffectiveValues(ctx context.Context, attendanceIDs []string) ([]models.EffectiveValue, error) {
	if len(attendanceIDs) == 0 {
		return []models.EffectiveValue{}, nil
	}
	const query = `SELECT attendance_id, source_request_id, clock_in_time_corrected, clock_out_time_corrected,
       break_records_corrected, applied_by, applied_at, updated_at
	FROM attendance_correction_effective_values WHERE attendance_id = ANY($1)`
	var values []models.EffectiveValue
	if err := r.db.SelectContext(ctx, &values, query, pq.Array(attendanceIDs)); err != nil {
		return nil, fmt.Errorf("get effective values: %w", err)
	}
	return values, nil
}

// FindEffectiveValue returns one attendance's overlay, or nil when none exists.
func (r *CorrectionRepository) FindEffectiveValue(ctx context.Context, attendanceID string) (*models.EffectiveValue, error) {
	const query = `SELECT attendance_id, source_request_id, clock_in_time_corrected, clock_out_time_corrected,
       break_records_corrected, applied_by, applied_at, updated_at
	FROM attendance_correction_effective_values WHERE attendance_id = $1`
	var value models.EffectiveValue
	if err := r.db.GetContext(ctx, &value, query, attendanceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find effective value: %w", err)
	}
	return &value, nil
}
