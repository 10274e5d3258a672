package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kintai-dev/kintai-api/internal/models"
)

// BreakRecordRepository persists break intervals.
type BreakRecordRepository struct {
	db *sqlx.DB
}

// NewBreakRecordRepository constructs the repository.
func NewBreakRecordRepository(db *sqlx.DB) *BreakRecordRepository {
	return &BreakRecordRepository{db: db}
}

// Create inserts a new break row.
func (r *BreakRecordRepository) Create(ctx context.Context, b *models.BreakRecord) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO break_records
	(id, attendance_id, break_start_time, break_end_time, created_at)
	VALUES (:id, :attendance_id, :break_start_time, :break_end_time, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, b); err != nil {
		return fmt.Errorf("create break record: %w", err)
	}
	return nil
}

// ListByAttendance returns an attendance record's breaks ordered by start
// time ascending.
func (r *BreakRecordRepository) ListByAttendance(ctx context.Context, attendanceID string) ([]models.BreakRecord, error) {
	const query = `SELECT id, attendance_id, break_start_time, break_end_time, created_at
	FROM break_records WHERE attendance_id = $1 ORDER BY break_start_time ASC`
	var rows []models.BreakRecord
	if err := r.db.SelectContext(ctx, &rows, query, attendanceID); err != nil {
		return nil, fmt.Errorf("list break records: %w", err)
	}
	return rows, nil
}

// FindOpen returns the attendance record's break without an end time, or nil.
func (r *BreakRecordRepository) FindOpen(ctx context.Context, attendanceID string) (*models.BreakRecord, error) {
	const query = `SELECT id, attendance_id, break_start_time, break_end_time, created_at
	FROM break_records WHERE attendance_id = $1 AND break_end_time IS NULL`
	var b models.BreakRecord
	if err := r.db.GetContext(ctx, &b, query, attendanceID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find open break: %w", err)
	}
	return &b, nil
}

// End stamps the end time on an open break. Returns sql.ErrNoRows when the
// break is missing or already closed.
func (r *BreakRecordRepository) End(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE break_records SET break_end_time = $1
	WHERE id = $2 AND break_end_time IS NULL`
	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("end break record: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check break end rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
