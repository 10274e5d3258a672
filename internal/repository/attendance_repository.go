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

const attendanceColumns = `id, user_id, work_date, clock_in_time, clock_out_time, status, note, created_at, updated_at`

// AttendanceRepository persists daily attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Create inserts a new attendance row.
func (r *AttendanceRepository) Create(ctx context.Context, a *models.Attendance) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = models.AttendancePresent
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = a.CreatedAt
	const query = `INSERT INTO attendance
	(id, user_id, work_date, clock_in_time, clock_out_time, status, note, created_at, updated_at)
	VALUES (:id, :user_id, :work_date, :clock_in_time, :clock_out_time, :status, :note, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("create attendance: %w", err)
	}
	return nil
}

// GetByID fetches an attendance record by identifier.
func (r *AttendanceRepository) GetByID(ctx context.Context, id string) (*models.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance WHERE id = $1`
	var a models.Attendance
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByUserAndDate fetches one user's record for a work date.
func (r *AttendanceRepository) FindByUserAndDate(ctx context.Context, userID string, workDate time.Time) (*models.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance WHERE user_id = $1 AND work_date = $2`
	var a models.Attendance
	if err := r.db.GetContext(ctx, &a, query, userID, workDate); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListByUserRange returns a user's records between two dates inclusive,
// newest first.
func (r *AttendanceRepository) ListByUserRange(ctx context.Context, userID string, from, to time.Time) ([]models.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance
	WHERE user_id = $1 AND work_date BETWEEN $2 AND $3 ORDER BY work_date DESC`
	var rows []models.Attendance
	if err := r.db.SelectContext(ctx, &rows, query, userID, from, to); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return rows, nil
}

// SetClockOut stamps the clock-out time on a record that has none yet.
// Returns sql.ErrNoRows when the record is missing or already clocked out.
func (r *AttendanceRepository) SetClockOut(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE attendance SET clock_out_time = $1, updated_at = $1
	WHERE id = $2 AND clock_out_time IS NULL`
	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("set clock out: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check clock out rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
