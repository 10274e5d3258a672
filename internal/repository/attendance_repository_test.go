package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/kintai-dev/kintai-api/internal/models"
)

func newAttendanceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAttendanceRepositoryCreateAndFind(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	workDate := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	clockIn := workDate.Add(9 * time.Hour)
	a := &models.Attendance{UserID: "user-1", WorkDate: workDate, ClockInTime: &clockIn}
	require.NoError(t, repo.Create(context.Background(), a))
	require.NotEmpty(t, a.ID)
	require.Equal(t, models.AttendancePresent, a.Status)

	rows := sqlmock.NewRows([]string{"id", "user_id", "work_date", "clock_in_time", "clock_out_time", "status", "note", "created_at", "updated_at"}).
		AddRow(a.ID, "user-1", workDate, clockIn, nil, "present", nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, work_date")).
		WithArgs("user-1", workDate).
		WillReturnRows(rows)

	found, err := repo.FindByUserAndDate(context.Background(), "user-1", workDate)
	require.NoError(t, err)
	require.Equal(t, a.ID, found.ID)
	require.Nil(t, found.ClockOutTime)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositorySetClockOutGuard(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE attendance SET clock_out_time")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetClockOut(context.Background(), "att-1", time.Now()))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE attendance SET clock_out_time")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.SetClockOut(context.Background(), "att-1", time.Now()), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBreakRecordRepositoryOpenBreakLifecycle(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewBreakRecordRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM break_records WHERE attendance_id = $1 AND break_end_time IS NULL")).
		WithArgs("att-1").
		WillReturnError(sql.ErrNoRows)
	open, err := repo.FindOpen(context.Background(), "att-1")
	require.NoError(t, err)
	require.Nil(t, open)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO break_records")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	b := &models.BreakRecord{AttendanceID: "att-1", BreakStartTime: time.Now()}
	require.NoError(t, repo.Create(context.Background(), b))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE break_records SET break_end_time")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.End(context.Background(), b.ID, time.Now()), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
