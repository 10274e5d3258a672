package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kintai-dev/kintai-api/internal/dto"
	"github.com/kintai-dev/kintai-api/internal/models"
	appErrors "github.com/kintai-dev/kintai-api/pkg/errors"
)

type attendanceStore interface {
	Create(ctx context.Context, a *models.Attendance) error
	GetByID(ctx context.Context, id string) (*models.Attendance, error)
	FindByUserAndDate(ctx context.Context, userID string, workDate time.Time) (*models.Attendance, error)
	ListByUserRange(ctx context.Context, userID string, from, to time.Time) ([]models.Attendance, error)
	SetClockOut(ctx context.Context, id string, at time.Time) error
}

type breakStore interface {
	Create(ctx context.Context, b *models.BreakRecord) error
	ListByAttendance(ctx context.Context, attendanceID string) ([]models.BreakRecord, error)
	FindOpen(ctx context.Context, attendanceID string) (*models.BreakRecord, error)
	End(ctx context.Context, id string, at time.Time) error
}

type effectiveValuesReader interface {
	GetEffectiveValues(ctx context.Context, attendanceIDs []string) ([]models.EffectiveValue, error)
	FindEffectiveValue(ctx context.Context, attendanceID string) (*models.EffectiveValue, error)
}

// AttendanceService handles daily clock-in/out, breaks, and reads that apply
// any approved correction overlay on top of the raw records.
type AttendanceService struct {
	repo    attendanceStore
	breaks  breakStore
	overlay effectiveValuesReader
	audit   auditRecorder
	now     func() time.Time
}

// NewAttendanceService constructs the service.
func NewAttendanceService(repo attendanceStore, breaks breakStore, overlay effectiveValuesReader, audit auditRecorder) *AttendanceService {
	return &AttendanceService{
		repo:    repo,
		breaks:  breaks,
		overlay: overlay,
		audit:   audit,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *AttendanceService) today() time.Time {
	n := s.now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

// ClockIn opens today's attendance record for the user.
func (s *AttendanceService) ClockIn(ctx context.Context, userID string, req dto.ClockInRequest) (*models.Attendance, error) {
	workDate := s.today()
	if existing, err := s.repo.FindByUserAndDate(ctx, userID, workDate); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "Already clocked in today")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	now := s.now()
	a := &models.Attendance{
		UserID:      userID,
		WorkDate:    workDate,
		ClockInTime: &now,
		Status:      models.AttendancePresent,
		Note:        req.Note,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create attendance")
	}
	s.emitAttendanceAudit(ctx, userID, models.AuditActionClockIn, a.ID)
	return a, nil
}

// ClockOut closes today's record. Open breaks must be ended first.
func (s *AttendanceService) ClockOut(ctx context.Context, userID string) (*models.Attendance, error) {
	a, err := s.todayRecord(ctx, userID)
	if err != nil {
		return nil, err
	}
	open, err := s.breaks.FindOpen(ctx, a.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check breaks")
	}
	if open != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "End the current break before clocking out")
	}

	now := s.now()
	if err := s.repo.SetClockOut(ctx, a.ID, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "Already clocked out")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clock out")
	}
	a.ClockOutTime = &now
	a.UpdatedAt = now
	s.emitAttendanceAudit(ctx, userID, models.AuditActionClockOut, a.ID)
	return a, nil
}

// StartBreak opens a break on today's record.
func (s *AttendanceService) StartBreak(ctx context.Context, userID string) (*models.BreakRecord, error) {
	a, err := s.todayRecord(ctx, userID)
	if err != nil {
		return nil, err
	}
	if a.ClockOutTime != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "Already clocked out")
	}
	open, err := s.breaks.FindOpen(ctx, a.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check breaks")
	}
	if open != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "A break is already in progress")
	}

	b := &models.BreakRecord{AttendanceID: a.ID, BreakStartTime: s.now()}
	if err := s.breaks.Create(ctx, b); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start break")
	}
	s.emitAttendanceAudit(ctx, userID, models.AuditActionBreakStart, a.ID)
	return b, nil
}

// EndBreak closes the open break on today's record.
func (s *AttendanceService) EndBreak(ctx context.Context, userID string) (*models.BreakRecord, error) {
	a, err := s.todayRecord(ctx, userID)
	if err != nil {
		return nil, err
	}
	open, err := s.breaks.FindOpen(ctx, a.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check breaks")
	}
	if open == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "No break in progress")
	}

	now := s.now()
	if err := s.breaks.End(ctx, open.ID, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "No break in progress")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to end break")
	}
	open.BreakEndTime = &now
	s.emitAttendanceAudit(ctx, userID, models.AuditActionBreakEnd, a.ID)
	return open, nil
}

// List returns the caller's records in the date range with correction
// overlays applied. The range defaults to the current month.
func (s *AttendanceService) List(ctx context.Context, userID string, query dto.AttendanceListQuery) ([]dto.AttendanceResponse, error) {
	from, to, err := s.resolveRange(query)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.ListByUserRange(ctx, userID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}

	ids := make([]string, 0, len(records))
	for i := range records {
		ids = append(ids, records[i].ID)
	}
	overlays, err := s.overlay.GetEffectiveValues(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load effective values")
	}
	overlayByID := make(map[string]*models.EffectiveValue, len(overlays))
	for i := range overlays {
		overlayByID[overlays[i].AttendanceID] = &overlays[i]
	}

	out := make([]dto.AttendanceResponse, 0, len(records))
	for i := range records {
		breaks, err := s.breaks.ListByAttendance(ctx, records[i].ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load break records")
		}
		resp, err := dto.NewAttendanceResponse(&records[i], breaks, overlayByID[records[i].ID])
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode effective values")
		}
		out = append(out, resp)
	}
	return out, nil
}

// Today returns the caller's current record with overlay applied.
func (s *AttendanceService) Today(ctx context.Context, userID string) (*dto.AttendanceResponse, error) {
	a, err := s.todayRecord(ctx, userID)
	if err != nil {
		return nil, err
	}
	breaks, err := s.breaks.ListByAttendance(ctx, a.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load break records")
	}
	overlay, err := s.overlay.FindEffectiveValue(ctx, a.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load effective values")
	}
	resp, err := dto.NewAttendanceResponse(a, breaks, overlay)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode effective values")
	}
	return &resp, nil
}

func (s *AttendanceService) todayRecord(ctx context.Context, userID string) (*models.Attendance, error) {
	a, err := s.repo.FindByUserAndDate(ctx, userID, s.today())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	return a, nil
}

func (s *AttendanceService) resolveRange(query dto.AttendanceListQuery) (time.Time, time.Time, error) {
	today := s.today()
	from := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := today

	var err error
	if query.From != "" {
		if from, err = time.Parse("2006-01-02", query.From); err != nil {
			return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "from must be formatted as YYYY-MM-DD")
		}
	}
	if query.To != "" {
		if to, err = time.Parse("2006-01-02", query.To); err != nil {
			return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "to must be formatted as YYYY-MM-DD")
		}
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	return from, to, nil
}

func (s *AttendanceService) emitAttendanceAudit(ctx context.Context, userID, action, attendanceID string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		EntityType: "attendance",
		EntityID:   &attendanceID,
	})
}
