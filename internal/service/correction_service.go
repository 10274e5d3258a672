package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/kintai-dev/kintai-api/internal/dto"
	"github.com/kintai-dev/kintai-api/internal/models"
	"github.com/kintai-dev/kintai-api/internal/repository"
	appErrors "github.com/kintai-dev/kintai-api/pkg/errors"
)

type correctionStore interface {
	Create(ctx context.Context, req *models.CorrectionRequest) error
	GetByID(ctx context.Context, id string) (*models.CorrectionRequest, error)
	GetByIDForUser(ctx context.Context, id, userID string) (*models.CorrectionRequest, error)
	ListByUser(ctx context.Context, userID string) ([]models.CorrectionRequest, error)
	ListPaginated(ctx context.Context, filter models.CorrectionFilter) ([]models.CorrectionRequest, int, error)
	UpdatePendingForUser(ctx context.Context, id, userID string, proposed []byte, reason string) error
	CancelPendingForUser(ctx context.Context, id, userID string) error
	Reject(ctx context.Context, id, reviewerID, comment string) error
	ApproveAndApplyEffectiveValues(ctx context.Context, params repository.ApproveParams) error
}

type attendanceReader interface {
	FindByUserAndDate(ctx context.Context, userID string, workDate time.Time) (*models.Attendance, error)
}

type breakReader interface {
	ListByAttendance(ctx context.Context, attendanceID string) ([]models.BreakRecord, error)
}

type auditRecorder interface {
	Record(ctx context.Context, entry *models.AuditLog)
}

// CorrectionService orchestrates the attendance correction workflow.
type CorrectionService struct {
	repo         correctionStore
	attendance   attendanceReader
	breaks       breakReader
	audit        auditRecorder
	maxReasonLen int
	perPage      int
	maxPerPage   int
}

// NewCorrectionService constructs the service.
func NewCorrectionService(repo correctionStore, attendance attendanceReader, breaks breakReader, audit auditRecorder, maxReasonLen, perPage, maxPerPage int) *CorrectionService {
	if maxReasonLen <= 0 {
		maxReasonLen = 500
	}
	if perPage <= 0 {
		perPage = 20
	}
	if maxPerPage <= 0 {
		maxPerPage = 100
	}
	return &CorrectionService{
		repo:         repo,
		attendance:   attendance,
		breaks:       breaks,
		audit:        audit,
		maxReasonLen: maxReasonLen,
		perPage:      perPage,
		maxPerPage:   maxPerPage,
	}
}

// Create submits a new correction request for the caller's attendance on the
// given date. The attendance state is snapshotted at submission time so later
// edits can be detected at approval.
func (s *CorrectionService) Create(ctx context.Context, req dto.CreateCorrectionRequest, userID string) (*models.CorrectionRequest, error) {
	if err := s.validateReason(req.Reason); err != nil {
		return nil, err
	}
	workDate, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted as YYYY-MM-DD")
	}

	attendance, err := s.attendance.FindByUserAndDate(ctx, userID, workDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	breakRows, err := s.breaks.ListByAttendance(ctx, attendance.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load break records")
	}

	original := models.SnapshotFromAttendance(attendance, breakRows)
	proposed := buildProposedSnapshot(original, req.ClockInTime, req.ClockOutTime, req.Breaks)
	if err := validateSnapshot(proposed); err != nil {
		return nil, err
	}
	if proposed.Equal(original) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "At least one field must be changed")
	}

	originalJSON, err := json.Marshal(original)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode snapshot")
	}
	proposedJSON, err := json.Marshal(proposed)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode snapshot")
	}

	request := &models.CorrectionRequest{
		AttendanceID:     attendance.ID,
		UserID:           userID,
		OriginalSnapshot: originalJSON,
		ProposedValues:   proposedJSON,
		Reason:           req.Reason,
		Status:           models.CorrectionPending,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create correction request")
	}
	s.emitAudit(ctx, userID, models.AuditActionCorrectionCreate, request.ID, proposedJSON)
	return request, nil
}

// ListMine returns the caller's correction requests, newest first.
func (s *CorrectionService) ListMine(ctx context.Context, userID string) ([]models.CorrectionRequest, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list correction requests")
	}
	return rows, nil
}

// Get returns a request enforcing ownership for non-admin actors.
func (s *CorrectionService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.CorrectionRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	var (
		request *models.CorrectionRequest
		err     error
	)
	if actor.Role.IsAdmin() {
		request, err = s.repo.GetByID(ctx, id)
	} else {
		request, err = s.repo.GetByIDForUser(ctx, id, actor.UserID)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Correction request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load correction request")
	}
	return request, nil
}

// Update replaces the proposed values and reason of the caller's pending
// request. Decided requests are immutable.
func (s *CorrectionService) Update(ctx context.Context, id string, req dto.UpdateCorrectionRequest, userID string) (*models.CorrectionRequest, error) {
	if err := s.validateReason(req.Reason); err != nil {
		return nil, err
	}
	request, err := s.repo.GetByIDForUser(ctx, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Correction request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load correction request")
	}
	original, err := request.ParseOriginalSnapshot()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode snapshot")
	}

	proposed := buildProposedSnapshot(original, req.ClockInTime, req.ClockOutTime, req.Breaks)
	if err := validateSnapshot(proposed); err != nil {
		return nil, err
	}
	if proposed.Equal(original) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "At least one field must be changed")
	}
	proposedJSON, err := json.Marshal(proposed)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode snapshot")
	}

	if err := s.repo.UpdatePendingForUser(ctx, id, userID, proposedJSON, req.Reason); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "Only pending requests can be updated")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update correction request")
	}
	request.ProposedValues = proposedJSON
	request.Reason = req.Reason
	request.UpdatedAt = time.Now().UTC()
	s.emitAudit(ctx, userID, models.AuditActionCorrectionUpdate, request.ID, proposedJSON)
	return request, nil
}

// Cancel withdraws the caller's pending request.
func (s *CorrectionService) Cancel(ctx context.Context, id, userID string) error {
	if err := s.repo.CancelPendingForUser(ctx, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "Only pending requests can be cancelled")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel correction request")
	}
	s.emitAudit(ctx, userID, models.AuditActionCorrectionCancel, id, nil)
	return nil
}

// AdminList returns a filtered, paginated page of all requests.
func (s *CorrectionService) AdminList(ctx context.Context, query dto.AdminCorrectionListQuery) ([]models.CorrectionRequest, models.Pagination, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	perPage := query.PerPage
	if perPage <= 0 {
		perPage = s.perPage
	}
	if perPage > s.maxPerPage {
		perPage = s.maxPerPage
	}

	filter := models.CorrectionFilter{Page: page, PerPage: perPage, UserID: query.UserID}
	if query.Status != nil {
		status := models.CorrectionStatus(*query.Status)
		filter.Status = &status
	}
	rows, total, err := s.repo.ListPaginated(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list correction requests")
	}
	return rows, models.Pagination{Page: page, PageSize: perPage, TotalCount: total}, nil
}

// Approve runs the approval transaction: it re-reads the attendance under row
// locks, verifies it still matches the request's original snapshot, flips the
// request from pending, and installs the proposed values as the effective
// overlay. Reviewers cannot approve their own requests.
func (s *CorrectionService) Approve(ctx context.Context, id, comment string, actor *models.JWTClaims) (*models.CorrectionRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validateComment(comment); err != nil {
		return nil, err
	}
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Correction request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load correction request")
	}
	if request.UserID == actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Cannot approve your own request")
	}
	original, err := request.ParseOriginalSnapshot()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode snapshot")
	}
	proposed, err := request.ParseProposedValues()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode snapshot")
	}

	err = s.repo.ApproveAndApplyEffectiveValues(ctx, repository.ApproveParams{
		RequestID:    request.ID,
		AttendanceID: request.AttendanceID,
		ReviewerID:   actor.UserID,
		Comment:      comment,
		Original:     original,
		Proposed:     proposed,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAttendanceMissing):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Attendance record not found")
		case errors.Is(err, repository.ErrSnapshotChanged):
			return nil, appErrors.Clone(appErrors.ErrConflict, "Attendance record changed after request submission. Please resubmit.")
		case errors.Is(err, repository.ErrAlreadyDecided):
			return nil, appErrors.Clone(appErrors.ErrConflict, "Request not found or already processed")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve correction request")
		}
	}

	now := time.Now().UTC()
	request.Status = models.CorrectionApproved
	request.ApprovedBy = &actor.UserID
	request.ApprovedAt = &now
	request.DecisionComment = &comment
	request.UpdatedAt = now
	s.emitAudit(ctx, actor.UserID, models.AuditActionCorrectionApprove, request.ID, request.ProposedValues)
	return request, nil
}

// Reject records a rejection on a pending request. Reviewers cannot reject
// their own requests.
func (s *CorrectionService) Reject(ctx context.Context, id, comment string, actor *models.JWTClaims) (*models.CorrectionRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validateComment(comment); err != nil {
		return nil, err
	}
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Correction request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load correction request")
	}
	if request.UserID == actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Cannot reject your own request")
	}

	if err := s.repo.Reject(ctx, id, actor.UserID, comment); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "Request not found or already processed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject correction request")
	}

	now := time.Now().UTC()
	request.Status = models.CorrectionRejected
	request.RejectedBy = &actor.UserID
	request.RejectedAt = &now
	request.DecisionComment = &comment
	request.UpdatedAt = now
	s.emitAudit(ctx, actor.UserID, models.AuditActionCorrectionReject, request.ID, nil)
	return request, nil
}

func (s *CorrectionService) validateReason(reason string) error {
	if reason == "" {
		return appErrors.Clone(appErrors.ErrValidation, "reason is required")
	}
	if len(reason) > s.maxReasonLen {
		return appErrors.Clone(appErrors.ErrValidation, "reason must be 500 characters or less")
	}
	return nil
}

func (s *CorrectionService) validateComment(comment string) error {
	if comment == "" {
		return appErrors.Clone(appErrors.ErrValidation, "comment is required")
	}
	if len(comment) > s.maxReasonLen {
		return appErrors.Clone(appErrors.ErrValidation, "comment must be 500 characters or less")
	}
	return nil
}

func (s *CorrectionService) emitAudit(ctx context.Context, userID, action, entityID string, detail []byte) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		EntityType: "correction_request",
		EntityID:   &entityID,
		Detail:     detail,
	})
}

// buildProposedSnapshot overlays the requested changes on the original state.
// Nil fields keep the original value; an explicit empty break list clears
// breaks.
func buildProposedSnapshot(original models.CorrectionSnapshot, clockIn, clockOut *time.Time, breaks *[]dto.BreakItemPayload) models.CorrectionSnapshot {
	proposed := models.CorrectionSnapshot{
		ClockInTime:  original.ClockInTime,
		ClockOutTime: original.ClockOutTime,
		Breaks:       original.Breaks,
	}
	if clockIn != nil {
		proposed.ClockInTime = clockIn
	}
	if clockOut != nil {
		proposed.ClockOutTime = clockOut
	}
	if breaks != nil {
		items := make([]models.CorrectionBreakItem, 0, len(*breaks))
		for _, b := range *breaks {
			items = append(items, models.CorrectionBreakItem{
				BreakStartTime: b.BreakStartTime,
				BreakEndTime:   b.BreakEndTime,
			})
		}
		proposed.Breaks = items
	}
	return proposed
}

func validateSnapshot(s models.CorrectionSnapshot) error {
	if s.ClockInTime == nil {
		return appErrors.Clone(appErrors.ErrValidation, "clock_in_time is required")
	}
	if s.ClockOutTime != nil && s.ClockOutTime.Before(*s.ClockInTime) {
		return appErrors.Clone(appErrors.ErrValidation, "clock_out_time must not be before clock_in_time")
	}
	for _, b := range s.Breaks {
		if b.BreakStartTime.Before(*s.ClockInTime) {
			return appErrors.Clone(appErrors.ErrValidation, "break must start after clock_in_time")
		}
		if b.BreakEndTime != nil {
			if b.BreakEndTime.Before(b.BreakStartTime) {
				return appErrors.Clone(appErrors.ErrValidation, "break end must not be before break start")
			}
			if s.ClockOutTime != nil && b.BreakEndTime.After(*s.ClockOutTime) {
				return appErrors.Clone(appErrors.ErrValidation, "break must end before clock_out_time")
			}
		}
	}
	return nil
}
