package service

import (
	"context"
	"database/sql"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kintai-dev/kintai-api/internal/dto"
	"github.com/kintai-dev/kintai-api/internal/models"
	"github.com/kintai-dev/kintai-api/internal/repository"
	appErrors "github.com/kintai-dev/kintai-api/pkg/errors"
)

type correctionRepoStub struct {
	mu         sync.Mutex
	requests   map[string]*models.CorrectionRequest
	attendance models.CorrectionSnapshot
	hasRecord  bool
	effective  map[string]models.EffectiveValue
	seq        int
}

func newCorrectionRepoStub() *correctionRepoStub {
	return &correctionRepoStub{
		requests:  make(map[string]*models.CorrectionRequest),
		effective: make(map[string]models.EffectiveValue),
		hasRecord: true,
	}
}

func (s *correctionRepoStub) Create(ctx context.Context, req *models.CorrectionRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.ID == "" {
		s.seq++
		req.ID = "req-" + strconv.Itoa(s.seq)
	}
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now
	copied := *req
	s.requests[req.ID] = &copied
	return nil
}

func (s *correctionRepoStub) GetByID(ctx context.Context, id string) (*models.CorrectionRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req, ok := s.requests[id]; ok {
		copied := *req
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *correctionRepoStub) GetByIDForUser(ctx context.Context, id, userID string) (*models.CorrectionRequest, error) {
	req, err := s.GetByID(ctx, id)
	if err != nil || req.UserID != userID {
		return nil, sql.ErrNoRows
	}
	return req, nil
}

func (s *correctionRepoStub) ListByUser(ctx context.Context, userID string) ([]models.CorrectionRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CorrectionRequest
	for _, req := range s.requests {
		if req.UserID == userID {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (s *correctionRepoStub) ListPaginated(ctx context.Context, filter models.CorrectionFilter) ([]models.CorrectionRequest, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CorrectionRequest
	for _, req := range s.requests {
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		if filter.UserID != nil && req.UserID != *filter.UserID {
			continue
		}
		out = append(out, *req)
	}
	return out, len(out), nil
}

func (s *correctionRepoStub) UpdatePendingForUser(ctx context.Context, id, userID string, proposed []byte, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok || req.UserID != userID || req.Status != models.CorrectionPending {
		return sql.ErrNoRows
	}
	req.ProposedValues = proposed
	req.Reason = reason
	return nil
}

func (s *correctionRepoStub) CancelPendingForUser(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok || req.UserID != userID || req.Status != models.CorrectionPending {
		return sql.ErrNoRows
	}
	now := time.Now().UTC()
	req.Status = models.CorrectionCancelled
	req.CancelledAt = &now
	return nil
}

func (s *correctionRepoStub) Reject(ctx context.Context, id, reviewerID, comment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok || req.Status != models.CorrectionPending {
		return sql.ErrNoRows
	}
	now := time.Now().UTC()
	req.Status = models.CorrectionRejected
	req.RejectedBy = &reviewerID
	req.RejectedAt = &now
	req.DecisionComment = &comment
	return nil
}

func (s *correctionRepoStub) ApproveAndApplyEffectiveValues(ctx context.Context, params repository.ApproveParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasRecord {
		return repository.ErrAttendanceMissing
	}
	if !s.attendance.Equal(params.Original) {
		return repository.ErrSnapshotChanged
	}
	req, ok := s.requests[params.RequestID]
	if !ok || req.Status != models.CorrectionPending {
		return repository.ErrAlreadyDecided
	}
	now := time.Now().UTC()
	req.Status = models.CorrectionApproved
	req.ApprovedBy = &params.ReviewerID
	req.ApprovedAt = &now
	req.DecisionComment = &params.Comment
	s.effective[params.AttendanceID] = models.EffectiveValue{
		AttendanceID:          params.AttendanceID,
		SourceRequestID:       params.RequestID,
		ClockInTimeCorrected:  params.Proposed.ClockInTime,
		ClockOutTimeCorrected: params.Proposed.ClockOutTime,
		AppliedBy:             params.ReviewerID,
		AppliedAt:             now,
	}
	return nil
}

type attendanceReaderStub struct {
	record *models.Attendance
	breaks []models.BreakRecord
}

func (s *attendanceReaderStub) FindByUserAndDate(ctx context.Context, userID string, workDate time.Time) (*models.Attendance, error) {
	if s.record == nil {
		return nil, sql.ErrNoRows
	}
	copied := *s.record
	return &copied, nil
}

func (s *attendanceReaderStub) ListByAttendance(ctx context.Context, attendanceID string) ([]models.BreakRecord, error) {
	return s.breaks, nil
}

type auditRecorderStub struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (s *auditRecorderStub) Record(ctx context.Context, entry *models.AuditLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func (s *auditRecorderStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func fixtureService() (*CorrectionService, *correctionRepoStub, *auditRecorderStub) {
	clockIn := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	attendance := &models.Attendance{
		ID:          "att-1",
		UserID:      "emp-1",
		WorkDate:    time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		ClockInTime: &clockIn,
	}
	reader := &attendanceReaderStub{record: attendance}
	repo := newCorrectionRepoStub()
	repo.attendance = models.SnapshotFromAttendance(attendance, nil)
	audit := &auditRecorderStub{}
	svc := NewCorrectionService(repo, reader, reader, audit, 500, 20, 100)
	return svc, repo, audit
}

func submitRequest(t *testing.T, svc *CorrectionService) *models.CorrectionRequest {
	t.Helper()
	clockOut := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	req, err := svc.Create(context.Background(), dto.CreateCorrectionRequest{
		Date:         "2026-03-02",
		ClockOutTime: &clockOut,
		Reason:       "forgot to clock out",
	}, "emp-1")
	require.NoError(t, err)
	return req
}

func TestCorrectionServiceCreate(t *testing.T) {
	svc, _, audit := fixtureService()
	req := submitRequest(t, svc)

	require.Equal(t, models.CorrectionPending, req.Status)
	require.Equal(t, "att-1", req.AttendanceID)

	original, err := req.ParseOriginalSnapshot()
	require.NoError(t, err)
	require.NotNil(t, original.ClockInTime)
	require.Nil(t, original.ClockOutTime)

	proposed, err := req.ParseProposedValues()
	require.NoError(t, err)
	require.NotNil(t, proposed.ClockOutTime)
	require.Equal(t, 1, audit.count())
}

func TestCorrectionServiceCreateRequiresChange(t *testing.T) {
	svc, _, _ := fixtureService()
	_, err := svc.Create(context.Background(), dto.CreateCorrectionRequest{
		Date:   "2026-03-02",
		Reason: "nothing changed",
	}, "emp-1")
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	require.Equal(t, "At least one field must be changed", appErr.Message)
}

func TestCorrectionServiceCreateValidation(t *testing.T) {
	svc, _, _ := fixtureService()
	clockIn := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	badOut := clockIn.Add(-time.Hour)

	_, err := svc.Create(context.Background(), dto.CreateCorrectionRequest{
		Date:         "2026-03-02",
		ClockOutTime: &badOut,
		Reason:       "bad times",
	}, "emp-1")
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	longReason := make([]byte, 501)
	for i := range longReason {
		longReason[i] = 'a'
	}
	_, err = svc.Create(context.Background(), dto.CreateCorrectionRequest{
		Date:   "2026-03-02",
		Reason: string(longReason),
	}, "emp-1")
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCorrectionServiceUpdateOnlyPending(t *testing.T) {
	svc, repo, _ := fixtureService()
	req := submitRequest(t, svc)

	repo.requests[req.ID].Status = models.CorrectionApproved
	newOut := time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC)
	_, err := svc.Update(context.Background(), req.ID, dto.UpdateCorrectionRequest{
		ClockOutTime: &newOut,
		Reason:       "later than I said",
	}, "emp-1")
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	require.Equal(t, "Only pending requests can be updated", appErr.Message)
}

func TestCorrectionServiceCancelOnlyPending(t *testing.T) {
	svc, repo, _ := fixtureService()
	req := submitRequest(t, svc)

	require.NoError(t, svc.Cancel(context.Background(), req.ID, "emp-1"))
	require.Equal(t, models.CorrectionCancelled, repo.requests[req.ID].Status)

	err := svc.Cancel(context.Background(), req.ID, "emp-1")
	require.Equal(t, "Only pending requests can be cancelled", appErrors.FromError(err).Message)
}

func TestCorrectionServiceSelfApprovalForbidden(t *testing.T) {
	svc, _, _ := fixtureService()
	req := submitRequest(t, svc)

	actor := &models.JWTClaims{UserID: "emp-1", Role: models.RoleAdmin}
	_, err := svc.Approve(context.Background(), req.ID, "looks fine", actor)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Reject(context.Background(), req.ID, "no", actor)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCorrectionServiceApproveSnapshotConflict(t *testing.T) {
	svc, repo, _ := fixtureService()
	req := submitRequest(t, svc)

	// attendance was edited after submission
	moved := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	repo.mu.Lock()
	repo.attendance.ClockInTime = &moved
	repo.mu.Unlock()

	actor := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	_, err := svc.Approve(context.Background(), req.ID, "ok", actor)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	require.Equal(t, "Attendance record changed after request submission. Please resubmit.", appErr.Message)
	require.Equal(t, models.CorrectionPending, repo.requests[req.ID].Status)
}

func TestCorrectionServiceApproveSingleWinner(t *testing.T) {
	svc, repo, _ := fixtureService()
	req := submitRequest(t, svc)

	const reviewers = 24
	var wg sync.WaitGroup
	errs := make([]error, reviewers)
	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := strconv.Itoa(n)
			actor := &models.JWTClaims{UserID: "admin-" + id, Role: models.RoleAdmin}
			_, errs[n] = svc.Approve(context.Background(), req.ID, "decision "+id, actor)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			require.Equal(t, "Request not found or already processed", appErrors.FromError(err).Message)
		}
	}
	require.Equal(t, 1, winners)

	stored := repo.requests[req.ID]
	require.Equal(t, models.CorrectionApproved, stored.Status)
	require.NotNil(t, stored.ApprovedBy)
	// the stored comment belongs to the winning reviewer
	require.Equal(t, "decision "+(*stored.ApprovedBy)[len("admin-"):], *stored.DecisionComment)

	ev, ok := repo.effective["att-1"]
	require.True(t, ok)
	require.Equal(t, req.ID, ev.SourceRequestID)
	require.Equal(t, *stored.ApprovedBy, ev.AppliedBy)
}

func TestCorrectionServiceApproveReplacesOverlay(t *testing.T) {
	svc, repo, _ := fixtureService()
	first := submitRequest(t, svc)

	actor := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	_, err := svc.Approve(context.Background(), first.ID, "first pass", actor)
	require.NoError(t, err)
	require.Equal(t, first.ID, repo.effective["att-1"].SourceRequestID)

	// the raw attendance row is untouched by approval, so a second request
	// captures the same original snapshot and can be approved as well
	laterOut := time.Date(2026, 3, 2, 18, 30, 0, 0, time.UTC)
	second, err := svc.Create(context.Background(), dto.CreateCorrectionRequest{
		Date:         "2026-03-02",
		ClockOutTime: &laterOut,
		Reason:       "left later than first request said",
	}, "emp-1")
	require.NoError(t, err)

	other := &models.JWTClaims{UserID: "admin-2", Role: models.RoleAdmin}
	_, err = svc.Approve(context.Background(), second.ID, "corrected again", other)
	require.NoError(t, err)

	require.Len(t, repo.effective, 1)
	ev := repo.effective["att-1"]
	require.Equal(t, second.ID, ev.SourceRequestID)
	require.Equal(t, "admin-2", ev.AppliedBy)
	require.True(t, ev.ClockOutTimeCorrected.Equal(laterOut))
}

func TestCorrectionServiceUpdateKeepsOriginalSnapshot(t *testing.T) {
	svc, repo, _ := fixtureService()
	req := submitRequest(t, svc)
	originalSnapshot := append([]byte(nil), req.OriginalSnapshot...)

	newOut := time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC)
	updated, err := svc.Update(context.Background(), req.ID, dto.UpdateCorrectionRequest{
		ClockOutTime: &newOut,
		Reason:       "left later than I first said",
	}, "emp-1")
	require.NoError(t, err)
	require.Equal(t, "left later than I first said", updated.Reason)

	proposed, err := updated.ParseProposedValues()
	require.NoError(t, err)
	require.True(t, proposed.ClockOutTime.Equal(newOut))

	stored := repo.requests[req.ID]
	require.Equal(t, originalSnapshot, stored.OriginalSnapshot)
	require.Equal(t, originalSnapshot, updated.OriginalSnapshot)
	require.Equal(t, "left later than I first said", stored.Reason)
}

func TestCorrectionServiceRejectAfterDecisionConflicts(t *testing.T) {
	svc, _, _ := fixtureService()
	req := submitRequest(t, svc)

	approver := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	_, err := svc.Approve(context.Background(), req.ID, "approved", approver)
	require.NoError(t, err)

	rejecter := &models.JWTClaims{UserID: "admin-2", Role: models.RoleAdmin}
	_, err = svc.Reject(context.Background(), req.ID, "too late", rejecter)
	require.Equal(t, "Request not found or already processed", appErrors.FromError(err).Message)
}

func TestCorrectionServiceCommentRequired(t *testing.T) {
	svc, _, _ := fixtureService()
	req := submitRequest(t, svc)

	actor := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	_, err := svc.Approve(context.Background(), req.ID, "", actor)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCorrectionServiceGetScoping(t *testing.T) {
	svc, _, _ := fixtureService()
	req := submitRequest(t, svc)

	owner := &models.JWTClaims{UserID: "emp-1", Role: models.RoleEmployee}
	found, err := svc.Get(context.Background(), req.ID, owner)
	require.NoError(t, err)
	require.Equal(t, req.ID, found.ID)

	other := &models.JWTClaims{UserID: "emp-2", Role: models.RoleEmployee}
	_, err = svc.Get(context.Background(), req.ID, other)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	found, err = svc.Get(context.Background(), req.ID, admin)
	require.NoError(t, err)
	require.Equal(t, req.ID, found.ID)
}

func TestCorrectionServiceMissingAttendance(t *testing.T) {
	svc, _, _ := fixtureService()
	reader := &attendanceReaderStub{}
	svc.attendance = reader

	clockOut := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), dto.CreateCorrectionRequest{
		Date:         "2026-03-02",
		ClockOutTime: &clockOut,
		Reason:       "missing day",
	}, "emp-1")
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	require.Equal(t, "Attendance record not found", appErr.Message)
}
