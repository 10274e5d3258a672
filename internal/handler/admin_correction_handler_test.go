package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/kintai-dev/kintai-api/internal/dto"
	"github.com/kintai-dev/kintai-api/internal/models"
	appErrors "github.com/kintai-dev/kintai-api/pkg/errors"
)

type fakeAdminCorrectionSrv struct {
	listRows   []models.CorrectionRequest
	pagination models.Pagination
	lastQuery  dto.AdminCorrectionListQuery
	got        *models.CorrectionRequest
	decision   *models.CorrectionRequest
	decideErr  error
}

func (f *fakeAdminCorrectionSrv) AdminList(_ context.Context, query dto.AdminCorrectionListQuery) ([]models.CorrectionRequest, models.Pagination, error) {
	f.lastQuery = query
	return f.listRows, f.pagination, nil
}

func (f *fakeAdminCorrectionSrv) Get(context.Context, string, *models.JWTClaims) (*models.CorrectionRequest, error) {
	return f.got, nil
}

func (f *fakeAdminCorrectionSrv) Approve(context.Context, string, string, *models.JWTClaims) (*models.CorrectionRequest, error) {
	return f.decision, f.decideErr
}

func (f *fakeAdminCorrectionSrv) Reject(context.Context, string, string, *models.JWTClaims) (*models.CorrectionRequest, error) {
	return f.decision, f.decideErr
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func TestAdminCorrectionHandlerListFilters(t *testing.T) {
	srv := &fakeAdminCorrectionSrv{
		listRows:   []models.CorrectionRequest{*pendingRequest("req-1", "emp-1")},
		pagination: models.Pagination{Page: 1, PageSize: 20, TotalCount: 1},
	}
	h := NewAdminCorrectionHandler(srv, nil)

	rec := httptest.NewRecorder()
	c := authedContext(t, rec, http.MethodGet, "/admin/corrections?status=pending&page=1&per_page=20", "", adminClaims())

	h.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, srv.lastQuery.Status)
	assert.Equal(t, "pending", *srv.lastQuery.Status)

	var envelope struct {
		Data       []dto.CorrectionResponse `json:"data"`
		Pagination *models.Pagination       `json:"pagination"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data, 1)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}

func TestAdminCorrectionHandlerListRejectsBadStatus(t *testing.T) {
	h := NewAdminCorrectionHandler(&fakeAdminCorrectionSrv{}, nil)

	rec := httptest.NewRecorder()
	c := authedContext(t, rec, http.MethodGet, "/admin/corrections?status=bogus", "", adminClaims())

	h.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminCorrectionHandlerApprove(t *testing.T) {
	decided := pendingRequest("req-1", "emp-1")
	decided.Status = models.CorrectionApproved
	h := NewAdminCorrectionHandler(&fakeAdminCorrectionSrv{decision: decided}, nil)

	rec := httptest.NewRecorder()
	c := authedContext(t, rec, http.MethodPost, "/admin/corrections/req-1/approve", `{"comment":"confirmed"}`, adminClaims())
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	h.Approve(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data dto.CorrectionResponse `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, models.CorrectionApproved, envelope.Data.Status)
}

func TestAdminCorrectionHandlerApproveConflict(t *testing.T) {
	h := NewAdminCorrectionHandler(&fakeAdminCorrectionSrv{
		decideErr: appErrors.Clone(appErrors.ErrConflict, "Request not found or already processed"),
	}, nil)

	rec := httptest.NewRecorder()
	c := authedContext(t, rec, http.MethodPost, "/admin/corrections/req-1/approve", `{"comment":"late"}`, adminClaims())
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	h.Approve(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminCorrectionHandlerDecisionRequiresComment(t *testing.T) {
	h := NewAdminCorrectionHandler(&fakeAdminCorrectionSrv{}, nil)

	rec := httptest.NewRecorder()
	c := authedContext(t, rec, http.MethodPost, "/admin/corrections/req-1/reject", `{}`, adminClaims())
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	h.Reject(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
