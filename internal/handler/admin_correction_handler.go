package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kintai-dev/kintai-api/internal/dto"
	"github.com/kintai-dev/kintai-api/internal/models"
	"github.com/kintai-dev/kintai-api/internal/service"
	appErrors "github.com/kintai-dev/kintai-api/pkg/errors"
	"github.com/kintai-dev/kintai-api/pkg/response"
)

type adminCorrectionService interface {
	AdminList(ctx context.Context, query dto.AdminCorrectionListQuery) ([]models.CorrectionRequest, models.Pagination, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.CorrectionRequest, error)
	Approve(ctx context.Context, id, comment string, actor *models.JWTClaims) (*models.CorrectionRequest, error)
	Reject(ctx context.Context, id, comment string, actor *models.JWTClaims) (*models.CorrectionRequest, error)
}

// AdminCorrectionHandler exposes the reviewer endpoints.
type AdminCorrectionHandler struct {
	service adminCorrectionService
	metrics *service.MetricsService
}

// NewAdminCorrectionHandler constructs the handler. Metrics may be nil.
func NewAdminCorrectionHandler(svc adminCorrectionService, metrics *service.MetricsService) *AdminCorrectionHandler {
	return &AdminCorrectionHandler{service: svc, metrics: metrics}
}

// List godoc
// @Summary List correction requests across all users
// @Tags Admin
// @Produce json
// @Param status query string false "Filter by status"
// @Param user_id query string false "Filter by user"
// @Param page query int false "Page number"
// @Param per_page query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/corrections [get]
func (h *AdminCorrectionHandler) List(c *gin.Context) {
	var query dto.AdminCorrectionListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid list query"))
		return
	}
	rows, pagination, err := h.service.AdminList(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	resp, err := dto.NewCorrectionResponses(rows)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, &pagination)
}

// Get godoc
// @Summary Get any correction request
// @Tags Admin
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /admin/corrections/{id} [get]
func (h *AdminCorrectionHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	resp, err := dto.NewCorrectionResponse(request)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Approve godoc
// @Summary Approve a pending correction request
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.DecisionPayload true "Reviewer comment"
// @Success 200 {object} response.Envelope
// @Router /admin/corrections/{id}/approve [post]
func (h *AdminCorrectionHandler) Approve(c *gin.Context) {
	h.decide(c, h.service.Approve, "approved")
}

// Reject godoc
// @Summary Reject a pending correction request
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.DecisionPayload true "Reviewer comment"
// @Success 200 {object} response.Envelope
// @Router /admin/corrections/{id}/reject [post]
func (h *AdminCorrectionHandler) Reject(c *gin.Context) {
	h.decide(c, h.service.Reject, "rejected")
}

type decisionFunc func(ctx context.Context, id, comment string, actor *models.JWTClaims) (*models.CorrectionRequest, error)

func (h *AdminCorrectionHandler) decide(c *gin.Context, decide decisionFunc, outcome string) {
	var payload dto.DecisionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "comment is required"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := decide(c.Request.Context(), c.Param("id"), payload.Comment, claims)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrConflict.Code {
			h.metrics.RecordApprovalConflict()
		}
		response.Error(c, err)
		return
	}
	h.metrics.RecordDecision(outcome)
	resp, err := dto.NewCorrectionResponse(request)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}
