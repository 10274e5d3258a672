package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kintai-dev/kintai-api/internal/dto"
	"github.com/kintai-dev/kintai-api/internal/models"
	appErrors "github.com/kintai-dev/kintai-api/pkg/errors"
	"github.com/kintai-dev/kintai-api/pkg/response"
)

type correctionService interface {
	Create(ctx context.Context, req dto.CreateCorrectionRequest, userID string) (*models.CorrectionRequest, error)
	ListMine(ctx context.Context, userID string) ([]models.CorrectionRequest, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.CorrectionRequest, error)
	Update(ctx context.Context, id string, req dto.UpdateCorrectionRequest, userID string) (*models.CorrectionRequest, error)
	Cancel(ctx context.Context, id, userID string) error
}

// CorrectionHandler exposes the employee-facing correction request endpoints.
type CorrectionHandler struct {
	service correctionService
}

// NewCorrectionHandler constructs the handler.
func NewCorrectionHandler(service correctionService) *CorrectionHandler {
	return &CorrectionHandler{service: service}
}

// Create godoc
// @Summary Submit a correction request
// @Tags Corrections
// @Accept json
// @Produce json
// @Param payload body dto.CreateCorrectionRequest true "Correction payload"
// @Success 201 {object} response.Envelope
// @Router /corrections [post]
func (h *CorrectionHandler) Create(c *gin.Context) {
	var req dto.CreateCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid correction payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	resp, err := dto.NewCorrectionResponse(request)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, resp, nil)
}

// List godoc
// @Summary List own correction requests
// @Tags Corrections
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /corrections [get]
func (h *CorrectionHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	rows, err := h.service.ListMine(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	resp, err := dto.NewCorrectionResponses(rows)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Get godoc
// @Summary Get one correction request
// @Tags Corrections
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /corrections/{id} [get]
func (h *CorrectionHandler) Get(c *gin.Context) {
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

// Update godoc
// @Summary Update a pending correction request
// @Tags Corrections
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.UpdateCorrectionRequest true "Updated payload"
// @Success 200 {object} response.Envelope
// @Router /corrections/{id} [put]
func (h *CorrectionHandler) Update(c *gin.Context) {
	var req dto.UpdateCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid correction payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims.UserID)
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

// Cancel godoc
// @Summary Cancel a pending correction request
// @Tags Corrections
// @Param id path string true "Request ID"
// @Success 204 "No Content"
// @Router /corrections/{id} [delete]
func (h *CorrectionHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Cancel(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
