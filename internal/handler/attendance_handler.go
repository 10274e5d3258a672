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

type attendanceService interface {
	ClockIn(ctx context.Context, userID string, req dto.ClockInRequest) (*models.Attendance, error)
	ClockOut(ctx context.Context, userID string) (*models.Attendance, error)
	StartBreak(ctx context.Context, userID string) (*models.BreakRecord, error)
	EndBreak(ctx context.Context, userID string) (*models.BreakRecord, error)
	List(ctx context.Context, userID string, query dto.AttendanceListQuery) ([]dto.AttendanceResponse, error)
	Today(ctx context.Context, userID string) (*dto.AttendanceResponse, error)
}

// AttendanceHandler exposes daily attendance endpoints.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(service attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// ClockIn godoc
// @Summary Clock in for today
// @Tags Attendance
// @Accept json
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /attendance/clock-in [post]
func (h *AttendanceHandler) ClockIn(c *gin.Context) {
	var req dto.ClockInRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid clock-in payload"))
			return
		}
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	record, err := h.service.ClockIn(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, record, nil)
}

// ClockOut godoc
// @Summary Clock out for today
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/clock-out [post]
func (h *AttendanceHandler) ClockOut(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	record, err := h.service.ClockOut(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// StartBreak godoc
// @Summary Start a break
// @Tags Attendance
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /attendance/breaks/start [post]
func (h *AttendanceHandler) StartBreak(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	record, err := h.service.StartBreak(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, record, nil)
}

// EndBreak godoc
// @Summary End the current break
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/breaks/end [post]
func (h *AttendanceHandler) EndBreak(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	record, err := h.service.EndBreak(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// List godoc
// @Summary List own attendance records with corrections applied
// @Tags Attendance
// @Produce json
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	var query dto.AttendanceListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid list query"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	records, err := h.service.List(c.Request.Context(), claims.UserID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Today godoc
// @Summary Get today's attendance record
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/today [get]
func (h *AttendanceHandler) Today(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	record, err := h.service.Today(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}
