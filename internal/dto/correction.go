package dto

import (
	"time"

	"github.com/kintai-dev/kintai-api/internal/models"
)

// BreakItemPayload is one proposed break interval.
type BreakItemPayload struct {
	BreakStartTime time.Time  `json:"break_start_time" binding:"required"`
	BreakEndTime   *time.Time `json:"break_end_time"`
}

// CreateCorrectionRequest is the payload for POST /api/v1/corrections.
// Omitted fields fall back to the attendance record's current values;
// a Breaks pointer distinguishes "keep breaks" (nil) from "clear breaks"
// (empty slice).
type CreateCorrectionRequest struct {
	Date         string              `json:"date" binding:"required,datetime=2006-01-02"`
	ClockInTime  *time.Time          `json:"clock_in_time"`
	ClockOutTime *time.Time          `json:"clock_out_time"`
	Breaks       *[]BreakItemPayload `json:"breaks"`
	Reason       string              `json:"reason" binding:"required"`
}

// UpdateCorrectionRequest is the payload for PUT /api/v1/corrections/:id.
// Only pending requests owned by the caller accept updates.
type UpdateCorrectionRequest struct {
	ClockInTime  *time.Time          `json:"clock_in_time"`
	ClockOutTime *time.Time          `json:"clock_out_time"`
	Breaks       *[]BreakItemPayload `json:"breaks"`
	Reason       string              `json:"reason" binding:"required"`
}

// DecisionPayload carries the reviewer comment for approve/reject.
type DecisionPayload struct {
	Comment string `json:"comment" binding:"required"`
}

// AdminCorrectionListQuery filters GET /api/v1/admin/corrections.
type AdminCorrectionListQuery struct {
	Status  *string `form:"status" binding:"omitempty,oneof=pending approved rejected cancelled"`
	UserID  *string `form:"user_id" binding:"omitempty,uuid"`
	Page    int     `form:"page"`
	PerPage int     `form:"per_page"`
}

// CorrectionResponse is the API shape of a correction request with the
// stored snapshots decoded.
type CorrectionResponse struct {
	ID               string                    `json:"id"`
	AttendanceID     string                    `json:"attendance_id"`
	UserID           string                    `json:"user_id"`
	OriginalSnapshot models.CorrectionSnapshot `json:"original_snapshot"`
	ProposedValues   models.CorrectionSnapshot `json:"proposed_values"`
	Reason           string                    `json:"reason"`
	Status           models.CorrectionStatus   `json:"status"`
	DecisionComment  *string                   `json:"decision_comment,omitempty"`
	ApprovedBy       *string                   `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time                `json:"approved_at,omitempty"`
	RejectedBy       *string                   `json:"rejected_by,omitempty"`
	RejectedAt       *time.Time                `json:"rejected_at,omitempty"`
	CancelledAt      *time.Time                `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time                 `json:"created_at"`
	UpdatedAt        time.Time                 `json:"updated_at"`
}

// NewCorrectionResponse maps a stored row to its API shape.
func NewCorrectionResponse(r *models.CorrectionRequest) (CorrectionResponse, error) {
	original, err := r.ParseOriginalSnapshot()
	if err != nil {
		return CorrectionResponse{}, err
	}
	proposed, err := r.ParseProposedValues()
	if err != nil {
		return CorrectionResponse{}, err
	}
	return CorrectionResponse{
		ID:               r.ID,
		AttendanceID:     r.AttendanceID,
		UserID:           r.UserID,
		OriginalSnapshot: original,
		ProposedValues:   proposed,
		Reason:           r.Reason,
		Status:           r.Status,
		DecisionComment:  r.DecisionComment,
		ApprovedBy:       r.ApprovedBy,
		ApprovedAt:       r.ApprovedAt,
		RejectedBy:       r.RejectedBy,
		RejectedAt:       r.RejectedAt,
		CancelledAt:      r.CancelledAt,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}, nil
}

// NewCorrectionResponses maps a list of rows, stopping at the first decode error.
func NewCorrectionResponses(rows []models.CorrectionRequest) ([]CorrectionResponse, error) {
	out := make([]CorrectionResponse, 0, len(rows))
	for i := range rows {
		resp, err := NewCorrectionResponse(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}
