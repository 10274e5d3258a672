package dto

import (
	"time"

	"github.com/kintai-dev/kintai-api/internal/models"
)

// ClockInRequest is the optional payload for POST /api/v1/attendance/clock-in.
type ClockInRequest struct {
	Note *string `json:"note"`
}

// AttendanceListQuery filters GET /api/v1/attendance.
type AttendanceListQuery struct {
	From string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// BreakResponse is the API shape of one break interval.
type BreakResponse struct {
	ID              string     `json:"id,omitempty"`
	BreakStartTime  time.Time  `json:"break_start_time"`
	BreakEndTime    *time.Time `json:"break_end_time,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
}

// AttendanceResponse is a daily record with any approved correction overlay
// already applied. Corrected reports whether an overlay replaced the raw
// clock and break values.
type AttendanceResponse struct {
	ID           string                  `json:"id"`
	UserID       string                  `json:"user_id"`
	WorkDate     string                  `json:"work_date"`
	ClockInTime  *time.Time              `json:"clock_in_time,omitempty"`
	ClockOutTime *time.Time              `json:"clock_out_time,omitempty"`
	Status       models.AttendanceStatus `json:"status"`
	Note         *string                 `json:"note,omitempty"`
	Breaks       []BreakResponse         `json:"breaks"`
	WorkMinutes  int                     `json:"work_minutes"`
	Corrected    bool                    `json:"corrected"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// NewAttendanceResponse builds the API shape, preferring the effective
// overlay when one exists for the record.
func NewAttendanceResponse(a *models.Attendance, breaks []models.BreakRecord, ev *models.EffectiveValue) (AttendanceResponse, error) {
	resp := AttendanceResponse{
		ID:           a.ID,
		UserID:       a.UserID,
		WorkDate:     a.WorkDate.Format("2006-01-02"),
		ClockInTime:  a.ClockInTime,
		ClockOutTime: a.ClockOutTime,
		Status:       a.Status,
		Note:         a.Note,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}

	if ev == nil {
		resp.Breaks = make([]BreakResponse, 0, len(breaks))
		for i := range breaks {
			resp.Breaks = append(resp.Breaks, BreakResponse{
				ID:              breaks[i].ID,
				BreakStartTime:  breaks[i].BreakStartTime,
				BreakEndTime:    breaks[i].BreakEndTime,
				DurationMinutes: breaks[i].DurationMinutes(),
			})
		}
		resp.WorkMinutes = a.WorkMinutes(breaks)
		return resp, nil
	}

	resp.Corrected = true
	resp.ClockInTime = ev.ClockInTimeCorrected
	resp.ClockOutTime = ev.ClockOutTimeCorrected

	items, err := ev.ParseBreaks()
	if err != nil {
		return AttendanceResponse{}, err
	}
	resp.Breaks = make([]BreakResponse, 0, len(items))
	corrected := make([]models.BreakRecord, 0, len(items))
	for _, it := range items {
		br := models.BreakRecord{BreakStartTime: it.BreakStartTime, BreakEndTime: it.BreakEndTime}
		resp.Breaks = append(resp.Breaks, BreakResponse{
			BreakStartTime:  it.BreakStartTime,
			BreakEndTime:    it.BreakEndTime,
			DurationMinutes: br.DurationMinutes(),
		})
		corrected = append(corrected, br)
	}

	overlay := models.Attendance{ClockInTime: ev.ClockInTimeCorrected, ClockOutTime: ev.ClockOutTimeCorrected}
	resp.WorkMinutes = overlay.WorkMinutes(corrected)
	return resp, nil
}
