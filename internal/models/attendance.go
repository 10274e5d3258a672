package models

import "time"

// AttendanceStatus classifies a daily attendance record.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceHalfDay AttendanceStatus = "half_day"
)

// Attendance is one user's record for one work date.
type Attendance struct {
	ID           string           `db:"id" json:"id"`
	UserID       string           `db:"user_id" json:"user_id"`
	WorkDate     time.Time        `db:"work_date" json:"work_date"`
	ClockInTime  *time.Time       `db:"clock_in_time" json:"clock_in_time,omitempty"`
	ClockOutTime *time.Time       `db:"clock_out_time" json:"clock_out_time,omitempty"`
	Status       AttendanceStatus `db:"status" json:"status"`
	Note         *string          `db:"note" json:"note,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// BreakRecord is one break interval within an attendance record.
type BreakRecord struct {
	ID             string     `db:"id" json:"id"`
	AttendanceID   string     `db:"attendance_id" json:"attendance_id"`
	BreakStartTime time.Time  `db:"break_start_time" json:"break_start_time"`
	BreakEndTime   *time.Time `db:"break_end_time" json:"break_end_time,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// DurationMinutes returns the break length, or 0 while the break is open.
func (b *BreakRecord) DurationMinutes() int {
	if b.BreakEndTime == nil {
		return 0
	}
	return int(b.BreakEndTime.Sub(b.BreakStartTime).Minutes())
}

// WorkMinutes computes worked minutes net of closed breaks. Open records
// (missing clock-out) yield 0.
func (a *Attendance) WorkMinutes(breaks []BreakRecord) int {
	if a.ClockInTime == nil || a.ClockOutTime == nil {
		return 0
	}
	total := int(a.ClockOutTime.Sub(*a.ClockInTime).Minutes())
	for i := range breaks {
		total -= breaks[i].DurationMinutes()
	}
	if total < 0 {
		total = 0
	}
	return total
}
