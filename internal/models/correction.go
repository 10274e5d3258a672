package models

import (
	"encoding/json"
	"time"
)

// CorrectionStatus is the lifecycle state of a correction request.
type CorrectionStatus string

const (
	CorrectionPending   CorrectionStatus = "pending"
	CorrectionApproved  CorrectionStatus = "approved"
	CorrectionRejected  CorrectionStatus = "rejected"
	CorrectionCancelled CorrectionStatus = "cancelled"
)

// CorrectionBreakItem is one break interval inside a snapshot.
type CorrectionBreakItem struct {
	BreakStartTime time.Time  `db:"break_start_time" json:"break_start_time"`
	BreakEndTime   *time.Time `db:"break_end_time" json:"break_end_time"`
}

// CorrectionSnapshot captures the attendance state a request was based on,
// or the state it proposes.
type CorrectionSnapshot struct {
	ClockInTime  *time.Time            `json:"clock_in_time"`
	ClockOutTime *time.Time            `json:"clock_out_time"`
	Breaks       []CorrectionBreakItem `json:"breaks"`
}

// SnapshotFromAttendance builds a snapshot from a record and its breaks.
// Breaks must already be ordered by start time ascending.
func SnapshotFromAttendance(a *Attendance, breaks []BreakRecord) CorrectionSnapshot {
	items := make([]CorrectionBreakItem, 0, len(breaks))
	for i := range breaks {
		items = append(items, CorrectionBreakItem{
			BreakStartTime: breaks[i].BreakStartTime,
			BreakEndTime:   breaks[i].BreakEndTime,
		})
	}
	return CorrectionSnapshot{
		ClockInTime:  a.ClockInTime,
		ClockOutTime: a.ClockOutTime,
		Breaks:       items,
	}
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// Equal performs a structural, order-sensitive comparison of two snapshots.
func (s CorrectionSnapshot) Equal(other CorrectionSnapshot) bool {
	if !timePtrEqual(s.ClockInTime, other.ClockInTime) {
		return false
	}
	if !timePtrEqual(s.ClockOutTime, other.ClockOutTime) {
		return false
	}
	if len(s.Breaks) != len(other.Breaks) {
		return false
	}
	for i := range s.Breaks {
		if !s.Breaks[i].BreakStartTime.Equal(other.Breaks[i].BreakStartTime) {
			return false
		}
		if !timePtrEqual(s.Breaks[i].BreakEndTime, other.Breaks[i].BreakEndTime) {
			return false
		}
	}
	return true
}

// CorrectionRequest is a row in attendance_correction_requests. Snapshots are
// stored as JSON so the original state survives later attendance edits.
type CorrectionRequest struct {
	ID               string           `db:"id"`
	AttendanceID     string           `db:"attendance_id"`
	UserID           string           `db:"user_id"`
	OriginalSnapshot []byte           `db:"original_snapshot"`
	ProposedValues   []byte           `db:"proposed_values"`
	Reason           string           `db:"reason"`
	Status           CorrectionStatus `db:"status"`
	DecisionComment  *string          `db:"decision_comment"`
	ApprovedBy       *string          `db:"approved_by"`
	ApprovedAt       *time.Time       `db:"approved_at"`
	RejectedBy       *string          `db:"rejected_by"`
	RejectedAt       *time.Time       `db:"rejected_at"`
	CancelledAt      *time.Time       `db:"cancelled_at"`
	CreatedAt        time.Time        `db:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at"`
}

// ParseOriginalSnapshot decodes the stored original snapshot.
func (r *CorrectionRequest) ParseOriginalSnapshot() (CorrectionSnapshot, error) {
	var s CorrectionSnapshot
	err := json.Unmarshal(r.OriginalSnapshot, &s)
	return s, err
}

// ParseProposedValues decodes the stored proposed snapshot.
func (r *CorrectionRequest) ParseProposedValues() (CorrectionSnapshot, error) {
	var s CorrectionSnapshot
	err := json.Unmarshal(r.ProposedValues, &s)
	return s, err
}

// EffectiveValue is the approved overlay for one attendance record. At most
// one row exists per attendance; later approvals replace earlier ones.
type EffectiveValue struct {
	AttendanceID          string     `db:"attendance_id"`
	SourceRequestID       string     `db:"source_request_id"`
	ClockInTimeCorrected  *time.Time `db:"clock_in_time_corrected"`
	ClockOutTimeCorrected *time.Time `db:"clock_out_time_corrected"`
	BreakRecordsCorrected []byte     `db:"break_records_corrected"`
	AppliedBy             string     `db:"applied_by"`
	AppliedAt             time.Time  `db:"applied_at"`
	UpdatedAt             time.Time  `db:"updated_at"`
}

// ParseBreaks decodes the corrected break list.
func (e *EffectiveValue) ParseBreaks() ([]CorrectionBreakItem, error) {
	var items []CorrectionBreakItem
	if len(e.BreakRecordsCorrected) == 0 {
		return nil, nil
	}
	err := json.Unmarshal(e.BreakRecordsCorrected, &items)
	return items, err
}

// CorrectionFilter narrows admin list queries.
type CorrectionFilter struct {
	Status  *CorrectionStatus
	UserID  *string
	Page    int
	PerPage int
}
