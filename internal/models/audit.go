package models

import "time"

// Audit action constants. Stored verbatim in audit_logs.action.
const (
	AuditActionLogin             = "auth.login"
	AuditActionLogout            = "auth.logout"
	AuditActionTokenRefresh      = "auth.token_refresh"
	AuditActionPasswordChange    = "auth.password_change"
	AuditActionClockIn           = "attendance.clock_in"
	AuditActionClockOut          = "attendance.clock_out"
	AuditActionBreakStart        = "attendance.break_start"
	AuditActionBreakEnd          = "attendance.break_end"
	AuditActionCorrectionCreate  = "correction.create"
	AuditActionCorrectionUpdate  = "correction.update"
	AuditActionCorrectionCancel  = "correction.cancel"
	AuditActionCorrectionApprove = "correction.approve"
	AuditActionCorrectionReject  = "correction.reject"
)

// AuditLog is an append-only activity record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	EntityType string    `db:"entity_type" json:"entity_type"`
	EntityID   *string   `db:"entity_id" json:"entity_id,omitempty"`
	Detail     []byte    `db:"detail" json:"detail,omitempty"`
	IPAddress  *string   `db:"ip_address" json:"ip_address,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
