package models

import (
	"time"
)

type AuditLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CustomerID   *uint     `gorm:"index:idx_audit_customer_id" json:"customer_id,omitempty"`
	Action       string    `gorm:"size:64;not null;index:idx_audit_action" json:"action"`
	Description  *string   `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string   `gorm:"size:64;index:idx_audit_ip_address" json:"ip_address,omitempty"`
	UserAgent    *string   `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string   `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Success      *bool     `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string   `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionSignupCompleted    = "signup_completed"
	AuditActionSignupFailed       = "signup_failed"
	AuditActionLoginSuccess       = "login_success"
	AuditActionLoginFailed        = "login_failed"
	AuditActionLogout             = "logout"
	AuditActionSessionExpired     = "session_expired"
	AuditActionSessionRefreshed   = "session_refreshed"
	AuditActionQRCodeCreated      = "qr_code_created"
	AuditActionQRCodeUpdated      = "qr_code_updated"
	AuditActionQRCodeDeleted      = "qr_code_deleted"
	AuditActionQRCodeActivated    = "qr_code_activated"
	AuditActionQRCodeDeactivated  = "qr_code_deactivated"
	AuditActionQRCodeUpdateFailed = "qr_code_update_failed"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	CustomerID    *uint
	Action        *string
	Success       *bool
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}

func (a *AuditLog) IsSecurityEvent() bool {
	switch a.Action {
	case AuditActionLoginSuccess, AuditActionLoginFailed, AuditActionLogout, AuditActionSessionExpired, AuditActionSignupFailed:
		return true
	}
	return false
}
