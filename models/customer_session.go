package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/torresguilherme/magic-qr-flows/utils"
)

type CustomerSession struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CorrelationID  uuid.UUID `gorm:"type:uuid;not null;index:idx_sessions_correlation_id" json:"correlation_id"`
	CustomerID     uint      `gorm:"not null;index:idx_sessions_customer_id" json:"customer_id"`
	SessionToken   string    `gorm:"size:1024;not null;uniqueIndex:idx_sessions_session_token" json:"-"`
	RefreshToken   *string   `gorm:"size:1024;uniqueIndex:idx_sessions_refresh_token" json:"-"`
	IPAddress      *string   `gorm:"size:64;index:idx_sessions_ip_address" json:"ip_address,omitempty"`
	UserAgent      *string   `gorm:"type:text" json:"user_agent,omitempty"`
	IsActive       *bool     `gorm:"default:true;index:idx_sessions_is_active" json:"is_active"`
	CreatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	LastAccessedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_sessions_last_accessed" json:"last_accessed_at"`
	ExpiresAt      time.Time `gorm:"not null;index:idx_sessions_expires_at" json:"expires_at"`
}

func (CustomerSession) TableName() string {
	return "customer_sessions"
}

// CustomerSessionFilter represents filter criteria for session queries
type CustomerSessionFilter struct {
	ID            *uint
	CorrelationID *uuid.UUID
	CustomerID    *uint
	IsActive      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	ExpiresAfter  *time.Time
	ExpiresBefore *time.Time
}

func (s *CustomerSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

func (s *CustomerSession) IsValid() bool {
	return utils.IsTrue(s.IsActive) && !s.IsExpired()
}
