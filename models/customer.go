// Package models contains domain entities and business models for the QR code service
package models

import (
	"time"

	"github.com/google/uuid"
)

type Customer struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UUID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_customers_uuid" json:"uuid"`
	FullName string    `gorm:"size:255;not null" json:"full_name"`

	Email        string `gorm:"size:255;not null;uniqueIndex:idx_customers_email" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"` // Never serialize password hash

	// Credits shown on the dashboard; granted at signup
	Credits int `gorm:"not null;default:0" json:"credits"`

	IsActive *bool `gorm:"default:true;index:idx_customers_is_active" json:"is_active"`

	CreatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_customers_created_at" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
	LastLoginAt *time.Time `gorm:"index:idx_customers_last_login_at" json:"last_login_at,omitempty"`

	Sessions  []CustomerSession `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"-"`
	AuditLogs []AuditLog        `gorm:"foreignKey:CustomerID" json:"-"`
	QRCodes   []QRCode          `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Customer) TableName() string {
	return "customers"
}

// CustomerFilter represents filter criteria for customer queries
type CustomerFilter struct {
	ID              *uint
	UUID            *uuid.UUID
	Email           *string
	IsActive        *bool
	CreatedAfter    *time.Time
	CreatedBefore   *time.Time
	LastLoginAfter  *time.Time
	LastLoginBefore *time.Time
}
