package models

import "time"

// QRScan is a single scan event, written only by the redirect path.
// The client address is stored as a salted hash.
type QRScan struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	QRCodeID  uint      `gorm:"not null;index:idx_qr_scans_qr_code_created,priority:1" json:"-"`
	UserAgent *string   `gorm:"type:text" json:"user_agent,omitempty"`
	Referer   *string   `gorm:"type:text" json:"referer,omitempty"`
	IPHash    *string   `gorm:"size:64" json:"ip_hash,omitempty"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_qr_scans_qr_code_created,priority:2,sort:desc" json:"occurred_at"`
}

// TableName returns the table name for QRScan
func (QRScan) TableName() string { return "qr_scans" }

// QRScanFilter provides filter fields for repository queries
type QRScanFilter struct {
	ID            *uint
	QRCodeID      *uint
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// AllModels lists every table the service migrates.
func AllModels() []any {
	return []any{
		&Customer{},
		&CustomerSession{},
		&AuditLog{},
		&QRCode{},
		&QRScan{},
	}
}
