package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/torresguilherme/magic-qr-flows/utils"
)

// QRCode is a managed code owned by a customer.
// UUID is the public identifier used in redirect URLs and API paths.
// Only dynamic codes encode the redirect URL; static codes encode DestinationURL directly.
type QRCode struct {
	ID             uint      `gorm:"primaryKey" json:"-"`
	UUID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_qr_codes_uuid" json:"id"`
	CustomerID     uint      `gorm:"not null;index:idx_qr_codes_customer_created,priority:1" json:"-"`
	Name           string    `gorm:"size:100;not null" json:"name"`
	DestinationURL string    `gorm:"size:2048;not null" json:"destination_url"`
	IsDynamic      bool      `gorm:"not null;default:false" json:"is_dynamic"`
	IsActive       *bool     `gorm:"not null;default:true" json:"is_active"`
	ScanCount      int64     `gorm:"not null;default:0;check:chk_qr_codes_scan_count,scan_count >= 0" json:"scan_count"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_qr_codes_customer_created,priority:2,sort:desc" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	Scans []QRScan `gorm:"foreignKey:QRCodeID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for QRCode
func (QRCode) TableName() string { return "qr_codes" }

// QRCodeFilter provides filter fields for repository queries
type QRCodeFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	CustomerID    *uint
	IsDynamic     *bool
	IsActive      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// QRLookup is the projection the redirect path reads.
type QRLookup struct {
	ID             uint   `json:"id"`
	DestinationURL string `json:"destination_url"`
	IsActive       bool   `json:"is_active"`
}

// Redirectable reports whether a scan of this code may be forwarded.
func (q *QRCode) Redirectable() bool {
	return utils.IsTrue(q.IsActive)
}

// RedirectURL is the public URL that dynamic codes encode.
func (q *QRCode) RedirectURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + utils.RedirectPathPrefix + q.UUID.String()
}

// Payload is the text encoded in the printed image.
func (q *QRCode) Payload(baseURL string) string {
	if q.IsDynamic {
		return q.RedirectURL(baseURL)
	}
	return q.DestinationURL
}

// ImageFilename is the download name of the rendered PNG.
func (q *QRCode) ImageFilename() string {
	return utils.DashWhitespace(q.Name) + "-qrcode.png"
}

// QRCodeStats aggregates an owner's codes for the dashboard.
type QRCodeStats struct {
	TotalCodes  int64 `json:"total_qr_codes"`
	ActiveCodes int64 `json:"active_qr_codes"`
	TotalScans  int64 `json:"total_scans"`
}
