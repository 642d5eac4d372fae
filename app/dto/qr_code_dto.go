package dto

// CreateQRCodeRequest creates a managed code
type CreateQRCodeRequest struct {
	Name           string `json:"name" example:"Restaurant menu"`
	DestinationURL string `json:"destination_url" example:"https://example.com/menu"`
	IsDynamic      bool   `json:"is_dynamic" example:"true"`
}

// UpdateQRDestinationRequest changes where a dynamic code points
type UpdateQRDestinationRequest struct {
	DestinationURL string `json:"destination_url" example:"https://example.com/new-menu"`
}

// SetQRActiveRequest enables or disables redirects for a code
type SetQRActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required" example:"false"`
}

// QRCodeDTO is the API view of a code; ID is the public identifier
type QRCodeDTO struct {
	ID             string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name           string `json:"name"`
	DestinationURL string `json:"destination_url"`
	IsDynamic      bool   `json:"is_dynamic"`
	IsActive       bool   `json:"is_active"`
	ScanCount      int64  `json:"scan_count"`
	Payload        string `json:"payload"`
	RedirectURL    string `json:"redirect_url,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// QRCodeListResponse wraps an owner's codes, newest first
type QRCodeListResponse struct {
	Items []QRCodeDTO `json:"items"`
	Total int         `json:"total"`
}

// QRScanDTO is a single scan event
type QRScanDTO struct {
	OccurredAt string  `json:"occurred_at"`
	UserAgent  *string `json:"user_agent,omitempty"`
	Referer    *string `json:"referer,omitempty"`
	IPHash     *string `json:"ip_hash,omitempty"`
}

// QRScanListResponse lists recent scans of a code
type QRScanListResponse struct {
	QRCodeID  string      `json:"qr_code_id"`
	ScanCount int64       `json:"scan_count"`
	Items     []QRScanDTO `json:"items"`
}

// QRImageResponse carries a rendered code as a data URI
type QRImageResponse struct {
	DataURI  string `json:"data_uri"`
	Filename string `json:"filename"`
	Payload  string `json:"payload"`
}

// ExportFile is a generated download
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}
