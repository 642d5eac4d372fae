package businessflow

import (
	"context"
	"time"

	"github.com/torresguilherme/magic-qr-flows/app/dto"
	"github.com/torresguilherme/magic-qr-flows/models"
	"github.com/torresguilherme/magic-qr-flows/repository"
	"github.com/torresguilherme/magic-qr-flows/utils"
)

// ClientMetadata holds all client-related information for audit logging, session tracking and scans
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	Referer   string `json:"referer,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// SetReferer sets the Referer header value
func (cm *ClientMetadata) SetReferer(referer string) {
	cm.Referer = referer
}

func (cm *ClientMetadata) ip() string {
	if cm == nil || cm.IPAddress == "" {
		return "127.0.0.1"
	}
	return cm.IPAddress
}

func (cm *ClientMetadata) userAgent() string {
	if cm == nil {
		return ""
	}
	return cm.UserAgent
}

// ToAuthCustomerDTO converts a customer model to AuthCustomerDTO for authentication responses
func ToAuthCustomerDTO(customer models.Customer) dto.AuthCustomerDTO {
	out := dto.AuthCustomerDTO{
		ID:        customer.ID,
		UUID:      customer.UUID.String(),
		FullName:  customer.FullName,
		Email:     customer.Email,
		Credits:   customer.Credits,
		IsActive:  customer.IsActive,
		CreatedAt: customer.CreatedAt.Format(time.RFC3339),
	}
	if customer.LastLoginAt != nil {
		out.LastLogin = utils.ToPtr(customer.LastLoginAt.Format(time.RFC3339))
	}
	return out
}

func ToCustomerSessionDTO(session models.CustomerSession) dto.CustomerSessionDTO {
	return dto.CustomerSessionDTO{
		SessionToken: session.SessionToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    int(time.Until(session.ExpiresAt).Seconds()),
		TokenType:    "Bearer",
		CreatedAt:    session.CreatedAt.Format(time.RFC3339),
	}
}

// ToQRCodeDTO maps a record to its API view; baseURL is the public origin serving /r/{id}
func ToQRCodeDTO(qr models.QRCode, baseURL string) dto.QRCodeDTO {
	out := dto.QRCodeDTO{
		ID:             qr.UUID.String(),
		Name:           qr.Name,
		DestinationURL: qr.DestinationURL,
		IsDynamic:      qr.IsDynamic,
		IsActive:       utils.IsTrue(qr.IsActive),
		ScanCount:      qr.ScanCount,
		Payload:        qr.Payload(baseURL),
		CreatedAt:      qr.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      qr.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if qr.IsDynamic {
		out.RedirectURL = qr.RedirectURL(baseURL)
	}
	return out
}

func ToQRScanDTO(scan models.QRScan) dto.QRScanDTO {
	return dto.QRScanDTO{
		OccurredAt: scan.CreatedAt.UTC().Format(time.RFC3339Nano),
		UserAgent:  scan.UserAgent,
		Referer:    scan.Referer,
		IPHash:     scan.IPHash,
	}
}

// writeAudit persists an audit entry, picking up the request id from ctx
func writeAudit(ctx context.Context, repo repository.AuditLogRepository, customerID *uint, action, description string, success bool, errMsg *string, metadata *ClientMetadata) error {
	ipAddress := metadata.ip()
	userAgent := metadata.userAgent()

	audit := &models.AuditLog{
		CustomerID:   customerID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errMsg,
	}

	if requestID, ok := ctx.Value(utils.RequestIDKey).(string); ok && requestID != "" {
		audit.RequestID = &requestID
	} else if metadata != nil && metadata.RequestID != "" {
		audit.RequestID = utils.ToPtr(metadata.RequestID)
	}

	return repo.Save(ctx, audit)
}
