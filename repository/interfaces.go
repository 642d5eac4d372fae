package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/torresguilherme/magic-qr-flows/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// CustomerRepository defines operations for customers
type CustomerRepository interface {
	Repository[models.Customer, models.CustomerFilter]
	ByEmail(ctx context.Context, email string) (*models.Customer, error)
	ByUUID(ctx context.Context, uuid string) (*models.Customer, error)
	UpdateLastLogin(ctx context.Context, customerID uint) error
}

// CustomerSessionRepository defines operations for customer sessions
type CustomerSessionRepository interface {
	Repository[models.CustomerSession, models.CustomerSessionFilter]
	BySessionToken(ctx context.Context, token string) (*models.CustomerSession, error)
	ByRefreshToken(ctx context.Context, token string) (*models.CustomerSession, error)
	ByTokenAnyState(ctx context.Context, token string) (*models.CustomerSession, error)
	ListActiveSessionsByCustomer(ctx context.Context, customerID uint) ([]*models.CustomerSession, error)
	Touch(ctx context.Context, sessionID uint) error
	ExpireSession(ctx context.Context, sessionID uint) error
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]*models.AuditLog, error)
}

// QRCodeRepository defines operations for QR code records.
// Every owner-scoped call matches on both uuid and customer_id, so a foreign
// record is indistinguishable from a missing one.
type QRCodeRepository interface {
	Repository[models.QRCode, models.QRCodeFilter]
	LookupByUUID(ctx context.Context, id uuid.UUID) (*models.QRLookup, error)
	ByOwnerAndUUID(ctx context.Context, owner uint, id uuid.UUID) (*models.QRCode, error)
	ListByOwner(ctx context.Context, owner uint) ([]*models.QRCode, error)
	UpdateDestination(ctx context.Context, owner uint, id uuid.UUID, destinationURL string) (*models.QRCode, error)
	SetActive(ctx context.Context, owner uint, id uuid.UUID, active bool) (*models.QRCode, error)
	DeleteByOwner(ctx context.Context, owner uint, id uuid.UUID) (bool, error)
	IncrementScanCount(ctx context.Context, id uint) error
	StatsByOwner(ctx context.Context, owner uint) (*models.QRCodeStats, error)
}

// QRScanRepository defines operations for scan events
type QRScanRepository interface {
	Repository[models.QRScan, models.QRScanFilter]
	ListByQRCode(ctx context.Context, qrCodeID uint, limit int) ([]*models.QRScan, error)
}
