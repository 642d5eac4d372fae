package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/torresguilherme/magic-qr-flows/models"
	"github.com/torresguilherme/magic-qr-flows/utils"
	"gorm.io/gorm"
)

// CustomerSessionRepositoryImpl implements CustomerSessionRepository interface
type CustomerSessionRepositoryImpl struct {
	*BaseRepository[models.CustomerSession, models.CustomerSessionFilter]
}

// NewCustomerSessionRepository creates a new customer session repository
func NewCustomerSessionRepository(db *gorm.DB) CustomerSessionRepository {
	return &CustomerSessionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CustomerSession, models.CustomerSessionFilter](db),
	}
}

// BySessionToken retrieves an active, unexpired session by its access token
func (r *CustomerSessionRepositoryImpl) BySessionToken(ctx context.Context, token string) (*models.CustomerSession, error) {
	db := r.getDB(ctx)

	var session models.CustomerSession
	err := db.Where("session_token = ? AND is_active = ? AND expires_at > ?", token, true, utils.UTCNow()).
		Last(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find session by token: %w", err)
	}

	return &session, nil
}

// ByRefreshToken retrieves the active session a refresh token was issued with
func (r *CustomerSessionRepositoryImpl) ByRefreshToken(ctx context.Context, token string) (*models.CustomerSession, error) {
	db := r.getDB(ctx)

	var session models.CustomerSession
	err := db.Where("refresh_token = ? AND is_active = ?", token, true).Last(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find session by refresh token: %w", err)
	}

	return &session, nil
}

// ByTokenAnyState retrieves a session by access token even when it is expired or inactive
func (r *CustomerSessionRepositoryImpl) ByTokenAnyState(ctx context.Context, token string) (*models.CustomerSession, error) {
	db := r.getDB(ctx)

	var session models.CustomerSession
	err := db.Where("session_token = ?", token).Last(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find session by token: %w", err)
	}

	return &session, nil
}

// ListActiveSessionsByCustomer retrieves all active sessions for a customer
func (r *CustomerSessionRepositoryImpl) ListActiveSessionsByCustomer(ctx context.Context, customerID uint) ([]*models.CustomerSession, error) {
	now := utils.UTCNow()
	filter := models.CustomerSessionFilter{
		CustomerID:   &customerID,
		IsActive:     utils.ToPtr(true),
		ExpiresAfter: &now,
	}

	sessions, err := r.ByFilter(ctx, filter, "created_at DESC", 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions by customer: %w", err)
	}

	return sessions, nil
}

// Touch refreshes last_accessed_at
func (r *CustomerSessionRepositoryImpl) Touch(ctx context.Context, sessionID uint) error {
	db := r.getDB(ctx)

	err := db.Model(&models.CustomerSession{}).
		Where("id = ?", sessionID).
		Update("last_accessed_at", utils.UTCNow()).Error
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}

	return nil
}

// ExpireSession deactivates a session
func (r *CustomerSessionRepositoryImpl) ExpireSession(ctx context.Context, sessionID uint) (err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	defer finish(db, shouldCommit, &err)

	res := db.Model(&models.CustomerSession{}).
		Where("id = ? AND is_active = ?", sessionID, true).
		Updates(map[string]any{
			"is_active":        false,
			"last_accessed_at": utils.UTCNow(),
		})
	if err = res.Error; err != nil {
		return fmt.Errorf("failed to expire session: %w", err)
	}

	return nil
}

// CleanupExpiredSessions deactivates sessions whose expiry has passed
func (r *CustomerSessionRepositoryImpl) CleanupExpiredSessions(ctx context.Context) (affected int64, err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return 0, err
	}
	defer finish(db, shouldCommit, &err)

	res := db.Model(&models.CustomerSession{}).
		Where("is_active = ? AND expires_at <= ?", true, utils.UTCNow()).
		Update("is_active", false)
	if err = res.Error; err != nil {
		return 0, fmt.Errorf("failed to cleanup expired sessions: %w", err)
	}

	return res.RowsAffected, nil
}

// ByFilter retrieves sessions based on filter criteria
func (r *CustomerSessionRepositoryImpl) ByFilter(ctx context.Context, filter models.CustomerSessionFilter, orderBy string, limit, offset int) ([]*models.CustomerSession, error) {
	db := r.getDB(ctx)

	query := r.applyFilter(db.Model(&models.CustomerSession{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var sessions []*models.CustomerSession
	if err := query.Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to find sessions by filter: %w", err)
	}

	return sessions, nil
}

// Count returns the number of sessions matching the filter
func (r *CustomerSessionRepositoryImpl) Count(ctx context.Context, filter models.CustomerSessionFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	if err := r.applyFilter(db.Model(&models.CustomerSession{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	return count, nil
}

// Exists checks if any session matching the filter exists
func (r *CustomerSessionRepositoryImpl) Exists(ctx context.Context, filter models.CustomerSessionFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *CustomerSessionRepositoryImpl) applyFilter(query *gorm.DB, filter models.CustomerSessionFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.CorrelationID != nil {
		query = query.Where("correlation_id = ?", *filter.CorrelationID)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	if filter.ExpiresAfter != nil {
		query = query.Where("expires_at > ?", *filter.ExpiresAfter)
	}
	if filter.ExpiresBefore != nil {
		query = query.Where("expires_at <= ?", *filter.ExpiresBefore)
	}
	return query
}
