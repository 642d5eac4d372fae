package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/torresguilherme/magic-qr-flows/models"
	"github.com/torresguilherme/magic-qr-flows/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QRCodeRepositoryImpl implements QRCodeRepository
type QRCodeRepositoryImpl struct {
	*BaseRepository[models.QRCode, models.QRCodeFilter]
}

func NewQRCodeRepository(db *gorm.DB) QRCodeRepository {
	return &QRCodeRepositoryImpl{BaseRepository: NewBaseRepository[models.QRCode, models.QRCodeFilter](db)}
}

// LookupByUUID reads only the columns the redirect path needs.
func (r *QRCodeRepositoryImpl) LookupByUUID(ctx context.Context, id uuid.UUID) (*models.QRLookup, error) {
	db := r.getDB(ctx)

	var row models.QRLookup
	res := db.Model(&models.QRCode{}).
		Select("id", "destination_url", "is_active").
		Where("uuid = ?", id).
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to lookup qr code %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}

	return &row, nil
}

func (r *QRCodeRepositoryImpl) ByOwnerAndUUID(ctx context.Context, owner uint, id uuid.UUID) (*models.QRCode, error) {
	rows, err := r.ByFilter(ctx, models.QRCodeFilter{CustomerID: &owner, UUID: &id}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ListByOwner returns all codes of the owner, newest first.
func (r *QRCodeRepositoryImpl) ListByOwner(ctx context.Context, owner uint) ([]*models.QRCode, error) {
	return r.ByFilter(ctx, models.QRCodeFilter{CustomerID: &owner}, "created_at DESC, id DESC", 0, 0)
}

// UpdateDestination rewrites the destination of a dynamic code. Static codes never match.
func (r *QRCodeRepositoryImpl) UpdateDestination(ctx context.Context, owner uint, id uuid.UUID, destinationURL string) (*models.QRCode, error) {
	return r.updateOwned(ctx, owner, id, map[string]any{"destination_url": destinationURL}, "is_dynamic = ?", true)
}

func (r *QRCodeRepositoryImpl) SetActive(ctx context.Context, owner uint, id uuid.UUID, active bool) (*models.QRCode, error) {
	return r.updateOwned(ctx, owner, id, map[string]any{"is_active": active}, "")
}

func (r *QRCodeRepositoryImpl) updateOwned(ctx context.Context, owner uint, id uuid.UUID, values map[string]any, extra string, extraArgs ...any) (row *models.QRCode, err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer finish(db, shouldCommit, &err)

	values["updated_at"] = utils.UTCNow()

	var rows []*models.QRCode
	query := db.Model(&rows).
		Clauses(clause.Returning{}).
		Where("uuid = ? AND customer_id = ?", id, owner)
	if extra != "" {
		query = query.Where(extra, extraArgs...)
	}

	res := query.Updates(values)
	if err = res.Error; err != nil {
		return nil, fmt.Errorf("failed to update qr code %s: %w", id, err)
	}
	if res.RowsAffected == 0 || len(rows) == 0 {
		return nil, nil
	}

	return rows[0], nil
}

// DeleteByOwner removes the code and, through the foreign key, its scans.
func (r *QRCodeRepositoryImpl) DeleteByOwner(ctx context.Context, owner uint, id uuid.UUID) (deleted bool, err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return false, err
	}
	defer finish(db, shouldCommit, &err)

	res := db.Where("uuid = ? AND customer_id = ?", id, owner).Delete(&models.QRCode{})
	if err = res.Error; err != nil {
		return false, fmt.Errorf("failed to delete qr code %s: %w", id, err)
	}

	return res.RowsAffected > 0, nil
}

// IncrementScanCount bumps the counter in a single statement so concurrent scans never lose updates.
func (r *QRCodeRepositoryImpl) IncrementScanCount(ctx context.Context, id uint) error {
	db := r.getDB(ctx)

	res := db.Model(&models.QRCode{}).
		Where("id = ?", id).
		UpdateColumn("scan_count", gorm.Expr("scan_count + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("failed to increment scan count for qr code %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("failed to increment scan count for qr code %d: %w", id, gorm.ErrRecordNotFound)
	}

	return nil
}

func (r *QRCodeRepositoryImpl) StatsByOwner(ctx context.Context, owner uint) (*models.QRCodeStats, error) {
	db := r.getDB(ctx)

	var stats models.QRCodeStats
	err := db.Model(&models.QRCode{}).
		Select("COUNT(*) AS total_codes, COUNT(*) FILTER (WHERE is_active) AS active_codes, COALESCE(SUM(scan_count), 0) AS total_scans").
		Where("customer_id = ?", owner).
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute qr code stats: %w", err)
	}

	return &stats, nil
}

func (r *QRCodeRepositoryImpl) ByID(ctx context.Context, id uint) (*models.QRCode, error) {
	db := r.getDB(ctx)
	var row models.QRCode
	if err := db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *QRCodeRepositoryImpl) applyFilter(db *gorm.DB, f models.QRCodeFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.CustomerID != nil {
		db = db.Where("customer_id = ?", *f.CustomerID)
	}
	if f.IsDynamic != nil {
		db = db.Where("is_dynamic = ?", *f.IsDynamic)
	}
	if f.IsActive != nil {
		db = db.Where("is_active = ?", *f.IsActive)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *QRCodeRepositoryImpl) ByFilter(ctx context.Context, filter models.QRCodeFilter, orderBy string, limit, offset int) ([]*models.QRCode, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.QRCode{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.QRCode
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find qr codes by filter: %w", err)
	}
	return rows, nil
}

func (r *QRCodeRepositoryImpl) Count(ctx context.Context, filter models.QRCodeFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.QRCode{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *QRCodeRepositoryImpl) Exists(ctx context.Context, filter models.QRCodeFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
