package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/torresguilherme/magic-qr-flows/models"
	"gorm.io/gorm"
)

// QRScanRepositoryImpl implements QRScanRepository
type QRScanRepositoryImpl struct {
	*BaseRepository[models.QRScan, models.QRScanFilter]
}

func NewQRScanRepository(db *gorm.DB) QRScanRepository {
	return &QRScanRepositoryImpl{BaseRepository: NewBaseRepository[models.QRScan, models.QRScanFilter](db)}
}

// Save appends a scan event. Scans are never updated, so no transaction is opened.
func (r *QRScanRepositoryImpl) Save(ctx context.Context, scan *models.QRScan) error {
	db := r.getDB(ctx)
	if err := db.Create(scan).Error; err != nil {
		return fmt.Errorf("failed to save qr scan: %w", err)
	}
	return nil
}

func (r *QRScanRepositoryImpl) ByID(ctx context.Context, id uint) (*models.QRScan, error) {
	db := r.getDB(ctx)
	var row models.QRScan
	if err := db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ListByQRCode returns the most recent scans of a code.
func (r *QRScanRepositoryImpl) ListByQRCode(ctx context.Context, qrCodeID uint, limit int) ([]*models.QRScan, error) {
	return r.ByFilter(ctx, models.QRScanFilter{QRCodeID: &qrCodeID}, "created_at DESC, id DESC", limit, 0)
}

func (r *QRScanRepositoryImpl) applyFilter(db *gorm.DB, f models.QRScanFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.QRCodeID != nil {
		db = db.Where("qr_code_id = ?", *f.QRCodeID)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *QRScanRepositoryImpl) ByFilter(ctx context.Context, filter models.QRScanFilter, orderBy string, limit, offset int) ([]*models.QRScan, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.QRScan{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.QRScan
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find qr scans by filter: %w", err)
	}
	return rows, nil
}

func (r *QRScanRepositoryImpl) Count(ctx context.Context, filter models.QRScanFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := r.applyFilter(db.Model(&models.QRScan{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *QRScanRepositoryImpl) Exists(ctx context.Context, filter models.QRScanFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
