package businessflow

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/torresguilherme/magic-qr-flows/app/dto"
	"github.com/torresguilherme/magic-qr-flows/app/services"
	"github.com/torresguilherme/magic-qr-flows/models"
	"github.com/torresguilherme/magic-qr-flows/repository"
	"github.com/torresguilherme/magic-qr-flows/utils"
)

// QRCodeFlow manages the QR codes of a single owner.
// Every operation is scoped by the owner id; records of other owners behave as missing.
type QRCodeFlow interface {
	Create(ctx context.Context, owner uint, req *dto.CreateQRCodeRequest, metadata *ClientMetadata) (*dto.QRCodeDTO, error)
	Get(ctx context.Context, owner uint, id string) (*dto.QRCodeDTO, error)
	List(ctx context.Context, owner uint) (*dto.QRCodeListResponse, error)
	UpdateDestination(ctx context.Context, owner uint, id string, req *dto.UpdateQRDestinationRequest, metadata *ClientMetadata) (*dto.QRCodeDTO, error)
	SetActive(ctx context.Context, owner uint, id string, active bool, metadata *ClientMetadata) (*dto.QRCodeDTO, error)
	Delete(ctx context.Context, owner uint, id string, metadata *ClientMetadata) error
	ListScans(ctx context.Context, owner uint, id string, limit int) (*dto.QRScanListResponse, error)
	ExportScans(ctx context.Context, owner uint, id string, format string) (*dto.ExportFile, error)
	RenderImage(ctx context.Context, owner uint, id string, size int, labeled bool) (*dto.ExportFile, error)
}

// QRCodeFlowImpl implements QRCodeFlow
type QRCodeFlowImpl struct {
	qrRepo        repository.QRCodeRepository
	scanRepo      repository.QRScanRepository
	auditRepo     repository.AuditLogRepository
	lookupCache   services.QRLookupCache
	imageService  services.QRImageService
	validate      *qrValidator
	publicBaseURL string
}

// NewQRCodeFlow creates a new QR code management flow
func NewQRCodeFlow(
	qrRepo repository.QRCodeRepository,
	scanRepo repository.QRScanRepository,
	auditRepo repository.AuditLogRepository,
	lookupCache services.QRLookupCache,
	imageService services.QRImageService,
	publicBaseURL string,
) QRCodeFlow {
	if lookupCache == nil {
		lookupCache = services.NoopQRLookupCache{}
	}
	return &QRCodeFlowImpl{
		qrRepo:        qrRepo,
		scanRepo:      scanRepo,
		auditRepo:     auditRepo,
		lookupCache:   lookupCache,
		imageService:  imageService,
		validate:      newQRValidator(),
		publicBaseURL: publicBaseURL,
	}
}

func (f *QRCodeFlowImpl) Create(ctx context.Context, owner uint, req *dto.CreateQRCodeRequest, metadata *ClientMetadata) (*dto.QRCodeDTO, error) {
	if req == nil {
		return nil, newValidationError([]string{"Name is required", "Invalid URL"})
	}

	name, violations := f.validate.name(req.Name)
	dest, urlViolations := f.validate.destination(req.DestinationURL)
	if err := newValidationError(append(violations, urlViolations...)); err != nil {
		return nil, err
	}

	qr := &models.QRCode{
		UUID:           uuid.New(),
		CustomerID:     owner,
		Name:           name,
		DestinationURL: dest,
		IsDynamic:      req.IsDynamic,
		IsActive:       utils.ToPtr(true),
	}
	if err := f.qrRepo.Save(ctx, qr); err != nil {
		return nil, NewBusinessError("QR_CODE_CREATE_FAILED", "Failed to create QR code", err)
	}

	f.audit(ctx, owner, models.AuditActionQRCodeCreated, fmt.Sprintf("QR code created: %s", qr.UUID), true, nil, metadata)

	out := ToQRCodeDTO(*qr, f.publicBaseURL)
	return &out, nil
}

func (f *QRCodeFlowImpl) Get(ctx context.Context, owner uint, id string) (*dto.QRCodeDTO, error) {
	qr, err := f.owned(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	out := ToQRCodeDTO(*qr, f.publicBaseURL)
	return &out, nil
}

func (f *QRCodeFlowImpl) List(ctx context.Context, owner uint) (*dto.QRCodeListResponse, error) {
	rows, err := f.qrRepo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, NewBusinessError("QR_CODE_LIST_FAILED", "Failed to list QR codes", err)
	}

	items := make([]dto.QRCodeDTO, 0, len(rows))
	for _, r := range rows {
		items = append(items, ToQRCodeDTO(*r, f.publicBaseURL))
	}
	return &dto.QRCodeListResponse{Items: items, Total: len(items)}, nil
}

// UpdateDestination retargets a dynamic code. Static codes carry their destination
// in the printed image, so they are rejected without touching the store.
func (f *QRCodeFlowImpl) UpdateDestination(ctx context.Context, owner uint, id string, req *dto.UpdateQRDestinationRequest, metadata *ClientMetadata) (*dto.QRCodeDTO, error) {
	raw := ""
	if req != nil {
		raw = req.DestinationURL
	}
	dest, violations := f.validate.destination(raw)
	if err := newValidationError(violations); err != nil {
		return nil, err
	}

	current, err := f.owned(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if !current.IsDynamic {
		errMsg := ErrQRCodeNotDynamic.Error()
		f.audit(ctx, owner, models.AuditActionQRCodeUpdateFailed, fmt.Sprintf("Destination change rejected: %s", current.UUID), false, &errMsg, metadata)
		return nil, ErrQRCodeNotDynamic
	}

	if err := f.evict(ctx, current.UUID); err != nil {
		return nil, err
	}
	updated, err := f.qrRepo.UpdateDestination(ctx, owner, current.UUID, dest)
	if err != nil {
		return nil, NewBusinessError("QR_CODE_UPDATE_FAILED", "Failed to update QR code destination", err)
	}
	if updated == nil {
		return nil, ErrQRCodeNotFound
	}
	if err := f.evictCommitted(ctx, updated.UUID); err != nil {
		return nil, err
	}
	f.audit(ctx, owner, models.AuditActionQRCodeUpdated, fmt.Sprintf("QR code destination updated: %s", updated.UUID), true, nil, metadata)

	out := ToQRCodeDTO(*updated, f.publicBaseURL)
	return &out, nil
}

func (f *QRCodeFlowImpl) SetActive(ctx context.Context, owner uint, id string, active bool, metadata *ClientMetadata) (*dto.QRCodeDTO, error) {
	current, err := f.owned(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	qrID := current.UUID

	if err := f.evict(ctx, qrID); err != nil {
		return nil, err
	}
	updated, err := f.qrRepo.SetActive(ctx, owner, qrID, active)
	if err != nil {
		return nil, NewBusinessError("QR_CODE_UPDATE_FAILED", "Failed to update QR code status", err)
	}
	if updated == nil {
		return nil, ErrQRCodeNotFound
	}
	if err := f.evictCommitted(ctx, qrID); err != nil {
		return nil, err
	}
	action := models.AuditActionQRCodeDeactivated
	if active {
		action = models.AuditActionQRCodeActivated
	}
	f.audit(ctx, owner, action, fmt.Sprintf("QR code %s: %s", action, qrID), true, nil, metadata)

	out := ToQRCodeDTO(*updated, f.publicBaseURL)
	return &out, nil
}

func (f *QRCodeFlowImpl) Delete(ctx context.Context, owner uint, id string, metadata *ClientMetadata) error {
	current, err := f.owned(ctx, owner, id)
	if err != nil {
		return err
	}
	qrID := current.UUID

	if err := f.evict(ctx, qrID); err != nil {
		return err
	}
	deleted, err := f.qrRepo.DeleteByOwner(ctx, owner, qrID)
	if err != nil {
		return NewBusinessError("QR_CODE_DELETE_FAILED", "Failed to delete QR code", err)
	}
	if !deleted {
		return ErrQRCodeNotFound
	}
	if err := f.evictCommitted(ctx, qrID); err != nil {
		return err
	}
	f.audit(ctx, owner, models.AuditActionQRCodeDeleted, fmt.Sprintf("QR code deleted: %s", qrID), true, nil, metadata)
	return nil
}

func (f *QRCodeFlowImpl) ListScans(ctx context.Context, owner uint, id string, limit int) (*dto.QRScanListResponse, error) {
	qr, err := f.owned(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = utils.QRScanListDefaultLimit
	}
	if limit > utils.QRScanListMaxLimit {
		limit = utils.QRScanListMaxLimit
	}

	scans, err := f.scanRepo.ListByQRCode(ctx, qr.ID, limit)
	if err != nil {
		return nil, NewBusinessError("QR_SCAN_LIST_FAILED", "Failed to list scans", err)
	}

	items := make([]dto.QRScanDTO, 0, len(scans))
	for _, s := range scans {
		items = append(items, ToQRScanDTO(*s))
	}
	return &dto.QRScanListResponse{QRCodeID: qr.UUID.String(), ScanCount: qr.ScanCount, Items: items}, nil
}

func (f *QRCodeFlowImpl) ExportScans(ctx context.Context, owner uint, id string, format string) (*dto.ExportFile, error) {
	exporter, ok := scanExporters[format]
	if !ok {
		return nil, ErrExportFormat
	}

	qr, err := f.owned(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	scans, err := f.scanRepo.ListByQRCode(ctx, qr.ID, utils.QRScanExportMaxRows)
	if err != nil {
		return nil, NewBusinessError("QR_SCAN_LIST_FAILED", "Failed to list scans", err)
	}

	data, err := exporter.write(scans)
	if err != nil {
		return nil, NewBusinessError("QR_SCAN_EXPORT_FAILED", "Failed to export scans", err)
	}

	return &dto.ExportFile{
		Filename:    fmt.Sprintf("%s-scans.%s", utils.DashWhitespace(qr.Name), exporter.extension),
		ContentType: exporter.contentType,
		Data:        data,
	}, nil
}

func (f *QRCodeFlowImpl) RenderImage(ctx context.Context, owner uint, id string, size int, labeled bool) (*dto.ExportFile, error) {
	qr, err := f.owned(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	label := ""
	if labeled {
		label = qr.Name
	}
	png, err := f.imageService.Render(qr.Payload(f.publicBaseURL), size, label)
	if err != nil {
		return nil, NewBusinessError("QR_IMAGE_RENDER_FAILED", "Failed to render QR code image", err)
	}

	return &dto.ExportFile{
		Filename:    qr.ImageFilename(),
		ContentType: "image/png",
		Data:        png,
	}, nil
}

func (f *QRCodeFlowImpl) owned(ctx context.Context, owner uint, id string) (*models.QRCode, error) {
	qrID, ok := parseQRID(id)
	if !ok {
		return nil, ErrQRCodeNotFound
	}

	qr, err := f.qrRepo.ByOwnerAndUUID(ctx, owner, qrID)
	if err != nil {
		return nil, NewBusinessError("QR_CODE_FETCH_FAILED", "Failed to fetch QR code", err)
	}
	if qr == nil {
		return nil, ErrQRCodeNotFound
	}
	return qr, nil
}

// evict runs before a mutation; when the cache is unreachable the store stays untouched.
func (f *QRCodeFlowImpl) evict(ctx context.Context, id uuid.UUID) error {
	if err := f.lookupCache.Invalidate(ctx, id); err != nil {
		log.Printf("qr lookup cache: failed to evict %s: %v", id, err)
		return NewBusinessError("QR_CACHE_INVALIDATION_FAILED", "Redirect cache unavailable, QR code not changed", errors.Join(ErrLookupCacheUnavailable, err))
	}
	return nil
}

// evictCommitted runs after a mutation and discards any lookup cached since evict.
func (f *QRCodeFlowImpl) evictCommitted(ctx context.Context, id uuid.UUID) error {
	if err := f.lookupCache.Invalidate(ctx, id); err != nil {
		log.Printf("qr lookup cache: failed to evict %s after update: %v", id, err)
		return NewBusinessError("QR_CACHE_INVALIDATION_FAILED", "QR code saved but its cached redirect could not be cleared", errors.Join(ErrLookupCacheUnavailable, err))
	}
	return nil
}

func (f *QRCodeFlowImpl) audit(ctx context.Context, owner uint, action, description string, success bool, errMsg *string, metadata *ClientMetadata) {
	if f.auditRepo == nil {
		return
	}
	if err := writeAudit(ctx, f.auditRepo, &owner, action, description, success, errMsg, metadata); err != nil {
		log.Printf("audit: failed to record %s for customer %d: %v", action, owner, err)
	}
}

func parseQRID(id string) (uuid.UUID, bool) {
	if id == "" {
		return uuid.Nil, false
	}
	parsed, err := uuid.Parse(id)
	if err != nil || parsed == uuid.Nil {
		return uuid.Nil, false
	}
	return parsed, true
}
