package businessflow

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/torresguilherme/magic-qr-flows/app/services"
	"github.com/torresguilherme/magic-qr-flows/models"
	"github.com/torresguilherme/magic-qr-flows/repository"
	"github.com/torresguilherme/magic-qr-flows/utils"
)

// RedirectFlow resolves a scanned code to its destination.
// Public flow, no authentication required. Any lookup failure resolves to
// ErrQRCodeNotFound; scan logging happens in the background and never
// affects the answer.
type RedirectFlow interface {
	Resolve(ctx context.Context, id string, visit *ClientMetadata) (string, error)
}

type RedirectFlowImpl struct {
	qrRepo     repository.QRCodeRepository
	cache      services.QRLookupCache
	scanLogger ScanLogger
	ipHashSalt string
}

func NewRedirectFlow(qrRepo repository.QRCodeRepository, cache services.QRLookupCache, scanLogger ScanLogger, ipHashSalt string) RedirectFlow {
	if cache == nil {
		cache = services.NoopQRLookupCache{}
	}
	return &RedirectFlowImpl{
		qrRepo:     qrRepo,
		cache:      cache,
		scanLogger: scanLogger,
		ipHashSalt: ipHashSalt,
	}
}

func (f *RedirectFlowImpl) Resolve(ctx context.Context, id string, visit *ClientMetadata) (string, error) {
	qrID, ok := parseQRID(id)
	if !ok {
		qrResolveTotal.WithLabelValues("not_found").Inc()
		return "", ErrQRCodeNotFound
	}

	lookup := f.lookup(ctx, qrID)
	if lookup == nil || !lookup.IsActive {
		qrResolveTotal.WithLabelValues("not_found").Inc()
		return "", ErrQRCodeNotFound
	}

	destination := lookup.DestinationURL

	job := ScanJob{QRCodeID: lookup.ID}
	if visit != nil {
		job.UserAgent = visit.UserAgent
		job.Referer = visit.Referer
		job.IPHash = utils.HashIP(f.ipHashSalt, visit.IPAddress)
	}
	if err := f.scanLogger.Record(ctx, job); err != nil {
		log.Printf("scan for qr code %s not recorded: %v", qrID, err)
	}

	qrResolveTotal.WithLabelValues("redirected").Inc()
	return destination, nil
}

// lookup reads through the cache. Cache and store errors are logged; a store error resolves to nothing.
// Only a clean miss refills the cache, fenced by the generation the miss reported.
func (f *RedirectFlowImpl) lookup(ctx context.Context, id uuid.UUID) *models.QRLookup {
	cached, generation, err := f.cache.Get(ctx, id)
	fill := false
	switch {
	case err == nil && cached != nil:
		qrLookupCacheTotal.WithLabelValues("hit").Inc()
		return cached
	case errors.Is(err, services.ErrCacheMiss):
		fill = true
	case err != nil:
		log.Printf("qr lookup cache: read %s: %v", id, err)
	}
	qrLookupCacheTotal.WithLabelValues("miss").Inc()

	row, err := f.qrRepo.LookupByUUID(ctx, id)
	if err != nil {
		log.Printf("qr lookup failed for %s: %v", id, err)
		return nil
	}
	if row == nil {
		return nil
	}

	if fill {
		if err := f.cache.Set(ctx, id, row, generation); err != nil {
			log.Printf("qr lookup cache: write %s: %v", id, err)
		}
	}
	return row
}
