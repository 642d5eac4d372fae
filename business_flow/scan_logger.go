package businessflow

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/torresguilherme/magic-qr-flows/models"
	"github.com/torresguilherme/magic-qr-flows/repository"
	"github.com/torresguilherme/magic-qr-flows/utils"
)

const (
	DefaultScanLogTimeout     = 5 * time.Second
	DefaultScanLogMaxInFlight = 256
)

// ScanJob is a single scan waiting to be recorded
type ScanJob struct {
	QRCodeID  uint
	UserAgent string
	Referer   string
	IPHash    string
}

// ScanLogger records scans in the background.
// Record never waits for the store. Each job inserts the scan event first and
// bumps the code's counter only when that insert succeeded.
type ScanLogger interface {
	Record(ctx context.Context, job ScanJob) error
	Shutdown(ctx context.Context) error
}

type ScanLoggerImpl struct {
	scanRepo repository.QRScanRepository
	qrRepo   repository.QRCodeRepository
	timeout  time.Duration
	logger   *log.Logger

	slots  chan struct{}
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewScanLogger(scanRepo repository.QRScanRepository, qrRepo repository.QRCodeRepository, timeout time.Duration, maxInFlight int, logger *log.Logger) *ScanLoggerImpl {
	if timeout <= 0 {
		timeout = DefaultScanLogTimeout
	}
	if maxInFlight <= 0 {
		maxInFlight = DefaultScanLogMaxInFlight
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ScanLoggerImpl{
		scanRepo: scanRepo,
		qrRepo:   qrRepo,
		timeout:  timeout,
		logger:   logger,
		slots:    make(chan struct{}, maxInFlight),
	}
}

// Record starts a detached job. The request context only contributes its values;
// cancelling it does not abort the write.
func (l *ScanLoggerImpl) Record(ctx context.Context, job ScanJob) error {
	l.mu.RLock()
	if l.closed {
		l.mu.RUnlock()
		qrScanLogDropped.Inc()
		return ErrScanLoggerStopped
	}

	select {
	case l.slots <- struct{}{}:
	default:
		l.mu.RUnlock()
		qrScanLogDropped.Inc()
		return ErrScanLoggerFull
	}
	l.wg.Add(1)
	l.mu.RUnlock()

	go l.run(context.WithoutCancel(ctx), job)
	return nil
}

func (l *ScanLoggerImpl) run(parent context.Context, job ScanJob) {
	qrScanLogInFlight.Inc()
	defer func() {
		qrScanLogInFlight.Dec()
		<-l.slots
		l.wg.Done()
	}()

	ctx, cancel := context.WithTimeout(parent, l.timeout)
	defer cancel()

	scan := &models.QRScan{QRCodeID: job.QRCodeID}
	if job.UserAgent != "" {
		scan.UserAgent = utils.ToPtr(job.UserAgent)
	}
	if job.Referer != "" {
		scan.Referer = utils.ToPtr(job.Referer)
	}
	if job.IPHash != "" {
		scan.IPHash = utils.ToPtr(job.IPHash)
	}

	if err := l.scanRepo.Save(ctx, scan); err != nil {
		qrScanLogTotal.WithLabelValues("insert_failed").Inc()
		l.logger.Printf("failed to record scan for qr code %d: %v", job.QRCodeID, err)
		return
	}

	if err := l.qrRepo.IncrementScanCount(ctx, job.QRCodeID); err != nil {
		qrScanLogTotal.WithLabelValues("increment_failed").Inc()
		l.logger.Printf("failed to increment scan count for qr code %d: %v", job.QRCodeID, err)
		return
	}

	qrScanLogTotal.WithLabelValues("recorded").Inc()
}

// Shutdown stops accepting jobs and waits for running ones until ctx is done.
func (l *ScanLoggerImpl) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
