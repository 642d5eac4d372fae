package businessflow

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/torresguilherme/magic-qr-flows/app/services"
	"github.com/torresguilherme/magic-qr-flows/models"
	"github.com/torresguilherme/magic-qr-flows/utils"
)

var errStoreDown = errors.New("store unavailable")

// fakeQRRepo is an in-memory QRCodeRepository
type fakeQRRepo struct {
	mu     sync.Mutex
	rows   map[uint]*models.QRCode
	nextID uint

	lookupErr    error
	lookupCalls  atomic.Int64
	incrementErr error
	increments   atomic.Int64
	writes       atomic.Int64

	afterLookup func()
}

func newFakeQRRepo() *fakeQRRepo {
	return &fakeQRRepo{rows: make(map[uint]*models.QRCode)}
}

func (r *fakeQRRepo) add(owner uint, name, dest string, dynamic, active bool) *models.QRCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	now := time.Now().UTC().Add(time.Duration(r.nextID) * time.Millisecond)
	qr := &models.QRCode{
		ID:             r.nextID,
		UUID:           uuid.New(),
		CustomerID:     owner,
		Name:           name,
		DestinationURL: dest,
		IsDynamic:      dynamic,
		IsActive:       utils.ToPtr(active),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.rows[qr.ID] = qr
	return clone(qr)
}

func (r *fakeQRRepo) get(id uint) *models.QRCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	if qr, ok := r.rows[id]; ok {
		return clone(qr)
	}
	return nil
}

func clone(qr *models.QRCode) *models.QRCode {
	c := *qr
	if qr.IsActive != nil {
		c.IsActive = utils.ToPtr(*qr.IsActive)
	}
	return &c
}

func (r *fakeQRRepo) findOwned(owner uint, id uuid.UUID) *models.QRCode {
	for _, qr := range r.rows {
		if qr.UUID == id && qr.CustomerID == owner {
			return qr
		}
	}
	return nil
}

func (r *fakeQRRepo) LookupByUUID(_ context.Context, id uuid.UUID) (*models.QRLookup, error) {
	r.lookupCalls.Add(1)
	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	r.mu.Lock()
	var found *models.QRLookup
	for _, qr := range r.rows {
		if qr.UUID == id {
			found = &models.QRLookup{ID: qr.ID, DestinationURL: qr.DestinationURL, IsActive: utils.IsTrue(qr.IsActive)}
			break
		}
	}
	hook := r.afterLookup
	r.afterLookup = nil
	r.mu.Unlock()

	// runs once, after the row was read and before the caller sees it
	if hook != nil {
		hook()
	}
	return found, nil
}

func (r *fakeQRRepo) ByOwnerAndUUID(_ context.Context, owner uint, id uuid.UUID) (*models.QRCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if qr := r.findOwned(owner, id); qr != nil {
		return clone(qr), nil
	}
	return nil, nil
}

func (r *fakeQRRepo) ListByOwner(_ context.Context, owner uint) ([]*models.QRCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.QRCode
	for _, qr := range r.rows {
		if qr.CustomerID == owner {
			out = append(out, clone(qr))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *fakeQRRepo) UpdateDestination(_ context.Context, owner uint, id uuid.UUID, destinationURL string) (*models.QRCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	qr := r.findOwned(owner, id)
	if qr == nil || !qr.IsDynamic {
		return nil, nil
	}
	r.writes.Add(1)
	qr.DestinationURL = destinationURL
	qr.UpdatedAt = time.Now().UTC()
	return clone(qr), nil
}

func (r *fakeQRRepo) SetActive(_ context.Context, owner uint, id uuid.UUID, active bool) (*models.QRCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	qr := r.findOwned(owner, id)
	if qr == nil {
		return nil, nil
	}
	r.writes.Add(1)
	qr.IsActive = utils.ToPtr(active)
	return clone(qr), nil
}

func (r *fakeQRRepo) DeleteByOwner(_ context.Context, owner uint, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	qr := r.findOwned(owner, id)
	if qr == nil {
		return false, nil
	}
	r.writes.Add(1)
	delete(r.rows, qr.ID)
	return true, nil
}

func (r *fakeQRRepo) IncrementScanCount(_ context.Context, id uint) error {
	if r.incrementErr != nil {
		return r.incrementErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	qr, ok := r.rows[id]
	if !ok {
		return errors.New("qr code not found")
	}
	qr.ScanCount++
	r.increments.Add(1)
	return nil
}

func (r *fakeQRRepo) StatsByOwner(_ context.Context, owner uint) (*models.QRCodeStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &models.QRCodeStats{}
	for _, qr := range r.rows {
		if qr.CustomerID != owner {
			continue
		}
		stats.TotalCodes++
		if utils.IsTrue(qr.IsActive) {
			stats.ActiveCodes++
		}
		stats.TotalScans += qr.ScanCount
	}
	return stats, nil
}

func (r *fakeQRRepo) ByID(_ context.Context, id uint) (*models.QRCode, error) {
	return r.get(id), nil
}

func (r *fakeQRRepo) ByFilter(context.Context, models.QRCodeFilter, string, int, int) ([]*models.QRCode, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeQRRepo) Save(_ context.Context, qr *models.QRCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.writes.Add(1)
	qr.ID = r.nextID
	now := time.Now().UTC()
	qr.CreatedAt, qr.UpdatedAt = now, now
	r.rows[qr.ID] = clone(qr)
	return nil
}

func (r *fakeQRRepo) SaveBatch(ctx context.Context, rows []*models.QRCode) error {
	for _, qr := range rows {
		if err := r.Save(ctx, qr); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeQRRepo) Count(context.Context, models.QRCodeFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), nil
}

func (r *fakeQRRepo) Exists(ctx context.Context, f models.QRCodeFilter) (bool, error) {
	n, err := r.Count(ctx, f)
	return n > 0, err
}

// fakeScanRepo is an in-memory QRScanRepository. When gate is set, Save waits on it.
type fakeScanRepo struct {
	mu      sync.Mutex
	scans   []*models.QRScan
	saveErr error
	gate    chan struct{}
	calls   atomic.Int64
	// ctxErrs records ctx.Err() observed at insert time
	ctxErrs []error
}

func (r *fakeScanRepo) Save(ctx context.Context, scan *models.QRScan) error {
	r.calls.Add(1)
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
	if r.saveErr != nil {
		return r.saveErr
	}
	scan.ID = uint(len(r.scans) + 1)
	scan.CreatedAt = time.Now().UTC()
	r.scans = append(r.scans, scan)
	return nil
}

func (r *fakeScanRepo) saved() []*models.QRScan {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.QRScan(nil), r.scans...)
}

func (r *fakeScanRepo) ListByQRCode(_ context.Context, qrCodeID uint, limit int) ([]*models.QRScan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.QRScan
	for i := len(r.scans) - 1; i >= 0; i-- {
		if r.scans[i].QRCodeID == qrCodeID {
			out = append(out, r.scans[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeScanRepo) ByID(context.Context, uint) (*models.QRScan, error) { return nil, nil }

func (r *fakeScanRepo) ByFilter(context.Context, models.QRScanFilter, string, int, int) ([]*models.QRScan, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeScanRepo) SaveBatch(ctx context.Context, scans []*models.QRScan) error {
	for _, s := range scans {
		if err := r.Save(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeScanRepo) Count(context.Context, models.QRScanFilter) (int64, error) {
	return int64(len(r.saved())), nil
}

func (r *fakeScanRepo) Exists(ctx context.Context, f models.QRScanFilter) (bool, error) {
	n, err := r.Count(ctx, f)
	return n > 0, err
}

// fakeAuditRepo records audit entries
type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (r *fakeAuditRepo) Save(_ context.Context, a *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, a)
	return nil
}

func (r *fakeAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

func (r *fakeAuditRepo) ListByCustomer(context.Context, uint, int, int) ([]*models.AuditLog, error) {
	return nil, nil
}

func (r *fakeAuditRepo) ByID(context.Context, uint) (*models.AuditLog, error) { return nil, nil }

func (r *fakeAuditRepo) ByFilter(context.Context, models.AuditLogFilter, string, int, int) ([]*models.AuditLog, error) {
	return nil, nil
}

func (r *fakeAuditRepo) SaveBatch(ctx context.Context, rows []*models.AuditLog) error {
	for _, a := range rows {
		_ = r.Save(ctx, a)
	}
	return nil
}

func (r *fakeAuditRepo) Count(context.Context, models.AuditLogFilter) (int64, error) {
	return int64(len(r.actions())), nil
}

func (r *fakeAuditRepo) Exists(context.Context, models.AuditLogFilter) (bool, error) {
	return len(r.actions()) > 0, nil
}

// fakeCustomerRepo is an in-memory CustomerRepository
type fakeCustomerRepo struct {
	mu     sync.Mutex
	rows   map[uint]*models.Customer
	nextID uint
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{rows: make(map[uint]*models.Customer)}
}

func (r *fakeCustomerRepo) ByEmail(_ context.Context, email string) (*models.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.rows {
		if c.Email == email {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeCustomerRepo) ByUUID(_ context.Context, id string) (*models.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.rows {
		if c.UUID.String() == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeCustomerRepo) UpdateLastLogin(_ context.Context, customerID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.rows[customerID]; ok {
		c.LastLoginAt = utils.UTCNowPtr()
	}
	return nil
}

func (r *fakeCustomerRepo) ByID(_ context.Context, id uint) (*models.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.rows[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeCustomerRepo) ByFilter(context.Context, models.CustomerFilter, string, int, int) ([]*models.Customer, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeCustomerRepo) Save(_ context.Context, c *models.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == 0 {
		r.nextID++
		c.ID = r.nextID
		c.CreatedAt = time.Now().UTC()
	}
	cp := *c
	r.rows[c.ID] = &cp
	return nil
}

func (r *fakeCustomerRepo) SaveBatch(ctx context.Context, rows []*models.Customer) error {
	for _, c := range rows {
		_ = r.Save(ctx, c)
	}
	return nil
}

func (r *fakeCustomerRepo) Count(context.Context, models.CustomerFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), nil
}

func (r *fakeCustomerRepo) Exists(ctx context.Context, f models.CustomerFilter) (bool, error) {
	n, err := r.Count(ctx, f)
	return n > 0, err
}

// fakeSessionRepo is an in-memory CustomerSessionRepository
type fakeSessionRepo struct {
	mu     sync.Mutex
	rows   map[uint]*models.CustomerSession
	nextID uint
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{rows: make(map[uint]*models.CustomerSession)}
}

func (r *fakeSessionRepo) find(match func(*models.CustomerSession) bool) *models.CustomerSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.rows {
		if match(s) {
			cp := *s
			return &cp
		}
	}
	return nil
}

func (r *fakeSessionRepo) BySessionToken(_ context.Context, token string) (*models.CustomerSession, error) {
	return r.find(func(s *models.CustomerSession) bool {
		return s.SessionToken == token && s.IsValid()
	}), nil
}

func (r *fakeSessionRepo) ByRefreshToken(_ context.Context, token string) (*models.CustomerSession, error) {
	return r.find(func(s *models.CustomerSession) bool {
		return s.RefreshToken != nil && *s.RefreshToken == token && utils.IsTrue(s.IsActive)
	}), nil
}

func (r *fakeSessionRepo) ByTokenAnyState(_ context.Context, token string) (*models.CustomerSession, error) {
	return r.find(func(s *models.CustomerSession) bool { return s.SessionToken == token }), nil
}

func (r *fakeSessionRepo) ListActiveSessionsByCustomer(_ context.Context, customerID uint) ([]*models.CustomerSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.CustomerSession
	for _, s := range r.rows {
		if s.CustomerID == customerID && s.IsValid() {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) Touch(_ context.Context, sessionID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.rows[sessionID]; ok {
		s.LastAccessedAt = utils.UTCNow()
	}
	return nil
}

func (r *fakeSessionRepo) ExpireSession(_ context.Context, sessionID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.rows[sessionID]; ok {
		s.IsActive = utils.ToPtr(false)
	}
	return nil
}

func (r *fakeSessionRepo) CleanupExpiredSessions(context.Context) (int64, error) { return 0, nil }

func (r *fakeSessionRepo) ByID(_ context.Context, id uint) (*models.CustomerSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.rows[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeSessionRepo) ByFilter(context.Context, models.CustomerSessionFilter, string, int, int) ([]*models.CustomerSession, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeSessionRepo) Save(_ context.Context, s *models.CustomerSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == 0 {
		r.nextID++
		s.ID = r.nextID
	}
	cp := *s
	r.rows[s.ID] = &cp
	return nil
}

func (r *fakeSessionRepo) SaveBatch(ctx context.Context, rows []*models.CustomerSession) error {
	for _, s := range rows {
		_ = r.Save(ctx, s)
	}
	return nil
}

func (r *fakeSessionRepo) Count(context.Context, models.CustomerSessionFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), nil
}

func (r *fakeSessionRepo) Exists(ctx context.Context, f models.CustomerSessionFilter) (bool, error) {
	n, err := r.Count(ctx, f)
	return n > 0, err
}

// recordingCache wraps the in-memory lookup cache, counts evictions and can fail them
type recordingCache struct {
	*services.MemoryQRLookupCache

	mu             sync.Mutex
	evictions      []uuid.UUID
	invalidateErrs []error
}

func newRecordingCache() *recordingCache {
	return &recordingCache{MemoryQRLookupCache: services.NewMemoryQRLookupCache(time.Minute)}
}

// failInvalidations queues the results of the next Invalidate calls; nil lets a call through
func (c *recordingCache) failInvalidations(errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateErrs = append(c.invalidateErrs, errs...)
}

func (c *recordingCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	c.mu.Lock()
	var err error
	if len(c.invalidateErrs) > 0 {
		err, c.invalidateErrs = c.invalidateErrs[0], c.invalidateErrs[1:]
	}
	if err == nil {
		c.evictions = append(c.evictions, id)
	}
	c.mu.Unlock()

	if err != nil {
		return err
	}
	return c.MemoryQRLookupCache.Invalidate(ctx, id)
}

// warm stores a lookup at the key's current generation
func (c *recordingCache) warm(t *testing.T, qr *models.QRCode) {
	t.Helper()
	ctx := context.Background()
	_, generation, _ := c.Get(ctx, qr.UUID)
	require.NoError(t, c.Set(ctx, qr.UUID, &models.QRLookup{ID: qr.ID, DestinationURL: qr.DestinationURL, IsActive: utils.IsTrue(qr.IsActive)}, generation))
}

func (c *recordingCache) evicted() []uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uuid.UUID(nil), c.evictions...)
}
