package businessflow

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/torresguilherme/magic-qr-flows/app/dto"
	"github.com/torresguilherme/magic-qr-flows/app/services"
	"github.com/torresguilherme/magic-qr-flows/models"
	"github.com/torresguilherme/magic-qr-flows/utils"
	"github.com/xuri/excelize/v2"
)

const testBaseURL = "https://qr.example.com"

type qrFlowFixture struct {
	flow  QRCodeFlow
	repo  *fakeQRRepo
	scans *fakeScanRepo
	audit *fakeAuditRepo
	cache *recordingCache
}

func newQRFlowFixture() *qrFlowFixture {
	fx := &qrFlowFixture{
		repo:  newFakeQRRepo(),
		scans: &fakeScanRepo{},
		audit: &fakeAuditRepo{},
		cache: newRecordingCache(),
	}
	fx.flow = NewQRCodeFlow(fx.repo, fx.scans, fx.audit, fx.cache, services.NewQRImageService(256), testBaseURL)
	return fx
}

func TestCreateQRCodeValidation(t *testing.T) {
	longURL := "https://example.com/" + strings.Repeat("a", utils.QRDestinationMaxLength)

	tests := []struct {
		name       string
		req        dto.CreateQRCodeRequest
		violations []string
		message    string
	}{
		{
			name:       "empty name and invalid url",
			req:        dto.CreateQRCodeRequest{Name: "   ", DestinationURL: "not a url"},
			violations: []string{"Name is required", "Invalid URL"},
			message:    "Name is required, Invalid URL",
		},
		{
			name:       "name too long",
			req:        dto.CreateQRCodeRequest{Name: strings.Repeat("n", utils.QRNameMaxLength+1), DestinationURL: "https://example.com"},
			violations: []string{"Name must be at most 100 characters"},
			message:    "Name must be at most 100 characters",
		},
		{
			name:       "unsupported scheme",
			req:        dto.CreateQRCodeRequest{Name: "Menu", DestinationURL: "ftp://example.com/file"},
			violations: []string{"Invalid URL"},
			message:    "Invalid URL",
		},
		{
			name:       "url too long",
			req:        dto.CreateQRCodeRequest{Name: "Menu", DestinationURL: longURL},
			violations: []string{"URL must be at most 2048 characters"},
			message:    "URL must be at most 2048 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newQRFlowFixture()
			req := tt.req

			out, err := fx.flow.Create(context.Background(), 1, &req, nil)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.True(t, IsValidationFailed(err))
			assert.Equal(t, tt.violations, ValidationViolations(err))
			assert.Equal(t, tt.message, err.Error())
			assert.Zero(t, fx.repo.writes.Load())
		})
	}
}

func TestCreateQRCode(t *testing.T) {
	fx := newQRFlowFixture()
	ctx := context.Background()

	dynamic, err := fx.flow.Create(ctx, 7, &dto.CreateQRCodeRequest{Name: "  Cafe menu  ", DestinationURL: " https://example.com/menu ", IsDynamic: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Cafe menu", dynamic.Name)
	assert.Equal(t, "https://example.com/menu", dynamic.DestinationURL)
	assert.True(t, dynamic.IsActive)
	assert.Zero(t, dynamic.ScanCount)
	assert.Equal(t, testBaseURL+"/r/"+dynamic.ID, dynamic.Payload)
	assert.Equal(t, dynamic.Payload, dynamic.RedirectURL)

	static, err := fx.flow.Create(ctx, 7, &dto.CreateQRCodeRequest{Name: "Flyer", DestinationURL: "http://example.com/flyer"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/flyer", static.Payload)
	assert.Empty(t, static.RedirectURL)
	assert.NotEqual(t, dynamic.ID, static.ID)

	assert.Equal(t, []string{models.AuditActionQRCodeCreated, models.AuditActionQRCodeCreated}, fx.audit.actions())
}

func TestUpdateDestinationRejectsStaticCode(t *testing.T) {
	fx := newQRFlowFixture()
	qr := fx.repo.add(1, "Flyer", "https://example.com/a", false, true)

	out, err := fx.flow.UpdateDestination(context.Background(), 1, qr.UUID.String(), &dto.UpdateQRDestinationRequest{DestinationURL: "https://example.com/b"}, nil)
	require.ErrorIs(t, err, ErrQRCodeNotDynamic)
	assert.Nil(t, out)
	assert.Zero(t, fx.repo.writes.Load())
	assert.Equal(t, "https://example.com/a", fx.repo.get(qr.ID).DestinationURL)
	assert.Empty(t, fx.cache.evicted())
}

func TestUpdateDestinationDynamicCode(t *testing.T) {
	fx := newQRFlowFixture()
	qr := fx.repo.add(1, "Menu", "https://example.com/a", true, true)
	fx.cache.warm(t, qr)

	out, err := fx.flow.UpdateDestination(context.Background(), 1, qr.UUID.String(), &dto.UpdateQRDestinationRequest{DestinationURL: "https://example.com/b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/b", out.DestinationURL)
	assert.Equal(t, "Menu", out.Name)
	assert.Equal(t, []uuid.UUID{qr.UUID, qr.UUID}, fx.cache.evicted())

	_, _, err = fx.cache.Get(context.Background(), qr.UUID)
	assert.ErrorIs(t, err, services.ErrCacheMiss)
}

func TestUpdateDestinationInvalidURLLeavesStoreUntouched(t *testing.T) {
	fx := newQRFlowFixture()
	qr := fx.repo.add(1, "Menu", "https://example.com/a", true, true)

	_, err := fx.flow.UpdateDestination(context.Background(), 1, qr.UUID.String(), &dto.UpdateQRDestinationRequest{DestinationURL: "javascript:alert(1)"}, nil)
	require.True(t, IsValidationFailed(err))
	assert.Equal(t, "Invalid URL", err.Error())
	assert.Equal(t, "https://example.com/a", fx.repo.get(qr.ID).DestinationURL)
}

func TestQRCodeOwnerScoping(t *testing.T) {
	fx := newQRFlowFixture()
	ctx := context.Background()
	qr := fx.repo.add(1, "Menu", "https://example.com/a", true, true)
	id := qr.UUID.String()

	_, err := fx.flow.Get(ctx, 2, id)
	assert.ErrorIs(t, err, ErrQRCodeNotFound)

	_, err = fx.flow.UpdateDestination(ctx, 2, id, &dto.UpdateQRDestinationRequest{DestinationURL: "https://evil.example.com"}, nil)
	assert.ErrorIs(t, err, ErrQRCodeNotFound)

	_, err = fx.flow.SetActive(ctx, 2, id, false, nil)
	assert.ErrorIs(t, err, ErrQRCodeNotFound)

	assert.ErrorIs(t, fx.flow.Delete(ctx, 2, id, nil), ErrQRCodeNotFound)

	_, err = fx.flow.ListScans(ctx, 2, id, 10)
	assert.ErrorIs(t, err, ErrQRCodeNotFound)

	list, err := fx.flow.List(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, list.Items)

	stored := fx.repo.get(qr.ID)
	require.NotNil(t, stored)
	assert.Equal(t, "https://example.com/a", stored.DestinationURL)
	assert.True(t, utils.IsTrue(stored.IsActive))
}

func TestQRCodeMalformedIDIsNotFound(t *testing.T) {
	fx := newQRFlowFixture()
	ctx := context.Background()

	for _, id := range []string{"", "abc", uuid.Nil.String()} {
		_, err := fx.flow.Get(ctx, 1, id)
		assert.ErrorIs(t, err, ErrQRCodeNotFound, id)
		assert.ErrorIs(t, fx.flow.Delete(ctx, 1, id, nil), ErrQRCodeNotFound, id)
	}
}

func TestListQRCodesNewestFirst(t *testing.T) {
	fx := newQRFlowFixture()
	first := fx.repo.add(1, "first", "https://example.com/1", true, true)
	second := fx.repo.add(1, "second", "https://example.com/2", false, true)
	third := fx.repo.add(1, "third", "https://example.com/3", true, false)
	fx.repo.add(2, "other", "https://example.com/x", true, true)

	list, err := fx.flow.List(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 3, list.Total)
	assert.Equal(t, []string{third.UUID.String(), second.UUID.String(), first.UUID.String()},
		[]string{list.Items[0].ID, list.Items[1].ID, list.Items[2].ID})
}

func TestDeleteQRCode(t *testing.T) {
	fx := newQRFlowFixture()
	ctx := context.Background()
	qr := fx.repo.add(1, "Menu", "https://example.com/a", true, true)

	require.NoError(t, fx.flow.Delete(ctx, 1, qr.UUID.String(), nil))
	assert.Nil(t, fx.repo.get(qr.ID))
	assert.Equal(t, []uuid.UUID{qr.UUID, qr.UUID}, fx.cache.evicted())

	assert.ErrorIs(t, fx.flow.Delete(ctx, 1, qr.UUID.String(), nil), ErrQRCodeNotFound)
	assert.Equal(t, []string{models.AuditActionQRCodeDeleted}, fx.audit.actions())
}

func TestSetActive(t *testing.T) {
	fx := newQRFlowFixture()
	qr := fx.repo.add(1, "Menu", "https://example.com/a", true, true)

	out, err := fx.flow.SetActive(context.Background(), 1, qr.UUID.String(), false, nil)
	require.NoError(t, err)
	assert.False(t, out.IsActive)
	assert.Equal(t, []uuid.UUID{qr.UUID, qr.UUID}, fx.cache.evicted())
	assert.Equal(t, []string{models.AuditActionQRCodeDeactivated}, fx.audit.actions())
}

func TestExportScans(t *testing.T) {
	fx := newQRFlowFixture()
	ctx := context.Background()
	qr := fx.repo.add(1, "Cafe  menu", "https://example.com/a", true, true)
	require.NoError(t, fx.scans.Save(ctx, &models.QRScan{QRCodeID: qr.ID, UserAgent: utils.ToPtr("curl/8"), IPHash: utils.ToPtr("abc")}))
	require.NoError(t, fx.scans.Save(ctx, &models.QRScan{QRCodeID: qr.ID, Referer: utils.ToPtr("https://ref.example.com")}))

	t.Run("csv", func(t *testing.T) {
		file, err := fx.flow.ExportScans(ctx, 1, qr.UUID.String(), "csv")
		require.NoError(t, err)
		assert.Equal(t, "Cafe-menu-scans.csv", file.Filename)
		assert.Equal(t, "text/csv", file.ContentType)

		records, err := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, []string{"occurred_at", "user_agent", "referer", "ip_hash"}, records[0])
		assert.Equal(t, "https://ref.example.com", records[1][2])
		assert.Equal(t, "curl/8", records[2][1])
	})

	t.Run("xlsx", func(t *testing.T) {
		file, err := fx.flow.ExportScans(ctx, 1, qr.UUID.String(), "xlsx")
		require.NoError(t, err)
		assert.Equal(t, "Cafe-menu-scans.xlsx", file.Filename)

		xl, err := excelize.OpenReader(bytes.NewReader(file.Data))
		require.NoError(t, err)
		defer func() { _ = xl.Close() }()

		rows, err := xl.GetRows("scans")
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "ip_hash", rows[0][3])
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := fx.flow.ExportScans(ctx, 1, qr.UUID.String(), "pdf")
		assert.True(t, IsExportFormat(err))
	})
}

func TestRenderImage(t *testing.T) {
	fx := newQRFlowFixture()
	qr := fx.repo.add(1, "Cafe menu", "https://example.com/a", true, true)

	file, err := fx.flow.RenderImage(context.Background(), 1, qr.UUID.String(), 0, true)
	require.NoError(t, err)
	assert.Equal(t, "Cafe-menu-qrcode.png", file.Filename)
	assert.Equal(t, "image/png", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("\x89PNG\r\n\x1a\n")))

	_, err = fx.flow.RenderImage(context.Background(), 2, qr.UUID.String(), 0, false)
	assert.ErrorIs(t, err, ErrQRCodeNotFound)
}
