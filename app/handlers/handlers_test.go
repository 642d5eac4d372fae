package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/torresguilherme/magic-qr-flows/app/dto"
	"github.com/torresguilherme/magic-qr-flows/app/services"
	businessflow "github.com/torresguilherme/magic-qr-flows/business_flow"
)

const knownID = "2f0f3e1c-8d2a-4a57-9d43-8d1b1f7c6a10"

type stubRedirectFlow struct {
	destinations map[string]string
	err          error
	visits       []*businessflow.ClientMetadata
}

func (s *stubRedirectFlow) Resolve(_ context.Context, id string, visit *businessflow.ClientMetadata) (string, error) {
	s.visits = append(s.visits, visit)
	if s.err != nil {
		return "", s.err
	}
	dest, ok := s.destinations[id]
	if !ok {
		return "", businessflow.ErrQRCodeNotFound
	}
	return dest, nil
}

type stubQRCodeFlow struct {
	businessflow.QRCodeFlow
	owners []uint
	err    error
}

func (s *stubQRCodeFlow) Create(_ context.Context, owner uint, req *dto.CreateQRCodeRequest, _ *businessflow.ClientMetadata) (*dto.QRCodeDTO, error) {
	s.owners = append(s.owners, owner)
	if s.err != nil {
		return nil, s.err
	}
	return &dto.QRCodeDTO{ID: knownID, Name: req.Name, DestinationURL: req.DestinationURL, IsDynamic: req.IsDynamic, IsActive: true}, nil
}

func (s *stubQRCodeFlow) UpdateDestination(_ context.Context, owner uint, id string, req *dto.UpdateQRDestinationRequest, _ *businessflow.ClientMetadata) (*dto.QRCodeDTO, error) {
	s.owners = append(s.owners, owner)
	if s.err != nil {
		return nil, s.err
	}
	return &dto.QRCodeDTO{ID: id, DestinationURL: req.DestinationURL, IsDynamic: true}, nil
}

func (s *stubQRCodeFlow) ExportScans(_ context.Context, owner uint, _ string, format string) (*dto.ExportFile, error) {
	s.owners = append(s.owners, owner)
	if format != "csv" {
		return nil, businessflow.ErrExportFormat
	}
	return &dto.ExportFile{Filename: "menu-scans.csv", ContentType: "text/csv", Data: []byte("occurred_at\n")}, nil
}

type stubIdentityFlow struct {
	businessflow.IdentityFlow
	loginErr error
}

func (s *stubIdentityFlow) Login(_ context.Context, req *dto.LoginRequest, _ *businessflow.ClientMetadata) (*dto.AuthResponse, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &dto.AuthResponse{Customer: dto.AuthCustomerDTO{ID: 1, Email: req.Email}}, nil
}

// asCustomer stands in for the auth middleware
func asCustomer(id uint) fiber.Handler {
	return func(c fiber.Ctx) error {
		c.Locals("customer_id", id)
		return c.Next()
	}
}

func decode(t *testing.T, resp *http.Response) dto.APIResponse {
	t.Helper()
	var body dto.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func errorCode(body dto.APIResponse) string {
	detail, _ := body.Error.(map[string]any)
	code, _ := detail["code"].(string)
	return code
}

func TestRedirectHandler(t *testing.T) {
	flow := &stubRedirectFlow{destinations: map[string]string{knownID: "https://example.com/menu"}}
	app := fiber.New()
	app.Get("/r/:id", NewRedirectHandler(flow).Redirect)

	req := httptest.NewRequest(http.MethodGet, "/r/"+knownID, nil)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Referer", "https://social.example.com")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://example.com/menu", resp.Header.Get("Location"))

	require.Len(t, flow.visits, 1)
	assert.Equal(t, "Mozilla/5.0", flow.visits[0].UserAgent)
	assert.Equal(t, "https://social.example.com", flow.visits[0].Referer)
}

func TestRedirectHandlerRendersNotFoundPage(t *testing.T) {
	tests := []struct {
		name string
		flow *stubRedirectFlow
	}{
		{"unknown code", &stubRedirectFlow{}},
		{"unexpected failure", &stubRedirectFlow{err: businessflow.ErrScanLoggerStopped}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/r/:id", NewRedirectHandler(tt.flow).Redirect)

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/r/nope", nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			assert.Empty(t, resp.Header.Get("Location"))
			assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Contains(t, string(body), "not found or has been disabled")
		})
	}
}

func TestQRCodeHandlerCreate(t *testing.T) {
	flow := &stubQRCodeFlow{}
	app := fiber.New()
	app.Post("/qr-codes", asCustomer(7), NewQRCodeHandler(flow).Create)

	req := httptest.NewRequest(http.MethodPost, "/qr-codes", strings.NewReader(`{"name":"Menu","destination_url":"https://example.com/menu","is_dynamic":true}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decode(t, resp)
	assert.True(t, body.Success)
	assert.Equal(t, []uint{7}, flow.owners)
}

func TestQRCodeHandlerRequiresCustomer(t *testing.T) {
	flow := &stubQRCodeFlow{}
	h := NewQRCodeHandler(flow)
	app := fiber.New()
	app.Post("/qr-codes", h.Create)
	app.Patch("/qr-codes/:id/destination", h.UpdateDestination)
	app.Get("/qr-codes/:id/scans/export", h.ExportScans)

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPost, "/qr-codes", `{}`},
		{http.MethodPatch, "/qr-codes/" + uuid.NewString() + "/destination", `{"destination_url":"https://example.com"}`},
		{http.MethodGet, "/qr-codes/" + uuid.NewString() + "/scans/export", ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "UNAUTHORIZED", errorCode(decode(t, resp)))
		})
	}
	assert.Empty(t, flow.owners)
}

func TestQRCodeHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &businessflow.ValidationError{Violations: []string{"Invalid URL"}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not found", businessflow.ErrQRCodeNotFound, http.StatusNotFound, "QR_CODE_NOT_FOUND"},
		{"static code", businessflow.NewBusinessError("QR_CODE_NOT_DYNAMIC", "static", businessflow.ErrQRCodeNotDynamic), http.StatusConflict, "QR_CODE_NOT_DYNAMIC"},
		{"store failure", businessflow.NewBusinessError("QR_CODE_UPDATE_FAILED", "boom", io.ErrUnexpectedEOF), http.StatusInternalServerError, "QR_CODE_UPDATE_FAILED"},
		{"cache unavailable", businessflow.NewBusinessError("QR_CACHE_INVALIDATION_FAILED", "Redirect cache unavailable, QR code not changed", errors.Join(businessflow.ErrLookupCacheUnavailable, io.ErrUnexpectedEOF)), http.StatusServiceUnavailable, "QR_CACHE_UNAVAILABLE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Patch("/qr-codes/:id/destination", asCustomer(7), NewQRCodeHandler(&stubQRCodeFlow{err: tt.err}).UpdateDestination)

			req := httptest.NewRequest(http.MethodPatch, "/qr-codes/"+knownID+"/destination", strings.NewReader(`{"destination_url":"ftp://x"}`))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, errorCode(decode(t, resp)))
		})
	}
}

func TestQRCodeHandlerExportScans(t *testing.T) {
	app := fiber.New()
	app.Get("/qr-codes/:id/scans/export", asCustomer(7), NewQRCodeHandler(&stubQRCodeFlow{}).ExportScans)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/qr-codes/"+knownID+"/scans/export", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "menu-scans.csv")

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/qr-codes/"+knownID+"/scans/export?format=pdf", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_EXPORT_FORMAT", errorCode(decode(t, resp)))
}

func TestAuthHandlerLogin(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{"success", `{"email":"maria@example.com","password":"SecurePass123!"}`, nil, http.StatusOK, ""},
		{"invalid body", `{"email":"not-an-email","password":"x"}`, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown email", `{"email":"maria@example.com","password":"SecurePass123!"}`, businessflow.ErrCustomerNotFound, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"wrong password", `{"email":"maria@example.com","password":"SecurePass123!"}`, businessflow.ErrIncorrectPassword, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"inactive", `{"email":"maria@example.com","password":"SecurePass123!"}`, businessflow.ErrAccountInactive, http.StatusUnauthorized, "ACCOUNT_INACTIVE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Post("/login", NewAuthHandler(&stubIdentityFlow{loginErr: tt.err}).Login)

			req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, errorCode(decode(t, resp)))
		})
	}
}

func TestTokenFailureMapping(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{services.ErrTokenExpired, "TOKEN_EXPIRED"},
		{services.ErrTokenRevoked, "TOKEN_REVOKED"},
		{businessflow.NewBusinessError("SESSION_INVALID", "Session is not valid", services.ErrTokenInvalid), "TOKEN_INVALID"},
		{businessflow.ErrSessionNotFound, "SESSION_NOT_FOUND"},
	}
	for _, tt := range tests {
		status, code, _, ok := tokenFailure(tt.err)
		assert.True(t, ok, tt.code)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, tt.code, code)
	}

	_, _, _, ok := tokenFailure(io.EOF)
	assert.False(t, ok)
}
