package businessflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/torresguilherme/magic-qr-flows/app/dto"
	"github.com/torresguilherme/magic-qr-flows/app/services"
	"github.com/torresguilherme/magic-qr-flows/models"
	"github.com/torresguilherme/magic-qr-flows/repository"
	"github.com/torresguilherme/magic-qr-flows/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// IdentityFlow owns the customer's authentication state.
// Every change of that state is published as a SessionEvent; callers that
// care about sign-in and sign-out subscribe instead of polling.
type IdentityFlow interface {
	Signup(ctx context.Context, req *dto.SignupRequest, metadata *ClientMetadata) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.AuthResponse, error)
	Refresh(ctx context.Context, req *dto.RefreshRequest, metadata *ClientMetadata) (*dto.AuthResponse, error)
	CurrentSession(ctx context.Context, accessToken string, metadata *ClientMetadata) (*dto.CurrentSessionResponse, error)
	Logout(ctx context.Context, accessToken string, metadata *ClientMetadata) error
	GetCaptcha(ctx context.Context) (*dto.CaptchaResponse, error)
	Subscribe() (<-chan SessionEvent, func())
}

// IdentityConfig tunes signup and password hashing
type IdentityConfig struct {
	BcryptCost     int
	DefaultCredits int
	RequireCaptcha bool
}

// IdentityFlowImpl implements IdentityFlow
type IdentityFlowImpl struct {
	customerRepo repository.CustomerRepository
	sessionRepo  repository.CustomerSessionRepository
	auditRepo    repository.AuditLogRepository
	tokenService services.TokenService
	captcha      services.CaptchaService
	events       *SessionEventBus
	cfg          IdentityConfig
	db           *gorm.DB
}

// NewIdentityFlow creates a new identity flow instance
func NewIdentityFlow(
	customerRepo repository.CustomerRepository,
	sessionRepo repository.CustomerSessionRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	captcha services.CaptchaService,
	events *SessionEventBus,
	cfg IdentityConfig,
	db *gorm.DB,
) IdentityFlow {
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if events == nil {
		events = NewSessionEventBus(0)
	}
	return &IdentityFlowImpl{
		customerRepo: customerRepo,
		sessionRepo:  sessionRepo,
		auditRepo:    auditRepo,
		tokenService: tokenService,
		captcha:      captcha,
		events:       events,
		cfg:          cfg,
		db:           db,
	}
}

func (f *IdentityFlowImpl) Signup(ctx context.Context, req *dto.SignupRequest, metadata *ClientMetadata) (*dto.AuthResponse, error) {
	var customer *models.Customer
	var session *models.CustomerSession

	err := f.signup(ctx, req, metadata, &customer, &session)
	if err != nil {
		errMsg := fmt.Sprintf("Signup failed: %s", err.Error())
		f.auditFailure(ctx, nil, models.AuditActionSignupFailed, errMsg, metadata)
		return nil, NewBusinessError("SIGNUP_FAILED", "Signup failed", err)
	}

	f.publish(SessionEventSignedIn, "signup", session, metadata)

	return &dto.AuthResponse{
		Customer: ToAuthCustomerDTO(*customer),
		Session:  ToCustomerSessionDTO(*session),
	}, nil
}

func (f *IdentityFlowImpl) signup(ctx context.Context, req *dto.SignupRequest, metadata *ClientMetadata, customer **models.Customer, session **models.CustomerSession) error {
	if req == nil {
		return ErrValidationFailed
	}

	if f.cfg.RequireCaptcha {
		if f.captcha == nil || !f.captcha.VerifyRotate(ctx, req.CaptchaID, req.CaptchaAngle) {
			return ErrCaptchaInvalid
		}
	}

	email := normalizeEmail(req.Email)
	existing, err := f.customerRepo.ByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrEmailAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), f.cfg.BcryptCost)
	if err != nil {
		return err
	}

	return repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		c := &models.Customer{
			UUID:         uuid.New(),
			FullName:     strings.TrimSpace(req.FullName),
			Email:        email,
			PasswordHash: string(hash),
			Credits:      f.cfg.DefaultCredits,
			IsActive:     utils.ToPtr(true),
		}
		if err := f.customerRepo.Save(txCtx, c); err != nil {
			return err
		}

		s, err := f.createSession(txCtx, c.ID, metadata)
		if err != nil {
			return err
		}

		*customer, *session = c, s
		return nil
	})
}

func (f *IdentityFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.AuthResponse, error) {
	if req == nil {
		return nil, NewBusinessError("LOGIN_VALIDATION_FAILED", "Login validation failed", ErrValidationFailed)
	}

	customer, err := f.customerRepo.ByEmail(ctx, normalizeEmail(req.Email))
	if err == nil {
		switch {
		case customer == nil:
			err = ErrCustomerNotFound
		case !utils.IsTrue(customer.IsActive):
			err = ErrAccountInactive
		case bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(req.Password)) != nil:
			err = ErrIncorrectPassword
		}
	}

	var session *models.CustomerSession
	if err == nil {
		err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
			var txErr error
			if session, txErr = f.createSession(txCtx, customer.ID, metadata); txErr != nil {
				return txErr
			}
			return f.customerRepo.UpdateLastLogin(txCtx, customer.ID)
		})
	}

	if err != nil {
		var customerID *uint
		if customer != nil {
			customerID = &customer.ID
		}
		errMsg := fmt.Sprintf("Login failed: %s", err.Error())
		f.auditFailure(ctx, customerID, models.AuditActionLoginFailed, errMsg, metadata)
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	now := utils.UTCNow()
	customer.LastLoginAt = &now
	f.publish(SessionEventSignedIn, "login", session, metadata)

	return &dto.AuthResponse{
		Customer: ToAuthCustomerDTO(*customer),
		Session:  ToCustomerSessionDTO(*session),
	}, nil
}

// Refresh trades a refresh token for a new pair. The old session is closed
// and its refresh token can not be used again.
func (f *IdentityFlowImpl) Refresh(ctx context.Context, req *dto.RefreshRequest, metadata *ClientMetadata) (*dto.AuthResponse, error) {
	if req == nil || req.RefreshToken == "" {
		return nil, NewBusinessError("REFRESH_FAILED", "Refresh failed", services.ErrTokenInvalid)
	}

	old, err := f.sessionRepo.ByRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, NewBusinessError("SESSION_FETCH_FAILED", "Failed to fetch session", err)
	}
	if old == nil {
		return nil, NewBusinessError("REFRESH_FAILED", "Refresh failed", ErrSessionNotFound)
	}

	accessToken, refreshToken, err := f.tokenService.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, NewBusinessError("REFRESH_FAILED", "Refresh failed", err)
	}

	customer, err := f.activeCustomer(ctx, old.CustomerID)
	if err != nil {
		return nil, err
	}

	var session *models.CustomerSession
	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if err := f.sessionRepo.ExpireSession(txCtx, old.ID); err != nil {
			return err
		}
		session = newSession(customer.ID, accessToken, refreshToken, metadata)
		return f.sessionRepo.Save(txCtx, session)
	})
	if err != nil {
		return nil, NewBusinessError("REFRESH_FAILED", "Refresh failed", err)
	}
	_ = f.tokenService.RevokeToken(ctx, old.SessionToken)

	f.publish(SessionEventRefreshed, "refresh", session, metadata)

	return &dto.AuthResponse{
		Customer: ToAuthCustomerDTO(*customer),
		Session:  ToCustomerSessionDTO(*session),
	}, nil
}

// CurrentSession restores the signed-in state behind an access token.
// A token that expired since the last call closes its session and emits session_expired.
func (f *IdentityFlowImpl) CurrentSession(ctx context.Context, accessToken string, metadata *ClientMetadata) (*dto.CurrentSessionResponse, error) {
	claims, err := f.tokenService.ValidateToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, services.ErrTokenExpired) {
			f.expire(ctx, accessToken, metadata)
		}
		return nil, NewBusinessError("SESSION_INVALID", "Session is not valid", err)
	}
	if claims.TokenType != services.TokenTypeAccess {
		return nil, NewBusinessError("SESSION_INVALID", "Session is not valid", services.ErrTokenInvalid)
	}

	session, err := f.sessionRepo.BySessionToken(ctx, accessToken)
	if err != nil {
		return nil, NewBusinessError("SESSION_FETCH_FAILED", "Failed to fetch session", err)
	}
	if session == nil || !session.IsValid() {
		f.expire(ctx, accessToken, metadata)
		return nil, NewBusinessError("SESSION_INVALID", "Session is not valid", ErrSessionNotFound)
	}

	customer, err := f.activeCustomer(ctx, session.CustomerID)
	if err != nil {
		return nil, err
	}

	if err := f.sessionRepo.Touch(ctx, session.ID); err != nil {
		log.Printf("failed to touch session %d: %v", session.ID, err)
	}

	return &dto.CurrentSessionResponse{
		Customer:       ToAuthCustomerDTO(*customer),
		CorrelationID:  session.CorrelationID.String(),
		ExpiresAt:      session.ExpiresAt.UTC().Format(time.RFC3339),
		LastAccessedAt: utils.UTCNow().Format(time.RFC3339),
	}, nil
}

func (f *IdentityFlowImpl) Logout(ctx context.Context, accessToken string, metadata *ClientMetadata) error {
	session, err := f.sessionRepo.ByTokenAnyState(ctx, accessToken)
	if err != nil {
		return NewBusinessError("SESSION_FETCH_FAILED", "Failed to fetch session", err)
	}
	if session == nil {
		return NewBusinessError("LOGOUT_FAILED", "Logout failed", ErrSessionNotFound)
	}

	if err := f.tokenService.RevokeToken(ctx, accessToken); err != nil {
		return NewBusinessError("LOGOUT_FAILED", "Logout failed", err)
	}
	if session.RefreshToken != nil {
		_ = f.tokenService.RevokeToken(ctx, *session.RefreshToken)
	}

	wasActive := utils.IsTrue(session.IsActive)
	if err := f.sessionRepo.ExpireSession(ctx, session.ID); err != nil {
		return NewBusinessError("LOGOUT_FAILED", "Logout failed", err)
	}

	if wasActive {
		f.publish(SessionEventSignedOut, "logout", session, metadata)
	}
	return nil
}

func (f *IdentityFlowImpl) GetCaptcha(ctx context.Context) (*dto.CaptchaResponse, error) {
	if f.captcha == nil {
		return nil, NewBusinessError("CAPTCHA_UNAVAILABLE", "Captcha is not configured", ErrCaptchaInvalid)
	}

	challenge, err := f.captcha.GenerateRotate(ctx)
	if err != nil {
		return nil, NewBusinessError("CAPTCHA_GENERATE_FAILED", "Failed to generate captcha", err)
	}

	return &dto.CaptchaResponse{
		ID:          challenge.ID,
		MasterImage: challenge.MasterImageBase64,
		ThumbImage:  challenge.ThumbImageBase64,
	}, nil
}

func (f *IdentityFlowImpl) Subscribe() (<-chan SessionEvent, func()) {
	return f.events.Subscribe()
}

// expire closes a still-active session whose token is no longer valid
func (f *IdentityFlowImpl) expire(ctx context.Context, accessToken string, metadata *ClientMetadata) {
	session, err := f.sessionRepo.ByTokenAnyState(ctx, accessToken)
	if err != nil || session == nil || !utils.IsTrue(session.IsActive) {
		return
	}
	if err := f.sessionRepo.ExpireSession(ctx, session.ID); err != nil {
		log.Printf("failed to expire session %d: %v", session.ID, err)
		return
	}
	f.publish(SessionEventExpired, "session", session, metadata)
}

func (f *IdentityFlowImpl) activeCustomer(ctx context.Context, customerID uint) (*models.Customer, error) {
	customer, err := f.customerRepo.ByID(ctx, customerID)
	if err != nil {
		return nil, NewBusinessError("CUSTOMER_FETCH_FAILED", "Failed to fetch customer", err)
	}
	if customer == nil {
		return nil, NewBusinessError("CUSTOMER_NOT_FOUND", "Customer not found", ErrCustomerNotFound)
	}
	if !utils.IsTrue(customer.IsActive) {
		return nil, NewBusinessError("ACCOUNT_INACTIVE", "Account is inactive", ErrAccountInactive)
	}
	return customer, nil
}

func (f *IdentityFlowImpl) createSession(ctx context.Context, customerID uint, metadata *ClientMetadata) (*models.CustomerSession, error) {
	accessToken, refreshToken, err := f.tokenService.GenerateTokens(customerID)
	if err != nil {
		return nil, err
	}

	session := newSession(customerID, accessToken, refreshToken, metadata)
	if err := f.sessionRepo.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func newSession(customerID uint, accessToken, refreshToken string, metadata *ClientMetadata) *models.CustomerSession {
	ipAddress := metadata.ip()
	userAgent := metadata.userAgent()
	now := utils.UTCNow()

	return &models.CustomerSession{
		CustomerID:     customerID,
		CorrelationID:  uuid.New(),
		SessionToken:   accessToken,
		RefreshToken:   &refreshToken,
		ExpiresAt:      utils.UTCNowAdd(utils.SessionTimeout),
		IsActive:       utils.ToPtr(true),
		IPAddress:      &ipAddress,
		UserAgent:      &userAgent,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
}

func (f *IdentityFlowImpl) publish(eventType SessionEventType, source string, session *models.CustomerSession, metadata *ClientMetadata) {
	f.events.Publish(SessionEvent{
		Type:          eventType,
		CustomerID:    session.CustomerID,
		CorrelationID: session.CorrelationID.String(),
		Source:        source,
		Metadata:      metadata,
	})
}

func (f *IdentityFlowImpl) auditFailure(ctx context.Context, customerID *uint, action, errMsg string, metadata *ClientMetadata) {
	if f.auditRepo == nil {
		return
	}
	if err := writeAudit(ctx, f.auditRepo, customerID, action, errMsg, false, &errMsg, metadata); err != nil {
		log.Printf("audit: failed to record %s: %v", action, err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
