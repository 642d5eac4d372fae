package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/torresguilherme/magic-qr-flows/app/dto"
	"github.com/torresguilherme/magic-qr-flows/app/services"
	businessflow "github.com/torresguilherme/magic-qr-flows/business_flow"
)

// AuthHandlerInterface defines the contract for authentication handlers
type AuthHandlerInterface interface {
	Captcha(c fiber.Ctx) error
	Signup(c fiber.Ctx) error
	Login(c fiber.Ctx) error
	Refresh(c fiber.Ctx) error
	Session(c fiber.Ctx) error
	Logout(c fiber.Ctx) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	baseHandler
	identityFlow businessflow.IdentityFlow
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(identityFlow businessflow.IdentityFlow) *AuthHandler {
	return &AuthHandler{
		baseHandler:  newBaseHandler(),
		identityFlow: identityFlow,
	}
}

// Captcha issues a rotate captcha challenge for signup
// @Summary Get Captcha
// @Description Issue a rotate captcha challenge that must be solved before signup
// @Tags Authentication
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.CaptchaResponse} "Challenge issued"
// @Failure 503 {object} dto.APIResponse "Captcha disabled"
// @Router /api/v1/auth/captcha [get]
func (h *AuthHandler) Captcha(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/captcha")
	defer cancel()

	result, err := h.identityFlow.GetCaptcha(ctx)
	if err != nil {
		log.Println("Captcha generation failed", err)
		return h.ErrorResponse(c, fiber.StatusServiceUnavailable, "Captcha is not available", "CAPTCHA_UNAVAILABLE", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Captcha generated", result)
}

// Signup handles the user registration process
// @Summary User Registration
// @Description Register a new dashboard account and open a session
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.SignupRequest true "User registration data"
// @Success 201 {object} dto.APIResponse{data=dto.AuthResponse} "Account created"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 409 {object} dto.APIResponse "User already exists"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/signup [post]
func (h *AuthHandler) Signup(c fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, resp := h.validate(c, &req); !ok {
		return resp
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/signup")
	defer cancel()

	result, err := h.identityFlow.Signup(ctx, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsEmailAlreadyExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Email already exists", "EMAIL_EXISTS", nil)
		}
		if businessflow.IsCaptchaInvalid(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Captcha verification failed", "CAPTCHA_INVALID", nil)
		}

		log.Println("Signup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Signup failed", "SIGNUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Signup successful", result)
}

// Login handles user authentication
// @Summary User Login
// @Description Authenticate with email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.APIResponse{data=dto.AuthResponse} "Login successful"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Invalid credentials or inactive account"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, resp := h.validate(c, &req); !ok {
		return resp
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/login")
	defer cancel()

	result, err := h.identityFlow.Login(ctx, &req, clientMetadata(c))
	if err != nil {
		// Unknown email and wrong password look the same to the caller
		if businessflow.IsCustomerNotFound(err) || businessflow.IsIncorrectPassword(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid email or password", "INVALID_CREDENTIALS", nil)
		}
		if businessflow.IsAccountInactive(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Account is inactive", "ACCOUNT_INACTIVE", nil)
		}

		log.Println("Login failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Login failed", "LOGIN_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Login successful", result)
}

// Refresh exchanges a refresh token for a new token pair
// @Summary Refresh Session
// @Description Rotate the session tokens using a refresh token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.RefreshRequest true "Refresh token"
// @Success 200 {object} dto.APIResponse{data=dto.AuthResponse} "Session refreshed"
// @Failure 401 {object} dto.APIResponse "Refresh token rejected"
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, resp := h.validate(c, &req); !ok {
		return resp
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/refresh")
	defer cancel()

	result, err := h.identityFlow.Refresh(ctx, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsAccountInactive(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Account is inactive", "ACCOUNT_INACTIVE", nil)
		}
		if status, code, message, ok := tokenFailure(err); ok {
			return h.ErrorResponse(c, status, message, code, nil)
		}

		log.Println("Refresh failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Refresh failed", "REFRESH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Session refreshed", result)
}

// Session returns the session behind the bearer token
// @Summary Current Session
// @Description Describe the signed-in customer and session
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.CurrentSessionResponse} "Session retrieved"
// @Failure 401 {object} dto.APIResponse "No active session"
// @Router /api/v1/auth/session [get]
func (h *AuthHandler) Session(c fiber.Ctx) error {
	token, _ := c.Locals("access_token").(string)

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/session")
	defer cancel()

	result, err := h.identityFlow.CurrentSession(ctx, token, clientMetadata(c))
	if err != nil {
		if businessflow.IsAccountInactive(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Account is inactive", "ACCOUNT_INACTIVE", nil)
		}
		if status, code, message, ok := tokenFailure(err); ok {
			return h.ErrorResponse(c, status, message, code, nil)
		}

		log.Println("Session lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve session", "SESSION_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Session retrieved successfully", result)
}

// Logout ends the session behind the bearer token
// @Summary Logout
// @Description Revoke the current session tokens
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse "Logged out"
// @Failure 401 {object} dto.APIResponse "No active session"
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	token, _ := c.Locals("access_token").(string)

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/logout")
	defer cancel()

	if err := h.identityFlow.Logout(ctx, token, clientMetadata(c)); err != nil {
		if status, code, message, ok := tokenFailure(err); ok {
			return h.ErrorResponse(c, status, message, code, nil)
		}

		log.Println("Logout failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Logout failed", "LOGOUT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Logout successful", nil)
}

func tokenFailure(err error) (int, string, string, bool) {
	switch {
	case businessflow.IsSessionNotFound(err):
		return fiber.StatusUnauthorized, "SESSION_NOT_FOUND", "Session not found or expired", true
	case errors.Is(err, services.ErrTokenExpired):
		return fiber.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired", true
	case errors.Is(err, services.ErrTokenRevoked):
		return fiber.StatusUnauthorized, "TOKEN_REVOKED", "Token has been revoked", true
	case errors.Is(err, services.ErrTokenInvalid):
		return fiber.StatusUnauthorized, "TOKEN_INVALID", "Invalid token", true
	}
	return 0, "", "", false
}
