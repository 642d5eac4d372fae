// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/torresguilherme/magic-qr-flows/app/dto"
	"github.com/torresguilherme/magic-qr-flows/app/services"
)

const tokenValidationTimeout = 5 * time.Second

// AuthMiddleware handles JWT token validation for protected endpoints
type AuthMiddleware struct {
	tokenService services.TokenService
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
	}
}

func unauthorized(c fiber.Ctx, message, code string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: code},
	})
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header
func BearerToken(c fiber.Ctx) (string, string, string) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", "Authorization header is required", "MISSING_AUTHORIZATION_HEADER"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "Invalid authorization header format. Expected 'Bearer <token>'", "INVALID_AUTHORIZATION_FORMAT"
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", "Access token is required", "MISSING_ACCESS_TOKEN"
	}
	return token, "", ""
}

// Authenticate is the middleware function that validates JWT access tokens
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		token, message, code := BearerToken(c)
		if token == "" {
			return unauthorized(c, message, code)
		}

		ctx, cancel := context.WithTimeout(context.Background(), tokenValidationTimeout)
		defer cancel()

		// Validate the token (this already checks for revocation)
		claims, err := m.tokenService.ValidateToken(ctx, token)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrTokenExpired):
				return unauthorized(c, "Access token has expired", "TOKEN_EXPIRED")
			case errors.Is(err, services.ErrTokenInvalid):
				return unauthorized(c, "Invalid access token", "TOKEN_INVALID")
			case errors.Is(err, services.ErrTokenRevoked):
				return unauthorized(c, "Access token has been revoked", "TOKEN_REVOKED")
			default:
				return unauthorized(c, "Token validation failed", "TOKEN_VALIDATION_FAILED")
			}
		}
		if claims.TokenType != services.TokenTypeAccess {
			return unauthorized(c, "Invalid access token", "TOKEN_INVALID")
		}

		// Store user information in context for downstream handlers
		c.Locals("customer_id", claims.CustomerID)
		c.Locals("token_id", claims.TokenID)
		c.Locals("token_claims", claims)
		c.Locals("access_token", token)

		return c.Next()
	}
}
