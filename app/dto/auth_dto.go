// Package dto contains Data Transfer Objects for API request and response structures
package dto

// SignupRequest represents the signup form data
type SignupRequest struct {
	FullName        string  `json:"full_name" validate:"required,min=2,max=255" example:"Maria Souza"`
	Email           string  `json:"email" validate:"required,email,max=255" example:"maria@example.com"`
	Password        string  `json:"password" validate:"required,min=8,max=100,password_strength" example:"SecurePass123!"`
	ConfirmPassword string  `json:"confirm_password" validate:"required,eqfield=Password" example:"SecurePass123!"`
	CaptchaID       string  `json:"captcha_id,omitempty" validate:"omitempty,uuid4"`
	CaptchaAngle    float64 `json:"captcha_angle,omitempty" validate:"omitempty,gte=0,lte=360"`
}

// LoginRequest represents the request payload for user login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255" example:"maria@example.com"`
	Password string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
}

// RefreshRequest exchanges a refresh token for a new pair
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthCustomerDTO is the customer as seen by the signed-in dashboard
type AuthCustomerDTO struct {
	ID        uint    `json:"id" example:"123"`
	UUID      string  `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	FullName  string  `json:"full_name" example:"Maria Souza"`
	Email     string  `json:"email" example:"maria@example.com"`
	Credits   int     `json:"credits" example:"10"`
	IsActive  *bool   `json:"is_active" example:"true"`
	CreatedAt string  `json:"created_at" example:"2024-01-15T10:30:00Z"`
	LastLogin *string `json:"last_login_at,omitempty"`
}

// CustomerSessionDTO carries the issued tokens
type CustomerSessionDTO struct {
	SessionToken string  `json:"access_token"`
	RefreshToken *string `json:"refresh_token,omitempty"`
	ExpiresIn    int     `json:"expires_in" example:"86400"`
	TokenType    string  `json:"token_type" example:"Bearer"`
	CreatedAt    string  `json:"created_at"`
}

// AuthResponse is returned by signup, login and refresh
type AuthResponse struct {
	Customer AuthCustomerDTO    `json:"customer"`
	Session  CustomerSessionDTO `json:"session"`
}

// CurrentSessionResponse describes the session behind the presented bearer token
type CurrentSessionResponse struct {
	Customer       AuthCustomerDTO `json:"customer"`
	CorrelationID  string          `json:"session_id"`
	ExpiresAt      string          `json:"expires_at"`
	LastAccessedAt string          `json:"last_accessed_at"`
}

// CaptchaResponse carries a rotate captcha challenge
type CaptchaResponse struct {
	ID          string `json:"captcha_id"`
	MasterImage string `json:"master_image"`
	ThumbImage  string `json:"thumb_image"`
}
