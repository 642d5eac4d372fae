// Package businessflow contains the core business logic and use cases of the QR code service
package businessflow

import (
	"errors"
	"fmt"
	"strings"
)

// Business flow error constants
var (
	// Customer-related errors
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrIncorrectPassword  = errors.New("incorrect password")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrCaptchaInvalid     = errors.New("captcha verification failed")

	// Session-related errors
	ErrSessionNotFound = errors.New("session not found")

	// QR code errors
	ErrValidationFailed  = errors.New("validation failed")
	ErrQRCodeNotFound    = errors.New("qr code not found")
	ErrQRCodeNotDynamic  = errors.New("qr code is static; its destination cannot be changed")
	ErrExportFormat      = errors.New("unsupported export format")
	ErrScanLoggerStopped = errors.New("scan logger is shutting down")
	ErrScanLoggerFull    = errors.New("scan logger queue is full")

	ErrLookupCacheUnavailable = errors.New("redirect lookup cache unavailable")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError lists every violated input constraint.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Violations, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

func newValidationError(violations []string) error {
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

// ValidationViolations returns the violations carried by err, if any.
func ValidationViolations(err error) []string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Violations
	}
	return nil
}

func IsCustomerNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsEmailAlreadyExists(err error) bool {
	return errors.Is(err, ErrEmailAlreadyExists)
}

func IsCaptchaInvalid(err error) bool {
	return errors.Is(err, ErrCaptchaInvalid)
}

func IsSessionNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

func IsValidationFailed(err error) bool {
	return errors.Is(err, ErrValidationFailed)
}

func IsQRCodeNotFound(err error) bool {
	return errors.Is(err, ErrQRCodeNotFound)
}

func IsQRCodeNotDynamic(err error) bool {
	return errors.Is(err, ErrQRCodeNotDynamic)
}

func IsExportFormat(err error) bool {
	return errors.Is(err, ErrExportFormat)
}

func IsLookupCacheUnavailable(err error) bool {
	return errors.Is(err, ErrLookupCacheUnavailable)
}
