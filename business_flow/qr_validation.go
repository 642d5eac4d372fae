package businessflow

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/torresguilherme/magic-qr-flows/utils"
)

// qrValidator checks QR record fields. Inputs are trimmed before any rule runs.
type qrValidator struct {
	v *validator.Validate
}

func newQRValidator() *qrValidator {
	return &qrValidator{v: validator.New()}
}

func (q *qrValidator) name(raw string) (string, []string) {
	name := strings.TrimSpace(raw)
	var violations []string
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		violations = append(violations, "Name is required")
	case n > utils.QRNameMaxLength:
		violations = append(violations, fmt.Sprintf("Name must be at most %d characters", utils.QRNameMaxLength))
	}
	return name, violations
}

// destination accepts absolute http(s) URLs with a host.
func (q *qrValidator) destination(raw string) (string, []string) {
	dest := strings.TrimSpace(raw)
	var violations []string

	if dest == "" || q.v.Var(dest, "url") != nil || !hasWebScheme(dest) {
		violations = append(violations, "Invalid URL")
	}
	if utf8.RuneCountInString(dest) > utils.QRDestinationMaxLength {
		violations = append(violations, fmt.Sprintf("URL must be at most %d characters", utils.QRDestinationMaxLength))
	}
	return dest, violations
}

func hasWebScheme(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}
