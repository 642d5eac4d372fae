// Package utils provides utility functions for the application.
package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

func ToPtr[T any](v T) *T {
	return &v
}

func IsTrue(b *bool) bool {
	return b != nil && *b
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// DashWhitespace replaces every run of whitespace with a single dash.
func DashWhitespace(s string) string {
	return whitespaceRun.ReplaceAllString(s, "-")
}

// HashIP returns a salted sha256 of the address so raw client IPs are never stored.
func HashIP(salt, ip string) string {
	if strings.TrimSpace(ip) == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(salt + ip))
	return hex.EncodeToString(sum[:])
}
