package utils

import (
	"time"
)

// Session constants
const (
	// SessionTimeout is the default session timeout (24 hours)
	SessionTimeout = 24 * time.Hour

	// CaptchaTTL bounds how long a signup captcha challenge stays solvable
	CaptchaTTL = 2 * time.Minute
)

// QR code constants
const (
	QRNameMaxLength        = 100
	QRDestinationMaxLength = 2048

	QRImageMinSize     = 128
	QRImageMaxSize     = 1024
	QRImageDefaultSize = 256

	QRScanListDefaultLimit = 50
	QRScanListMaxLimit     = 1000
	QRScanExportMaxRows    = 100000

	// RedirectPathPrefix is the public path segment that dynamic payloads point at
	RedirectPathPrefix = "/r/"
)
