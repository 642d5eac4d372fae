package utils

type contextKey string

// Request-scoped context keys populated by the HTTP handlers
const (
	RequestIDKey  contextKey = "X-Request-ID"
	UserAgentKey  contextKey = "User-Agent"
	IPAddressKey  contextKey = "IP-Address"
	EndpointKey   contextKey = "Endpoint"
	TimeoutKey    contextKey = "Timeout"
	CancelFuncKey contextKey = "CancelFunc"
)
