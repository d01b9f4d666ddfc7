package authsdk

import "time"

// Tokens is the result of a successful password or refresh grant.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	// IDToken is empty when the provider did not return one.
	IDToken   string
	TokenType string
	ExpiresAt time.Time
}

// ErrorResponse represents a standard OAuth2 error response per RFC 6749.
// This is used internally for parsing HTTP error responses.
// Client code should use the OAuth2Error type from errors.go instead.
type ErrorResponse struct {
	// Error is the OAuth2 error code (e.g., "invalid_request", "invalid_grant")
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description"`
}

// ValidationErrorResponse represents a validation error response from the
// account endpoints.
type ValidationErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// ConfirmSignUpRequest is the body of the sign-up confirmation call.
type ConfirmSignUpRequest struct {
	ClientID string `json:"client_id"`
	Username string `json:"username"`
	Code     string `json:"code"`
}

// ForgotPasswordRequest is the body of the password reset call.
type ForgotPasswordRequest struct {
	ClientID string `json:"client_id"`
	Username string `json:"username"`
}

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains the status of dependencies (readyz only)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Store indicates the durable key-value store status
	Store string `json:"store"`

	// Provider indicates whether a credential provider is configured
	Provider string `json:"provider"`
}
