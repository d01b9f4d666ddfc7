package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error codes from RFC 6749 section 5.2 that the session engine acts on.
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeInvalidClient  = "invalid_client"
	ErrorCodeInvalidGrant   = "invalid_grant"
	ErrorCodeServerError    = "server_error"
)

// OAuth2Error is an error answer from the identity provider.
type OAuth2Error struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *OAuth2Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches by code, so errors.Is(err, ErrInvalidGrant) holds for any
// invalid_grant answer whatever its status or description.
func (e *OAuth2Error) Is(target error) bool {
	t, ok := target.(*OAuth2Error)
	return ok && t.Code == e.Code
}

// Temporary reports whether retrying later may succeed.
func (e *OAuth2Error) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// Sentinels for errors.Is.
var (
	ErrInvalidRequest = &OAuth2Error{StatusCode: http.StatusBadRequest, Code: ErrorCodeInvalidRequest, Description: "malformed request"}
	ErrInvalidClient  = &OAuth2Error{StatusCode: http.StatusUnauthorized, Code: ErrorCodeInvalidClient, Description: "unknown client"}

	// ErrInvalidGrant covers wrong credentials and refresh tokens that were
	// revoked, expired or issued to another client.
	ErrInvalidGrant = &OAuth2Error{StatusCode: http.StatusUnauthorized, Code: ErrorCodeInvalidGrant, Description: "grant rejected"}
	ErrServerError  = &OAuth2Error{StatusCode: http.StatusInternalServerError, Code: ErrorCodeServerError, Description: "identity provider failure"}
)

func NewOAuth2Error(statusCode int, code, description string) *OAuth2Error {
	return &OAuth2Error{StatusCode: statusCode, Code: code, Description: description}
}

// errorFromBody builds an OAuth2Error from a non-2xx answer. The account
// endpoints reply with {code, message} rather than the RFC 6749 shape, and
// anything unparseable becomes server_error.
func errorFromBody(status int, body []byte) error {
	var oauthBody ErrorResponse
	if json.Unmarshal(body, &oauthBody) == nil && oauthBody.Error != "" {
		return NewOAuth2Error(status, oauthBody.Error, oauthBody.ErrorDescription)
	}

	var validation ValidationErrorResponse
	if json.Unmarshal(body, &validation) == nil && validation.Code != "" {
		return NewOAuth2Error(status, validation.Code, validation.Message)
	}

	return NewOAuth2Error(status, ErrorCodeServerError, fmt.Sprintf("unexpected status %d %s", status, http.StatusText(status)))
}
