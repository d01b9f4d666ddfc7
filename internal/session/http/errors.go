package http

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/sessioncache/internal/session/service"
	"github.com/aussiebroadwan/sessioncache/pkg/authsdk"
	"github.com/aussiebroadwan/sessioncache/pkg/httpx"
)

const (
	errCodeInvalidRequest = "invalid_request"
	errCodeNotFound       = "not_found"
	errCodeNoTokens       = "no_tokens"
	errCodeBackoff        = "refresh_backoff"
	errCodeRefreshFailed  = "refresh_failed"
	errCodeNoProvider     = "provider_not_configured"
	errCodeServerError    = "server_error"
)

// writeServiceError maps service and provider errors onto status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		backoff  *service.RefreshBackoffError
		oauthErr *authsdk.OAuth2Error
	)

	switch {
	case errors.As(err, &backoff):
		secs := int(math.Ceil(backoff.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
		httpx.WriteError(w, http.StatusTooManyRequests, errCodeBackoff, err.Error())
	case errors.Is(err, service.ErrInvalidInput):
		httpx.WriteError(w, http.StatusBadRequest, errCodeInvalidRequest, err.Error())
	case errors.Is(err, service.ErrNoTokens):
		httpx.WriteError(w, http.StatusConflict, errCodeNoTokens, err.Error())
	case errors.As(err, &oauthErr) && oauthErr.StatusCode >= 400 && oauthErr.StatusCode < 500:
		// Rejections from the identity provider pass through with their OAuth2 code.
		httpx.WriteError(w, oauthErr.StatusCode, oauthErr.Code, oauthErr.Description)
	case errors.Is(err, service.ErrRefreshFailed):
		httpx.WriteError(w, http.StatusBadGateway, errCodeRefreshFailed, err.Error())
	case oauthErr != nil:
		httpx.WriteError(w, http.StatusBadGateway, oauthErr.Code, oauthErr.Description)
	default:
		httpx.WriteError(w, http.StatusInternalServerError, errCodeServerError, "internal server error")
	}
}

func writeNoProvider(w http.ResponseWriter) {
	httpx.WriteError(w, http.StatusNotImplemented, errCodeNoProvider, "no credential provider is configured")
}
