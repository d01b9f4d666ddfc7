package authsdk_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/sessioncache/pkg/authsdk"
	"github.com/aussiebroadwan/sessioncache/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func newIdP(t *testing.T, mux *http.ServeMux) *authsdk.Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return authsdk.NewClient(srv.URL+"/", "mobile-app")
}

func TestPasswordGrant(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("password") != "correct horse" {
			httpx.WriteError(w, http.StatusBadRequest, authsdk.ErrorCodeInvalidGrant, "bad credentials")
			return
		}
		require.Equal(t, "password", r.PostForm.Get("grant_type"))
		require.Equal(t, "alice", r.PostForm.Get("username"))
		require.Equal(t, "mobile-app", r.PostForm.Get("client_id"))

		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"id_token":      "id-1",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	})
	client := newIdP(t, mux)

	t.Run("success", func(t *testing.T) {
		before := time.Now()
		tokens, err := client.PasswordGrant(t.Context(), "alice", "correct horse")
		require.NoError(t, err)
		require.Equal(t, "access-1", tokens.AccessToken)
		require.Equal(t, "refresh-1", tokens.RefreshToken)
		require.Equal(t, "id-1", tokens.IDToken)
		require.Equal(t, "Bearer", tokens.TokenType)
		require.WithinDuration(t, before.Add(time.Hour), tokens.ExpiresAt, time.Minute)
	})

	t.Run("invalid grant", func(t *testing.T) {
		_, err := client.PasswordGrant(t.Context(), "alice", "wrong")
		require.ErrorIs(t, err, authsdk.ErrInvalidGrant)

		var oauthErr *authsdk.OAuth2Error
		require.ErrorAs(t, err, &oauthErr)
		require.Equal(t, http.StatusBadRequest, oauthErr.StatusCode)
		require.Equal(t, "bad credentials", oauthErr.Description)
		require.False(t, oauthErr.Temporary())
	})

	t.Run("missing input", func(t *testing.T) {
		_, err := client.PasswordGrant(t.Context(), " ", "x")
		require.ErrorIs(t, err, authsdk.ErrInvalidRequest)
	})
}

func TestRefreshGrant(t *testing.T) {
	var keep atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))

		switch r.PostForm.Get("refresh_token") {
		case "revoked":
			httpx.WriteError(w, http.StatusBadRequest, authsdk.ErrorCodeInvalidGrant, "refresh token revoked")
		case "flaky":
			w.WriteHeader(http.StatusBadGateway)
		default:
			body := map[string]any{"access_token": "access-2", "token_type": "Bearer", "expires_in": 900}
			if !keep.Load() {
				body["refresh_token"] = "refresh-2"
			}
			httpx.WriteJSON(w, http.StatusOK, body)
		}
	})
	client := newIdP(t, mux)

	tokens, err := client.RefreshGrant(t.Context(), "refresh-1")
	require.NoError(t, err)
	require.Equal(t, "access-2", tokens.AccessToken)
	require.Equal(t, "refresh-2", tokens.RefreshToken)
	require.Empty(t, tokens.IDToken)

	keep.Store(true)
	tokens, err = client.RefreshGrant(t.Context(), "refresh-1")
	require.NoError(t, err)
	require.Equal(t, "refresh-1", tokens.RefreshToken, "non-rotating providers keep the sent token")

	_, err = client.RefreshGrant(t.Context(), "revoked")
	require.ErrorIs(t, err, authsdk.ErrInvalidGrant)

	_, err = client.RefreshGrant(t.Context(), "flaky")
	var oauthErr *authsdk.OAuth2Error
	require.ErrorAs(t, err, &oauthErr)
	require.Equal(t, http.StatusBadGateway, oauthErr.StatusCode)
	require.True(t, oauthErr.Temporary())

	_, err = client.RefreshGrant(t.Context(), "")
	require.ErrorIs(t, err, authsdk.ErrInvalidRequest)
}

func TestAccountFlows(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/account/confirm", func(w http.ResponseWriter, r *http.Request) {
		var req authsdk.ConfirmSignUpRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Code != "123456" {
			httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ValidationErrorResponse{Code: "validation_error", Message: "code mismatch"})
			return
		}
		require.Equal(t, "mobile-app", req.ClientID)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /v1/account/forgot-password", func(w http.ResponseWriter, r *http.Request) {
		var req authsdk.ForgotPasswordRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "alice", req.Username)
		w.WriteHeader(http.StatusNoContent)
	})
	client := newIdP(t, mux)

	require.NoError(t, client.ConfirmSignUp(t.Context(), "alice", "123456"))
	require.NoError(t, client.ForgotPassword(t.Context(), "alice"))

	err := client.ConfirmSignUp(t.Context(), "alice", "000000")
	var oauthErr *authsdk.OAuth2Error
	require.ErrorAs(t, err, &oauthErr)
	require.Equal(t, "validation_error", oauthErr.Code)
	require.Equal(t, "code mismatch", oauthErr.Description)

	require.ErrorIs(t, client.ConfirmSignUp(t.Context(), "alice", ""), authsdk.ErrInvalidRequest)
	require.ErrorIs(t, client.ForgotPassword(t.Context(), ""), authsdk.ErrInvalidRequest)
}

func TestGetReadiness(t *testing.T) {
	var status atomic.Value
	status.Store("ok")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/ready", func(w http.ResponseWriter, r *http.Request) {
		s := status.Load().(string)
		code := http.StatusOK
		if s == "down" {
			code = http.StatusServiceUnavailable
		}
		httpx.WriteJSON(w, code, authsdk.HealthResponse{Status: s, Version: "v1"})
	})
	client := newIdP(t, mux)
	client.ReadinessPath = "/health/ready"

	health, err := client.GetReadiness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "v1", health.Version)

	status.Store("degraded")
	_, err = client.GetReadiness(t.Context())
	require.ErrorContains(t, err, "degraded")

	status.Store("down")
	_, err = client.GetReadiness(t.Context())
	var oauthErr *authsdk.OAuth2Error
	require.True(t, errors.As(err, &oauthErr))
	require.Equal(t, http.StatusServiceUnavailable, oauthErr.StatusCode)
}
