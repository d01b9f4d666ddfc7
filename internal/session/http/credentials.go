package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/sessioncache/internal/session/service"
	"github.com/aussiebroadwan/sessioncache/pkg/httpx"
)

// TokenResponse is returned by GET /v1/session/token.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// RefreshResponse is returned by a forced refresh. It never carries tokens.
type RefreshResponse struct {
	ExpiresAt     time.Time  `json:"expires_at"`
	NextRefreshAt *time.Time `json:"next_refresh_at,omitempty"`
}

type SignInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ConfirmSignUpRequest struct {
	Username string `json:"username"`
	Code     string `json:"code"`
}

type ForgotPasswordRequest struct {
	Username string `json:"username"`
}

// CredentialsHandler fronts the refresher. Every route answers 501 when the
// daemon runs without a credential provider.
type CredentialsHandler struct {
	Service *service.SessionService
}

func (h *CredentialsHandler) refresher(w http.ResponseWriter) (*service.Refresher, bool) {
	rf := h.Service.Refresher()
	if rf == nil {
		writeNoProvider(w)
		return nil, false
	}
	return rf, true
}

// HandleToken godoc
//
//	@Summary		Get a valid access token
//	@Description	Returns the stored access token, refreshing it first when it is inside the expiry buffer.
//	@Tags			Credentials
//	@Produce		json
//	@Success		200	{object}	TokenResponse
//	@Failure		409	{object}	httpx.ErrorBody	"no tokens stored"
//	@Failure		429	{object}	httpx.ErrorBody	"refresh backoff"
//	@Failure		501	{object}	httpx.ErrorBody	"no provider"
//	@Failure		502	{object}	httpx.ErrorBody	"refresh failed"
//	@Router			/v1/session/token [get].
func (h *CredentialsHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	rf, ok := h.refresher(w)
	if !ok {
		return
	}

	token, err := rf.EnsureValidToken(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := TokenResponse{AccessToken: token, TokenType: "Bearer"}
	if ts, ok := h.Service.Ledger().Tokens(r.Context()); ok {
		resp.ExpiresAt = ts.ExpiresAt
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleRefresh godoc
//
//	@Summary		Force a token refresh
//	@Description	Refreshes the tokens now, subject to the refresh cooldown and failure backoff.
//	@Tags			Credentials
//	@Produce		json
//	@Success		200	{object}	RefreshResponse
//	@Failure		409	{object}	httpx.ErrorBody	"no tokens stored"
//	@Failure		429	{object}	httpx.ErrorBody	"refresh backoff"
//	@Failure		501	{object}	httpx.ErrorBody	"no provider"
//	@Failure		502	{object}	httpx.ErrorBody	"refresh failed"
//	@Router			/v1/session/refresh [post].
func (h *CredentialsHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	rf, ok := h.refresher(w)
	if !ok {
		return
	}

	ts, err := rf.Refresh(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, RefreshResponse{
		ExpiresAt:     ts.ExpiresAt,
		NextRefreshAt: rf.NextRefreshAt(),
	})
}

// HandleSignIn godoc
//
//	@Summary		Sign in
//	@Tags			Credentials
//	@Accept			json
//	@Param			request	body	SignInRequest	true	"credentials"
//	@Success		204
//	@Failure		400	{object}	httpx.ErrorBody
//	@Failure		401	{object}	httpx.ErrorBody	"rejected by the identity provider"
//	@Failure		501	{object}	httpx.ErrorBody	"no provider"
//	@Router			/v1/session/sign-in [post].
func (h *CredentialsHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	rf, ok := h.refresher(w)
	if !ok {
		return
	}

	var req SignInRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, errCodeInvalidRequest, "invalid JSON body")
		return
	}
	if err := rf.SignIn(r.Context(), req.Username, req.Password); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSignOut godoc
//
//	@Summary		Sign out
//	@Description	Drops the tokens and the cached snapshot.
//	@Tags			Credentials
//	@Success		204
//	@Failure		501	{object}	httpx.ErrorBody	"no provider"
//	@Router			/v1/session/sign-out [post].
func (h *CredentialsHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	rf, ok := h.refresher(w)
	if !ok {
		return
	}
	// Durable removal failures are logged by the cache.
	_ = rf.SignOut(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// HandleConfirmSignUp godoc
//
//	@Summary		Confirm a registration
//	@Tags			Credentials
//	@Accept			json
//	@Param			request	body	ConfirmSignUpRequest	true	"username and code"
//	@Success		204
//	@Failure		400	{object}	httpx.ErrorBody
//	@Failure		501	{object}	httpx.ErrorBody	"no provider"
//	@Router			/v1/account/confirm [post].
func (h *CredentialsHandler) HandleConfirmSignUp(w http.ResponseWriter, r *http.Request) {
	rf, ok := h.refresher(w)
	if !ok {
		return
	}

	var req ConfirmSignUpRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, errCodeInvalidRequest, "invalid JSON body")
		return
	}
	if err := rf.ConfirmSignUp(r.Context(), req.Username, req.Code); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleForgotPassword godoc
//
//	@Summary		Start a password reset
//	@Tags			Credentials
//	@Accept			json
//	@Param			request	body	ForgotPasswordRequest	true	"username"
//	@Success		204
//	@Failure		400	{object}	httpx.ErrorBody
//	@Failure		501	{object}	httpx.ErrorBody	"no provider"
//	@Router			/v1/account/forgot-password [post].
func (h *CredentialsHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	rf, ok := h.refresher(w)
	if !ok {
		return
	}

	var req ForgotPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, errCodeInvalidRequest, "invalid JSON body")
		return
	}
	if err := rf.ForgotPassword(r.Context(), req.Username); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
