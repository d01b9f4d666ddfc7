package http

import (
	"net/http"

	"github.com/aussiebroadwan/sessioncache/internal/session/domain"
	"github.com/aussiebroadwan/sessioncache/internal/session/service"
	"github.com/aussiebroadwan/sessioncache/pkg/httpx"
)

// LifecycleRequest carries a lifecycle notifier signal.
type LifecycleRequest struct {
	State string `json:"state" example:"background"`
}

type LifecycleHandler struct {
	Service *service.SessionService
}

// HandleSignal godoc
//
//	@Summary		Deliver a lifecycle signal
//	@Description	"background" records the background time and answers 204. "inactive" is
//	@Description	ignored. "active" runs foreground recovery and returns its result.
//	@Tags			Lifecycle
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LifecycleRequest	true	"signal"
//	@Success		200		{object}	domain.RecoveryResult
//	@Success		204
//	@Failure		400		{object}	httpx.ErrorBody
//	@Router			/v1/lifecycle [post].
func (h *LifecycleHandler) HandleSignal(w http.ResponseWriter, r *http.Request) {
	var req LifecycleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, errCodeInvalidRequest, "invalid JSON body")
		return
	}
	if _, ok := domain.ParseAppState(req.State); !ok {
		httpx.WriteError(w, http.StatusBadRequest, errCodeInvalidRequest, "state must be one of active, inactive, background")
		return
	}

	result := h.Service.HandleAppStateChange(r.Context(), req.State)
	if result == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

// HandleRecover godoc
//
//	@Summary		Foreground and recover
//	@Description	Runs foreground recovery and, when the background was long enough to
//	@Description	require it, validates the tokens with the credential provider.
//	@Tags			Lifecycle
//	@Produce		json
//	@Success		200	{object}	domain.RecoveryResult
//	@Router			/v1/session/recover [post].
func (h *LifecycleHandler) HandleRecover(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.Service.Recover(r.Context()))
}
