package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aussiebroadwan/sessioncache/internal/session/domain"
	"github.com/aussiebroadwan/sessioncache/internal/session/service"
	"github.com/aussiebroadwan/sessioncache/pkg/httpx"
)

// StateResponse is the cached snapshot as served by the API.
type StateResponse struct {
	State    domain.CachedAuthState `json:"state"`
	Metadata domain.CacheMetadata   `json:"metadata"`
	Source   domain.Source          `json:"source"`
	Age      string                 `json:"age"`
	CachedAt time.Time              `json:"cached_at"`
}

// PutStateRequest replaces the cached snapshot.
type PutStateRequest struct {
	State    domain.CachedAuthState `json:"state"`
	Metadata domain.CacheMetadata   `json:"metadata"`
}

// CleanupResponse reports a manual cleanup pass.
type CleanupResponse struct {
	Removed int `json:"removed"`
}

type StateHandler struct {
	Service *service.SessionService
}

// HandleGet godoc
//
//	@Summary		Get the cached auth state
//	@Description	Returns the cached snapshot from memory or durable storage. Set allow_stale
//	@Description	to accept snapshots past the expiry window but inside the stale limit.
//	@Tags			Session
//	@Produce		json
//	@Param			allow_stale	query		bool	false	"accept stale snapshots"
//	@Success		200			{object}	StateResponse
//	@Failure		400			{object}	httpx.ErrorBody
//	@Failure		404			{object}	httpx.ErrorBody
//	@Router			/v1/session/state [get].
func (h *StateHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	allowStale := false
	if v := r.URL.Query().Get("allow_stale"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, errCodeInvalidRequest, "allow_stale must be a boolean")
			return
		}
		allowStale = parsed
	}

	entry, ok := h.Service.GetCachedAuthState(r.Context(), allowStale)
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, errCodeNotFound, "no valid cached state")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, StateResponse{
		State:    entry.State,
		Metadata: entry.Metadata,
		Source:   entry.Source,
		Age:      entry.Age.String(),
		CachedAt: entry.CachedAt,
	})
}

// HandlePut godoc
//
//	@Summary		Cache an auth state
//	@Description	Validates and caches a snapshot in memory and, when persistence is enabled,
//	@Description	durably. A durable write failure is logged and does not fail the request.
//	@Tags			Session
//	@Accept			json
//	@Param			request	body	PutStateRequest	true	"snapshot and metadata"
//	@Success		204
//	@Failure		400	{object}	httpx.ErrorBody
//	@Router			/v1/session/state [put].
func (h *StateHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	var req PutStateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, errCodeInvalidRequest, "invalid JSON body")
		return
	}

	if err := h.Service.CacheAuthState(r.Context(), req.State, req.Metadata); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete godoc
//
//	@Summary		Clear the cached auth state
//	@Tags			Session
//	@Param			reason	query	string	false	"reason published with state_cleared"	default(manual)
//	@Success		204
//	@Router			/v1/session/state [delete].
func (h *StateHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.ClearCachedState(r.Context(), r.URL.Query().Get("reason")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCleanup godoc
//
//	@Summary		Run a cleanup pass now
//	@Description	Removes stale snapshots and expired lifecycle records and reports how many were removed.
//	@Tags			Session
//	@Produce		json
//	@Success		200	{object}	CleanupResponse
//	@Router			/v1/session/cleanup [post].
func (h *StateHandler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	removed := h.Service.Housekeeping().RunOnce(r.Context())
	httpx.WriteJSON(w, http.StatusOK, CleanupResponse{Removed: removed})
}
