package http

import (
	"net/http"

	"github.com/aussiebroadwan/sessioncache/internal/session/service"
	"github.com/aussiebroadwan/sessioncache/pkg/httpx"
)

type StatusHandler struct {
	Service *service.SessionService
}

// ServeHTTP godoc
//
//	@Summary		Service status
//	@Description	Reports phase, timestamps, listener count, configuration, the cached snapshot
//	@Description	summary, the token ledger summary and housekeeping statistics. Tokens are never included.
//	@Tags			Session
//	@Produce		json
//	@Success		200	{object}	service.Status
//	@Router			/v1/session/status [get].
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.Service.GetServiceStatus(r.Context()))
}
