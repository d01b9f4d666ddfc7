package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/sessioncache/internal/session/service"
	"github.com/aussiebroadwan/sessioncache/pkg/authsdk"
	"github.com/aussiebroadwan/sessioncache/pkg/httpx"
)

// providerCheckTimeout bounds the identity provider readiness call.
const providerCheckTimeout = 2 * time.Second

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe checking the durable store and the identity provider. A missing
//	@Description	credential provider is reported but does not make the service unready.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, svc *service.SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &authsdk.HealthChecks{
			Store:    "ok",
			Provider: "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := svc.Ping(r.Context()); err != nil {
			checks.Store = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		ctx, cancel := context.WithTimeout(r.Context(), providerCheckTimeout)
		defer cancel()

		configured, err := svc.CheckProvider(ctx)
		switch {
		case !configured:
			checks.Provider = "not configured"
		case err != nil:
			checks.Provider = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		response := authsdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		}
		httpx.WriteJSON(w, statusCode, response)
	}
}
