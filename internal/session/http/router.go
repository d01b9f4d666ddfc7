package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/sessioncache/internal/session/service"
	"github.com/aussiebroadwan/sessioncache/pkg/httpx"
	"github.com/aussiebroadwan/sessioncache/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/aussiebroadwan/sessioncache/api/session" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	Service *service.SessionService

	// Gatherer backs /metrics. The endpoint is not mounted when nil.
	Gatherer prometheus.Gatherer

	// ControlLimit applies to mutating routes, ReadLimit to reads and probes.
	ControlLimit httpx.RateLimitConfig
	ReadLimit    httpx.RateLimitConfig

	// EventOrigins are the origin patterns accepted by the websocket stream.
	EventOrigins []string
}

func NewRouter(svc *service.SessionService, buildVersion string, logger *slog.Logger) *Router {
	logger = slogx.OrDiscard(logger)
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		Service:      svc,
		ControlLimit: httpx.ControlLimit,
		ReadLimit:    httpx.ReadLimit,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSystem()
	r.registerSession()
	r.registerLifecycle()
	r.registerCredentials()
	r.registerEvents()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Session Cache Control API
//	@version		0.1.0
//	@description	Diagnostics and control surface of the session cache daemon.
//	@description
//	@description	The daemon owns the token ledger, the cached authentication snapshot and the
//	@description	lifecycle recovery coordinator of a single client session.
//
//	@contact.name	AussieBroadWAN Team
//	@contact.url	https://github.com/aussiebroadwan/sessioncache
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
//
//	@schemes		http
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) read(h http.Handler) http.Handler {
	return httpx.Chain(h, httpx.RateLimitByIP(r.ReadLimit))
}

func (r *Router) control(h http.Handler) http.Handler {
	return httpx.Chain(h, httpx.RateLimitByIP(r.ControlLimit))
}

func (r *Router) registerSystem() {
	// Health check endpoints (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez", r.read(LivezHandler(r.startTime, r.buildVersion)))
	r.Mux.Handle("GET /readyz", r.read(ReadyzHandler(r.startTime, r.buildVersion, r.Service)))

	if r.Gatherer != nil {
		r.Mux.Handle("GET /metrics", promhttp.HandlerFor(r.Gatherer, promhttp.HandlerOpts{}))
	}
}

func (r *Router) registerSession() {
	status := &StatusHandler{Service: r.Service}
	state := &StateHandler{Service: r.Service}

	r.Mux.Handle("GET /v1/session/status", r.read(status))
	r.Mux.Handle("GET /v1/session/state", r.read(http.HandlerFunc(state.HandleGet)))
	r.Mux.Handle("PUT /v1/session/state", r.control(http.HandlerFunc(state.HandlePut)))
	r.Mux.Handle("DELETE /v1/session/state", r.control(http.HandlerFunc(state.HandleDelete)))
	r.Mux.Handle("POST /v1/session/cleanup", r.control(http.HandlerFunc(state.HandleCleanup)))
}

func (r *Router) registerLifecycle() {
	h := &LifecycleHandler{Service: r.Service}

	r.Mux.Handle("POST /v1/lifecycle", r.control(http.HandlerFunc(h.HandleSignal)))
	r.Mux.Handle("POST /v1/session/recover", r.control(http.HandlerFunc(h.HandleRecover)))
}

func (r *Router) registerCredentials() {
	h := &CredentialsHandler{Service: r.Service}

	r.Mux.Handle("GET /v1/session/token", r.read(http.HandlerFunc(h.HandleToken)))
	r.Mux.Handle("POST /v1/session/refresh", r.control(http.HandlerFunc(h.HandleRefresh)))
	r.Mux.Handle("POST /v1/session/sign-in", r.control(http.HandlerFunc(h.HandleSignIn)))
	r.Mux.Handle("POST /v1/session/sign-out", r.control(http.HandlerFunc(h.HandleSignOut)))
	r.Mux.Handle("POST /v1/account/confirm", r.control(http.HandlerFunc(h.HandleConfirmSignUp)))
	r.Mux.Handle("POST /v1/account/forgot-password", r.control(http.HandlerFunc(h.HandleForgotPassword)))
}

func (r *Router) registerEvents() {
	h := &EventsHandler{
		Service:        r.Service,
		Logger:         r.logger.With("component", "events"),
		OriginPatterns: r.EventOrigins,
	}
	r.Mux.Handle("GET /v1/events", r.read(h))
}
