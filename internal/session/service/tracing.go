package service

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/aussiebroadwan/sessioncache/internal/session/service"

// tracer resolves against the global provider, which is a no-op unless the
// application installed an exporter.
func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
