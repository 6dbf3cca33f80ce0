package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// otelTracer resolves a named tracer from the global OTEL TracerProvider.
// Configure the provider via clue.ConfigureOpenTelemetry (or the
// OTEL_EXPORTER_OTLP_ENDPOINT environment variable) before constructing
// runtime components.
func otelTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
