package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "secretsdir"

// StartLoadSpan starts a span for one secrets load.
func StartLoadSpan(ctx context.Context, backend, location string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "secrets.load",
		trace.WithAttributes(
			attribute.String("secrets.backend", backend),
			attribute.String("secrets.location", location),
		),
	)
}
