package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracer delegates to whichever provider SetupTracing installs; until then
// spans are no-ops.
var Tracer trace.Tracer = otel.Tracer("treegrep")

// SetupTracing exports spans to an OTLP/gRPC collector at endpoint. An empty
// endpoint leaves tracing disabled. The returned function flushes and stops
// the exporter.
func SetupTracing(ctx context.Context, endpoint, runID string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(sdkresource.NewSchemaless(
			attribute.String("service.name", "treegrep"),
			attribute.String("treegrep.run_id", runID),
		)),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}
