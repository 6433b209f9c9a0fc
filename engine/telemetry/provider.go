// Package telemetry installs the OpenTelemetry tracer provider used by the avatar and animator spans.
package telemetry

import (
	"context"
	"fmt"
	"log"

	"github.com/Carmen-Shannon/oxy-vrm/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ShutdownFunc flushes pending spans and stops the provider.
type ShutdownFunc func(context.Context) error

// Setup installs a global tracer provider exporting over OTLP/HTTP when cfg.OTelEnabled is set.
// Otherwise nothing is registered, spans go to the default no-op provider, and the returned shutdown does nothing.
//
// Parameters:
//   - ctx: the context used to build the exporter
//   - cfg: the viewer configuration
//
// Returns:
//   - ShutdownFunc: flushes and stops the provider; always non-nil
//   - error: error if the exporter or resource cannot be created
func Setup(ctx context.Context, cfg config.Config) (ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.OTelEnabled {
		return noop, nil
	}

	var opts []otlptracehttp.Option
	if cfg.OTelEndpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpointURL(cfg.OTelEndpoint))
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return noop, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", cfg.OTelServiceName),
	))
	if err != nil {
		return noop, fmt.Errorf("failed to create trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	log.Printf("[Telemetry] tracing enabled for %q", cfg.OTelServiceName)

	return tp.Shutdown, nil
}
