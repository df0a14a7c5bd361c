// Package telemetry exports session-level interception summaries over
// OTLP. Nothing here runs on the exception path: the provider is built at
// startup and the session span is emitted once, at shutdown, from normal
// execution context.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/sentinelmon/sentinel/internal/config"
	"github.com/sentinelmon/sentinel/internal/veh"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// InitProvider builds an OTLP/HTTP tracer provider from the standard OTEL
// environment configuration. The HTTP client honors HTTP_PROXY/HTTPS_PROXY
// through the standard transport.
func InitProvider(cfg *config.OTELConfig) (*sdktrace.TracerProvider, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.GetEndpoint()),
		otlptracehttp.WithInsecure(),
		otlptracehttp.WithTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	opts := []resource.Option{
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	}
	if custom := cfg.ParseResourceAttributes(); len(custom) > 0 {
		opts = append(opts, resource.WithAttributes(custom...))
	}
	res, err := resource.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

// ShutdownProvider flushes remaining spans and shuts the provider down.
func ShutdownProvider(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}
	if err := tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}
	return nil
}

// RecordSession emits one span covering the monitoring session, carrying
// the interception counter snapshot as attributes.
func RecordSession(tracer trace.Tracer, started time.Time, c veh.Counters) {
	_, span := tracer.Start(context.Background(), "sentinel.session",
		trace.WithTimestamp(started))
	span.SetAttributes(
		attribute.Int64("sentinel.access_violations", int64(c.AccessViolations)),
		attribute.Int64("sentinel.guard_page_violations", int64(c.GuardPageViolations)),
		attribute.Int64("sentinel.unmatched_exceptions", int64(c.Unmatched)),
		attribute.Int64("sentinel.format_fallbacks", int64(c.FormatFallbacks)),
	)
	span.End()
}
