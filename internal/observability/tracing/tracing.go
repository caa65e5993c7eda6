// Package tracing installs the global OpenTelemetry tracer provider.
package tracing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"ReviewScanner/internal/config"
)

// Shutdown flushes and stops the provider.
type Shutdown func(context.Context) error

func noop(context.Context) error { return nil }

// Setup exports spans over OTLP/HTTP when an endpoint is configured.
// Without one the global no-op provider stays in place.
func Setup(ctx context.Context, cfg config.TracingConfig, logger *slog.Logger) (Shutdown, error) {
	if cfg.Endpoint == "" {
		return noop, nil
	}

	res, err := newResource(cfg.ServiceName)
	if err != nil {
		return noop, fmt.Errorf("tracing resource: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	exporter, err := otlptracehttp.New(dialCtx, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	if err != nil {
		return noop, fmt.Errorf("tracing exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	if logger != nil {
		logger.Info("tracer export initialized", "type", "http", "endpoint", cfg.Endpoint)
	}
	return provider.Shutdown, nil
}

func newResource(serviceName string) (*resource.Resource, error) {
	if serviceName == "" {
		serviceName = "reviewscanner"
	}
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
}
