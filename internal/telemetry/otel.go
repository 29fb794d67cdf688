package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// SetupMetrics registers a global meter provider exporting over OTLP gRPC,
// so the cache's meter observer has somewhere to send its counters. An empty
// endpoint leaves the exporter on its own defaults (localhost, or the
// standard OTEL_EXPORTER_OTLP_* variables).
//
// The returned shutdown flushes pending metrics and stops the provider.
func SetupMetrics(ctx context.Context, serviceName, endpoint string) (func(context.Context) error, error) {
	exporterOpts := []otlpmetricgrpc.Option{
		// Collector sidecar; TLS terminates before it
		otlpmetricgrpc.WithInsecure(),
	}
	if endpoint != "" {
		exporterOpts = append(exporterOpts, otlpmetricgrpc.WithEndpoint(endpoint))
	}

	exporter, err := otlpmetricgrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			resource.Default().SchemaURL(),
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	meterProvider := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter)),
		metric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	return meterProvider.Shutdown, nil
}
