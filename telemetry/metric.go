//
// Tencent is pleased to support the open source community by making playbook-coauthor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// playbook-coauthor-go is licensed under the Apache License Version 2.0.
//
//

package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// InitMeterProvider installs a meter provider exporting metrics over OTLP,
// rebinds the package instruments to it, and returns a shutdown function.
func InitMeterProvider(ctx context.Context, opt ...Option) (func(context.Context) error, error) {
	opts := newOptions(opt...)

	var (
		exporter sdkmetric.Exporter
		err      error
	)
	switch opts.protocol {
	case ProtocolHTTP:
		exporter, err = otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpoint(opts.endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	default:
		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(opts.endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(opts.serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build metric resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	Meter = mp.Meter(instrumentationName)
	if FramesDecoded, err = Meter.Int64Counter(
		"coauthor_frames_decoded",
		metric.WithDescription("Frames decoded from the co-authoring stream"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create frames decoded counter: %w", err)
	}
	if FramesDropped, err = Meter.Int64Counter(
		"coauthor_frames_dropped",
		metric.WithDescription("Malformed or unknown frames dropped by the decoder"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create frames dropped counter: %w", err)
	}
	if PatchOperations, err = Meter.Int64Counter(
		"coauthor_patch_operations",
		metric.WithDescription("Canvas mutations applied from streamed patches"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create patch operations counter: %w", err)
	}
	if StreamDuration, err = Meter.Float64Histogram(
		"coauthor_stream_duration",
		metric.WithDescription("Duration of one streamed co-authoring turn"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create stream duration histogram: %w", err)
	}
	return mp.Shutdown, nil
}
