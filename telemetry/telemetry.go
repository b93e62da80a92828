//
// Tencent is pleased to support the open source community by making playbook-coauthor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// playbook-coauthor-go is licensed under the Apache License Version 2.0.
//
//

// Package telemetry provides OpenTelemetry tracing and metrics for the
// co-authoring client. Instruments are created against the global providers,
// so they are inert no-ops until InitTracerProvider/InitMeterProvider (or a
// caller-supplied provider) is installed.
package telemetry

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"trpc.group/trpc-go/playbook-coauthor-go/log"
)

const instrumentationName = "trpc.group/trpc-go/playbook-coauthor-go"

// Protocol selects the OTLP transport used by the exporters.
type Protocol string

// Supported OTLP protocols.
const (
	ProtocolGRPC Protocol = "grpc"
	ProtocolHTTP Protocol = "http"
)

const (
	defaultEndpoint    = "localhost:4317"
	endpointEnvVar     = "OTEL_EXPORTER_OTLP_ENDPOINT"
	defaultServiceName = "playbook-coauthor"
)

// Tracer is the tracer used for stream-turn spans.
var Tracer trace.Tracer = otel.Tracer(instrumentationName)

// Meter is the meter all client instruments are created from.
var Meter metric.Meter = otel.Meter(instrumentationName)

// Client instruments. They are always non-nil; without an installed meter
// provider they are no-ops.
var (
	// FramesDecoded counts frames successfully decoded from the stream.
	FramesDecoded metric.Int64Counter
	// FramesDropped counts malformed or unknown frames dropped by the decoder.
	FramesDropped metric.Int64Counter
	// PatchOperations counts canvas mutations applied from patches.
	PatchOperations metric.Int64Counter
	// StreamDuration records wall-clock seconds per streamed turn.
	StreamDuration metric.Float64Histogram
)

func init() {
	var err error
	if FramesDecoded, err = Meter.Int64Counter(
		"coauthor_frames_decoded",
		metric.WithDescription("Frames decoded from the co-authoring stream"),
		metric.WithUnit("1"),
	); err != nil {
		log.Errorf("telemetry: failed to create frames decoded counter: %v", err)
	}
	if FramesDropped, err = Meter.Int64Counter(
		"coauthor_frames_dropped",
		metric.WithDescription("Malformed or unknown frames dropped by the decoder"),
		metric.WithUnit("1"),
	); err != nil {
		log.Errorf("telemetry: failed to create frames dropped counter: %v", err)
	}
	if PatchOperations, err = Meter.Int64Counter(
		"coauthor_patch_operations",
		metric.WithDescription("Canvas mutations applied from streamed patches"),
		metric.WithUnit("1"),
	); err != nil {
		log.Errorf("telemetry: failed to create patch operations counter: %v", err)
	}
	if StreamDuration, err = Meter.Float64Histogram(
		"coauthor_stream_duration",
		metric.WithDescription("Duration of one streamed co-authoring turn"),
		metric.WithUnit("s"),
	); err != nil {
		log.Errorf("telemetry: failed to create stream duration histogram: %v", err)
	}
}

// CountFramesDecoded adds n to the decoded-frame counter.
func CountFramesDecoded(ctx context.Context, n int64) {
	if FramesDecoded != nil {
		FramesDecoded.Add(ctx, n)
	}
}

// CountFramesDropped adds n to the dropped-frame counter.
func CountFramesDropped(ctx context.Context, n int64) {
	if FramesDropped != nil {
		FramesDropped.Add(ctx, n)
	}
}

// CountPatchOperations adds n to the applied-operation counter.
func CountPatchOperations(ctx context.Context, n int64) {
	if PatchOperations != nil {
		PatchOperations.Add(ctx, n)
	}
}

// RecordStreamDuration records one turn's wall-clock duration in seconds.
func RecordStreamDuration(ctx context.Context, seconds float64) {
	if StreamDuration != nil {
		StreamDuration.Record(ctx, seconds)
	}
}

// options holds exporter configuration shared by trace and metric setup.
type options struct {
	endpoint    string
	protocol    Protocol
	serviceName string
}

// Option configures telemetry setup.
type Option func(*options)

// WithEndpoint sets the OTLP collector endpoint. Defaults to the
// OTEL_EXPORTER_OTLP_ENDPOINT environment variable, then localhost:4317.
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
	}
}

// WithProtocol selects the OTLP transport. Defaults to grpc.
func WithProtocol(p Protocol) Option {
	return func(o *options) {
		o.protocol = p
	}
}

// WithServiceName overrides the reported service name.
func WithServiceName(name string) Option {
	return func(o *options) {
		o.serviceName = name
	}
}

func newOptions(opt ...Option) options {
	opts := options{
		endpoint:    defaultEndpoint,
		protocol:    ProtocolGRPC,
		serviceName: defaultServiceName,
	}
	if v := os.Getenv(endpointEnvVar); v != "" {
		opts.endpoint = v
	}
	for _, o := range opt {
		o(&opts)
	}
	return opts
}
