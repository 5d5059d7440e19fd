// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{ServiceName: "mediablock", ExporterType: "grpc"})
	require.NoError(t, err)
	assert.False(t, p.Enabled())

	_, span := otel.Tracer("test").Start(context.Background(), "block.student_view")
	assert.False(t, span.IsRecording())
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_UnknownExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ExporterType: "zipkin"})
	require.EqualError(t, err, "unsupported exporter type: zipkin (supported: grpc, http)")
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, sampler(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
	assert.Contains(t, sampler(0.25).Description(), "ParentBased")
}

func TestNilProviderShutdown(t *testing.T) {
	var p *Provider
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestBlockAttributesSkipsEmpty(t *testing.T) {
	attrs := BlockAttributes("blk", "", "render")
	require.Len(t, attrs, 2)
	assert.Equal(t, BlockIDKey, string(attrs[0].Key))
	assert.Equal(t, "blk", attrs[0].Value.AsString())
	assert.Equal(t, BlockOpKey, string(attrs[1].Key))
}

func TestAnnotate(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "block.report_progress")
	Annotate(ctx, ProgressAttribute(42), SourceAttribute("hls"))
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	got := map[string]attribute.Value{}
	for _, kv := range ended[0].Attributes() {
		got[string(kv.Key)] = kv.Value
	}
	assert.Equal(t, int64(42), got[ProgressKey].AsInt64())
	assert.Equal(t, "hls", got[MediaSourceKey].AsString())

	// no span in context: must not panic
	Annotate(context.Background(), ProgressAttribute(1))
}
