// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for consistent tracing across the application.
const (
	// Resource attributes
	ServiceNameKey           = "service.name"
	ServiceVersionKey        = "service.version"
	DeploymentEnvironmentKey = "deployment.environment"

	// Block attributes
	BlockIDKey  = "block.id"
	BlockOpKey  = "block.operation"
	UserIDKey   = "block.user_id"
	ProgressKey = "block.progress"

	// MediaCMS attributes
	MediaTokenKey    = "mediacms.token"
	MediaBaseKey     = "mediacms.base_url"
	MediaSourceKey   = "mediacms.source_kind"
	MediaCacheHitKey = "mediacms.cache_hit"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// BlockAttributes creates block-operation span attributes.
func BlockAttributes(blockID, userID, operation string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if blockID != "" {
		attrs = append(attrs, attribute.String(BlockIDKey, blockID))
	}
	if userID != "" {
		attrs = append(attrs, attribute.String(UserIDKey, userID))
	}
	if operation != "" {
		attrs = append(attrs, attribute.String(BlockOpKey, operation))
	}
	return attrs
}

// MediaAttributes creates MediaCMS resolution span attributes.
func MediaAttributes(baseURL, token string, cacheHit bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(MediaBaseKey, baseURL),
		attribute.String(MediaTokenKey, token),
		attribute.Bool(MediaCacheHitKey, cacheHit),
	}
}

// ErrorAttributes marks a span as failed with a classified error kind.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}

// Annotate adds attrs to the span carried by ctx, if any.
func Annotate(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

// ProgressAttribute records the stored high-water mark after a report.
func ProgressAttribute(progress int) attribute.KeyValue {
	return attribute.Int(ProgressKey, progress)
}

// SourceAttribute records which playback source a render selected.
func SourceAttribute(kind string) attribute.KeyValue {
	return attribute.String(MediaSourceKey, kind)
}
