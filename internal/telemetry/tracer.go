package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for compute operations.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Client attributes
	// ========================================================================
	AttrClientAddr = "client.address"
	AttrUsername   = "user.name"

	// ========================================================================
	// Frame attributes
	// ========================================================================
	AttrFrameType  = "frame.type"
	AttrFrameBytes = "frame.bytes"

	// ========================================================================
	// Task attributes
	// ========================================================================
	AttrTaskID     = "task.id"
	AttrTaskKind   = "task.kind"
	AttrTaskChunks = "task.chunks"

	// ========================================================================
	// Cache attributes
	// ========================================================================
	AttrCacheHit = "cache.hit"
)

// Span names for operations.
// Format: <component>.<operation>
const (
	SpanTaskExecute   = "task.execute"
	SpanFrameDispatch = "frame.dispatch"
)

// ClientAddr creates a client address attribute (ip:port).
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// Username creates a username attribute.
func Username(name string) attribute.KeyValue {
	return attribute.String(AttrUsername, name)
}

// FrameType creates a frame type attribute.
func FrameType(t string) attribute.KeyValue {
	return attribute.String(AttrFrameType, t)
}

// FrameBytes creates a frame payload size attribute.
func FrameBytes(n int) attribute.KeyValue {
	return attribute.Int(AttrFrameBytes, n)
}

// TaskID creates a task identifier attribute.
func TaskID(id string) attribute.KeyValue {
	return attribute.String(AttrTaskID, id)
}

// TaskKind creates a task kind attribute (sort, primes, function).
func TaskKind(kind string) attribute.KeyValue {
	return attribute.String(AttrTaskKind, kind)
}

// TaskChunks creates a planned chunk count attribute.
func TaskChunks(n int) attribute.KeyValue {
	return attribute.Int(AttrTaskChunks, n)
}

// CacheHit creates a cache hit/miss attribute.
func CacheHit(hit bool) attribute.KeyValue {
	return attribute.Bool(AttrCacheHit, hit)
}

// StartTaskSpan starts a span covering one task execution.
func StartTaskSpan(ctx context.Context, kind, id string, chunks int, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := make([]attribute.KeyValue, 0, len(attrs)+3)
	all = append(all, TaskKind(kind), TaskID(id), TaskChunks(chunks))
	all = append(all, attrs...)
	return StartSpan(ctx, SpanTaskExecute, trace.WithAttributes(all...))
}

// StartDispatchSpan starts a span covering the handling of one inbound frame.
func StartDispatchSpan(ctx context.Context, frameType string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := make([]attribute.KeyValue, 0, len(attrs)+1)
	all = append(all, FrameType(frameType))
	all = append(all, attrs...)
	return StartSpan(ctx, SpanFrameDispatch, trace.WithAttributes(all...))
}
