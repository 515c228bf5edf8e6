package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	shutdown, err := Init(ctx, Config{Enabled: false, ServiceName: "computeserver"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.False(t, IsEnabled())
	assert.NoError(t, shutdown(ctx), "no-op shutdown must not fail")
}

func TestSpanHelpers_SafeWithoutInit(t *testing.T) {
	// The package-level tracer starts as a no-op, so spans, events, and
	// error recording must all work before Init ever runs.
	ctx := context.Background()

	spanCtx, span := StartSpan(ctx, "test.operation")
	require.NotNil(t, spanCtx)
	require.NotNil(t, span)
	span.End()

	require.NotPanics(t, func() {
		AddEvent(ctx, "task.cancelled")
		RecordError(ctx, nil)
		RecordError(ctx, errors.New("chunk failed"))
	})
}

func TestAttributeHelpers(t *testing.T) {
	addr := ClientAddr("192.168.1.100:12345")
	assert.Equal(t, AttrClientAddr, string(addr.Key))
	assert.Equal(t, "192.168.1.100:12345", addr.Value.AsString())

	user := Username("alice")
	assert.Equal(t, AttrUsername, string(user.Key))
	assert.Equal(t, "alice", user.Value.AsString())

	frameType := FrameType("SortArray")
	assert.Equal(t, AttrFrameType, string(frameType.Key))
	assert.Equal(t, "SortArray", frameType.Value.AsString())

	frameBytes := FrameBytes(4096)
	assert.Equal(t, AttrFrameBytes, string(frameBytes.Key))
	assert.Equal(t, int64(4096), frameBytes.Value.AsInt64())

	kind := TaskKind("FindPrimeNumbers")
	assert.Equal(t, AttrTaskKind, string(kind.Key))
	assert.Equal(t, "FindPrimeNumbers", kind.Value.AsString())

	chunks := TaskChunks(100)
	assert.Equal(t, AttrTaskChunks, string(chunks.Key))
	assert.Equal(t, int64(100), chunks.Value.AsInt64())

	hit := CacheHit(true)
	assert.Equal(t, AttrCacheHit, string(hit.Key))
	assert.True(t, hit.Value.AsBool())

	id := TaskID("b2f9d1e0-0000-4000-8000-000000000000")
	assert.Equal(t, AttrTaskID, string(id.Key))
	assert.Equal(t, "b2f9d1e0-0000-4000-8000-000000000000", id.Value.AsString())
}

func TestStartTaskSpan(t *testing.T) {
	ctx := context.Background()

	spanCtx, span := StartTaskSpan(ctx, "SortArray", "task-1", 10)
	require.NotNil(t, spanCtx)
	require.NotNil(t, span)
	span.End()

	spanCtx2, span2 := StartTaskSpan(ctx, "CalculateFunction", "task-2", 100, Username("bob"))
	require.NotNil(t, spanCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartDispatchSpan(t *testing.T) {
	spanCtx, span := StartDispatchSpan(context.Background(), "CancelCurrentTask", ClientAddr("127.0.0.1:5000"))
	require.NotNil(t, spanCtx)
	require.NotNil(t, span)
	span.End()
}
