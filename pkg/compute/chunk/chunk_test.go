package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

// checkPartition asserts that spans form an in-order partition of [0, total).
func checkPartition(t *testing.T, spans []Span, total int64) {
	t.Helper()

	require.NotEmpty(t, spans)
	assert.Equal(t, int64(0), spans[0].Lo, "first span must start at 0")
	assert.Equal(t, total, spans[len(spans)-1].Hi, "last span must end at total")

	var covered int64
	for i, s := range spans {
		assert.Less(t, s.Lo, s.Hi, "span %d must be non-empty", i)
		if i > 0 {
			assert.Equal(t, spans[i-1].Hi, s.Lo, "span %d must start where span %d ends", i, i-1)
		}
		covered += s.Size()
	}
	assert.Equal(t, total, covered, "spans must cover every element exactly once")
}

// ============================================================================
// Degenerate Input Tests
// ============================================================================

func TestPlan_InvalidArguments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		total     int64
		minSize   int64
		maxChunks int64
	}{
		{name: "zero total", total: 0, minSize: 100, maxChunks: 100},
		{name: "negative total", total: -5, minSize: 100, maxChunks: 100},
		{name: "zero min size", total: 1000, minSize: 0, maxChunks: 100},
		{name: "negative min size", total: 1000, minSize: -1, maxChunks: 100},
		{name: "zero max chunks", total: 1000, minSize: 100, maxChunks: 0},
		{name: "negative max chunks", total: 1000, minSize: 100, maxChunks: -3},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Empty(t, Plan(tt.total, tt.minSize, tt.maxChunks))
		})
	}
}

func TestPlan_SingleChunk(t *testing.T) {
	t.Parallel()

	spans := Plan(12345, 100, 1)

	require.Len(t, spans, 1)
	assert.Equal(t, Span{0, 12345}, spans[0])
}

// ============================================================================
// Minimum-Size Mode Tests
// ============================================================================

func TestPlan_SmallTotalUsesMinSizeSpans(t *testing.T) {
	t.Parallel()

	// 250 elements fit in 3 chunks of at least 100, well under the cap.
	spans := Plan(250, 100, 100)

	require.Len(t, spans, 3)
	assert.Equal(t, Span{0, 100}, spans[0])
	assert.Equal(t, Span{100, 200}, spans[1])
	assert.Equal(t, Span{200, 250}, spans[2], "remainder rides in the final short span")
	checkPartition(t, spans, 250)
}

func TestPlan_ExactMultipleHasNoRemainderSpan(t *testing.T) {
	t.Parallel()

	spans := Plan(300, 100, 100)

	require.Len(t, spans, 3)
	for i, s := range spans {
		assert.Equal(t, int64(100), s.Size(), "span %d", i)
	}
	checkPartition(t, spans, 300)
}

func TestPlan_TotalBelowMinSize(t *testing.T) {
	t.Parallel()

	spans := Plan(42, 100, 100)

	require.Len(t, spans, 1)
	assert.Equal(t, Span{0, 42}, spans[0])
}

// ============================================================================
// Balanced Mode Tests
// ============================================================================

func TestPlan_LargeTotalCapsChunkCount(t *testing.T) {
	t.Parallel()

	// 100050 elements at minSize 100 would need 1001 chunks, so the planner
	// must fall back to exactly maxChunks spans.
	const total = 100050
	spans := Plan(total, 100, 100)

	require.Len(t, spans, 100)
	checkPartition(t, spans, total)

	// 100050 = 100*1000 + 50: the first 50 spans take the extra element.
	for i, s := range spans {
		if i < 50 {
			assert.Equal(t, int64(1001), s.Size(), "span %d", i)
		} else {
			assert.Equal(t, int64(1000), s.Size(), "span %d", i)
		}
	}
}

func TestPlan_BalancedSizesDifferByAtMostOne(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		total     int64
		minSize   int64
		maxChunks int64
	}{
		{name: "prime total", total: 99991, minSize: 10, maxChunks: 17},
		{name: "power of two", total: 1 << 20, minSize: 1, maxChunks: 100},
		{name: "barely over cap", total: 1001, minSize: 10, maxChunks: 100},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			spans := Plan(tt.total, tt.minSize, tt.maxChunks)

			require.Len(t, spans, int(tt.maxChunks))
			checkPartition(t, spans, tt.total)

			min, max := spans[0].Size(), spans[0].Size()
			for _, s := range spans {
				if s.Size() < min {
					min = s.Size()
				}
				if s.Size() > max {
					max = s.Size()
				}
			}
			assert.LessOrEqual(t, max-min, int64(1), "span sizes must differ by at most one")
			assert.GreaterOrEqual(t, spans[0].Size(), spans[len(spans)-1].Size(), "larger spans come first")
		})
	}
}

// ============================================================================
// Default Tests
// ============================================================================

func TestPlan_Defaults(t *testing.T) {
	t.Parallel()

	spans := Plan(10_000_000, DefaultMinSize, DefaultMaxChunks)

	require.Len(t, spans, int(DefaultMaxChunks))
	checkPartition(t, spans, 10_000_000)
	for i, s := range spans {
		assert.Equal(t, int64(100_000), s.Size(), "span %d", i)
	}
}
