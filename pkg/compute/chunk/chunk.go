// Package chunk splits a work range into spans for parallel execution.
package chunk

// Server-side planning defaults. A hundred chunks keeps progress reporting
// granular without drowning small tasks in scheduling overhead.
const (
	DefaultMaxChunks int64 = 100
	DefaultMinSize   int64 = 100
)

// Span is a half-open [Lo, Hi) slice of the work range.
type Span struct {
	Lo int64
	Hi int64
}

// Size returns the number of elements covered by the span.
func (s Span) Size() int64 {
	return s.Hi - s.Lo
}

// Plan divides total elements into at most maxChunks contiguous spans
// covering [0, total) in order.
//
// When the total fits in maxChunks chunks of minSize, it emits full minSize
// spans plus one smaller remainder span. Otherwise it emits exactly maxChunks
// spans whose sizes differ by at most one, larger spans first. Non-positive
// arguments yield no spans.
func Plan(total, minSize, maxChunks int64) []Span {
	if total <= 0 || minSize <= 0 || maxChunks <= 0 {
		return nil
	}
	if maxChunks == 1 {
		return []Span{{0, total}}
	}

	if (total+minSize-1)/minSize <= maxChunks {
		n := total / minSize
		spans := make([]Span, 0, n+1)
		var lo int64
		for i := int64(0); i < n; i++ {
			spans = append(spans, Span{lo, lo + minSize})
			lo += minSize
		}
		if lo < total {
			spans = append(spans, Span{lo, total})
		}
		return spans
	}

	base := total / maxChunks
	extra := total % maxChunks
	spans := make([]Span, 0, maxChunks)
	var lo int64
	for i := int64(0); i < maxChunks; i++ {
		size := base
		if i < extra {
			size++
		}
		spans = append(spans, Span{lo, lo + size})
		lo += size
	}
	return spans
}
