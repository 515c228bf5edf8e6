package compute

import (
	"fmt"
	"slices"

	"github.com/SyntheticEdelweiss/ClientServerExample/internal/protocol/wire"
	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/compute/chunk"
)

// newKindRunner builds the per-kind runner for a task submission.
func newKindRunner(req wire.Request, cfg Config) (kindRunner, error) {
	switch q := req.(type) {
	case *wire.SortArray:
		return newSortRunner(q, cfg), nil
	case *wire.FindPrimeNumbers:
		return newPrimesRunner(q, cfg), nil
	case *wire.CalculateFunction:
		return newFunctionRunner(q, cfg), nil
	default:
		return nil, fmt.Errorf("%s is not a task submission", req.Type())
	}
}

// sortRunner sorts disjoint slices of the input in parallel and merges them
// in chunk order.
type sortRunner struct {
	req   *wire.SortArray
	spans []chunk.Span
}

func newSortRunner(req *wire.SortArray, cfg Config) *sortRunner {
	return &sortRunner{
		req:   req,
		spans: chunk.Plan(int64(len(req.Numbers)), cfg.MinChunkSize, cfg.MaxChunks),
	}
}

func (r *sortRunner) chunks() int {
	return len(r.spans)
}

// run sorts the chunk's slice in place. Spans are disjoint, so concurrent
// chunks never touch the same elements.
func (r *sortRunner) run(i int) {
	s := r.spans[i]
	slices.Sort(r.req.Numbers[s.Lo:s.Hi])
}

// reduce merges the sorted chunks pairwise in chunk order, equivalent to a
// final k-way ordered merge.
func (r *sortRunner) reduce() wire.Request {
	if len(r.spans) > 1 {
		nums := r.req.Numbers
		out := append(make([]int32, 0, len(nums)), nums[r.spans[0].Lo:r.spans[0].Hi]...)
		buf := make([]int32, 0, len(nums))
		for _, s := range r.spans[1:] {
			buf = mergeSorted(buf[:0], out, nums[s.Lo:s.Hi])
			out, buf = buf, out
		}
		r.req.Numbers = out
	}
	return r.req
}

// mergeSorted appends the ordered merge of sorted slices a and b to dst.
func mergeSorted(dst, a, b []int32) []int32 {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if b[j] < a[i] {
			dst = append(dst, b[j])
			j++
		} else {
			dst = append(dst, a[i])
			i++
		}
	}
	dst = append(dst, a[i:]...)
	return append(dst, b[j:]...)
}
