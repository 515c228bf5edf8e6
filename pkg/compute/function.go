package compute

import (
	"github.com/SyntheticEdelweiss/ClientServerExample/internal/protocol/wire"
	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/compute/chunk"
)

// functionRunner tabulates f(x) for x = xFrom, xFrom+xStep, … ≤ xTo.
// Planning runs over point indexes, so chunk k's x values never depend on
// other chunks. Function values are computed in wrapping 32-bit signed
// arithmetic; overflow is a documented property of the integer width, not a
// condition the runner guards against.
type functionRunner struct {
	req   *wire.CalculateFunction
	spans []chunk.Span
	slots [][]wire.Point
}

func newFunctionRunner(req *wire.CalculateFunction, cfg Config) *functionRunner {
	// xStep below 1 cannot make progress; plan nothing and the task
	// completes as an empty tabulation.
	var total int64
	if req.XStep >= 1 && req.XFrom <= req.XTo {
		total = (int64(req.XTo)-int64(req.XFrom))/int64(req.XStep) + 1
	}
	spans := chunk.Plan(total, cfg.MinChunkSize, cfg.MaxChunks)
	return &functionRunner{
		req:   req,
		spans: spans,
		slots: make([][]wire.Point, len(spans)),
	}
}

func (r *functionRunner) chunks() int {
	return len(r.spans)
}

func (r *functionRunner) run(i int) {
	s := r.spans[i]
	points := make([]wire.Point, 0, s.Size())
	for k := s.Lo; k < s.Hi; k++ {
		// Index math in 64-bit; x itself stays within [xFrom, xTo].
		x := int32(int64(r.req.XFrom) + k*int64(r.req.XStep))
		points = append(points, wire.Point{X: x, Y: evaluate(r.req, x)})
	}
	r.slots[i] = points
}

func (r *functionRunner) reduce() wire.Request {
	var n int
	for _, slot := range r.slots {
		n += len(slot)
	}
	points := make([]wire.Point, 0, n)
	for _, slot := range r.slots {
		points = append(points, slot...)
	}
	r.req.Points = points
	return r.req
}

func evaluate(req *wire.CalculateFunction, x int32) int32 {
	if req.Equation == wire.EquationQuadratic {
		return req.A*x*x + req.B*x + req.C
	}
	return req.A*x + req.B
}
