package compute

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/SyntheticEdelweiss/ClientServerExample/internal/logger"
	"github.com/SyntheticEdelweiss/ClientServerExample/internal/protocol/wire"
	"github.com/SyntheticEdelweiss/ClientServerExample/internal/telemetry"
)

// ErrPoolStopped reports that the pool shut down before every chunk of a
// task could be scheduled.
var ErrPoolStopped = errors.New("compute pool stopped")

// kindRunner is the per-kind half of a task: chunk bodies plus the final
// reduction. run is invoked from pool workers with distinct indexes, so
// implementations write only to their own slot. reduce is invoked once,
// after every chunk ran.
type kindRunner interface {
	chunks() int
	run(i int)
	reduce() wire.Request
}

// runner coordinates one launched task: accounting, progress emission,
// failure collection and the single terminal callback.
type runner struct {
	task    *Task
	kind    kindRunner
	total   int
	emit    EmitFunc
	done    DoneFunc
	metrics *Metrics
	started time.Time

	ctx  context.Context
	span trace.Span

	mu        sync.Mutex
	accounted int
	failErr   error
}

// feed submits every chunk to the pool in index order. Submission blocks on
// a full queue; if the pool stops mid-feed the remaining chunks are written
// off and the task fails.
func (r *runner) feed(pool *Pool) {
	for i := 0; i < r.total; i++ {
		i := i
		if !pool.Submit(func() { r.runChunk(i) }) {
			r.fail(ErrPoolStopped)
			r.account(r.total - i)
			return
		}
	}
}

// runChunk executes chunk i if the task is still running, then accounts it.
// A cancelling or failing task skips the body, which is what bounds
// cancellation latency to one chunk.
func (r *runner) runChunk(i int) {
	if r.task.State() == StateRunning {
		func() {
			defer func() {
				if p := recover(); p != nil {
					r.fail(fmt.Errorf("chunk %d panicked: %v", i, p))
				}
			}()
			r.kind.run(i)
		}()
		r.metrics.RecordChunk()
	}
	r.account(1)
}

// fail records the first failure and aborts the task.
func (r *runner) fail(err error) {
	r.mu.Lock()
	if r.failErr == nil {
		r.failErr = err
	}
	r.mu.Unlock()
	r.task.abort()

	logger.Error("Task chunk failed",
		"taskID", r.task.id,
		"kind", r.task.kind.String(),
		"error", err)
}

// account marks n chunks as settled (run or skipped) and emits progress
// while the task is healthy. Emission happens under the lock so observed
// ProgressValue frames are strictly increasing.
func (r *runner) account(n int) {
	r.mu.Lock()
	r.accounted += n
	settled := r.accounted
	healthy := r.failErr == nil && r.task.State() == StateRunning
	if healthy {
		r.emit(&wire.ProgressValue{Value: int32(settled)})
	}
	r.mu.Unlock()

	if settled == r.total {
		r.finish()
	}
}

// finish delivers the terminal outcome exactly once.
func (r *runner) finish() {
	if !r.task.claimFinish() {
		return
	}

	r.mu.Lock()
	err := r.failErr
	r.mu.Unlock()
	cancelled := r.task.userCancelled.Load()

	var out Outcome
	var status string
	switch {
	case cancelled:
		out.Cancelled = true
		status = "cancelled"
		telemetry.AddEvent(r.ctx, "task.cancelled")
	case err != nil:
		out.Err = err
		status = "failed"
		telemetry.RecordError(r.ctx, err)
	default:
		out.Result = r.reduceSafely(&out)
		status = "completed"
		if out.Err != nil {
			status = "failed"
		}
	}

	elapsed := time.Since(r.started)
	r.metrics.RecordTask(r.task.kind.String(), status, elapsed.Seconds())
	r.span.End()

	logger.Debug("Task finished",
		"taskID", r.task.id,
		"kind", r.task.kind.String(),
		"status", status,
		"duration", elapsed)

	r.done(out)
}

// reduceSafely runs the kind reduction, converting a panic into a failed
// outcome instead of taking down the worker.
func (r *runner) reduceSafely(out *Outcome) (result wire.Request) {
	defer func() {
		if p := recover(); p != nil {
			out.Err = fmt.Errorf("result reduction panicked: %v", p)
			telemetry.RecordError(r.ctx, out.Err)
			result = nil
		}
	}()
	return r.kind.reduce()
}
