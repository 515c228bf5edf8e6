// Package compute executes submitted tasks across a shared worker pool.
//
// A task is planned into chunks, the chunks run as independent closures on
// the pool, and per-kind reductions assemble the final result in chunk order
// regardless of completion order. Progress is reported once per finished
// chunk; cancellation is cooperative and observed at chunk boundaries.
package compute

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/SyntheticEdelweiss/ClientServerExample/internal/logger"
	"github.com/SyntheticEdelweiss/ClientServerExample/internal/protocol/wire"
	"github.com/SyntheticEdelweiss/ClientServerExample/internal/telemetry"
	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/compute/chunk"
)

// Config tunes task planning.
type Config struct {
	// MaxChunks caps the number of spans a task is split into.
	// Zero means chunk.DefaultMaxChunks.
	MaxChunks int64

	// MinChunkSize is the smallest span worth scheduling on its own worker.
	// Zero means chunk.DefaultMinSize.
	MinChunkSize int64
}

func (c Config) withDefaults() Config {
	if c.MaxChunks <= 0 {
		c.MaxChunks = chunk.DefaultMaxChunks
	}
	if c.MinChunkSize <= 0 {
		c.MinChunkSize = chunk.DefaultMinSize
	}
	return c
}

// EmitFunc delivers a server-to-client frame for a running task. Calls are
// serialized per task; implementations enqueue onto the owner's socket
// writer and must not block indefinitely.
type EmitFunc func(wire.Request)

// DoneFunc receives a task's single terminal outcome. It is invoked exactly
// once, from a pool worker or an executor goroutine.
type DoneFunc func(Outcome)

// Outcome is the exclusive terminal state of a task. Exactly one of the
// three conditions holds: Result is non-nil, Cancelled is set, or Err is
// non-nil.
type Outcome struct {
	// Result is the populated request variant when the task ran to
	// completion.
	Result wire.Request

	// Cancelled is set when the owner's cancel request won.
	Cancelled bool

	// Err is set when a chunk failed or the pool went away mid-task.
	Err error
}

// Executor plans tasks and runs their chunks on the shared pool.
type Executor struct {
	pool    *Pool
	cfg     Config
	metrics *Metrics
}

// NewExecutor creates an executor over pool. metrics may be nil.
func NewExecutor(pool *Pool, cfg Config, metrics *Metrics) *Executor {
	return &Executor{
		pool:    pool,
		cfg:     cfg.withDefaults(),
		metrics: metrics,
	}
}

// Launch plans req into chunks, emits the initial ProgressRange/ProgressValue
// pair and schedules the chunks. The returned Task is the cancellation
// handle. done fires exactly once with the terminal outcome; an empty plan
// (empty array, inverted range) completes immediately with the input's empty
// result.
//
// Only task-submitting request types launch; anything else is an error.
func (e *Executor) Launch(ctx context.Context, req wire.Request, emit EmitFunc, done DoneFunc) (*Task, error) {
	kr, err := newKindRunner(req, e.cfg)
	if err != nil {
		return nil, err
	}

	task := &Task{
		id:     uuid.New(),
		kind:   req.Type(),
		chunks: kr.chunks(),
	}

	spanCtx, span := telemetry.StartTaskSpan(ctx, task.kind.String(), task.id.String(), task.chunks)

	r := &runner{
		task:    task,
		kind:    kr,
		total:   kr.chunks(),
		emit:    emit,
		done:    done,
		metrics: e.metrics,
		started: time.Now(),
		ctx:     spanCtx,
		span:    span,
	}

	logger.Debug("Task launched",
		"taskID", task.id,
		"kind", task.kind.String(),
		"chunks", task.chunks)

	emit(&wire.ProgressRange{Min: 0, Max: int32(task.chunks)})
	emit(&wire.ProgressValue{Value: 0})

	if r.total == 0 {
		// Nothing to schedule. Finish off the caller's goroutine so the
		// done callback never runs under the dispatcher's stack.
		go r.finish()
		return task, nil
	}

	go r.feed(e.pool)
	return task, nil
}

// Pool returns the executor's shared pool.
func (e *Executor) Pool() *Pool {
	return e.pool
}
