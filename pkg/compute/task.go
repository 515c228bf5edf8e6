package compute

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/SyntheticEdelweiss/ClientServerExample/internal/protocol/wire"
)

// State is a task's lifecycle phase. Transitions are one-way:
// Running → Cancelling → Finished, with Cancelling optional.
type State int32

const (
	StateRunning State = iota
	StateCancelling
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCancelling:
		return "cancelling"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Task is the handle for one launched compute. The dispatcher keeps it in
// the per-owner index and uses it to drive cancellation; workers read its
// state at chunk boundaries.
type Task struct {
	id     uuid.UUID
	kind   wire.RequestType
	chunks int

	state atomic.Int32

	// userCancelled distinguishes an owner-requested cancel (acknowledged
	// with a CancelCurrentTask frame) from an internal failure that also
	// travels through the Cancelling state.
	userCancelled atomic.Bool
}

// ID returns the task's unique identifier.
func (t *Task) ID() uuid.UUID {
	return t.id
}

// Kind returns the request type this task executes.
func (t *Task) Kind() wire.RequestType {
	return t.kind
}

// Chunks returns the number of planned chunks.
func (t *Task) Chunks() int {
	return t.chunks
}

// State returns the current lifecycle phase.
func (t *Task) State() State {
	return State(t.state.Load())
}

// Cancel requests cooperative cancellation. Chunks not yet started are
// skipped; the chunk currently executing runs to its boundary. Returns true
// when this call initiated the transition, false when the task was already
// cancelling or finished.
func (t *Task) Cancel() bool {
	t.userCancelled.Store(true)
	return t.state.CompareAndSwap(int32(StateRunning), int32(StateCancelling))
}

// abort moves a failing task into Cancelling without marking it
// owner-cancelled.
func (t *Task) abort() {
	t.state.CompareAndSwap(int32(StateRunning), int32(StateCancelling))
}

// claimFinish moves the task to Finished exactly once. The caller that wins
// the claim delivers the terminal outcome.
func (t *Task) claimFinish() bool {
	return t.state.Swap(int32(StateFinished)) != int32(StateFinished)
}
