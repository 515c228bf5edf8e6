// Package adapter defines the transport server contract and the shared TCP
// lifecycle all transports build on.
//
// A transport adapter owns a listener and the sockets accepted from it; the
// protocol semantics behind those sockets live in the dispatcher. The split
// keeps the accept loop, connection limiting and graceful shutdown in one
// place while each transport only implements its handshake and frame loop.
package adapter

import "context"

// Adapter is one transport server hosting the compute protocol.
//
// Lifecycle:
//  1. Creation with transport-specific configuration
//  2. Serve() starts the listener and blocks until shutdown
//  3. Stop() initiates graceful shutdown with a caller-controlled timeout
//
// Implementations must be safe for concurrent use: Stop() may be called
// while Serve() is running, and more than once.
type Adapter interface {
	// Serve starts the server and blocks until the context is cancelled or
	// an unrecoverable error occurs. Cancellation triggers graceful
	// shutdown: the listener closes, active connections get a chance to
	// drain, stragglers are force-closed.
	//
	// Returns nil on graceful shutdown, or an error when startup fails or
	// shutdown was not graceful.
	Serve(ctx context.Context) error

	// Stop initiates graceful shutdown. When ctx is cancelled before the
	// active connections drain, Stop returns the context error after
	// initiating shutdown anyway. Safe to call multiple times.
	Stop(ctx context.Context) error

	// Protocol returns the transport name for logging and metrics.
	Protocol() string

	// Port returns the configured listen port. A zero value means the
	// kernel assigned one; Addr on the concrete type has the truth.
	Port() int
}
