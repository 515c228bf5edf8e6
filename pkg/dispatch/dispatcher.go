// Package dispatch serializes all protocol decisions onto a single scheduler
// goroutine.
//
// The scheduler owns the per-client task index, the result cache, the
// credential store handle and the address allow list. Socket goroutines never
// touch that state directly: they post commands onto the scheduler's queue,
// and the scheduler replies through each connection's Sender. Because one
// goroutine applies every command, frames from one client are handled in
// arrival order and each task produces at most one terminal frame.
package dispatch

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/SyntheticEdelweiss/ClientServerExample/internal/logger"
	"github.com/SyntheticEdelweiss/ClientServerExample/internal/protocol/wire"
	"github.com/SyntheticEdelweiss/ClientServerExample/internal/telemetry"
	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/cache"
	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/compute"
	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/identity"
)

// Authorization failures beyond the credential errors defined by identity.
var (
	// ErrStopped is returned when the dispatcher is not accepting commands.
	ErrStopped = errors.New("dispatcher is stopped")

	// ErrUserAlreadyConnected rejects a second login for a username that
	// already has a live connection.
	ErrUserAlreadyConnected = errors.New("user is already connected")

	// ErrAddressNotAllowed rejects a client whose address is missing from
	// an enabled allow list.
	ErrAddressNotAllowed = errors.New("address is not on the allow list")
)

// Sender is the write half of one client connection. The dispatcher and the
// task runners call Send concurrently; implementations serialize writes and
// bound them with a deadline so a stalled peer cannot block the scheduler
// indefinitely.
type Sender interface {
	// Send writes one complete frame, length prefix included.
	Send(frame []byte) error

	// Close tears the connection down. The owning adapter reports the
	// disconnect back through Disconnected.
	Close() error
}

// Config tunes the dispatcher.
type Config struct {
	// AllowListEnabled turns address filtering on. When false every
	// address is accepted and AllowedAddresses is ignored.
	AllowListEnabled bool

	// AllowedAddresses seeds the allow list with client IP addresses.
	AllowedAddresses []string

	// CommandQueueSize bounds the scheduler's command backlog.
	// Zero means 256.
	CommandQueueSize int
}

// client is one authorized connection.
type client struct {
	username string
	addr     string // full remote address, the command key
	ip       string // address without port, matched against the allow list
	sender   Sender
}

// taskEntry tracks the single task a client may have in flight.
type taskEntry struct {
	owner    string
	username string
	fp       cache.Fingerprint
	task     *compute.Task

	// wantAck is set when the owner requested the cancel itself. A cancel
	// triggered by disconnect or shutdown produces no terminal frame.
	wantAck bool
}

// Dispatcher is the scheduler goroutine and the state it owns.
type Dispatcher struct {
	executor *compute.Executor
	results  *cache.ResultCache
	users    *identity.Store
	metrics  *Metrics

	cmds chan func()

	mu        sync.Mutex
	started   bool
	stopping  bool
	startedAt time.Time
	runCtx    context.Context

	stopCh    chan struct{}
	stoppedCh chan struct{}

	// Scheduler-owned state. Only the run goroutine reads or writes these
	// maps; everything below is off limits to other goroutines.
	clients   map[string]*client
	tasks     map[string]*taskEntry
	usernames map[string]string // username -> owner address
	allow     map[string]struct{}
	allowAll  bool
}

// New creates a dispatcher over the given executor, result cache and
// credential store. metrics may be nil.
func New(cfg Config, executor *compute.Executor, results *cache.ResultCache, users *identity.Store, metrics *Metrics) *Dispatcher {
	if cfg.CommandQueueSize <= 0 {
		cfg.CommandQueueSize = 256
	}

	d := &Dispatcher{
		executor:  executor,
		results:   results,
		users:     users,
		metrics:   metrics,
		cmds:      make(chan func(), cfg.CommandQueueSize),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
		clients:   make(map[string]*client),
		tasks:     make(map[string]*taskEntry),
		usernames: make(map[string]string),
		allow:     make(map[string]struct{}),
		allowAll:  !cfg.AllowListEnabled,
	}
	for _, addr := range cfg.AllowedAddresses {
		d.allow[addr] = struct{}{}
	}
	return d
}

// Start launches the scheduler goroutine. Later calls are no-ops.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.startedAt = time.Now()
	d.runCtx = ctx
	d.mu.Unlock()

	logger.Info("Starting dispatcher",
		"allowListEnabled", !d.allowAll,
		"allowedAddresses", len(d.allow))

	go d.run(ctx)
}

// Stop shuts the scheduler down, cancelling every running task. Pending
// commands that were not yet applied are dropped.
func (d *Dispatcher) Stop(timeout time.Duration) {
	d.mu.Lock()
	if !d.started || d.stopping {
		d.mu.Unlock()
		return
	}
	d.stopping = true
	d.mu.Unlock()

	close(d.stopCh)

	select {
	case <-d.stoppedCh:
		logger.Info("Dispatcher stopped")
	case <-time.After(timeout):
		logger.Warn("Dispatcher stop timed out")
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.stoppedCh)

	for {
		select {
		case <-ctx.Done():
			d.shutdown()
			return
		case <-d.stopCh:
			d.shutdown()
			return
		case fn := <-d.cmds:
			fn()
		}
	}
}

// shutdown cancels running tasks on the way out. Their outcomes are dropped
// because post refuses commands once stopCh is closed.
func (d *Dispatcher) shutdown() {
	for _, e := range d.tasks {
		e.task.Cancel()
	}
	logger.Info("Dispatcher shutting down",
		"clients", len(d.clients),
		"cancelledTasks", len(d.tasks))
}

// post queues fn for the scheduler goroutine. It blocks while the queue is
// full and reports false once the dispatcher is stopping.
func (d *Dispatcher) post(fn func()) bool {
	select {
	case d.cmds <- fn:
		return true
	case <-d.stopCh:
		return false
	}
}

// call posts fn and waits until the scheduler has applied it.
func (d *Dispatcher) call(ctx context.Context, fn func()) error {
	applied := make(chan struct{})
	select {
	case d.cmds <- func() {
		fn()
		close(applied)
	}:
	case <-d.stopCh:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-applied:
		return nil
	case <-d.stopCh:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Authorize verifies credentials and claims the username for the connection.
// The bcrypt comparison runs on the caller's goroutine; only the registration
// itself goes through the scheduler. On success the dispatcher starts
// accepting frames for owner.
func (d *Dispatcher) Authorize(ctx context.Context, owner string, login wire.LoginData, sender Sender) error {
	if err := d.users.Authenticate(login.Username, login.Password); err != nil {
		return err
	}

	var regErr error
	if err := d.call(ctx, func() {
		regErr = d.register(owner, login.Username, sender)
	}); err != nil {
		return err
	}
	return regErr
}

func (d *Dispatcher) register(owner, username string, sender Sender) error {
	ip := hostOnly(owner)
	if !d.addressAllowed(ip) {
		return ErrAddressNotAllowed
	}
	if _, taken := d.usernames[username]; taken {
		return ErrUserAlreadyConnected
	}

	d.clients[owner] = &client{
		username: username,
		addr:     owner,
		ip:       ip,
		sender:   sender,
	}
	d.usernames[username] = owner
	d.metrics.SetClients(len(d.clients))

	logger.Info("Client authorized", "username", username, "remote", owner)
	return nil
}

// Disconnected removes the connection's registration and cancels its task.
// A cancel caused by disconnect is silent: the owner is gone, so no terminal
// frame is produced and nothing is cached.
func (d *Dispatcher) Disconnected(owner string) {
	d.post(func() {
		c, ok := d.clients[owner]
		if !ok {
			return
		}
		delete(d.clients, owner)
		delete(d.usernames, c.username)
		d.metrics.SetClients(len(d.clients))

		if e, running := d.tasks[owner]; running {
			e.task.Cancel()
			logger.Info("Cancelling task after disconnect",
				"taskID", e.task.ID(),
				"username", c.username,
				"remote", owner)
		}

		logger.Info("Client disconnected", "username", c.username, "remote", owner)
	})
}

// HandleFrame hands one received payload to the scheduler. Frames for owners
// that are no longer registered are dropped.
func (d *Dispatcher) HandleFrame(owner string, payload []byte) {
	d.post(func() {
		d.handleFrame(owner, payload)
	})
}

// Allowed reports whether a client address passes the allow list. The
// adapter consults it before reading the login frame.
func (d *Dispatcher) Allowed(ctx context.Context, addr string) bool {
	allowed := false
	if err := d.call(ctx, func() {
		allowed = d.addressAllowed(hostOnly(addr))
	}); err != nil {
		return false
	}
	return allowed
}

// Allow adds addr to the allow list.
func (d *Dispatcher) Allow(ctx context.Context, addr string) error {
	return d.call(ctx, func() {
		d.allow[addr] = struct{}{}
		logger.Info("Address allowed", "address", addr)
	})
}

// Disallow removes addr from the allow list and closes every connected
// client from that address. It returns the number of connections closed;
// their cleanup completes when the adapter reports each disconnect.
func (d *Dispatcher) Disallow(ctx context.Context, addr string) (int, error) {
	closed := 0
	err := d.call(ctx, func() {
		delete(d.allow, addr)
		for _, c := range d.clients {
			if c.ip != addr {
				continue
			}
			if err := c.sender.Close(); err != nil {
				logger.Debug("Close after disallow failed",
					"remote", c.addr, "error", err)
			}
			closed++
			logger.Info("Closing disallowed client",
				"username", c.username,
				"remote", c.addr)
		}
	})
	return closed, err
}

func (d *Dispatcher) addressAllowed(ip string) bool {
	if d.allowAll {
		return true
	}
	_, ok := d.allow[ip]
	return ok
}

// handleFrame applies the protocol state machine to one client payload.
func (d *Dispatcher) handleFrame(owner string, payload []byte) {
	c, ok := d.clients[owner]
	if !ok {
		logger.Debug("Dropping frame for unregistered client", "remote", owner)
		return
	}

	t, err := wire.PeekType(payload)
	if err != nil {
		d.reply(c, wire.CodeCorruptedData, "payload is corrupted")
		return
	}
	d.metrics.RecordFrame(t.String())

	_, span := telemetry.StartDispatchSpan(d.runCtx, t.String(),
		telemetry.ClientAddr(owner),
		telemetry.Username(c.username),
		telemetry.FrameBytes(len(payload)))
	defer span.End()

	switch {
	case t == wire.TypeCancelCurrentTask:
		d.handleCancel(c)
	case t.IsTask():
		d.handleSubmission(c, payload, span)
	default:
		// Progress frames only travel server to client, and a client
		// has no business echoing errors back.
		d.reply(c, wire.CodeInvalidRequestType, "unrecognized request type "+t.String())
	}
}

// handleCancel cancels the client's running task. Without one the cancel is
// acknowledged anyway so the client's awaiting state always resolves.
func (d *Dispatcher) handleCancel(c *client) {
	if e, running := d.tasks[c.addr]; running {
		e.wantAck = true
		if e.task.Cancel() {
			logger.Info("Cancelling task",
				"taskID", e.task.ID(),
				"username", c.username)
		}
		return
	}

	logger.Debug("Cancel with no running task",
		"username", c.username,
		"remote", c.addr,
		"code", wire.CodeNotRunningAnyTask.String())
	d.send(c, wire.Encode(&wire.CancelCurrentTask{}))
}

// handleSubmission resolves a task payload through the cache or launches it.
//
// The cache is consulted on the raw payload bytes before anything else: a
// repeat submission is answered without decoding, without the busy check and
// without touching the pool.
func (d *Dispatcher) handleSubmission(c *client, payload []byte, span trace.Span) {
	fp := cache.FingerprintOf(payload)
	if frame, hit := d.results.Lookup(fp); hit {
		span.SetAttributes(telemetry.CacheHit(true))
		logger.Debug("Result served from cache",
			"username", c.username,
			"fingerprint", uint64(fp))
		d.send(c, frame)
		return
	}
	span.SetAttributes(telemetry.CacheHit(false))

	req, err := wire.DecodePayload(payload)
	if err != nil {
		logger.Debug("Rejecting corrupted submission",
			"remote", c.addr, "error", err)
		d.reply(c, wire.CodeCorruptedData, "payload is corrupted")
		return
	}

	if _, busy := d.tasks[c.addr]; busy {
		d.reply(c, wire.CodeAlreadyRunningTask, "a task is already running")
		return
	}

	entry := &taskEntry{owner: c.addr, username: c.username, fp: fp}
	sender := c.sender
	remote := c.addr
	emit := func(r wire.Request) {
		if err := sender.Send(wire.Encode(r)); err != nil {
			logger.Debug("Progress write failed", "remote", remote, "error", err)
		}
	}
	done := func(out compute.Outcome) {
		if !d.post(func() { d.finishTask(entry, out) }) {
			logger.Debug("Dropping task outcome after dispatcher stop", "remote", remote)
		}
	}

	task, err := d.executor.Launch(d.runCtx, req, emit, done)
	if err != nil {
		logger.Error("Task launch failed",
			"username", c.username, "error", err)
		d.reply(c, wire.CodeUnspecified, "task could not be started")
		return
	}

	entry.task = task
	d.tasks[c.addr] = entry
	d.metrics.SetTasksActive(len(d.tasks))
}

// finishTask applies a task's terminal outcome: exactly one of a result
// frame, a cancel acknowledgement or an error report, then the busy slot is
// freed. Completed results are cached even when the owner is gone, because
// the work is already paid for.
func (d *Dispatcher) finishTask(entry *taskEntry, out compute.Outcome) {
	if cur, ok := d.tasks[entry.owner]; ok && cur == entry {
		delete(d.tasks, entry.owner)
		d.metrics.SetTasksActive(len(d.tasks))
	}
	c, connected := d.clients[entry.owner]

	switch {
	case out.Err != nil:
		logger.Error("Task failed",
			"taskID", entry.task.ID(),
			"username", entry.username,
			"error", out.Err)
		if connected {
			d.reply(c, wire.CodeUnspecified, "task execution failed")
		}

	case out.Cancelled:
		logger.Info("Task cancelled",
			"taskID", entry.task.ID(),
			"username", entry.username,
			"acknowledged", entry.wantAck && connected)
		if entry.wantAck && connected {
			d.send(c, wire.Encode(&wire.CancelCurrentTask{}))
		}

	default:
		frame := wire.Encode(out.Result)
		d.results.Insert(entry.fp, frame, uint64(len(frame)-4))
		logger.Debug("Task completed",
			"taskID", entry.task.ID(),
			"username", entry.username,
			"resultBytes", len(frame))
		if connected {
			d.send(c, frame)
		}
	}
}

// reply sends an InvalidRequest with the given code and text.
func (d *Dispatcher) reply(c *client, code wire.ErrorCode, text string) {
	d.metrics.RecordInvalid(code.String())
	logger.Debug("Rejecting frame",
		"username", c.username,
		"remote", c.addr,
		"code", code.String())
	d.send(c, wire.Encode(&wire.InvalidRequest{Code: code, Text: text}))
}

func (d *Dispatcher) send(c *client, frame []byte) {
	if err := c.sender.Send(frame); err != nil {
		logger.Debug("Frame write failed", "remote", c.addr, "error", err)
	}
}

// hostOnly strips the port from a remote address. Addresses without a port
// pass through unchanged.
func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
