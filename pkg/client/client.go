// Package client implements the protocol endpoint a client program embeds.
//
// A Client owns one socket to the compute server. Connect dials with a
// bounded wait and sends the bare credential frame; authorization has no
// success reply, so the connection is reported Connected as soon as the
// login frame is written and any failure surfaces as the server closing the
// socket. Inbound frames are decoded on a dedicated read goroutine and
// surfaced through the Events callbacks.
//
// The client enforces the protocol's submission discipline locally: one
// outstanding task or cancel at a time, and obviously invalid parameters are
// rejected before any frame is sent.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/SyntheticEdelweiss/ClientServerExample/internal/logger"
	"github.com/SyntheticEdelweiss/ClientServerExample/internal/protocol/wire"
)

var (
	// ErrClosed is returned after Close; a closed client never reconnects.
	ErrClosed = errors.New("client is closed")

	// ErrNotConnected is returned when no authorized socket exists.
	ErrNotConnected = errors.New("client is not connected")

	// ErrAlreadyConnected is returned by Connect on a live client.
	ErrAlreadyConnected = errors.New("client is already connected")

	// ErrAwaitingReply rejects a submission while another task or cancel
	// is still outstanding.
	ErrAwaitingReply = errors.New("a request is already awaiting its reply")

	// ErrCancelPending rejects a second cancel before the first is acked.
	ErrCancelPending = errors.New("a cancel is already awaiting its ack")

	// ErrInvalidInput rejects task parameters locally, before any frame
	// is sent.
	ErrInvalidInput = errors.New("invalid task input")
)

// State is the connection state surfaced through Events.State.
type State int

const (
	StateUnconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "Unconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	default:
		return "Unknown"
	}
}

// Events carries the optional callbacks a client program registers. Nil
// callbacks are skipped. Callbacks run on the client's internal goroutines
// and must not block.
type Events struct {
	// State reports every connection state change.
	State func(State)

	// ProgressRange reports the progress scale announced for a task.
	ProgressRange func(min, max int32)

	// ProgressValue reports completed progress within the announced range.
	ProgressValue func(value int32)

	// Result delivers the terminal task frame with its result fields set.
	Result func(req wire.Request)

	// Invalid delivers a protocol error reported by the server.
	Invalid func(code wire.ErrorCode, text string)

	// CancelAck reports the server acknowledging a cancel.
	CancelAck func()
}

// Config holds the client endpoint configuration.
type Config struct {
	// Address is the server host:port.
	Address string

	// LocalAddress optionally pins the local host:port the socket binds
	// to. Useful against servers that enforce an address allow-list.
	// Empty lets the OS choose.
	LocalAddress string

	// Username and Password are sent as the first frame on every socket.
	Username string
	Password string

	// ConnectTimeout bounds the dial. Zero means 10s.
	ConnectTimeout time.Duration

	// WriteTimeout bounds every frame write. Zero means 1s.
	WriteTimeout time.Duration

	// Reconnect arms a single-shot reconnect timer after an unexpected
	// disconnect. Close stops it.
	Reconnect bool

	// ReconnectDelay is the wait before a reconnect attempt.
	// Zero means 60s.
	ReconnectDelay time.Duration

	// MaxFrameSize bounds accepted payload lengths.
	// Zero means wire.DefaultMaxFrameSize.
	MaxFrameSize uint32
}

func (c *Config) applyDefaults() {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = time.Second
	}
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = 60 * time.Second
	}
	if c.MaxFrameSize == 0 {
		c.MaxFrameSize = wire.DefaultMaxFrameSize
	}
}

func (c *Config) validate() error {
	if c.Address == "" {
		return errors.New("address is required")
	}
	if c.Username == "" {
		return errors.New("username is required")
	}
	return nil
}

// awaiting is the outstanding-request state.
type awaiting int

const (
	awaitNone awaiting = iota
	awaitTask
	awaitCancel
)

// Client is one protocol endpoint. All methods are safe for concurrent use.
type Client struct {
	config Config
	events Events

	// writeMu serializes frame writes on the current socket.
	writeMu sync.Mutex

	mu        sync.Mutex
	state     State
	awaiting  awaiting
	sock      net.Conn
	closed    bool
	reconnect *time.Timer

	// gen identifies the current socket so the read goroutine of a
	// replaced connection cannot disturb its successor.
	gen int
}

// New creates a client. Connect must be called before submitting.
func New(cfg Config, events Events) (*Client, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("client config: %w", err)
	}
	return &Client{config: cfg, events: events}, nil
}

// Connect dials the server, sends the credential frame and starts the read
// goroutine. The dial is bounded by ConnectTimeout and by ctx, whichever
// fires first.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != StateUnconnected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.state = StateConnecting
	c.mu.Unlock()
	c.emitState(StateConnecting)

	dialer := net.Dialer{Timeout: c.config.ConnectTimeout}
	if c.config.LocalAddress != "" {
		local, err := net.ResolveTCPAddr("tcp", c.config.LocalAddress)
		if err != nil {
			c.connectFailed()
			return fmt.Errorf("resolve local address %s: %w", c.config.LocalAddress, err)
		}
		dialer.LocalAddr = local
	}
	sock, err := dialer.DialContext(ctx, "tcp", c.config.Address)
	if err != nil {
		c.connectFailed()
		return fmt.Errorf("connect to %s: %w", c.config.Address, err)
	}

	login := wire.EncodeLogin(wire.LoginData{
		Username: c.config.Username,
		Password: c.config.Password,
	})
	if err := c.writeFrame(sock, login); err != nil {
		_ = sock.Close()
		c.connectFailed()
		return fmt.Errorf("send login: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = sock.Close()
		return ErrClosed
	}
	c.sock = sock
	c.state = StateConnected
	c.awaiting = awaitNone
	c.gen++
	gen := c.gen
	c.mu.Unlock()
	c.emitState(StateConnected)
	logger.Info("Connected to server", "address", c.config.Address, "username", c.config.Username)

	go c.readLoop(sock, gen)
	return nil
}

// connectFailed rolls a failed Connect back to Unconnected.
func (c *Client) connectFailed() {
	c.mu.Lock()
	c.state = StateUnconnected
	c.mu.Unlock()
	c.emitState(StateUnconnected)
}

// Close tears the client down. The reconnect timer is stopped and the
// socket, if any, is closed. Close is idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	sock := c.sock
	c.sock = nil
	wasConnected := c.state != StateUnconnected
	c.state = StateUnconnected
	c.awaiting = awaitNone
	c.mu.Unlock()

	var err error
	if sock != nil {
		err = sock.Close()
	}
	if wasConnected {
		c.emitState(StateUnconnected)
	}
	return err
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submit sends one task. Parameters are validated locally first, and only
// one task or cancel may be outstanding at a time.
func (c *Client) Submit(req wire.Request) error {
	if err := validateTask(req); err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != StateConnected || c.sock == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	if c.awaiting != awaitNone {
		c.mu.Unlock()
		return ErrAwaitingReply
	}
	c.awaiting = awaitTask
	sock := c.sock
	c.mu.Unlock()

	if err := c.writeFrame(sock, wire.Encode(req)); err != nil {
		c.rollbackAwaiting(awaitNone)
		return fmt.Errorf("submit %s: %w", req.Type(), err)
	}
	return nil
}

// Cancel asks the server to cancel the current task. Sending a cancel with
// no task outstanding is legal; the server acknowledges it either way.
func (c *Client) Cancel() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != StateConnected || c.sock == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	if c.awaiting == awaitCancel {
		c.mu.Unlock()
		return ErrCancelPending
	}
	prev := c.awaiting
	c.awaiting = awaitCancel
	sock := c.sock
	c.mu.Unlock()

	if err := c.writeFrame(sock, wire.Encode(&wire.CancelCurrentTask{})); err != nil {
		c.rollbackAwaiting(prev)
		return fmt.Errorf("send cancel: %w", err)
	}
	return nil
}

// rollbackAwaiting restores the outstanding-request state after a failed
// send, unless the connection already turned over.
func (c *Client) rollbackAwaiting(prev awaiting) {
	c.mu.Lock()
	if c.state == StateConnected {
		c.awaiting = prev
	}
	c.mu.Unlock()
}

// writeFrame writes one complete frame under the write deadline.
func (c *Client) writeFrame(sock net.Conn, frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := sock.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
		return err
	}
	_, err := sock.Write(frame)
	return err
}

// readLoop decodes inbound frames until the socket dies.
func (c *Client) readLoop(sock net.Conn, gen int) {
	fr := wire.NewFrameReader(sock, c.config.MaxFrameSize)
	for {
		payload, err := fr.ReadFrame()
		if err != nil {
			c.handleDisconnect(sock, gen, err)
			return
		}
		c.handleFrame(gen, payload)
	}
}

// handleDisconnect reacts to the socket dying. A user-initiated Close stays
// silent; an unexpected disconnect resets the state and, when configured,
// arms the single-shot reconnect timer.
func (c *Client) handleDisconnect(sock net.Conn, gen int, cause error) {
	_ = sock.Close()

	c.mu.Lock()
	if c.closed || c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.sock = nil
	c.state = StateUnconnected
	c.awaiting = awaitNone
	armed := false
	if c.config.Reconnect {
		c.reconnect = time.AfterFunc(c.config.ReconnectDelay, c.tryReconnect)
		armed = true
	}
	c.mu.Unlock()

	logger.Info("Disconnected from server", "error", cause, "reconnectArmed", armed)
	c.emitState(StateUnconnected)
}

// tryReconnect runs one reconnect attempt. A failed attempt re-arms the
// timer, so the client keeps trying until Close or success.
func (c *Client) tryReconnect() {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.ConnectTimeout)
	defer cancel()

	err := c.Connect(ctx)
	if err == nil || errors.Is(err, ErrClosed) || errors.Is(err, ErrAlreadyConnected) {
		return
	}
	logger.Warn("Reconnect attempt failed", "error", err)

	c.mu.Lock()
	if !c.closed && c.config.Reconnect && c.state == StateUnconnected {
		c.reconnect = time.AfterFunc(c.config.ReconnectDelay, c.tryReconnect)
	}
	c.mu.Unlock()
}

// handleFrame dispatches one decoded inbound frame. Terminal frames clear
// the outstanding-request state; progress frames pass straight through.
func (c *Client) handleFrame(gen int, payload []byte) {
	req, err := wire.DecodePayload(payload)
	if err != nil {
		logger.Warn("Dropping undecodable frame from server", "error", err)
		return
	}

	switch r := req.(type) {
	case *wire.ProgressRange:
		if cb := c.events.ProgressRange; cb != nil {
			cb(r.Min, r.Max)
		}
	case *wire.ProgressValue:
		if cb := c.events.ProgressValue; cb != nil {
			cb(r.Value)
		}
	case *wire.InvalidRequest:
		c.clearAwaiting(gen)
		if cb := c.events.Invalid; cb != nil {
			cb(r.Code, r.Text)
		}
	case *wire.CancelCurrentTask:
		c.clearAwaiting(gen)
		if cb := c.events.CancelAck; cb != nil {
			cb()
		}
	default:
		if !req.Type().IsTask() {
			logger.Warn("Unexpected frame type from server", "type", req.Type())
			return
		}
		c.clearAwaiting(gen)
		if cb := c.events.Result; cb != nil {
			cb(req)
		}
	}
}

func (c *Client) clearAwaiting(gen int) {
	c.mu.Lock()
	if c.gen == gen {
		c.awaiting = awaitNone
	}
	c.mu.Unlock()
}

func (c *Client) emitState(s State) {
	if cb := c.events.State; cb != nil {
		cb(s)
	}
}

// validateTask rejects parameters the server would only fail on anyway.
// Mirrors the server-side planner: an inverted range or a non-positive step
// cannot produce work.
func validateTask(req wire.Request) error {
	switch r := req.(type) {
	case *wire.SortArray:
		return nil
	case *wire.FindPrimeNumbers:
		if r.XFrom > r.XTo {
			return fmt.Errorf("%w: xFrom %d exceeds xTo %d", ErrInvalidInput, r.XFrom, r.XTo)
		}
		return nil
	case *wire.CalculateFunction:
		if r.XFrom > r.XTo {
			return fmt.Errorf("%w: xFrom %d exceeds xTo %d", ErrInvalidInput, r.XFrom, r.XTo)
		}
		if r.XStep < 1 {
			return fmt.Errorf("%w: xStep %d must be at least 1", ErrInvalidInput, r.XStep)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s is not a task", ErrInvalidInput, req.Type())
	}
}
