// Package tcp hosts the compute protocol over plain TCP.
//
// The adapter owns the listener and the socket lifecycle; every accepted
// connection must complete the bare credential handshake within the auth
// timeout before its frames reach the dispatcher. Authorization failures are
// silent: the socket just closes, and the client learns nothing about which
// check failed.
package tcp

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/SyntheticEdelweiss/ClientServerExample/internal/logger"
	"github.com/SyntheticEdelweiss/ClientServerExample/internal/protocol/wire"
	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/adapter"
	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/dispatch"
)

// TimeoutsConfig groups the transport deadlines.
type TimeoutsConfig struct {
	// Auth bounds the wait for the credential frame on a fresh socket.
	// A client that has not completed the handshake by then is closed.
	// Zero means 3s.
	Auth time.Duration

	// Write bounds every frame write. A peer that cannot drain a frame
	// within it is treated as gone. Zero means 1s.
	Write time.Duration

	// Shutdown bounds the wait for active connections during graceful
	// shutdown. Zero means 30s.
	Shutdown time.Duration
}

// Config holds the TCP transport configuration.
type Config struct {
	// Host is the bind address. Empty binds all interfaces.
	Host string

	// Port is the listen port. Zero asks the kernel for an ephemeral
	// port, which is how the tests run.
	Port int

	// MaxConnections limits concurrent sockets. 0 is unlimited.
	MaxConnections int

	// MaxFrameSize bounds the accepted payload length.
	// Zero means wire.DefaultMaxFrameSize.
	MaxFrameSize uint32

	// Timeouts groups the transport deadlines.
	Timeouts TimeoutsConfig
}

// applyDefaults fills in zero values with the protocol defaults.
func (c *Config) applyDefaults() {
	if c.MaxFrameSize == 0 {
		c.MaxFrameSize = wire.DefaultMaxFrameSize
	}
	if c.Timeouts.Auth == 0 {
		c.Timeouts.Auth = 3 * time.Second
	}
	if c.Timeouts.Write == 0 {
		c.Timeouts.Write = time.Second
	}
	if c.Timeouts.Shutdown == 0 {
		c.Timeouts.Shutdown = 30 * time.Second
	}
}

// validate checks the configuration before the listener starts.
func (c *Config) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("invalid max connections %d: must be >= 0", c.MaxConnections)
	}
	if c.Timeouts.Auth < 0 || c.Timeouts.Write < 0 || c.Timeouts.Shutdown < 0 {
		return fmt.Errorf("timeouts must be >= 0")
	}
	return nil
}

// Adapter serves the compute protocol over TCP. It embeds the shared
// lifecycle and contributes the handshake and frame loop.
type Adapter struct {
	*adapter.BaseAdapter

	config     Config
	dispatcher *dispatch.Dispatcher
	metrics    *Metrics
}

// New creates a TCP adapter over the dispatcher. metrics may be nil.
// Panics when the configuration is invalid, which indicates a programmer
// error rather than an operator one.
func New(cfg Config, dispatcher *dispatch.Dispatcher, metrics *Metrics) *Adapter {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		panic(fmt.Sprintf("invalid tcp config: %v", err))
	}

	base := adapter.NewBaseAdapter(adapter.BaseConfig{
		BindAddress:        cfg.Host,
		Port:               cfg.Port,
		MaxConnections:     cfg.MaxConnections,
		ShutdownTimeout:    cfg.Timeouts.Shutdown,
		MetricsLogInterval: 5 * time.Minute,
	}, "compute")

	a := &Adapter{
		BaseAdapter: base,
		config:      cfg,
		dispatcher:  dispatcher,
		metrics:     metrics,
	}
	base.Metrics = metrics
	return a
}

// Serve starts the listener and blocks until shutdown.
func (a *Adapter) Serve(ctx context.Context) error {
	return a.ServeWithFactory(ctx, a, a.addressAllowed)
}

// NewConnection implements adapter.ConnectionFactory.
func (a *Adapter) NewConnection(sock net.Conn) adapter.ConnectionHandler {
	return newConn(a, sock)
}

// addressAllowed is the pre-accept gate: sockets from addresses outside an
// enabled allow list never reach the handshake.
func (a *Adapter) addressAllowed(sock net.Conn) bool {
	host, _, err := net.SplitHostPort(sock.RemoteAddr().String())
	if err != nil {
		host = sock.RemoteAddr().String()
	}
	if a.dispatcher.Allowed(a.ShutdownCtx, host) {
		return true
	}

	a.metrics.RecordAuthFailure("address_not_allowed")
	logger.Info("Rejecting connection from disallowed address", "address", sock.RemoteAddr())
	return false
}
