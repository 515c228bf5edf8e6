package adapter

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SyntheticEdelweiss/ClientServerExample/internal/logger"
)

// ConnectionHandler is one accepted connection. Serve blocks until the
// connection is closed or the context is cancelled.
type ConnectionHandler interface {
	Serve(ctx context.Context)
}

// ConnectionFactory creates transport-specific connection handlers for
// accepted sockets. Transports implement it and pass themselves to
// ServeWithFactory.
type ConnectionFactory interface {
	NewConnection(conn net.Conn) ConnectionHandler
}

// BaseConfig holds configuration common to all transport adapters.
type BaseConfig struct {
	// BindAddress is the IP address to bind to. Empty or "0.0.0.0" binds
	// to all interfaces.
	BindAddress string

	// Port is the TCP port to listen on. Zero asks the kernel for one.
	Port int

	// MaxConnections limits concurrent client connections. 0 is unlimited.
	MaxConnections int

	// ShutdownTimeout bounds the wait for active connections during
	// graceful shutdown. Connections still open afterwards are
	// force-closed.
	ShutdownTimeout time.Duration

	// MetricsLogInterval is how often to log the active connection count.
	// 0 disables periodic logging.
	MetricsLogInterval time.Duration
}

// MetricsRecorder lets transports record connection lifecycle metrics.
type MetricsRecorder interface {
	RecordConnectionAccepted()
	RecordConnectionClosed()
	RecordConnectionForceClosed()
	SetActiveConnections(count int32)
}

// BaseAdapter provides the shared TCP lifecycle for transport adapters.
//
// A transport embeds it and delegates listener management, connection
// limiting, connection tracking and graceful shutdown to it; the transport
// contributes its handshake and frame loop through ConnectionFactory, plus
// an optional pre-accept gate for address filtering.
//
// Shutdown sequence:
//  1. Shutdown channel closed (accept loop stops)
//  2. Listener closed (no new connections)
//  3. Short read deadline set on every socket (unblocks pending reads)
//  4. ShutdownCtx cancelled (in-flight work aborts)
//  5. Wait for connections up to ShutdownTimeout, then force-close
type BaseAdapter struct {
	// Config holds the shared listener configuration.
	Config BaseConfig

	protocolName string

	// Metrics is an optional recorder for connection lifecycle metrics.
	Metrics MetricsRecorder

	listener   net.Listener
	listenerMu sync.RWMutex

	// activeConns tracks running connection goroutines for shutdown.
	activeConns sync.WaitGroup

	shutdownOnce sync.Once

	// Shutdown is closed when graceful shutdown begins.
	Shutdown chan struct{}

	// ConnCount is the current number of live connections.
	ConnCount atomic.Int32

	// connSemaphore bounds concurrent connections when MaxConnections > 0.
	connSemaphore chan struct{}

	// ShutdownCtx is cancelled during shutdown so connection handlers can
	// abort in-flight work.
	ShutdownCtx    context.Context
	CancelRequests context.CancelFunc

	// ActiveConnections maps remote address to net.Conn for forced closure.
	ActiveConnections sync.Map

	// ListenerReady is closed once the listener accepts connections. Tests
	// use it to synchronize with startup.
	ListenerReady chan struct{}
}

// NewBaseAdapter creates the shared lifecycle state for one transport. The
// adapter starts nothing until ServeWithFactory is called.
func NewBaseAdapter(config BaseConfig, protocol string) *BaseAdapter {
	var connSemaphore chan struct{}
	if config.MaxConnections > 0 {
		connSemaphore = make(chan struct{}, config.MaxConnections)
		logger.Debug(protocol+" connection limit", "maxConnections", config.MaxConnections)
	}

	shutdownCtx, cancelRequests := context.WithCancel(context.Background())

	return &BaseAdapter{
		Config:         config,
		protocolName:   protocol,
		Shutdown:       make(chan struct{}),
		connSemaphore:  connSemaphore,
		ShutdownCtx:    shutdownCtx,
		CancelRequests: cancelRequests,
		ListenerReady:  make(chan struct{}),
	}
}

// ServeWithFactory runs the accept loop, creating a handler per socket via
// factory. preAccept, when non-nil, runs after accept and before tracking;
// returning false closes the socket without a handler. It blocks until
// shutdown and returns nil when shutdown was graceful.
func (b *BaseAdapter) ServeWithFactory(ctx context.Context, factory ConnectionFactory, preAccept func(net.Conn) bool) error {
	listenAddr := net.JoinHostPort(b.Config.BindAddress, fmt.Sprintf("%d", b.Config.Port))
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("create %s listener on %s: %w", b.protocolName, listenAddr, err)
	}

	b.listenerMu.Lock()
	b.listener = listener
	b.listenerMu.Unlock()
	close(b.ListenerReady)

	logger.Info(b.protocolName+" server listening", "address", listener.Addr().String())

	// Watch for context cancellation so the accept loop can stay blocked
	// in Accept.
	go func() {
		<-ctx.Done()
		logger.Info(b.protocolName+" shutdown signal received", "error", ctx.Err())
		b.initiateShutdown()
	}()

	if b.Config.MetricsLogInterval > 0 {
		go b.logMetrics(ctx)
	}

	for {
		// With connection limiting on, hold the accept until a slot
		// frees up. Pending sockets wait in the listen backlog.
		if b.connSemaphore != nil {
			select {
			case b.connSemaphore <- struct{}{}:
			case <-b.Shutdown:
				return b.gracefulShutdown()
			}
		}

		sock, err := b.listener.Accept()
		if err != nil {
			if b.connSemaphore != nil {
				<-b.connSemaphore
			}
			select {
			case <-b.Shutdown:
				// Expected: the listener was closed.
				return b.gracefulShutdown()
			default:
				logger.Debug("Error accepting "+b.protocolName+" connection", "error", err)
				continue
			}
		}

		// Frames are small and latency matters for progress updates.
		if tcp, ok := sock.(*net.TCPConn); ok {
			if err := tcp.SetNoDelay(true); err != nil {
				logger.Debug("Failed to set TCP_NODELAY", "error", err)
			}
		}

		if preAccept != nil && !preAccept(sock) {
			_ = sock.Close()
			if b.connSemaphore != nil {
				<-b.connSemaphore
			}
			continue
		}

		b.activeConns.Add(1)
		b.ConnCount.Add(1)

		connAddr := sock.RemoteAddr().String()
		b.ActiveConnections.Store(connAddr, sock)

		currentConns := b.ConnCount.Load()
		if b.Metrics != nil {
			b.Metrics.RecordConnectionAccepted()
			b.Metrics.SetActiveConnections(currentConns)
		}
		logger.Debug(b.protocolName+" connection accepted", "address", connAddr, "active", currentConns)

		handler := factory.NewConnection(sock)
		go func(addr string) {
			defer func() {
				b.ActiveConnections.Delete(addr)
				b.ConnCount.Add(-1)
				if b.connSemaphore != nil {
					<-b.connSemaphore
				}
				if b.Metrics != nil {
					b.Metrics.RecordConnectionClosed()
					b.Metrics.SetActiveConnections(b.ConnCount.Load())
				}
				logger.Debug(b.protocolName+" connection closed", "address", addr, "active", b.ConnCount.Load())
				// Done last: when the shutdown wait returns, counters and
				// the semaphore have already settled.
				b.activeConns.Done()
			}()

			handler.Serve(b.ShutdownCtx)
		}(connAddr)
	}
}

// initiateShutdown begins graceful shutdown. Safe to call multiple times and
// from multiple goroutines.
func (b *BaseAdapter) initiateShutdown() {
	b.shutdownOnce.Do(func() {
		logger.Debug(b.protocolName + " shutdown initiated")

		close(b.Shutdown)

		b.listenerMu.Lock()
		if b.listener != nil {
			if err := b.listener.Close(); err != nil {
				logger.Debug("Error closing "+b.protocolName+" listener", "error", err)
			}
		}
		b.listenerMu.Unlock()

		b.interruptBlockingReads()
		b.CancelRequests()
	})
}

// interruptBlockingReads puts a short deadline on every socket so connection
// loops blocked in a read notice the shutdown without waiting for a client.
func (b *BaseAdapter) interruptBlockingReads() {
	deadline := time.Now().Add(100 * time.Millisecond)

	b.ActiveConnections.Range(func(key, value any) bool {
		if conn, ok := value.(net.Conn); ok {
			if err := conn.SetReadDeadline(deadline); err != nil {
				logger.Debug("Error setting shutdown deadline on connection",
					"address", key, "error", err)
			}
		}
		return true
	})
}

// gracefulShutdown waits for active connections up to ShutdownTimeout, then
// force-closes the rest.
func (b *BaseAdapter) gracefulShutdown() error {
	activeCount := b.ConnCount.Load()
	logger.Info(b.protocolName+" graceful shutdown: waiting for active connections",
		"active", activeCount, "timeout", b.Config.ShutdownTimeout)

	done := make(chan struct{})
	go func() {
		b.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info(b.protocolName + " graceful shutdown complete: all connections closed")
		return nil

	case <-time.After(b.Config.ShutdownTimeout):
		remaining := b.ConnCount.Load()
		logger.Warn(b.protocolName+" shutdown timeout exceeded - forcing closure",
			"active", remaining, "timeout", b.Config.ShutdownTimeout)
		b.forceCloseConnections()
		return fmt.Errorf("%s shutdown timeout: %d connections force-closed", b.protocolName, remaining)
	}
}

func (b *BaseAdapter) forceCloseConnections() {
	closedCount := 0
	b.ActiveConnections.Range(func(key, value any) bool {
		addr := key.(string)
		conn := value.(net.Conn)

		if err := conn.Close(); err != nil {
			logger.Debug("Error force-closing connection", "address", addr, "error", err)
		} else {
			closedCount++
			if b.Metrics != nil {
				b.Metrics.RecordConnectionForceClosed()
			}
		}
		return true
	})

	if closedCount > 0 {
		logger.Info("Force-closed connections", "count", closedCount)
	}
}

// Stop initiates graceful shutdown and waits for active connections. A nil
// ctx waits up to the configured ShutdownTimeout; otherwise the wait ends
// when ctx is cancelled.
func (b *BaseAdapter) Stop(ctx context.Context) error {
	b.initiateShutdown()

	if ctx == nil {
		return b.gracefulShutdown()
	}

	logger.Info(b.protocolName+" graceful shutdown: waiting for active connections",
		"active", b.ConnCount.Load())

	done := make(chan struct{})
	go func() {
		b.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info(b.protocolName + " graceful shutdown complete: all connections closed")
		return nil

	case <-ctx.Done():
		remaining := b.ConnCount.Load()
		logger.Warn(b.protocolName+" shutdown context cancelled",
			"active", remaining, "error", ctx.Err())
		return ctx.Err()
	}
}

// logMetrics periodically logs the connection count for monitoring.
func (b *BaseAdapter) logMetrics(ctx context.Context) {
	ticker := time.NewTicker(b.Config.MetricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Info(b.protocolName+" metrics", "activeConnections", b.ConnCount.Load())
		}
	}
}

// GetActiveConnections returns the current number of live connections.
func (b *BaseAdapter) GetActiveConnections() int32 {
	return b.ConnCount.Load()
}

// GetListenerAddr returns the listen address. It blocks until the listener
// is ready, so tests can dial it without racing startup.
func (b *BaseAdapter) GetListenerAddr() string {
	<-b.ListenerReady

	b.listenerMu.RLock()
	defer b.listenerMu.RUnlock()

	if b.listener == nil {
		return ""
	}
	return b.listener.Addr().String()
}

// Port returns the configured TCP port.
func (b *BaseAdapter) Port() int {
	return b.Config.Port
}

// Protocol returns the transport name.
func (b *BaseAdapter) Protocol() string {
	return b.protocolName
}
