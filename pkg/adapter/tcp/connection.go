package tcp

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/SyntheticEdelweiss/ClientServerExample/internal/logger"
	"github.com/SyntheticEdelweiss/ClientServerExample/internal/protocol/wire"
	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/dispatch"
)

// conn is one client socket. It reads frames in order on its own goroutine
// and hands them to the dispatcher; writes come back concurrently from the
// dispatcher and the task runners, serialized by writeMu.
type conn struct {
	server *Adapter
	sock   net.Conn
	remote string

	// writeMu serializes frame writes so interleaved progress and result
	// frames cannot corrupt the stream.
	writeMu sync.Mutex
}

func newConn(server *Adapter, sock net.Conn) *conn {
	return &conn{
		server: server,
		sock:   sock,
		remote: sock.RemoteAddr().String(),
	}
}

// Serve authorizes the socket and then pumps frames until disconnect.
// Implements adapter.ConnectionHandler.
func (c *conn) Serve(ctx context.Context) {
	defer func() {
		if err := c.sock.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logger.Debug("Error closing connection", "address", c.remote, "error", err)
		}
	}()

	fr := wire.NewFrameReader(c.sock, c.server.config.MaxFrameSize)

	if !c.authorize(ctx, fr) {
		// Silent close: an unauthorized peer learns nothing.
		return
	}
	defer c.server.dispatcher.Disconnected(c.remote)

	// Authorized clients may idle indefinitely; shutdown interrupts the
	// blocking read with a short deadline.
	if err := c.sock.SetReadDeadline(time.Time{}); err != nil {
		logger.Debug("Failed to clear read deadline", "address", c.remote, "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Connection closed due to shutdown", "address", c.remote)
			return
		case <-c.server.Shutdown:
			logger.Debug("Connection closed due to server shutdown", "address", c.remote)
			return
		default:
		}

		payload, err := fr.ReadFrame()
		if err != nil {
			c.logReadEnd(err)
			return
		}

		c.server.dispatcher.HandleFrame(c.remote, payload)
	}
}

// authorize runs the credential handshake: one bare login frame within the
// auth deadline, then the dispatcher's checks. Any failure closes the socket
// without a reply.
func (c *conn) authorize(ctx context.Context, fr *wire.FrameReader) bool {
	if err := c.sock.SetReadDeadline(time.Now().Add(c.server.config.Timeouts.Auth)); err != nil {
		logger.Debug("Failed to set auth deadline", "address", c.remote, "error", err)
		return false
	}

	payload, err := fr.ReadFrame()
	if err != nil {
		c.server.metrics.RecordAuthFailure("login_read")
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			logger.Info("Closing connection without login", "address", c.remote,
				"timeout", c.server.config.Timeouts.Auth)
		} else {
			logger.Debug("Login read failed", "address", c.remote, "error", err)
		}
		return false
	}

	login, err := wire.DecodeLogin(payload)
	if err != nil {
		c.server.metrics.RecordAuthFailure("login_corrupt")
		logger.Info("Closing connection with corrupt login", "address", c.remote, "error", err)
		return false
	}

	if err := c.server.dispatcher.Authorize(ctx, c.remote, login, c); err != nil {
		c.server.metrics.RecordAuthFailure(authFailureReason(err))
		logger.Info("Authorization failed",
			"address", c.remote,
			"username", login.Username,
			"reason", err)
		return false
	}
	return true
}

// Send writes one complete frame under the write deadline.
// Implements dispatch.Sender.
func (c *conn) Send(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.sock.SetWriteDeadline(time.Now().Add(c.server.config.Timeouts.Write)); err != nil {
		return err
	}
	_, err := c.sock.Write(frame)
	return err
}

// Close tears the socket down. Implements dispatch.Sender.
func (c *conn) Close() error {
	return c.sock.Close()
}

// logReadEnd classifies why the read loop ended. Most ends are ordinary.
func (c *conn) logReadEnd(err error) {
	switch {
	case err == io.EOF:
		logger.Debug("Connection closed by client", "address", c.remote)
	case errors.Is(err, wire.ErrFrameTooLarge):
		// The stream cannot be resynchronized past an oversized frame,
		// so the connection is dropped rather than answered.
		logger.Warn("Closing connection after oversized frame", "address", c.remote, "error", err)
	default:
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			logger.Debug("Connection read interrupted", "address", c.remote)
			return
		}
		logger.Debug("Connection read failed", "address", c.remote, "error", err)
	}
}

func authFailureReason(err error) string {
	switch {
	case errors.Is(err, dispatch.ErrUserAlreadyConnected):
		return "duplicate_user"
	case errors.Is(err, dispatch.ErrAddressNotAllowed):
		return "address_not_allowed"
	case errors.Is(err, dispatch.ErrStopped):
		return "shutting_down"
	default:
		return "credentials"
	}
}
