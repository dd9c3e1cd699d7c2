// Package rnsocket adapts net.UDPConn to the non-blocking, status-coded
// socket contract the rest of RigelNet is built on: every call returns one
// of OK, NotReady or Disconnected rather than blocking or panicking.
package rnsocket

import (
	"errors"
	"net"
	"time"
)

// Status is the outcome of a single Send or Recv attempt.
type Status int

const (
	StatusOK Status = iota
	StatusNotReady
	StatusDisconnected
)

const (
	// DefaultReadBuffer/DefaultWriteBuffer mirror the socket buffer sizing
	// the teacher repository applies to its UDP listeners.
	DefaultReadBuffer  = 4 << 20
	DefaultWriteBuffer = 4 << 20
)

// Adapter wraps a bound/connected net.UDPConn and exposes the non-blocking
// send/recv contract RigelNet's connectors are written against. The zero
// value is not usable; construct with New.
type Adapter struct {
	conn *net.UDPConn
}

// New wraps an already-created, unconnected UDP connection (as returned by
// ListenUDP). Send addresses every datagram with WriteToUDP, which a
// connection made with DialUDP rejects, so such a connection reports
// StatusDisconnected on every Send.
func New(conn *net.UDPConn) *Adapter {
	_ = conn.SetReadBuffer(DefaultReadBuffer)
	_ = conn.SetWriteBuffer(DefaultWriteBuffer)
	return &Adapter{conn: conn}
}

// Bind opens and wraps a UDP socket listening on localPort (0 for an
// ephemeral port). This is the server-side / local-bind constructor.
func Bind(localPort uint16) (*Adapter, error) {
	addr := &net.UDPAddr{Port: int(localPort)}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// LocalPort returns the bound local UDP port.
func (a *Adapter) LocalPort() uint16 {
	if a.conn == nil {
		return 0
	}
	addr, ok := a.conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return 0
	}
	return uint16(addr.Port)
}

// Close releases the underlying socket. Safe to call more than once.
func (a *Adapter) Close() error {
	if a.conn == nil {
		return nil
	}
	return a.conn.Close()
}

// Send writes b to the given remote address. An empty packet is a no-op
// that reports success without touching the socket, matching the original
// engine's short-circuit for zero-length sends. Partial writes are retried
// until the whole buffer is flushed or the connection reports an error.
func (a *Adapter) Send(b []byte, remote *net.UDPAddr) Status {
	if len(b) == 0 {
		return StatusOK
	}

	written := 0
	for written < len(b) {
		n, err := a.conn.WriteToUDP(b[written:], remote)
		if err != nil {
			if isTimeoutOrTemporary(err) {
				continue
			}
			return mapWriteError(err)
		}
		written += n
	}
	return StatusOK
}

// Recv attempts to read a single datagram without blocking. On StatusOK,
// buf[:n] holds the payload and remote holds the sender's address. On
// StatusNotReady, nothing was available right now; callers are expected to
// keep calling Recv in a loop until NotReady to drain the socket for this
// tick.
func (a *Adapter) Recv(buf []byte) (n int, remote *net.UDPAddr, status Status) {
	// Zero-deadline poll: a read deadline in the past makes ReadFromUDP
	// return immediately with a timeout error if nothing is queued, giving
	// us a non-blocking poll on top of a conn that has no native one.
	_ = a.conn.SetReadDeadline(time.Now())

	n, remote, err := a.conn.ReadFromUDP(buf)
	if err != nil {
		if isTimeoutOrTemporary(err) {
			return 0, nil, StatusNotReady
		}
		return 0, nil, mapReadError(err)
	}
	return n, remote, StatusOK
}

func isTimeoutOrTemporary(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func mapWriteError(err error) Status {
	if errors.Is(err, net.ErrClosed) {
		return StatusDisconnected
	}
	// UDP sockets do not normally report a disconnected peer, but a closed
	// local socket surfaces here; anything else is treated the same way the
	// original engine treats it -- as a condition the caller should stop
	// relying on this socket for.
	return StatusDisconnected
}

func mapReadError(err error) Status {
	if errors.Is(err, net.ErrClosed) {
		return StatusDisconnected
	}
	return StatusDisconnected
}
