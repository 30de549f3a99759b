// Package transport provides the unit of bidirectional communication
// between two peers.  A Transport is created either toward a device
// (outbound, dialled lazily through a Dialer) or from a connection the
// listener already accepted (inbound).  What flows over the connection
// is up to the caller.
package transport

import (
	"context"
	"net"
	"sync"

	"github.com/google/uuid"

	ncerr "lanshare/internal/errors"
	"lanshare/util"
)

// Dialer opens outbound network connections.  Implementations include
// a plain TCP dialer and an SSH dialer that routes traffic through a
// gateway host.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH session).  Stateless dialers return nil.
	Close() error
}

// Direction tells which side initiated a Transport.
type Direction int

const (
	Outbound Direction = iota
	Inbound
)

func (d Direction) String() string {
	if d == Inbound {
		return "inbound"
	}
	return "outbound"
}

// Transport is a bidirectional channel to one peer.  It implements
// io.ReadWriteCloser once open.
type Transport struct {
	id     uuid.UUID
	dir    Direction
	addr   string
	dialer Dialer

	mu     sync.Mutex
	conn   net.Conn
	closed bool
}

// FromDevice returns an outbound transport toward host:port.  No
// network I/O happens until Open.  A nil dialer means plain TCP.
func FromDevice(host string, port int, dialer Dialer) *Transport {
	if dialer == nil {
		dialer = &TCPDialer{}
	}
	return &Transport{
		id:     uuid.New(),
		dir:    Outbound,
		addr:   util.FormatAddr(host, port),
		dialer: dialer,
	}
}

// FromAcceptedConnection takes ownership of conn and returns an open
// inbound transport.  conn must not be nil.
func FromAcceptedConnection(conn net.Conn) *Transport {
	if conn == nil {
		panic("transport: FromAcceptedConnection called with nil conn")
	}
	return &Transport{
		id:   uuid.New(),
		dir:  Inbound,
		addr: conn.RemoteAddr().String(),
		conn: conn,
	}
}

// ID returns a unique identifier for log correlation.
func (t *Transport) ID() string { return t.id.String() }

// Direction reports whether the transport was dialled or accepted.
func (t *Transport) Direction() Direction { return t.dir }

// Addr returns the peer address: the dial target for outbound
// transports, the remote address for inbound ones.
func (t *Transport) Addr() string { return t.addr }

// Open dials the peer of an outbound transport.  It is a no-op for
// inbound transports and for transports that are already open.
func (t *Transport) Open(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ncerr.ErrTransportClosed
	}
	if t.conn != nil {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	conn, err := t.dialer.Dial(ctx, "tcp", t.addr)
	if err != nil {
		return ncerr.Wrap("dial", t.addr, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.closed:
		conn.Close()
		return ncerr.ErrTransportClosed
	case t.conn != nil:
		// Lost a race with a concurrent Open.
		conn.Close()
		return nil
	}
	t.conn = conn
	return nil
}

// Conn returns the underlying connection, or nil before Open.
func (t *Transport) Conn() net.Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn
}

func (t *Transport) current() (net.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.closed:
		return nil, ncerr.ErrTransportClosed
	case t.conn == nil:
		return nil, ncerr.ErrNotConnected
	}
	return t.conn, nil
}

// Read reads from the peer.
func (t *Transport) Read(p []byte) (int, error) {
	conn, err := t.current()
	if err != nil {
		return 0, err
	}
	return conn.Read(p)
}

// Write writes to the peer.
func (t *Transport) Write(p []byte) (int, error) {
	conn, err := t.current()
	if err != nil {
		return 0, err
	}
	return conn.Write(p)
}

// Close closes the connection.  It is safe to call more than once.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}

func (t *Transport) String() string {
	return t.dir.String() + " " + t.addr + " (" + t.id.String()[:8] + ")"
}
