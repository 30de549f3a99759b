// Package listener owns the TCP listening socket of the transport
// server.  Every accepted connection is surfaced as a Handle through a
// single callback; the listener never reads from the connection.
package listener

import (
	"errors"
	"net"
	"sync"
	"time"

	"lanshare/config"
	ncerr "lanshare/internal/errors"
	"lanshare/util"
)

// Handle carries one accepted connection until someone takes
// ownership of it with Release.
type Handle struct {
	mu     sync.Mutex
	conn   net.Conn
	serial uint64
	remote net.Addr
}

// RemoteAddr returns the peer address of the accepted connection.
func (h *Handle) RemoteAddr() net.Addr { return h.remote }

// Release hands the connection to the caller.  Later calls return nil.
func (h *Handle) Release() net.Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := h.conn
	h.conn = nil
	return c
}

// Close closes the connection if it has not been released.
func (h *Handle) Close() error {
	if c := h.Release(); c != nil {
		return c.Close()
	}
	return nil
}

// Listener accepts inbound TCP connections on one port at a time.
type Listener struct {
	onConn func(*Handle)
	logger *util.Logger

	mu     sync.Mutex
	ln     net.Listener
	serial uint64
	done   chan struct{}
	wg     sync.WaitGroup
}

// New returns an unbound listener.  onConn is called from the accept
// goroutine for each connection and must not block.
func New(onConn func(*Handle), logger *util.Logger) *Listener {
	return &Listener{onConn: onConn, logger: logger}
}

// Listen binds port on all interfaces, dropping any previous binding
// first.
func (l *Listener) Listen(port int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closeLocked()

	addr := util.ListenAddr(port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return ncerr.Wrap("listen", addr, err)
	}

	l.serial++
	l.ln = ln
	l.done = make(chan struct{})
	l.wg.Add(1)
	go l.acceptLoop(ln, l.serial, l.done)
	return nil
}

// Close unbinds the listener.  It is a no-op when unbound.  Once Close
// returns, onConn is not called again.
func (l *Listener) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeLocked()
}

func (l *Listener) closeLocked() {
	if l.ln == nil {
		return
	}
	close(l.done)
	l.ln.Close()
	l.wg.Wait()
	l.ln = nil
	l.done = nil
}

// Addr returns the bound address, or nil when unbound.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Current reports whether h was accepted by the live binding.
func (l *Listener) Current(h *Handle) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ln != nil && h.serial == l.serial
}

func (l *Listener) acceptLoop(ln net.Listener, serial uint64, done <-chan struct{}) {
	defer l.wg.Done()

	var lastErrLog time.Time
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if time.Since(lastErrLog) >= config.DefaultAcceptErrorLogPeriod {
				l.logger.Warn("accept on %s failed: %v", ln.Addr(), err)
				lastErrLog = time.Now()
			}
			select {
			case <-done:
				return
			case <-time.After(config.DefaultAcceptErrorBackoff):
			}
			continue
		}

		select {
		case <-done:
			conn.Close()
			return
		default:
		}
		l.onConn(&Handle{conn: conn, serial: serial, remote: conn.RemoteAddr()})
	}
}
