// Package metrics provides lightweight, lock-free counters for the LAN
// transport server.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for a transport server.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	transportsCreated  atomic.Int64
	transportsRefused  atomic.Int64
	transportsReceived atomic.Int64
	transportsDropped  atomic.Int64
	binds              atomic.Int64
	bindFailures       atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	boundPort    int
	lastBind     time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Transport metrics ────────────────────────────────────────────────

// TransportCreated records an outbound transport handed to a caller.
func (c *Collector) TransportCreated() {
	if c == nil {
		return
	}
	c.transportsCreated.Add(1)
}

// TransportRefused records a CreateTransport call rejected for an
// invalid device descriptor.
func (c *Collector) TransportRefused() {
	if c == nil {
		return
	}
	c.transportsRefused.Add(1)
}

// TransportReceived records an inbound transport announced to
// subscribers.
func (c *Collector) TransportReceived() {
	if c == nil {
		return
	}
	c.transportsReceived.Add(1)
}

// TransportDropped records an accepted connection that was closed
// without being announced (stale binding or no subscribers).
func (c *Collector) TransportDropped() {
	if c == nil {
		return
	}
	c.transportsDropped.Add(1)
}

// ── Listener metrics ─────────────────────────────────────────────────

// Bound records a successful bind to port.
func (c *Collector) Bound(port int) {
	if c == nil {
		return
	}
	c.binds.Add(1)
	c.mu.Lock()
	c.boundPort = port
	c.lastBind = time.Now()
	c.mu.Unlock()
}

// Unbound records that the listener no longer holds a port.
func (c *Collector) Unbound() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.boundPort = 0
	c.mu.Unlock()
}

// BindFailed increments the bind failure counter and stores the message.
func (c *Collector) BindFailed(msg string) {
	if c == nil {
		return
	}
	c.bindFailures.Add(1)
	c.mu.Lock()
	c.boundPort = 0
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// BindFailures returns the total number of failed binds.
func (c *Collector) BindFailures() int64 {
	if c == nil {
		return 0
	}
	return c.bindFailures.Load()
}

// BoundPort returns the port of the live binding, or 0.
func (c *Collector) BoundPort() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.boundPort
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime             string `json:"uptime"`
	TransportsCreated  int64  `json:"transports_created"`
	TransportsRefused  int64  `json:"transports_refused"`
	TransportsReceived int64  `json:"transports_received"`
	TransportsDropped  int64  `json:"transports_dropped"`
	Binds              int64  `json:"binds"`
	BindFailures       int64  `json:"bind_failures"`
	BoundPort          int    `json:"bound_port,omitempty"`
	LastBind           string `json:"last_bind,omitempty"`
	LastError          string `json:"last_error,omitempty"`
	LastErrorMessage   string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:             time.Since(c.startTime).Truncate(time.Second).String(),
		TransportsCreated:  c.transportsCreated.Load(),
		TransportsRefused:  c.transportsRefused.Load(),
		TransportsReceived: c.transportsReceived.Load(),
		TransportsDropped:  c.transportsDropped.Load(),
		Binds:              c.binds.Load(),
		BindFailures:       c.bindFailures.Load(),
		BoundPort:          c.boundPort,
		LastErrorMessage:   c.lastErrorMsg,
	}
	if !c.lastBind.IsZero() {
		s.LastBind = c.lastBind.Format(time.RFC3339)
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
