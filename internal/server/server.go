// Package server implements the LAN transport server: it keeps a TCP
// listener bound to the port named by the TransferPort setting, turns
// accepted connections into inbound transports, and builds outbound
// transports toward devices.
//
// Settings changes and accepted connections are handled one at a time,
// in arrival order, on a single dispatcher goroutine per server.
package server

import (
	"net"
	"slices"
	"sync"

	"lanshare/config"
	"lanshare/internal/device"
	ncerr "lanshare/internal/errors"
	"lanshare/internal/listener"
	"lanshare/internal/metrics"
	"lanshare/internal/settings"
	"lanshare/internal/transport"
	"lanshare/util"
)

const (
	// TransportName identifies this transport mechanism among others.
	TransportName = "lan"

	// PortSettingName is the registry name of the listening port.
	PortSettingName = "TransferPort"

	logComponent = "lan-transport-server"
)

// Registry is the part of the settings registry the server uses.
type Registry interface {
	AddSetting(s *settings.Setting) error
	RemoveSetting(s *settings.Setting)
	Int(name string) int
	Subscribe(fn func(changed []string)) (cancel func())
}

var _ Registry = (*settings.Registry)(nil)

// Option configures a Server.
type Option func(*Server)

// WithDialer sets the dialer used by outbound transports.
func WithDialer(d transport.Dialer) Option {
	return func(s *Server) {
		if d != nil {
			s.dialer = d
		}
	}
}

// WithMetrics records server activity in c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) { s.metrics = c }
}

// WithReceiver subscribes fn to inbound transports before the first
// bind, so no early connection is missed.
func WithReceiver(fn func(*transport.Transport)) Option {
	return func(s *Server) { s.addReceiver(fn) }
}

// Server is the LAN transport server.
type Server struct {
	reg      Registry
	logger   *util.Logger
	dialer   transport.Dialer
	metrics  *metrics.Collector
	setting  *settings.Setting
	listener *listener.Listener

	unsubscribe func()
	mbox        mailbox
	quit        chan struct{}
	stopped     chan struct{}

	recvMu    sync.Mutex
	receivers []receiver
	nextRecv  int

	closeOnce sync.Once
}

type receiver struct {
	id int
	fn func(*transport.Transport)
}

// New registers the TransferPort setting with reg and binds the
// listener to its current value.  A bind failure is logged and leaves
// the server running but unbound; the next change of the setting tries
// again.
func New(reg Registry, logger *util.Logger, opts ...Option) (*Server, error) {
	s := &Server{
		reg:    reg,
		logger: logger.WithComponent(logComponent),
		dialer: &transport.TCPDialer{Timeout: config.DefaultConnTimeout},
		setting: &settings.Setting{
			Name:    PortSettingName,
			Type:    settings.Integer,
			Title:   "Transfer Port",
			Default: config.DefaultTransferPort,
		},
		mbox:    mailbox{wake: make(chan struct{}, 1)},
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := reg.AddSetting(s.setting); err != nil {
		return nil, err
	}
	s.listener = listener.New(s.onConn, s.logger)
	s.unsubscribe = reg.Subscribe(s.onSettingsChanged)

	// Events posted before the dispatcher starts wait in the mailbox.
	s.applyPortSetting()
	go s.dispatch()
	return s, nil
}

// Name returns the transport mechanism identifier, "lan".
func (s *Server) Name() string { return TransportName }

// CreateTransport returns an outbound transport toward the first
// address of dev.  It returns ErrInvalidDevice when dev has no address
// or no usable port.  No connection is made until the transport is
// opened.
func (s *Server) CreateTransport(dev device.Descriptor) (*transport.Transport, error) {
	if dev == nil {
		s.metrics.TransportRefused()
		return nil, ncerr.ErrInvalidDevice
	}
	addrs := dev.Addresses()
	port := dev.Port()
	if len(addrs) == 0 || !util.ValidPort(port) {
		s.metrics.TransportRefused()
		return nil, ncerr.ErrInvalidDevice
	}

	s.metrics.TransportCreated()
	return transport.FromDevice(addrs[0], port, s.dialer), nil
}

// OnTransportReceived subscribes fn to inbound transports.  Receivers
// run on the dispatcher in subscription order; the first one to keep
// the transport owns it.  If nobody is subscribed an inbound transport
// is closed immediately.
func (s *Server) OnTransportReceived(fn func(*transport.Transport)) (cancel func()) {
	return s.addReceiver(fn)
}

func (s *Server) addReceiver(fn func(*transport.Transport)) func() {
	s.recvMu.Lock()
	id := s.nextRecv
	s.nextRecv++
	s.receivers = append(s.receivers, receiver{id: id, fn: fn})
	s.recvMu.Unlock()

	return func() {
		s.recvMu.Lock()
		defer s.recvMu.Unlock()
		for i, r := range s.receivers {
			if r.id == id {
				s.receivers = append(s.receivers[:i:i], s.receivers[i+1:]...)
				return
			}
		}
	}
}

// ListenAddr returns the bound address, or nil when unbound.
func (s *Server) ListenAddr() net.Addr { return s.listener.Addr() }

// Close unbinds the listener and unregisters the TransferPort setting.
// Connections still waiting to be announced are closed.  No receiver
// runs after Close returns.  Close must not be called from a receiver;
// a receiver that wants to shut the server down calls it from a new
// goroutine.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.unsubscribe()
		close(s.quit)
		<-s.stopped

		s.listener.Close()
		s.metrics.Unbound()
		for _, ev := range s.mbox.close() {
			s.drop(ev.handle)
		}
		s.reg.RemoveSetting(s.setting)
	})
	return nil
}

// applyPortSetting closes the listener and binds it again to the
// current TransferPort value.
func (s *Server) applyPortSetting() {
	s.listener.Close()
	s.metrics.Unbound()

	port := s.reg.Int(PortSettingName)
	if err := s.listener.Listen(port); err != nil {
		s.logger.Error("cannot listen on port %d: %v", port, err)
		s.metrics.BindFailed(err.Error())
		return
	}

	addr := s.listener.Addr()
	s.metrics.Bound(util.PortOf(addr))
	s.logger.Verbose("listening on %s", addr)
}

// ── event handling ───────────────────────────────────────────────────

func (s *Server) onSettingsChanged(changed []string) {
	if !slices.Contains(changed, PortSettingName) {
		return
	}
	s.mbox.post(event{portChanged: true})
}

func (s *Server) onConn(h *listener.Handle) {
	if !s.mbox.post(event{handle: h}) {
		s.drop(h)
	}
}

func (s *Server) dispatch() {
	defer close(s.stopped)
	for {
		select {
		case <-s.quit:
			return
		case <-s.mbox.wake:
		}

		events := s.mbox.take()
		for i, ev := range events {
			select {
			case <-s.quit:
				for _, rest := range events[i:] {
					s.drop(rest.handle)
				}
				return
			default:
			}
			s.handle(ev)
		}
	}
}

func (s *Server) handle(ev event) {
	if ev.portChanged {
		s.applyPortSetting()
		return
	}

	h := ev.handle
	if !s.listener.Current(h) {
		s.drop(h)
		return
	}

	s.logger.Debug("incoming connection accepted from %s", h.RemoteAddr())
	t := transport.FromAcceptedConnection(h.Release())

	s.recvMu.Lock()
	recv := append([]receiver(nil), s.receivers...)
	s.recvMu.Unlock()

	if len(recv) == 0 {
		t.Close()
		s.metrics.TransportDropped()
		return
	}
	s.metrics.TransportReceived()
	for _, r := range recv {
		r.fn(t)
	}
}

func (s *Server) drop(h *listener.Handle) {
	if h == nil {
		return
	}
	h.Close()
	s.metrics.TransportDropped()
}
