package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"golang.org/x/sync/errgroup"

	"lanshare/config"
	"lanshare/internal/device"
	ncerr "lanshare/internal/errors"
	"lanshare/internal/metrics"
	"lanshare/internal/retry"
	"lanshare/internal/server"
	"lanshare/internal/settings"
	"lanshare/internal/transport"
	"lanshare/util"
)

// run starts the transport server and drives one session: serving
// inbound transports, or piping stdio through one outbound transport.
func run(ctx context.Context, cfg *config.Config, logger *util.Logger, stdin io.Reader, stdout io.Writer) error {
	reg, closeState, err := openRegistry(cfg, logger)
	if err != nil {
		return err
	}
	defer closeState()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if cfg.SettingsFile != "" {
		w := settings.NewFileWatcher(cfg.SettingsFile, reg, logger)
		if err := w.Load(); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			logger.Verbose("%s does not exist yet, waiting for it", cfg.SettingsFile)
		}
		g.Go(func() error { return w.Run(gctx) })
	}
	if cfg.Port > 0 {
		if err := reg.Set(server.PortSettingName, cfg.Port); err != nil {
			return fmt.Errorf("applying --port: %w", err)
		}
	}

	dialer := newDialer(cfg, logger)
	defer dialer.Close()

	m := metrics.New()
	defer func() { logger.Verbose("session metrics:\n%s", m.JSON()) }()

	incoming := make(chan *transport.Transport, 16)
	srv, err := server.New(reg, logger,
		server.WithDialer(dialer),
		server.WithMetrics(m),
		server.WithReceiver(func(t *transport.Transport) {
			select {
			case incoming <- t:
			default:
				logger.Warn("too many pending transports, refusing %s", t)
				t.Close()
			}
		}),
	)
	if err != nil {
		return err
	}
	defer func() {
		srv.Close()
		close(incoming)
		for t := range incoming {
			t.Close()
		}
	}()

	g.Go(func() error {
		defer cancel()
		if cfg.Connecting() {
			return connect(gctx, cfg, srv, stdin, stdout, logger)
		}
		return serve(gctx, cfg, incoming, stdout, logger)
	})
	return g.Wait()
}

// openRegistry builds the settings registry, backed by the state
// database when --state is given.
func openRegistry(cfg *config.Config, logger *util.Logger) (*settings.Registry, func(), error) {
	opts := []settings.Option{settings.WithLogger(logger)}
	closeState := func() {}

	if cfg.StatePath != "" {
		store, err := settings.OpenBoltStore(cfg.StatePath)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, settings.WithStore(store))
		closeState = func() {
			if err := store.Close(); err != nil {
				logger.Warn("closing %s: %v", cfg.StatePath, err)
			}
		}
	}

	reg, err := settings.NewRegistry(opts...)
	if err != nil {
		closeState()
		return nil, nil, fmt.Errorf("loading %s: %w", cfg.StatePath, err)
	}
	return reg, closeState, nil
}

func newDialer(cfg *config.Config, logger *util.Logger) transport.Dialer {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = config.DefaultConnTimeout
	}
	if !cfg.GatewayEnabled {
		return &transport.TCPDialer{Timeout: timeout}
	}
	return transport.NewSSHDialer(&transport.SSHConfig{
		User:          cfg.GatewayUser,
		Host:          cfg.GatewayHost,
		Port:          cfg.GatewayPort,
		KeyPath:       cfg.SSHKeyPath,
		PromptPass:    cfg.SSHPassword,
		UseAgent:      cfg.UseSSHAgent,
		StrictHostKey: cfg.StrictHostKey,
		KnownHosts:    cfg.KnownHostsPath,
		ConnTimeout:   timeout,
	}, logger)
}

func remotePort(cfg *config.Config) int {
	if cfg.RemotePort > 0 {
		return cfg.RemotePort
	}
	return config.DefaultTransferPort
}

// ── sessions ─────────────────────────────────────────────────────────

// connect opens a transport to the device named by --connect and pipes
// stdin/stdout through it.
func connect(ctx context.Context, cfg *config.Config, srv *server.Server, stdin io.Reader, stdout io.Writer, logger *util.Logger) error {
	t, err := openTransport(ctx, cfg, srv, logger)
	if err != nil {
		return err
	}
	defer t.Close()
	logger.Verbose("connected to %s", t)

	return util.Pipe(ctx, t.Conn(), stdin, stdout)
}

// openTransport opens an outbound transport, retrying up to
// --retries times while the failure is retryable.  The server only ever
// targets a device's first address, so each retry moves the next
// address to the front.
func openTransport(ctx context.Context, cfg *config.Config, srv *server.Server, logger *util.Logger) (*transport.Transport, error) {
	var t *transport.Transport
	err := retry.WithRetries(cfg.Retries).Do(ctx, func(attempt int) error {
		dev := &device.Device{
			Addrs:        retry.Rotate(cfg.Connect, attempt),
			TransferPort: remotePort(cfg),
		}
		tr, err := srv.CreateTransport(dev)
		if err != nil {
			return retry.Final(fmt.Errorf("%s: %w", dev, err))
		}

		openCtx := ctx
		if cfg.Timeout > 0 {
			var cancel context.CancelFunc
			openCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()
		}
		if err := tr.Open(openCtx); err != nil {
			tr.Close()
			if !ncerr.IsRetryable(err) {
				return retry.Final(err)
			}
			logger.Verbose("attempt %d: %v", attempt, err)
			return err
		}
		t = tr
		return nil
	})
	return t, err
}

// serve copies inbound transports to stdout.  Without --keep-open it
// returns after the first transport ends.
func serve(ctx context.Context, cfg *config.Config, incoming <-chan *transport.Transport, stdout io.Writer, logger *util.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	for {
		select {
		case <-gctx.Done():
			return g.Wait()

		case t := <-incoming:
			if !cfg.KeepOpen {
				return receive(ctx, t, stdout, logger)
			}
			g.Go(func() error { return receive(gctx, t, stdout, logger) })
		}
	}
}

func receive(ctx context.Context, t *transport.Transport, stdout io.Writer, logger *util.Logger) error {
	defer t.Close()
	logger.Verbose("receiving from %s", t)

	n, err := util.Drain(ctx, t.Conn(), stdout)
	if err != nil {
		return fmt.Errorf("%s: %w", t, err)
	}
	logger.Verbose("%s finished, %d bytes", t, n)
	return nil
}
