// Package cmd wires up the CLI flags and runs the LAN transport server.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"lanshare/config"
	"lanshare/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X lanshare/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs lanshare in serve or connect mode.
func Execute(ctx context.Context, args []string) error {
	return execute(ctx, args, os.Stdin, os.Stdout)
}

func execute(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	cfg := &config.Config{}
	config.LoadFromEnv(cfg)
	fs := flag.NewFlagSet("lanshare", flag.ContinueOnError)

	// ── server ───────────────────────────────────────────────────
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "Transfer port (overrides the stored setting)")
	fs.StringVar(&cfg.SettingsFile, "settings", cfg.SettingsFile, "Settings file to load and watch (.toml, .yaml)")
	fs.StringVar(&cfg.StatePath, "state", cfg.StatePath, "State database for persisted settings")
	fs.BoolVarP(&cfg.KeepOpen, "keep-open", "k", cfg.KeepOpen, "Keep serving after the first inbound transport")

	// ── outbound ─────────────────────────────────────────────────
	fs.StringSliceVarP(&cfg.Connect, "connect", "c", cfg.Connect, "Open a transport to this device address (repeatable)")
	fs.IntVarP(&cfg.RemotePort, "remote-port", "r", cfg.RemotePort, "Device transfer port (default 40818)")
	fs.IntVar(&cfg.Retries, "retries", cfg.Retries, "Retry a failed connect, trying the next address each time")

	timeoutSec := int(cfg.Timeout / time.Second)
	fs.IntVarP(&timeoutSec, "timeout", "w", timeoutSec, "Connect timeout in seconds")

	// ── SSH gateway ──────────────────────────────────────────────
	fs.StringVarP(&cfg.GatewaySpec, "gateway", "T", cfg.GatewaySpec, "Reach devices through SSH gateway [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── output ───────────────────────────────────────────────────
	envVerbose := cfg.Verbose
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Validate the configuration and exit")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "lanshare %s\n", version)
		return nil
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument %q (use --help for usage)", fs.Arg(0))
	}

	cfg.Timeout = time.Duration(timeoutSec) * time.Second
	if !fs.Changed("verbose") {
		cfg.Verbose = envVerbose
	}

	// ── gateway spec ─────────────────────────────────────────────
	if cfg.GatewaySpec != "" {
		user, host, port, err := config.ParseGatewaySpec(cfg.GatewaySpec)
		if err != nil {
			return fmt.Errorf("gateway: %w", err)
		}
		cfg.GatewayEnabled = true
		cfg.GatewayUser = user
		cfg.GatewayHost = host
		cfg.GatewayPort = port
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.DryRun {
		printSummary(stdout, cfg)
		return nil
	}

	logger := util.NewLogger(cfg.Verbose)
	return run(ctx, cfg, logger, stdin, stdout)
}

// ── helpers ──────────────────────────────────────────────────────────

func printSummary(w io.Writer, cfg *config.Config) {
	mode := "serve"
	if cfg.Connecting() {
		mode = "connect"
	}
	fmt.Fprintf(w, "mode:      %s\n", mode)
	if cfg.Port > 0 {
		fmt.Fprintf(w, "port:      %d\n", cfg.Port)
	} else {
		fmt.Fprintf(w, "port:      stored setting (default %d)\n", config.DefaultTransferPort)
	}
	if cfg.SettingsFile != "" {
		fmt.Fprintf(w, "settings:  %s\n", cfg.SettingsFile)
	}
	if cfg.StatePath != "" {
		fmt.Fprintf(w, "state:     %s\n", cfg.StatePath)
	}
	if cfg.Connecting() {
		fmt.Fprintf(w, "device:    %v port %d\n", cfg.Connect, remotePort(cfg))
		if cfg.Retries > 0 {
			fmt.Fprintf(w, "retries:   %d\n", cfg.Retries)
		}
	}
	if cfg.GatewayEnabled {
		fmt.Fprintf(w, "gateway:   %s@%s\n", cfg.GatewayUser, util.FormatAddr(cfg.GatewayHost, cfg.GatewayPort))
	}
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `lanshare – LAN transport server v%s

Listens for inbound transports on the TransferPort setting and opens
outbound transports to devices on the local network.

Usage:
  lanshare [options]                          Serve on the stored port
  lanshare -c <address> [options]             Connect to a device

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  lanshare -v                                 Serve on 40818
  lanshare --settings lanshare.toml -k        Serve; edit the file to move port
  lanshare -c 192.168.1.20 < photo.jpg        Send a file to a device
  lanshare -T admin@bastion -c 10.1.0.7       Connect through an SSH gateway
`)
}
