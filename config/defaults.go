package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, environment variable loading and the settings
// registry.

const (
	// DefaultTransferPort is the TCP port the LAN transport server
	// listens on until the TransferPort setting says otherwise.
	DefaultTransferPort = 40818

	// DefaultSSHPort is the standard SSH port for gateway connections.
	DefaultSSHPort = 22

	// DefaultConnTimeout is the TCP/SSH connection timeout for outbound
	// transports.
	DefaultConnTimeout = 30 * time.Second

	// DefaultAcceptErrorBackoff is how long the listener pauses after a
	// failed Accept before trying again.
	DefaultAcceptErrorBackoff = 50 * time.Millisecond

	// DefaultAcceptErrorLogPeriod rate-limits accept failure warnings.
	DefaultAcceptErrorLogPeriod = time.Second

	// DefaultRetryDelay is the pause before the first retry of an
	// outbound open; it doubles up to DefaultRetryMaxDelay.
	DefaultRetryDelay    = 500 * time.Millisecond
	DefaultRetryMaxDelay = 10 * time.Second
)
