// Package config defines the runtime configuration for lanshare and
// provides helpers for parsing ports and SSH gateway specifications.
package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	ncerr "lanshare/internal/errors"
)

// Config holds every tuneable for a single lanshare process.
type Config struct {
	// ── Server ───────────────────────────────────────────────────────
	Port         int    // -p: TransferPort override (0 = keep registry value)
	SettingsFile string // --settings: watched TOML/YAML settings file
	StatePath    string // --state: bbolt database for persisted settings
	KeepOpen     bool   // -k: keep serving after the first transport

	// ── Outbound ─────────────────────────────────────────────────────
	Connect    []string // -c: device addresses, first one is dialled
	RemotePort int      // -r: device transfer port
	Retries    int      // --retries: extra open attempts, rotating addresses
	Timeout    time.Duration

	// ── SSH gateway ──────────────────────────────────────────────────
	GatewaySpec    string // raw user@host[:port] from -T
	GatewayEnabled bool
	GatewayUser    string
	GatewayHost    string
	GatewayPort    int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
	DryRun  bool
}

// Connecting reports whether the process runs in connect mode.
func (c *Config) Connecting() bool { return len(c.Connect) > 0 }

// ── Port helpers ─────────────────────────────────────────────────────

// ParsePort accepts a decimal port number in the range 1-65535.
func ParsePort(spec string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(spec))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", spec)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range 1-65535", port)
	}
	return port, nil
}

// ── Gateway-spec parser ──────────────────────────────────────────────

// gatewayRe matches [user@]host[:port].
var gatewayRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseGatewaySpec extracts user, host, and port from a string such as
// "admin@bastion.lan:2222".  Port defaults to 22.
func ParseGatewaySpec(spec string) (user, host string, port int, err error) {
	m := gatewayRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid gateway spec %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid gateway port %q", m[3])
		}
	}
	if host == "" {
		return "", "", 0, fmt.Errorf("gateway host is required")
	}
	return user, host, port, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return &ncerr.ConfigError{
			Field:   "port",
			Value:   c.Port,
			Message: "out of range 1-65535",
			Hint:    fmt.Sprintf("omit --port to use the stored value (default %d)", DefaultTransferPort),
		}
	}

	if c.SettingsFile != "" {
		switch strings.ToLower(filepath.Ext(c.SettingsFile)) {
		case ".toml", ".yaml", ".yml":
		default:
			return &ncerr.ConfigError{
				Field:   "settings",
				Value:   c.SettingsFile,
				Message: "unsupported settings file format",
				Hint:    "use a .toml, .yaml or .yml file",
			}
		}
	}

	if c.Connecting() {
		if c.RemotePort < 0 || c.RemotePort > 65535 {
			return &ncerr.ConfigError{
				Field:   "remote-port",
				Value:   c.RemotePort,
				Message: "out of range 1-65535",
			}
		}
		if c.Retries < 0 {
			return &ncerr.ConfigError{
				Field:   "retries",
				Value:   c.Retries,
				Message: "must not be negative",
			}
		}
		if c.KeepOpen {
			return fmt.Errorf("--connect and --keep-open are mutually exclusive")
		}
	} else {
		if c.RemotePort != 0 {
			return &ncerr.ConfigError{
				Field:   "remote-port",
				Value:   c.RemotePort,
				Message: "only meaningful with --connect",
				Hint:    "add -c <address> to open an outbound transport",
			}
		}
		if c.Retries != 0 {
			return &ncerr.ConfigError{
				Field:   "retries",
				Value:   c.Retries,
				Message: "only meaningful with --connect",
			}
		}
		if c.GatewayEnabled {
			return &ncerr.ConfigError{
				Field:   "gateway",
				Value:   c.GatewaySpec,
				Message: "only outbound transports can use an SSH gateway",
				Hint:    "add -c <address> to open an outbound transport",
			}
		}
	}

	if c.GatewayEnabled && c.GatewayHost == "" {
		return fmt.Errorf("gateway host is required")
	}

	return nil
}
