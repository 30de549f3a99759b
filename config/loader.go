package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)
//
// The live TransferPort value has its own sources (settings file and
// state database); LANSHARE_PORT only seeds the -p override.

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the LANSHARE_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := envPort("LANSHARE_PORT"); v > 0 {
		cfg.Port = v
	}
	if v := os.Getenv("LANSHARE_SETTINGS"); v != "" {
		cfg.SettingsFile = v
	}
	if v := os.Getenv("LANSHARE_STATE"); v != "" {
		cfg.StatePath = v
	}
	if envBool("LANSHARE_KEEP_OPEN") {
		cfg.KeepOpen = true
	}

	// Outbound
	if v := os.Getenv("LANSHARE_CONNECT"); v != "" {
		cfg.Connect = splitList(v)
	}
	if v := envPort("LANSHARE_REMOTE_PORT"); v > 0 {
		cfg.RemotePort = v
	}
	if v := envInt("LANSHARE_RETRIES"); v > 0 {
		cfg.Retries = v
	}
	if v := envInt("LANSHARE_TIMEOUT"); v > 0 {
		cfg.Timeout = secondsDuration(v)
	}

	// SSH gateway
	if v := os.Getenv("LANSHARE_GATEWAY"); v != "" {
		cfg.GatewaySpec = v
	}
	if v := os.Getenv("LANSHARE_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("LANSHARE_SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("LANSHARE_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("LANSHARE_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("LANSHARE_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Output
	if v := envInt("LANSHARE_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// envPort returns the port in key, or 0 when it is unset or invalid.
func envPort(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	port, err := ParsePort(v)
	if err != nil {
		return 0
	}
	return port
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
