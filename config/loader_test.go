package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadFromEnv_Server(t *testing.T) {
	t.Setenv("LANSHARE_PORT", "50000")
	t.Setenv("LANSHARE_SETTINGS", "/etc/lanshare.toml")
	t.Setenv("LANSHARE_STATE", "/var/lib/lanshare/state.db")
	t.Setenv("LANSHARE_KEEP_OPEN", "yes")

	cfg := &Config{}
	LoadFromEnv(cfg)

	want := &Config{
		Port:         50000,
		SettingsFile: "/etc/lanshare.toml",
		StatePath:    "/var/lib/lanshare/state.db",
		KeepOpen:     true,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFromEnv_Connect(t *testing.T) {
	t.Setenv("LANSHARE_CONNECT", "10.0.0.2, fe80::1,,host.lan")
	t.Setenv("LANSHARE_REMOTE_PORT", "40818")
	t.Setenv("LANSHARE_TIMEOUT", "10")
	t.Setenv("LANSHARE_RETRIES", "3")

	cfg := &Config{}
	LoadFromEnv(cfg)

	if diff := cmp.Diff([]string{"10.0.0.2", "fe80::1", "host.lan"}, cfg.Connect); diff != "" {
		t.Errorf("Connect mismatch (-want +got):\n%s", diff)
	}
	if cfg.RemotePort != 40818 {
		t.Errorf("RemotePort = %d, want 40818", cfg.RemotePort)
	}
	if cfg.Retries != 3 {
		t.Errorf("Retries = %d, want 3", cfg.Retries)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Timeout)
	}
}

func TestLoadFromEnv_Booleans(t *testing.T) {
	for _, v := range []string{"1", "true", "yes", "TRUE", "Yes"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("LANSHARE_SSH_AGENT", v)
			cfg := &Config{}
			LoadFromEnv(cfg)
			if !cfg.UseSSHAgent {
				t.Error("UseSSHAgent should be true")
			}
		})
	}
	t.Run("no", func(t *testing.T) {
		t.Setenv("LANSHARE_SSH_AGENT", "no")
		cfg := &Config{}
		LoadFromEnv(cfg)
		if cfg.UseSSHAgent {
			t.Error("UseSSHAgent should be false")
		}
	})
}

func TestLoadFromEnv_SSHFields(t *testing.T) {
	t.Setenv("LANSHARE_GATEWAY", "admin@bastion:2222")
	t.Setenv("LANSHARE_SSH_KEY", "/home/user/.ssh/id_ed25519")
	t.Setenv("LANSHARE_SSH_PASSWORD", "true")
	t.Setenv("LANSHARE_STRICT_HOSTKEY", "yes")
	t.Setenv("LANSHARE_KNOWN_HOSTS", "/custom/known_hosts")

	cfg := &Config{}
	LoadFromEnv(cfg)

	if cfg.GatewaySpec != "admin@bastion:2222" {
		t.Errorf("GatewaySpec = %q", cfg.GatewaySpec)
	}
	if cfg.SSHKeyPath != "/home/user/.ssh/id_ed25519" {
		t.Errorf("SSHKeyPath = %q", cfg.SSHKeyPath)
	}
	if !cfg.SSHPassword {
		t.Error("SSHPassword should be true")
	}
	if !cfg.StrictHostKey {
		t.Error("StrictHostKey should be true")
	}
	if cfg.KnownHostsPath != "/custom/known_hosts" {
		t.Errorf("KnownHostsPath = %q", cfg.KnownHostsPath)
	}
}

func TestLoadFromEnv_NoOverrideWhenEmpty(t *testing.T) {
	os.Clearenv()

	cfg := &Config{Port: 1234, SettingsFile: "a.toml"}
	LoadFromEnv(cfg)

	if cfg.Port != 1234 {
		t.Errorf("Port was overridden: %d", cfg.Port)
	}
	if cfg.SettingsFile != "a.toml" {
		t.Errorf("SettingsFile was overridden: %q", cfg.SettingsFile)
	}
}

func TestLoadFromEnv_InvalidIntIgnored(t *testing.T) {
	t.Setenv("LANSHARE_PORT", "not-a-number")
	cfg := &Config{}
	LoadFromEnv(cfg)
	if cfg.Port != 0 {
		t.Errorf("Port should be 0 for invalid input, got %d", cfg.Port)
	}
}

func TestLoadFromEnv_PortOutOfRangeIgnored(t *testing.T) {
	t.Setenv("LANSHARE_PORT", "70000")
	t.Setenv("LANSHARE_REMOTE_PORT", "0")
	cfg := &Config{Port: 40818}
	LoadFromEnv(cfg)
	if cfg.Port != 40818 || cfg.RemotePort != 0 {
		t.Errorf("Port/RemotePort = %d/%d, want 40818/0", cfg.Port, cfg.RemotePort)
	}
}

func TestLoadFromEnv_Verbose(t *testing.T) {
	t.Setenv("LANSHARE_VERBOSE", "3")
	cfg := &Config{}
	LoadFromEnv(cfg)
	if cfg.Verbose != 3 {
		t.Errorf("Verbose = %d, want 3", cfg.Verbose)
	}
}
