package errors

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"syscall"
	"testing"
)

func TestNetworkError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  NetworkError
		want string
	}{
		{
			name: "retryable",
			err:  NetworkError{Op: "dial", Addr: "192.168.1.20:40818", Err: io.EOF, Retryable: true},
			want: "dial 192.168.1.20:40818: EOF (retryable)",
		},
		{
			name: "listen failure",
			err:  NetworkError{Op: "listen", Addr: ":40818", Err: fmt.Errorf("address already in use")},
			want: "listen :40818: address already in use",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNetworkError_Unwrap(t *testing.T) {
	err := &NetworkError{Op: "dial", Addr: "x", Err: io.EOF}
	if !Is(err, io.EOF) {
		t.Error("should unwrap to io.EOF")
	}
}

func TestSSHError_Format(t *testing.T) {
	err := WrapSSH("handshake", "gateway.lan", 22, fmt.Errorf("connection refused"))
	want := "ssh handshake gateway.lan:22: connection refused"
	if got := err.Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if !Is(err, err.Err) {
		t.Error("should unwrap to inner error")
	}
}

func TestConfigError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  ConfigError
		want string
	}{
		{
			name: "with value and hint",
			err: ConfigError{
				Field:   "port",
				Value:   99999,
				Message: "out of range 1-65535",
				Hint:    "use a port between 1 and 65535",
			},
			want: "config: --port=99999: out of range 1-65535\n  hint: use a port between 1 and 65535",
		},
		{
			name: "missing value no hint",
			err: ConfigError{
				Field:   "remote-port",
				Message: "required with --connect",
			},
			want: "config: --remote-port: required with --connect",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestSettingError(t *testing.T) {
	_, inner := strconv.Atoi("abc")
	err := &SettingError{Name: "TransferPort", Value: "abc", Err: inner}
	if got, want := err.Error(), "setting TransferPort=abc: "+inner.Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if !Is(err, strconv.ErrSyntax) {
		t.Error("should unwrap to strconv.ErrSyntax")
	}
}

func TestWrap(t *testing.T) {
	inner := fmt.Errorf("permission denied")
	err := Wrap("listen", ":80", inner)

	if err.Op != "listen" || err.Addr != ":80" {
		t.Errorf("wrong fields: Op=%q Addr=%q", err.Op, err.Addr)
	}
	if err.Retryable {
		t.Error("plain error should not be retryable")
	}
	if !Is(err, inner) {
		t.Error("should unwrap to inner error")
	}
}

func TestClassifyRetryable_NetOpError(t *testing.T) {
	opErr := &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: &net.DNSError{IsTemporary: true},
	}
	if !classifyRetryable(opErr) {
		t.Error("temporary OpError should be retryable")
	}
}

func TestIsRetryable(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", fmt.Errorf("boom"), false},
		{"refused", refused, true},
		{"wrapped refused", Wrap("dial", "127.0.0.2:40818", refused), true},
		{"unreachable", &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.EHOSTUNREACH)}, true},
		{"deadline", fmt.Errorf("dial: %w", context.DeadlineExceeded), true},
		{"cancelled", Wrap("dial", "10.0.0.1:40818", context.Canceled), false},
		{"unknown host", &net.OpError{Op: "dial", Net: "tcp", Err: &net.DNSError{Name: "nowhere", IsNotFound: true}}, false},
		{"explicit flag", &NetworkError{Op: "dial", Err: io.EOF, Retryable: true}, true},
		{"ssh auth", Wrap("dial", "10.0.0.1:40818", WrapSSH("auth", "bastion", 22, ErrAuthFailed)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestSentinels(t *testing.T) {
	sentinels := []error{
		ErrInvalidDevice, ErrNotConnected, ErrTransportClosed,
		ErrDuplicateSetting, ErrAuthFailed,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && Is(a, b) {
				t.Errorf("sentinel %d and %d should not match", i, j)
			}
		}
	}
}
