package listener

import (
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	ncerr "lanshare/internal/errors"
	"lanshare/util"
)

func dial(port int) error {
	c, err := net.DialTimeout("tcp", util.FormatAddr("127.0.0.1", port), time.Second)
	if err != nil {
		return err
	}
	return c.Close()
}

func freePort(t *testing.T) int {
	t.Helper()
	p, err := util.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestClose_Unbound(t *testing.T) {
	l := New(func(*Handle) {}, util.NewLogger(0))
	l.Close()
	l.Close()
	if l.Addr() != nil {
		t.Errorf("Addr = %v, want nil", l.Addr())
	}
}

func TestListen_DeliversHandle(t *testing.T) {
	handles := make(chan *Handle, 1)
	l := New(func(h *Handle) { handles <- h }, util.NewLogger(0))
	defer l.Close()

	port := freePort(t)
	if err := l.Listen(port); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if got := util.PortOf(l.Addr()); got != port {
		t.Errorf("bound port = %d, want %d", got, port)
	}

	if err := dial(port); err != nil {
		t.Fatalf("dial: %v", err)
	}

	select {
	case h := <-handles:
		if !l.Current(h) {
			t.Error("handle should belong to the live binding")
		}
		if h.RemoteAddr() == nil {
			t.Error("RemoteAddr is nil")
		}
		c := h.Release()
		if c == nil {
			t.Fatal("Release returned nil")
		}
		c.Close()
		if h.Release() != nil {
			t.Error("second Release should return nil")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no handle delivered")
	}
}

func TestListen_RebindDropsOldPort(t *testing.T) {
	l := New(func(h *Handle) { h.Close() }, util.NewLogger(0))
	defer l.Close()

	p1, p2 := freePort(t), freePort(t)
	if p1 == p2 {
		t.Skip("FindFreePort returned the same port twice")
	}
	if err := l.Listen(p1); err != nil {
		t.Fatal(err)
	}
	if err := l.Listen(p2); err != nil {
		t.Fatal(err)
	}

	if err := dial(p1); err == nil {
		t.Errorf("dial to old port %d succeeded", p1)
	}
	if err := dial(p2); err != nil {
		t.Errorf("dial to new port %d: %v", p2, err)
	}
}

func TestCurrent_StaleHandle(t *testing.T) {
	handles := make(chan *Handle, 1)
	l := New(func(h *Handle) { handles <- h }, util.NewLogger(0))
	defer l.Close()

	if err := l.Listen(0); err != nil {
		t.Fatal(err)
	}
	if err := dial(util.PortOf(l.Addr())); err != nil {
		t.Fatal(err)
	}
	h := <-handles
	defer h.Close()

	if err := l.Listen(0); err != nil {
		t.Fatal(err)
	}
	if l.Current(h) {
		t.Error("handle from previous binding reported as current")
	}
	l.Close()
	if l.Current(h) {
		t.Error("handle reported as current after Close")
	}
}

func TestClose_NoNotificationsAfterReturn(t *testing.T) {
	var closed atomic.Bool
	var late atomic.Int32
	l := New(func(h *Handle) {
		if closed.Load() {
			late.Add(1)
		}
		h.Close()
	}, util.NewLogger(0))

	if err := l.Listen(0); err != nil {
		t.Fatal(err)
	}
	port := util.PortOf(l.Addr())
	for i := 0; i < 5; i++ {
		dial(port) //nolint:errcheck
	}
	l.Close()
	closed.Store(true)

	dial(port) //nolint:errcheck
	time.Sleep(50 * time.Millisecond)
	if n := late.Load(); n != 0 {
		t.Errorf("%d notifications after Close", n)
	}
}

func TestListen_PortInUse(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatal(err)
	}
	defer busy.Close()

	l := New(func(*Handle) {}, util.NewLogger(0))
	err = l.Listen(util.PortOf(busy.Addr()))
	var ne *ncerr.NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("err = %v, want *NetworkError", err)
	}
	if ne.Op != "listen" {
		t.Errorf("Op = %q, want listen", ne.Op)
	}
	if l.Addr() != nil {
		t.Error("listener should stay unbound after a failed bind")
	}
}
