package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lanshare/util"
)

func TestFileWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "lanshare.toml", "TransferPort = 50000\n")

	r := newRegistry(t)
	r.AddSetting(portSetting()) //nolint:errcheck

	w := NewFileWatcher(path, r, util.NewLogger(0))
	if err := w.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := r.Int("TransferPort"); got != 50000 {
		t.Fatalf("after Load TransferPort = %d, want 50000", got)
	}

	changed := make(chan []string, 8)
	r.Subscribe(func(names []string) { changed <- names })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Rewrite until the watcher picks it up; the first write can race
	// with watch registration.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
loop:
	for {
		select {
		case names := <-changed:
			if len(names) != 1 || names[0] != "TransferPort" {
				t.Fatalf("changed = %v", names)
			}
			break loop
		case <-tick.C:
			if err := os.WriteFile(path, []byte("TransferPort = 50001\n"), 0o644); err != nil {
				t.Fatal(err)
			}
		case <-deadline:
			t.Fatal("watcher did not reload the settings file")
		}
	}

	if got := r.Int("TransferPort"); got != 50001 {
		t.Errorf("TransferPort = %d, want 50001", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestFileWatcher_MissingDirectory(t *testing.T) {
	r := newRegistry(t)
	w := NewFileWatcher(filepath.Join(t.TempDir(), "nope", "lanshare.toml"), r, util.NewLogger(0))
	if err := w.Run(context.Background()); err == nil {
		t.Fatal("expected error watching a missing directory")
	}
}
