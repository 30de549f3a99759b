package settings

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"lanshare/util"
)

// FileWatcher feeds a settings file into a Registry and keeps it in
// sync: every write, create or rename of the file triggers a reload.
type FileWatcher struct {
	path   string
	reg    *Registry
	logger *util.Logger
}

// NewFileWatcher returns a watcher for path.  Call Load for the initial
// read and Run to follow changes.
func NewFileWatcher(path string, reg *Registry, logger *util.Logger) *FileWatcher {
	return &FileWatcher{
		path:   filepath.Clean(path),
		reg:    reg,
		logger: logger.WithComponent("settings"),
	}
}

// Load reads the file and applies its values to the registry.
func (w *FileWatcher) Load() error {
	values, err := ReadFile(w.path)
	if err != nil {
		return err
	}
	return w.reg.Update(values)
}

// Run watches the file's directory until ctx is cancelled.  Editors
// often replace files by rename, so the directory is watched rather
// than the file itself.  Reload failures are logged and watching
// continues.
func (w *FileWatcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("settings watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Verbose("watching %s", w.path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("%s changed (%s), reloading", w.path, ev.Op)
			if err := w.Load(); err != nil {
				w.logger.Warn("reload %s: %v", w.path, err)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("settings watcher: %v", err)
		}
	}
}
