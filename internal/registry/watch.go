package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/ShayCichocki/maestro/internal/logging"
	"github.com/ShayCichocki/maestro/pkg/models"
)

// Reloader keeps a MemoryRegistry in sync with a definitions directory.
// The registry always holds base overlaid with the directory's contents.
type Reloader struct {
	dir    string
	reg    *MemoryRegistry
	base   []models.AgentMetadata
	logger *logging.Logger

	// OnReload, if set, is called after every reload attempt.
	OnReload func(err error)
}

// NewReloader creates a reloader for dir. logger may be nil.
func NewReloader(dir string, reg *MemoryRegistry, base []models.AgentMetadata, logger *logging.Logger) *Reloader {
	return &Reloader{
		dir:    dir,
		reg:    reg,
		base:   base,
		logger: logger.With("registry"),
	}
}

// Reload reads the directory and replaces the registry contents. On error
// the registry keeps its previous contents.
func (r *Reloader) Reload() error {
	loaded, err := LoadDir(r.dir)
	if err == nil {
		err = r.reg.Replace(Overlay(r.base, loaded))
	}
	if err != nil {
		r.logger.Log("reload of %s failed: %v", r.dir, err)
	} else {
		r.logger.Log("reloaded %d agents from %s", r.reg.Len(), r.dir)
	}
	if r.OnReload != nil {
		r.OnReload(err)
	}
	return err
}

// Watch reloads once, then again whenever a definition file in the
// directory changes, until ctx is done. The directory is created if it
// does not exist.
func (r *Reloader) Watch(ctx context.Context) error {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return fmt.Errorf("create agent dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(r.dir); err != nil {
		return fmt.Errorf("watch %s: %w", r.dir, err)
	}

	_ = r.Reload()

	const relevant = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&relevant == 0 || !IsDefinitionFile(filepath.Base(event.Name)) {
				continue
			}
			r.logger.Log("definition change: %s %s", event.Op, event.Name)
			_ = r.Reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Log("watcher error: %v", err)
		}
	}
}
