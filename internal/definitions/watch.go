package definitions

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"pluginscaffold/internal/logging"
)

type watcher interface {
	Add(string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

type fsnotifyWatcher struct {
	w *fsnotify.Watcher
}

func (f fsnotifyWatcher) Add(name string) error         { return f.w.Add(name) }
func (f fsnotifyWatcher) Close() error                  { return f.w.Close() }
func (f fsnotifyWatcher) Events() <-chan fsnotify.Event { return f.w.Events }
func (f fsnotifyWatcher) Errors() <-chan error          { return f.w.Errors }

var newWatcher = func() (watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return fsnotifyWatcher{w: w}, nil
}

// DefaultDebounce is how long Watch waits for a burst of writes to settle.
const DefaultDebounce = 100 * time.Millisecond

// Watch reloads the definitions under dir whenever an .hcl file changes and
// hands the result to reload. A failed load is passed on as the error and the
// caller keeps its previous set. Watch blocks until ctx is done.
func Watch(ctx context.Context, dir string, debounce time.Duration, reload func(*Set, error)) error {
	log := logging.FromContext(ctx).WithName("definitions")
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := newWatcher()
	if err != nil {
		return fmt.Errorf("failed to create a definitions watcher: %w", err)
	}
	defer w.Close()

	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to establish a watch on %s: %w", dir, err)
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if st, err := os.Stat(ev.Name); err == nil && st.IsDir() {
					if err := w.Add(ev.Name); err != nil {
						log.Error(err, "failed to watch new directory", "dir", ev.Name)
					}
					continue
				}
			}
			if filepath.Ext(ev.Name) != ".hcl" || ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			log.V(1).Info("definition changed", "file", ev.Name, "op", ev.Op.String())
			timer.Reset(debounce)
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			log.Error(err, "an error occurred while watching definitions", "dir", dir)
		case <-timer.C:
			set, err := LoadDir(ctx, dir)
			if err != nil {
				log.Error(err, "failed to reload definitions", "dir", dir)
			} else {
				log.Info("definitions reloaded", "dir", dir, "count", set.Len())
			}
			reload(set, err)
		}
	}
}
