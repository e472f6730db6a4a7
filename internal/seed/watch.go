package seed

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	appLog "hive/internal/log"
)

// reloadDebounce coalesces the burst of events editors emit on save.
const reloadDebounce = 300 * time.Millisecond

// Watch reloads the demo file whenever it changes, until ctx is done.
// The parent directory is watched so rename-on-save editors are seen.
// onReload, if non-nil, is called after every reload attempt.
func (s *Seed) Watch(ctx context.Context, onReload func(error)) error {
	if s.path == "" {
		return errors.New("seed: built-in demo set cannot be watched")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target := filepath.Clean(s.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}

	var (
		mu       sync.Mutex
		debounce *time.Timer
	)
	reload := func() {
		err := s.Reload()
		if err != nil {
			appLog.Error("demo seed reload failed", err, "path", s.path)
		} else {
			appLog.Info("demo seed reloaded", "path", s.path)
		}
		if onReload != nil {
			onReload(err)
		}
	}
	defer func() {
		mu.Lock()
		if debounce != nil {
			debounce.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			mu.Lock()
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, reload)
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			appLog.Error("demo seed watcher error", err, "path", s.path)
		}
	}
}
