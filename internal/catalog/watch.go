package catalog

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the catalog from dir whenever a catalog file changes and
// then calls onReload. Bursts of events are coalesced by debounce. Watch
// returns once the watcher is running; it stops when ctx is done.
func (l *Loader) Watch(ctx context.Context, dir string, debounce time.Duration, onReload func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	go l.watchLoop(ctx, watcher, dir, debounce, onReload)
	return nil
}

func (l *Loader) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, dir string, debounce time.Duration, onReload func()) {
	defer watcher.Close()
	slog.Info("catalog watcher started", "dir", dir)

	var timer *time.Timer
	reload := func() {
		if err := l.LoadFromDir(dir); err != nil {
			slog.Error("catalog reload failed", "error", err)
			return
		}
		if onReload != nil {
			onReload()
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			slog.Info("catalog watcher stopped")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) && isDir(event.Name) {
				_ = watcher.Add(event.Name)
			}
			if !isCatalogFile(event.Name) {
				continue
			}
			slog.Debug("catalog file changed", "file", event.Name, "op", event.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, reload)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("catalog watcher error", "error", err)
		}
	}
}

func isCatalogFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
