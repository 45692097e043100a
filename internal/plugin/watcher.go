package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce collects bursts of file events (an unpacked plugin, an editor
// save) into one rescan.
const watchDebounce = 200 * time.Millisecond

// Watch rediscovers plugins whenever the plugin directory or one of its plugin
// folders changes, until ctx is cancelled. The directory must exist.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create plugin watcher: %w", err)
	}

	if err := watcher.Add(m.pluginDir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", m.pluginDir, err)
	}
	m.watchSubdirs(watcher)

	go m.watchLoop(ctx, watcher)
	return nil
}

// watchSubdirs adds every plugin folder; manifests live one level down.
func (m *Manager) watchSubdirs(watcher *fsnotify.Watcher) {
	entries, err := os.ReadDir(m.pluginDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			_ = watcher.Add(filepath.Join(m.pluginDir, entry.Name()))
		}
	}
}

func (m *Manager) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	debounce := time.NewTimer(0)
	<-debounce.C
	pending := false

	for {
		select {
		case <-ctx.Done():
			debounce.Stop()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			pending = true
			debounce.Reset(watchDebounce)

		case <-debounce.C:
			if !pending {
				continue
			}
			pending = false
			if err := m.Discover(); err != nil {
				slog.Warn("Plugin rescan failed", "dir", m.pluginDir, "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Plugin watcher error", "error", err)
		}
	}
}
