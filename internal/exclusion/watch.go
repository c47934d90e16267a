package exclusion

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads policy whenever the settings file changes on disk, so rules edited
// by hand reach a walk that is already running. It watches the parent directory
// because editors usually replace the file instead of writing it in place.
// Watch blocks until ctx is done.
func Watch(ctx context.Context, policy *Policy, file *File, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create settings watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(file.Path())
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target := filepath.Clean(file.Path())
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
			reload(policy, file, logger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Settings watcher error", "error", err)
		}
	}
}

func reload(policy *Policy, file *File, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	changed, err := policy.Reload(file)
	if err != nil {
		logger.Warn("Failed to reload exclusions", "path", file.Path(), "error", err)
		return
	}
	if changed {
		logger.Info("Exclusions reloaded", "count", len(policy.List()))
	}
}
