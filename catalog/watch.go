package catalog

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads the catalog whenever the file at path changes. A reload
// that fails to parse or validate keeps the previous catalog. Watch blocks
// until ctx is cancelled.
func Watch(ctx context.Context, c *Catalog, path string, logger *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create catalog watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch catalog %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			next, err := Load(path)
			if err != nil {
				logger.Warn("catalog reload failed, keeping previous version",
					zap.String("path", path), zap.Error(err))
				continue
			}
			c.Replace(next)
			logger.Info("catalog reloaded",
				zap.String("path", path), zap.String("version", next.Version))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("catalog watcher error", zap.Error(err))
		}
	}
}
