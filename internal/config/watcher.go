package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDelay coalesces the burst of events editors produce on save.
const reloadDelay = 200 * time.Millisecond

// Watch reloads the entity file whenever it changes and sends each valid
// result on the returned channel. Invalid files are logged and skipped so
// the previous configuration stays in effect. The channel is closed when ctx
// is done.
func Watch(ctx context.Context, path string, loader *Loader, log *zap.SugaredLogger) (<-chan *Entities, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Watch the directory: editors often replace the file instead of writing it.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	out := make(chan *Entities)
	go func() {
		defer close(out)
		defer watcher.Close()

		timer := time.NewTimer(reloadDelay)
		timer.Stop()
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					timer.Reset(reloadDelay)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warnw("entity file watcher error", "error", err)
			case <-timer.C:
				entities, err := loader.Load(abs)
				if err != nil {
					log.Errorw("entity file reload failed, keeping previous configuration", "file", abs, "error", err)
					continue
				}
				log.Infow("entity file reloaded", "file", abs, "entities", len(entities.Entities))
				select {
				case out <- entities:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
