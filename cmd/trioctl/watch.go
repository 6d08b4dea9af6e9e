package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/arloliu/go-trio/logger"
)

// watchFile calls fn each time path is written, once writes have been quiet
// for debounce. It watches the parent directory so that editors replacing the
// file are noticed too. fn runs on the watching goroutine, so calls never
// overlap. watchFile returns when ctx is done.
func watchFile(ctx context.Context, path string, debounce time.Duration, log logger.Logger, fn func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir, name := filepath.Dir(path), filepath.Base(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			fn()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("file watcher error", "path", path, "error", err)
		}
	}
}
