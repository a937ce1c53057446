package engine

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/QodeSrl/infrar-engine/pkg/core"
)

// watchDebounce coalesces bursts of filesystem events (editors often write
// a file several times in quick succession) into one re-run.
const watchDebounce = 250 * time.Millisecond

// Watch runs the batch once, then re-runs it whenever a Python source under
// the input path changes. Each completed run is handed to onRun. Watch
// returns when the context is canceled or the watcher fails.
func (e *Engine) Watch(ctx context.Context, req BatchRequest, onRun func(*core.Report, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := addWatchTree(watcher, req.InputPath); err != nil {
		return err
	}

	run := func() {
		report, err := e.TransformBatch(ctx, req)
		onRun(report, err)
	}
	run()

	var timer *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// New directories must be watched as they appear.
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = addWatchTree(watcher, ev.Name)
				}
			}
			if !strings.HasSuffix(ev.Name, ".py") {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})

		case <-pending:
			e.logger.Debug("source change detected, re-running")
			run()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Error("watch error", "error", err)
		}
	}
}

func addWatchTree(watcher *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return watcher.Add(filepath.Dir(root))
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (strings.HasPrefix(name, ".") || name == "__pycache__") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
