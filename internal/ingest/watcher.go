package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tenkanalyzer/tenk-analyzer/constants"
)

type WatchConfig struct {
	Roots       []string            // directories to watch (recursive)
	AllowedExts map[string]struct{} // lowercase, without '.'; nil -> pdf only
	InitialScan bool                // if true, walk roots and emit existing files
	Debounce    time.Duration       // coalesce rapid create/write bursts
}

// StartWatcher watches the configured roots recursively and emits the path of
// every created or rewritten filing on the returned channel. Both channels
// close when ctx is cancelled.
func StartWatcher(ctx context.Context, cfg WatchConfig) (<-chan string, <-chan error, error) {
	if len(cfg.Roots) == 0 {
		slog.Error("watcher start failed: no roots provided")
		return nil, nil, errors.New("no roots provided")
	}
	exts := cfg.AllowedExts
	if exts == nil {
		exts = map[string]struct{}{"pdf": {}}
	}
	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	// Add roots recursively, optionally emitting files already on disk.
	addTree := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan && watchable(path, exts) {
				select {
				case evCh <- path:
				default:
				}
			}
			return nil
		})
	}
	for _, r := range cfg.Roots {
		if err := addTree(r); err != nil {
			slog.Error("failed to add root directory", "root", r, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() { _ = w.Close() }()

		pending := map[string]struct{}{}
		var (
			timer  *time.Timer
			timerC <-chan time.Time
		)
		flush := func() {
			for p := range pending {
				select {
				case evCh <- p:
				default:
				}
				delete(pending, p)
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				// New directories need their own watch.
				if e.Op&fsnotify.Create != 0 {
					if info, err := os.Stat(e.Name); err == nil && info.IsDir() {
						if err := addTree(e.Name); err != nil {
							slog.Warn("failed to watch new directory", "path", e.Name, "error", err)
						}
						continue
					}
				}

				if watchable(e.Name, exts) && e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
					pending[e.Name] = struct{}{}
					if cfg.Debounce > 0 {
						if timer == nil {
							timer = time.NewTimer(cfg.Debounce)
						} else {
							timer.Stop()
							timer.Reset(cfg.Debounce)
						}
						timerC = timer.C
					} else {
						flush()
					}
				}
			case <-timerC:
				timerC = nil
				flush()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

func watchable(path string, exts map[string]struct{}) bool {
	if IsHidden(path) {
		return false
	}
	_, ok := exts[constants.NormalizeExt(filepath.Ext(path))]
	return ok
}
