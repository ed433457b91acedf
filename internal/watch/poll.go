package watch

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

func (w *Watcher) runPoll(ctx context.Context, stopCh chan struct{}) error {
	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			w.checkForChanges()
		}
	}
}

// scanInitial builds the initial timestamp map; no changes are reported for
// files that already exist when watching begins.
func (w *Watcher) scanInitial() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.walkFiles(func(p string, info os.FileInfo) {
		w.timestamps[p] = info.ModTime()
	})
}

// checkForChanges reports new and modified files since the last scan.
func (w *Watcher) checkForChanges() {
	var changed []string
	seen := make(map[string]struct{}, len(w.timestamps))

	w.mu.Lock()
	w.walkFiles(func(p string, info os.FileInfo) {
		seen[p] = struct{}{}
		lastMod, exists := w.timestamps[p]
		modTime := info.ModTime()
		if !exists || !modTime.Equal(lastMod) {
			w.timestamps[p] = modTime
			changed = append(changed, p)
		}
	})
	for p := range w.timestamps {
		if _, ok := seen[p]; !ok {
			delete(w.timestamps, p)
		}
	}
	w.mu.Unlock()

	for _, p := range changed {
		w.emit(p)
	}
}

// walkFiles calls fn for every regular file under the watch roots. Callers
// must hold w.mu.
func (w *Watcher) walkFiles(fn func(string, os.FileInfo)) {
	for _, root := range w.config.Roots {
		filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() {
				if p != root && w.shouldIgnore(p) {
					return filepath.SkipDir
				}
				return nil
			}
			if !info.Mode().IsRegular() {
				return nil
			}
			fn(p, info)
			return nil
		})
	}
}
