package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vango-dev/livedev/internal/errors"
)

// Change represents a detected file change.
type Change struct {
	// Path is the absolute path of the changed file.
	Path string
}

// Config configures the file watcher.
type Config struct {
	// Roots are the directories to watch recursively.
	Roots []string

	// Ignore lists directory names that are never descended into.
	Ignore []string

	// Poll selects the mtime-scanning backend instead of fsnotify.
	Poll bool

	// Interval is the scan period of the polling backend.
	Interval time.Duration

	// Logger receives watcher diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultIgnore contains directory names skipped while walking roots.
var DefaultIgnore = []string{
	".git",
	"node_modules",
}

// DefaultInterval is the default scan period of the polling backend.
const DefaultInterval = 250 * time.Millisecond

// Watcher monitors directory trees for file changes.
type Watcher struct {
	config   Config
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
	onChange func(Change)
	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}

	// polling backend state
	timestamps map[string]time.Time
}

// New creates a watcher for the configured roots. Every root must be an
// existing directory; a missing root is a configuration error.
func New(config Config) (*Watcher, error) {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.Ignore == nil {
		config.Ignore = DefaultIgnore
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	roots := make([]string, 0, len(config.Roots))
	for _, root := range config.Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, errors.New("E202").WithDetail(root).Wrap(err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, errors.New("E202").WithDetail(abs).Wrap(err)
		}
		if !info.IsDir() {
			return nil, errors.New("E202").WithDetail(abs + " is not a directory")
		}
		roots = append(roots, abs)
	}
	config.Roots = collapseRoots(roots)

	w := &Watcher{
		config:     config,
		logger:     logger.With("component", "watcher"),
		timestamps: make(map[string]time.Time),
	}

	if config.Poll {
		w.scanInitial()
		return w, nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.New("E203").Wrap(err)
	}
	w.fsw = fsw

	for _, root := range config.Roots {
		if err := w.addTree(root); err != nil {
			fsw.Close()
			return nil, errors.New("E203").WithDetail(root).Wrap(err)
		}
	}

	return w, nil
}

// Roots returns the absolute directories being watched.
func (w *Watcher) Roots() []string {
	return append([]string(nil), w.config.Roots...)
}

// OnChange sets the callback for file changes. The callback runs on the
// watcher's goroutine and must not block for long.
func (w *Watcher) OnChange(fn func(Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start begins watching for file changes. It blocks until ctx is cancelled or
// Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	w.mu.Unlock()

	w.logger.Info("watcher started",
		"roots", w.config.Roots,
		"poll", w.config.Poll,
	)

	if w.config.Poll {
		return w.runPoll(ctx, stopCh)
	}
	return w.runNotify(ctx, stopCh)
}

// Stop stops the watcher and releases its resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		close(w.stopCh)
		w.running = false
	}
	if w.fsw != nil {
		w.fsw.Close()
	}
}

func (w *Watcher) runNotify(ctx context.Context, stopCh chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}
	if w.shouldIgnore(event.Name) {
		return
	}

	if event.Has(fsnotify.Create) {
		info, err := os.Stat(event.Name)
		if err == nil && info.IsDir() {
			// Files written before the new directory was registered would
			// otherwise be missed.
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
			w.emitTree(event.Name)
			return
		}
	}

	w.emit(event.Name)
}

// addTree registers dir and every non-ignored subdirectory with fsnotify.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			w.logger.Debug("skipping inaccessible path", "path", p, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && w.shouldIgnore(p) {
			return filepath.SkipDir
		}
		return w.fsw.Add(p)
	})
}

func (w *Watcher) emitTree(dir string) {
	filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != dir && w.shouldIgnore(p) {
				return filepath.SkipDir
			}
			return nil
		}
		w.emit(p)
		return nil
	})
}

func (w *Watcher) emit(path string) {
	w.mu.Lock()
	callback := w.onChange
	w.mu.Unlock()

	if callback == nil {
		return
	}
	w.logger.Debug("file changed", "path", path)
	callback(Change{Path: path})
}

// shouldIgnore reports whether any segment of path below its watch root is
// an ignored directory name.
func (w *Watcher) shouldIgnore(fullPath string) bool {
	rel := fullPath
	for _, root := range w.config.Roots {
		if isWithinDir(fullPath, root) {
			if r, err := filepath.Rel(root, fullPath); err == nil {
				rel = r
			}
			break
		}
	}

	for _, segment := range splitPathSegments(filepath.ToSlash(rel)) {
		for _, pattern := range w.config.Ignore {
			if segment == strings.TrimSpace(pattern) {
				return true
			}
		}
	}
	return false
}

func splitPathSegments(path string) []string {
	if path == "" {
		return nil
	}
	parts := strings.Split(path, "/")
	result := parts[:0]
	for _, part := range parts {
		if part != "" && part != "." {
			result = append(result, part)
		}
	}
	return result
}

func isWithinDir(path, dir string) bool {
	path = filepath.Clean(path)
	dir = filepath.Clean(dir)
	if path == dir {
		return true
	}
	if !strings.HasSuffix(dir, string(os.PathSeparator)) {
		dir += string(os.PathSeparator)
	}
	return strings.HasPrefix(path, dir)
}
