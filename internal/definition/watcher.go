package definition

import (
	"context"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period after the last file event before the
// registry is reloaded.
const DefaultDebounce = 200 * time.Millisecond

// ReloadFunc is notified after every reload attempt.
type ReloadFunc func(count int, err error)

// Watcher reloads a Registry whenever a layout file under one of its
// directories is written, created, removed or renamed. A failed reload
// keeps the previous snapshot.
type Watcher struct {
	loader      *Loader
	registry    *Registry
	directories []string
	logger      *zap.Logger
	debounce    time.Duration
	onReload    ReloadFunc
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithReloadHook registers fn to run after each reload attempt.
func WithReloadHook(fn ReloadFunc) WatcherOption {
	return func(w *Watcher) { w.onReload = fn }
}

// NewWatcher creates a Watcher over the given directories.
func NewWatcher(loader *Loader, registry *Registry, directories []string, logger *zap.Logger, opts ...WatcherOption) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Watcher{
		loader:      loader,
		registry:    registry,
		directories: directories,
		logger:      logger,
		debounce:    DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Reload loads every directory and swaps the registry on success.
func (w *Watcher) Reload() error {
	defs, err := w.loader.LoadAll(w.directories)
	if err != nil {
		w.logger.Warn("layout reload failed, keeping previous snapshot", zap.Error(err))
		if w.onReload != nil {
			w.onReload(0, err)
		}
		return err
	}
	w.registry.Replace(defs)
	w.logger.Info("layouts reloaded",
		zap.Int("count", len(defs)),
		zap.String("checksum", w.registry.Checksum()),
	)
	if w.onReload != nil {
		w.onReload(len(defs), nil)
	}
	return nil
}

// Start begins watching in a background goroutine that runs until ctx is
// cancelled. Subdirectories present at start are watched too.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, dir := range w.directories {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return fw.Add(path)
			}
			return nil
		})
		if err != nil {
			_ = fw.Close()
			return err
		}
	}

	go w.loop(ctx, fw)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher) {
	defer func() { _ = fw.Close() }()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if !IsLayoutFile(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.logger.Debug("layout file changed",
					zap.String("file", event.Name),
					zap.String("op", event.Op.String()),
				)
				timer.Reset(w.debounce)
			}
		case <-timer.C:
			_ = w.Reload()
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("error watching layout directories", zap.Error(err))
		}
	}
}
