package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/smazurov/camnode/internal/logging"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads a config file when it changes and hands the fresh value
// to every registered handler. The parent directory is watched so saves
// that replace the file by rename are seen too.
type Watcher[T any] struct {
	path     string
	debounce time.Duration
	loader   func(path string) (T, error)
	onError  func(error)
	logger   *slog.Logger

	mu       sync.RWMutex
	handlers map[int]func(T)
	nextID   int

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption[T any] func(*Watcher[T])

// WithDebounce sets how long the file must be quiet before reloading.
func WithDebounce[T any](d time.Duration) WatcherOption[T] {
	return func(w *Watcher[T]) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithErrorHandler sets a callback for load failures. Failures are logged
// either way and handlers are not called.
func WithErrorHandler[T any](handler func(error)) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.onError = handler
	}
}

// NewConfigWatcher creates a watcher that calls loader on every change.
func NewConfigWatcher[T any](path string, loader func(path string) (T, error), logger *slog.Logger, opts ...WatcherOption[T]) *Watcher[T] {
	w := &Watcher[T]{
		path:     filepath.Clean(path),
		debounce: DefaultDebounce,
		loader:   loader,
		logger:   logger,
		handlers: make(map[int]func(T)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnReload registers handler and returns a function that removes it.
func (w *Watcher[T]) OnReload(handler func(T)) func() {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.handlers[id] = handler
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.handlers, id)
		w.mu.Unlock()
	}
}

// Start begins watching until ctx is done or Stop is called.
func (w *Watcher[T]) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	w.watcher = watcher
	w.cancel = cancel
	w.done = make(chan struct{})

	w.logger.Info("Config watcher started", "path", w.path, "debounce", w.debounce)
	go w.watch(ctx)
	return nil
}

// Stop ends watching and waits for the watch loop to exit.
func (w *Watcher[T]) Stop() error {
	if w.watcher == nil {
		return nil
	}
	w.cancel()
	<-w.done
	return w.watcher.Close()
}

func (w *Watcher[T]) watch(ctx context.Context) {
	defer close(w.done)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Config watcher stopped")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("Config file change detected", "op", event.Op.String())
			timer.Reset(w.debounce)

		case <-timer.C:
			w.logger.Info("Config file changed, reloading", "path", w.path)
			w.loadAndNotify()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Config watcher error", "error", err)
		}
	}
}

// loadAndNotify loads the file once and passes the same value to every handler.
func (w *Watcher[T]) loadAndNotify() {
	cfg, err := w.loader(w.path)
	if err != nil {
		w.logger.Warn("Failed to load config", "error", err)
		if w.onError != nil {
			w.onError(err)
		}
		return
	}

	w.mu.RLock()
	handlers := make([]func(T), 0, len(w.handlers))
	for _, h := range w.handlers {
		handlers = append(handlers, h)
	}
	w.mu.RUnlock()

	for _, handler := range handlers {
		handler(cfg)
	}
}

// WatchLogging starts a watcher that applies the [logging] table's levels
// whenever path changes. Pipeline recipes are not reloaded.
func WatchLogging(ctx context.Context, path string, logger *slog.Logger) (*Watcher[logging.Config], error) {
	w := NewConfigWatcher(path, LoadLogging, logger)
	w.OnReload(func(cfg logging.Config) {
		logging.SetLevels(cfg)
		logger.Info("Log levels reloaded", "level", cfg.Level, "modules", cfg.Modules)
	})
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}
