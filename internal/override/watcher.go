package override

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/AryaShetye/clarify-md/internal/logging"
)

// Watcher hot-reloads the escalation table when its YAML file changes on
// disk. Reloads are debounced (editors fire several events per save),
// validated before swap, and atomic: concurrent Evaluate calls never observe
// a partial table, and a broken file leaves the last-good table active.
type Watcher struct {
	mu        sync.Mutex
	watcher   *fsnotify.Watcher
	engine    *Engine
	path      string
	debounce  time.Duration
	pending   bool
	pendingAt time.Time
	running   bool
	stopCh    chan struct{}
	doneCh    chan struct{}

	logger *zap.Logger
	audit  *logging.Auditor

	stats WatcherStats
}

// WatcherStats counts watcher activity for tests and debugging.
type WatcherStats struct {
	Reloads       int
	ReloadErrors  int
	WatcherErrors int
}

// NewWatcher builds a watcher for the table file feeding engine.
func NewWatcher(path string, engine *Engine, logger *zap.Logger, audit *logging.Auditor) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:  fw,
		engine:   engine,
		path:     filepath.Clean(path),
		debounce: 250 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		logger:   logging.OrNop(logger),
		audit:    audit,
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs in a goroutine
// until Stop or context cancellation. The parent directory is watched rather
// than the file itself so atomic-rename saves keep working.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	w.logger.Info("watching override table", zap.String("path", w.path))

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to drain.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.logger.Error("closing override watcher", zap.Error(err))
	}
}

// Stats returns a snapshot of watcher counters.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("override watcher error", zap.Error(err))
			w.mu.Lock()
			w.stats.WatcherErrors++
			w.mu.Unlock()
		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	w.mu.Lock()
	w.pending = true
	w.pendingAt = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flushPending() {
	w.mu.Lock()
	due := w.pending && time.Since(w.pendingAt) >= w.debounce
	if due {
		w.pending = false
	}
	w.mu.Unlock()
	if !due {
		return
	}
	w.reload()
}

func (w *Watcher) reload() {
	table, err := LoadTable(w.path)
	if err == nil {
		err = w.engine.Swap(table)
	}

	w.mu.Lock()
	if err != nil {
		w.stats.ReloadErrors++
	} else {
		w.stats.Reloads++
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Warn("override table reload rejected, keeping last-good table",
			zap.String("path", w.path), zap.Error(err))
		w.audit.OverrideReload(w.path, w.engine.RuleCount(), err)
		return
	}
	w.logger.Info("override table reloaded",
		zap.String("path", w.path), zap.Int("rules", w.engine.RuleCount()))
	w.audit.OverrideReload(w.path, w.engine.RuleCount(), nil)
}
