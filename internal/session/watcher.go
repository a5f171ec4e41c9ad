package session

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"lmsgate/pkg/logging"
)

// DefaultDebounceInterval is the quiet period after the last slot change
// before the manager reloads.
const DefaultDebounceInterval = 200 * time.Millisecond

// SlotWatcher reloads the manager when another process rewrites or removes
// the session slot, e.g. `lmsgate auth login` while `lmsgate serve` runs.
type SlotWatcher struct {
	mu        sync.Mutex
	manager   *Manager
	dir       string
	debounce  time.Duration
	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
	running   bool

	debounceMu    sync.Mutex
	debounceTimer *time.Timer
}

// NewSlotWatcher creates a watcher for the manager's slot directory.
func NewSlotWatcher(manager *Manager, debounce time.Duration) *SlotWatcher {
	if debounce <= 0 {
		debounce = DefaultDebounceInterval
	}
	return &SlotWatcher{
		manager:  manager,
		dir:      filepath.Dir(manager.store.Path()),
		debounce: debounce,
	}
}

// Start begins watching. In memory mode it does nothing. If fsnotify is not
// available the watcher logs a warning and stays inactive.
func (w *SlotWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running || !w.manager.store.FileMode() {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Warn("SessionWatcher", "fsnotify not available, session changes from other processes will not be picked up: %v", err)
		return nil
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		logging.Warn("SessionWatcher", "Failed to watch %s: %v", w.dir, err)
		return nil
	}

	w.fsWatcher = watcher
	w.stopCh = make(chan struct{})
	w.running = true

	go w.processEvents(watcher.Events, watcher.Errors, w.stopCh)

	logging.Debug("SessionWatcher", "Watching %s for session changes", w.dir)
	return nil
}

// Stop ends watching.
func (w *SlotWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.running = false
	close(w.stopCh)
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
		w.fsWatcher = nil
	}

	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceMu.Unlock()
}

func (w *SlotWatcher) processEvents(eventsCh <-chan fsnotify.Event, errorsCh <-chan error, stopCh <-chan struct{}) {
	for {
		select {
		case <-stopCh:
			return
		case event, ok := <-eventsCh:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-errorsCh:
			if !ok {
				return
			}
			logging.Error("SessionWatcher", err, "fsnotify error")
		}
	}
}

func (w *SlotWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Base(event.Name) != SlotFileName {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	w.reloadDebounced()
}

func (w *SlotWatcher) reloadDebounced() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		running := w.running
		w.mu.Unlock()
		if !running {
			return
		}
		if _, err := w.manager.Reload(); err != nil {
			logging.Warn("SessionWatcher", "Failed to reload session slot: %v", err)
		}
	})
}
