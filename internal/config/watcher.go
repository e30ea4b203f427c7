package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// debounceWindow coalesces the bursts of write events editors and atomic
// renames produce into a single reload.
const debounceWindow = 50 * time.Millisecond

// Watcher watches the config file for changes and reloads it. Only the
// dynamically-safe subset of the config (currently the log level) should be
// applied at runtime; everything else still requires a restart. The OnReload
// callback receives the full reloaded Config and decides what to apply.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string

	// Callback invoked after a successful reload
	onReload func(*Config)
	// Callback invoked when a changed file fails to load or validate
	onError func(error)

	mu      sync.Mutex
	pending *time.Timer
	stopCh  chan struct{}
	stopped bool
}

// NewWatcher creates a watcher for the given config file path.
func NewWatcher(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory, not the file: editors and viper both replace the
	// file by rename, which drops a file-level watch.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	return &Watcher{
		watcher: fw,
		path:    path,
		stopCh:  make(chan struct{}),
	}, nil
}

// OnReload sets the callback for successful reloads.
func (w *Watcher) OnReload(cb func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = cb
}

// OnError sets the callback for reload failures. A failed reload keeps the
// running configuration; the file stays watched.
func (w *Watcher) OnError(cb func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = cb
}

// Start begins watching. It returns immediately; events are handled on a
// background goroutine until Stop is called.
func (w *Watcher) Start() {
	go w.loop()
}

// loop consumes filesystem events and schedules debounced reloads.
func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are transient; keep watching.
		case <-w.stopCh:
			return
		}
	}
}

// scheduleReload arms (or re-arms) the debounce timer.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(debounceWindow, w.reload)
}

// reload re-reads the config file and invokes the appropriate callback.
func (w *Watcher) reload() {
	w.mu.Lock()
	onReload := w.onReload
	onError := w.onError
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		return
	}

	err := viper.ReadInConfig()
	var cfg *Config
	if err == nil {
		cfg, err = Load()
	}
	if err != nil {
		if onError != nil {
			onError(err)
		}
		return
	}
	if onReload != nil {
		onReload(cfg)
	}
}

// Stop shuts the watcher down. No callbacks fire after Stop returns the
// watcher to a stopped state; a reload already in flight may still complete.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	if w.pending != nil {
		w.pending.Stop()
	}
	w.mu.Unlock()

	close(w.stopCh)
	return w.watcher.Close()
}
