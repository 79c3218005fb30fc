package dictionary

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"atstailor/internal/errors"
)

// Watcher reloads a dictionary file into a Store when it changes on disk.
type Watcher struct {
	mu sync.Mutex

	path    string
	store   *Store
	logger  *errors.Logger
	modTime time.Time
	size    int64

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}
	done       chan struct{}

	// onReload is called after every reload attempt; tests hook it.
	onReload func(error)
	running  bool
}

// NewWatcher creates a watcher for path feeding store.
func NewWatcher(path string, store *Store, debounceDelay time.Duration, logger *errors.Logger) *Watcher {
	if debounceDelay <= 0 {
		debounceDelay = time.Second
	}
	if logger == nil {
		logger = errors.Discard()
	}
	return &Watcher{
		path:          path,
		store:         store,
		logger:        logger,
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
}

// Start begins watching. The file's directory is watched too so editors that
// save by rename are seen.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("dictionary watcher is already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("failed to watch directory of %s: %w", w.path, err)
	}
	if stat, err := os.Stat(w.path); err == nil {
		w.modTime, w.size = stat.ModTime(), stat.Size()
	}

	w.fsWatcher = fsw
	w.running = true
	go w.watchLoop()

	w.logger.Info("Dictionary watcher started", "path", w.path, "debounce_delay", w.debounceDelay)
	return nil
}

// Stop ends watching and waits for the loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	close(w.stopChan)
	w.mu.Unlock()

	<-w.done
	return w.fsWatcher.Close()
}

func (w *Watcher) watchLoop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if w.shouldProcessEvent(event) {
				w.scheduleReload()
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.LogError(err, "Dictionary watcher error")

		case <-w.reloadChan:
			if w.hasChanged() {
				w.logger.Info("Dictionary file changed, reloading", "path", w.path)
				err := w.store.Reload(w.path)
				if w.onReload != nil {
					w.onReload(err)
				}
			}

		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(w.path) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func (w *Watcher) hasChanged() bool {
	stat, err := os.Stat(w.path)
	if err != nil {
		return false
	}
	if stat.ModTime().Equal(w.modTime) && stat.Size() == w.size {
		return false
	}
	w.modTime, w.size = stat.ModTime(), stat.Size()
	return true
}

// scheduleReload restarts the debounce timer.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, func() {
		select {
		case w.reloadChan <- struct{}{}:
		default:
		}
	})
}
