package chat

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// selfWriteWindow is how long after one of our own saves an event on the
// store file is attributed to that save rather than to an outside writer.
const selfWriteWindow = 500 * time.Millisecond

// StoreWatcher observes the chat store file and reports modifications made
// outside the process. Conflict resolution stays last-write-wins; the
// watcher only makes the overwrite observable.
type StoreWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	done     chan struct{}
	stopOnce sync.Once

	mu            sync.Mutex
	suppressUntil time.Time

	// OnExternalChange, when set, is invoked for every external
	// modification after the warning is logged.
	OnExternalChange func()
}

// NewStoreWatcher creates a watcher for the store file at path. The parent
// directory is watched because saves replace the file by rename.
func NewStoreWatcher(path string) (*StoreWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &StoreWatcher{
		watcher: w,
		path:    path,
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching. The store directory must exist.
func (w *StoreWatcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch store directory: %w", err)
	}
	go w.eventLoop()
	log.Debug().Str("path", w.path).Msg("chat store watcher started")
	return nil
}

// MarkSelfWrite tells the watcher that an imminent event on the store file
// is our own save and should not be reported.
func (w *StoreWatcher) MarkSelfWrite() {
	w.mu.Lock()
	w.suppressUntil = time.Now().Add(selfWriteWindow)
	w.mu.Unlock()
}

// Stop stops the watcher.
func (w *StoreWatcher) Stop() error {
	w.stopOnce.Do(func() { close(w.done) })
	return w.watcher.Close()
}

func (w *StoreWatcher) eventLoop() {
	base := filepath.Base(w.path)
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if w.selfWrite() {
				continue
			}
			log.Warn().Str("path", w.path).Msg("chat store modified outside the application; the next save wins")
			if w.OnExternalChange != nil {
				w.OnExternalChange()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("chat store watcher error")
		}
	}
}

func (w *StoreWatcher) selfWrite() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return time.Now().Before(w.suppressUntil)
}
