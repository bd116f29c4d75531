// internal/poller/files/watch.go
package files

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher coalesces filesystem events on the read root into change signals.
// It only observes; it never touches the watched directory.
type Watcher struct {
	fw       *fsnotify.Watcher
	names    map[string]struct{}
	debounce time.Duration
	log      *zap.Logger

	out  chan struct{}
	stop chan struct{}
	done chan struct{}
}

// NewWatcher watches root for changes to the given artifact names.
func NewWatcher(root string, names []string, debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("files watcher: %w", err)
	}
	if err := fw.Add(root); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("files watcher: watch %s: %w", root, err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}

	w := &Watcher{
		fw:       fw,
		names:    set,
		debounce: debounce,
		log:      log,
		out:      make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Changes delivers at most one pending signal; bursts are coalesced.
func (w *Watcher) Changes() <-chan struct{} { return w.out }

// Close stops the watcher and waits for its goroutine.
func (w *Watcher) Close() error {
	close(w.stop)
	<-w.done
	return w.fw.Close()
}

func (w *Watcher) loop() {
	defer close(w.done)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.stop:
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("read root watch error", zap.Error(err))

		case <-fire:
			fire = nil
			select {
			case w.out <- struct{}{}:
			default:
			}
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	_, ok := w.names[filepath.Base(ev.Name)]
	return ok
}
