// Package watcher observes a local catalog export and reports settled changes.
//
// The parent directory is watched rather than the file so that exports which
// are replaced by rename (most spreadsheet tools and sqlite3 .backup) keep
// being tracked.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("watcher already started")

// Watcher reports changes to a single export file.
type Watcher struct {
	fs     *fsnotify.Watcher
	target string
	opts   Options
	logger *slog.Logger

	events chan Event
	errors chan error

	mu      sync.Mutex
	timer   *time.Timer
	last    snapshot
	started bool

	done     chan struct{}
	stopOnce sync.Once
}

// snapshot is the stat result the settle timer compares against.
type snapshot struct {
	exists  bool
	size    int64
	modTime time.Time
}

// New creates a watcher for the file at path. The file does not need to exist yet,
// but its directory does.
func New(logger *slog.Logger, path string, opts Options) (*Watcher, error) {
	opts.setDefaults()

	target, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	if err := fsw.Add(filepath.Dir(target)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	return &Watcher{
		fs:     fsw,
		target: target,
		opts:   opts,
		logger: logger,
		events: make(chan Event, 16),
		errors: make(chan error, 16),
		last:   stat(target),
		done:   make(chan struct{}),
	}, nil
}

// Path returns the absolute path of the watched export.
func (w *Watcher) Path() string {
	return w.target
}

// Events returns settled change events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns errors reported by the underlying notifier.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Start processes notifications until ctx is canceled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return ErrAlreadyStarted
	}
	w.started = true
	w.mu.Unlock()

	w.logger.Info("watching catalog export", "path", w.target, "settle", w.opts.SettleDelay)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			select {
			case w.errors <- err:
			default:
				w.logger.Warn("watcher error dropped", "error", err)
			}
		}
	}
}

// Stop releases the notifier. Safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)

		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()

		err = w.fs.Close()
	})
	return err
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !matches(w.target, event.Name) {
		return
	}
	if event.Op == fsnotify.Chmod {
		return
	}
	// A deleted journal only means a checkpoint finished.
	if event.Op&fsnotify.Remove != 0 && isJournal(w.target, event.Name) {
		return
	}

	w.logger.Debug("export touched", "name", event.Name, "op", event.Op.String())
	w.arm()
}

// arm (re)starts the settle timer.
func (w *Watcher) arm() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	pending := stat(w.target)
	w.timer = time.AfterFunc(w.opts.SettleDelay, func() {
		w.settle(pending)
	})
}

// settle fires once the export looks the same as when the timer was armed.
func (w *Watcher) settle(pending snapshot) {
	current := stat(w.target)
	if !current.equal(pending) {
		w.mu.Lock()
		w.timer = time.AfterFunc(w.opts.SettleDelay, func() {
			w.settle(current)
		})
		w.mu.Unlock()
		return
	}

	w.mu.Lock()
	previous := w.last
	w.last = current
	w.mu.Unlock()

	var kind EventType
	switch {
	case !current.exists && !previous.exists:
		return
	case !current.exists:
		kind = EventRemoved
	case !previous.exists:
		kind = EventAdded
	default:
		kind = EventModified
	}

	ev := Event{Type: kind, Path: w.target, Size: current.size, ModTime: current.modTime}
	select {
	case w.events <- ev:
	case <-w.done:
	}
}

func (s snapshot) equal(o snapshot) bool {
	return s.exists == o.exists && s.size == o.size && s.modTime.Equal(o.modTime)
}

func stat(path string) snapshot {
	info, err := os.Stat(path)
	if err != nil {
		return snapshot{}
	}
	return snapshot{exists: true, size: info.Size(), modTime: info.ModTime()}
}
