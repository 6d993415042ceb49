package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long a watcher waits for a burst of events on one
// binary to settle.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports binaries that change in a directory.
type Watcher struct {
	// Debounce coalesces events on one binary. Set before Run.
	Debounce time.Duration

	dir     string
	logger  zerolog.Logger
	watcher *fsnotify.Watcher
}

// NewWatcher starts watching dir. Events are buffered until Run.
func NewWatcher(dir string, logger zerolog.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &Watcher{
		Debounce: DefaultDebounce,
		dir:      dir,
		logger:   logger.With().Str("component", "binary-watcher").Logger(),
		watcher:  watcher,
	}, nil
}

// Watch calls onChange with the logical name of every binary that is
// written, created, removed or renamed in dir, until ctx is done.
func Watch(ctx context.Context, dir string, onChange func(name string), logger zerolog.Logger) error {
	w, err := NewWatcher(dir, logger)
	if err != nil {
		return err
	}
	return w.Run(ctx, onChange)
}

// Run processes events until ctx is done, then closes the watcher.
// onChange is called from the Run goroutine only.
func (w *Watcher) Run(ctx context.Context, onChange func(name string)) error {
	defer w.watcher.Close()

	w.logger.Info().Str("dir", w.dir).Msg("Started watching binaries")

	changes := newDebounce(w.Debounce)
	fired := make(chan firing)
	defer changes.stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Str("dir", w.dir).Msg("Stopped watching binaries")
			return nil

		case f := <-fired:
			if changes.accept(f) {
				onChange(f.name)
			}

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			name, ok := binaryName(event)
			if !ok {
				continue
			}

			w.logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("Binary changed")

			changes.schedule(ctx, name, fired)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

// Close stops the watcher without running it.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// firing is a debounce timer expiry for one generation of a binary's changes.
type firing struct {
	name string
	gen  uint64
}

type pendingChange struct {
	timer *time.Timer
	gen   uint64
}

// debounce coalesces bursts of changes per binary. It is owned by the Run
// goroutine. A timer that fired before being superseded carries a stale
// generation and is dropped by accept.
type debounce struct {
	delay   time.Duration
	gen     uint64
	pending map[string]pendingChange
}

func newDebounce(delay time.Duration) *debounce {
	return &debounce{delay: delay, pending: make(map[string]pendingChange)}
}

func (d *debounce) schedule(ctx context.Context, name string, fired chan<- firing) {
	if p, exists := d.pending[name]; exists {
		p.timer.Stop()
	}
	d.gen++
	f := firing{name: name, gen: d.gen}
	d.pending[name] = pendingChange{
		gen: f.gen,
		timer: time.AfterFunc(d.delay, func() {
			select {
			case fired <- f:
			case <-ctx.Done():
			}
		}),
	}
}

// accept reports whether f is the latest change of its binary, and so
// should be delivered.
func (d *debounce) accept(f firing) bool {
	p, ok := d.pending[f.name]
	if !ok || p.gen != f.gen {
		return false
	}
	delete(d.pending, f.name)
	return true
}

func (d *debounce) stop() {
	for _, p := range d.pending {
		p.timer.Stop()
	}
}

func binaryName(event fsnotify.Event) (string, bool) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return "", false
	}
	base := filepath.Base(event.Name)
	if !strings.HasSuffix(base, Extension) {
		return "", false
	}
	return strings.TrimSuffix(base, Extension), true
}
