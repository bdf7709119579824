package fs

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/fsnotify/fsnotify"
)

// Watch implements core.Watchable. It emits the key of every record file
// changed by another process. Writes made through this KV are ignored, and
// bursts of events for one key are debounced. The channel is closed when
// ctx ends.
func (k *KV) Watch(ctx context.Context) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(k.Path); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", k.Path, err)
	}

	out := make(chan string, 16)
	d := newDebouncer(k.config.Debounce)
	k.setWatcherActive(true)

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(out)
		defer k.setWatcherActive(false)
		defer watcher.Close()
		defer func() {
			if recovered := recover(); recovered != nil {
				var stack string
				if k.config.Logger.Enabled(ctx, slog.LevelDebug) {
					stack = string(debug.Stack())
				}
				k.config.Logger.Error("watcher panic", "error", recovered, "stack", stack)
			}
		}()

		err := k.watchLoop(ctx, watcher, d, out)
		// Stop accepting new events and wait for in-flight timers before out closes.
		d.stopAndWait(5 * time.Second)
		return err
	}, lifecycle.WithErrorHandler(func(err error) {
		k.reportError(fmt.Errorf("watcher failed: %w", err))
	}))

	return out, nil
}

func (k *KV) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, d *debouncer, out chan<- string) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			key, ok := k.keyOf(event.Name)
			if !ok {
				continue
			}
			k.config.Logger.Debug("event received", "name", event.Name, "op", event.Op.String())

			d.add(key, func(key string) {
				if k.isOwnWrite(key) {
					return
				}
				select {
				case out <- key:
				case <-ctx.Done():
				}
			})

		case wErr, ok := <-watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			k.config.Logger.Error("fsnotify error", "error", wErr)
			k.reportError(wErr)
		}
	}
}

func (k *KV) reportError(err error) {
	if k.config.ErrorHandler != nil {
		k.config.ErrorHandler(err)
		return
	}
	k.config.Logger.Error("watch error", "error", err)
}

func (k *KV) setWatcherActive(active bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.watcherActive = active
}

// debouncer delays a callback per key until events for that key stop
// arriving for the configured window.
type debouncer struct {
	window time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
	wg      sync.WaitGroup
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{window: window, timers: make(map[string]*time.Timer)}
}

func (d *debouncer) add(key string, fn func(string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if t, ok := d.timers[key]; ok && t.Stop() {
		// The pending callback never ran; its slot in wg is reused.
		t.Reset(d.window)
		return
	}
	d.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(d.window, func() {
		defer d.wg.Done()
		d.mu.Lock()
		if d.timers[key] == t {
			delete(d.timers, key)
		}
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			fn(key)
		}
	})
	d.timers[key] = t
}

// stopAndWait cancels pending callbacks and waits for running ones.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	for key, t := range d.timers {
		if t.Stop() {
			d.wg.Done()
		}
		delete(d.timers, key)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
