package priority

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	"github.com/rs/zerolog/log"
)

// Watcher keeps a live tier snapshot over a watched directory. File
// changes reload the whole directory after a debounce; readers always see
// a complete snapshot, never a half-loaded one. A failed reload keeps the
// previous snapshot.
type Watcher struct {
	dir      string
	pattern  string
	matcher  glob.Glob
	debounce time.Duration

	current atomic.Pointer[Lists]
	watcher *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// OnReload, when set before Start, receives each new snapshot after a
	// successful reload.
	OnReload func(*Lists)
}

// NewWatcher loads the initial snapshot and prepares the directory watch.
// Call Start to begin reloading on changes.
func NewWatcher(dir, pattern string, debounce time.Duration) (*Watcher, error) {
	matcher, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling priority pattern %q: %w", pattern, err)
	}

	initial, err := Load(dir, pattern)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching priority directory %s: %w", dir, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		dir:      dir,
		pattern:  pattern,
		matcher:  matcher,
		debounce: debounce,
		watcher:  fw,
		ctx:      ctx,
		cancel:   cancel,
	}
	w.current.Store(initial)

	return w, nil
}

// Start begins watching for file changes.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.eventLoop()

	log.Info().
		Str("dir", w.dir).
		Str("pattern", w.pattern).
		Int("assets", len(w.Current().Tiers)).
		Msg("Watching priority lists")
}

// Stop halts the watcher and releases the directory watch.
func (w *Watcher) Stop() error {
	w.cancel()
	w.wg.Wait()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	return w.watcher.Close()
}

// Current returns the latest complete snapshot.
func (w *Watcher) Current() *Lists {
	return w.current.Load()
}

// Tiers satisfies the engine's tier source with the latest snapshot.
func (w *Watcher) Tiers() map[string]int {
	return w.Current().Tiers
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.matcher.Match(filepath.Base(event.Name)) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.scheduleReload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Priority watcher error")
		}
	}
}

// scheduleReload coalesces bursts of file events into one reload.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	lists, err := Load(w.dir, w.pattern)
	if err != nil {
		log.Error().Err(err).Str("dir", w.dir).Msg("Priority reload failed, keeping previous tiers")
		return
	}

	w.current.Store(lists)
	log.Info().
		Int("assets", len(lists.Tiers)).
		Int("files", len(lists.Files)).
		Msg("Priority lists reloaded")

	if w.OnReload != nil {
		w.OnReload(lists)
	}
}
