// Package watch turns filesystem events into debounced calls into the
// engine's incremental indexer. It is grounded in the teacher's
// fileWatcher (internal/watcher/file_watcher.go): same fsnotify-plus-
// debounce-timer shape, simplified down to the single callback this
// design needs (no pause/resume, no directory-count/depth caps, since
// the engine's own walk already knows how to stay inside the ignore
// rules and max file size).
package watch

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Indexer is the subset of *engine.Engine the watcher drives. Kept as an
// interface so tests can stub it without a real store.
type Indexer interface {
	Index(ctx context.Context, hint []string) error
}

// Options configures a Watcher.
type Options struct {
	Root     string
	Debounce time.Duration // minimum quiet period before a batch fires; floor 200ms
	Queue    int           // bounded channel depth for pending batches; 0 means 16
	Logger   *log.Logger
}

// Watcher watches Root recursively and calls Indexer.Index with the set
// of changed relative paths once events go quiet for Debounce.
type Watcher struct {
	root     string
	debounce time.Duration
	indexer  Indexer
	logger   *log.Logger

	fsw *fsnotify.Watcher

	mu          sync.Mutex
	accumulated map[string]struct{}
	timer       *time.Timer

	batches chan []string
	done    chan struct{}
}

const minDebounce = 200 * time.Millisecond

// New creates a Watcher rooted at opts.Root and adds every directory in
// the tree to the underlying fsnotify watcher, matching the teacher's
// addDirectoriesRecursively behavior but without its hard directory caps:
// the engine's own ignore rules and size cap bound what actually gets
// reindexed, so the watcher only needs to avoid watching .git.
func New(opts Options, indexer Indexer) (*Watcher, error) {
	debounce := opts.Debounce
	if debounce < minDebounce {
		debounce = minDebounce
	}
	queue := opts.Queue
	if queue <= 0 {
		queue = 16
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:        opts.Root,
		debounce:    debounce,
		indexer:     indexer,
		logger:      logger,
		fsw:         fsw,
		accumulated: make(map[string]struct{}),
		batches:     make(chan []string, queue),
		done:        make(chan struct{}),
	}

	if err := w.addTree(opts.Root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if info.Name() == ".git" {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Printf("watch: failed to watch %s: %v", path, err)
		}
		return nil
	})
}

// Run drives the event loop and the batch consumer until ctx is
// cancelled. It blocks until both have stopped: the pending debounce
// timer is stopped, and batches already queued are indexed with a
// background context before Run returns. A batch whose Index call is
// running at cancellation receives the cancelled context, so the engine
// stops it at its next group boundary.
func (w *Watcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		w.eventLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		w.consumeBatches(ctx)
	}()

	wg.Wait()
	return w.fsw.Close()
}

func (w *Watcher) eventLoop(ctx context.Context) {
	defer w.stopTimer()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Printf("watch: fsnotify error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(event.Name); err != nil {
				w.logger.Printf("watch: failed to watch new directory %s: %v", event.Name, err)
			}
			return
		}
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	w.mu.Lock()
	w.accumulated[rel] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
	w.mu.Unlock()
}

// flush moves the accumulated set into the batch queue. Per-path
// ordering is preserved because a path can only appear in one batch at
// a time: it stays in `accumulated` (and keeps resetting the timer)
// until a flush claims it, and the next event for that path starts a
// fresh accumulation only after this one has been handed off.
func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.accumulated) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.accumulated))
	for p := range w.accumulated {
		paths = append(paths, p)
	}
	w.accumulated = make(map[string]struct{})
	w.mu.Unlock()

	select {
	case w.batches <- paths:
	default:
		w.logger.Printf("watch: batch queue full, dropping debounce coalescing for %d paths", len(paths))
		w.batches <- paths
	}
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) consumeBatches(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain(context.Background())
			return
		case paths := <-w.batches:
			if err := w.indexer.Index(ctx, paths); err != nil && ctx.Err() == nil {
				w.logger.Printf("watch: index batch failed: %v", err)
			}
		}
	}
}

// drain applies any batches already queued at cancellation time using a
// background context, so a shutdown never discards a debounced batch
// that fsnotify already delivered.
func (w *Watcher) drain(ctx context.Context) {
	for {
		select {
		case paths := <-w.batches:
			if err := w.indexer.Index(ctx, paths); err != nil {
				w.logger.Printf("watch: index during drain failed: %v", err)
			}
		default:
			return
		}
	}
}
