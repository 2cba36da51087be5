// Package watcher monitors a directory for new files and feeds eligible ones,
// one at a time, into the ingestion pipeline.
//
// The design is an explicit producer/consumer pair: an fsnotify goroutine
// filters creation events and pushes paths into a buffered queue, and a single
// consumer loop pulls paths, waits the settle delay, and invokes the
// processor. Files are therefore fully processed in event-arrival order, and
// shutdown is an ordinary channel close rather than OS-level event mocking.
package watcher

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/commons-systems/cleanslate/internal/filter"
	"github.com/commons-systems/cleanslate/internal/pipeline"
)

const defaultQueueSize = 100

// Processor consumes one discovered file. Satisfied by *pipeline.Pipeline.
type Processor interface {
	Process(ctx context.Context, path string) *pipeline.Outcome
}

// Watcher watches a single directory, non-recursively.
type Watcher struct {
	watchDir    string
	outputDir   string
	settleDelay time.Duration
	processor   Processor

	fsWatcher *fsnotify.Watcher
	queue     chan string
	done      chan struct{}
	ready     chan struct{}
	wg        sync.WaitGroup

	mu      sync.Mutex
	started bool
	closed  bool
}

// New creates a watcher. Both the watch and output directories are created
// (including parents) when absent.
func New(processor Processor, watchDir, outputDir string, settleDelay time.Duration) (*Watcher, error) {
	if err := os.MkdirAll(watchDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create watch directory %s: %w", watchDir, err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	if err := fsWatcher.Add(watchDir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", watchDir, err)
	}

	return &Watcher{
		watchDir:    watchDir,
		outputDir:   outputDir,
		settleDelay: settleDelay,
		processor:   processor,
		fsWatcher:   fsWatcher,
		queue:       make(chan string, defaultQueueSize),
		done:        make(chan struct{}),
		ready:       make(chan struct{}),
	}, nil
}

// Start launches the producer and consumer goroutines. It may be called once.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("watcher already closed")
	}
	if w.started {
		return fmt.Errorf("watcher already started")
	}
	w.started = true

	w.wg.Add(2)
	go w.produce()
	go w.consume()

	log.Printf("INFO: Watcher started on %s", w.watchDir)
	return nil
}

// Ready returns a channel closed once the producer goroutine is receiving
// filesystem events.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Sweep processes files already present in the watch directory, oldest first.
// It runs on the caller's goroutine, before Start, so pre-existing files are
// handled ahead of any new arrivals. Returns the number of files processed.
func (w *Watcher) Sweep(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(w.watchDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read watch directory %s: %w", w.watchDir, err)
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var candidates []candidate
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.watchDir, entry.Name())
		if !filter.Eligible(path) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{path: path, modTime: info.ModTime()})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime.Before(candidates[j].modTime)
	})

	for _, c := range candidates {
		log.Printf("INFO: Sweeping pre-existing file: %s", filepath.Base(c.path))
		w.processor.Process(ctx, c.path)
	}
	return len(candidates), nil
}

// Close stops watching and blocks until both goroutines have terminated. No
// processing callback fires after Close returns; a pipeline stage already in
// progress is allowed to finish first.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	started := w.started
	w.mu.Unlock()

	close(w.done)
	err := w.fsWatcher.Close()
	if started {
		w.wg.Wait()
	}
	log.Printf("INFO: Watcher stopped on %s", w.watchDir)
	return err
}

// produce filters creation events into the queue.
func (w *Watcher) produce() {
	defer w.wg.Done()

	select {
	case <-w.ready:
	default:
		close(w.ready)
	}

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create == 0 {
				continue
			}
			if !filter.Eligible(event.Name) {
				continue
			}
			select {
			case w.queue <- event.Name:
			case <-w.done:
				return
			default:
				// Queue full: the notification is dropped rather than
				// blocking the producer. Sustained arrival faster than
				// processing has no backpressure here.
				log.Printf("WARN: Event queue full, dropping %s", event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Printf("ERROR: Watcher error on %s: %v", w.watchDir, err)
		}
	}
}

// consume pulls one path at a time, waits for the writer to settle, and runs
// the pipeline. Strictly serial: the next file is not dispatched until the
// current one finishes.
func (w *Watcher) consume() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case path := <-w.queue:
			if !w.settle() {
				return
			}
			log.Printf("INFO: Processing new file: %s", filepath.Base(path))
			w.processor.Process(context.Background(), path)
		}
	}
}

// settle waits the configured delay so a producing process can finish
// writing. Returns false when shutdown interrupts the wait.
func (w *Watcher) settle() bool {
	if w.settleDelay <= 0 {
		return true
	}
	select {
	case <-time.After(w.settleDelay):
		return true
	case <-w.done:
		return false
	}
}
