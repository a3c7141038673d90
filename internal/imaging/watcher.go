package imaging

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors seed directories and reports new or changed image
// files. Events are debounced per path so a file still being written is
// only reported once it has settled.
type Watcher struct {
	watcher  *fsnotify.Watcher
	scanner  *Scanner
	debounce time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
	ready  chan string
}

// NewWatcher creates a watcher using the scanner's extension and
// validation rules
func NewWatcher(scanner *Scanner, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		watcher:  fsw,
		scanner:  scanner,
		debounce: debounce,
		timers:   make(map[string]*time.Timer),
		ready:    make(chan string, 64),
	}, nil
}

// AddRecursive watches a directory tree. New subdirectories created
// while running are picked up by the event loop.
func (w *Watcher) AddRecursive(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cannot watch %s: not a directory", root)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// Close stops the underlying file system watcher
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Run processes file system events until the context is cancelled.
// handle is called on the Run goroutine with each settled image file;
// files failing validation are reported through onSkip when set.
func (w *Watcher) Run(ctx context.Context, handle func(*ImageFile), onSkip func(path string, err error)) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case path := <-w.ready:
			img, err := w.scanner.ScanFile(path)
			if err != nil {
				if onSkip != nil {
					onSkip(path, err)
				}
				continue
			}
			handle(img)

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			if onSkip != nil {
				onSkip("", err)
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	// New directories join the watch set
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.AddRecursive(event.Name)
			return
		}
	}

	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || !w.scanner.Matches(name) {
		return
	}

	w.schedule(event.Name)
}

// schedule arms (or re-arms) the debounce timer for a path
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		select {
		case w.ready <- path:
		default:
			// Drop when the consumer is saturated; the next write
			// event re-schedules the path.
		}
	})
}
