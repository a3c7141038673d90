package imaging

import (
	"context"
	"image/color"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReportsNewImages(t *testing.T) {
	dir := t.TempDir()

	watcher, err := NewWatcher(NewScanner(), 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.AddRecursive(dir); err != nil {
		t.Fatalf("AddRecursive() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	found := make(chan *ImageFile, 1)
	go func() {
		_ = watcher.Run(ctx, func(img *ImageFile) {
			select {
			case found <- img:
			default:
			}
		}, nil)
	}()

	// Give the watch loop a moment to start before writing
	time.Sleep(100 * time.Millisecond)
	writeTestPNG(t, filepath.Join(dir, "new.png"), 64, 64, color.RGBA{R: 128, A: 255})

	select {
	case img := <-found:
		if img.Title != "new" {
			t.Errorf("title = %s, want new", img.Title)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for watcher to report the new image")
	}
}

func TestWatcherSkipsInvalidFiles(t *testing.T) {
	dir := t.TempDir()

	watcher, err := NewWatcher(NewScanner(), 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.AddRecursive(dir); err != nil {
		t.Fatalf("AddRecursive() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	skipped := make(chan string, 1)
	go func() {
		_ = watcher.Run(ctx, func(img *ImageFile) {
			t.Errorf("undersized image should not be handled: %s", img.Path)
		}, func(path string, err error) {
			select {
			case skipped <- path:
			default:
			}
		})
	}()

	time.Sleep(100 * time.Millisecond)
	small := writeTestPNG(t, filepath.Join(dir, "small.png"), 8, 8, color.RGBA{A: 255})

	select {
	case path := <-skipped:
		if path != small {
			t.Errorf("skipped path = %s, want %s", path, small)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for skip callback")
	}
}

func TestWatcherRejectsFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPNG(t, filepath.Join(dir, "img.png"), 64, 64, color.RGBA{A: 255})

	watcher, err := NewWatcher(NewScanner(), time.Second)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.AddRecursive(path); err == nil {
		t.Error("AddRecursive() should reject a plain file")
	}
}
