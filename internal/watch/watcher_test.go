package watch

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatcherDebouncesBurst(t *testing.T) {
	dir := t.TempDir()

	var calls atomic.Int32
	fired := make(chan struct{}, 8)
	w := New([]string{dir}, func() {
		calls.Add(1)
		fired <- struct{}{}
	}, testLogger(), WithDebounce(100*time.Millisecond))

	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	// A burst of writes inside the debounce window collapses to one call.
	for i := 0; i < 5; i++ {
		writeFile(t, filepath.Join(dir, "mod.js"), i)
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("Handler never fired after source changes")
	}

	// Let any stray timer expire before counting.
	time.Sleep(300 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("Expected one debounced call for the burst, got %d", got)
	}
}

func TestWatcherPicksUpNewSubdirectory(t *testing.T) {
	dir := t.TempDir()

	fired := make(chan struct{}, 8)
	w := New([]string{dir}, func() {
		fired <- struct{}{}
	}, testLogger(), WithDebounce(50*time.Millisecond))

	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	sub := filepath.Join(dir, "lib")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("Failed to create subdirectory: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("Handler never fired for directory creation")
	}

	// The new subdirectory is watched too.
	writeFile(t, filepath.Join(sub, "inner.js"), 0)
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("Handler never fired for write in new subdirectory")
	}
}

func TestWatcherStop(t *testing.T) {
	dir := t.TempDir()

	w := New([]string{dir}, func() {}, testLogger())
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestWatcherMissingDirectory(t *testing.T) {
	w := New([]string{"/no/such/source/dir"}, func() {}, testLogger())
	if err := w.Start(); err == nil {
		w.Stop()
		t.Error("Expected error for missing watch directory")
	}
}

func writeFile(t *testing.T, path string, n int) {
	t.Helper()
	if err := os.WriteFile(path, []byte{byte('a' + n)}, 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
}
