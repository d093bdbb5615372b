package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func startWatcher(t *testing.T, files ...string) *Watcher {
	t.Helper()
	w, err := NewWatcher(files, WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcherDetectsChange(t *testing.T) {
	dir := t.TempDir()
	graph := filepath.Join(dir, "graph.toml")
	if err := os.WriteFile(graph, []byte("# empty\n"), 0o644); err != nil {
		t.Fatalf("write graph: %v", err)
	}
	w := startWatcher(t, graph)

	if err := os.WriteFile(graph, []byte("# changed\n"), 0o644); err != nil {
		t.Fatalf("rewrite graph: %v", err)
	}

	select {
	case c := <-w.Changes:
		if c.Kind != ChangeModified {
			t.Errorf("Kind = %v, want modified", c.Kind)
		}
		if c.File != graph {
			t.Errorf("File = %q, want %q", c.File, graph)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
}

func TestWatcherDetectsRemoval(t *testing.T) {
	dir := t.TempDir()
	graph := filepath.Join(dir, "graph.toml")
	if err := os.WriteFile(graph, []byte("# empty\n"), 0o644); err != nil {
		t.Fatalf("write graph: %v", err)
	}
	w := startWatcher(t, graph)

	if err := os.Remove(graph); err != nil {
		t.Fatalf("remove graph: %v", err)
	}

	select {
	case c := <-w.Changes:
		if c.Kind != ChangeRemoved {
			t.Errorf("Kind = %v, want removed", c.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for removal event")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	graph := filepath.Join(dir, "graph.toml")
	if err := os.WriteFile(graph, nil, 0o644); err != nil {
		t.Fatalf("write graph: %v", err)
	}
	w := startWatcher(t, graph)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}

	select {
	case c := <-w.Changes:
		t.Errorf("unexpected change event: %+v", c)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	graph := filepath.Join(dir, "graph.toml")
	if err := os.WriteFile(graph, nil, 0o644); err != nil {
		t.Fatalf("write graph: %v", err)
	}
	w, err := NewWatcher([]string{graph}, WithDebounce(200*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	for i := range 5 {
		if err := os.WriteFile(graph, []byte{byte('a' + i)}, 0o644); err != nil {
			t.Fatalf("write #%d: %v", i, err)
		}
	}

	select {
	case <-w.Changes:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
	select {
	case c := <-w.Changes:
		t.Errorf("burst produced a second event: %+v", c)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestRunReimportsOnChange(t *testing.T) {
	dir := t.TempDir()
	graph := filepath.Join(dir, "graph.toml")
	if err := os.WriteFile(graph, nil, 0o644); err != nil {
		t.Fatalf("write graph: %v", err)
	}
	w, err := NewWatcher([]string{graph}, WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	imported := make(chan struct{}, 4)
	errBoom := errors.New("boom")
	var reported atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, w, func(context.Context) error {
			calls.Add(1)
			imported <- struct{}{}
			return errBoom
		}, func(err error) {
			if errors.Is(err, errBoom) {
				reported.Add(1)
			}
		})
	}()

	waitImport := func() {
		t.Helper()
		select {
		case <-imported:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for import")
		}
	}
	waitImport() // initial import
	// Give the watcher time to register before writing.
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(graph, []byte("# changed\n"), 0o644); err != nil {
		t.Fatalf("rewrite graph: %v", err)
	}
	waitImport()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if calls.Load() < 2 || reported.Load() != calls.Load() {
		t.Errorf("calls = %d, reported = %d; want at least 2 calls, all reported", calls.Load(), reported.Load())
	}
}

// stopsWithin fails the test if w.Stop does not return promptly.
func stopsWithin(t *testing.T, w *Watcher, d time.Duration) {
	t.Helper()
	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(d):
		t.Fatal("Stop blocked")
	}
}

func TestStopWithoutStart(t *testing.T) {
	w, err := NewWatcher([]string{filepath.Join(t.TempDir(), "graph.toml")})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	stopsWithin(t, w, time.Second)
	stopsWithin(t, w, time.Second)
	if _, ok := <-w.Changes; ok {
		t.Error("Changes still open after Stop")
	}
}

func TestFailedStartReleasesWatcher(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing", "graph.toml")
	w, err := NewWatcher([]string{missing})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Start(); err == nil {
		t.Fatal("Start succeeded on a missing directory")
	}
	if err := w.watcher.Add(filepath.Dir(missing)); !errors.Is(err, fsnotify.ErrClosed) {
		t.Errorf("fsnotify watcher still open after failed Start: Add returned %v", err)
	}
	stopsWithin(t, w, time.Second)
}

func TestRunReturnsStartError(t *testing.T) {
	w, err := NewWatcher([]string{filepath.Join(t.TempDir(), "missing", "graph.toml")})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	called := false
	err = Run(context.Background(), w, func(context.Context) error {
		called = true
		return nil
	}, func(error) {})
	if err == nil {
		t.Fatal("Run succeeded on a missing directory")
	}
	if called {
		t.Error("import ran although the watcher never started")
	}
}
