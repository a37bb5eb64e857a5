package main

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatchFileDebounces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "problem.json")
	other := filepath.Join(dir, "other.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, path, 50*time.Millisecond, func() { changed <- struct{}{} })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(other, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte(`{"family":"vertical"}`), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
	select {
	case <-changed:
		t.Error("burst of writes should be reported once")
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watchFile returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watchFile did not stop")
	}
}

func TestWatchFileCallbacksDoNotOverlap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "problem.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var inflight, overlaps, afterReturn atomic.Int32
	var returned atomic.Bool
	changed := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		err := watchFile(ctx, path, 20*time.Millisecond, func() {
			if returned.Load() {
				afterReturn.Add(1)
			}
			if inflight.Add(1) > 1 {
				overlaps.Add(1)
			}
			time.Sleep(150 * time.Millisecond)
			inflight.Add(-1)
			changed <- struct{}{}
		})
		returned.Store(true)
		done <- err
	}()

	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 2; i++ {
		if err := os.WriteFile(path, []byte(`{"family":"vertical"}`), 0o644); err != nil {
			t.Fatal(err)
		}
		// Second save lands while the first callback is still running.
		time.Sleep(60 * time.Millisecond)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-changed:
		case <-time.After(5 * time.Second):
			t.Fatalf("expected 2 changes, got %d", i)
		}
	}
	if n := overlaps.Load(); n != 0 {
		t.Errorf("%d callbacks ran concurrently", n)
	}

	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watchFile did not stop")
	}
	time.Sleep(100 * time.Millisecond)
	if n := afterReturn.Load(); n != 0 {
		t.Errorf("%d callbacks ran after watchFile returned", n)
	}
}

func TestWatchRequiresProblem(t *testing.T) {
	if _, err := run(t, "watch"); err == nil {
		t.Error("expected error without --problem")
	}
}
