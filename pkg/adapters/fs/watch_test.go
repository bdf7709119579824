package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/moss/pkg/core"
)

func TestKV_Watch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kv, err := New(Config{Path: t.TempDir(), Debounce: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	keys, err := kv.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	// Own writes are not reported.
	if err := kv.Set(ctx, core.KeyNotes, "[]"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	select {
	case k := <-keys:
		t.Fatalf("own write reported as change: %s", k)
	case <-time.After(300 * time.Millisecond):
	}

	// A foreign writer, including its temp file, yields one debounced key.
	if err := writeFileAtomic(filepath.Join(kv.Path, "pendingSync.json"), []byte("[]"), 0644); err != nil {
		t.Fatalf("foreign write failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(kv.Path, "pendingSync.json"), []byte("[ ]"), 0644); err != nil {
		t.Fatalf("foreign write failed: %v", err)
	}

	select {
	case k := <-keys:
		if k != core.KeyPending {
			t.Errorf("expected %s, got %s", core.KeyPending, k)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
	}

	select {
	case k := <-keys:
		t.Errorf("burst not debounced, extra key %s", k)
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	select {
	case _, ok := <-keys:
		if ok {
			t.Error("expected channel to close after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watch channel not closed")
	}
}

func TestDebouncer(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	calls := make(chan string, 10)

	for i := 0; i < 5; i++ {
		d.add("notes", func(k string) { calls <- k })
	}
	d.add("lastSynced", func(k string) { calls <- k })

	got := map[string]int{}
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case k := <-calls:
			got[k]++
		case <-timeout:
			t.Fatalf("timed out, got %v", got)
		}
	}
	time.Sleep(50 * time.Millisecond)
	d.stopAndWait(time.Second)

	if got["notes"] != 1 || len(calls) != 0 {
		t.Errorf("expected a single notes callback, got %v (+%d)", got, len(calls))
	}

	d.add("late", func(k string) { calls <- k })
	time.Sleep(50 * time.Millisecond)
	if len(calls) != 0 {
		t.Error("stopped debouncer must not fire")
	}
}
