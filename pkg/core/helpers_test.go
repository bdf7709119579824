package core_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aretw0/moss/pkg/adapters/memory"
	"github.com/aretw0/moss/pkg/core"
)

var online = core.Reachability{Connected: true, InternetReachable: true}
var offline = core.Reachability{Connected: false, InternetReachable: false}

// gatedRemote blocks every SyncBatch until release is called.
type gatedRemote struct {
	calls   atomic.Int32
	started chan []core.Entry
	gate    chan struct{}
	once    sync.Once
	result  core.RemoteResult
	err     error
}

func newGatedRemote() *gatedRemote {
	return &gatedRemote{
		started: make(chan []core.Entry, 8),
		gate:    make(chan struct{}),
		result:  core.RemoteResult{Success: true, Message: "ok"},
	}
}

func (g *gatedRemote) SyncBatch(ctx context.Context, entries []core.Entry) (core.RemoteResult, error) {
	g.calls.Add(1)
	g.started <- entries
	<-g.gate
	return g.result, g.err
}

func (g *gatedRemote) release() { g.once.Do(func() { close(g.gate) }) }

// okRemote accepts every batch immediately and records what it saw.
type okRemote struct {
	mu      sync.Mutex
	batches [][]core.Entry
}

func (r *okRemote) SyncBatch(ctx context.Context, entries []core.Entry) (core.RemoteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, entries)
	return core.RemoteResult{Success: true, Message: "Notes synced successfully"}, nil
}

func (r *okRemote) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func failingRemote(msg string, err error) core.Remote {
	return core.RemoteFunc(func(ctx context.Context, entries []core.Entry) (core.RemoteResult, error) {
		return core.RemoteResult{Success: false, Message: msg}, err
	})
}

var errBoom = errors.New("connection reset")

func openService(t *testing.T, kv core.KV, remote core.Remote, cfg core.Config) *core.Service {
	t.Helper()
	if kv == nil {
		kv = memory.New()
	}
	svc, err := core.Open(context.Background(), core.NewStore(kv, nil), remote, cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return svc
}

// fataler is satisfied by *testing.T and *rapid.T.
type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

// checkInvariants verifies the queue/notes consistency rules.
func checkInvariants(t fataler, svc *core.Service) {
	t.Helper()
	notes := svc.Notes()
	pending := svc.Pending()

	byID := make(map[string]core.Entry, len(pending))
	deletes := 0
	for _, e := range pending {
		if _, dup := byID[e.Note.ID]; dup {
			t.Fatalf("two queue entries for %s", e.Note.ID)
		}
		byID[e.Note.ID] = e
		if e.Action == core.ActionDelete {
			deletes++
		}
	}

	unsynced := 0
	for _, n := range notes {
		_, queued := byID[n.ID]
		if n.Synced == queued {
			t.Fatalf("note %s synced=%v but queued=%v", n.ID, n.Synced, queued)
		}
		if !n.Synced {
			unsynced++
		}
	}
	if unsynced+deletes != len(pending) {
		t.Fatalf("unsynced(%d) + deletes(%d) != queue(%d)", unsynced, deletes, len(pending))
	}
}
