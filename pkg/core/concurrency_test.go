package core_test

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/moss/pkg/adapters/memory"
	"github.com/aretw0/moss/pkg/core"
)

// slowRemote accepts every batch after a short pause so mutations land
// while a reconciliation is in flight.
type slowRemote struct{}

func (slowRemote) SyncBatch(ctx context.Context, entries []core.Entry) (core.RemoteResult, error) {
	time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
	return core.RemoteResult{Success: true, Message: "ok"}, nil
}

// TestConcurrency_MutationsDuringSync runs writers, a syncing loop and a
// flapping network at the same time. Once everything settles and a final
// sync succeeds, nothing may be left pending.
func TestConcurrency_MutationsDuringSync(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping stress test in short mode")
	}

	kv := memory.New()
	svc := openService(t, kv, slowRemote{}, core.Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup

	// Writers
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			var mine []string
			for i := 0; ctx.Err() == nil; i++ {
				switch {
				case len(mine) == 0 || rand.Intn(3) == 0:
					n := svc.AddNote(ctx, fmt.Sprintf("w%d-%d", w, i), "")
					mine = append(mine, n.ID)
				case rand.Intn(2) == 0:
					id := mine[rand.Intn(len(mine))]
					// Only this writer deletes its own notes.
					_, err := svc.UpdateNote(ctx, id, "edited", fmt.Sprint(i))
					assert.NoError(t, err)
				default:
					k := rand.Intn(len(mine))
					assert.NoError(t, svc.DeleteNote(ctx, mine[k]))
					mine = append(mine[:k], mine[k+1:]...)
				}
				time.Sleep(time.Duration(rand.Intn(2)) * time.Millisecond)
			}
		}(w)
	}

	// Syncer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ctx.Err() == nil {
			svc.Reconcile(ctx)
			time.Sleep(time.Millisecond)
		}
	}()

	// Network
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ctx.Err() == nil {
			if rand.Intn(4) == 0 {
				svc.ObserveConnectivity(ctx, offline)
			} else {
				svc.ObserveConnectivity(ctx, online)
			}
			time.Sleep(3 * time.Millisecond)
		}
	}()

	wg.Wait()

	// Let dispatched reconnect syncs drain.
	require.Eventually(t, func() bool { return !svc.InFlight() }, time.Second, 5*time.Millisecond)
	checkInvariants(t, svc)

	svc.ObserveConnectivity(context.Background(), online)
	require.Eventually(t, func() bool {
		res := svc.Reconcile(context.Background())
		return res.Status == core.SyncStatusNothingToSync
	}, 2*time.Second, 10*time.Millisecond)

	checkInvariants(t, svc)
	for _, n := range svc.Notes() {
		require.True(t, n.Synced, "note %s left unsynced", n.ID)
	}

	// What was persisted matches memory.
	reopened := openService(t, kv, slowRemote{}, core.Config{})
	require.Len(t, reopened.Notes(), len(svc.Notes()))
	require.Empty(t, reopened.Pending())
}
