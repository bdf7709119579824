// Package stub provides a stand-in remote that accepts every batch after a
// fixed delay.
package stub

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/moss/pkg/core"
)

const (
	// DefaultDelay is the simulated round trip.
	DefaultDelay = 1500 * time.Millisecond

	// SuccessMessage is returned with every accepted batch.
	SuccessMessage = "Notes synced successfully"
)

// Remote is a core.Remote that always succeeds after Delay unless told to
// fail. It keeps every received batch for inspection.
type Remote struct {
	Delay time.Duration

	mu      sync.Mutex
	fail    string
	batches [][]core.Entry
}

// New creates a Remote with the given delay. A negative delay selects
// DefaultDelay.
func New(delay time.Duration) *Remote {
	if delay < 0 {
		delay = DefaultDelay
	}
	return &Remote{Delay: delay}
}

// SyncBatch implements core.Remote.
func (r *Remote) SyncBatch(ctx context.Context, entries []core.Entry) (core.RemoteResult, error) {
	if r.Delay > 0 {
		timer := time.NewTimer(r.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return core.RemoteResult{}, ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	batch := make([]core.Entry, len(entries))
	copy(batch, entries)
	r.batches = append(r.batches, batch)

	if r.fail != "" {
		return core.RemoteResult{Success: false, Message: r.fail}, nil
	}
	return core.RemoteResult{Success: true, Message: SuccessMessage}, nil
}

// FailWith makes subsequent batches fail with msg. An empty msg restores success.
func (r *Remote) FailWith(msg string) {
	r.mu.Lock()
	r.fail = msg
	r.mu.Unlock()
}

// Batches returns the batches received so far.
func (r *Remote) Batches() [][]core.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]core.Entry, len(r.batches))
	copy(out, r.batches)
	return out
}

var _ core.Remote = (*Remote)(nil)
