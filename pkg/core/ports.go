package core

import "context"

// Record keys used by the durable store.
const (
	KeyNotes      = "notes"
	KeyPending    = "pendingSync"
	KeyLastSynced = "lastSynced"
)

// KV is the persistence collaborator: a flat string key-value store.
// Adhering to this interface keeps the core independent of the
// underlying storage mechanism (memory, files, SQLite).
type KV interface {
	// Get returns the value stored under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Clear removes every key.
	Clear(ctx context.Context) error
}

// Watchable is implemented by KV adapters that can report changes made by
// other processes.
type Watchable interface {
	// Watch emits the key of every record changed outside this adapter.
	Watch(ctx context.Context) (<-chan string, error)
}

// RemoteResult is the verdict of the remote for one batch.
type RemoteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Remote is the remote synchronization collaborator.
// SyncBatch is a single round trip: the whole batch is accepted or it is not.
// It may block for an arbitrary duration.
type Remote interface {
	SyncBatch(ctx context.Context, entries []Entry) (RemoteResult, error)
}

// RemoteFunc adapts a function to the Remote interface.
type RemoteFunc func(ctx context.Context, entries []Entry) (RemoteResult, error)

// SyncBatch implements Remote.
func (f RemoteFunc) SyncBatch(ctx context.Context, entries []Entry) (RemoteResult, error) {
	return f(ctx, entries)
}

// Reachability is one report from the connectivity collaborator.
type Reachability struct {
	Connected         bool `json:"connected"`
	InternetReachable bool `json:"internetReachable"`
}

// Online reports whether the device can reach the remote.
func (r Reachability) Online() bool {
	return r.Connected && r.InternetReachable
}

// ConnectivitySource is the connectivity collaborator.
// Subscribe delivers the current reachability as soon as it is known, then
// every subsequent change. The channel is closed when ctx is done.
type ConnectivitySource interface {
	Subscribe(ctx context.Context) (<-chan Reachability, error)
}
