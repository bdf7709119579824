package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Snapshot is the persisted state of the core.
type Snapshot struct {
	Notes        []Note
	Queue        []Entry
	LastSyncedAt *time.Time
}

// Write is an encoded record waiting to be committed.
// Writes are stamped with a generation when prepared; committing an older
// generation after a newer one for the same key is a no-op.
type Write struct {
	Key  string
	gen  uint64
	data string
}

// Store is the durable store: the three core records on top of a KV.
//
// There is no transaction across keys. A crash between two commits leaves
// the records out of step; callers repair on load.
type Store struct {
	kv    KV
	codec Codec

	mu      sync.Mutex
	gen     uint64
	floor   uint64 // writes prepared before the last Clear are dropped
	locks   map[string]*sync.Mutex
	written map[string]uint64
}

// NewStore creates a Store. A nil codec selects JSON.
func NewStore(kv KV, codec Codec) *Store {
	if codec == nil {
		codec = JSONCodec{}
	}
	s := &Store{
		kv:      kv,
		codec:   codec,
		locks:   make(map[string]*sync.Mutex),
		written: make(map[string]uint64),
	}
	for _, k := range []string{KeyNotes, KeyPending, KeyLastSynced} {
		s.locks[k] = &sync.Mutex{}
	}
	return s
}

// KV returns the underlying persistence collaborator.
func (s *Store) KV() KV { return s.kv }

// Codec returns the record codec.
func (s *Store) Codec() Codec { return s.codec }

// Load reads all three records. Missing keys yield zero values.
// Any read or decode failure is reported as ErrStorageUnavailable.
func (s *Store) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot

	if err := s.decode(ctx, KeyNotes, &snap.Notes); err != nil {
		return Snapshot{}, err
	}
	if err := s.decode(ctx, KeyPending, &snap.Queue); err != nil {
		return Snapshot{}, err
	}
	if err := s.decode(ctx, KeyLastSynced, &snap.LastSyncedAt); err != nil {
		return Snapshot{}, err
	}

	return snap, nil
}

func (s *Store) decode(ctx context.Context, key string, v any) error {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrStorageUnavailable, key, err)
	}
	if !ok || raw == "" {
		return nil
	}
	if err := s.codec.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrStorageUnavailable, key, err)
	}
	return nil
}

// Prepare encodes v for key and stamps the next generation.
// Call it while the state being encoded is still protected, then Commit
// once the protection is released.
func (s *Store) Prepare(key string, v any) (Write, error) {
	data, err := s.codec.Marshal(v)
	if err != nil {
		return Write{}, fmt.Errorf("failed to encode %s: %w", key, err)
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	return Write{Key: key, gen: gen, data: string(data)}, nil
}

// Commit writes w unless a newer write for the same key already landed.
// Commits to the same key are serialized.
func (s *Store) Commit(ctx context.Context, w Write) error {
	lock := s.keyLock(w.Key)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	stale := w.gen < s.floor || w.gen <= s.written[w.Key]
	s.mu.Unlock()
	if stale {
		return nil
	}

	if err := s.kv.Set(ctx, w.Key, w.data); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrStorageUnavailable, w.Key, err)
	}

	s.mu.Lock()
	s.written[w.Key] = w.gen
	s.mu.Unlock()
	return nil
}

// CommitAll commits every write and joins the failures.
func (s *Store) CommitAll(ctx context.Context, writes ...Write) error {
	var errs []error
	for _, w := range writes {
		if err := s.Commit(ctx, w); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Save encodes and writes a single record.
func (s *Store) Save(ctx context.Context, key string, v any) error {
	w, err := s.Prepare(key, v)
	if err != nil {
		return err
	}
	return s.Commit(ctx, w)
}

// Clear wipes the underlying KV. Writes prepared before Clear are dropped.
func (s *Store) Clear(ctx context.Context) error {
	locks := s.allLocks()
	for _, l := range locks {
		l.Lock()
	}
	defer func() {
		for _, l := range locks {
			l.Unlock()
		}
	}()

	s.mu.Lock()
	s.gen++
	s.floor = s.gen
	s.mu.Unlock()

	if err := s.kv.Clear(ctx); err != nil {
		return fmt.Errorf("%w: clear: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Store) keyLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// allLocks returns the key locks in a stable order.
func (s *Store) allLocks() []*sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.locks))
	for k := range s.locks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*sync.Mutex, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.locks[k])
	}
	return out
}
