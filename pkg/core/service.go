package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultEventBuffer is the per-subscriber event buffer.
const DefaultEventBuffer = 100

// Dispatcher runs fn without blocking the caller.
type Dispatcher func(ctx context.Context, fn func(ctx context.Context))

// Config holds the optional collaborators of a Service.
type Config struct {
	Logger      *slog.Logger
	EventBuffer int
	Now         func() time.Time
	NewID       func() string
	// Dispatch runs background work: connectivity loops and reconnect
	// reconciliations. Defaults to a plain goroutine.
	Dispatch Dispatcher
	// ManualSync disables the reconnect trigger. Reconcile must be called
	// explicitly.
	ManualSync bool
}

// Service owns the offline-first state: the note repository, the mutation
// queue, the connectivity monitor and the sync coordinator. All state
// changes are serialized by one mutex; only the remote call runs outside it.
type Service struct {
	mu         sync.Mutex
	notes      *Notes
	queue      *Queue
	monitor    *Monitor
	lastSynced *time.Time
	// epoch changes whenever the state is replaced wholesale.
	epoch uint64

	store  *Store
	coord  *Coordinator
	events *broker

	logger      *slog.Logger
	now         func() time.Time
	dispatch    Dispatcher
	manualSync  bool
	eventBuffer int
}

// Open builds a Service and loads the persisted state from store.
// A load failure is not fatal: the service starts empty and logs a warning.
func Open(ctx context.Context, store *Store, remote Remote, cfg Config) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if remote == nil {
		return nil, fmt.Errorf("%w: remote is required", ErrInvalidConfig)
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultEventBuffer
	}
	if cfg.Dispatch == nil {
		cfg.Dispatch = func(ctx context.Context, fn func(ctx context.Context)) { go fn(ctx) }
	}

	s := &Service{
		notes:       NewNotes(cfg.Now, cfg.NewID),
		queue:       NewQueue(),
		monitor:     NewMonitor(),
		store:       store,
		events:      newBroker(cfg.EventBuffer),
		logger:      cfg.Logger,
		now:         cfg.Now,
		dispatch:    cfg.Dispatch,
		manualSync:  cfg.ManualSync,
		eventBuffer: cfg.EventBuffer,
	}
	s.coord = newCoordinator(s, remote)

	snap, err := store.Load(ctx)
	if err != nil {
		s.logger.Warn("failed to load state, starting empty", "error", err)
		s.publish(Event{Type: EventStorageWarning, Message: err.Error()})
		return s, nil
	}

	s.mu.Lock()
	repaired := s.apply(snap)
	var writes []Write
	if repaired > 0 {
		writes = s.prepare(KeyNotes, KeyPending)
	}
	s.mu.Unlock()
	if repaired > 0 {
		s.logger.Warn("repaired stored state", "changes", repaired)
		s.commit(ctx, writes)
	}

	s.logger.Debug("state loaded", "notes", len(snap.Notes), "entries", len(snap.Queue))
	return s, nil
}

// apply replaces the in-memory state with snap and repairs drift between
// the records. The queue is authoritative. It returns the number of
// repairs. Caller holds s.mu.
func (s *Service) apply(snap Snapshot) int {
	s.notes.Replace(snap.Notes)
	s.queue.Replace(snap.Queue)
	s.lastSynced = snap.LastSyncedAt

	repaired := 0
	s.queue.Filter(func(e Entry) bool {
		if e.Action == ActionDelete {
			if _, live := s.notes.Get(e.Note.ID); live {
				_, _ = s.notes.Delete(e.Note.ID)
				repaired++
			}
			return true
		}
		if _, live := s.notes.Get(e.Note.ID); live {
			return true
		}
		repaired++
		return false
	})
	for _, n := range s.notes.List() {
		want := !s.queue.Has(n.ID)
		if n.Synced != want {
			s.notes.SetSynced(n.ID, want)
			repaired++
		}
	}
	return repaired
}

// AddNote creates an unsynced note and queues its creation.
func (s *Service) AddNote(ctx context.Context, title, content string) Note {
	s.mu.Lock()
	note := s.notes.Create(title, content)
	s.queue.Enqueue(ActionCreate, note)
	writes := s.prepare(KeyNotes, KeyPending)
	s.mu.Unlock()

	s.commit(ctx, writes)
	s.logger.Debug("note created", "id", note.ID)
	s.publish(Event{Type: EventNoteCreate, NoteID: note.ID})
	return note
}

// UpdateNote replaces the title and content of a note and queues the update.
func (s *Service) UpdateNote(ctx context.Context, id, title, content string) (Note, error) {
	s.mu.Lock()
	note, err := s.notes.Update(id, title, content)
	if err != nil {
		s.mu.Unlock()
		return Note{}, err
	}
	s.queue.Enqueue(ActionUpdate, note)
	writes := s.prepare(KeyNotes, KeyPending)
	s.mu.Unlock()

	s.commit(ctx, writes)
	s.logger.Debug("note updated", "id", id)
	s.publish(Event{Type: EventNoteUpdate, NoteID: id})
	return note, nil
}

// DeleteNote removes a note and queues its deletion.
func (s *Service) DeleteNote(ctx context.Context, id string) error {
	s.mu.Lock()
	note, err := s.notes.Delete(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.queue.Enqueue(ActionDelete, note)
	writes := s.prepare(KeyNotes, KeyPending)
	s.mu.Unlock()

	s.commit(ctx, writes)
	s.logger.Debug("note deleted", "id", id)
	s.publish(Event{Type: EventNoteDelete, NoteID: id})
	return nil
}

// Reconcile sends the pending mutations to the remote. It blocks until the
// remote answers; see ReconcileAsync for a non-blocking variant.
func (s *Service) Reconcile(ctx context.Context) SyncResult {
	return s.coord.Reconcile(ctx)
}

// Sync is an alias for Reconcile.
func (s *Service) Sync(ctx context.Context) SyncResult {
	return s.Reconcile(ctx)
}

// ReconcileAsync starts a reconciliation through the dispatcher. The
// channel receives exactly one result.
func (s *Service) ReconcileAsync(ctx context.Context) <-chan SyncResult {
	done := make(chan SyncResult, 1)
	s.dispatch(ctx, func(ctx context.Context) {
		done <- s.Reconcile(ctx)
	})
	return done
}

// ClearAllData wipes the store and the in-memory state. When the store
// cannot be cleared the in-memory state is left as is.
func (s *Service) ClearAllData(ctx context.Context) error {
	s.mu.Lock()
	if err := s.store.Clear(ctx); err != nil {
		s.mu.Unlock()
		s.logger.Error("failed to clear data", "error", err)
		s.publish(Event{Type: EventStorageWarning, Message: err.Error()})
		return err
	}
	s.notes.Reset()
	s.queue.Clear()
	s.lastSynced = nil
	s.epoch++
	s.mu.Unlock()

	s.logger.Info("all data cleared")
	s.publish(Event{Type: EventDataCleared})
	return nil
}

// Reload replaces the in-memory state with the contents of the store.
// It refuses to run while a reconciliation is in flight.
func (s *Service) Reload(ctx context.Context) error {
	if s.coord.InFlight() {
		return ErrAlreadyInFlight
	}
	snap, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Warn("reload failed", "error", err)
		s.publish(Event{Type: EventStorageWarning, Message: err.Error()})
		return err
	}

	s.mu.Lock()
	if s.coord.InFlight() {
		s.mu.Unlock()
		return ErrAlreadyInFlight
	}
	// Repairs stay in memory until the next mutation rewrites the records.
	repaired := s.apply(snap)
	s.epoch++
	s.mu.Unlock()

	if repaired > 0 {
		s.logger.Debug("reloaded state differs from the records, repaired in memory only", "changes", repaired)
	}

	s.logger.Debug("state reloaded", "notes", len(snap.Notes), "entries", len(snap.Queue))
	return nil
}

// ObserveConnectivity feeds one reachability report to the monitor. On a
// transition into online with pending mutations a reconciliation is
// dispatched, unless ManualSync is set.
func (s *Service) ObserveConnectivity(ctx context.Context, r Reachability) {
	s.mu.Lock()
	changed, trigger := s.monitor.Observe(r, s.queue.Len())
	state := s.monitor.State()
	s.mu.Unlock()

	if !changed {
		return
	}
	s.logger.Info("connectivity changed", "state", state)
	s.publish(Event{Type: EventConnectivity, Message: string(state)})

	if !trigger || s.manualSync {
		return
	}
	s.dispatch(ctx, func(ctx context.Context) {
		res := s.Reconcile(ctx)
		s.logger.Debug("reconnect sync finished", "status", res.Status, "message", res.Message)
	})
}

// Connect subscribes to src and feeds its reports to the monitor until ctx
// ends or the source closes.
func (s *Service) Connect(ctx context.Context, src ConnectivitySource) error {
	ch, err := src.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to connectivity: %w", err)
	}
	s.dispatch(ctx, func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case r, ok := <-ch:
				if !ok {
					return
				}
				s.ObserveConnectivity(ctx, r)
			}
		}
	})
	return nil
}

// Notes returns the live notes ordered by creation time.
func (s *Service) Notes() []Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notes.List()
}

// Note returns a single note.
func (s *Service) Note(id string) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes.Get(id)
	if !ok {
		return Note{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return n, nil
}

// Pending returns a copy of the mutation queue.
func (s *Service) Pending() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Drain()
}

// IsOnline reports whether the last connectivity report was online.
func (s *Service) IsOnline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.monitor.Online()
}

// Connectivity returns the monitor state.
func (s *Service) Connectivity() Connectivity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.monitor.State()
}

// LastSyncedAt returns the time of the last successful reconciliation, or
// nil if there was none.
func (s *Service) LastSyncedAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSynced == nil {
		return nil
	}
	t := *s.lastSynced
	return &t
}

// InFlight reports whether a reconciliation is running.
func (s *Service) InFlight() bool { return s.coord.InFlight() }

// Status is a point-in-time summary of the service.
type Status struct {
	Connectivity Connectivity `json:"connectivity"`
	Online       bool         `json:"online"`
	Notes        int          `json:"notes"`
	Unsynced     int          `json:"unsynced"`
	Pending      int          `json:"pending"`
	InFlight     bool         `json:"inFlight"`
	LastSyncedAt *time.Time   `json:"lastSyncedAt"`
}

// Status returns a consistent summary of the current state.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Connectivity: s.monitor.State(),
		Online:       s.monitor.Online(),
		Notes:        s.notes.Len(),
		Unsynced:     s.notes.Unsynced(),
		Pending:      s.queue.Len(),
		InFlight:     s.coord.InFlight(),
	}
	if s.lastSynced != nil {
		t := *s.lastSynced
		st.LastSyncedAt = &t
	}
	return st
}

// Subscribe returns a stream of events. The channel is closed when ctx ends.
// A subscriber that falls behind misses events.
func (s *Service) Subscribe(ctx context.Context) <-chan Event {
	return s.events.subscribe(ctx)
}

func (s *Service) publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}
	s.events.publish(e)
}

// prepare encodes the named records from the current state. Caller holds s.mu.
func (s *Service) prepare(keys ...string) []Write {
	writes := make([]Write, 0, len(keys))
	for _, key := range keys {
		var v any
		switch key {
		case KeyNotes:
			v = s.notes.List()
		case KeyPending:
			v = s.queue.Drain()
		case KeyLastSynced:
			v = s.lastSynced
		default:
			continue
		}
		w, err := s.store.Prepare(key, v)
		if err != nil {
			s.logger.Error("failed to encode record", "key", key, "error", err)
			continue
		}
		writes = append(writes, w)
	}
	return writes
}

// commit persists writes. Failures are reported as warnings, never returned.
func (s *Service) commit(ctx context.Context, writes []Write) {
	if len(writes) == 0 {
		return
	}
	if err := s.store.CommitAll(ctx, writes...); err != nil {
		s.logger.Warn("failed to persist state", "error", err)
		s.publish(Event{Type: EventStorageWarning, Message: warningMessage(err)})
	}
}

func warningMessage(err error) string {
	if errors.Is(err, ErrStorageUnavailable) {
		return err.Error()
	}
	return fmt.Sprintf("%v: %v", ErrStorageUnavailable, err)
}
