package core

import (
	"context"
	"fmt"
	"sync/atomic"
)

// SyncStatus classifies the outcome of one reconciliation attempt.
type SyncStatus string

const (
	SyncStatusSynced          SyncStatus = "synced"
	SyncStatusNothingToSync   SyncStatus = "nothing_to_sync"
	SyncStatusOffline         SyncStatus = "offline"
	SyncStatusRejected        SyncStatus = "rejected"
	SyncStatusAlreadyInFlight SyncStatus = "already_in_flight"
	SyncStatusDiscarded       SyncStatus = "discarded"
)

// Result messages for the outcomes decided locally.
const (
	MsgNothingToSync  = "nothing to sync"
	MsgOffline        = "offline"
	MsgAlreadySyncing = "already syncing"
	MsgDiscarded      = "data replaced during sync, outcome discarded"
	msgRemoteFailed   = "sync failed"
)

// SyncResult is the structured outcome of Reconcile. Failures are
// reported here rather than as returned errors; Err holds the matching
// sentinel when there is one.
type SyncResult struct {
	Status  SyncStatus `json:"status"`
	Success bool       `json:"success"`
	Message string     `json:"message"`
	// Entries is the number of queue entries sent to the remote.
	Entries int   `json:"entries"`
	Err     error `json:"-"`
}

// Coordinator runs reconciliation attempts against the remote, at most one
// at a time.
type Coordinator struct {
	svc      *Service
	remote   Remote
	inFlight atomic.Bool
}

func newCoordinator(svc *Service, remote Remote) *Coordinator {
	return &Coordinator{svc: svc, remote: remote}
}

// InFlight reports whether a reconciliation is running.
func (c *Coordinator) InFlight() bool { return c.inFlight.Load() }

// Reconcile performs one attempt: drain the queue, send it, apply the
// verdict and persist. No lock is held while the remote is called.
func (c *Coordinator) Reconcile(ctx context.Context) SyncResult {
	s := c.svc

	if c.inFlight.Load() {
		return alreadyInFlight()
	}

	s.mu.Lock()
	if s.queue.Len() == 0 {
		s.mu.Unlock()
		return SyncResult{Status: SyncStatusNothingToSync, Success: true, Message: MsgNothingToSync}
	}
	if !s.monitor.Online() {
		s.mu.Unlock()
		return SyncResult{Status: SyncStatusOffline, Message: MsgOffline, Err: ErrOffline}
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		s.mu.Unlock()
		return alreadyInFlight()
	}
	defer c.inFlight.Store(false)

	sent := s.queue.Drain()
	epoch := s.epoch
	s.mu.Unlock()

	s.logger.Info("sync started", "entries", len(sent))
	s.publish(Event{Type: EventSyncStart, Message: sendingMessage(len(sent))})

	res, err := c.remote.SyncBatch(ctx, sent)
	if err != nil || !res.Success {
		msg := res.Message
		if err != nil {
			msg = err.Error()
		}
		if msg == "" {
			msg = msgRemoteFailed
		}
		s.logger.Warn("sync rejected", "entries", len(sent), "error", msg)
		s.publish(Event{Type: EventSyncFail, Message: msg})
		return SyncResult{Status: SyncStatusRejected, Message: msg, Entries: len(sent), Err: ErrRemoteRejected}
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		s.logger.Warn("sync outcome discarded", "entries", len(sent))
		return SyncResult{Status: SyncStatusDiscarded, Message: MsgDiscarded, Entries: len(sent)}
	}

	if s.queue.Unchanged(sent) {
		s.notes.MarkAllSynced()
		s.queue.Clear()
	} else {
		for _, id := range s.queue.Acknowledge(sent) {
			if !s.queue.Has(id) {
				s.notes.MarkSynced(id)
			}
		}
	}
	now := s.now()
	s.lastSynced = &now
	writes := s.prepare(KeyNotes, KeyPending, KeyLastSynced)
	remaining := s.queue.Len()
	s.mu.Unlock()

	s.commit(ctx, writes)

	s.logger.Info("sync ok", "entries", len(sent), "remaining", remaining)
	s.publish(Event{Type: EventSyncOK, Message: res.Message})
	return SyncResult{Status: SyncStatusSynced, Success: true, Message: res.Message, Entries: len(sent)}
}

func sendingMessage(n int) string {
	if n == 1 {
		return "sending 1 change"
	}
	return fmt.Sprintf("sending %d changes", n)
}

func alreadyInFlight() SyncResult {
	return SyncResult{Status: SyncStatusAlreadyInFlight, Message: MsgAlreadySyncing, Err: ErrAlreadyInFlight}
}
