package core

import (
	"github.com/aretw0/introspection"
)

// ServiceState exposes internal state for observability.
type ServiceState struct {
	Connectivity     string `json:"connectivity"`
	Notes            int    `json:"notes"`
	Pending          int    `json:"pending"`
	InFlight         bool   `json:"in_flight"`
	EventBufferSize  int    `json:"event_buffer_size"`
	Subscribers      int    `json:"subscribers"`
	DroppedEvents    uint64 `json:"dropped_events"`
	StoreType        string `json:"store_type"`
	Codec            string `json:"codec"`
	ManualSync       bool   `json:"manual_sync"`
	LastSyncedAtUnix int64  `json:"last_synced_at_unix,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	s.mu.Lock()
	st := ServiceState{
		Connectivity:    string(s.monitor.State()),
		Notes:           s.notes.Len(),
		Pending:         s.queue.Len(),
		InFlight:        s.coord.InFlight(),
		EventBufferSize: s.eventBuffer,
		Codec:           s.store.Codec().Name(),
		ManualSync:      s.manualSync,
	}
	if s.lastSynced != nil {
		st.LastSyncedAtUnix = s.lastSynced.Unix()
	}
	s.mu.Unlock()

	st.Subscribers, st.DroppedEvents = s.events.stats()

	st.StoreType = "kv"
	// Try to get component type if the KV implements introspection.Component
	if comp, ok := s.store.KV().(introspection.Component); ok {
		st.StoreType = comp.ComponentType()
	}
	return st
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "service"
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)
