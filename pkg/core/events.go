package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// EventType represents the kind of change observed in the core.
type EventType string

const (
	EventNoteCreate     EventType = "NOTE_CREATE"
	EventNoteUpdate     EventType = "NOTE_UPDATE"
	EventNoteDelete     EventType = "NOTE_DELETE"
	EventSyncStart      EventType = "SYNC_START"
	EventSyncOK         EventType = "SYNC_OK"
	EventSyncFail       EventType = "SYNC_FAIL"
	EventConnectivity   EventType = "CONNECTIVITY"
	EventStorageWarning EventType = "STORAGE_WARNING"
	EventDataCleared    EventType = "DATA_CLEARED"
)

// Event represents a change in the core state.
type Event struct {
	Type      EventType `json:"type"`
	NoteID    string    `json:"noteId,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// String implements lifecycle.Event.
func (e Event) String() string {
	switch {
	case e.NoteID != "" && e.Message != "":
		return fmt.Sprintf("%s %s: %s", e.Type, e.NoteID, e.Message)
	case e.NoteID != "":
		return fmt.Sprintf("%s %s", e.Type, e.NoteID)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
	return string(e.Type)
}

// broker fans events out to subscribers. Publishing never blocks: a
// subscriber whose buffer is full misses the event.
type broker struct {
	mu      sync.Mutex
	size    int
	subs    map[chan Event]struct{}
	dropped uint64
}

func newBroker(size int) *broker {
	if size < 0 {
		size = 0
	}
	return &broker{size: size, subs: make(map[chan Event]struct{})}
}

// subscribe registers a new subscriber. The channel is closed when ctx ends.
func (b *broker) subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, b.size)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}()
	return ch
}

func (b *broker) publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.dropped++
		}
	}
}

func (b *broker) stats() (subscribers int, dropped uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs), b.dropped
}
