package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Notes is the in-memory note repository. It is not safe for concurrent
// use; the Service serializes access.
type Notes struct {
	byID  map[string]Note
	now   func() time.Time
	newID func() string
}

// NewNotes creates an empty repository. Nil functions select the defaults:
// UTC wall clock and random UUIDs.
func NewNotes(now func() time.Time, newID func() string) *Notes {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if newID == nil {
		newID = func() string { return uuid.New().String() }
	}
	return &Notes{
		byID:  make(map[string]Note),
		now:   now,
		newID: newID,
	}
}

// Create adds a new unsynced note with a fresh id.
func (n *Notes) Create(title, content string) Note {
	ts := n.now()
	note := Note{
		ID:        n.newID(),
		Title:     title,
		Content:   content,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	n.byID[note.ID] = note
	return note
}

// Update replaces title and content. The note becomes unsynced even when
// nothing changed.
func (n *Notes) Update(id, title, content string) (Note, error) {
	note, ok := n.byID[id]
	if !ok {
		return Note{}, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	note.Title = title
	note.Content = content
	note.UpdatedAt = n.now()
	note.Synced = false
	n.byID[id] = note
	return note, nil
}

// Delete removes the note and returns what was removed.
func (n *Notes) Delete(id string) (Note, error) {
	note, ok := n.byID[id]
	if !ok {
		return Note{}, fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	delete(n.byID, id)
	return note, nil
}

// MarkAllSynced flags every note as synced.
func (n *Notes) MarkAllSynced() {
	for id, note := range n.byID {
		note.Synced = true
		n.byID[id] = note
	}
}

// MarkSynced flags the given notes as synced. Unknown ids are ignored.
func (n *Notes) MarkSynced(ids ...string) {
	for _, id := range ids {
		if note, ok := n.byID[id]; ok {
			note.Synced = true
			n.byID[id] = note
		}
	}
}

// SetSynced sets the flag of a single note. It reports whether the note exists.
func (n *Notes) SetSynced(id string, synced bool) bool {
	note, ok := n.byID[id]
	if !ok {
		return false
	}
	note.Synced = synced
	n.byID[id] = note
	return true
}

// Get returns the note with the given id.
func (n *Notes) Get(id string) (Note, bool) {
	note, ok := n.byID[id]
	return note, ok
}

// List returns all notes ordered by creation time, then id.
func (n *Notes) List() []Note {
	out := make([]Note, 0, len(n.byID))
	for _, note := range n.byID {
		out = append(out, note)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of live notes.
func (n *Notes) Len() int { return len(n.byID) }

// Unsynced returns the number of live notes with Synced=false.
func (n *Notes) Unsynced() int {
	c := 0
	for _, note := range n.byID {
		if !note.Synced {
			c++
		}
	}
	return c
}

// Replace swaps the whole collection, typically after a load.
func (n *Notes) Replace(notes []Note) {
	n.byID = make(map[string]Note, len(notes))
	for _, note := range notes {
		if note.ID == "" {
			continue
		}
		n.byID[note.ID] = note
	}
}

// Reset empties the repository.
func (n *Notes) Reset() { n.byID = make(map[string]Note) }
