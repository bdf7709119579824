package core

import "time"

// Note is the central entity of the domain.
// It is agnostic to storage format (JSON, YAML, SQL).
type Note struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
	// Synced is true iff no queue entry references this note.
	Synced bool `json:"synced" yaml:"synced"`
}

// Action is the kind of local mutation recorded in the queue.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Entry is an outstanding local mutation not yet acknowledged by the remote.
// Note holds the snapshot taken when the mutation was queued.
type Entry struct {
	// Seq changes every time the entry is written, including when a later
	// mutation is folded into it.
	Seq    uint64 `json:"seq" yaml:"seq"`
	Action Action `json:"action" yaml:"action"`
	Note   Note   `json:"note" yaml:"note"`
}
