package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func actions(entries []Entry) []Action {
	out := make([]Action, len(entries))
	for i, e := range entries {
		out[i] = e.Action
	}
	return out
}

func TestQueue_Coalescing(t *testing.T) {
	t.Run("two updates leave one update with the latest snapshot", func(t *testing.T) {
		q := NewQueue()
		q.Enqueue(ActionUpdate, Note{ID: "a", Title: "first"})
		q.Enqueue(ActionUpdate, Note{ID: "a", Title: "second"})

		require.Equal(t, 1, q.Len())
		e, ok := q.Entry("a")
		require.True(t, ok)
		assert.Equal(t, ActionUpdate, e.Action)
		assert.Equal(t, "second", e.Note.Title)
	})

	t.Run("update folds into a pending create and keeps its position", func(t *testing.T) {
		q := NewQueue()
		q.Enqueue(ActionCreate, Note{ID: "a", Title: "v1"})
		q.Enqueue(ActionCreate, Note{ID: "b"})
		first, _ := q.Entry("a")

		q.Enqueue(ActionUpdate, Note{ID: "a", Title: "v2"})

		entries := q.Drain()
		require.Len(t, entries, 2)
		assert.Equal(t, "a", entries[0].Note.ID)
		assert.Equal(t, ActionCreate, entries[0].Action)
		assert.Equal(t, "v2", entries[0].Note.Title)
		assert.Greater(t, entries[0].Seq, first.Seq, "folded entry must get a new seq")
	})

	t.Run("update on another note moves to the tail", func(t *testing.T) {
		q := NewQueue()
		q.Enqueue(ActionUpdate, Note{ID: "a"})
		q.Enqueue(ActionUpdate, Note{ID: "b"})
		q.Enqueue(ActionUpdate, Note{ID: "a"})

		entries := q.Drain()
		require.Len(t, entries, 2)
		assert.Equal(t, "b", entries[0].Note.ID)
		assert.Equal(t, "a", entries[1].Note.ID)
	})

	t.Run("delete replaces every prior entry", func(t *testing.T) {
		q := NewQueue()
		q.Enqueue(ActionCreate, Note{ID: "a"})
		q.Enqueue(ActionUpdate, Note{ID: "a"})
		q.Enqueue(ActionDelete, Note{ID: "a"})

		assert.Equal(t, []Action{ActionDelete}, actions(q.Drain()))
	})
}

func TestQueue_DrainIsACopy(t *testing.T) {
	q := NewQueue()
	q.Enqueue(ActionCreate, Note{ID: "a"})

	drained := q.Drain()
	drained[0].Action = ActionDelete
	q.Enqueue(ActionCreate, Note{ID: "b"})

	e, _ := q.Entry("a")
	assert.Equal(t, ActionCreate, e.Action)
	assert.Len(t, drained, 1)
}

func TestQueue_Acknowledge(t *testing.T) {
	q := NewQueue()
	q.Enqueue(ActionCreate, Note{ID: "a"})
	q.Enqueue(ActionUpdate, Note{ID: "b"})
	sent := q.Drain()

	// Rewritten while the batch was out.
	q.Enqueue(ActionUpdate, Note{ID: "b", Title: "newer"})
	q.Enqueue(ActionCreate, Note{ID: "c"})
	assert.False(t, q.Unchanged(sent))

	acked := q.Acknowledge(sent)

	assert.Equal(t, []string{"a"}, acked)
	require.Equal(t, 2, q.Len())
	e, ok := q.Entry("b")
	require.True(t, ok)
	assert.Equal(t, "newer", e.Note.Title)
	assert.True(t, q.Has("c"))
}

func TestQueue_Unchanged(t *testing.T) {
	q := NewQueue()
	q.Enqueue(ActionCreate, Note{ID: "a"})
	sent := q.Drain()
	assert.True(t, q.Unchanged(sent))

	q.Clear()
	assert.False(t, q.Unchanged(sent))
	assert.Equal(t, 0, q.Len())
}

func TestQueue_Replace(t *testing.T) {
	q := NewQueue()
	q.Replace([]Entry{
		{Seq: 7, Action: ActionCreate, Note: Note{ID: "a"}},
		{Seq: 0, Action: ActionUpdate, Note: Note{ID: "b"}},
		{Seq: 3, Action: "bogus", Note: Note{ID: "c"}},
		{Seq: 4, Action: ActionUpdate, Note: Note{ID: ""}},
		{Seq: 9, Action: ActionDelete, Note: Note{ID: "a"}},
	})

	entries := q.Drain()
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].Note.ID)
	assert.Equal(t, uint64(10), entries[0].Seq, "entries without seq are renumbered after the max")
	assert.Equal(t, ActionDelete, entries[1].Action)

	e := q.Enqueue(ActionCreate, Note{ID: "d"})
	assert.Equal(t, uint64(11), e.Seq)
}
