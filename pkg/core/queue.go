package core

// Queue is the ordered log of local mutations not yet acknowledged by the
// remote. It holds at most one entry per note id:
//
//   - create appends.
//   - update folds into a pending create, otherwise replaces any prior
//     update and moves to the tail.
//   - delete drops every prior entry for the id and appends.
//
// Queue is not safe for concurrent use.
type Queue struct {
	entries []Entry
	nextSeq uint64
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{nextSeq: 1}
}

// Enqueue records a mutation and returns the entry as stored.
func (q *Queue) Enqueue(action Action, note Note) Entry {
	switch action {
	case ActionUpdate:
		if i := q.index(note.ID); i >= 0 && q.entries[i].Action == ActionCreate {
			q.entries[i].Note = note
			q.entries[i].Seq = q.seq()
			return q.entries[i]
		}
		q.remove(note.ID)
	case ActionDelete:
		q.remove(note.ID)
	}

	e := Entry{Seq: q.seq(), Action: action, Note: note}
	q.entries = append(q.entries, e)
	return e
}

// Drain returns a copy of the entries in order without removing them.
func (q *Queue) Drain() []Entry {
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Clear removes every entry.
func (q *Queue) Clear() { q.entries = nil }

// Acknowledge removes the entries whose Seq matches one in sent. An entry
// rewritten after sent was taken carries a newer Seq and stays.
// It returns the ids of the removed entries.
func (q *Queue) Acknowledge(sent []Entry) []string {
	acked := make(map[uint64]struct{}, len(sent))
	for _, e := range sent {
		acked[e.Seq] = struct{}{}
	}

	var ids []string
	kept := q.entries[:0]
	for _, e := range q.entries {
		if _, ok := acked[e.Seq]; ok {
			ids = append(ids, e.Note.ID)
			continue
		}
		kept = append(kept, e)
	}
	q.entries = kept
	return ids
}

// Unchanged reports whether the queue still holds exactly sent, in order.
func (q *Queue) Unchanged(sent []Entry) bool {
	if len(sent) != len(q.entries) {
		return false
	}
	for i := range sent {
		if sent[i].Seq != q.entries[i].Seq {
			return false
		}
	}
	return true
}

// Len returns the number of entries.
func (q *Queue) Len() int { return len(q.entries) }

// Has reports whether an entry references id.
func (q *Queue) Has(id string) bool { return q.index(id) >= 0 }

// Entry returns the entry referencing id.
func (q *Queue) Entry(id string) (Entry, bool) {
	if i := q.index(id); i >= 0 {
		return q.entries[i], true
	}
	return Entry{}, false
}

// Replace swaps the contents, typically after a load. Entries with unknown
// actions or empty ids are dropped, later duplicates for an id replace
// earlier ones, and the sequence resumes after the highest Seq seen.
func (q *Queue) Replace(entries []Entry) {
	q.entries = nil
	q.nextSeq = 1
	for _, e := range entries {
		if !e.Action.Valid() || e.Note.ID == "" {
			continue
		}
		if e.Seq >= q.nextSeq {
			q.nextSeq = e.Seq + 1
		}
		q.put(e)
	}
	// Entries persisted without a sequence get fresh ones.
	for i := range q.entries {
		if q.entries[i].Seq == 0 {
			q.entries[i].Seq = q.seq()
		}
	}
}

// Filter keeps only the entries for which keep returns true.
func (q *Queue) Filter(keep func(Entry) bool) {
	kept := q.entries[:0]
	for _, e := range q.entries {
		if keep(e) {
			kept = append(kept, e)
		}
	}
	q.entries = kept
}

// put applies the coalescing rules to an entry that already has a Seq.
func (q *Queue) put(e Entry) {
	if e.Action == ActionUpdate {
		if i := q.index(e.Note.ID); i >= 0 && q.entries[i].Action == ActionCreate {
			q.entries[i].Note = e.Note
			q.entries[i].Seq = e.Seq
			return
		}
	}
	q.remove(e.Note.ID)
	q.entries = append(q.entries, e)
}

func (q *Queue) seq() uint64 {
	s := q.nextSeq
	q.nextSeq++
	return s
}

func (q *Queue) index(id string) int {
	for i, e := range q.entries {
		if e.Note.ID == id {
			return i
		}
	}
	return -1
}

func (q *Queue) remove(id string) {
	kept := q.entries[:0]
	for _, e := range q.entries {
		if e.Note.ID != id {
			kept = append(kept, e)
		}
	}
	q.entries = kept
}
