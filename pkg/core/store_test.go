package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/moss/pkg/adapters/memory"
	"github.com/aretw0/moss/pkg/core"
)

func TestStore_RoundTrip(t *testing.T) {
	for _, codec := range []core.Codec{core.JSONCodec{}, core.YAMLCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			ctx := context.Background()
			kv := memory.New()
			store := core.NewStore(kv, codec)

			ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
			note := core.Note{ID: "n1", Title: "t", Content: "c", CreatedAt: ts, UpdatedAt: ts}
			queue := []core.Entry{{Seq: 1, Action: core.ActionCreate, Note: note}}

			require.NoError(t, store.Save(ctx, core.KeyNotes, []core.Note{note}))
			require.NoError(t, store.Save(ctx, core.KeyPending, queue))
			require.NoError(t, store.Save(ctx, core.KeyLastSynced, &ts))

			snap, err := store.Load(ctx)
			require.NoError(t, err)
			require.Len(t, snap.Notes, 1)
			assert.Equal(t, note.ID, snap.Notes[0].ID)
			assert.True(t, snap.Notes[0].CreatedAt.Equal(ts))
			require.Len(t, snap.Queue, 1)
			assert.Equal(t, uint64(1), snap.Queue[0].Seq)
			assert.Equal(t, core.ActionCreate, snap.Queue[0].Action)
			require.NotNil(t, snap.LastSyncedAt)
			assert.True(t, snap.LastSyncedAt.Equal(ts))
		})
	}
}

func TestStore_LoadEmpty(t *testing.T) {
	store := core.NewStore(memory.New(), nil)
	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Notes)
	assert.Empty(t, snap.Queue)
	assert.Nil(t, snap.LastSyncedAt)
}

func TestStore_LoadFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("read error", func(t *testing.T) {
		kv := memory.New()
		kv.Fail(memory.OpGet, nil)
		_, err := core.NewStore(kv, nil).Load(ctx)
		assert.ErrorIs(t, err, core.ErrStorageUnavailable)
	})

	t.Run("corrupt record", func(t *testing.T) {
		kv := memory.New()
		kv.Put(core.KeyNotes, "{not json")
		_, err := core.NewStore(kv, nil).Load(ctx)
		assert.ErrorIs(t, err, core.ErrStorageUnavailable)
	})
}

func TestStore_StaleWriteSkipped(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	store := core.NewStore(kv, nil)

	older, err := store.Prepare(core.KeyNotes, []core.Note{{ID: "old"}})
	require.NoError(t, err)
	newer, err := store.Prepare(core.KeyNotes, []core.Note{{ID: "new"}})
	require.NoError(t, err)

	require.NoError(t, store.Commit(ctx, newer))
	require.NoError(t, store.Commit(ctx, older))

	snap, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Notes, 1)
	assert.Equal(t, "new", snap.Notes[0].ID)
	assert.Equal(t, 1, kv.Writes())
}

func TestStore_ClearDropsEarlierWrites(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	store := core.NewStore(kv, nil)

	pending, err := store.Prepare(core.KeyNotes, []core.Note{{ID: "ghost"}})
	require.NoError(t, err)
	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Commit(ctx, pending))

	_, ok := kv.Raw(core.KeyNotes)
	assert.False(t, ok, "write prepared before clear must not land")
}

func TestStore_CommitFailure(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	kv.Fail(memory.OpSet, nil)
	store := core.NewStore(kv, nil)

	err := store.Save(ctx, core.KeyNotes, []core.Note{})
	if !errors.Is(err, core.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}

	// Later writes land once the KV recovers.
	kv.Heal()
	require.NoError(t, store.Save(ctx, core.KeyNotes, []core.Note{{ID: "x"}}))
	_, ok := kv.Raw(core.KeyNotes)
	assert.True(t, ok)
}
