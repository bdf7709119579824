package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/moss/pkg/core"
)

func TestKV_GetSetClear(t *testing.T) {
	ctx := context.Background()
	kv, err := Open(":memory:", nil)
	require.NoError(t, err)
	defer kv.Close()

	_, ok, err := kv.Get(ctx, core.KeyNotes)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, core.KeyNotes, "[]"))
	require.NoError(t, kv.Set(ctx, core.KeyNotes, `[{"id":"a"}]`))

	v, ok, err := kv.Get(ctx, core.KeyNotes)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"a"}]`, v, "second Set must overwrite")

	st := kv.State().(KVState)
	assert.Equal(t, 1, st.Keys)
	assert.Equal(t, 2, st.Writes)

	require.NoError(t, kv.Clear(ctx))
	_, ok, err = kv.Get(ctx, core.KeyNotes)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKV_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", DefaultFileName)

	kv, err := Open(path, nil)
	require.NoError(t, err)
	store := core.NewStore(kv, nil)
	ts := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, core.KeyNotes, []core.Note{{ID: "a", Title: "x", CreatedAt: ts, UpdatedAt: ts}}))
	require.NoError(t, store.Save(ctx, core.KeyLastSynced, &ts))
	require.NoError(t, kv.Close())

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	snap, err := core.NewStore(reopened, nil).Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Notes, 1)
	assert.Equal(t, "x", snap.Notes[0].Title)
	require.NotNil(t, snap.LastSyncedAt)
	assert.True(t, ts.Equal(*snap.LastSyncedAt))
	assert.Empty(t, snap.Queue)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("", nil)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestKV_CloseWhileObserved(t *testing.T) {
	ctx := context.Background()
	kv, err := Open(filepath.Join(t.TempDir(), DefaultFileName), nil)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, core.KeyNotes, "[]"))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = kv.State()
		}
	}()
	require.NoError(t, kv.Close())
	wg.Wait()

	st := kv.State().(KVState)
	assert.Equal(t, 0, st.Keys)
	assert.Equal(t, 1, st.Writes)

	_, _, err = kv.Get(ctx, core.KeyNotes)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, kv.Set(ctx, core.KeyNotes, "[]"), ErrClosed)
	assert.ErrorIs(t, kv.Clear(ctx), ErrClosed)
	assert.NoError(t, kv.Close(), "second Close is a no-op")
}
