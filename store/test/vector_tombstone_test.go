package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/vectornotes/store"
)

func TestVectorTombstoneStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	require.NoError(t, ts.CreateVectorTombstone(ctx, &store.VectorTombstone{NoteID: "b", UserID: "u1", CreatedTs: 2}))
	require.NoError(t, ts.CreateVectorTombstone(ctx, &store.VectorTombstone{NoteID: "a", UserID: "u2", CreatedTs: 1}))
	// Recording the same note twice is idempotent.
	require.NoError(t, ts.CreateVectorTombstone(ctx, &store.VectorTombstone{NoteID: "a", UserID: "u2", CreatedTs: 3}))

	list, err := ts.ListVectorTombstones(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "a", list[0].NoteID)
	require.Equal(t, "u2", list[0].UserID)
	require.Equal(t, int64(1), list[0].CreatedTs)
	require.Equal(t, "b", list[1].NoteID)

	list, err = ts.ListVectorTombstones(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, ts.DeleteVectorTombstone(ctx, "a"))
	require.NoError(t, ts.DeleteVectorTombstone(ctx, "missing"))

	list, err = ts.ListVectorTombstones(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "b", list[0].NoteID)
}
