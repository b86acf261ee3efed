// Package storetest holds the behavior every store.Backend must share.
package storetest

import (
	"bytes"
	"context"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanBrykalov/hashcons/score"
	"github.com/IvanBrykalov/hashcons/store"
)

// TestBackend runs the shared conformance checks against b.
func TestBackend(t *testing.T, b store.Backend) {
	t.Helper()
	ctx := context.Background()

	a, c := uuid.New(), uuid.New()

	_, err := b.Get(ctx, a)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, b.Put(ctx, a, []byte("first")))
	require.NoError(t, b.Put(ctx, c, []byte("second")))
	require.NoError(t, b.Put(ctx, a, []byte("first, again")))

	got, err := b.Get(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "first, again", string(got))

	ids, err := b.List(ctx)
	require.NoError(t, err)
	want := []score.DocumentID{a, c}
	sort.Slice(want, func(i, j int) bool { return bytes.Compare(want[i][:], want[j][:]) < 0 })
	assert.Equal(t, want, ids, "List returns IDs in key order")

	require.NoError(t, b.Delete(ctx, a))
	_, err = b.Get(ctx, a)
	assert.ErrorIs(t, err, store.ErrNotFound)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, b.Put(cancelled, a, nil), context.Canceled)
}
