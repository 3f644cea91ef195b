// Package storetest holds the behaviour every store.Store backend shares.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/whiteboard/internal/store"
)

// Run exercises a backend. open must return an empty store.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	ctx := context.Background()
	doc := []byte(`{"layers":{},"layerIds":[]}`)

	t.Run("create and get", func(t *testing.T) {
		s := open(t)
		created, err := s.CreateBoard(ctx, store.Board{ID: "board_1", OwnerID: "alice", Name: "Plan"}, doc)
		require.NoError(t, err)
		assert.NotEmpty(t, created.Revision)
		assert.False(t, created.CreatedAt.IsZero())

		got, err := s.GetBoard(ctx, "alice", "board_1")
		require.NoError(t, err)
		assert.Equal(t, "Plan", got.Name)
		assert.Equal(t, created.Revision, got.Revision)

		data, err := s.LoadDocument(ctx, "alice", "board_1")
		require.NoError(t, err)
		assert.JSONEq(t, string(doc), string(data))
	})

	t.Run("scoped to owner", func(t *testing.T) {
		s := open(t)
		_, err := s.CreateBoard(ctx, store.Board{ID: "board_1", OwnerID: "alice", Name: "Plan"}, doc)
		require.NoError(t, err)

		_, err = s.GetBoard(ctx, "bob", "board_1")
		assert.True(t, errors.Is(err, store.ErrNotFound))
		_, err = s.LoadDocument(ctx, "bob", "board_1")
		assert.True(t, errors.Is(err, store.ErrNotFound))
		assert.True(t, errors.Is(s.SaveDocument(ctx, "bob", "board_1", doc), store.ErrNotFound))
		assert.True(t, errors.Is(s.DeleteBoard(ctx, "bob", "board_1"), store.ErrNotFound))

		boards, err := s.ListBoards(ctx, "bob")
		require.NoError(t, err)
		assert.Empty(t, boards)
	})

	t.Run("save bumps revision", func(t *testing.T) {
		s := open(t)
		created, err := s.CreateBoard(ctx, store.Board{ID: "board_1", OwnerID: "alice", Name: "Plan"}, doc)
		require.NoError(t, err)

		next := []byte(`{"layers":{"a":{"type":"rectangle","x":0,"y":0,"width":1,"height":1,"fill":{"r":0,"g":0,"b":0}}},"layerIds":["a"]}`)
		require.NoError(t, s.SaveDocument(ctx, "alice", "board_1", next))

		got, err := s.GetBoard(ctx, "alice", "board_1")
		require.NoError(t, err)
		assert.NotEqual(t, created.Revision, got.Revision)

		data, err := s.LoadDocument(ctx, "alice", "board_1")
		require.NoError(t, err)
		assert.JSONEq(t, string(next), string(data))

		assert.True(t, errors.Is(s.SaveDocument(ctx, "alice", "missing", next), store.ErrNotFound))
	})

	t.Run("list and delete", func(t *testing.T) {
		s := open(t)
		for _, id := range []string{"board_1", "board_2"} {
			_, err := s.CreateBoard(ctx, store.Board{ID: id, OwnerID: "alice", Name: id}, doc)
			require.NoError(t, err)
		}
		_, err := s.CreateBoard(ctx, store.Board{ID: "board_3", OwnerID: "bob", Name: "other"}, doc)
		require.NoError(t, err)

		boards, err := s.ListBoards(ctx, "alice")
		require.NoError(t, err)
		var ids []string
		for _, b := range boards {
			ids = append(ids, b.ID)
		}
		assert.ElementsMatch(t, []string{"board_1", "board_2"}, ids)

		require.NoError(t, s.DeleteBoard(ctx, "alice", "board_1"))
		_, err = s.GetBoard(ctx, "alice", "board_1")
		assert.True(t, errors.Is(err, store.ErrNotFound))
		assert.True(t, errors.Is(s.DeleteBoard(ctx, "alice", "board_1"), store.ErrNotFound))
	})
}
