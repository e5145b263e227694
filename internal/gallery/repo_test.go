//go:build integration_test || all_tests

package gallery

import (
	"context"
	"testing"

	"github.com/2beens/realestate/internal/testinternals"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepo_Items(t *testing.T) {
	ctx := context.Background()
	pg, err := testinternals.StartPostgres(ctx)
	require.NoError(t, err)
	defer pg.Close()

	repo := NewRepo(pg.Pool)

	villa := &Item{Title: "Villa", Category: "villa", ImageURL: "https://img.example.com/v.jpg", Published: true}
	flat := &Item{Title: "Flat", Category: "apartment", ImageURL: "https://img.example.com/f.jpg", Published: true}
	draft := &Item{Title: "Draft", Category: "villa", ImageURL: "https://img.example.com/d.jpg"}
	for _, item := range []*Item{villa, flat, draft} {
		require.NoError(t, repo.Add(ctx, item))
		require.NotZero(t, item.ID)
	}

	items, err := repo.ListPublished(ctx, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Flat", items[0].Title)

	items, err = repo.ListPublished(ctx, "villa", 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, villa.ID, items[0].ID)

	count, err := repo.CountPublished(ctx, "villa")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	draft.Published = true
	draft.Description = "now visible"
	require.NoError(t, repo.Update(ctx, draft))
	got, err := repo.Get(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "now visible", got.Description)
	assert.True(t, got.Published)

	assert.ErrorIs(t, repo.Update(ctx, &Item{ID: 12345}), ErrItemNotFound)

	require.NoError(t, repo.Delete(ctx, villa.ID))
	_, err = repo.Get(ctx, villa.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)

	all, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
