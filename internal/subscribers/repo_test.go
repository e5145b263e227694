//go:build integration_test || all_tests

package subscribers

import (
	"context"
	"testing"

	"github.com/2beens/realestate/internal/testinternals"
	"github.com/2beens/realestate/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepo_Subscribers(t *testing.T) {
	ctx := context.Background()
	pg, err := testinternals.StartPostgres(ctx)
	require.NoError(t, err)
	defer pg.Close()

	repo := NewRepo(pg.Pool)

	exists, err := repo.Exists(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	first := &Subscriber{Email: "a@example.com"}
	require.NoError(t, repo.Add(ctx, first))
	assert.NotZero(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())
	require.NoError(t, repo.Add(ctx, &Subscriber{Email: "b@example.com"}))

	err = repo.Add(ctx, &Subscriber{Email: "a@example.com"})
	require.Error(t, err)
	assert.True(t, pkg.IsUniqueViolationError(err))

	exists, err = repo.Exists(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b@example.com", list[0].Email)
}
