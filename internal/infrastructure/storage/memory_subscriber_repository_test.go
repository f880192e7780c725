package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"cell-guard/internal/domain/entity"
)

func TestMemorySubscriberRepository_GetCreates(t *testing.T) {
	repo := NewMemorySubscriberRepository()
	ctx := context.Background()

	s, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMuted, s.State)

	again, err := repo.Get(ctx, 1, 99)
	require.NoError(t, err)
	require.Same(t, s, again)
}

func TestMemorySubscriberRepository_ListSubscribed(t *testing.T) {
	repo := NewMemorySubscriberRepository()
	ctx := context.Background()

	for _, id := range []int64{3, 1, 2} {
		_, err := repo.Get(ctx, id, id*10)
		require.NoError(t, err)
	}
	require.NoError(t, repo.UpdateState(ctx, 3, entity.StateSubscribed))
	require.NoError(t, repo.UpdateState(ctx, 1, entity.StateSubscribed))
	require.NoError(t, repo.UpdateState(ctx, 42, entity.StateSubscribed))

	list, err := repo.ListSubscribed(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, int64(1), list[0].ID)
	require.Equal(t, int64(30), list[1].ChatID)
}
