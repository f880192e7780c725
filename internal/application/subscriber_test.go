package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"cell-guard/internal/domain/entity"
	"cell-guard/internal/infrastructure/storage"
)

func TestSubscriberService_SubscribeAndUnsubscribe(t *testing.T) {
	repo := storage.NewMemorySubscriberRepository()
	svc := NewSubscriberService(repo)
	ctx := context.Background()

	sub, err := svc.Subscribe(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateSubscribed, sub.State)

	sub, err = svc.Unsubscribe(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMuted, sub.State)
}

func TestSubscriberService_ChatIDs(t *testing.T) {
	repo := storage.NewMemorySubscriberRepository()
	svc := NewSubscriberService(repo)
	ctx := context.Background()

	_, err := svc.Subscribe(ctx, 2, 20)
	require.NoError(t, err)
	_, err = svc.Subscribe(ctx, 1, 10)
	require.NoError(t, err)
	_, err = svc.Get(ctx, 3, 30)
	require.NoError(t, err)

	ids, err := svc.ChatIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{10, 20}, ids)
}
