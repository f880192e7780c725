package app

import (
	"context"

	"cell-guard/internal/domain/entity"
	"cell-guard/internal/domain/port"
)

type SubscriberService struct {
	repo port.SubscriberRepository
}

func NewSubscriberService(repo port.SubscriberRepository) *SubscriberService {
	return &SubscriberService{repo: repo}
}

func (s *SubscriberService) Get(ctx context.Context, userID, chatID int64) (*entity.Subscriber, error) {
	return s.repo.Get(ctx, userID, chatID)
}

func (s *SubscriberService) SetState(ctx context.Context, userID, chatID int64, state entity.SubscriberState) (*entity.Subscriber, error) {
	subscriber, err := s.repo.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	subscriber.SetState(state)
	if err := s.repo.Save(ctx, subscriber); err != nil {
		return nil, err
	}

	return subscriber, nil
}

func (s *SubscriberService) Subscribe(ctx context.Context, userID, chatID int64) (*entity.Subscriber, error) {
	return s.SetState(ctx, userID, chatID, entity.StateSubscribed)
}

func (s *SubscriberService) Unsubscribe(ctx context.Context, userID, chatID int64) (*entity.Subscriber, error) {
	return s.SetState(ctx, userID, chatID, entity.StateMuted)
}

// ChatIDs возвращает чаты подписчиков для рассылки.
func (s *SubscriberService) ChatIDs(ctx context.Context) ([]int64, error) {
	subscribers, err := s.repo.ListSubscribed(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(subscribers))
	for _, sub := range subscribers {
		ids = append(ids, sub.ChatID)
	}
	return ids, nil
}
