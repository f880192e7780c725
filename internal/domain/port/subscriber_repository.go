package port

import (
	"context"

	"cell-guard/internal/domain/entity"
)

// SubscriberRepository интерфейс хранилища подписчиков
type SubscriberRepository interface {
	// Get возвращает подписчика по ID, создаёт нового если не найден
	Get(ctx context.Context, userID, chatID int64) (*entity.Subscriber, error)

	// Save сохраняет подписчика
	Save(ctx context.Context, subscriber *entity.Subscriber) error

	// UpdateState обновляет состояние подписки
	UpdateState(ctx context.Context, userID int64, state entity.SubscriberState) error

	// ListSubscribed возвращает подписчиков с включёнными уведомлениями
	ListSubscribed(ctx context.Context) ([]*entity.Subscriber, error)
}
