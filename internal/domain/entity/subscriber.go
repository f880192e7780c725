package entity

// SubscriberState состояние подписчика бота
type SubscriberState string

const (
	StateMuted      SubscriberState = "muted"      // уведомления выключены
	StateSubscribed SubscriberState = "subscribed" // получает уведомления
)

// Subscriber пользователь бота, которому уходят уведомления
type Subscriber struct {
	ID     int64           // Telegram User ID
	ChatID int64           // Telegram Chat ID
	State  SubscriberState // Текущее состояние подписки
}

// NewSubscriber создаёт подписчика с выключенными уведомлениями
func NewSubscriber(userID, chatID int64) *Subscriber {
	return &Subscriber{
		ID:     userID,
		ChatID: chatID,
		State:  StateMuted,
	}
}

// SetState обновляет состояние подписки
func (s *Subscriber) SetState(state SubscriberState) {
	s.State = state
}

// Subscribed сообщает, что подписчик получает уведомления
func (s *Subscriber) Subscribed() bool {
	return s.State == StateSubscribed
}
