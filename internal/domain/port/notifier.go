package port

import "context"

// Notifier рассылает оператору заметные события
type Notifier interface {
	Notify(ctx context.Context, text string)
}
