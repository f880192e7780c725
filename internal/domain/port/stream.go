package port

import "cell-guard/internal/domain/entity"

// StreamHandle открытый видеопоток
type StreamHandle interface {
	// Read читает очередной кадр, entity.ErrNoFrame если кадра нет
	Read() (*entity.Frame, error)

	// Release освобождает поток, повторный вызов безопасен
	Release() error
}

// StreamSource открывает видеопотоки по URI
type StreamSource interface {
	// Open открывает поток, entity.ErrStreamUnavailable если он недоступен
	Open(uri string) (StreamHandle, error)
}
