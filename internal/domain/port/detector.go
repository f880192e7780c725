package port

import (
	"context"

	"cell-guard/internal/domain/entity"
)

// Inference блокирующий бэкенд детектора объектов
type Inference interface {
	// Detect прогоняет RGB-кадр через модель
	Detect(ctx context.Context, frame *entity.Frame, timestampMs int64) (*entity.DetectionResult, error)
}

// ObjectDetector асинхронный детектор: отправка не блокирует цикл кадров
type ObjectDetector interface {
	// SubmitAsync ставит кадр в очередь на инференс и сразу возвращает управление
	SubmitAsync(frame *entity.Frame, timestampMs int64)

	// Drain забирает все накопленные результаты и очищает очередь
	Drain() []*entity.DetectionResult

	// FPS возвращает последнюю оценку скорости инференса
	FPS() float64

	// Close останавливает воркер, поздние результаты отбрасываются
	Close()
}
