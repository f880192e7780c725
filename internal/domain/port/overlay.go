package port

import "cell-guard/internal/domain/entity"

// Overlay разметка кадров для оператора
type Overlay interface {
	// DetectionFPS выводит FPS детектора на кадре мониторинга
	DetectionFPS(frame *entity.Frame, fps float64)

	// FaceFPS выводит FPS на кадре авторизации
	FaceFPS(frame *entity.Frame, fps float64)

	// Detections рисует рамки и подписи найденных объектов
	Detections(frame *entity.Frame, result *entity.DetectionResult)

	// Placeholder создаёт кадр-заглушку с сообщением об ошибке
	Placeholder(width, height int, message string) *entity.Frame
}
