package port

import "cell-guard/internal/domain/entity"

// DisplaySink поверхность отображения кадров и строки состояния
type DisplaySink interface {
	// PublishFrame показывает итоговый кадр тика
	PublishFrame(view entity.View, frame *entity.Frame)

	// PublishStatus обновляет строку состояния
	PublishStatus(status entity.Status)
}
