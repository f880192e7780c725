package entity

import (
	"strings"
	"time"
)

// PersonLabel метка класса человека у детектора
const PersonLabel = "person"

// BoundingBox прямоугольник в координатах кадра
type BoundingBox struct {
	X      int // координата X левого верхнего угла
	Y      int // координата Y левого верхнего угла
	Width  int // ширина в пикселях
	Height int // высота в пикселях
}

// Center возвращает координаты центра прямоугольника
func (b BoundingBox) Center() (x, y int) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Detection один найденный объект
type Detection struct {
	Label string
	Score float64
	Box   BoundingBox
}

// DetectionResult результат одного прогона детектора.
type DetectionResult struct {
	TimestampMs int64 // метка кадра, отправленного на инференс
	Detections  []Detection
	ReceivedAt  time.Time
}

// HasLabel сообщает, есть ли среди объектов метка label (без учёта регистра).
func (r *DetectionResult) HasLabel(label string) bool {
	if r == nil {
		return false
	}
	for _, d := range r.Detections {
		if strings.EqualFold(d.Label, label) {
			return true
		}
	}
	return false
}

// PersonPresent сообщает, найден ли в кадре человек.
func (r *DetectionResult) PersonPresent() bool {
	return r.HasLabel(PersonLabel)
}
