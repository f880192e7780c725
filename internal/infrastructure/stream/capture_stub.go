//go:build !gocv
// +build !gocv

package stream

import (
	"fmt"

	"cell-guard/internal/domain/entity"
	"cell-guard/internal/domain/port"
)

// Capture источник-заглушка (без OpenCV).
type Capture struct {
	Width  int
	Height int
}

// NewCapture создаёт источник-заглушку.
func NewCapture(width, height int) *Capture {
	return &Capture{Width: width, Height: height}
}

// Open возвращает ошибку, если сборка без тега gocv.
func (c *Capture) Open(uri string) (port.StreamHandle, error) {
	return nil, fmt.Errorf("%w: %s: gocv build tag is not enabled", entity.ErrStreamUnavailable, uri)
}

// Проверка реализации интерфейса
var _ port.StreamSource = (*Capture)(nil)
