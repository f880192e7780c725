//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"

	"cell-guard/internal/domain/entity"
	"cell-guard/internal/domain/port"
)

// ErrGoCVDisabled сборка без тега gocv
var ErrGoCVDisabled = errors.New("gocv build tag is not enabled")

// MotionDetector детектор-заглушка (без OpenCV).
type MotionDetector struct {
	cfg MotionConfig
}

// NewMotionDetector создаёт детектор-заглушку.
func NewMotionDetector(cfg MotionConfig) *MotionDetector {
	return &MotionDetector{cfg: cfg.withDefaults()}
}

// Detect возвращает ошибку, если сборка без тега gocv.
func (d *MotionDetector) Detect(ctx context.Context, frame *entity.Frame, timestampMs int64) (*entity.DetectionResult, error) {
	return nil, ErrGoCVDisabled
}

// Close ничего не делает.
func (d *MotionDetector) Close() error {
	return nil
}

// Проверка реализации интерфейса
var _ port.Inference = (*MotionDetector)(nil)
