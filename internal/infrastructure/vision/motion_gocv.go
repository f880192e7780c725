//go:build gocv
// +build gocv

package vision

import (
	"context"
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"

	"cell-guard/internal/domain/entity"
	"cell-guard/internal/domain/port"
)

// MotionDetector локальный бэкенд без сервиса детекции: ищет области,
// изменившиеся с прошлого кадра. Вызывается из одного воркера.
type MotionDetector struct {
	cfg  MotionConfig
	prev gocv.Mat
}

// NewMotionDetector создаёт детектор движения.
func NewMotionDetector(cfg MotionConfig) *MotionDetector {
	return &MotionDetector{cfg: cfg.withDefaults(), prev: gocv.NewMat()}
}

// Detect сравнивает кадр с предыдущим. Первый кадр только запоминается.
func (d *MotionDetector) Detect(ctx context.Context, frame *entity.Frame, timestampMs int64) (*entity.DetectionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if frame.Empty() {
		return nil, entity.ErrNoFrame
	}

	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data[:frame.Stride*frame.Height])
	if err != nil {
		return nil, fmt.Errorf("frame to mat: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	code := gocv.ColorRGBToGray
	if frame.Order == entity.OrderBGR {
		code = gocv.ColorBGRToGray
	}
	gocv.CvtColor(mat, &gray, code)
	gocv.GaussianBlur(gray, &gray, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	if err := d.checkExposure(gray); err != nil {
		gray.Close()
		return nil, err
	}

	result := &entity.DetectionResult{TimestampMs: timestampMs, ReceivedAt: time.Now()}
	if d.prev.Empty() || d.prev.Cols() != gray.Cols() || d.prev.Rows() != gray.Rows() {
		d.swap(gray)
		return result, nil
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(d.prev, gray, &diff)
	d.swap(gray)

	// Усиливаем отличия порогом.
	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, d.cfg.DiffThreshold, 255, gocv.ThresholdBinary)

	contours := gocv.FindContours(thresh, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	rects := make([]image.Rectangle, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		rects = append(rects, gocv.BoundingRect(contours.At(i)))
	}
	result.Detections = regionsToDetections(rects, frame.Width, frame.Height, d.cfg)
	return result, nil
}

func (d *MotionDetector) swap(gray gocv.Mat) {
	d.prev.Close()
	d.prev = gray
}

func (d *MotionDetector) checkExposure(gray gocv.Mat) error {
	dark := gocv.NewMat()
	defer dark.Close()
	gocv.Threshold(gray, &dark, 20, 255, gocv.ThresholdBinaryInv)
	if ratio := ratioOfMask(dark); ratio > d.cfg.MaxUnderexposedRatio {
		return fmt.Errorf("%w: underexposed frame (ratio=%.4f)", ErrFrameQuality, ratio)
	}

	bright := gocv.NewMat()
	defer bright.Close()
	gocv.Threshold(gray, &bright, 250, 255, gocv.ThresholdBinary)
	if ratio := ratioOfMask(bright); ratio > d.cfg.MaxOverexposedRatio {
		return fmt.Errorf("%w: overexposed frame (ratio=%.4f)", ErrFrameQuality, ratio)
	}
	return nil
}

// Close освобождает сохранённый кадр.
func (d *MotionDetector) Close() error {
	return d.prev.Close()
}

func ratioOfMask(mask gocv.Mat) float64 {
	total := mask.Cols() * mask.Rows()
	if total <= 0 {
		return 0
	}
	return float64(gocv.CountNonZero(mask)) / float64(total)
}

// Проверка реализации интерфейса
var _ port.Inference = (*MotionDetector)(nil)
