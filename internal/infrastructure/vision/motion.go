package vision

import (
	"errors"
	"image"
	"sort"

	"cell-guard/internal/domain/entity"
)

// ErrFrameQuality кадр непригоден для анализа (камера закрыта или засвечена)
var ErrFrameQuality = errors.New("frame quality gate failed")

// MotionConfig настройки детектора движения
type MotionConfig struct {
	Label                string  // метка найденных областей
	MinAreaRatio         float64 // минимальная площадь области от площади кадра
	MinAspectRatio       float64
	MaxAspectRatio       float64
	DiffThreshold        float32 // порог яркости разницы кадров
	MaxUnderexposedRatio float64
	MaxOverexposedRatio  float64
	MaxResults           int
}

// DefaultMotionConfig значения по умолчанию. Движущиеся области считаются человеком.
func DefaultMotionConfig() MotionConfig {
	return MotionConfig{
		Label:                entity.PersonLabel,
		MinAreaRatio:         0.01,
		MinAspectRatio:       0.1,
		MaxAspectRatio:       10.0,
		DiffThreshold:        25,
		MaxUnderexposedRatio: 0.95,
		MaxOverexposedRatio:  0.9,
		MaxResults:           5,
	}
}

func (c MotionConfig) withDefaults() MotionConfig {
	def := DefaultMotionConfig()
	if c.Label == "" {
		c.Label = def.Label
	}
	if c.MinAreaRatio <= 0 {
		c.MinAreaRatio = def.MinAreaRatio
	}
	if c.MinAspectRatio <= 0 {
		c.MinAspectRatio = def.MinAspectRatio
	}
	if c.MaxAspectRatio <= 0 {
		c.MaxAspectRatio = def.MaxAspectRatio
	}
	if c.DiffThreshold <= 0 {
		c.DiffThreshold = def.DiffThreshold
	}
	if c.MaxUnderexposedRatio <= 0 {
		c.MaxUnderexposedRatio = def.MaxUnderexposedRatio
	}
	if c.MaxOverexposedRatio <= 0 {
		c.MaxOverexposedRatio = def.MaxOverexposedRatio
	}
	if c.MaxResults <= 0 {
		c.MaxResults = def.MaxResults
	}
	return c
}

// regionsToDetections отбрасывает мелкие и вытянутые области и возвращает
// не больше MaxResults самых крупных. Оценка растёт с площадью и равна 1
// начиная с десятикратной минимальной.
func regionsToDetections(rects []image.Rectangle, width, height int, cfg MotionConfig) []entity.Detection {
	total := width * height
	if total <= 0 {
		return nil
	}
	minArea := int(float64(total) * cfg.MinAreaRatio)

	out := make([]entity.Detection, 0, len(rects))
	for _, rect := range rects {
		area := rect.Dx() * rect.Dy()
		if area < minArea || rect.Dy() == 0 {
			continue
		}
		aspect := float64(rect.Dx()) / float64(rect.Dy())
		if aspect < cfg.MinAspectRatio || aspect > cfg.MaxAspectRatio {
			continue
		}

		score := float64(area) / float64(total) / cfg.MinAreaRatio / 10
		if score > 1 {
			score = 1
		}
		out = append(out, entity.Detection{
			Label: cfg.Label,
			Score: score,
			Box: entity.BoundingBox{
				X:      rect.Min.X,
				Y:      rect.Min.Y,
				Width:  rect.Dx(),
				Height: rect.Dy(),
			},
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Box.Width*out[i].Box.Height > out[j].Box.Width*out[j].Box.Height
	})
	if len(out) > cfg.MaxResults {
		out = out[:cfg.MaxResults]
	}
	return out
}
