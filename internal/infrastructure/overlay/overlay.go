// Package overlay рисует разметку поверх кадров: рамки, подписи, FPS и заглушки ошибок.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"cell-guard/internal/domain/entity"
	"cell-guard/internal/domain/port"
)

var (
	Black = color.RGBA{A: 255}
	Green = color.RGBA{G: 255, A: 255}
	Red   = color.RGBA{R: 255, A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Gray  = color.RGBA{R: 64, G: 64, B: 64, A: 255}

	labelBackground = color.RGBA{A: 180}
)

// DetectionFPSAnchor точка вывода FPS на кадре мониторинга
var DetectionFPSAnchor = image.Pt(24, 50)

// FaceFPSAnchor точка вывода FPS на кадре авторизации: 150 px от правого края.
func FaceFPSAnchor(frame *entity.Frame) image.Point {
	return image.Pt(frame.Width-150, 30)
}

const (
	boxThickness = 2
	glyphWidth   = 7
	glyphHeight  = 13
)

// Renderer рисует на кадрах. Без состояния, безопасен для параллельного вызова
// на разных кадрах.
type Renderer struct {
	face font.Face
}

// NewRenderer создаёт отрисовщик со встроенным растровым шрифтом.
func NewRenderer() *Renderer {
	return &Renderer{face: basicfont.Face7x13}
}

// Text выводит строку, at задаёт левый край базовой линии.
func (r *Renderer) Text(dst draw.Image, at image.Point, text string, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: r.face,
		Dot:  fixed.P(at.X, at.Y),
	}
	d.DrawString(text)
}

// FPS выводит счётчик кадров в секунду.
func (r *Renderer) FPS(dst draw.Image, at image.Point, fps float64, c color.Color) {
	r.Text(dst, at, fmt.Sprintf("FPS = %.1f", fps), c)
}

// Box рисует рамку толщиной boxThickness.
func (r *Renderer) Box(dst draw.Image, box entity.BoundingBox, c color.Color) {
	x, y, w, h := box.X, box.Y, box.Width, box.Height
	for t := 0; t < boxThickness; t++ {
		for i := x; i < x+w; i++ {
			dst.Set(i, y+t, c)
			dst.Set(i, y+h-1-t, c)
		}
		for j := y; j < y+h; j++ {
			dst.Set(x+t, j, c)
			dst.Set(x+w-1-t, j, c)
		}
	}
}

// Label выводит подпись на полупрозрачной подложке над точкой (x, y).
func (r *Renderer) Label(dst draw.Image, x, y int, text string, c color.Color) {
	if y < glyphHeight {
		y = glyphHeight
	}
	if x < 0 {
		x = 0
	}
	bg := image.Rect(x-2, y-glyphHeight+1, x+len(text)*glyphWidth+2, y+3)
	draw.Draw(dst, bg.Intersect(dst.Bounds()), image.NewUniform(labelBackground), image.Point{}, draw.Over)
	r.Text(dst, image.Pt(x, y), text, c)
}

// DetectionFPS выводит FPS детектора чёрным в левом верхнем углу.
func (r *Renderer) DetectionFPS(frame *entity.Frame, fps float64) {
	r.FPS(frame, DetectionFPSAnchor, fps, Black)
}

// FaceFPS выводит FPS зелёным у правого края.
func (r *Renderer) FaceFPS(frame *entity.Frame, fps float64) {
	r.FPS(frame, FaceFPSAnchor(frame), fps, Green)
}

// Detections рисует рамки и подписи «метка (score)» для результата детектора.
func (r *Renderer) Detections(dst *entity.Frame, result *entity.DetectionResult) {
	if result == nil {
		return
	}
	for _, d := range result.Detections {
		c := Red
		if strings.EqualFold(d.Label, entity.PersonLabel) {
			c = Green
		}
		r.Box(dst, d.Box, c)
		r.Label(dst, d.Box.X+boxThickness, d.Box.Y-4, fmt.Sprintf("%s (%.2f)", d.Label, d.Score), c)
	}
}

// Faces рисует рамки лиц: зелёные для известных, красные для остальных.
func (r *Renderer) Faces(dst *entity.Frame, faces []entity.FaceMatch) {
	for _, f := range faces {
		c := Red
		name := entity.UnknownIdentity
		if f.Known {
			c = Green
			name = f.Identity
		}
		r.Box(dst, f.Box, c)
		r.Label(dst, f.Box.X, f.Box.Y-4, name, c)
	}
}

// Placeholder создаёт серый кадр с сообщением об ошибке по центру.
func (r *Renderer) Placeholder(width, height int, message string) *entity.Frame {
	f := entity.NewFrame(width, height, entity.OrderBGR)
	draw.Draw(f, f.Bounds(), image.NewUniform(Gray), image.Point{}, draw.Src)
	x := (width - len(message)*glyphWidth) / 2
	r.Text(f, image.Pt(x, height/2), message, White)
	return f
}

// Проверка реализации интерфейса
var _ port.Overlay = (*Renderer)(nil)
