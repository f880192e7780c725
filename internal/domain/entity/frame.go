package entity

import (
	"image"
	"image/color"
	"time"
)

// ChannelOrder порядок байтов в пикселе
type ChannelOrder string

const (
	OrderBGR ChannelOrder = "BGR" // порядок OpenCV и камеры
	OrderRGB ChannelOrder = "RGB" // порядок, который ждёт детектор
)

// BytesPerPixel количество байтов на пиксель во всех кадрах
const BytesPerPixel = 3

// Frame кадр видеопотока: 3 байта на пиксель, построчно.
type Frame struct {
	Width     int
	Height    int
	Stride    int // байтов в строке
	Order     ChannelOrder
	Data      []byte
	Timestamp time.Time
}

// NewFrame создаёт чёрный кадр заданного размера.
func NewFrame(width, height int, order ChannelOrder) *Frame {
	stride := width * BytesPerPixel
	return &Frame{
		Width:     width,
		Height:    height,
		Stride:    stride,
		Order:     order,
		Data:      make([]byte, stride*height),
		Timestamp: time.Now(),
	}
}

// Clone возвращает глубокую копию кадра.
func (f *Frame) Clone() *Frame {
	data := make([]byte, len(f.Data))
	copy(data, f.Data)
	clone := *f
	clone.Data = data
	return &clone
}

// ToRGB возвращает копию кадра в порядке RGB; исходный кадр не меняется.
func (f *Frame) ToRGB() *Frame {
	out := f.Clone()
	if f.Order == OrderRGB {
		return out
	}
	for y := 0; y < f.Height; y++ {
		row := out.Data[y*f.Stride : y*f.Stride+f.Width*BytesPerPixel]
		for i := 0; i+2 < len(row); i += BytesPerPixel {
			row[i], row[i+2] = row[i+2], row[i]
		}
	}
	out.Order = OrderRGB
	return out
}

// Empty сообщает, что в кадре нет пикселей.
func (f *Frame) Empty() bool {
	return f == nil || f.Width <= 0 || f.Height <= 0 || len(f.Data) < f.Stride*f.Height
}

// ColorModel реализует image.Image.
func (f *Frame) ColorModel() color.Model { return color.RGBAModel }

// Bounds реализует image.Image.
func (f *Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.Width, f.Height) }

// At реализует image.Image с учётом порядка каналов.
func (f *Frame) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(f.Bounds())) {
		return color.RGBA{}
	}
	i := y*f.Stride + x*BytesPerPixel
	p := f.Data[i : i+BytesPerPixel]
	if f.Order == OrderRGB {
		return color.RGBA{R: p[0], G: p[1], B: p[2], A: 255}
	}
	return color.RGBA{R: p[2], G: p[1], B: p[0], A: 255}
}

// Set реализует draw.Image. Альфа смешивается с текущим пикселем.
func (f *Frame) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}.In(f.Bounds())) {
		return
	}
	r, g, b, a := c.RGBA()
	i := y*f.Stride + x*BytesPerPixel
	p := f.Data[i : i+BytesPerPixel]

	if f.Order == OrderBGR {
		p[0], p[2] = p[2], p[0]
	}
	if a == 0xffff {
		p[0], p[1], p[2] = uint8(r>>8), uint8(g>>8), uint8(b>>8)
	} else {
		// c уже premultiplied: dst = src + dst*(1-a)
		inv := 0xffff - a
		p[0] = uint8((r + uint32(p[0])*0x101*inv/0xffff) >> 8)
		p[1] = uint8((g + uint32(p[1])*0x101*inv/0xffff) >> 8)
		p[2] = uint8((b + uint32(p[2])*0x101*inv/0xffff) >> 8)
	}
	if f.Order == OrderBGR {
		p[0], p[2] = p[2], p[0]
	}
}
