//go:build gocv
// +build gocv

package stream

import (
	"fmt"
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"cell-guard/internal/domain/entity"
	"cell-guard/internal/domain/port"
)

// Capture открывает потоки через OpenCV VideoCapture.
type Capture struct {
	Width  int
	Height int
}

// NewCapture создаёт источник с размером кадра width×height.
func NewCapture(width, height int) *Capture {
	return &Capture{Width: width, Height: height}
}

// Open открывает RTSP-поток, файл или номер устройства.
func (c *Capture) Open(uri string) (port.StreamHandle, error) {
	vc, err := gocv.OpenVideoCapture(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", entity.ErrStreamUnavailable, uri, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: %s", entity.ErrStreamUnavailable, uri)
	}

	// Минимальный буфер, чтобы не отставать от живого потока.
	vc.Set(gocv.VideoCaptureFrameWidth, float64(c.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(c.Height))
	vc.Set(gocv.VideoCaptureBufferSize, 1)

	return &captureHandle{vc: vc, mat: gocv.NewMat(), width: c.Width, height: c.Height}, nil
}

type captureHandle struct {
	mu       sync.Mutex
	vc       *gocv.VideoCapture
	mat      gocv.Mat
	width    int
	height   int
	released bool
}

// Read читает кадр и приводит его к размеру источника.
func (h *captureHandle) Read() (*entity.Frame, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil, entity.ErrStreamUnavailable
	}

	if ok := h.vc.Read(&h.mat); !ok || h.mat.Empty() {
		return nil, entity.ErrNoFrame
	}

	src := h.mat
	if src.Cols() != h.width || src.Rows() != h.height {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(src, &resized, image.Pt(h.width, h.height), 0, 0, gocv.InterpolationLinear)
		src = resized
	}
	if src.Channels() != entity.BytesPerPixel {
		return nil, fmt.Errorf("%w: unexpected %d channels", entity.ErrNoFrame, src.Channels())
	}

	data := src.ToBytes()
	return &entity.Frame{
		Width:     src.Cols(),
		Height:    src.Rows(),
		Stride:    src.Cols() * entity.BytesPerPixel,
		Order:     entity.OrderBGR,
		Data:      data,
		Timestamp: time.Now(),
	}, nil
}

// Release закрывает поток.
func (h *captureHandle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil
	}
	h.released = true
	h.mat.Close()
	return h.vc.Close()
}

// Проверка реализации интерфейса
var _ port.StreamSource = (*Capture)(nil)
