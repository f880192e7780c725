// Package display публикует кадры цикла по HTTP в виде MJPEG-потоков
// и отдаёт строку состояния в JSON.
package display

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/jpeg"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/hybridgroup/mjpeg"
	"github.com/rs/zerolog/log"

	"cell-guard/internal/domain/entity"
	"cell-guard/internal/domain/port"
)

// DefaultQuality качество JPEG по умолчанию
const DefaultQuality = 75

// Server поверхность отображения для браузера оператора
type Server struct {
	addr    string
	quality int
	streams map[entity.View]*mjpeg.Stream

	mu        sync.RWMutex
	snapshots map[entity.View][]byte
	status    entity.Status
}

// NewServer создаёт сервер с потоками для обоих видов.
func NewServer(addr string, quality int) *Server {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Server{
		addr:    addr,
		quality: quality,
		streams: map[entity.View]*mjpeg.Stream{
			entity.ViewAuthorization: mjpeg.NewStream(),
			entity.ViewMonitoring:    mjpeg.NewStream(),
		},
		snapshots: make(map[entity.View][]byte),
	}
}

// PublishFrame кодирует кадр в JPEG и отдаёт его подписчикам потока.
func (s *Server) PublishFrame(view entity.View, frame *entity.Frame) {
	stream, ok := s.streams[view]
	if !ok || frame == nil || frame.Empty() {
		return
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, toRGBA(frame), &jpeg.Options{Quality: s.quality}); err != nil {
		log.Warn().Err(err).Str("view", string(view)).Msg("failed to encode frame")
		return
	}
	data := buf.Bytes()

	s.mu.Lock()
	s.snapshots[view] = data
	s.mu.Unlock()

	stream.UpdateJPEG(data)
}

// PublishStatus запоминает строку состояния.
func (s *Server) PublishStatus(status entity.Status) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// Handler маршруты сервера.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/stream/{view}", s.handleStream).Methods(http.MethodGet)
	r.HandleFunc("/snapshot/{view}", s.handleSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	return r
}

// Run слушает addr до отмены контекста.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("display server shutdown")
		}
	}()

	log.Info().Str("addr", s.addr).Msg("display server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	stream, ok := s.streams[entity.View(mux.Vars(r)["view"])]
	if !ok {
		http.NotFound(w, r)
		return
	}
	stream.ServeHTTP(w, r)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	data, ok := s.snapshots[entity.View(mux.Vars(r)["view"])]
	s.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	_, _ = w.Write(data)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	status := s.status
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Warn().Err(err).Msg("failed to write status")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// toRGBA копирует кадр в *image.RGBA.
func toRGBA(frame *entity.Frame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	r, b := 0, 2
	if frame.Order == entity.OrderBGR {
		r, b = 2, 0
	}
	for y := 0; y < frame.Height; y++ {
		src := frame.Data[y*frame.Stride:]
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < frame.Width; x++ {
			s := src[x*entity.BytesPerPixel:]
			d := dst[x*4:]
			d[0], d[1], d[2], d[3] = s[r], s[1], s[b], 0xFF
		}
	}
	return img
}

// Проверка реализации интерфейса
var _ port.DisplaySink = (*Server)(nil)
