package container

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"cell-guard/config"
	app "cell-guard/internal/application"
	"cell-guard/internal/domain/port"
	"cell-guard/internal/infrastructure/controller"
	"cell-guard/internal/infrastructure/detection"
	"cell-guard/internal/infrastructure/display"
	"cell-guard/internal/infrastructure/faceauth"
	"cell-guard/internal/infrastructure/overlay"
	"cell-guard/internal/infrastructure/storage"
	"cell-guard/internal/infrastructure/stream"
	"cell-guard/internal/infrastructure/vision"
)

type Container struct {
	SubscriberService *app.SubscriberService
	Pipeline          *app.Pipeline
	Display           *display.Server
	Link              *controller.Link // nil, если контроллер не настроен

	closers []func() error
}

// Deps внешние адаптеры. Пустые поля собираются из конфигурации.
type Deps struct {
	Source    port.StreamSource
	Inference port.Inference
	Transport controller.Transport
}

func New(cfg *config.Config, deps Deps) (*Container, error) {
	c := &Container{}
	renderer := overlay.NewRenderer()

	if deps.Source == nil {
		deps.Source = stream.NewCapture(cfg.CaptureWidth, cfg.CaptureHeight)
	}
	if deps.Inference == nil {
		backend, err := c.inference(cfg)
		if err != nil {
			return nil, err
		}
		deps.Inference = backend
	}
	detector := detection.NewAsyncDetector(deps.Inference, detection.AsyncOptions{
		QueueSize: cfg.DetectorQueueSize,
	})
	c.closers = append(c.closers, func() error {
		detector.Close()
		return nil
	})

	authenticator := faceauth.New(faceauth.Config{
		Endpoint:            cfg.FaceURL,
		SimilarityThreshold: cfg.FaceSimilarityThreshold,
		AllowedIdentities:   cfg.AuthorizedIdentities,
		Timeout:             cfg.FaceTimeout,
	}, renderer)

	c.Display = display.NewServer(cfg.HTTPAddr, cfg.JPEGQuality)

	// actuator остаётся nil-интерфейсом, если контроллер не настроен
	var actuator port.Actuator
	if deps.Transport == nil && cfg.ActuatorAddress != "" {
		deps.Transport = controller.NewModbusTransport(cfg.ActuatorAddress, cfg.ActuatorTimeout)
	}
	if deps.Transport != nil {
		c.Link = controller.NewLink(deps.Transport, cfg.ActuatorAddress)
		if err := c.Link.Connect(); err != nil {
			log.Warn().Err(err).Msg("actuator is offline, reconnecting on next command")
		}
		c.closers = append(c.closers, c.Link.Disconnect)
		actuator = c.Link
	}

	c.SubscriberService = app.NewSubscriberService(storage.NewMemorySubscriberRepository())

	pipelineCfg := app.PipelineConfig{
		TickInterval:       cfg.TickInterval,
		FaceStreamURI:      cfg.FaceStreamURI,
		DetectionStreamURI: cfg.DetectionStreamURI,
		ReconnectInterval:  cfg.ReconnectInterval,
		RetryInterval:      cfg.RetryInterval,
		Width:              cfg.CaptureWidth,
		Height:             cfg.CaptureHeight,
		Session: app.SessionPolicy{
			DisplayDelay:     cfg.AuthDisplayDelay,
			AbsenceThreshold: cfg.AbsenceThreshold,
			AbsenceAction:    cfg.AbsenceAction,
		},
	}
	c.Pipeline = app.NewPipeline(pipelineCfg, app.PipelineDeps{
		Source:        deps.Source,
		Detector:      detector,
		Authenticator: authenticator,
		Actuator:      actuator,
		Display:       c.Display,
		Overlay:       renderer,
	})

	return c, nil
}

func (c *Container) inference(cfg *config.Config) (port.Inference, error) {
	switch cfg.DetectorBackend {
	case "", "http":
		return detection.NewHTTPDetector(detection.HTTPDetectorConfig{
			Endpoint:       cfg.DetectorURL,
			MaxResults:     cfg.DetectorMaxResults,
			ScoreThreshold: cfg.DetectorScoreThreshold,
			Timeout:        cfg.DetectorTimeout,
		}), nil
	case "motion":
		motion := vision.NewMotionDetector(vision.MotionConfig{MaxResults: cfg.DetectorMaxResults})
		c.closers = append(c.closers, motion.Close)
		return motion, nil
	}
	return nil, fmt.Errorf("unknown detector backend %q", cfg.DetectorBackend)
}

// Close освобождает ресурсы адаптеров. Цикл кадров к этому моменту должен быть остановлен.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			log.Warn().Err(err).Msg("failed to close resource")
		}
	}
}
