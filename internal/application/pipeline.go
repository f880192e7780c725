package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"cell-guard/internal/domain/entity"
	"cell-guard/internal/domain/port"
)

// PipelineConfig настройки цикла кадров
type PipelineConfig struct {
	TickInterval       time.Duration // период тика, не зависит от FPS камеры
	FaceStreamURI      string
	DetectionStreamURI string
	ReconnectInterval  time.Duration // принудительное переоткрытие потока
	RetryInterval      time.Duration // пауза между неудачными попытками открыть поток
	Width              int
	Height             int
	CommandQueueSize   int
	Session            SessionPolicy
}

// DefaultPipelineConfig значения по умолчанию.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		TickInterval:      30 * time.Millisecond,
		ReconnectInterval: 60 * time.Second,
		RetryInterval:     2 * time.Second,
		Width:             640,
		Height:            480,
		CommandQueueSize:  16,
		Session:           DefaultSessionPolicy(),
	}
}

// PipelineDeps адаптеры цикла кадров. Actuator и Notifier могут быть nil.
type PipelineDeps struct {
	Source        port.StreamSource
	Detector      port.ObjectDetector
	Authenticator port.FaceAuthenticator
	Actuator      port.Actuator
	Display       port.DisplaySink
	Overlay       port.Overlay
	Notifier      port.Notifier

	Now          func() time.Time
	NewSessionID func() string
}

// Pipeline цикл кадров: единственный владелец камер, сессии и связи со станком.
type Pipeline struct {
	cfg      PipelineConfig
	cameras  map[entity.View]*Camera
	detector port.ObjectDetector
	auth     port.FaceAuthenticator
	actuator port.Actuator
	display  port.DisplaySink
	overlay  port.Overlay
	notifier port.Notifier

	now          func() time.Time
	newSessionID func() string

	started    time.Time
	lastTs     int64
	session    entity.SessionState
	faceRate   *entity.RateMeter
	status     entity.Status
	running    bool
	readFailed bool

	commands chan entity.OperatorCommand

	mu       sync.RWMutex
	snapshot entity.Status
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string) {}

// NewPipeline создаёт цикл кадров. Камеры открываются лениво на первом тике.
func NewPipeline(cfg PipelineConfig, deps PipelineDeps) *Pipeline {
	def := DefaultPipelineConfig()
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = def.Width, def.Height
	}
	if cfg.CommandQueueSize <= 0 {
		cfg.CommandQueueSize = def.CommandQueueSize
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewSessionID == nil {
		deps.NewSessionID = func() string { return uuid.NewString() }
	}
	if deps.Notifier == nil {
		deps.Notifier = noopNotifier{}
	}

	now := deps.Now()
	p := &Pipeline{
		cfg: cfg,
		cameras: map[entity.View]*Camera{
			entity.ViewAuthorization: NewCamera(entity.ViewAuthorization, cfg.FaceStreamURI, deps.Source, cfg.ReconnectInterval, cfg.RetryInterval),
			entity.ViewMonitoring:    NewCamera(entity.ViewMonitoring, cfg.DetectionStreamURI, deps.Source, cfg.ReconnectInterval, cfg.RetryInterval),
		},
		detector:     deps.Detector,
		auth:         deps.Authenticator,
		actuator:     deps.Actuator,
		display:      deps.Display,
		overlay:      deps.Overlay,
		notifier:     deps.Notifier,
		now:          deps.Now,
		newSessionID: deps.NewSessionID,
		started:      now,
		session:      entity.NewSessionState(),
		faceRate:     entity.NewRateMeter(entity.DefaultRateWindow, now),
		commands:     make(chan entity.OperatorCommand, cfg.CommandQueueSize),
	}
	p.status = entity.Status{Phase: p.session.Phase, Identity: p.session.Identity, UpdatedAt: now}
	p.snapshot = p.status
	return p
}

// SetNotifier подключает рассылку уведомлений. Вызывается до Run.
func (p *Pipeline) SetNotifier(n port.Notifier) {
	if n == nil {
		n = noopNotifier{}
	}
	p.notifier = n
}

// Run крутит тики до отмены контекста, затем останавливает детектор и закрывает камеры.
func (p *Pipeline) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.TickInterval)
	defer ticker.Stop()
	defer p.shutdown(ctx)

	log.Info().Dur("tick", p.cfg.TickInterval).Msg("pipeline started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("pipeline stopped")
			return nil
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

func (p *Pipeline) shutdown(ctx context.Context) {
	p.detector.Close()
	for _, cam := range p.cameras {
		cam.Release()
	}
	for {
		select {
		case cmd := <-p.commands:
			reply(cmd, context.Cause(ctx))
		default:
			return
		}
	}
}

// Tick одна итерация цикла. Ошибки адаптеров поглощаются и попадают в статус.
func (p *Pipeline) Tick(ctx context.Context) {
	now := p.now()
	p.drainCommands(ctx, now)
	p.apply(ctx, Event{Kind: EventTick, Now: now})

	switch {
	case p.session.RedirectPending():
		// показ приветствия, ни одна камера не нужна
		p.cameras[entity.ViewAuthorization].Release()
		p.cameras[entity.ViewMonitoring].Release()
	case p.session.Phase == entity.PhaseMonitoring:
		p.cameras[entity.ViewAuthorization].Release()
		p.monitor(ctx, now)
	default:
		p.cameras[entity.ViewMonitoring].Release()
		p.authorize(ctx, now)
	}

	p.publishStatus(now)
}

func (p *Pipeline) readFrame(view entity.View, now time.Time) (*entity.Frame, bool) {
	frame, err := p.cameras[view].Read(now)
	if err != nil {
		if IsStreamUnavailable(err) {
			log.Debug().Err(err).Str("view", string(view)).Msg("frame read failed")
		} else {
			log.Warn().Err(err).Str("view", string(view)).Msg("frame read failed")
		}
		p.readFailed = true
		p.status.Message = "Camera unavailable"
		p.status.LastError = err.Error()
		p.display.PublishFrame(view, p.overlay.Placeholder(p.cfg.Width, p.cfg.Height, "Camera unavailable"))
		return nil, false
	}
	if p.readFailed {
		p.readFailed = false
		p.status.Message = ""
		p.status.LastError = ""
	}
	return frame, true
}

func (p *Pipeline) monitor(ctx context.Context, now time.Time) {
	frame, ok := p.readFrame(entity.ViewMonitoring, now)
	if !ok {
		return
	}

	p.detector.SubmitAsync(frame.ToRGB(), p.timestamp(now))

	fps := p.detector.FPS()
	p.status.FPS = fps
	p.overlay.DetectionFPS(frame, fps)

	if results := p.detector.Drain(); len(results) > 0 {
		first := results[0]
		p.overlay.Detections(frame, first)
		present := first.PersonPresent()
		p.status.PersonDetected = present
		p.apply(ctx, Event{Kind: EventDetection, Now: now, PersonPresent: present})
	}

	p.display.PublishFrame(entity.ViewMonitoring, frame)
}

func (p *Pipeline) authorize(ctx context.Context, now time.Time) {
	frame, ok := p.readFrame(entity.ViewAuthorization, now)
	if !ok {
		return
	}

	p.faceRate.Observe(now)
	fps := p.faceRate.Value()
	p.status.FPS = fps

	res, err := p.auth.Process(ctx, frame)
	if err != nil {
		log.Warn().Err(err).Msg("face authentication failed")
		p.status.Message = "Face recognition unavailable"
		p.status.LastError = err.Error()
		p.overlay.FaceFPS(frame, fps)
		p.display.PublishFrame(entity.ViewAuthorization, frame)
		return
	}

	out := res.Frame
	if out == nil {
		out = frame
	}
	p.overlay.FaceFPS(out, fps)
	p.display.PublishFrame(entity.ViewAuthorization, out)

	ev := Event{Kind: EventAuthResult, Now: now, Authorized: res.Authorized, Identity: res.Identity}
	if res.Authorized {
		ev.SessionID = p.newSessionID()
	}
	p.apply(ctx, ev)
}

// timestamp миллисекунды от старта цикла, строго возрастают.
func (p *Pipeline) timestamp(now time.Time) int64 {
	ts := now.Sub(p.started).Milliseconds()
	if ts <= p.lastTs {
		ts = p.lastTs + 1
	}
	p.lastTs = ts
	return ts
}

func (p *Pipeline) apply(ctx context.Context, ev Event) {
	prev := p.session.Phase
	next, effects := Transition(p.session, ev, p.cfg.Session)
	p.session = next
	if next.Phase != prev {
		log.Info().
			Str("from", string(prev)).
			Str("to", string(next.Phase)).
			Str("identity", next.Identity).
			Str("session_id", next.SessionID).
			Msg("session phase changed")
	}
	for _, eff := range effects {
		p.perform(ctx, eff, ev.Now)
	}
}

func (p *Pipeline) perform(ctx context.Context, eff Effect, now time.Time) {
	switch eff.Kind {
	case EffectStopAuthenticator:
		p.cameras[entity.ViewAuthorization].Release()
	case EffectEnterMonitoring:
		p.detector.Drain()
		p.status.PersonDetected = false
	case EffectStopMachine:
		err := p.stopMachine()
		if err != nil {
			log.Error().Err(err).Msg("safety stop failed")
		}
		p.apply(ctx, Event{Kind: EventStopResult, Now: now, Err: err})
	case EffectReturnToAuthorization:
		p.cameras[entity.ViewMonitoring].Release()
		p.detector.Drain()
		p.status.PersonDetected = false
	case EffectNotify:
		p.notifier.Notify(ctx, eff.Text)
	case EffectStatus:
		p.status.Message = eff.Text
	}
}

func (p *Pipeline) stopMachine() error {
	if p.actuator == nil {
		return entity.ErrActuatorNotConnected
	}
	if err := p.actuator.Stop(); err != nil {
		return err
	}
	p.running = false
	return nil
}

// Enqueue ставит команду оператора в очередь, не блокирует.
func (p *Pipeline) Enqueue(cmd entity.OperatorCommand) error {
	select {
	case p.commands <- cmd:
		return nil
	default:
		return entity.ErrCommandQueueFull
	}
}

// Do ставит команду в очередь и ждёт её исполнения на границе тика.
func (p *Pipeline) Do(ctx context.Context, kind entity.OperatorCommandKind, speed int) error {
	done := make(chan error, 1)
	if err := p.Enqueue(entity.OperatorCommand{Kind: kind, Speed: speed, Reply: done}); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) drainCommands(ctx context.Context, now time.Time) {
	for {
		select {
		case cmd := <-p.commands:
			err := p.execute(ctx, cmd, now)
			if err != nil {
				log.Warn().Err(err).Str("command", string(cmd.Kind)).Msg("operator command failed")
				p.status.LastError = err.Error()
			} else {
				log.Info().Str("command", string(cmd.Kind)).Msg("operator command done")
			}
			reply(cmd, err)
		default:
			return
		}
	}
}

func (p *Pipeline) execute(ctx context.Context, cmd entity.OperatorCommand, now time.Time) error {
	switch cmd.Kind {
	case entity.CommandReauthorize:
		p.apply(ctx, Event{Kind: EventReauthorize, Now: now})
		return nil
	case entity.CommandStop:
		// отказ остановки виден в статусе и без подключённого станка
		err := p.stopMachine()
		p.apply(ctx, Event{Kind: EventStopResult, Now: now, Err: err})
		return err
	}
	if p.actuator == nil {
		return entity.ErrActuatorNotConnected
	}

	switch cmd.Kind {
	case entity.CommandStart:
		if p.session.Phase != entity.PhaseMonitoring {
			return entity.ErrNotAuthorized
		}
		if err := p.actuator.Start(); err != nil {
			return err
		}
		p.running = true
		return nil
	case entity.CommandFast:
		return p.actuator.Fast()
	case entity.CommandSlow:
		return p.actuator.Slow()
	case entity.CommandSetSpeed:
		return p.actuator.SetSpeed(cmd.Speed)
	}
	return fmt.Errorf("%w: unknown command %q", entity.ErrInvalidCommandArgument, cmd.Kind)
}

func reply(cmd entity.OperatorCommand, err error) {
	if cmd.Reply == nil {
		return
	}
	select {
	case cmd.Reply <- err:
	default:
	}
}

func (p *Pipeline) publishStatus(now time.Time) {
	p.status.Connected = p.actuator != nil && p.actuator.Connected()
	p.status.Phase = p.session.Phase
	p.status.Identity = p.session.Identity
	p.status.SessionID = p.session.SessionID
	p.status.StopFailed = p.session.StopFailed
	p.status.MachineRunning = p.running
	p.status.UpdatedAt = now
	if p.session.Phase != entity.PhaseMonitoring {
		p.status.PersonDetected = false
	}

	p.mu.Lock()
	p.snapshot = p.status
	p.mu.Unlock()
	p.display.PublishStatus(p.status)
}

// Status последний опубликованный статус. Безопасен из любой горутины.
func (p *Pipeline) Status() entity.Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

// Session текущее состояние сессии. Только для цикла кадров и тестов.
func (p *Pipeline) Session() entity.SessionState {
	return p.session
}

// IsStreamUnavailable сообщает, что ошибка относится к недоступному потоку.
func IsStreamUnavailable(err error) bool {
	return errors.Is(err, entity.ErrStreamUnavailable) || errors.Is(err, entity.ErrNoFrame)
}
