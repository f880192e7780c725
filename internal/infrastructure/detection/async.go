package detection

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"cell-guard/internal/domain/entity"
	"cell-guard/internal/domain/port"
)

// DefaultQueueSize ёмкость очереди результатов
const DefaultQueueSize = 4

// AsyncOptions настройки асинхронного детектора
type AsyncOptions struct {
	QueueSize int              // ёмкость очереди результатов, при переполнении выбрасывается самый старый
	FPSWindow int              // через сколько результатов пересчитывать FPS
	Now       func() time.Time // часы, для тестов
}

type submission struct {
	frame       *entity.Frame
	timestampMs int64
}

// AsyncDetector развязывает инференс и цикл кадров.
//
// Отправка кладёт кадр в одноместный почтовый ящик: новый кадр заменяет
// необработанный. Воркер забирает кадр, вызывает бэкенд и складывает
// результат в ограниченную очередь. Очередь и счётчик FPS защищены одним mu.
type AsyncDetector struct {
	backend port.Inference
	now     func() time.Time

	inboxMu sync.Mutex
	inbox   *submission
	wake    chan struct{}

	mu        sync.Mutex
	results   []*entity.DetectionResult
	queueSize int
	rate      *entity.RateMeter
	dropped   uint64
	failures  uint64
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAsyncDetector запускает воркер инференса.
func NewAsyncDetector(backend port.Inference, opts AsyncOptions) *AsyncDetector {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &AsyncDetector{
		backend:   backend,
		now:       opts.Now,
		wake:      make(chan struct{}, 1),
		queueSize: opts.QueueSize,
		rate:      entity.NewRateMeter(opts.FPSWindow, opts.Now()),
		ctx:       ctx,
		cancel:    cancel,
	}
	d.wg.Add(1)
	go d.loop()
	return d
}

// SubmitAsync не блокирует. Кадр переходит во владение детектора.
func (d *AsyncDetector) SubmitAsync(frame *entity.Frame, timestampMs int64) {
	d.inboxMu.Lock()
	d.inbox = &submission{frame: frame, timestampMs: timestampMs}
	d.inboxMu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *AsyncDetector) loop() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case <-d.wake:
		}

		d.inboxMu.Lock()
		sub := d.inbox
		d.inbox = nil
		d.inboxMu.Unlock()
		if sub == nil {
			continue
		}

		result, err := d.backend.Detect(d.ctx, sub.frame, sub.timestampMs)
		if err != nil {
			d.onError(err)
			continue
		}
		d.onResult(result)
	}
}

// onResult колбэк воркера. После Close результат отбрасывается.
func (d *AsyncDetector) onResult(result *entity.DetectionResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || result == nil {
		return
	}

	now := d.now()
	if result.ReceivedAt.IsZero() {
		result.ReceivedAt = now
	}
	d.rate.Observe(now)

	if len(d.results) >= d.queueSize {
		d.results = d.results[1:]
		d.dropped++
	}
	d.results = append(d.results, result)
}

func (d *AsyncDetector) onError(err error) {
	d.mu.Lock()
	closed := d.closed
	if !closed {
		d.failures++
	}
	d.mu.Unlock()
	if closed {
		return
	}
	log.Warn().Err(err).Msg("detection failed")
}

// Drain забирает все накопленные результаты в порядке поступления и очищает очередь.
func (d *AsyncDetector) Drain() []*entity.DetectionResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.results
	d.results = nil
	return out
}

// FPS последняя оценка скорости инференса.
func (d *AsyncDetector) FPS() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rate.Value()
}

// Stats счётчики выброшенных результатов и ошибок бэкенда.
func (d *AsyncDetector) Stats() (dropped, failures uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped, d.failures
}

// Close останавливает воркер и ждёт его завершения. Повторный вызов безопасен.
func (d *AsyncDetector) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.results = nil
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
}

// Проверка реализации интерфейса
var _ port.ObjectDetector = (*AsyncDetector)(nil)
