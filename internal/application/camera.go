package app

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"cell-guard/internal/domain/entity"
	"cell-guard/internal/domain/port"
)

// ReconnectPolicy принудительный перезапуск потока по таймеру.
// Зависший RTSP-поток не всегда выдаёт ошибку чтения, поэтому поток
// переоткрывается раз в Interval независимо от его состояния.
type ReconnectPolicy struct {
	Interval time.Duration
	last     time.Time
}

// NewReconnectPolicy создаёт политику с точкой отсчёта now.
func NewReconnectPolicy(interval time.Duration, now time.Time) *ReconnectPolicy {
	return &ReconnectPolicy{Interval: interval, last: now}
}

// Due срабатывает, если с прошлого срабатывания прошло не меньше Interval,
// и сдвигает точку отсчёта на now.
func (p *ReconnectPolicy) Due(now time.Time) bool {
	if p.Interval <= 0 || now.Sub(p.last) < p.Interval {
		return false
	}
	p.last = now
	return true
}

// Reset сдвигает точку отсчёта без срабатывания.
func (p *ReconnectPolicy) Reset(now time.Time) {
	p.last = now
}

// Camera видеопоток одного вида с периодическим переподключением.
// Используется только из цикла кадров.
type Camera struct {
	view       entity.View
	uri        string
	source     port.StreamSource
	handle     port.StreamHandle
	policy     *ReconnectPolicy
	retry      time.Duration
	lastOpen   time.Time
	reconnects int
}

// NewCamera создаёт закрытый поток. retry задаёт паузу между неудачными попытками открыть.
func NewCamera(view entity.View, uri string, source port.StreamSource, reconnect, retry time.Duration) *Camera {
	return &Camera{
		view:   view,
		uri:    uri,
		source: source,
		policy: NewReconnectPolicy(reconnect, time.Time{}),
		retry:  retry,
	}
}

// Read выполняет политику переподключения и читает кадр.
// Ошибка чтения не закрывает поток.
func (c *Camera) Read(now time.Time) (*entity.Frame, error) {
	if c.handle != nil && c.policy.Due(now) {
		log.Info().Str("view", string(c.view)).Msg("restarting camera")
		c.Release()
		c.reconnects++
		if err := c.open(now); err != nil {
			return nil, err
		}
	}

	if c.handle == nil {
		if !c.lastOpen.IsZero() && now.Sub(c.lastOpen) < c.retry {
			return nil, entity.ErrStreamUnavailable
		}
		if err := c.open(now); err != nil {
			return nil, err
		}
	}

	frame, err := c.handle.Read()
	if err != nil {
		if !errors.Is(err, entity.ErrNoFrame) && !errors.Is(err, entity.ErrStreamUnavailable) {
			err = errors.Join(entity.ErrNoFrame, err)
		}
		return nil, err
	}
	return frame, nil
}

func (c *Camera) open(now time.Time) error {
	c.lastOpen = now
	h, err := c.source.Open(c.uri)
	if err != nil {
		log.Warn().Err(err).Str("view", string(c.view)).Msg("failed to open camera")
		return err
	}
	c.handle = h
	c.policy.Reset(now)
	return nil
}

// Release закрывает поток, если он открыт.
func (c *Camera) Release() {
	if c.handle == nil {
		return
	}
	if err := c.handle.Release(); err != nil {
		log.Warn().Err(err).Str("view", string(c.view)).Msg("failed to release camera")
	}
	c.handle = nil
}

// Opened сообщает, открыт ли поток.
func (c *Camera) Opened() bool {
	return c.handle != nil
}

// Reconnects число принудительных переподключений.
func (c *Camera) Reconnects() int {
	return c.reconnects
}
