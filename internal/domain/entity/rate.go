package entity

import "time"

// DefaultRateWindow через сколько событий пересчитывается FPS
const DefaultRateWindow = 10

// RateMeter скользящая оценка частоты событий: каждые Window событий
// значение пересчитывается как Window / прошедшие секунды.
// Не потокобезопасен, владелец сам держит блокировку.
type RateMeter struct {
	Window int
	count  int
	start  time.Time
	value  float64
}

// NewRateMeter создаёт счётчик с точкой отсчёта now.
func NewRateMeter(window int, now time.Time) *RateMeter {
	if window <= 0 {
		window = DefaultRateWindow
	}
	return &RateMeter{Window: window, start: now}
}

// Observe учитывает одно событие. Возвращает true, если оценка пересчитана.
func (m *RateMeter) Observe(now time.Time) bool {
	m.count++
	if m.count%m.Window != 0 {
		return false
	}
	elapsed := now.Sub(m.start).Seconds()
	if elapsed > 0 {
		m.value = float64(m.Window) / elapsed
	}
	m.start = now
	return true
}

// Value возвращает последнюю оценку.
func (m *RateMeter) Value() float64 {
	return m.value
}

// Count возвращает число учтённых событий.
func (m *RateMeter) Count() int {
	return m.count
}
