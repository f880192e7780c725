package detection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cell-guard/internal/domain/entity"
)

// fakeClock ручные часы
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// stubInference возвращает по результату на кадр, ждёт release если он задан.
type stubInference struct {
	mu      sync.Mutex
	calls   []int64
	release chan struct{}
	err     error
	done    chan int64
}

func (s *stubInference) Detect(ctx context.Context, frame *entity.Frame, ts int64) (*entity.DetectionResult, error) {
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	s.calls = append(s.calls, ts)
	s.mu.Unlock()
	defer func() {
		if s.done != nil {
			s.done <- ts
		}
	}()
	if s.err != nil {
		return nil, s.err
	}
	return &entity.DetectionResult{
		TimestampMs: ts,
		Detections:  []entity.Detection{{Label: entity.PersonLabel, Score: 0.9}},
	}, nil
}

func newTestDetector(t *testing.T, backend *stubInference, queue int) (*AsyncDetector, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1000, 0)}
	d := NewAsyncDetector(backend, AsyncOptions{QueueSize: queue, FPSWindow: 10, Now: clock.Now})
	t.Cleanup(d.Close)
	return d, clock
}

func TestAsyncDetector_ConcurrentDrainLosesNothing(t *testing.T) {
	const total = 500
	backend := &stubInference{}
	d, _ := newTestDetector(t, backend, total)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < total; i++ {
			d.onResult(&entity.DetectionResult{TimestampMs: int64(i)})
		}
	}()

	seen := make(map[int64]int, total)
	collect := func() {
		for _, r := range d.Drain() {
			seen[r.TimestampMs]++
		}
	}
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		collect()
	}
	collect()

	require.Len(t, seen, total)
	for ts, n := range seen {
		require.Equal(t, 1, n, "result %d", ts)
	}
	dropped, _ := d.Stats()
	require.Zero(t, dropped)

	d.Close()
	d.SubmitAsync(entity.NewFrame(4, 4, entity.OrderRGB), total)
	d.onResult(&entity.DetectionResult{TimestampMs: total})
	require.Never(t, func() bool { return len(d.Drain()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	require.Empty(t, backend.calls)
}

func TestAsyncDetector_DrainEmptiesQueue(t *testing.T) {
	d, _ := newTestDetector(t, &stubInference{}, 8)

	for i := 0; i < 5; i++ {
		d.onResult(&entity.DetectionResult{TimestampMs: int64(i)})
	}

	got := d.Drain()
	require.Len(t, got, 5)
	for i, r := range got {
		require.Equal(t, int64(i), r.TimestampMs)
	}
	require.Empty(t, d.Drain())

	// результат после начала опустошения попадает в следующий Drain
	d.onResult(&entity.DetectionResult{TimestampMs: 99})
	got = d.Drain()
	require.Len(t, got, 1)
	require.Equal(t, int64(99), got[0].TimestampMs)
}

func TestAsyncDetector_QueueDropsOldest(t *testing.T) {
	d, _ := newTestDetector(t, &stubInference{}, 2)

	for i := 0; i < 5; i++ {
		d.onResult(&entity.DetectionResult{TimestampMs: int64(i)})
	}

	got := d.Drain()
	require.Len(t, got, 2)
	require.Equal(t, int64(3), got[0].TimestampMs)
	require.Equal(t, int64(4), got[1].TimestampMs)
	dropped, _ := d.Stats()
	require.Equal(t, uint64(3), dropped)
}

func TestAsyncDetector_FPSEveryTenResults(t *testing.T) {
	d, clock := newTestDetector(t, &stubInference{}, 100)

	for i := 0; i < 9; i++ {
		clock.Advance(50 * time.Millisecond)
		d.onResult(&entity.DetectionResult{})
		require.Zero(t, d.FPS())
	}
	clock.Advance(50 * time.Millisecond)
	d.onResult(&entity.DetectionResult{})
	require.InDelta(t, 20.0, d.FPS(), 1e-9)

	// повторное чтение не меняет значение
	require.InDelta(t, 20.0, d.FPS(), 1e-9)

	for i := 0; i < 9; i++ {
		clock.Advance(100 * time.Millisecond)
		d.onResult(&entity.DetectionResult{})
		require.InDelta(t, 20.0, d.FPS(), 1e-9)
	}
	clock.Advance(100 * time.Millisecond)
	d.onResult(&entity.DetectionResult{})
	require.InDelta(t, 10.0, d.FPS(), 1e-9)
}

func TestAsyncDetector_SubmitDeliversResult(t *testing.T) {
	backend := &stubInference{done: make(chan int64, 1)}
	d, _ := newTestDetector(t, backend, 4)

	d.SubmitAsync(entity.NewFrame(4, 4, entity.OrderRGB), 42)

	select {
	case ts := <-backend.done:
		require.Equal(t, int64(42), ts)
	case <-time.After(2 * time.Second):
		t.Fatal("inference was not called")
	}
	var got []*entity.DetectionResult
	require.Eventually(t, func() bool {
		got = append(got, d.Drain()...)
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, int64(42), got[0].TimestampMs)
	require.True(t, got[0].PersonPresent())
	require.False(t, got[0].ReceivedAt.IsZero())
}

func TestAsyncDetector_SubmitDoesNotBlock(t *testing.T) {
	backend := &stubInference{release: make(chan struct{}), done: make(chan int64, 10)}
	d, _ := newTestDetector(t, backend, 4)

	start := time.Now()
	for i := 0; i < 100; i++ {
		d.SubmitAsync(entity.NewFrame(2, 2, entity.OrderRGB), int64(i))
	}
	require.Less(t, time.Since(start), time.Second)

	// воркер занят первым кадром, в ящике остаётся только последний
	close(backend.release)
	require.Eventually(t, func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return len(backend.calls) >= 1 && backend.calls[len(backend.calls)-1] == 99
	}, 2*time.Second, 5*time.Millisecond)

	backend.mu.Lock()
	require.LessOrEqual(t, len(backend.calls), 2)
	backend.mu.Unlock()
}

func TestAsyncDetector_BackendErrorIsCounted(t *testing.T) {
	backend := &stubInference{err: errors.New("model not loaded"), done: make(chan int64, 1)}
	d, _ := newTestDetector(t, backend, 4)

	d.SubmitAsync(entity.NewFrame(2, 2, entity.OrderRGB), 1)
	<-backend.done

	require.Eventually(t, func() bool {
		_, failures := d.Stats()
		return failures == 1
	}, time.Second, 5*time.Millisecond)
	require.Empty(t, d.Drain())
}

func TestAsyncDetector_ResultsAfterCloseAreDropped(t *testing.T) {
	d, _ := newTestDetector(t, &stubInference{}, 4)
	d.onResult(&entity.DetectionResult{TimestampMs: 1})

	d.Close()
	d.onResult(&entity.DetectionResult{TimestampMs: 2})

	require.Empty(t, d.Drain())
	require.NotPanics(t, d.Close)
}

func TestAsyncDetector_CloseUnblocksStalledBackend(t *testing.T) {
	backend := &stubInference{release: make(chan struct{})}
	d, _ := newTestDetector(t, backend, 4)
	d.SubmitAsync(entity.NewFrame(2, 2, entity.OrderRGB), 1)

	closed := make(chan struct{})
	go func() {
		d.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("close blocked on stalled inference")
	}
}
