package app

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cell-guard/internal/domain/entity"
	"cell-guard/internal/domain/port"
)

type fakeHandle struct {
	frames   []*entity.Frame
	errs     []error
	reads    int
	released int
}

func (h *fakeHandle) Read() (*entity.Frame, error) {
	i := h.reads
	h.reads++
	if i < len(h.errs) && h.errs[i] != nil {
		return nil, h.errs[i]
	}
	if i < len(h.frames) && h.frames[i] != nil {
		return h.frames[i], nil
	}
	return entity.NewFrame(4, 4, entity.OrderBGR), nil
}

func (h *fakeHandle) Release() error {
	h.released++
	return nil
}

type fakeSource struct {
	opens   map[string]int
	openErr error
	handles []*fakeHandle
	next    func(uri string) *fakeHandle
}

func newFakeSource() *fakeSource {
	return &fakeSource{opens: make(map[string]int)}
}

func (s *fakeSource) Open(uri string) (port.StreamHandle, error) {
	s.opens[uri]++
	if s.openErr != nil {
		return nil, s.openErr
	}
	h := &fakeHandle{}
	if s.next != nil {
		h = s.next(uri)
	}
	s.handles = append(s.handles, h)
	return h, nil
}

func TestReconnectPolicy_FiresOncePerInterval(t *testing.T) {
	start := time.Unix(1000, 0)
	p := NewReconnectPolicy(60*time.Second, start)

	fired := 0
	// 30 мс тик на протяжении трёх минут
	for now := start; now.Before(start.Add(3 * time.Minute)); now = now.Add(30 * time.Millisecond) {
		if p.Due(now) {
			fired++
		}
	}
	require.Equal(t, 2, fired)

	require.True(t, p.Due(start.Add(3*time.Minute)))
	require.False(t, p.Due(start.Add(3*time.Minute+time.Second)))
}

func TestReconnectPolicy_Disabled(t *testing.T) {
	p := NewReconnectPolicy(0, time.Unix(0, 0))
	require.False(t, p.Due(time.Unix(1e6, 0)))
}

func TestCamera_ReopensAfterInterval(t *testing.T) {
	src := newFakeSource()
	cam := NewCamera(entity.ViewMonitoring, "rtsp://cam", src, time.Minute, time.Second)
	start := time.Unix(1000, 0)

	_, err := cam.Read(start)
	require.NoError(t, err)
	require.Equal(t, 1, src.opens["rtsp://cam"])

	_, err = cam.Read(start.Add(59 * time.Second))
	require.NoError(t, err)
	require.Equal(t, 1, src.opens["rtsp://cam"])

	_, err = cam.Read(start.Add(60 * time.Second))
	require.NoError(t, err)
	require.Equal(t, 2, src.opens["rtsp://cam"])
	require.Equal(t, 1, src.handles[0].released)
	require.Equal(t, 1, cam.Reconnects())
}

func TestCamera_OpenFailureRespectsRetry(t *testing.T) {
	src := newFakeSource()
	src.openErr = entity.ErrStreamUnavailable
	cam := NewCamera(entity.ViewAuthorization, "0", src, time.Minute, 2*time.Second)
	start := time.Unix(1000, 0)

	_, err := cam.Read(start)
	require.ErrorIs(t, err, entity.ErrStreamUnavailable)
	_, err = cam.Read(start.Add(time.Second))
	require.ErrorIs(t, err, entity.ErrStreamUnavailable)
	require.Equal(t, 1, src.opens["0"])

	src.openErr = nil
	_, err = cam.Read(start.Add(2 * time.Second))
	require.NoError(t, err)
	require.Equal(t, 2, src.opens["0"])
	require.True(t, cam.Opened())
}

func TestCamera_ReadErrorKeepsHandle(t *testing.T) {
	src := newFakeSource()
	src.next = func(string) *fakeHandle {
		return &fakeHandle{errs: []error{errors.New("decode error")}}
	}
	cam := NewCamera(entity.ViewMonitoring, "rtsp://cam", src, time.Minute, time.Second)

	_, err := cam.Read(time.Unix(1000, 0))
	require.ErrorIs(t, err, entity.ErrNoFrame)
	require.True(t, cam.Opened())

	_, err = cam.Read(time.Unix(1000, 0).Add(30 * time.Millisecond))
	require.NoError(t, err)
	require.Equal(t, 1, src.opens["rtsp://cam"])

	cam.Release()
	cam.Release()
	require.False(t, cam.Opened())
	require.Equal(t, 1, src.handles[0].released)
}
