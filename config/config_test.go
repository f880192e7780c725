package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cell-guard/internal/domain/entity"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"TICK_INTERVAL", "ABSENCE_ACTION", "ACTUATOR_ADDRESS", "AUTHORIZED_IDENTITIES", "TELEGRAM_ADMIN_IDS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 30*time.Millisecond, cfg.TickInterval)
	require.Equal(t, 60*time.Second, cfg.ReconnectInterval)
	require.Equal(t, 2*time.Second, cfg.AuthDisplayDelay)
	require.Equal(t, 5*time.Second, cfg.AbsenceThreshold)
	require.Equal(t, entity.AbsenceNone, cfg.AbsenceAction)
	require.Equal(t, 640, cfg.CaptureWidth)
	require.Equal(t, 480, cfg.CaptureHeight)
	require.Empty(t, cfg.ActuatorAddress)
	require.Empty(t, cfg.AuthorizedIdentities)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TICK_INTERVAL", "50ms")
	t.Setenv("ABSENCE_ACTION", "stop_and_reauthorize")
	t.Setenv("AUTHORIZED_IDENTITIES", " ivanov, petrov ,")
	t.Setenv("TELEGRAM_ADMIN_IDS", "1,42")
	t.Setenv("DETECTOR_SCORE_THRESHOLD", "0.4")
	t.Setenv("ACTUATOR_ADDRESS", "192.168.0.2:502")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 50*time.Millisecond, cfg.TickInterval)
	require.Equal(t, entity.AbsenceStopAndReauthorize, cfg.AbsenceAction)
	require.Equal(t, []string{"ivanov", "petrov"}, cfg.AuthorizedIdentities)
	require.Equal(t, []int64{1, 42}, cfg.TelegramAdminIDs)
	require.InDelta(t, 0.4, cfg.DetectorScoreThreshold, 1e-9)
	require.Equal(t, "192.168.0.2:502", cfg.ActuatorAddress)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("TICK_INTERVAL", "fast")
	_, err := Load()
	require.ErrorContains(t, err, "TICK_INTERVAL")

	t.Setenv("TICK_INTERVAL", "")
	t.Setenv("ABSENCE_ACTION", "explode")
	_, err = Load()
	require.ErrorContains(t, err, "ABSENCE_ACTION")

	t.Setenv("DETECTOR_BACKEND", "motion")
	t.Setenv("ABSENCE_ACTION", "stop")
	_, err = Load()
	require.ErrorContains(t, err, "DETECTOR_BACKEND=motion")

	t.Setenv("ABSENCE_ACTION", "none")
	_, err = Load()
	require.NoError(t, err)

	t.Setenv("DETECTOR_BACKEND", "")
	t.Setenv("ABSENCE_ACTION", "")
	t.Setenv("TELEGRAM_ADMIN_IDS", "admin")
	_, err = Load()
	require.ErrorContains(t, err, "TELEGRAM_ADMIN_IDS")
}
