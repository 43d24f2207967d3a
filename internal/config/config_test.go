package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://saltala.apisaltala.com/api/v1", cfg.SaltalaBase)
	assert.Equal(t, "lobarnechea", cfg.PublicURL)
	assert.Equal(t, []string{"Renovación"}, cfg.TargetLineNames)
	assert.Equal(t, 1768, cfg.FallbackLineID)
	assert.Equal(t, 277, cfg.UnitHint)
	assert.Equal(t, 2, cfg.MonthsAhead)
	assert.Equal(t, "America/Santiago", cfg.Timezone)
	assert.Equal(t, time.Hour, cfg.FollowupAfter)
	assert.Equal(t, 24*time.Hour, cfg.ReactivateAfter)
	assert.Equal(t, 5*time.Minute, cfg.PollInterval)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("TARGET_LINE_NAMES", "Renovación, Primera Licencia")
	t.Setenv("UNIT_HINT", "42")
	t.Setenv("POLL_SECONDS", "30")
	t.Setenv("MOCK_DAYS", "2025-09-01 2025-09-02,2025-09-03")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, []string{"Renovación", "Primera", "Licencia"}, cfg.TargetLineNames)
	assert.Equal(t, 42, cfg.UnitHint)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, []string{"2025-09-01", "2025-09-02", "2025-09-03"}, cfg.MockDays)
}

func TestFromEnvRejectsBadInts(t *testing.T) {
	t.Setenv("FALLBACK_LINE_ID", "not-a-number")
	_, err := FromEnv()
	require.Error(t, err)
}

func TestOffsetForDate(t *testing.T) {
	cfg := Config{Timezone: "America/Santiago"}

	// Chilean summer time (January) vs standard time (July).
	assert.Equal(t, "-03:00", cfg.OffsetForDate("2025-01-15"))
	assert.Equal(t, "-04:00", cfg.OffsetForDate("2025-07-15"))

	cfg.TZOffset = "-05:00"
	assert.Equal(t, "-05:00", cfg.OffsetForDate("2025-01-15"))

	bad := Config{Timezone: "Not/AZone"}
	assert.Equal(t, "-03:00", bad.OffsetForDate("2025-01-15"))
}
