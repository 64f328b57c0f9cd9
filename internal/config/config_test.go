package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORTAL_URL", "file:///opt/portal/chat.html")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "generic_pa", cfg.BotID)
	assert.Equal(t, "input/patients.json", cfg.PatientsFile)
	assert.Equal(t, "input/patients.json.lock", cfg.LockFile)
	assert.Equal(t, 2, cfg.DayOffset)
	assert.False(t, cfg.Live)
	assert.Equal(t, "shuffle", cfg.TimeOrder)
	assert.Equal(t, 11, cfg.RestockHour)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday, time.Friday, time.Saturday}, cfg.RunDays)
}

func TestLoadRequiresPortalURL(t *testing.T) {
	t.Setenv("PORTAL_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownTimeOrder(t *testing.T) {
	t.Setenv("PORTAL_URL", "file:///opt/portal/chat.html")
	t.Setenv("TIME_ORDER", "sideways")

	_, err := Load()
	assert.Error(t, err)
}

func TestBotIDParts(t *testing.T) {
	t.Setenv("PORTAL_URL", "file:///opt/portal/chat.html")
	t.Setenv("BOT_ID", "weis_pa")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "PA", cfg.BotState())
	assert.Equal(t, "weis", cfg.BotName())
}

func TestParseRunDays(t *testing.T) {
	days, err := ParseRunDays("Tuesday, fri")
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Tuesday, time.Friday}, days)

	_, err = ParseRunDays("Blursday")
	assert.Error(t, err)

	_, err = ParseRunDays("")
	assert.Error(t, err)
}
