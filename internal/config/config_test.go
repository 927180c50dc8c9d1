package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 1000, cfg.Jobs.MaxJobs)
	assert.Equal(t, 30, cfg.Jobs.CooldownMinutes)
	assert.Equal(t, 5, cfg.Call.PollIntervalSecs)
	assert.Equal(t, 300, cfg.Call.PollTimeoutSecs)
	assert.Equal(t, 10, cfg.Call.BusyRetryDelaySecs)
	assert.Equal(t, 3, cfg.Call.AttemptsPerNumber)
	assert.Equal(t, "https://api.hubapi.com", cfg.HubSpot.BaseURL)
	assert.Equal(t, "sonar-pro", cfg.Perplexity.Model)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("AGENTE_SERVER_PORT", "9999")
	t.Setenv("AGENTE_LOG_LEVEL", "debug")
	t.Setenv("AGENTE_JOBS_COOLDOWN_MINUTES", "45")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 45, cfg.Jobs.CooldownMinutes)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.Validate())

	cfg.HubSpot.Token = "pat-na1-xxx"
	assert.Error(t, cfg.Validate())

	cfg.Places.Key = "AIza-xxx"
	assert.NoError(t, cfg.Validate())
}

func TestInitLogger_InvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "nonsense", Format: "json"})
	assert.Error(t, err)
}

func TestInitLogger_Console(t *testing.T) {
	err := InitLogger(LogConfig{Level: "warn", Format: "console"})
	assert.NoError(t, err)
}
