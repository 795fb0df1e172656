package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/septivank/meter-resolution-console/internal/anomaly"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresBaseURL(t *testing.T) {
	t.Setenv("API_BASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API_BASE_URL")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://billing.example.test/api/")
	t.Setenv("CORRECTION_DECREASE_POLICY", "")
	t.Setenv("CONSOLE_CONFIG_FILE", "")
	t.Setenv("API_TIMEOUT_SECONDS", "")
	t.Setenv("ANOMALY_SPIKE_THRESHOLD", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("RABBITMQ_WATCH_QUEUE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://billing.example.test/api", cfg.API.BaseURL)
	assert.Equal(t, time.Duration(0), cfg.API.Timeout)
	assert.Equal(t, anomaly.PolicyAllow, cfg.Correction.DecreasePolicy)
	assert.Equal(t, "Meter Inspection Required", cfg.FollowUp.Title)
	assert.Equal(t, 7, cfg.FollowUp.DueInDays)
	assert.Equal(t, 3.0, cfg.Anomaly.SpikeThreshold)
	assert.Empty(t, cfg.Database.URL)
	assert.Empty(t, cfg.RabbitMQ.URL)
	assert.Empty(t, cfg.RabbitMQ.WatchQueue)
}

func TestLoad_RejectsUnknownPolicy(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://localhost:4000")
	t.Setenv("CORRECTION_DECREASE_POLICY", "sometimes")
	t.Setenv("CONSOLE_CONFIG_FILE", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_BadNumbersFallBack(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://localhost:4000")
	t.Setenv("API_TIMEOUT_SECONDS", "ten")
	t.Setenv("ANOMALY_SPIKE_THRESHOLD", "x")
	t.Setenv("CONSOLE_CONFIG_FILE", "")
	t.Setenv("CORRECTION_DECREASE_POLICY", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.API.Timeout)
	assert.Equal(t, 3.0, cfg.Anomaly.SpikeThreshold)
}

func TestLoad_FileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.toml")
	content := `
[followup]
title = "Survey: meter inspection"
priority = "HIGH"
due_in_days = 3

[correction]
decrease_policy = "warn"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("API_BASE_URL", "http://localhost:4000")
	t.Setenv("CONSOLE_CONFIG_FILE", path)
	t.Setenv("CORRECTION_DECREASE_POLICY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Survey: meter inspection", cfg.FollowUp.Title)
	assert.Equal(t, "HIGH", cfg.FollowUp.Priority)
	assert.Equal(t, 3, cfg.FollowUp.DueInDays)
	assert.Equal(t, DefaultFollowUp().Description, cfg.FollowUp.Description)
	assert.Equal(t, anomaly.PolicyWarn, cfg.Correction.DecreasePolicy)
}

func TestLoad_EnvPolicyWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.toml")
	require.NoError(t, os.WriteFile(path, []byte("[correction]\ndecrease_policy = \"warn\"\n"), 0o600))

	t.Setenv("API_BASE_URL", "http://localhost:4000")
	t.Setenv("CONSOLE_CONFIG_FILE", path)
	t.Setenv("CORRECTION_DECREASE_POLICY", "reject")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, anomaly.PolicyReject, cfg.Correction.DecreasePolicy)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://localhost:4000")
	t.Setenv("CONSOLE_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	_, err := Load()
	require.Error(t, err)
}
