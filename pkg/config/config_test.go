package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidationConfig(t *testing.T) {
	t.Setenv("VALIDATION_SIMPLE_MAX", "25")
	t.Setenv("VALIDATION_COMPLEX_MIN", "70")
	t.Setenv("VALIDATION_AUTO_APPROVE_MIN_CONFIDENCE", "95.5")
	t.Setenv("SWEEP_CONCURRENCY", "12")
	t.Setenv("SWEEP_INTERVAL", "15m")

	cfg, err := Load()
	require.NoError(t, err)

	require.NotNil(t, cfg.Validation.SimpleMax)
	require.NotNil(t, cfg.Validation.ComplexMin)
	require.NotNil(t, cfg.Validation.AutoApproveMinConfidence)
	assert.Equal(t, 25.0, *cfg.Validation.SimpleMax)
	assert.Equal(t, 70.0, *cfg.Validation.ComplexMin)
	assert.Equal(t, 95.5, *cfg.Validation.AutoApproveMinConfidence)
	assert.Equal(t, 12, cfg.Validation.SweepConcurrency)
	assert.Equal(t, 15*time.Minute, cfg.Validation.SweepInterval)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Nil(t, cfg.Validation.SimpleMax)
	assert.Nil(t, cfg.Validation.ComplexMin)
	assert.Nil(t, cfg.Validation.AutoApproveMinConfidence)
	assert.Equal(t, 8, cfg.Validation.SweepConcurrency)
	assert.Equal(t, time.Duration(0), cfg.Validation.SweepInterval)
	assert.Equal(t, "localhost:6379", cfg.Redis.RedisAddr())
}

func TestLoad_InvalidValuesFallBackOrFail(t *testing.T) {
	t.Setenv("SWEEP_INTERVAL", "soon")
	t.Setenv("VALIDATION_SIMPLE_MAX", "abc")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.Validation.SweepInterval)
	assert.Nil(t, cfg.Validation.SimpleMax)

	t.Setenv("SWEEP_CONCURRENCY", "0")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoad_AllowedOrigins(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.LogLevel)

	t.Setenv("ALLOWED_ORIGINS", " https://lab.example.com, ,https://qc.example.com ")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://lab.example.com", "https://qc.example.com"}, cfg.Server.AllowedOrigins)
}
