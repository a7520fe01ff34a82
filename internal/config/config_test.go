package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8090", cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 3*time.Second, cfg.Rental.PollInterval)
	assert.Equal(t, time.Second, cfg.Rental.ClockInterval)
	assert.Equal(t, -2*time.Hour, cfg.Rental.EndTimeCorrection)
	assert.Equal(t, time.Minute, cfg.Rental.SweepInterval)
	assert.Equal(t, 20, cfg.Redis.PoolSize)
	assert.Equal(t, 3*time.Second, cfg.Redis.ReadTimeout)
	assert.Equal(t, "http://localhost:8080/api/v1/", cfg.Backend.BaseURL)
	assert.False(t, cfg.NewRelic.Enabled)
	assert.False(t, cfg.Server.SecureCookies)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("RIDE_POLL_INTERVAL", "500ms")
	t.Setenv("RIDE_END_TIME_CORRECTION", "0s")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("LOG_DEV", "true")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://ride.example.com, ,https://m.example.com")

	cfg := Load()

	assert.Equal(t, 500*time.Millisecond, cfg.Rental.PollInterval)
	assert.Equal(t, time.Duration(0), cfg.Rental.EndTimeCorrection)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.True(t, cfg.Log.Dev)
	assert.True(t, cfg.Server.SecureCookies)
	assert.Equal(t, []string{"https://ride.example.com", "https://m.example.com"}, cfg.Server.AllowedOrigins)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("RIDE_CLOCK_INTERVAL", "soon")
	t.Setenv("REDIS_DB", "zero")

	cfg := Load()

	assert.Equal(t, time.Second, cfg.Rental.ClockInterval)
	assert.Equal(t, 0, cfg.Redis.DB)
}
