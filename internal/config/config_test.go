package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingWindow(t *testing.T) {
	cfg := BookingConfig{OpenTime: "09:00", CloseTime: "17:00", Timezone: "Africa/Johannesburg"}

	openMin, closeMin, loc, err := cfg.Window()
	require.NoError(t, err)
	assert.Equal(t, 9*60, openMin)
	assert.Equal(t, 17*60, closeMin)

	want, err := time.LoadLocation("Africa/Johannesburg")
	require.NoError(t, err)
	assert.Equal(t, want, loc)
}

func TestBookingWindowRejectsBadInput(t *testing.T) {
	cases := map[string]BookingConfig{
		"bad open time":     {OpenTime: "9am", CloseTime: "17:00", Timezone: "UTC"},
		"bad close time":    {OpenTime: "09:00", CloseTime: "5pm", Timezone: "UTC"},
		"bad timezone":      {OpenTime: "09:00", CloseTime: "17:00", Timezone: "Mars/Olympus"},
		"close before open": {OpenTime: "17:00", CloseTime: "09:00", Timezone: "UTC"},
		"close equals open": {OpenTime: "09:00", CloseTime: "09:00", Timezone: "UTC"},
	}

	for name, cfg := range cases {
		_, _, _, err := cfg.Window()
		assert.Error(t, err, name)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "09:00", cfg.Booking.OpenTime)
	assert.Equal(t, "17:00", cfg.Booking.CloseTime)
	assert.Equal(t, "Africa/Johannesburg", cfg.Booking.Timezone)
	assert.Equal(t, 50.0, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 100, cfg.RateLimit.Burst)
}
