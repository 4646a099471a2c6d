package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, ":3001", cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(64*1024), cfg.MaxMessageSize)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, 256, cfg.SendBufferSize)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("WS_PORT", "4000")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, https://b.example")
	t.Setenv("MAX_MESSAGE_SIZE", "2048")
	t.Setenv("RATE_LIMIT_BURST", "3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2")
	t.Setenv("SEND_BUFFER_SIZE", "16")

	cfg := NewConfigFromEnv()

	assert.Equal(t, ":4000", cfg.Port)
	assert.Equal(t, []string{"http://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(2048), cfg.MaxMessageSize)
	assert.Equal(t, 3, cfg.RateLimit.Burst)
	assert.Equal(t, 2*time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, 16, cfg.SendBufferSize)
}

func TestNewConfigFromEnvIgnoresInvalidValues(t *testing.T) {
	t.Setenv("WS_PORT", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("MAX_MESSAGE_SIZE", "-1")
	t.Setenv("RATE_LIMIT_BURST", "lots")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "0")
	t.Setenv("SEND_BUFFER_SIZE", "x")

	cfg := NewConfigFromEnv()

	assert.Equal(t, *NewConfig(), *cfg)
}

func TestNormalizePort(t *testing.T) {
	assert.Equal(t, ":3001", NormalizePort(""))
	assert.Equal(t, ":8080", NormalizePort("8080"))
	assert.Equal(t, ":8080", NormalizePort(" :8080 "))
	assert.Equal(t, "127.0.0.1:9000", NormalizePort("127.0.0.1:9000"))
}

func TestConfigValidate(t *testing.T) {
	cfg := NewConfig()
	cfg.Port = ""
	cfg.RateLimit.Burst = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Port")
	assert.Contains(t, err.Error(), "Burst")
}

func TestConfigSanitized(t *testing.T) {
	origins := []string{"http://a.example"}
	cfg := Config{AllowedOrigins: origins}.sanitized()

	assert.Equal(t, ":3001", cfg.Port)
	assert.Equal(t, int64(64*1024), cfg.MaxMessageSize)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, 256, cfg.SendBufferSize)

	cfg.AllowedOrigins[0] = "changed"
	assert.Equal(t, "http://a.example", origins[0])
}
