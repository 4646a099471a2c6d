package chatclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 2 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 10 * time.Second},
		{50, 10 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Backoff(time.Second, 10*time.Second, tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestBackoffEdgeCases(t *testing.T) {
	assert.Equal(t, time.Duration(0), Backoff(0, time.Second, 3))
	assert.Equal(t, 8*time.Millisecond, Backoff(time.Millisecond, 0, 3))
	assert.Greater(t, Backoff(time.Second, 0, 200), time.Duration(0), "uncapped backoff must not overflow")
}

func TestNewAppliesDefaults(t *testing.T) {
	c := New(Config{URL: "ws://example"})

	def := DefaultConfig()
	assert.Equal(t, def.BaseDelay, c.cfg.BaseDelay)
	assert.Equal(t, def.MaxDelay, c.cfg.MaxDelay)
	assert.Equal(t, def.ReadLimit, c.cfg.ReadLimit)
	assert.Equal(t, StateDisconnected, c.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "unknown", State(42).String())
}
