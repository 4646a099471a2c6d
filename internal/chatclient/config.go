package chatclient

import (
	"math"
	"time"
)

// Config controls how the client connects and reconnects.
type Config struct {
	URL string

	// BaseDelay is doubled per consecutive failed attempt; MaxDelay caps the result.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	DialTimeout  time.Duration
	WriteTimeout time.Duration
	ReadLimit    int64
}

// DefaultConfig returns sensible defaults. Set a timeout to 0 to disable it.
func DefaultConfig() Config {
	return Config{
		BaseDelay:    time.Second,
		MaxDelay:     10 * time.Second,
		DialTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ReadLimit:    64 * 1024,
	}
}

// Backoff returns the wait before reconnect attempt number attempt (1-based):
// base doubled attempt times, capped at max. A non-positive max disables the cap.
func Backoff(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 0; i < attempt; i++ {
		if delay > math.MaxInt64/2 {
			return delay
		}
		delay *= 2
		if max > 0 && delay >= max {
			return max
		}
	}
	return delay
}
