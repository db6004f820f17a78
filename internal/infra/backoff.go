package infra

import (
	"time"
)

const (
	// maxReconnectDelay caps the exponential curve.
	maxReconnectDelay = 60 * time.Second
)

// ReconnectDelay returns the backoff before reconnect attempt n (1-based):
// base * 2^(n-1), capped at maxReconnectDelay. Attempts below 1 get the
// base delay.
func ReconnectDelay(attempt int, base time.Duration) time.Duration {
	if attempt < 1 {
		return base
	}

	// 2^30 seconds already dwarfs the cap; avoid shift overflow.
	if attempt > 30 {
		return maxReconnectDelay
	}

	delay := base * time.Duration(1<<(attempt-1))
	if delay > maxReconnectDelay {
		return maxReconnectDelay
	}

	return delay
}
