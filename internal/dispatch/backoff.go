// internal/dispatch/backoff.go
package dispatch

import "time"

// NextBackoff computes the retry delay after the given attempt number
// (1-based): base * 2^(attempt-1), capped at max.
func NextBackoff(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}
