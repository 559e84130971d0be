package mpwebhook

import (
	"time"

	"github.com/sethvargo/go-retry"
)

// retryDelay returns the wait before the given attempt (1-based), doubling
// from base and capped at max.
func retryDelay(base, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	b := retry.WithCappedDuration(max, retry.NewExponential(base))
	var delay time.Duration
	for i := 0; i < attempt; i++ {
		next, stop := b.Next()
		if stop {
			break
		}
		delay = next
	}
	return delay
}
