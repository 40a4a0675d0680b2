package notifier

import (
	"math/rand"
	"time"
)

const (
	defaultRetryBase     = 500 * time.Millisecond
	defaultRetryMaxDelay = 10 * time.Second
)

// RetryPolicy decides how long to wait before the next attempt.
// attempt is the 1-based number of the attempt that just failed.
type RetryPolicy struct {
	Backoff func(attempt int) time.Duration
}

// DefaultRetryPolicy is exponential backoff from 500ms up to 10s with jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Backoff: ExponentialBackoff(defaultRetryBase, defaultRetryMaxDelay)}
}

// MaxAttempts is the total number of attempts allowed for a retry count.
func MaxAttempts(retries int) int {
	if retries < 0 {
		retries = 0
	}
	return retries + 1
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	if p.Backoff == nil {
		return 0
	}
	if d := p.Backoff(attempt); d > 0 {
		return d
	}
	return 0
}

// ExponentialBackoff returns base * 2^(attempt-1), capped at max, with a 0.7..1.3 jitter.
func ExponentialBackoff(base, max time.Duration) func(attempt int) time.Duration {
	if base <= 0 {
		base = defaultRetryBase
	}
	if max <= 0 {
		max = defaultRetryMaxDelay
	}
	return func(attempt int) time.Duration {
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
			if d >= max {
				d = max
				break
			}
		}
		j := 0.7 + rand.Float64()*0.6
		d = time.Duration(float64(d) * j)
		if d < 0 {
			return 0
		}
		if d > max {
			d = max
		}
		return d
	}
}

func ConstantBackoff(d time.Duration) func(attempt int) time.Duration {
	return func(int) time.Duration { return d }
}
