package ratelimit

import (
	"math/rand"
	"time"
)

const (
	backoffBase   = 500 * time.Millisecond
	backoffFactor = 2
	backoffCap    = 30 * time.Second
	backoffJitter = 0.25
)

// Backoff returns the delay before the given attempt number (1-based):
// base 500ms doubling per attempt, capped at 30s, with ±25% jitter.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := backoffBase
	for i := 1; i < attempt; i++ {
		d *= backoffFactor
		if d >= backoffCap {
			d = backoffCap
			break
		}
	}

	// Jitter in [1-j, 1+j).
	factor := 1 - backoffJitter + 2*backoffJitter*rand.Float64()

	jittered := time.Duration(float64(d) * factor)
	if jittered > backoffCap {
		jittered = backoffCap
	}

	return jittered
}
