package ratelimit

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket shared by all callers of one API endpoint
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing rps requests per second with a burst of
// one second's worth of tokens. Non-positive rates fall back to 1 rps.
func New(rps float64) *Limiter {
	if rps <= 0 {
		rps = 1.0
	}
	burst := int(math.Ceil(rps))
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until a token is available or context is cancelled
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow takes a token if one is available without blocking
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}
