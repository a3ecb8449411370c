package noaa

import (
	"math"
	"math/rand"
	"time"

	"ClimateTrend/internal/config"
	"ClimateTrend/internal/domain"
)

// Backoff computes retry delays: exponential growth up to a hard ceiling,
// with symmetric jitter. An explicit Retry-After hint from the server wins
// over the computed delay.
type Backoff struct {
	initial    time.Duration
	max        time.Duration
	multiplier float64
	jitter     float64
	rng        *rand.Rand
}

// NewBackoff builds a Backoff from retry configuration, seeded from the clock.
func NewBackoff(cfg config.RetryConfig) *Backoff {
	return newBackoff(cfg, rand.New(rand.NewSource(time.Now().UnixNano())))
}

func newBackoff(cfg config.RetryConfig, rng *rand.Rand) *Backoff {
	return &Backoff{
		initial:    cfg.InitialBackoff.Std(),
		max:        cfg.MaxBackoff.Std(),
		multiplier: cfg.Multiplier,
		jitter:     cfg.Jitter,
		rng:        rng,
	}
}

// Delay returns the pause before the next attempt. Attempts are 1-based, so
// Delay(1, ...) follows the first failure.
func (b *Backoff) Delay(attempt int, ferr *domain.FetchError) time.Duration {
	if ferr != nil && ferr.Kind == domain.FailureRateLimited && ferr.RetryAfter > 0 {
		return ferr.RetryAfter
	}

	if attempt < 1 {
		attempt = 1
	}
	delay := float64(b.initial) * math.Pow(b.multiplier, float64(attempt-1))
	if delay > float64(b.max) {
		delay = float64(b.max)
	}

	if b.jitter > 0 {
		span := delay * b.jitter
		delay += span*b.rng.Float64() - span/2
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
