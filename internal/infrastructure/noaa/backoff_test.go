package noaa

import (
	"math/rand"
	"testing"
	"time"

	"ClimateTrend/internal/config"
	"ClimateTrend/internal/domain"
)

func TestBackoffDelayGrowsToCap(t *testing.T) {
	t.Parallel()

	b := newBackoff(config.RetryConfig{
		MaxAttempts:    10,
		InitialBackoff: config.Duration(time.Second),
		MaxBackoff:     config.Duration(8 * time.Second),
		Multiplier:     2,
		Jitter:         0,
	}, rand.New(rand.NewSource(1)))

	want := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		8 * time.Second,
		8 * time.Second,
	}
	for i, w := range want {
		got := b.Delay(i+1, &domain.FetchError{Kind: domain.FailureServer})
		if got != w {
			t.Fatalf("attempt %d: expected %v, got %v", i+1, w, got)
		}
	}
}

func TestBackoffHonorsRetryAfter(t *testing.T) {
	t.Parallel()

	b := newBackoff(config.RetryConfig{
		InitialBackoff: config.Duration(time.Second),
		MaxBackoff:     config.Duration(4 * time.Second),
		Multiplier:     2,
	}, rand.New(rand.NewSource(1)))

	ferr := &domain.FetchError{
		Kind:       domain.FailureRateLimited,
		Status:     429,
		RetryAfter: 7 * time.Second,
	}
	if got := b.Delay(1, ferr); got != 7*time.Second {
		t.Fatalf("expected retry-after hint to win, got %v", got)
	}

	// Without a hint the rate-limited failure falls back to the schedule.
	ferr.RetryAfter = 0
	if got := b.Delay(1, ferr); got != time.Second {
		t.Fatalf("expected computed delay, got %v", got)
	}
}

func TestBackoffJitterStaysBounded(t *testing.T) {
	t.Parallel()

	b := newBackoff(config.RetryConfig{
		InitialBackoff: config.Duration(time.Second),
		MaxBackoff:     config.Duration(time.Minute),
		Multiplier:     2,
		Jitter:         0.5,
	}, rand.New(rand.NewSource(42)))

	base := 4 * time.Second
	lo := base - base/4
	hi := base + base/4
	for i := 0; i < 100; i++ {
		got := b.Delay(3, &domain.FetchError{Kind: domain.FailureTransient})
		if got < lo || got > hi {
			t.Fatalf("delay %v outside jitter bounds [%v, %v]", got, lo, hi)
		}
	}
}
