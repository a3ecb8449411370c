package domain

import (
	"errors"
	"fmt"
	"time"
)

// FailureKind classifies a page fetch failure for retry decisions.
type FailureKind string

const (
	// FailureRateLimited means the upstream asked us to slow down (HTTP 429).
	FailureRateLimited FailureKind = "rate_limited"
	// FailureTransient covers network-level errors and timeouts.
	FailureTransient FailureKind = "transient"
	// FailureServer covers upstream 5xx responses.
	FailureServer FailureKind = "server_error"
	// FailureClient covers 4xx responses other than 429; retrying cannot help.
	FailureClient FailureKind = "client_error"
	// FailureExhausted means the attempt ceiling was reached without success.
	FailureExhausted FailureKind = "exhausted"
	// FailureUnavailable means the circuit breaker is refusing requests.
	FailureUnavailable FailureKind = "unavailable"
)

// FetchError is a classified failure from the observation source.
type FetchError struct {
	Kind       FailureKind
	Status     int
	RetryAfter time.Duration
	Err        error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch failed (%s, status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch failed (%s): %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt at the same request may succeed.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case FailureRateLimited, FailureTransient, FailureServer:
		return true
	default:
		return false
	}
}

var (
	// ErrInsufficientData means fewer than two usable yearly averages exist.
	ErrInsufficientData = errors.New("insufficient data for trend fit")
	// ErrNoWindowsCompleted means every attempted extraction window failed.
	ErrNoWindowsCompleted = errors.New("no extraction windows completed")
)
