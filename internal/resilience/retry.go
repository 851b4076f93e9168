// Package resilience provides retry with exponential backoff for
// outbound deliveries such as the feedback webhook.
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net"
	"time"

	"go.uber.org/zap"
)

// Policy controls retry behavior.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first
	// call. 1 means no retries.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry; each further
	// retry doubles it, capped at MaxBackoff. Jitter of up to ±25% is
	// applied so concurrent callers don't sleep in lockstep.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultPolicy suits short webhook deliveries.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
	}
}

// TransientError marks an error as safe to retry; callers wrap HTTP
// 429/5xx responses in one.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried: an explicit
// TransientError anywhere in the chain, or a network timeout.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// TransientStatus reports whether an HTTP status code is worth
// retrying.
func TransientStatus(code int) bool {
	switch code {
	case 408, 429, 500, 502, 503, 504:
		return true
	}
	return false
}

// Do runs fn up to MaxAttempts times, sleeping between attempts.
// Non-transient errors and context cancellation stop retries
// immediately; the last error is returned.
func (p Policy) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil || !IsTransient(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts-1 {
			break
		}

		zap.L().Warn("resilience: retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr),
		)

		timer := time.NewTimer(p.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
	return lastErr
}

func (p Policy) backoff(attempt int) time.Duration {
	delay := float64(p.InitialBackoff) * math.Pow(2, float64(attempt))
	if max := float64(p.MaxBackoff); p.MaxBackoff > 0 && delay > max {
		delay = max
	}
	jitter := delay * 0.25 * (rand.Float64()*2 - 1)
	if delay += jitter; delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
