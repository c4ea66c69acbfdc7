// Package retry runs a call again when it fails with a retryable error.
package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	errx "github.com/wayfarer-planner/server/internal/core/error"
	logx "github.com/wayfarer-planner/server/pkg/logger"
)

// Policy bounds how often and how fast a failing call is repeated.
type Policy struct {
	MaxRetries    int           // retries after the first attempt
	InitialDelay  time.Duration // delay before the first retry
	MaxDelay      time.Duration
	BackoffFactor float64
	Jitter        bool
	Classifier    func(error) bool
}

// DefaultPolicy retries twice with a short exponential backoff.
var DefaultPolicy = Policy{
	MaxRetries:    2,
	InitialDelay:  200 * time.Millisecond,
	MaxDelay:      2 * time.Second,
	BackoffFactor: 2.0,
	Jitter:        true,
}

// Delay returns the wait before retry number n (1-based).
func (p Policy) Delay(n int) time.Duration {
	if n <= 0 || p.InitialDelay <= 0 {
		return 0
	}
	factor := p.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	delay := time.Duration(float64(p.InitialDelay) * math.Pow(factor, float64(n-1)))
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if p.Jitter && delay > 0 {
		// +/- 10%
		delta := float64(delay) * 0.1 * (rand.Float64()*2 - 1)
		delay += time.Duration(delta)
	}
	return delay
}

func (p Policy) shouldRetry(err error) bool {
	if p.Classifier != nil {
		return p.Classifier(err)
	}
	return errx.IsRetryable(err)
}

// Do calls fn until it succeeds, fails with a non-retryable error, or the
// retry budget is spent. The last error is returned unchanged.
func Do(ctx context.Context, p Policy, op string, fn func(ctx context.Context) error) error {
	_, err := DoValue(ctx, p, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoValue is Do for calls that produce a value.
func DoValue[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if attempt >= p.MaxRetries || !p.shouldRetry(err) {
			return zero, err
		}

		delay := p.Delay(attempt + 1)
		logx.Warn().
			Err(err).
			Str("op", op).
			Int("attempt", attempt+1).
			Dur("backoff", delay).
			Msg("retrying after transient failure")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}
