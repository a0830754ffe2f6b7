package transfer

import (
	"context"
	"time"
)

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// sleepContext is the default Sleeper
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// backoff computes retry delays: base doubled per retry, capped, jittered,
// and never shorter than a server supplied Retry-After.
type backoff struct {
	base   time.Duration
	max    time.Duration
	jitter float64
	rand   func() float64
}

// delay returns the wait before retry number retry (1-based)
func (b backoff) delay(retry int, retryAfter time.Duration) time.Duration {
	if retry < 1 {
		retry = 1
	}

	d := b.base
	for i := 1; i < retry && d < b.max; i++ {
		d *= 2
	}
	if d > b.max {
		d = b.max
	}

	if b.jitter > 0 && b.rand != nil {
		factor := 1 + b.jitter*(2*b.rand()-1)
		d = time.Duration(float64(d) * factor)
	}

	if retryAfter > d {
		d = retryAfter
	}
	return d
}
