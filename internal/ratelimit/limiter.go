// internal/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Limiter is a sliding-window rate limiter shared by the venue monitors.
// At most maxRequests permits are issued per window; an over-limit caller
// sleeps until the oldest recorded permit leaves the window, then retries.
type Limiter struct {
	maxRequests int
	window      time.Duration
	mu          sync.Mutex
	issued      []time.Time // ordered permit timestamps
	logger      *zap.Logger

	// test seam
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(maxRequests int, window time.Duration, logger *zap.Logger) *Limiter {
	if maxRequests <= 0 {
		maxRequests = 1
	}
	return &Limiter{
		maxRequests: maxRequests,
		window:      window,
		logger:      logger.Named("rate_limiter"),
		now:         time.Now,
		sleep:       sleepCtx,
	}
}

// Acquire blocks until a permit is available or the context is cancelled.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		l.prune(now)

		if len(l.issued) < l.maxRequests {
			l.issued = append(l.issued, now)
			l.mu.Unlock()
			return nil
		}

		wait := l.issued[0].Add(l.window).Sub(now)
		l.mu.Unlock()

		if wait <= 0 {
			continue
		}

		l.logger.Debug("Rate limit reached, waiting",
			zap.Duration("wait", wait),
			zap.Int("max_requests", l.maxRequests))

		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Pending returns the number of permits currently inside the window.
func (l *Limiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	return len(l.issued)
}

// prune drops permit timestamps older than the window. Caller holds mu.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.issued) && !l.issued[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.issued = append(l.issued[:0], l.issued[i:]...)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
