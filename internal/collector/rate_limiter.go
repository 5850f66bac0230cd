package collector

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RateLimiter manages tracker API rate limiting
type RateLimiter interface {
	Wait(ctx context.Context) error
	CheckLimit() (remaining int, resetTime time.Time, err error)
	UpdateLimit(remaining int, resetTime time.Time)
}

// Rate limiter defaults
const (
	defaultRemaining = 5000
	lowWatermark     = 10
	DefaultMinDelay  = 100 * time.Millisecond
)

// apiRateLimiter implements RateLimiter from the remaining/reset values
// trackers report in response headers
type apiRateLimiter struct {
	mu        sync.Mutex
	remaining int
	resetTime time.Time
	minDelay  time.Duration
	lastCall  time.Time
	logger    zerolog.Logger
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(minDelay time.Duration, logger zerolog.Logger) RateLimiter {
	return &apiRateLimiter{
		remaining: defaultRemaining,
		resetTime: time.Now().Add(time.Hour),
		minDelay:  minDelay,
		logger:    logger,
	}
}

// Wait blocks until the next request may be sent. When the tracker reported
// a nearly exhausted quota it sleeps until the reported reset time.
func (r *apiRateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.remaining <= lowWatermark {
		if pause := time.Until(r.resetTime); pause > 0 {
			r.logger.Warn().
				Int("remaining", r.remaining).
				Dur("wait", pause.Round(time.Second)).
				Msg("rate limit low, waiting for reset")
			if err := r.sleepUnlocked(ctx, pause); err != nil {
				return err
			}
			r.logger.Info().Msg("rate limit reset, continuing")
		}
		r.remaining = defaultRemaining
		r.resetTime = time.Now().Add(time.Hour)
	}

	if gap := r.minDelay - time.Since(r.lastCall); gap > 0 {
		if err := r.sleepUnlocked(ctx, gap); err != nil {
			return err
		}
	}
	r.lastCall = time.Now()
	return nil
}

// sleepUnlocked releases the mutex for d or until ctx is done.
// The mutex is held again when it returns.
func (r *apiRateLimiter) sleepUnlocked(ctx context.Context, d time.Duration) error {
	r.mu.Unlock()
	defer r.mu.Lock()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CheckLimit returns the current rate limit status
func (r *apiRateLimiter) CheckLimit() (remaining int, resetTime time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining, r.resetTime, nil
}

// UpdateLimit updates the rate limit from API response headers
func (r *apiRateLimiter) UpdateLimit(remaining int, resetTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remaining = remaining
	r.resetTime = resetTime
}
