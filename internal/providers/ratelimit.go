package providers

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket sized from a provider's requests-per-second
// budget. One limiter is shared by all workers hitting the same provider.
type RateLimiter struct {
	mu sync.Mutex

	// Configuration
	ratePerSecond float64
	burst         float64

	// Token bucket state
	tokens     float64
	lastUpdate time.Time

	// Statistics
	totalConsumed int64
	totalWaited   time.Duration
	last429Time   time.Time
}

// RateLimiterStatus reports current limiter state.
type RateLimiterStatus struct {
	TokensAvailable int           `json:"tokens_available"`
	RatePerSecond   float64       `json:"rate_per_second"`
	TotalConsumed   int64         `json:"total_consumed"`
	TotalWaited     time.Duration `json:"total_waited"`
	Last429Time     time.Time     `json:"last_429_time,omitempty"`
}

// NewRateLimiter creates a limiter allowing ratePerSecond requests with a
// burst of one second's worth of tokens.
func NewRateLimiter(ratePerSecond float64) *RateLimiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 1.0
	}
	burst := ratePerSecond
	if burst < 1.0 {
		burst = 1.0
	}
	return &RateLimiter{
		ratePerSecond: ratePerSecond,
		burst:         burst,
		tokens:        burst,
		lastUpdate:    time.Now(),
	}
}

// Wait blocks until a token is available or the context is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		r.refill()

		if r.tokens >= 1.0 {
			r.tokens--
			r.totalConsumed++
			r.mu.Unlock()
			return nil
		}

		tokensNeeded := 1.0 - r.tokens
		waitTime := time.Duration(tokensNeeded / r.ratePerSecond * float64(time.Second))
		r.mu.Unlock()

		// Wait outside the lock.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
			r.mu.Lock()
			r.totalWaited += waitTime
			r.mu.Unlock()
		}
	}
}

// Record429 drains the bucket after an upstream 429 so in-flight workers
// back off together.
func (r *RateLimiter) Record429(retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.last429Time = time.Now()
	r.tokens = 0
	if retryAfter > 0 {
		// Push the refill clock forward so tokens stay empty for the window.
		r.lastUpdate = time.Now().Add(retryAfter)
	}
}

// Status returns current limiter state.
func (r *RateLimiter) Status() RateLimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()

	return RateLimiterStatus{
		TokensAvailable: int(r.tokens),
		RatePerSecond:   r.ratePerSecond,
		TotalConsumed:   r.totalConsumed,
		TotalWaited:     r.totalWaited,
		Last429Time:     r.last429Time,
	}
}

// refill adds tokens based on elapsed time. Must be called with lock held.
func (r *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(r.lastUpdate).Seconds()
	if elapsed <= 0 {
		return
	}
	r.lastUpdate = now

	r.tokens += elapsed * r.ratePerSecond
	if r.tokens > r.burst {
		r.tokens = r.burst
	}
}
