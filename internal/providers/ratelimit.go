package providers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a requests-per-minute budget shared by every session that
// calls the same provider.
type RateLimiter struct {
	lim      *rate.Limiter
	perMin   int
	consumed atomic.Int64

	mu      sync.Mutex
	last429 time.Time
}

// RateLimiterStatus reports current limiter state.
type RateLimiterStatus struct {
	TokensAvailable int       `json:"tokens_available"`
	TokensLimit     int       `json:"tokens_limit"`
	TotalConsumed   int64     `json:"total_consumed"`
	Last429Time     time.Time `json:"last_429_time,omitempty"`
}

// NewRateLimiter allows requestsPerMinute calls a minute with bursts of the
// same size. Non-positive values mean 60.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &RateLimiter{
		lim:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), requestsPerMinute),
		perMin: requestsPerMinute,
	}
}

// Wait blocks until a request may go out. It fails early when ctx would
// expire first.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.lim.Wait(ctx); err != nil {
		return err
	}
	r.consumed.Add(1)
	return nil
}

// Record429 empties the budget after the provider pushed back.
func (r *RateLimiter) Record429(retryAfter time.Duration) {
	r.mu.Lock()
	r.last429 = time.Now()
	r.mu.Unlock()

	if retryAfter > 0 {
		now := time.Now()
		if n := int(r.lim.TokensAt(now)); n > 0 {
			r.lim.AllowN(now, n)
		}
	}
}

// Status returns current limiter state.
func (r *RateLimiter) Status() RateLimiterStatus {
	r.mu.Lock()
	last := r.last429
	r.mu.Unlock()
	return RateLimiterStatus{
		TokensAvailable: max(int(r.lim.Tokens()), 0),
		TokensLimit:     r.perMin,
		TotalConsumed:   r.consumed.Load(),
		Last429Time:     last,
	}
}

// limitedGenerator waits on a shared limiter before each call.
type limitedGenerator struct {
	Generator
	limiter *RateLimiter
}

// WithRateLimit wraps g so every Generate call takes a token from limiter.
// A nil limiter returns g unchanged.
func WithRateLimit(g Generator, limiter *RateLimiter) Generator {
	if limiter == nil {
		return g
	}
	return &limitedGenerator{Generator: g, limiter: limiter}
}

func (l *limitedGenerator) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	res, err := l.Generator.Generate(ctx, req)
	if rle, ok := IsRateLimitError(err); ok {
		l.limiter.Record429(rle.RetryAfter)
	}
	return res, err
}
