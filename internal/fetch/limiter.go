package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DomainLimiter enforces a per-domain request rate for the primary tier so
// concurrent workers hitting the same publisher stay polite.
type DomainLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewDomainLimiter creates a limiter granting perDomainRPS requests per
// second to each domain. A rate of zero or less disables limiting.
func NewDomainLimiter(perDomainRPS float64) *DomainLimiter {
	r := rate.Limit(perDomainRPS)
	if perDomainRPS <= 0 {
		r = rate.Inf
	}
	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    1,
	}
}

// Wait blocks until the URL's domain has a token available, respecting the
// context.
func (l *DomainLimiter) Wait(ctx context.Context, rawURL string) error {
	domain := domainOf(rawURL)

	l.mu.Lock()
	limiter, exists := l.limiters[domain]
	if !exists {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[domain] = limiter
	}
	l.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		rateLimitDelaySeconds.WithLabelValues(domain).Observe(waited.Seconds())
	}
	return nil
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}
