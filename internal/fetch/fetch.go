// Package fetch acquires raw article content by walking an ordered list of
// fetch tiers, escalating until one succeeds.
package fetch

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/alertdigest/alertdigest/internal/article"
)

// Outcome is a successful acquisition.
type Outcome struct {
	// URL is the article URL the content was fetched for.
	URL string
	// Content is the page body in Format.
	Content string
	// Strategy names the tier that produced the content, or StrategyCached.
	Strategy string
	// Format tells the normalizer whether Content is HTML or markdown.
	Format article.Format
	// Duration covers the whole acquisition including failed tiers.
	Duration time.Duration
	// RemovedSections lists boilerplate sections stripped during
	// normalization. Filled in after the fact so per-article telemetry
	// stays on one value.
	RemovedSections []string
}

// Orchestrator walks the fetch tiers in order for each URL, consulting the
// run cache first and recording every attempt.
type Orchestrator struct {
	strategies []Strategy
	cache      *Cache
	logger     *zap.Logger
	now        func() time.Time
}

// NewOrchestrator assembles an orchestrator over the given tiers. A nil cache
// disables caching entirely.
func NewOrchestrator(strategies []Strategy, cache *Cache, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		strategies: strategies,
		cache:      cache,
		logger:     logger,
		now:        time.Now,
	}
}

// Fetch returns content for the URL from the cache or the first tier that
// succeeds. allowCache gates the cache read only; successful tiers are always
// recorded so later calls can be served without refetching. On full exhaustion
// the returned error wraps the last tier's error and carries the number of
// tiers attempted.
func (o *Orchestrator) Fetch(ctx context.Context, rawURL string, allowCache bool) (Outcome, error) {
	start := o.now()

	if allowCache && o.cache != nil {
		if out, ok := o.cachedOutcome(rawURL); ok {
			out.Duration = o.now().Sub(start)
			CacheHits.Inc()
			o.logger.Debug("serving fetch from cache",
				zap.String("url", rawURL),
				zap.String("format", string(out.Format)))
			return out, nil
		}
	}

	var lastErr error
	attempts := 0
	for _, strat := range o.strategies {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			break
		}
		attempts++
		tierStart := o.now()
		content, err := strat.Fetch(ctx, rawURL)
		elapsed := o.now().Sub(tierStart)
		if err != nil {
			lastErr = err
			TierAttempts.WithLabelValues(strat.ID(), "error").Inc()
			o.logger.Warn("fetch tier failed",
				zap.String("url", rawURL),
				zap.String("strategy", strat.ID()),
				zap.Duration("elapsed", elapsed),
				zap.Error(err))
			continue
		}
		TierAttempts.WithLabelValues(strat.ID(), "success").Inc()
		o.logger.Info("fetch tier succeeded",
			zap.String("url", rawURL),
			zap.String("strategy", strat.ID()),
			zap.Duration("elapsed", elapsed),
			zap.Int("bytes", len(content)))
		if o.cache != nil {
			o.cache.Put(NamespaceFor(strat.Format()), rawURL, content)
		}
		return Outcome{
			URL:      rawURL,
			Content:  content,
			Strategy: strat.ID(),
			Format:   strat.Format(),
			Duration: o.now().Sub(start),
		}, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no fetch strategies configured")
	}
	return Outcome{}, &article.FetchError{URL: rawURL, Attempts: attempts, Err: lastErr}
}

// cachedOutcome checks each namespace in tier order so the cache answers
// with the same precedence the live tiers would.
func (o *Orchestrator) cachedOutcome(rawURL string) (Outcome, bool) {
	seen := make(map[Namespace]bool, 2)
	for _, strat := range o.strategies {
		ns := NamespaceFor(strat.Format())
		if seen[ns] {
			continue
		}
		seen[ns] = true
		if content, ok := o.cache.Get(ns, rawURL); ok {
			return Outcome{
				URL:      rawURL,
				Content:  content,
				Strategy: StrategyCached,
				Format:   FormatFor(ns),
			}, true
		}
	}
	return Outcome{}, false
}
