package fetch

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/alertdigest/alertdigest/internal/article"
	"github.com/alertdigest/alertdigest/internal/config"
)

// DirectStrategy is the primary tier: a plain HTTP GET through a tuned Colly
// collector with per-domain headers, per-domain rate limiting, retry on
// transient failures, and challenge detection on successful responses.
type DirectStrategy struct {
	base     *colly.Collector
	headers  config.Headers
	limiter  *DomainLimiter
	retry    *RetryPolicy
	detector *ChallengeDetector
	logger   *zap.Logger
}

// NewDirectStrategy constructs the primary tier from configuration. A nil
// detector disables challenge detection.
func NewDirectStrategy(cfg config.PrimaryConfig, headers config.Headers, detector *ChallengeDetector, logger *zap.Logger) *DirectStrategy {
	base := colly.NewCollector(
		colly.Async(true),
		colly.UserAgent(cfg.UserAgent),
	)
	// Retries revisit the same URL through cloned collectors that share the
	// visit store, so revisits must stay allowed.
	base.AllowURLRevisit = true
	if cfg.MaxBodyBytes > 0 {
		base.MaxBodySize = cfg.MaxBodyBytes
	}
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          128,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout(),
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.Timeout())

	return &DirectStrategy{
		base:     base,
		headers:  headers,
		limiter:  NewDomainLimiter(cfg.RatePerDomain),
		retry:    NewRetryPolicy(cfg.MaxRetries, cfg.BackoffInitial(), cfg.BackoffMax()),
		detector: detector,
		logger:   logger,
	}
}

// ID identifies this tier in reports and logs.
func (s *DirectStrategy) ID() string { return StrategyPrimary }

// Format reports the content format this tier produces.
func (s *DirectStrategy) Format() article.Format { return article.FormatHTML }

// Fetch retrieves the page, retrying transient failures with backoff. Bot
// protection responses and challenge pages return immediately so the caller
// can escalate.
func (s *DirectStrategy) Fetch(ctx context.Context, rawURL string) (string, error) {
	attempt := 0
	for {
		body, err := s.fetchOnce(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		if !s.retry.ShouldRetry(err, attempt) {
			return "", err
		}
		wait := s.retry.Backoff(attempt)
		s.logger.Debug("retrying direct fetch",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err))
		if sleepErr := sleepCtx(ctx, wait); sleepErr != nil {
			return "", sleepErr
		}
		attempt++
	}
}

func (s *DirectStrategy) fetchOnce(ctx context.Context, rawURL string) (string, error) {
	if err := s.limiter.Wait(ctx, rawURL); err != nil {
		return "", err
	}

	collector := s.base.Clone()
	resultCh := make(chan directResult, 1)
	var once sync.Once
	send := func(res directResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	collector.OnRequest(func(r *colly.Request) {
		for k, v := range s.headers.ForURL(rawURL) {
			r.Headers.Set(k, v)
		}
	})

	collector.OnResponse(func(r *colly.Response) {
		send(directResult{body: append([]byte{}, r.Body...)})
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode >= http.StatusBadRequest {
			send(directResult{err: &StatusError{Code: r.StatusCode}})
			return
		}
		if err == nil {
			err = errors.New("unknown collector error")
		}
		send(directResult{err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return "", err
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if res.err != nil {
			return "", res.err
		}
		if signal, ok := s.detector.Detect(res.body); ok {
			ChallengesDetected.Inc()
			return "", &ChallengeError{Signal: signal}
		}
		return string(res.body), nil
	default:
		return "", errors.New("collector produced no result")
	}
}

type directResult struct {
	body []byte
	err  error
}
