package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TierAttempts tracks fetch attempts per tier and result.
	TierAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fetch_tier_attempts_total",
		Help: "The total number of fetch tier attempts by strategy and result.",
	}, []string{"strategy", "result"})
	// CacheHits tracks URL fetches served from the run cache.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fetch_cache_hits_total",
		Help: "The total number of fetches served from the run cache.",
	})
	// ChallengesDetected tracks 200 responses rejected as anti-bot challenge pages.
	ChallengesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fetch_challenges_detected_total",
		Help: "The total number of responses rejected as challenge pages.",
	})

	rateLimitDelaySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fetch_rate_limit_delay_seconds",
		Help:    "Time spent waiting on the per-domain rate limiter.",
		Buckets: prometheus.DefBuckets,
	}, []string{"domain"})
)
