package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/alertdigest/alertdigest/internal/progress"
)

// PrometheusSink exports run progress metrics via Prometheus. It owns the
// collectors for runs started/completed/running plus per-status article
// counters. Runs complete unconditionally, so there is no result label on the
// run collectors; failed articles show up in the status breakdown instead.
type PrometheusSink struct {
	runsStarted   prometheus.Counter
	runsCompleted prometheus.Counter
	runsRunning   prometheus.Gauge
	runRuntime    prometheus.Histogram

	articleStatus *prometheus.CounterVec
	fetchBytes    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec

	tracker *runTracker
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "digest_runs_started_total",
			Help: "Total digest runs that have started.",
		}),
		runsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "digest_runs_completed_total",
			Help: "Total digest runs completed.",
		}),
		runsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "digest_runs_running",
			Help: "Current number of running digest runs.",
		}),
		runRuntime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "digest_run_runtime_seconds",
			Help:    "Wall time per completed run.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		articleStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "digest_article_status_total",
			Help: "Article status transitions partitioned by status.",
		}, []string{"status"}),
		fetchBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "digest_fetch_bytes_total",
			Help: "Bytes fetched per strategy.",
		}, []string{"strategy"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "digest_stage_duration_seconds",
			Help:    "Stage duration partitioned by the status the stage produced.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"status"}),
		tracker: newRunTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsCompleted,
		s.runsRunning,
		s.runRuntime,
		s.articleStatus,
		s.fetchBytes,
		s.stageDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors using the provided batch. It is
// safe for concurrent use by multiple goroutines.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageRunStart, progress.StageRunDone:
		s.handleRunEvent(evt)
	case progress.StageArticleStatus:
		s.handleArticleEvent(evt)
	}
}

func (s *PrometheusSink) handleRunEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageRunStart:
		s.runsStarted.Inc()
		if s.tracker.start(evt.RunID) {
			s.runsRunning.Inc()
		}
	case progress.StageRunDone:
		s.runsCompleted.Inc()
		if evt.Dur > 0 {
			s.runRuntime.Observe(evt.Dur.Seconds())
		}
		if s.tracker.complete(evt.RunID) {
			s.runsRunning.Dec()
		}
	}
}

func (s *PrometheusSink) handleArticleEvent(evt progress.Event) {
	status := string(evt.Status)
	s.articleStatus.WithLabelValues(status).Inc()
	if evt.Bytes > 0 {
		strategy := evt.Strategy
		if strategy == "" {
			strategy = "unknown"
		}
		s.fetchBytes.WithLabelValues(strategy).Add(float64(evt.Bytes))
	}
	if evt.Dur > 0 {
		s.stageDuration.WithLabelValues(status).Observe(evt.Dur.Seconds())
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

type runTracker struct {
	mu      sync.Mutex
	running map[[16]byte]struct{}
}

func newRunTracker() *runTracker {
	return &runTracker{running: make(map[[16]byte]struct{})}
}

func (t *runTracker) start(id [16]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; ok {
		return false
	}
	t.running[id] = struct{}{}
	return true
}

func (t *runTracker) complete(id [16]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; !ok {
		return false
	}
	delete(t.running, id)
	return true
}
