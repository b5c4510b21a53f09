// Package pipeline runs the fetch, normalize, summarize flow over a run's
// articles with a fixed worker pool and assembles the final report.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alertdigest/alertdigest/internal/article"
	"github.com/alertdigest/alertdigest/internal/fetch"
	"github.com/alertdigest/alertdigest/internal/progress"
	"github.com/alertdigest/alertdigest/internal/summarize"
)

const defaultWorkers = 5

// Fetcher acquires raw content for one URL through the strategy chain.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, allowCache bool) (fetch.Outcome, error)
}

// Normalizer reduces a fetched payload to clean article text.
type Normalizer interface {
	Normalize(outcome fetch.Outcome) (text string, removed []string, err error)
}

// Config controls the worker pool.
type Config struct {
	// Workers caps simultaneous in-flight articles, and with them the
	// outbound network and LLM calls.
	Workers int
	// AllowCache gates fetch cache reads for the whole run.
	AllowCache bool
	// Strategies lists the configured tier IDs in escalation order, used
	// for the end-of-run tally.
	Strategies []string
}

// Coordinator dispatches each article to a pooled worker and collects
// terminal results. One article's entire pipeline runs on a single worker;
// the only cross-worker state is the fetch cache.
type Coordinator struct {
	cfg        Config
	fetcher    Fetcher
	normalizer Normalizer
	summarizer summarize.Summarizer
	emitter    progress.Emitter
	logger     *zap.Logger
	now        func() time.Time
}

// NewCoordinator wires the pipeline stages together. emitter may be nil when
// progress reporting is not needed.
func NewCoordinator(
	cfg Config,
	fetcher Fetcher,
	normalizer Normalizer,
	summarizer summarize.Summarizer,
	emitter progress.Emitter,
	logger *zap.Logger,
) *Coordinator {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		cfg:        cfg,
		fetcher:    fetcher,
		normalizer: normalizer,
		summarizer: summarizer,
		emitter:    emitter,
		logger:     logger,
		now:        time.Now,
	}
}

// ProcessAll runs every article through the pipeline and returns results in
// completion order; Assemble restores input order. Each article fails or
// succeeds on its own: a panic or error in one never disturbs its siblings or
// the pool.
func (c *Coordinator) ProcessAll(ctx context.Context, runID uuid.UUID, refs []article.Reference) []Result {
	start := c.now()
	c.emit(progress.Event{
		RunID:    progress.UUIDToBytes(runID),
		TS:       start,
		Stage:    progress.StageRunStart,
		Articles: int64(len(refs)),
	})
	for _, ref := range refs {
		c.emit(c.statusEvent(runID, ref.URL, article.StatusPending))
	}

	jobs := make(chan job)
	resultCh := make(chan Result)

	var wg sync.WaitGroup
	for i := 0; i < c.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for jb := range jobs {
				resultCh <- c.runArticle(ctx, runID, jb)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, ref := range refs {
			select {
			case jobs <- job{index: i, ref: ref}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]Result, 0, len(refs))
	failed := 0
	for res := range resultCh {
		if res.Failed() {
			failed++
		}
		results = append(results, res)
	}

	elapsed := c.now().Sub(start)
	tally := Tally(c.cfg.Strategies, results)
	c.emit(progress.Event{
		RunID:    progress.UUIDToBytes(runID),
		TS:       c.now(),
		Stage:    progress.StageRunDone,
		Articles: int64(len(refs)),
		Dur:      elapsed,
		Note:     tally,
	})
	c.logger.Info("run complete",
		zap.Stringer("run_id", runID),
		zap.Int("articles", len(refs)),
		zap.Int("failed", failed),
		zap.Duration("elapsed", elapsed),
		zap.String("tally", tally),
	)
	return results
}

// runArticle guards one article's pipeline with a recover so a panic becomes
// an ordinary failure result.
func (c *Coordinator) runArticle(ctx context.Context, runID uuid.UUID, jb job) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("article worker panicked",
				zap.String("url", jb.ref.URL),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			res = Result{
				Index:     jb.index,
				Reference: jb.ref,
				Reason:    article.ReasonUnexpected,
				Err: &article.UnexpectedError{
					URL: jb.ref.URL,
					Err: fmt.Errorf("panic: %v", r),
				},
			}
		}
	}()
	return c.processArticle(ctx, runID, jb)
}

func (c *Coordinator) emit(evt progress.Event) {
	if c.emitter == nil {
		return
	}
	c.emitter.Emit(evt)
}

func (c *Coordinator) statusEvent(runID uuid.UUID, url string, status article.Status) progress.Event {
	return progress.Event{
		RunID:  progress.UUIDToBytes(runID),
		TS:     c.now(),
		Stage:  progress.StageArticleStatus,
		URL:    url,
		Status: status,
	}
}
