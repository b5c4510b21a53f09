package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alertdigest/alertdigest/internal/article"
	"github.com/alertdigest/alertdigest/internal/summarize"
)

type job struct {
	index int
	ref   article.Reference
}

// processArticle drives one article through the per-article state machine,
// emitting a progress event per transition. Failed stages are terminal; no
// stage retries beyond the fetch orchestrator's own tier escalation.
func (c *Coordinator) processArticle(ctx context.Context, runID uuid.UUID, jb job) Result {
	res := Result{Index: jb.index, Reference: jb.ref}
	url := jb.ref.URL

	c.emit(c.statusEvent(runID, url, article.StatusFetching))
	fetchStart := c.now()
	outcome, err := c.fetcher.Fetch(ctx, url, c.cfg.AllowCache)
	if err != nil {
		return c.failResult(runID, res, article.StatusFetchFailed, err, "", c.now().Sub(fetchStart))
	}
	res.Outcome = outcome
	evt := c.statusEvent(runID, url, article.StatusFetched)
	evt.Strategy = outcome.Strategy
	evt.Bytes = int64(len(outcome.Content))
	evt.Dur = outcome.Duration
	c.emit(evt)

	evt = c.statusEvent(runID, url, article.StatusNormalizing)
	evt.Strategy = outcome.Strategy
	c.emit(evt)
	normStart := c.now()
	text, removed, err := c.normalizer.Normalize(outcome)
	if err != nil {
		return c.failResult(runID, res, article.StatusNormalizeFailed, err, outcome.Strategy, c.now().Sub(normStart))
	}
	res.Outcome.RemovedSections = removed
	evt = c.statusEvent(runID, url, article.StatusNormalized)
	evt.Strategy = outcome.Strategy
	evt.Dur = c.now().Sub(normStart)
	c.emit(evt)

	evt = c.statusEvent(runID, url, article.StatusSummarizing)
	evt.Strategy = outcome.Strategy
	c.emit(evt)
	sumStart := c.now()
	summary, err := c.summarizer.Summarize(ctx, summarize.Request{
		Title:     jb.ref.Title,
		URL:       url,
		Publisher: jb.ref.Publisher,
		Snippet:   jb.ref.Snippet,
		Text:      text,
	})
	if err != nil {
		return c.failResult(runID, res, article.StatusSummarizeFailed, err, outcome.Strategy, c.now().Sub(sumStart))
	}
	res.Summary = summary
	evt = c.statusEvent(runID, url, article.StatusDone)
	evt.Strategy = outcome.Strategy
	evt.Dur = c.now().Sub(sumStart)
	c.emit(evt)

	c.logger.Debug("article processed",
		zap.String("url", url),
		zap.String("strategy", outcome.Strategy),
		zap.Int("summary_chars", len(summary)),
		zap.Strings("removed_sections", removed),
	)
	return res
}

// failResult finalizes a failed article: maps the error to its closed-taxonomy
// reason, emits the terminal status, and logs once.
func (c *Coordinator) failResult(
	runID uuid.UUID,
	res Result,
	status article.Status,
	err error,
	strategy string,
	dur time.Duration,
) Result {
	res.Reason = article.FailureReason(err)
	res.Err = err

	evt := c.statusEvent(runID, res.Reference.URL, status)
	evt.Strategy = strategy
	evt.Note = string(res.Reason)
	evt.Dur = dur
	c.emit(evt)

	c.logger.Warn("article failed",
		zap.String("url", res.Reference.URL),
		zap.String("status", string(status)),
		zap.String("reason", string(res.Reason)),
		zap.Error(err),
	)
	return res
}
