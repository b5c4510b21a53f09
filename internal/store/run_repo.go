package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/alertdigest/alertdigest/internal/article"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("run record not found")

// RunStatus mirrors the lifecycle of one digest run.
type RunStatus string

// Run statuses. A run never fails as a whole: articles that exhaust the
// pipeline land in the report's missing partition while the run itself still
// completes.
const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
)

// Run models one digest run for API responses.
type Run struct {
	// ID is the run identifier shared with progress events.
	ID uuid.UUID
	// StartedAt captures when the run was first marked running.
	StartedAt time.Time
	// FinishedAt is nil until the run completes.
	FinishedAt *time.Time
	// Status is running/completed.
	Status RunStatus
	// Total is the number of article references submitted to the run.
	Total int
	// Tally summarizes per-strategy usage, set on completion.
	Tally string
}

// ArticleState captures the latest pipeline status for one article in a run.
type ArticleState struct {
	// URL identifies the article within the run.
	URL string
	// Status is the most recent pipeline state.
	Status article.Status
	// Strategy names the fetch tier that produced the content, when known.
	Strategy string
	// Note optionally holds a failure reason or other detail.
	Note string
	// UpdatedAt is the timestamp of the latest transition.
	UpdatedAt time.Time
}

// RunRepository persists incremental run progress.
type RunRepository interface {
	// UpsertRunStart inserts (or idempotently updates) the run's start row.
	UpsertRunStart(ctx context.Context, runID uuid.UUID, startedAt time.Time, total int) error
	// RecordArticleStatus upserts the latest state for (run, url).
	RecordArticleStatus(ctx context.Context, runID uuid.UUID, state ArticleState) error
	// CompleteRun marks the run finished and records the strategy tally.
	CompleteRun(ctx context.Context, runID uuid.UUID, finishedAt time.Time, tally string) error

	// GetRun loads a single run or returns ErrNotFound.
	GetRun(ctx context.Context, runID uuid.UUID) (Run, error)
	// ListRuns returns runs newest first, filtered by optional status plus
	// limit/offset.
	ListRuns(ctx context.Context, status *RunStatus, limit, offset int) ([]Run, error)
	// ListRunArticles returns per-article states for one run in first-seen
	// order, or ErrNotFound for an unknown run.
	ListRunArticles(ctx context.Context, runID uuid.UUID, limit, offset int) ([]ArticleState, error)
}
