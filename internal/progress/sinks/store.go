package sinks

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alertdigest/alertdigest/internal/progress"
	"github.com/alertdigest/alertdigest/internal/store"
)

// StoreSink persists run progress via a store.RunRepository. Within a batch,
// article status events collapse to the latest state per (run, url) to reduce
// write amplification.
type StoreSink struct {
	repo   store.RunRepository
	logger *zap.Logger
}

// NewStoreSink constructs a StoreSink for the provided repository.
func NewStoreSink(repo store.RunRepository, logger *zap.Logger) *StoreSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreSink{repo: repo, logger: logger}
}

// Consume applies run events in order and collapsed article states afterwards.
// It respects ctx deadlines and returns repository errors verbatim.
func (s *StoreSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.repo == nil {
		return nil
	}
	latest := make(map[stateKey]store.ArticleState)
	var order []stateKey

	for _, evt := range batch {
		runID := evt.RunUUID()
		switch evt.Stage {
		case progress.StageRunStart:
			if err := s.repo.UpsertRunStart(ctx, runID, evt.TS, int(evt.Articles)); err != nil {
				return fmt.Errorf("upsert run start: %w", err)
			}
		case progress.StageRunDone:
			if err := s.repo.CompleteRun(ctx, runID, evt.TS, evt.Note); err != nil {
				return fmt.Errorf("complete run: %w", err)
			}
		case progress.StageArticleStatus:
			s.collapseState(latest, &order, runID, evt)
		}
	}

	for _, key := range order {
		if err := s.repo.RecordArticleStatus(ctx, key.runID, latest[key]); err != nil {
			return fmt.Errorf("record article status: %w", err)
		}
	}
	return nil
}

// collapseState keeps only the newest state per (run, url), carrying the
// fetch strategy forward when a later transition omits it.
func (s *StoreSink) collapseState(
	latest map[stateKey]store.ArticleState,
	order *[]stateKey,
	runID uuid.UUID,
	evt progress.Event,
) {
	key := stateKey{runID: runID, url: evt.URL}
	state := store.ArticleState{
		URL:       evt.URL,
		Status:    evt.Status,
		Strategy:  evt.Strategy,
		Note:      evt.Note,
		UpdatedAt: evt.TS,
	}
	prev, seen := latest[key]
	if !seen {
		*order = append(*order, key)
	}
	if seen && state.Strategy == "" {
		state.Strategy = prev.Strategy
	}
	latest[key] = state
}

// Close implements the Sink interface; it performs no action.
func (s *StoreSink) Close(context.Context) error {
	return nil
}

type stateKey struct {
	runID uuid.UUID
	url   string
}
