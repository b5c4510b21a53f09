// Package memory provides an in-process RunRepository for single-run use and
// tests. State lives only for the life of the process.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alertdigest/alertdigest/internal/store"
)

// RunStore is an in-memory implementation of store.RunRepository.
type RunStore struct {
	mu      sync.RWMutex
	runs    map[uuid.UUID]*runRecord
	ordered []uuid.UUID
}

type runRecord struct {
	run      store.Run
	articles map[string]store.ArticleState
	order    []string
}

// NewRunStore constructs an empty RunStore.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[uuid.UUID]*runRecord)}
}

// UpsertRunStart records the run as running. Repeated calls refresh the start
// row without losing article state.
func (s *RunStore) UpsertRunStart(_ context.Context, runID uuid.UUID, startedAt time.Time, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.ensureLocked(runID)
	rec.run.StartedAt = startedAt.UTC()
	rec.run.Status = store.RunRunning
	rec.run.Total = total
	return nil
}

// RecordArticleStatus upserts the latest state for (run, url). The run row is
// created implicitly if status events arrive ahead of the start row.
func (s *RunStore) RecordArticleStatus(_ context.Context, runID uuid.UUID, state store.ArticleState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.ensureLocked(runID)
	if _, seen := rec.articles[state.URL]; !seen {
		rec.order = append(rec.order, state.URL)
	}
	state.UpdatedAt = state.UpdatedAt.UTC()
	rec.articles[state.URL] = state
	return nil
}

// CompleteRun marks the run finished with its strategy tally.
func (s *RunStore) CompleteRun(_ context.Context, runID uuid.UUID, finishedAt time.Time, tally string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[runID]
	if !ok {
		return store.ErrNotFound
	}
	rec.run.Status = store.RunCompleted
	rec.run.FinishedAt = pointerTime(finishedAt.UTC())
	rec.run.Tally = tally
	return nil
}

// GetRun fetches a run by ID.
func (s *RunStore) GetRun(_ context.Context, runID uuid.UUID) (store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[runID]
	if !ok {
		return store.Run{}, store.ErrNotFound
	}
	return rec.run, nil
}

// ListRuns returns runs newest first, optionally filtered by status.
func (s *RunStore) ListRuns(_ context.Context, status *store.RunStatus, limit, offset int) ([]store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Run, 0, len(s.ordered))
	for i := len(s.ordered) - 1; i >= 0; i-- {
		rec := s.runs[s.ordered[i]]
		if status != nil && rec.run.Status != *status {
			continue
		}
		out = append(out, rec.run)
	}
	return window(out, limit, offset), nil
}

// ListRunArticles returns per-article states for a run in first-seen order.
func (s *RunStore) ListRunArticles(_ context.Context, runID uuid.UUID, limit, offset int) ([]store.ArticleState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[runID]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := make([]store.ArticleState, 0, len(rec.order))
	for _, url := range rec.order {
		out = append(out, rec.articles[url])
	}
	return window(out, limit, offset), nil
}

// ensureLocked returns the record for runID, creating it if needed. Callers
// must hold the write lock.
func (s *RunStore) ensureLocked(runID uuid.UUID) *runRecord {
	rec, ok := s.runs[runID]
	if !ok {
		rec = &runRecord{
			run:      store.Run{ID: runID, Status: store.RunRunning},
			articles: make(map[string]store.ArticleState),
		}
		s.runs[runID] = rec
		s.ordered = append(s.ordered, runID)
	}
	return rec
}

func window[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func pointerTime(t time.Time) *time.Time {
	ts := t
	return &ts
}
