package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/alertdigest/alertdigest/internal/article"
	"github.com/alertdigest/alertdigest/internal/store"
)

func TestRunStoreLifecycle(t *testing.T) {
	t.Parallel()

	rs := NewRunStore()
	ctx := context.Background()
	runID := uuid.New()
	started := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)

	if err := rs.UpsertRunStart(ctx, runID, started, 3); err != nil {
		t.Fatalf("UpsertRunStart() error = %v", err)
	}
	states := []store.ArticleState{
		{URL: "https://example.com/a", Status: article.StatusFetching, UpdatedAt: started.Add(time.Second)},
		{URL: "https://example.com/b", Status: article.StatusFetching, UpdatedAt: started.Add(time.Second)},
		{
			URL:       "https://example.com/a",
			Status:    article.StatusDone,
			Strategy:  "primary",
			UpdatedAt: started.Add(5 * time.Second),
		},
	}
	for _, st := range states {
		if err := rs.RecordArticleStatus(ctx, runID, st); err != nil {
			t.Fatalf("RecordArticleStatus(%s) error = %v", st.URL, err)
		}
	}
	if err := rs.CompleteRun(ctx, runID, started.Add(10*time.Second), "primary=1"); err != nil {
		t.Fatalf("CompleteRun() error = %v", err)
	}

	run, err := rs.GetRun(ctx, runID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run.Status != store.RunCompleted || run.FinishedAt == nil || run.Tally != "primary=1" {
		t.Fatalf("expected completed run with tally, got %+v", run)
	}
	if run.Total != 3 {
		t.Fatalf("expected total 3, got %d", run.Total)
	}

	articles, err := rs.ListRunArticles(ctx, runID, 0, 0)
	if err != nil {
		t.Fatalf("ListRunArticles() error = %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 article rows, got %d", len(articles))
	}
	if articles[0].URL != "https://example.com/a" || articles[0].Status != article.StatusDone {
		t.Fatalf("expected latest state for first-seen URL, got %+v", articles[0])
	}
}

func TestRunStoreUnknownRun(t *testing.T) {
	t.Parallel()

	rs := NewRunStore()
	ctx := context.Background()
	runID := uuid.New()

	if _, err := rs.GetRun(ctx, runID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("GetRun() error = %v, want ErrNotFound", err)
	}
	if err := rs.CompleteRun(ctx, runID, time.Now(), ""); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("CompleteRun() error = %v, want ErrNotFound", err)
	}
	if _, err := rs.ListRunArticles(ctx, runID, 0, 0); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("ListRunArticles() error = %v, want ErrNotFound", err)
	}
}

func TestRunStoreImplicitRunFromStatus(t *testing.T) {
	t.Parallel()

	rs := NewRunStore()
	ctx := context.Background()
	runID := uuid.New()

	state := store.ArticleState{
		URL:       "https://example.com/x",
		Status:    article.StatusPending,
		UpdatedAt: time.Now(),
	}
	if err := rs.RecordArticleStatus(ctx, runID, state); err != nil {
		t.Fatalf("RecordArticleStatus() error = %v", err)
	}
	run, err := rs.GetRun(ctx, runID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run.Status != store.RunRunning {
		t.Fatalf("expected implicit running run, got %+v", run)
	}
}

func TestRunStoreListRuns(t *testing.T) {
	t.Parallel()

	rs := NewRunStore()
	ctx := context.Background()
	first := uuid.New()
	second := uuid.New()
	base := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)

	if err := rs.UpsertRunStart(ctx, first, base, 1); err != nil {
		t.Fatalf("UpsertRunStart(first) error = %v", err)
	}
	if err := rs.UpsertRunStart(ctx, second, base.Add(time.Minute), 2); err != nil {
		t.Fatalf("UpsertRunStart(second) error = %v", err)
	}
	if err := rs.CompleteRun(ctx, first, base.Add(time.Hour), "primary=1"); err != nil {
		t.Fatalf("CompleteRun(first) error = %v", err)
	}

	all, err := rs.ListRuns(ctx, nil, 0, 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(all) != 2 || all[0].ID != second {
		t.Fatalf("expected newest-first listing, got %+v", all)
	}

	completed := store.RunCompleted
	done, err := rs.ListRuns(ctx, &completed, 0, 0)
	if err != nil {
		t.Fatalf("ListRuns(completed) error = %v", err)
	}
	if len(done) != 1 || done[0].ID != first {
		t.Fatalf("expected only the completed run, got %+v", done)
	}

	paged, err := rs.ListRuns(ctx, nil, 1, 1)
	if err != nil {
		t.Fatalf("ListRuns(paged) error = %v", err)
	}
	if len(paged) != 1 || paged[0].ID != first {
		t.Fatalf("expected second page to hold the older run, got %+v", paged)
	}
}
