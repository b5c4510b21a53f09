package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alertdigest/alertdigest/internal/article"
	"github.com/alertdigest/alertdigest/internal/store"
)

func TestRunHandlerListRuns(t *testing.T) {
	t.Parallel()

	repo := &mockRunRepo{
		runs: []store.Run{
			{
				ID:        uuid.New(),
				Status:    store.RunCompleted,
				StartedAt: time.Now().Add(-time.Hour),
				Total:     4,
				Tally:     "primary=3, cached=1",
			},
		},
	}
	handler := NewRunHandler(repo, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/runs?status=completed&limit=10", nil)
	rec := httptest.NewRecorder()

	handler.ListRuns(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Runs []map[string]any `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Runs, 1)
	require.Equal(t, "primary=3, cached=1", body.Runs[0]["tally"])
	require.NotNil(t, repo.lastStatus)
	require.Equal(t, store.RunCompleted, *repo.lastStatus)
}

func TestRunHandlerListRunsInvalidStatus(t *testing.T) {
	t.Parallel()

	handler := NewRunHandler(&mockRunRepo{}, zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/v1/runs?status=exploded", nil)
	rec := httptest.NewRecorder()

	handler.ListRuns(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunHandlerGetRunNotFound(t *testing.T) {
	t.Parallel()

	repo := &mockRunRepo{err: store.ErrNotFound}
	handler := NewRunHandler(repo, zap.NewNop())

	runID := uuid.New()
	req := withRunIDParam(httptest.NewRequest(http.MethodGet, "/v1/runs/"+runID.String(), nil), runID.String())
	rec := httptest.NewRecorder()

	handler.GetRun(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunHandlerGetRunMalformedID(t *testing.T) {
	t.Parallel()

	handler := NewRunHandler(&mockRunRepo{}, zap.NewNop())
	req := withRunIDParam(httptest.NewRequest(http.MethodGet, "/v1/runs/not-a-uuid", nil), "not-a-uuid")
	rec := httptest.NewRecorder()

	handler.GetRun(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunHandlerListRunArticlesInvalidLimit(t *testing.T) {
	t.Parallel()

	handler := NewRunHandler(&mockRunRepo{}, zap.NewNop())
	runID := uuid.New()
	req := withRunIDParam(
		httptest.NewRequest(http.MethodGet, "/v1/runs/"+runID.String()+"/articles?limit=-1", nil),
		runID.String(),
	)
	rec := httptest.NewRecorder()

	handler.ListRunArticles(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunHandlerListRunArticles(t *testing.T) {
	t.Parallel()

	repo := &mockRunRepo{
		articles: []store.ArticleState{
			{
				URL:       "https://example.com/a",
				Status:    article.StatusDone,
				Strategy:  "primary",
				UpdatedAt: time.Now(),
			},
			{
				URL:       "https://example.com/b",
				Status:    article.StatusFetchFailed,
				Note:      "fetch exhausted",
				UpdatedAt: time.Now(),
			},
		},
	}
	handler := NewRunHandler(repo, zap.NewNop())

	runID := uuid.New()
	req := withRunIDParam(
		httptest.NewRequest(http.MethodGet, "/v1/runs/"+runID.String()+"/articles", nil),
		runID.String(),
	)
	rec := httptest.NewRecorder()

	handler.ListRunArticles(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Articles []map[string]any `json:"articles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Articles, 2)
	require.Equal(t, "done", body.Articles[0]["status"])
	require.Equal(t, "fetch exhausted", body.Articles[1]["note"])
}

func TestRunHandlerNilRepo(t *testing.T) {
	t.Parallel()

	handler := NewRunHandler(nil, zap.NewNop())
	rec := httptest.NewRecorder()
	handler.ListRuns(rec, httptest.NewRequest(http.MethodGet, "/v1/runs", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type mockRunRepo struct {
	runs       []store.Run
	articles   []store.ArticleState
	err        error
	lastStatus *store.RunStatus
}

func (m *mockRunRepo) UpsertRunStart(context.Context, uuid.UUID, time.Time, int) error {
	return m.err
}

func (m *mockRunRepo) RecordArticleStatus(context.Context, uuid.UUID, store.ArticleState) error {
	return m.err
}

func (m *mockRunRepo) CompleteRun(context.Context, uuid.UUID, time.Time, string) error {
	return m.err
}

func (m *mockRunRepo) GetRun(context.Context, uuid.UUID) (store.Run, error) {
	if len(m.runs) > 0 {
		return m.runs[0], nil
	}
	if m.err != nil {
		return store.Run{}, m.err
	}
	return store.Run{}, errors.New("no runs configured")
}

func (m *mockRunRepo) ListRuns(_ context.Context, status *store.RunStatus, _, _ int) ([]store.Run, error) {
	m.lastStatus = status
	return m.runs, m.err
}

func (m *mockRunRepo) ListRunArticles(context.Context, uuid.UUID, int, int) ([]store.ArticleState, error) {
	return m.articles, m.err
}

func withRunIDParam(r *http.Request, runID string) *http.Request {
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("run_id", runID)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, ctx))
}
