package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alertdigest/alertdigest/internal/article"
	"github.com/alertdigest/alertdigest/internal/config"
	"github.com/alertdigest/alertdigest/internal/digest"
	"github.com/alertdigest/alertdigest/internal/fetch"
	"github.com/alertdigest/alertdigest/internal/pipeline"
	"github.com/alertdigest/alertdigest/internal/summarize"
)

func defaultConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestReadArticles(t *testing.T) {
	valid := `[{"title":"A","url":"https://example.com/a"},{"url":"https://example.com/b","publisher":"Example"}]`

	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "articles.json")
		require.NoError(t, os.WriteFile(path, []byte(valid), 0o600))

		refs, err := readArticles(path, nil)
		require.NoError(t, err)
		require.Len(t, refs, 2)
		assert.Equal(t, "A", refs[0].Title)
		assert.Equal(t, "https://example.com/b", refs[1].URL)
		assert.Equal(t, "Example", refs[1].Publisher)
	})

	t.Run("from stdin", func(t *testing.T) {
		refs, err := readArticles("-", strings.NewReader(valid))
		require.NoError(t, err)
		assert.Len(t, refs, 2)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := readArticles(filepath.Join(t.TempDir(), "absent.json"), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read article list")
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := readArticles("-", strings.NewReader(`{"not":"a list"}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse article list")
	})

	t.Run("empty list", func(t *testing.T) {
		_, err := readArticles("-", strings.NewReader(`[]`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "article list is empty")
	})

	t.Run("entry without url", func(t *testing.T) {
		_, err := readArticles("-", strings.NewReader(`[{"title":"A","url":"https://example.com/a"},{"title":"B"}]`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "article 1 has no url")
	})
}

func TestBuildStrategies(t *testing.T) {
	cfg := defaultConfig(t)

	strategies, headless, err := buildStrategies(cfg, config.Headers{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, headless)

	assert.Equal(t, []string{
		fetch.StrategyPrimary,
		fetch.StrategyFallbackA,
		fetch.StrategyFallbackB,
	}, strategyIDs(strategies))
}

func TestBuildStrategiesWithoutDetector(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Fetch.Detector.Enabled = false

	strategies, _, err := buildStrategies(cfg, config.Headers{}, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, strategies, 3)
}

func TestBuildSummarizer(t *testing.T) {
	logger := zap.NewNop()
	configured := config.SummarizeConfig{
		Provider:       "anthropic",
		Model:          "claude-sonnet-4-20250514",
		MaxTokens:      300,
		TimeoutSeconds: 60,
		APIKey:         "test-key",
	}

	t.Run("offline picks excerpt", func(t *testing.T) {
		s, err := buildSummarizer(configured, true, logger)
		require.NoError(t, err)
		assert.IsType(t, &summarize.Excerpt{}, s)
	})

	t.Run("missing key picks excerpt", func(t *testing.T) {
		cfg := configured
		cfg.APIKey = ""
		s, err := buildSummarizer(cfg, false, logger)
		require.NoError(t, err)
		assert.IsType(t, &summarize.Excerpt{}, s)
	})

	t.Run("anthropic provider", func(t *testing.T) {
		s, err := buildSummarizer(configured, false, logger)
		require.NoError(t, err)
		assert.IsType(t, &summarize.Anthropic{}, s)
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := configured
		cfg.Provider = "parrot"
		_, err := buildSummarizer(cfg, false, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown summarize provider")
	})
}

func TestWriteDigest(t *testing.T) {
	ref := article.Reference{Title: "Rates Hold Steady", URL: "https://example.com/rates"}
	report := pipeline.Assemble(
		[]article.Reference{ref},
		[]pipeline.Result{{Index: 0, Reference: ref, Summary: "Nothing moved."}},
	)
	meta := digest.Metadata{
		RunID:       uuid.MustParse("a2e19915-8405-4759-a907-3d7ff1ca7d72"),
		GeneratedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Tally:       "primary=1, cached=0",
	}

	t.Run("to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "digest.md")

		require.NoError(t, writeDigest(newRunCmd(), path, meta, report))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "# Alert Digest")
		assert.Contains(t, string(raw), "## Rates Hold Steady")
	})

	t.Run("to stdout", func(t *testing.T) {
		cmd := newRunCmd()
		var buf bytes.Buffer
		cmd.SetOut(&buf)

		require.NoError(t, writeDigest(cmd, "", meta, report))
		assert.Contains(t, buf.String(), "# Alert Digest")
		assert.Contains(t, buf.String(), "Fetch tally: primary=1, cached=0")
	})

	t.Run("unwritable path", func(t *testing.T) {
		err := writeDigest(newRunCmd(), filepath.Join(t.TempDir(), "no", "such", "dir", "digest.md"), meta, report)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "create digest file")
	})
}
