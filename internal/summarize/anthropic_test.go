package summarize

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alertdigest/alertdigest/internal/article"
	"github.com/alertdigest/alertdigest/internal/config"
)

func testAnthropic(call promptFunc, timeout time.Duration) *Anthropic {
	return &Anthropic{call: call, timeout: timeout, logger: zap.NewNop()}
}

func TestAnthropicSummarizeSuccess(t *testing.T) {
	t.Parallel()

	var gotSystem, gotUser string
	a := testAnthropic(func(systemPrompt, userPrompt string) (string, error) {
		gotSystem = systemPrompt
		gotUser = userPrompt
		return "  Wheat futures fell four percent after the export deal collapsed.  ", nil
	}, time.Second)

	req := Request{
		Title:     "Wheat slides",
		URL:       "https://news.example.com/wheat",
		Publisher: "Commodity Wire",
		Snippet:   "Futures slip on export news",
		Text:      "Wheat futures fell sharply on Monday.",
	}
	summary, err := a.Summarize(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "Wheat futures fell four percent after the export deal collapsed.", summary)

	require.Contains(t, gotSystem, "news digest assistant")
	require.Contains(t, gotUser, "Title: Wheat slides")
	require.Contains(t, gotUser, "Publisher: Commodity Wire")
	require.Contains(t, gotUser, "URL: https://news.example.com/wheat")
	require.Contains(t, gotUser, "Wheat futures fell sharply")
}

func TestAnthropicSummarizeWrapsErrors(t *testing.T) {
	t.Parallel()

	a := testAnthropic(func(string, string) (string, error) {
		return "", errors.New("rate limited")
	}, time.Second)

	_, err := a.Summarize(context.Background(), Request{URL: "https://news.example.com/x"})
	require.Error(t, err)
	var sumErr *article.SummarizeError
	require.ErrorAs(t, err, &sumErr)
	require.Equal(t, "https://news.example.com/x", sumErr.URL)
	require.Equal(t, article.ReasonSummarizeFailed, article.FailureReason(err))
}

func TestAnthropicSummarizeRejectsEmptyResponse(t *testing.T) {
	t.Parallel()

	a := testAnthropic(func(string, string) (string, error) {
		return "   \n", nil
	}, time.Second)

	_, err := a.Summarize(context.Background(), Request{URL: "https://news.example.com/x"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty summary")
}

func TestAnthropicSummarizeTimesOut(t *testing.T) {
	t.Parallel()

	a := testAnthropic(func(string, string) (string, error) {
		time.Sleep(500 * time.Millisecond)
		return "too late", nil
	}, 30*time.Millisecond)

	start := time.Now()
	_, err := a.Summarize(context.Background(), Request{URL: "https://news.example.com/slow"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	var sumErr *article.SummarizeError
	require.ErrorAs(t, err, &sumErr)
	require.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestAnthropicSummarizeHonorsParentCancel(t *testing.T) {
	t.Parallel()

	a := testAnthropic(func(string, string) (string, error) {
		time.Sleep(time.Second)
		return "too late", nil
	}, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Summarize(ctx, Request{URL: "https://news.example.com/x"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewAnthropicDefaults(t *testing.T) {
	t.Parallel()

	a := NewAnthropic(config.SummarizeConfig{}, nil)
	require.NotNil(t, a.call)
	require.Equal(t, defaultSummarizeTimeout, a.timeout)
}
