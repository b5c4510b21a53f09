package summarize

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
	"go.uber.org/zap"

	"github.com/alertdigest/alertdigest/internal/article"
	"github.com/alertdigest/alertdigest/internal/config"
)

const anthropicSystemPrompt = "You are a news digest assistant. Summarize the " +
	"article in 3-5 sentences of plain prose. Lead with the main development, " +
	"keep concrete figures when present, and do not editorialize."

const defaultSummarizeTimeout = 60 * time.Second

// promptFunc issues one model call. Split out so tests can stub the network.
type promptFunc func(systemPrompt, userPrompt string) (string, error)

// Anthropic summarizes articles through llmkit. The client has no context
// parameter, so each call runs in its own goroutine and is abandoned when the
// deadline fires; the goroutine finishes in the background and its result is
// discarded.
type Anthropic struct {
	call    promptFunc
	timeout time.Duration
	logger  *zap.Logger
}

// NewAnthropic builds the adapter from config. Model, max tokens, and
// temperature are fixed per process.
func NewAnthropic(cfg config.SummarizeConfig, logger *zap.Logger) *Anthropic {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = defaultSummarizeTimeout
	}
	settings := types.RequestSettings{
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
	apiKey := cfg.APIKey
	return &Anthropic{
		call: func(systemPrompt, userPrompt string) (string, error) {
			resp, err := anthropic.PromptWithSettings(systemPrompt, userPrompt, "", apiKey, settings)
			if err != nil {
				return "", err
			}
			if len(resp.Content) == 0 {
				return "", errors.New("response carried no content blocks")
			}
			return resp.Content[0].Text, nil
		},
		timeout: timeout,
		logger:  logger,
	}
}

// Summarize issues one bounded model call and returns the trimmed summary.
// All failures, including deadline expiry, surface as article.SummarizeError.
func (a *Anthropic) Summarize(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	type callResult struct {
		text string
		err  error
	}
	resultCh := make(chan callResult, 1)
	start := time.Now()
	go func() {
		text, err := a.call(anthropicSystemPrompt, buildPrompt(req))
		resultCh <- callResult{text: text, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			return "", &article.SummarizeError{URL: req.URL, Err: res.err}
		}
		summary := strings.TrimSpace(res.text)
		if summary == "" {
			return "", &article.SummarizeError{URL: req.URL, Err: errors.New("model returned an empty summary")}
		}
		a.logger.Debug("summarized article",
			zap.String("url", req.URL),
			zap.Duration("dur", time.Since(start)),
			zap.Int("summary_chars", len(summary)),
		)
		return summary, nil
	case <-ctx.Done():
		a.logger.Warn("summarization abandoned",
			zap.String("url", req.URL),
			zap.Duration("after", time.Since(start)),
			zap.Error(ctx.Err()),
		)
		return "", &article.SummarizeError{URL: req.URL, Err: ctx.Err()}
	}
}
