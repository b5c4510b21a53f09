package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/alertdigest/alertdigest/internal/article"
	"github.com/alertdigest/alertdigest/internal/config"
)

// ReaderStrategy is the fallback-A tier: it asks a reader proxy service to
// fetch the page and hand back markdown. The proxy runs its own browser pool,
// so pages that block a plain GET often come through here.
type ReaderStrategy struct {
	client  *resty.Client
	baseURL string
	logger  *zap.Logger
}

// NewReaderStrategy constructs the reader tier from configuration.
func NewReaderStrategy(cfg config.ReaderConfig, logger *zap.Logger) *ReaderStrategy {
	client := resty.New()
	client.SetTimeout(cfg.Timeout())
	client.SetHeader("Accept", "text/plain")
	client.SetHeader("X-Return-Format", "markdown")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	return &ReaderStrategy{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  logger,
	}
}

// ID identifies this tier in reports and logs.
func (s *ReaderStrategy) ID() string { return StrategyFallbackA }

// Format reports the content format this tier produces.
func (s *ReaderStrategy) Format() article.Format { return article.FormatMarkdown }

// Fetch requests the reader proxy's rendering of the target URL.
func (s *ReaderStrategy) Fetch(ctx context.Context, rawURL string) (string, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		Get(s.baseURL + "/" + rawURL)
	if err != nil {
		return "", fmt.Errorf("reader request: %w", err)
	}
	if resp.IsError() {
		return "", &StatusError{Code: resp.StatusCode()}
	}
	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		return "", errors.New("reader returned an empty body")
	}
	return body, nil
}
