package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alertdigest/alertdigest/internal/article"
	"github.com/alertdigest/alertdigest/internal/config"
)

// urlPlaceholder marks where the target URL is substituted into configured
// command arguments.
const urlPlaceholder = "{url}"

// RenderCLIStrategy is the fallback-B tier: it shells out to an article
// extraction command (trafilatura by default) that fights harder for content
// than a plain GET. Stdout is the extracted markdown.
type RenderCLIStrategy struct {
	command string
	args    []string
	timeout time.Duration
	logger  *zap.Logger
}

// NewRenderCLIStrategy constructs the extraction command tier from
// configuration.
func NewRenderCLIStrategy(cfg config.RenderCLIConfig, logger *zap.Logger) *RenderCLIStrategy {
	return &RenderCLIStrategy{
		command: cfg.Command,
		args:    cfg.Args,
		timeout: cfg.Timeout(),
		logger:  logger,
	}
}

// ID identifies this tier in reports and logs.
func (s *RenderCLIStrategy) ID() string { return StrategyFallbackB }

// Format reports the content format this tier produces.
func (s *RenderCLIStrategy) Format() article.Format { return article.FormatMarkdown }

// Fetch runs the extraction command against the URL and returns its stdout.
// If no argument carries the {url} placeholder, the URL is appended as the
// final argument.
func (s *RenderCLIStrategy) Fetch(ctx context.Context, rawURL string) (string, error) {
	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	args := make([]string, 0, len(s.args)+1)
	substituted := false
	for _, arg := range s.args {
		if strings.Contains(arg, urlPlaceholder) {
			substituted = true
			arg = strings.ReplaceAll(arg, urlPlaceholder, rawURL)
		}
		args = append(args, arg)
	}
	if !substituted {
		args = append(args, rawURL)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, s.command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	s.logger.Debug("running extraction command",
		zap.String("command", s.command),
		zap.String("url", rawURL))

	if err := cmd.Run(); err != nil {
		if ctxErr := runCtx.Err(); ctxErr != nil {
			return "", fmt.Errorf("extraction command: %w", ctxErr)
		}
		if msg := firstLine(stderr.String()); msg != "" {
			return "", fmt.Errorf("extraction command: %w: %s", err, msg)
		}
		return "", fmt.Errorf("extraction command: %w", err)
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", errors.New("extraction command produced no output")
	}
	return out, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
