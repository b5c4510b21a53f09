package fetch

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alertdigest/alertdigest/internal/config"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires POSIX shell tools")
	}
}

func TestRenderCLIStrategySubstitutesURL(t *testing.T) {
	skipWithoutShell(t)

	cfg := config.RenderCLIConfig{
		Command:        "echo",
		Args:           []string{"# Extracted from {url}"},
		TimeoutSeconds: 5,
	}
	s := NewRenderCLIStrategy(cfg, zap.NewNop())
	require.Equal(t, StrategyFallbackB, s.ID())
	require.Equal(t, "markdown", string(s.Format()))

	out, err := s.Fetch(context.Background(), "https://example.com/story")
	require.NoError(t, err)
	require.Equal(t, "# Extracted from https://example.com/story", out)
}

func TestRenderCLIStrategyAppendsURLWithoutPlaceholder(t *testing.T) {
	skipWithoutShell(t)

	cfg := config.RenderCLIConfig{Command: "echo", TimeoutSeconds: 5}
	s := NewRenderCLIStrategy(cfg, zap.NewNop())

	out, err := s.Fetch(context.Background(), "https://example.com/story")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/story", out)
}

func TestRenderCLIStrategyCapturesStderr(t *testing.T) {
	skipWithoutShell(t)

	cfg := config.RenderCLIConfig{
		Command:        "sh",
		Args:           []string{"-c", "echo extraction blew up >&2; exit 3"},
		TimeoutSeconds: 5,
	}
	s := NewRenderCLIStrategy(cfg, zap.NewNop())

	_, err := s.Fetch(context.Background(), "https://example.com/story")
	require.Error(t, err)
	require.Contains(t, err.Error(), "extraction blew up")
}

func TestRenderCLIStrategyEmptyOutput(t *testing.T) {
	skipWithoutShell(t)

	cfg := config.RenderCLIConfig{Command: "true", Args: []string{"{url}"}, TimeoutSeconds: 5}
	s := NewRenderCLIStrategy(cfg, zap.NewNop())

	_, err := s.Fetch(context.Background(), "https://example.com/story")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no output")
}

func TestRenderCLIStrategyMissingCommand(t *testing.T) {
	cfg := config.RenderCLIConfig{Command: "definitely-not-installed-anywhere", TimeoutSeconds: 5}
	s := NewRenderCLIStrategy(cfg, zap.NewNop())

	_, err := s.Fetch(context.Background(), "https://example.com/story")
	require.Error(t, err)
}

func TestRenderCLIStrategyHonorsContext(t *testing.T) {
	skipWithoutShell(t)

	cfg := config.RenderCLIConfig{
		Command:        "sh",
		Args:           []string{"-c", "sleep 5", "{url}"},
		TimeoutSeconds: 30,
	}
	s := NewRenderCLIStrategy(cfg, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := s.Fetch(ctx, "https://example.com/story")
	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	require.Less(t, time.Since(start), 3*time.Second)
}
