package fetch

import (
	"context"
	"fmt"
	"net/http"

	"github.com/alertdigest/alertdigest/internal/article"
)

// Tier identifiers in escalation order. StrategyCached labels content served
// from the run cache and never appears in the configured tier list.
const (
	StrategyPrimary   = "primary"
	StrategyFallbackA = "fallback-A"
	StrategyFallbackB = "fallback-B"
	StrategyHeadless  = "headless"
	StrategyCached    = "cached"
)

// Strategy is a single fetch tier. Fetch returns page content in the tier's
// native format; the error it returns drives the orchestrator's escalation.
type Strategy interface {
	ID() string
	Format() article.Format
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// StatusError reports a non-2xx HTTP response from a fetch tier.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.Code, http.StatusText(e.Code))
}

// BotProtected reports whether the status is one bot-protection layers hand
// out. Retrying the same tier against these only burns goodwill, so the
// orchestrator escalates instead.
func (e *StatusError) BotProtected() bool {
	switch e.Code {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	default:
		return false
	}
}

// ChallengeError reports a 200 response whose body is an anti-bot
// interstitial rather than the article.
type ChallengeError struct {
	Signal string
}

func (e *ChallengeError) Error() string {
	return fmt.Sprintf("challenge page detected: %s", e.Signal)
}
