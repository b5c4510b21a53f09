// Package summarize turns normalized article text into short digest summaries.
// The Anthropic adapter calls the model through llmkit; Excerpt is the offline
// fallback used when no API key is configured.
package summarize

import (
	"context"
	"fmt"
	"strings"
)

// Request carries one article's identity and normalized text into a
// summarization call.
type Request struct {
	Title     string
	URL       string
	Publisher string
	Snippet   string
	Text      string
}

// Summarizer produces a short prose summary for one article.
type Summarizer interface {
	Summarize(ctx context.Context, req Request) (string, error)
}

// Rough token budget for the prompt body, at about 4 chars per token.
const promptContentBudgetChars = 4 * 12000

func buildPrompt(req Request) string {
	var b strings.Builder
	if req.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", req.Title)
	}
	if req.Publisher != "" {
		fmt.Fprintf(&b, "Publisher: %s\n", req.Publisher)
	}
	fmt.Fprintf(&b, "URL: %s\n", req.URL)
	if req.Snippet != "" {
		fmt.Fprintf(&b, "Alert snippet: %s\n", req.Snippet)
	}
	b.WriteString("\nArticle text:\n")
	b.WriteString(clipRunes(req.Text, promptContentBudgetChars))
	return b.String()
}

// clipRunes truncates s to at most max bytes without splitting a rune.
func clipRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
