package summarize

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/alertdigest/alertdigest/internal/article"
)

const defaultExcerptChars = 480

var (
	markdownLinkRe    = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	markdownHeadingRe = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	whitespaceRunRe   = regexp.MustCompile(`\s+`)
)

// Excerpt is the offline summarizer: the leading sentences of the normalized
// text up to a character budget. It keeps the binary usable end to end without
// credentials and keeps tests off the network.
type Excerpt struct {
	maxChars int
}

// NewExcerpt builds the fallback with the given budget; zero or negative
// selects the default.
func NewExcerpt(maxChars int) *Excerpt {
	if maxChars <= 0 {
		maxChars = defaultExcerptChars
	}
	return &Excerpt{maxChars: maxChars}
}

// Summarize returns the article's opening sentences. The alert snippet stands
// in when the normalized text is empty.
func (e *Excerpt) Summarize(_ context.Context, req Request) (string, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		text = strings.TrimSpace(req.Snippet)
	}
	if text == "" {
		return "", &article.SummarizeError{URL: req.URL, Err: errors.New("no text to excerpt")}
	}
	return leadingSentences(flattenMarkdown(text), e.maxChars), nil
}

// flattenMarkdown reduces markdown to plain prose: links become their label,
// heading markers drop, and whitespace collapses to single spaces.
func flattenMarkdown(text string) string {
	text = markdownLinkRe.ReplaceAllString(text, "$1")
	text = markdownHeadingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(whitespaceRunRe.ReplaceAllString(text, " "))
}

// leadingSentences accumulates whole sentences until the budget is reached.
// A first sentence longer than the budget is clipped instead of dropped.
func leadingSentences(text string, maxChars int) string {
	var b strings.Builder
	for _, sentence := range splitSentences(text) {
		if b.Len() > 0 && b.Len()+len(sentence)+1 > maxChars {
			break
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(sentence)
		if b.Len() >= maxChars {
			break
		}
	}
	out := b.String()
	if len(out) > maxChars {
		out = strings.TrimSpace(clipRunes(out, maxChars))
	}
	return out
}

func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if i+1 == len(text) || text[i+1] == ' ' {
				sentence := strings.TrimSpace(text[start : i+1])
				if sentence != "" {
					sentences = append(sentences, sentence)
				}
				start = i + 1
			}
		}
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
