// Package normalize turns raw fetched content into clean markdown ready for
// summarization.
package normalize

import (
	"net/url"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"github.com/alertdigest/alertdigest/internal/article"
	"github.com/alertdigest/alertdigest/internal/config"
	"github.com/alertdigest/alertdigest/internal/fetch"
)

// Normalizer converts fetch outcomes into summarizable markdown. HTML passes
// through readability extraction and markdown conversion; pre-rendered
// markdown gets boilerplate sections stripped instead. Output below the
// minimum length is rejected rather than forwarded.
type Normalizer struct {
	converter *md.Converter
	minChars  int
	logger    *zap.Logger
}

// New builds a Normalizer from configuration.
func New(cfg config.NormalizeConfig, logger *zap.Logger) *Normalizer {
	return &Normalizer{
		converter: md.NewConverter("", true, nil),
		minChars:  cfg.MinChars,
		logger:    logger,
	}
}

// Normalize cleans the outcome's content per its format and returns the
// markdown plus the names of any boilerplate sections stripped. It fails
// with a NormalizeError when the cleaned text ends up below the minimum
// acceptable length.
func (n *Normalizer) Normalize(outcome fetch.Outcome) (string, []string, error) {
	var (
		text    string
		removed []string
		err     error
	)
	switch outcome.Format {
	case article.FormatMarkdown:
		text, removed = stripBoilerplate(outcome.Content)
	default:
		text, err = n.fromHTML(outcome)
		if err != nil {
			return "", nil, &article.NormalizeError{URL: outcome.URL, Err: err}
		}
	}

	text = strings.TrimSpace(text)
	if length := utf8.RuneCountInString(text); length < n.minChars {
		return "", removed, &article.NormalizeError{URL: outcome.URL, Length: length, Min: n.minChars}
	}
	return text, removed, nil
}

func (n *Normalizer) fromHTML(outcome fetch.Outcome) (string, error) {
	content := outcome.Content
	extracted, err := readability.FromReader(strings.NewReader(content), parsedURL(outcome.URL))
	if err != nil || strings.TrimSpace(extracted.Content) == "" {
		// Some pages defeat readability's heuristics. Convert the whole
		// document and let the length gate judge the result.
		n.logger.Debug("readability extraction failed, converting full document",
			zap.String("url", outcome.URL),
			zap.Error(err))
	} else {
		content = extracted.Content
	}
	return n.converter.ConvertString(content)
}

func parsedURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}
