package fetch

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ChallengeDetector flags responses that came back 200 but carry an anti-bot
// interstitial instead of the article body. A nil detector never flags.
type ChallengeDetector struct {
	minHTMLBytes int
	keywords     [][]byte
	selectors    []string
}

// NewChallengeDetector constructs a detector with the configured signals.
// Keywords are matched case-insensitively anywhere in the body; selectors are
// CSS selectors whose presence marks a challenge page. A minBytes of zero
// disables the size check.
func NewChallengeDetector(minBytes int, keywords, selectors []string) *ChallengeDetector {
	lowerKeywords := make([][]byte, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		lowerKeywords = append(lowerKeywords, bytes.ToLower([]byte(kw)))
	}
	return &ChallengeDetector{
		minHTMLBytes: minBytes,
		keywords:     lowerKeywords,
		selectors:    selectors,
	}
}

// Detect reports whether the body looks like a challenge page, naming the
// signal that tripped.
func (d *ChallengeDetector) Detect(body []byte) (string, bool) {
	if d == nil {
		return "", false
	}
	if d.minHTMLBytes > 0 && len(body) < d.minHTMLBytes {
		return fmt.Sprintf("body below %d bytes", d.minHTMLBytes), true
	}
	if kw, ok := d.matchKeyword(body); ok {
		return fmt.Sprintf("keyword %q", kw), true
	}
	if sel, ok := d.matchSelector(body); ok {
		return fmt.Sprintf("selector %q", sel), true
	}
	return "", false
}

func (d *ChallengeDetector) matchKeyword(body []byte) (string, bool) {
	if len(body) == 0 || len(d.keywords) == 0 {
		return "", false
	}
	lowerBody := bytes.ToLower(body)
	for _, kw := range d.keywords {
		if bytes.Contains(lowerBody, kw) {
			return string(kw), true
		}
	}
	return "", false
}

func (d *ChallengeDetector) matchSelector(body []byte) (string, bool) {
	if len(d.selectors) == 0 || len(body) == 0 {
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false
	}
	for _, sel := range d.selectors {
		if sel == "" {
			continue
		}
		if doc.Find(sel).Length() > 0 {
			return sel, true
		}
	}
	return "", false
}
