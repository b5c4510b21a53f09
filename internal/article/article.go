// Package article defines the core types shared across the digest pipeline.
package article

// Reference is one article extracted from an alert email. References arrive
// ordered and already deduplicated by URL; the pipeline never mutates them.
type Reference struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Publisher string `json:"publisher,omitempty"`
	Snippet   string `json:"snippet,omitempty"`
}

// Format identifies which normalization branch a fetched payload needs.
type Format string

// Content formats produced by fetch strategies.
const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

// Valid reports whether f is a known content format.
func (f Format) Valid() bool {
	return f == FormatHTML || f == FormatMarkdown
}

// Status represents the lifecycle state of one article inside a run.
type Status string

// Per-article pipeline states. Failed states are terminal; an article in a
// failed state routes to the report's missing partition.
const (
	StatusPending         Status = "pending"
	StatusFetching        Status = "fetching"
	StatusFetched         Status = "fetched"
	StatusFetchFailed     Status = "fetch_failed"
	StatusNormalizing     Status = "normalizing"
	StatusNormalized      Status = "normalized"
	StatusNormalizeFailed Status = "normalize_failed"
	StatusSummarizing     Status = "summarizing"
	StatusDone            Status = "done"
	StatusSummarizeFailed Status = "summarize_failed"
)

// Terminal reports whether the status ends an article's pipeline.
func (s Status) Terminal() bool {
	switch s {
	case StatusDone, StatusFetchFailed, StatusNormalizeFailed, StatusSummarizeFailed:
		return true
	default:
		return false
	}
}

// Failed reports whether the status is a terminal failure.
func (s Status) Failed() bool {
	return s.Terminal() && s != StatusDone
}
