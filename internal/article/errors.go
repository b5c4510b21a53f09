package article

import (
	"errors"
	"fmt"
)

// Reason is the human-readable failure label surfaced in the digest's missing
// section. The set is closed: reports never carry raw error text, only one of
// these labels plus the article identity.
type Reason string

// Failure reasons, one per error category.
const (
	ReasonFetchExhausted  Reason = "fetch exhausted"
	ReasonNormalizeFailed Reason = "normalize failed"
	ReasonSummarizeFailed Reason = "summarize failed"
	ReasonUnexpected      Reason = "unexpected error"
)

// FetchError reports that every fetch tier was exhausted for a URL. Err holds
// the most recent underlying tier error for diagnostics.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %d tiers exhausted: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NormalizeError reports that cleaned content was empty or below the minimum
// acceptable length.
type NormalizeError struct {
	URL    string
	Length int
	Min    int
	Err    error
}

func (e *NormalizeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("normalize %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("normalize %s: cleaned content %d chars, minimum %d", e.URL, e.Length, e.Min)
}

func (e *NormalizeError) Unwrap() error { return e.Err }

// SummarizeError reports a failed or timed-out summarization call.
type SummarizeError struct {
	URL string
	Err error
}

func (e *SummarizeError) Error() string {
	return fmt.Sprintf("summarize %s: %v", e.URL, e.Err)
}

func (e *SummarizeError) Unwrap() error { return e.Err }

// UnexpectedError tags anything outside the known taxonomy, including
// recovered panics, so no failure is ever silently dropped.
type UnexpectedError struct {
	URL string
	Err error
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected failure for %s: %v", e.URL, e.Err)
}

func (e *UnexpectedError) Unwrap() error { return e.Err }

// FailureReason maps any pipeline error to its closed-taxonomy reason.
// Unrecognized errors map to ReasonUnexpected.
func FailureReason(err error) Reason {
	var (
		fetchErr     *FetchError
		normalizeErr *NormalizeError
		summarizeErr *SummarizeError
	)
	switch {
	case errors.As(err, &fetchErr):
		return ReasonFetchExhausted
	case errors.As(err, &normalizeErr):
		return ReasonNormalizeFailed
	case errors.As(err, &summarizeErr):
		return ReasonSummarizeFailed
	default:
		return ReasonUnexpected
	}
}
