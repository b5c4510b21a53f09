package pipeline

import (
	"errors"

	"github.com/alertdigest/alertdigest/internal/article"
	"github.com/alertdigest/alertdigest/internal/fetch"
)

// Result is the terminal state of one article. Success carries the summary
// plus the fetch outcome; failure carries the closed-taxonomy reason and, for
// diagnostics only, the underlying error.
type Result struct {
	Index     int
	Reference article.Reference
	Summary   string
	Outcome   fetch.Outcome
	Reason    article.Reason
	Err       error
}

// Failed reports whether the result belongs in the missing partition.
func (r Result) Failed() bool { return r.Reason != "" }

// RunReport is the assembled output of one run. Both partitions preserve the
// original input order and together account for every submitted article.
type RunReport struct {
	Summaries []Result
	Missing   []Result
}

// Total returns the number of articles the report accounts for.
func (r RunReport) Total() int { return len(r.Summaries) + len(r.Missing) }

// Assemble reorders completion-ordered results back to input order and
// partitions them. Accounting is structural: results land in an
// index-addressed slice keyed by the input position, and a slot no result
// claimed is backfilled as an unexpected failure rather than dropped.
func Assemble(refs []article.Reference, results []Result) RunReport {
	slots := make([]*Result, len(refs))
	for i := range results {
		res := results[i]
		if res.Index < 0 || res.Index >= len(slots) {
			continue
		}
		slots[res.Index] = &res
	}

	report := RunReport{}
	for i, ref := range refs {
		res := slots[i]
		if res == nil {
			res = &Result{
				Index:     i,
				Reference: ref,
				Reason:    article.ReasonUnexpected,
				Err: &article.UnexpectedError{
					URL: ref.URL,
					Err: errors.New("article produced no result"),
				},
			}
		}
		if res.Failed() {
			report.Missing = append(report.Missing, *res)
		} else {
			report.Summaries = append(report.Summaries, *res)
		}
	}
	return report
}
