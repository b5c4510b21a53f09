// Package digest renders an assembled run report into the final Markdown
// digest document.
package digest

import (
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/google/uuid"

	"github.com/alertdigest/alertdigest/internal/article"
	"github.com/alertdigest/alertdigest/internal/pipeline"
)

// Metadata carries the run facts printed in the digest header.
type Metadata struct {
	RunID       uuid.UUID
	GeneratedAt time.Time
	Elapsed     time.Duration
	Tally       string
}

const digestTemplate = `# Alert Digest

Generated {{.Generated}}, run {{.RunID}}.
Articles: {{.Total}} total, {{len .Articles}} summarized, {{len .Missing}} missing.
{{if .Elapsed}}Run time: {{.Elapsed}}
{{end}}{{if .Tally}}Fetch tally: {{.Tally}}
{{end}}{{range .Articles}}
## {{.Title}}

{{if .Publisher}}{{.Publisher}} | {{end}}{{.URL}}

{{.Summary}}
{{end}}
## Missing articles

{{range .Missing}}- {{.Title}} ({{.URL}}): {{.Reason}}
{{else}}None.
{{end}}`

type digestView struct {
	Generated string
	RunID     string
	Total     int
	Elapsed   string
	Tally     string
	Articles  []articleView
	Missing   []missingView
}

type articleView struct {
	Title     string
	Publisher string
	URL       string
	Summary   string
}

type missingView struct {
	Title  string
	URL    string
	Reason string
}

// Renderer writes the Markdown digest for a completed run.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the digest template.
func NewRenderer() *Renderer {
	return &Renderer{tmpl: template.Must(template.New("digest").Parse(digestTemplate))}
}

// Render writes the digest for report to w. The missing section is always
// present; with no failures it reads "None.".
func (r *Renderer) Render(w io.Writer, meta Metadata, report pipeline.RunReport) error {
	if err := r.tmpl.Execute(w, buildView(meta, report)); err != nil {
		return fmt.Errorf("render digest: %w", err)
	}
	return nil
}

func buildView(meta Metadata, report pipeline.RunReport) digestView {
	view := digestView{
		Generated: meta.GeneratedAt.UTC().Format(time.RFC3339),
		RunID:     meta.RunID.String(),
		Total:     report.Total(),
		Tally:     meta.Tally,
	}
	if meta.Elapsed > 0 {
		view.Elapsed = meta.Elapsed.Round(100 * time.Millisecond).String()
	}
	for _, res := range report.Summaries {
		view.Articles = append(view.Articles, articleView{
			Title:     displayTitle(res.Reference),
			Publisher: res.Reference.Publisher,
			URL:       res.Reference.URL,
			Summary:   res.Summary,
		})
	}
	for _, res := range report.Missing {
		view.Missing = append(view.Missing, missingView{
			Title:  displayTitle(res.Reference),
			URL:    res.Reference.URL,
			Reason: string(res.Reason),
		})
	}
	return view
}

func displayTitle(ref article.Reference) string {
	if ref.Title != "" {
		return ref.Title
	}
	return ref.URL
}
