package normalize

import (
	"regexp"
	"strings"
)

var (
	headingRe  = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*$`)
	linkOnlyRe = regexp.MustCompile(`^\s*(?:[-*>]\s*)?!?\[[^\]]*\]\([^)]*\)\s*$`)
	manyBlanks = regexp.MustCompile(`\n{3,}`)

	// Headings that mark non-article sections in rendered markdown.
	boilerplateHeadings = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^more from\b`),
		regexp.MustCompile(`(?i)^related\b`),
		regexp.MustCompile(`(?i)^read (more|next)\b`),
		regexp.MustCompile(`(?i)^recommended\b`),
		regexp.MustCompile(`(?i)^trending\b`),
		regexp.MustCompile(`(?i)^most (read|popular)\b`),
		regexp.MustCompile(`(?i)^(sign up|subscribe|newsletter)\b`),
		regexp.MustCompile(`(?i)^(contact|about|follow) us\b`),
		regexp.MustCompile(`(?i)^advertisement\b`),
		regexp.MustCompile(`(?i)^(share|comments?)\b`),
		regexp.MustCompile(`(?i)^(navigation|menu)\b`),
	}
)

// navSectionLabel names the leading link-list block reader services prepend
// to rendered pages.
const navSectionLabel = "navigation links"

// stripBoilerplate removes non-article sections from rendered markdown and
// reports which sections were dropped. A boilerplate heading removes
// everything up to the next heading or end of document.
func stripBoilerplate(markdown string) (string, []string) {
	lines := strings.Split(markdown, "\n")
	var removed []string

	lines, navStripped := stripLeadingNav(lines)
	if navStripped {
		removed = append(removed, navSectionLabel)
	}

	kept := make([]string, 0, len(lines))
	dropping := false
	for _, line := range lines {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			title := m[2]
			if isBoilerplateHeading(title) {
				dropping = true
				removed = append(removed, title)
				continue
			}
			dropping = false
		}
		if dropping {
			continue
		}
		kept = append(kept, line)
	}

	out := strings.TrimSpace(strings.Join(kept, "\n"))
	out = manyBlanks.ReplaceAllString(out, "\n\n")
	return out, removed
}

func isBoilerplateHeading(title string) bool {
	for _, re := range boilerplateHeadings {
		if re.MatchString(title) {
			return true
		}
	}
	return false
}

// stripLeadingNav drops a run of three or more link-only lines at the top of
// the document, the shape reader services render site navigation into.
func stripLeadingNav(lines []string) ([]string, bool) {
	i := 0
	links := 0
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			i++
			continue
		}
		if linkOnlyRe.MatchString(trimmed) {
			links++
			i++
			continue
		}
		break
	}
	if links >= 3 {
		return lines[i:], true
	}
	return lines, false
}
