package template

import (
	"github.com/psyreport-mcp-server/internal/docx"
	"github.com/psyreport-mcp-server/internal/domain"
)

// Replacer substitutes placeholders with mapped values
type Replacer struct{}

// NewReplacer creates a new replacer
func NewReplacer() *Replacer {
	return &Replacer{}
}

// ReplaceFields replaces every placeholder in the document and returns the
// number of occurrences replaced. Names missing from mapping are replaced
// with the empty string. The document is modified in place.
func (r *Replacer) ReplaceFields(doc *docx.Document, mapping map[string]string) (int, error) {
	if doc == nil {
		return 0, domain.ErrNoDocument
	}
	count := 0
	for _, p := range documentParagraphs(doc) {
		count += replaceInParagraph(p, mapping)
	}
	return count, nil
}

// replaceInParagraph works from the last match backwards so the offsets of
// earlier matches stay valid
func replaceInParagraph(p *docx.Paragraph, mapping map[string]string) int {
	text := p.Text()
	matches := fieldPattern.FindAllStringSubmatchIndex(text, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		spliceRuns(p.Runs(), m[0], m[1], mapping[text[m[2]:m[3]]])
	}
	return len(matches)
}

// spliceRuns replaces the paragraph text range [start, end) with replacement.
// The first overlapping run keeps its prefix followed by the replacement,
// runs fully inside the range are emptied and the last overlapping run keeps
// its suffix, so formatting on either side of the range is untouched.
func spliceRuns(runs []*docx.Run, start, end int, replacement string) {
	type span struct {
		run        *docx.Run
		text       string
		start, end int
	}

	var hit []span
	pos := 0
	for _, run := range runs {
		text := run.Text()
		s := span{run: run, text: text, start: pos, end: pos + len(text)}
		pos = s.end
		if s.end <= start || s.start >= end {
			continue
		}
		hit = append(hit, s)
	}

	switch len(hit) {
	case 0:
		return
	case 1:
		s := hit[0]
		relStart := max(0, start-s.start)
		relEnd := min(len(s.text), end-s.start)
		s.run.SetText(s.text[:relStart] + replacement + s.text[relEnd:])
	default:
		first, last := hit[0], hit[len(hit)-1]
		first.run.SetText(first.text[:max(0, start-first.start)] + replacement)
		for _, s := range hit[1 : len(hit)-1] {
			s.run.SetText("")
		}
		last.run.SetText(last.text[min(len(last.text), end-last.start):])
	}
}
