package template

import "github.com/psyreport-mcp-server/internal/docx"

// documentParagraphs lists the paragraphs visited by extraction and
// replacement, in order: body paragraphs, body tables, then the headers of
// all sections, then their footers. A header or footer shared by several
// sections is visited once.
func documentParagraphs(doc *docx.Document) []*docx.Paragraph {
	var out []*docx.Paragraph
	out = appendPart(out, doc.Body())

	sections := doc.Sections()
	seen := make(map[*docx.Part]bool)
	for _, s := range sections {
		if s.Header != nil && !seen[s.Header] {
			seen[s.Header] = true
			out = appendPart(out, s.Header)
		}
	}
	for _, s := range sections {
		if s.Footer != nil && !seen[s.Footer] {
			seen[s.Footer] = true
			out = appendPart(out, s.Footer)
		}
	}
	return out
}

func appendPart(out []*docx.Paragraph, part *docx.Part) []*docx.Paragraph {
	out = append(out, part.Paragraphs()...)
	for _, table := range part.Tables() {
		for _, row := range table.Rows() {
			for _, cell := range row.Cells() {
				out = append(out, cell.Paragraphs()...)
			}
		}
	}
	return out
}
