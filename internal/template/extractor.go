// Package template finds, validates and substitutes {field} placeholders in
// report templates.
package template

import (
	"regexp"
	"sort"

	"github.com/psyreport-mcp-server/internal/docx"
)

// fieldPattern matches a placeholder and captures its name
var fieldPattern = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// FieldSet is a set of placeholder names
type FieldSet map[string]struct{}

// NewFieldSet creates a set holding names
func NewFieldSet(names ...string) FieldSet {
	s := make(FieldSet, len(names))
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add inserts name into the set
func (s FieldSet) Add(name string) {
	s[name] = struct{}{}
}

// Has reports whether name is in the set
func (s FieldSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the names in lexical order
func (s FieldSet) Sorted() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Extractor collects the placeholder names used by a document
type Extractor struct{}

// NewExtractor creates a new extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractFields returns every distinct placeholder name in the document.
// Paragraph text is matched as a whole so placeholders split across runs
// are found. A nil document yields an empty set.
func (e *Extractor) ExtractFields(doc *docx.Document) FieldSet {
	fields := make(FieldSet)
	if doc == nil {
		return fields
	}
	for _, p := range documentParagraphs(doc) {
		for _, m := range fieldPattern.FindAllStringSubmatch(p.Text(), -1) {
			fields.Add(m[1])
		}
	}
	return fields
}
