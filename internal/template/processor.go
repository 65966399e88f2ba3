package template

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/psyreport-mcp-server/internal/docx"
	"github.com/psyreport-mcp-server/internal/domain"
)

// Processor is the single entry point for template operations used by
// report generation and the outer surfaces
type Processor struct {
	logger    *logrus.Logger
	extractor *Extractor
	validator *FieldValidator
	replacer  *Replacer
}

// NewProcessor creates a new template processor
func NewProcessor(logger *logrus.Logger) *Processor {
	return &Processor{
		logger:    logger,
		extractor: NewExtractor(),
		validator: NewFieldValidator(),
		replacer:  NewReplacer(),
	}
}

// ExtractFields returns the placeholder names used by doc
func (p *Processor) ExtractFields(doc *docx.Document) FieldSet {
	return p.extractor.ExtractFields(doc)
}

// ValidateFields checks every placeholder of doc against the naming conventions
func (p *Processor) ValidateFields(doc *docx.Document) ([]string, []domain.FieldFinding) {
	valid, invalid := p.validator.ValidateFields(p.ExtractFields(doc).Sorted())
	if len(invalid) > 0 {
		p.logger.WithFields(logrus.Fields{
			"valid":   len(valid),
			"invalid": len(invalid),
		}).Warn("Template has placeholders with malformed names")
	}
	return valid, invalid
}

// CheckRequiredFields reports placeholders without data; the result is advisory
func (p *Processor) CheckRequiredFields(fields FieldSet, mapping map[string]string) (missing, empty []string) {
	return p.validator.CheckRequiredFields(fields, mapping)
}

// ReplaceFields substitutes every placeholder of doc with its mapped value
func (p *Processor) ReplaceFields(mapping map[string]string, doc *docx.Document) (int, error) {
	count, err := p.replacer.ReplaceFields(doc, mapping)
	if err != nil {
		return 0, domain.NewReportError(domain.ErrCodeDocument, "field replacement failed", err)
	}
	p.logger.WithField("replacements", count).Info("Replaced field occurrences in document")
	return count, nil
}

// SaveDocument writes doc to path, creating missing directories
func (p *Processor) SaveDocument(doc *docx.Document, path string) (string, error) {
	if doc == nil {
		return "", domain.NewReportError(domain.ErrCodeDocument, "save failed", domain.ErrNoDocument)
	}
	if err := doc.SaveFile(path); err != nil {
		return "", domain.NewReportError(domain.ErrCodeDocument, fmt.Sprintf("could not save %s", path), err)
	}
	p.logger.WithField("output_dir", filepath.Dir(path)).Info("Document saved")
	return path, nil
}
