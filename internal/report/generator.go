package report

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/psyreport-mcp-server/internal/docx"
	"github.com/psyreport-mcp-server/internal/domain"
	"github.com/psyreport-mcp-server/internal/template"
)

// Findings are the advisory problems found before generation
type Findings struct {
	Invalid []domain.FieldFinding `json:"invalid_fields,omitempty"`
	Missing []string              `json:"missing_fields,omitempty"`
	Empty   []string              `json:"empty_fields,omitempty"`
}

// HasIssues reports whether any finding was recorded
func (f Findings) HasIssues() bool {
	return len(f.Invalid) > 0 || len(f.Missing) > 0 || len(f.Empty) > 0
}

// ConfirmFunc decides whether generation continues despite findings
type ConfirmFunc func(Findings) bool

// GenerateOptions tunes a single generation
type GenerateOptions struct {
	// OutputDir overrides the generator's output directory
	OutputDir string
	// Confirm is asked when findings exist; nil continues
	Confirm ConfirmFunc
}

// GenerateResult describes a generated report
type GenerateResult struct {
	RunID        string        `json:"run_id"`
	Path         string        `json:"path"`
	Replacements int           `json:"replacements"`
	Findings     Findings      `json:"findings"`
	Duration     time.Duration `json:"duration"`
}

// Generator turns a DataModel and its template into a finished report file
type Generator struct {
	logger    *logrus.Logger
	processor *template.Processor
	templates *docx.Cache
	outputDir string
	prefix    string
}

// NewGenerator creates a new report generator
func NewGenerator(logger *logrus.Logger, processor *template.Processor, templates *docx.Cache, cfg domain.OutputConfig) *Generator {
	prefix := cfg.FilenamePrefix
	if prefix == "" {
		prefix = "laudo"
	}
	return &Generator{
		logger:    logger,
		processor: processor,
		templates: templates,
		outputDir: cfg.Dir,
		prefix:    prefix,
	}
}

// Generate validates the template, fills a fresh copy of it with the
// model's data and saves it. The template held by the model is not modified.
func (g *Generator) Generate(ctx context.Context, model *DataModel, opts GenerateOptions) (*GenerateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !model.IsTemplateLoaded() {
		return nil, domain.NewReportError(domain.ErrCodeTemplate, "cannot generate report", domain.ErrTemplateNotLoaded)
	}

	start := time.Now()
	runID := uuid.New().String()
	logger := g.logger.WithField("run_id", runID)

	var findings Findings
	_, findings.Invalid = g.processor.ValidateFields(model.Template())

	mapping := model.FieldMapping()
	fields := g.processor.ExtractFields(model.Template())
	findings.Missing, findings.Empty = g.processor.CheckRequiredFields(fields, mapping)

	if findings.HasIssues() {
		logger.WithFields(logrus.Fields{
			"invalid": len(findings.Invalid),
			"missing": len(findings.Missing),
			"empty":   len(findings.Empty),
		}).Warn("Template has fields without usable data")
		if opts.Confirm != nil && !opts.Confirm(findings) {
			logger.Info("Report generation cancelled")
			return nil, domain.NewReportError(domain.ErrCodeValidation,
				fmt.Sprintf("%d invalid, %d missing and %d empty fields", len(findings.Invalid), len(findings.Missing), len(findings.Empty)),
				domain.ErrGenerationCancelled)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := g.templates.Open(model.TemplatePath())
	if err != nil {
		return nil, domain.NewReportError(domain.ErrCodeTemplate, "could not reopen template", err)
	}

	count, err := g.processor.ReplaceFields(mapping, doc)
	if err != nil {
		return nil, err
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = g.outputDir
	}
	path := filepath.Join(outputDir, ReportFilename(g.prefix, model.PatientName()))
	if _, err := g.processor.SaveDocument(doc, path); err != nil {
		return nil, err
	}

	result := &GenerateResult{
		RunID:        runID,
		Path:         path,
		Replacements: count,
		Findings:     findings,
		Duration:     time.Since(start),
	}
	logger.WithFields(logrus.Fields{
		"replacements": count,
		"duration_ms":  result.Duration.Milliseconds(),
	}).Info("Report generated")
	return result, nil
}

// ReportFilename builds "<prefix>_<name>.docx" keeping only letters,
// digits, spaces, hyphens and underscores of the name; spaces become
// underscores. An empty name yields "<prefix>.docx".
func ReportFilename(prefix, patientName string) string {
	safe := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			return r
		}
		return -1
	}, strings.TrimSpace(patientName))
	safe = strings.ReplaceAll(strings.TrimSpace(safe), " ", "_")

	if safe == "" {
		return prefix + ".docx"
	}
	return fmt.Sprintf("%s_%s.docx", prefix, safe)
}
