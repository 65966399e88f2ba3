package mcp

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/psyreport-mcp-server/internal/docx"
	"github.com/psyreport-mcp-server/internal/domain"
	"github.com/psyreport-mcp-server/internal/report"
)

type templateInput struct {
	TemplatePath string `json:"template_path" jsonschema:"path of the .docx template"`
}

type extractFieldsOutput struct {
	Fields []string `json:"fields"`
	Count  int      `json:"count"`
}

type validateTemplateInput struct {
	TemplatePath string             `json:"template_path" jsonschema:"path of the .docx template"`
	Data         *report.ReportData `json:"data,omitempty" jsonschema:"report data used to find placeholders without a value"`
}

type validateTemplateOutput struct {
	Valid   []string              `json:"valid"`
	Invalid []domain.FieldFinding `json:"invalid"`
	Missing []string              `json:"missing,omitempty"`
	Empty   []string              `json:"empty,omitempty"`
}

type listTemplateFieldsInput struct {
	Section string `json:"section,omitempty" jsonschema:"only return the section with this id"`
}

type listTemplateFieldsOutput struct {
	Sections []report.SectionConfig `json:"sections"`
}

type scoresInput struct {
	Scores map[string]any `json:"scores" jsonschema:"raw test scores keyed by field name, e.g. ICV_WISC or AC_BPA"`
}

type classifyScoresOutput struct {
	Results           map[string]any `json:"results"`
	Degraded          bool           `json:"degraded"`
	FailedInstruments []string       `json:"failed_instruments,omitempty"`
	Error             string         `json:"error,omitempty"`
}

type summarizeScoresOutput struct {
	Summary string `json:"summary"`
}

type generateReportInput struct {
	TemplatePath    string            `json:"template_path" jsonschema:"path of the .docx template"`
	Data            report.ReportData `json:"data" jsonschema:"patient, resp1, resp2, psychologist, tests, conclusion and template_fields"`
	OutputDir       string            `json:"output_dir,omitempty" jsonschema:"directory for the report (default from configuration)"`
	AllowIncomplete bool              `json:"allow_incomplete,omitempty" jsonschema:"generate even when placeholders are invalid, missing or empty"`
}

type generateReportOutput struct {
	RunID        string          `json:"run_id"`
	Path         string          `json:"path"`
	Replacements int             `json:"replacements"`
	Findings     report.Findings `json:"findings"`
}

func (s *Server) handleExtractTemplateFields(_ context.Context, _ *mcp.CallToolRequest, input templateInput) (*mcp.CallToolResult, extractFieldsOutput, error) {
	doc, err := s.services.Templates.Open(input.TemplatePath)
	if err != nil {
		return nil, extractFieldsOutput{}, toolError("extract_template_fields", err)
	}
	fields := s.services.Processor.ExtractFields(doc).Sorted()
	return nil, extractFieldsOutput{Fields: fields, Count: len(fields)}, nil
}

func (s *Server) handleValidateTemplate(_ context.Context, _ *mcp.CallToolRequest, input validateTemplateInput) (*mcp.CallToolResult, validateTemplateOutput, error) {
	doc, err := s.services.Templates.Open(input.TemplatePath)
	if err != nil {
		return nil, validateTemplateOutput{}, toolError("validate_template", err)
	}

	valid, invalid := s.services.Processor.ValidateFields(doc)
	out := validateTemplateOutput{Valid: valid, Invalid: invalid}

	if input.Data != nil {
		model, err := s.collect(input.TemplatePath, doc, *input.Data)
		if err != nil {
			return nil, validateTemplateOutput{}, toolError("validate_template", err)
		}
		out.Missing, out.Empty = s.services.Processor.CheckRequiredFields(
			s.services.Processor.ExtractFields(doc), model.FieldMapping())
	}
	return nil, out, nil
}

func (s *Server) handleListTemplateFields(_ context.Context, _ *mcp.CallToolRequest, input listTemplateFieldsInput) (*mcp.CallToolResult, listTemplateFieldsOutput, error) {
	sections, err := s.services.Fields.Sections()
	if err != nil {
		return nil, listTemplateFieldsOutput{}, toolError("list_template_fields", err)
	}
	if input.Section == "" {
		return nil, listTemplateFieldsOutput{Sections: sections}, nil
	}
	for _, section := range sections {
		if section.ID == input.Section {
			return nil, listTemplateFieldsOutput{Sections: []report.SectionConfig{section}}, nil
		}
	}
	return nil, listTemplateFieldsOutput{}, fmt.Errorf("unknown section %q", input.Section)
}

func (s *Server) handleClassifyScores(_ context.Context, _ *mcp.CallToolRequest, input scoresInput) (*mcp.CallToolResult, classifyScoresOutput, error) {
	results, err := s.services.Classifier.Classify(input.Scores)
	if err == nil {
		return nil, classifyScoresOutput{Results: results}, nil
	}

	out := classifyScoresOutput{
		Results:  maps.Clone(input.Scores),
		Degraded: true,
		Error:    err.Error(),
	}
	var classErr *domain.ClassificationError
	if errors.As(err, &classErr) {
		out.FailedInstruments = classErr.Instruments()
		if classErr.Panic == nil {
			out.Results = results
		}
	}
	s.logger.WithError(err).WithField("instruments", out.FailedInstruments).Warn("Some scores left unclassified")
	return nil, out, nil
}

func (s *Server) handleSummarizeScores(_ context.Context, _ *mcp.CallToolRequest, input scoresInput) (*mcp.CallToolResult, summarizeScoresOutput, error) {
	return nil, summarizeScoresOutput{Summary: s.services.Summary.BuildSummaryText(input.Scores)}, nil
}

func (s *Server) handleGenerateReport(ctx context.Context, _ *mcp.CallToolRequest, input generateReportInput) (*mcp.CallToolResult, generateReportOutput, error) {
	doc, err := s.services.Templates.Open(input.TemplatePath)
	if err != nil {
		return nil, generateReportOutput{}, toolError("generate_report", err)
	}

	model, err := s.collect(input.TemplatePath, doc, input.Data)
	if err != nil {
		return nil, generateReportOutput{}, toolError("generate_report", err)
	}

	var findings report.Findings
	result, err := s.services.Generator.Generate(ctx, model, report.GenerateOptions{
		OutputDir: input.OutputDir,
		Confirm: func(f report.Findings) bool {
			findings = f
			return input.AllowIncomplete
		},
	})
	if errors.Is(err, domain.ErrGenerationCancelled) {
		return nil, generateReportOutput{}, fmt.Errorf("template has invalid, missing or empty fields (invalid=%d missing=%v empty=%v); set allow_incomplete to generate anyway",
			len(findings.Invalid), findings.Missing, findings.Empty)
	}
	if err != nil {
		return nil, generateReportOutput{}, toolError("generate_report", err)
	}

	return nil, generateReportOutput{
		RunID:        result.RunID,
		Path:         result.Path,
		Replacements: result.Replacements,
		Findings:     result.Findings,
	}, nil
}

// collect runs the report screens into a new model, classifying raw scores
// the same way generation does
func (s *Server) collect(path string, doc *docx.Document, data report.ReportData) (*report.DataModel, error) {
	model := report.NewDataModel(s.services.Patients)
	collector := report.NewCollector(s.logger, model, s.services.Classifier)
	if err := collector.CollectAll(report.ScreensFor(path, doc, data)...); err != nil {
		return nil, err
	}
	return model, nil
}

func toolError(tool string, err error) error {
	return fmt.Errorf("%s failed: %w", tool, err)
}

// logged wraps a tool handler with structured call logging
func logged[In, Out any](s *Server, tool string, handler mcp.ToolHandlerFor[In, Out]) mcp.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input In) (*mcp.CallToolResult, Out, error) {
		start := time.Now()
		result, out, err := handler(ctx, req, input)

		entry := s.logger.WithFields(logrus.Fields{
			"tool":        tool,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if err != nil {
			entry.WithError(err).Warn("Tool call failed")
		} else {
			entry.Debug("Tool call completed")
		}
		return result, out, err
	}
}
