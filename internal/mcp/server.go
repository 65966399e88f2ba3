package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/psyreport-mcp-server/internal/docx"
	"github.com/psyreport-mcp-server/internal/domain"
	"github.com/psyreport-mcp-server/internal/report"
	"github.com/psyreport-mcp-server/internal/template"
)

// Services are the report components the tools delegate to
type Services struct {
	Processor  *template.Processor
	Classifier domain.ScoreClassifier
	Templates  *docx.Cache
	Patients   *report.PatientService
	Summary    *report.SummaryService
	Generator  *report.Generator
	Fields     *report.TemplateFieldsLoader
	Tables     TableIndex // optional, enables the score_tables resource
}

// Server exposes the report engine as MCP tools, resources and prompts
type Server struct {
	config    domain.MCPConfig
	mcpServer *mcp.Server
	services  Services
	logger    *logrus.Logger
}

// NewServer creates a new MCP server instance with every tool registered
func NewServer(logger *logrus.Logger, cfg domain.MCPConfig, services Services) (*Server, error) {
	if services.Processor == nil || services.Classifier == nil || services.Templates == nil || services.Generator == nil {
		return nil, fmt.Errorf("processor, classifier, template cache and generator are required")
	}
	if services.Summary == nil {
		services.Summary = report.NewSummaryService()
	}
	if services.Patients == nil {
		services.Patients = report.NewPatientService(nil)
	}
	if services.Fields == nil {
		services.Fields = report.NewTemplateFieldsLoader("")
	}

	name := cfg.ServerName
	if name == "" {
		name = "psyreport-mcp-server"
	}
	version := cfg.ServerVersion
	if version == "" {
		version = "v0.1.0"
	}

	server := &Server{
		config:    cfg,
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
		services:  services,
		logger:    logger,
	}
	server.registerTools()
	server.registerResources()
	server.registerPrompts()
	return server, nil
}

// MCPServer returns the underlying SDK server
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// Start serves requests over the configured transport until ctx is done
func (s *Server) Start(ctx context.Context) error {
	transport := s.config.Transport
	if transport == "" {
		transport = "stdio"
	}
	if transport != "stdio" {
		return fmt.Errorf("unsupported transport: %s", transport)
	}

	s.logger.WithFields(logrus.Fields{
		"transport": transport,
		"tools":     len(toolNames),
	}).Info("Starting psychological report MCP server")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("MCP server stopped: %w", err)
	}
	s.logger.Info("MCP server stopped")
	return nil
}

var toolNames = []string{
	"extract_template_fields",
	"validate_template",
	"list_template_fields",
	"classify_scores",
	"summarize_scores",
	"generate_report",
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "extract_template_fields",
		Description: "List the {placeholder} names used in a .docx report template, including tables, headers and footers.",
	}, logged(s, "extract_template_fields", s.handleExtractTemplateFields))

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "validate_template",
		Description: "Check the placeholder names of a .docx template and, when report data is given, which placeholders have no value. Findings are advisory.",
	}, logged(s, "validate_template", s.handleValidateTemplate))

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_template_fields",
		Description: "List the configured free-text fields (anamnesis, demand, conclusions) grouped by section.",
	}, logged(s, "list_template_fields", s.handleListTemplateFields))

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "classify_scores",
		Description: "Derive classifications, composite scores and narrative texts from raw test scores (WISC, RAVLT, BPA, FDT, SRS, ETDAH, CARS, NEUPSILIN).",
	}, logged(s, "classify_scores", s.handleClassifyScores))

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "summarize_scores",
		Description: "Render test percentiles and classifications as a plain-text summary grouped by category.",
	}, logged(s, "summarize_scores", s.handleSummarizeScores))

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "generate_report",
		Description: "Fill a .docx template with patient, respondent, psychologist, test and conclusion data and save the report.",
	}, logged(s, "generate_report", s.handleGenerateReport))

	s.logger.WithField("tools", len(toolNames)).Debug("Registered MCP tools")
}
