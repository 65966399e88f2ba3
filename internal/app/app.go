// Package app wires the report engine components from configuration.
package app

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/psyreport-mcp-server/internal/docx"
	"github.com/psyreport-mcp-server/internal/domain"
	"github.com/psyreport-mcp-server/internal/mcp"
	"github.com/psyreport-mcp-server/internal/report"
	"github.com/psyreport-mcp-server/internal/scoretable"
	"github.com/psyreport-mcp-server/internal/service"
	"github.com/psyreport-mcp-server/internal/template"
)

// App holds one instance of every engine component
type App struct {
	Config     *domain.Config
	Logger     *logrus.Logger
	Tables     *scoretable.Store
	Classifier *service.ClassifierService
	Processor  *template.Processor
	Templates  *docx.Cache
	Patients   *report.PatientService
	Summary    *report.SummaryService
	Fields     *report.TemplateFieldsLoader
	Generator  *report.Generator
}

// New builds the components described by cfg
func New(cfg *domain.Config, logger *logrus.Logger) (*App, error) {
	var opts []scoretable.StoreOption
	if cfg.Tables.Pattern != "" {
		opts = append(opts, scoretable.WithPattern(cfg.Tables.Pattern))
	}

	var tables *scoretable.Store
	if cfg.Tables.Dir != "" {
		tables = scoretable.NewDirStore(cfg.Tables.Dir, logger, opts...)
	} else {
		tables = scoretable.NewEmbeddedStore(logger, opts...)
	}

	cacheSize := cfg.Templates.CacheSize
	if cacheSize <= 0 {
		cacheSize = 16
	}
	templates, err := docx.NewCache(cacheSize, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create template cache: %w", err)
	}

	processor := template.NewProcessor(logger)
	a := &App{
		Config:     cfg,
		Logger:     logger,
		Tables:     tables,
		Classifier: service.NewClassifierService(logger, tables),
		Processor:  processor,
		Templates:  templates,
		Patients:   report.NewPatientService(nil),
		Summary:    report.NewSummaryService(),
		Fields:     report.NewTemplateFieldsLoader(cfg.Templates.FieldsConfig),
		Generator:  report.NewGenerator(logger, processor, templates, cfg.Output),
	}

	logger.WithFields(logrus.Fields{
		"tables":     len(tables.Keys()),
		"cache_size": cacheSize,
	}).Debug("Report engine initialized")
	return a, nil
}

// NewModel returns an empty data model sharing the app's patient service
func (a *App) NewModel() *report.DataModel {
	return report.NewDataModel(a.Patients)
}

// NewCollector returns a collector that classifies test scores on the way in
func (a *App) NewCollector(model *report.DataModel) *report.Collector {
	return report.NewCollector(a.Logger, model, a.Classifier)
}

// LoadModel opens the template at path and collects data into a new model
func (a *App) LoadModel(path string, data report.ReportData) (*report.DataModel, error) {
	doc, err := a.Templates.Open(path)
	if err != nil {
		return nil, err
	}
	model := a.NewModel()
	if err := a.NewCollector(model).CollectAll(report.ScreensFor(path, doc, data)...); err != nil {
		return nil, err
	}
	return model, nil
}

// MCPServer builds the tool server over the app's components
func (a *App) MCPServer() (*mcp.Server, error) {
	return mcp.NewServer(a.Logger, a.Config.MCP, mcp.Services{
		Processor:  a.Processor,
		Classifier: a.Classifier,
		Templates:  a.Templates,
		Patients:   a.Patients,
		Summary:    a.Summary,
		Generator:  a.Generator,
		Fields:     a.Fields,
		Tables:     a.Tables,
	})
}
