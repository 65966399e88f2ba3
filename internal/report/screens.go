package report

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/psyreport-mcp-server/internal/docx"
	"github.com/psyreport-mcp-server/internal/domain"
)

// ScreenKind identifies one step of the data collection flow
type ScreenKind int

const (
	ScreenTemplate ScreenKind = iota
	ScreenPatient
	ScreenTemplateFields
	ScreenTests
	ScreenConclusion
	ScreenReview
)

var screenNames = map[ScreenKind]string{
	ScreenTemplate:       "template",
	ScreenPatient:        "patient",
	ScreenTemplateFields: "template_fields",
	ScreenTests:          "tests",
	ScreenConclusion:     "conclusion",
	ScreenReview:         "review",
}

// String returns the screen's name
func (k ScreenKind) String() string {
	if name, ok := screenNames[k]; ok {
		return name
	}
	return fmt.Sprintf("screen(%d)", int(k))
}

// Partial is the data one screen contributes to the report.
// Only the members relevant to the screen's kind are read.
type Partial struct {
	TemplatePath   string
	Template       *docx.Document
	Patient        map[string]any
	Resp1          map[string]any
	Resp2          map[string]any
	Psychologist   map[string]any
	TemplateFields map[string]any
	Tests          map[string]any
	Conclusion     *string
}

// Screen is a data collection step
type Screen interface {
	Kind() ScreenKind
	Collect() Partial
}

// Collector merges screen data into a DataModel
type Collector struct {
	logger     *logrus.Logger
	model      *DataModel
	classifier domain.ScoreClassifier
}

// NewCollector creates a collector writing into model. Test scores are
// classified with classifier before they are stored; a nil classifier
// stores them unchanged.
func NewCollector(logger *logrus.Logger, model *DataModel, classifier domain.ScoreClassifier) *Collector {
	return &Collector{
		logger:     logger,
		model:      model,
		classifier: classifier,
	}
}

// Collect reads the screen and merges its data according to its kind
func (c *Collector) Collect(screen Screen) error {
	kind := screen.Kind()
	data := screen.Collect()

	switch kind {
	case ScreenTemplate:
		if data.TemplatePath != "" && data.Template != nil {
			c.model.SetTemplate(data.TemplatePath, data.Template)
		}
	case ScreenPatient:
		if data.Patient != nil {
			c.model.SetPatientData(data.Patient)
		}
		if data.Resp1 != nil {
			c.model.SetResp1Data(data.Resp1)
		}
		if data.Resp2 != nil {
			c.model.SetResp2Data(data.Resp2)
		}
		if data.Psychologist != nil {
			c.model.SetPsychologistData(data.Psychologist)
		}
		if data.TemplateFields != nil {
			c.model.SetTemplateFieldValues(data.TemplateFields)
		}
	case ScreenTemplateFields:
		c.collectTemplateFields(data.TemplateFields)
	case ScreenTests:
		if len(data.Tests) > 0 {
			c.model.SetTestResults(c.classify(data.Tests))
		}
	case ScreenConclusion:
		if data.Conclusion != nil {
			c.model.SetConclusionText(*data.Conclusion)
		}
	case ScreenReview:
	default:
		return fmt.Errorf("unknown screen kind %d", int(kind))
	}

	c.logger.WithField("screen", kind.String()).Debug("Collected screen data")
	return nil
}

func (c *Collector) collectTemplateFields(fields map[string]any) {
	if len(fields) == 0 {
		return
	}
	c.model.SetTemplateFieldValues(fields)

	if text, ok := fields["CONCLUSAO_ANALISE_LIVRE"]; ok {
		c.model.SetConclusionText(Stringify(text))
	} else if text, ok := fields["conclusion_text"]; ok {
		c.model.SetConclusionText(Stringify(text))
	}
}

func (c *Collector) classify(tests map[string]any) map[string]any {
	if c.classifier == nil {
		return tests
	}
	return c.classifier.ClassifyResults(tests)
}

// CollectAll collects the screens in order, stopping at the first error
func (c *Collector) CollectAll(screens ...Screen) error {
	for _, screen := range screens {
		if err := c.Collect(screen); err != nil {
			return err
		}
	}
	return nil
}

// StaticScreen is a Screen whose data is known up front, as for requests
// coming from the command line or the tool server
type StaticScreen struct {
	ScreenKind ScreenKind
	Data       Partial
}

// Kind returns the screen's kind
func (s StaticScreen) Kind() ScreenKind { return s.ScreenKind }

// Collect returns the fixed data
func (s StaticScreen) Collect() Partial { return s.Data }

// ScreensFor replays a data snapshot as the screens that would have produced it
func ScreensFor(path string, doc *docx.Document, data ReportData) []Screen {
	screens := []Screen{
		StaticScreen{ScreenKind: ScreenTemplate, Data: Partial{TemplatePath: path, Template: doc}},
		StaticScreen{ScreenKind: ScreenPatient, Data: Partial{
			Patient:      data.Patient,
			Resp1:        data.Resp1,
			Resp2:        data.Resp2,
			Psychologist: data.Psychologist,
		}},
		StaticScreen{ScreenKind: ScreenTests, Data: Partial{Tests: data.Tests}},
		StaticScreen{ScreenKind: ScreenTemplateFields, Data: Partial{TemplateFields: data.TemplateFields}},
	}
	if data.Conclusion != "" {
		conclusion := data.Conclusion
		screens = append(screens, StaticScreen{ScreenKind: ScreenConclusion, Data: Partial{Conclusion: &conclusion}})
	}
	return append(screens, StaticScreen{ScreenKind: ScreenReview})
}
