package report

import (
	"maps"

	"github.com/psyreport-mcp-server/internal/docx"
)

// DataModel accumulates everything collected for one report.
// Updates merge into the existing values.
type DataModel struct {
	templatePath string
	template     *docx.Document

	patient        map[string]any
	resp1          map[string]any
	resp2          map[string]any
	psychologist   map[string]any
	tests          map[string]any
	conclusion     string
	templateFields map[string]any

	patients *PatientService
	mapper   *FieldMapper
}

// NewDataModel creates a data model holding the default empty fields
func NewDataModel(patients *PatientService) *DataModel {
	if patients == nil {
		patients = NewPatientService(nil)
	}
	return &DataModel{
		patient: map[string]any{
			"patient_name":      "",
			"patient_birth":     "",
			"patient_crono_age": "",
			"patient_school":    "",
			"patient_class":     "",
		},
		resp1:          respondentDefaults("resp1"),
		resp2:          respondentDefaults("resp2"),
		psychologist:   map[string]any{"nome_psicologo": "", "crp_psicologo": ""},
		tests:          make(map[string]any),
		templateFields: make(map[string]any),
		patients:       patients,
		mapper:         NewFieldMapper(patients),
	}
}

func respondentDefaults(prefix string) map[string]any {
	return map[string]any{
		prefix + "_name":      "",
		prefix + "_career":    "",
		prefix + "_education": "",
		prefix + "_age":       0,
	}
}

// SetTemplate records the chosen template and its parsed document
func (m *DataModel) SetTemplate(path string, doc *docx.Document) {
	m.templatePath = path
	m.template = doc
}

// TemplatePath returns the chosen template path
func (m *DataModel) TemplatePath() string {
	return m.templatePath
}

// Template returns the parsed template document
func (m *DataModel) Template() *docx.Document {
	return m.template
}

// IsTemplateLoaded reports whether both template path and document are set
func (m *DataModel) IsTemplateLoaded() bool {
	return m.templatePath != "" && m.template != nil
}

// SetPatientData merges patient fields. The first name and the chronological
// age are derived from name and birth date unless the update carries them.
func (m *DataModel) SetPatientData(data map[string]any) {
	maps.Copy(m.patient, data)

	if name, ok := data["patient_name"]; ok {
		if _, given := data["patient_first_name"]; !given {
			m.patient["patient_first_name"] = m.patients.ExtractFirstName(Stringify(name))
		}
	}
	if birth, ok := data["patient_birth"]; ok {
		if given, ok := data["patient_crono_age"]; !ok || isBlank(given) {
			if age, ok := m.patients.CalculateAge(Stringify(birth)); ok {
				m.patient["patient_crono_age"] = age
			}
		}
	}
}

// SetResp1Data merges first respondent fields
func (m *DataModel) SetResp1Data(data map[string]any) {
	maps.Copy(m.resp1, data)
}

// SetResp2Data merges second respondent fields
func (m *DataModel) SetResp2Data(data map[string]any) {
	maps.Copy(m.resp2, data)
}

// SetPsychologistData merges psychologist fields
func (m *DataModel) SetPsychologistData(data map[string]any) {
	maps.Copy(m.psychologist, data)
}

// SetTestResults merges test results
func (m *DataModel) SetTestResults(results map[string]any) {
	maps.Copy(m.tests, results)
}

// TestResults returns a copy of the collected test results
func (m *DataModel) TestResults() map[string]any {
	return maps.Clone(m.tests)
}

// SetConclusionText replaces the conclusion
func (m *DataModel) SetConclusionText(text string) {
	m.conclusion = text
}

// SetTemplateFieldValues merges free template field values
func (m *DataModel) SetTemplateFieldValues(values map[string]any) {
	maps.Copy(m.templateFields, values)
}

// TemplateFieldValues returns a copy of the free template field values
func (m *DataModel) TemplateFieldValues() map[string]any {
	return maps.Clone(m.templateFields)
}

// PatientName returns the patient's full name
func (m *DataModel) PatientName() string {
	return Stringify(m.patient["patient_name"])
}

// AllData returns a snapshot of the collected data
func (m *DataModel) AllData() ReportData {
	return ReportData{
		Patient:        maps.Clone(m.patient),
		Resp1:          maps.Clone(m.resp1),
		Resp2:          maps.Clone(m.resp2),
		Psychologist:   maps.Clone(m.psychologist),
		Tests:          maps.Clone(m.tests),
		Conclusion:     m.conclusion,
		TemplateFields: maps.Clone(m.templateFields),
		TemplatePath:   m.templatePath,
	}
}

// Load merges a complete data snapshot into the model
func (m *DataModel) Load(data ReportData) {
	m.SetPatientData(data.Patient)
	m.SetResp1Data(data.Resp1)
	m.SetResp2Data(data.Resp2)
	m.SetPsychologistData(data.Psychologist)
	m.SetTestResults(data.Tests)
	m.SetTemplateFieldValues(data.TemplateFields)
	if data.Conclusion != "" {
		m.SetConclusionText(data.Conclusion)
	}
}

// FieldMapping returns the flat placeholder mapping for the collected data
func (m *DataModel) FieldMapping() map[string]string {
	return m.mapper.GetFieldMapping(m.AllData())
}
