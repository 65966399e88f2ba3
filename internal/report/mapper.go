package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FirstNameField is the placeholder holding the patient's first name
const FirstNameField = "primeiro_nome_paciente"

// fieldAliases lists the template names each data key is also published under.
// Aliases are written after every canonical key and only replace a key that is
// absent or blank.
var fieldAliases = map[string][]string{
	"patient_name":      {"nome_paciente"},
	"patient_birth":     {"data_nasc_paciente"},
	"patient_crono_age": {"idd_paciente"},
	"patient_school":    {"escola_paciente"},
	"patient_class":     {"turma_paciente"},

	"resp1_name":      {"resp1_nome"},
	"resp1_career":    {"resp1_profissao"},
	"resp1_education": {"resp1_escolaridade"},
	"resp1_age":       {"resp1_idade"},

	"resp2_name":      {"resp2_nome"},
	"resp2_career":    {"resp2_profissao"},
	"resp2_education": {"resp2_escolaridade"},
	"resp2_age":       {"resp2_idade"},

	"psychologist_name": {"psico_nome", "nome_psicologo"},
	"psychologist_crp":  {"psico_crp", "crp_psicologo"},
}

// testAliases maps test result keys to legacy placeholder names
var testAliases = map[string][]string{
	"AG_BPA": {"AG_pontuacao"},
}

// ReportData is the structured content collected for one report
type ReportData struct {
	Patient        map[string]any `json:"patient,omitempty" yaml:"patient,omitempty"`
	Resp1          map[string]any `json:"resp1,omitempty" yaml:"resp1,omitempty"`
	Resp2          map[string]any `json:"resp2,omitempty" yaml:"resp2,omitempty"`
	Psychologist   map[string]any `json:"psychologist,omitempty" yaml:"psychologist,omitempty"`
	Tests          map[string]any `json:"tests,omitempty" yaml:"tests,omitempty"`
	Conclusion     string         `json:"conclusion,omitempty" yaml:"conclusion,omitempty"`
	TemplateFields map[string]any `json:"template_fields,omitempty" yaml:"template_fields,omitempty"`
	TemplatePath   string         `json:"template_path,omitempty" yaml:"template_path,omitempty"`
}

// FieldMapper flattens report data into the placeholder mapping
type FieldMapper struct {
	patients *PatientService
}

// NewFieldMapper creates a new field mapper
func NewFieldMapper(patients *PatientService) *FieldMapper {
	if patients == nil {
		patients = NewPatientService(nil)
	}
	return &FieldMapper{patients: patients}
}

// GetFieldMapping returns the flat name -> value mapping used for replacement.
// Later sources override earlier ones in this order: people, tests,
// conclusion, template fields. The result does not depend on map iteration order.
func (m *FieldMapper) GetFieldMapping(data ReportData) map[string]string {
	mapping := make(map[string]string)
	people := []map[string]any{data.Patient, data.Resp1, data.Resp2, data.Psychologist}

	for _, source := range people {
		for key, value := range source {
			mapping[key] = Stringify(value)
		}
	}
	for _, source := range people {
		for _, key := range sortedKeys(source) {
			for _, alias := range fieldAliases[key] {
				fillAlias(mapping, alias, Stringify(source[key]))
			}
		}
	}

	if name, ok := mapping["patient_name"]; ok {
		setDefault(mapping, FirstNameField, m.patients.ExtractFirstName(name))
	}

	for key, value := range data.Tests {
		mapping[key] = Stringify(value)
	}
	for _, key := range sortedKeys(data.Tests) {
		for _, alias := range testAliases[key] {
			fillAlias(mapping, alias, Stringify(data.Tests[key]))
		}
	}

	mapping["conclusion_text"] = data.Conclusion
	mapping["conclusao_text"] = data.Conclusion

	for key, value := range data.TemplateFields {
		mapping[key] = Stringify(value)
	}
	return mapping
}

// Stringify renders a collected value as placeholder text; nil becomes ""
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func setDefault(mapping map[string]string, key, value string) {
	if _, ok := mapping[key]; !ok {
		mapping[key] = value
	}
}

// fillAlias sets alias unless it already holds text
func fillAlias(mapping map[string]string, alias, value string) {
	if current, ok := mapping[alias]; ok && (strings.TrimSpace(current) != "" || strings.TrimSpace(value) == "") {
		return
	}
	mapping[alias] = value
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// isBlank reports whether a collected value carries no text
func isBlank(value any) bool {
	return strings.TrimSpace(Stringify(value)) == ""
}
