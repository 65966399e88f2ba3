package template

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/psyreport-mcp-server/internal/domain"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// fieldCategory is a naming convention placeholders are expected to follow
type fieldCategory struct {
	name    string
	pattern *regexp.Regexp
}

// fieldCategories are tried in order; the first match names the category
var fieldCategories = []fieldCategory{
	{"patient", regexp.MustCompile(`^patient_(name|birth|crono_age|school|class)$`)},
	{"resp1", regexp.MustCompile(`^resp1_(name|career|education|age)$`)},
	{"resp2", regexp.MustCompile(`^resp2_(name|career|education|age)$`)},
	{"psychologist", regexp.MustCompile(`^(nome_psicologo|crp_psicologo)$`)},
	{"conclusion", regexp.MustCompile(`^conclusao_text$`)},
	{"test_wisc", regexp.MustCompile(`^(QIT|ICV|IOP|IMO|IVP)(_out|_conclusao|_text_out)$`)},
	{"test_etdah", regexp.MustCompile(`^(F1|F2|F3|F4|TOTAL)_out$`)},
	{"test_etdah_conclusion", regexp.MustCompile(`^ETDAH_CONCLUSAO_BLOCO$`)},
	{"test_generic", regexp.MustCompile(`^[A-Z0-9_]+(_out|_conclusao|_text_out)$`)},
}

// FieldValidator checks placeholder names against the naming conventions.
// The conventions are informational: any identifier that starts with a
// letter is accepted, only malformed names are rejected.
type FieldValidator struct{}

// NewFieldValidator creates a new field validator
func NewFieldValidator() *FieldValidator {
	return &FieldValidator{}
}

// ValidateFieldName reports whether name is acceptable and why
func (v *FieldValidator) ValidateFieldName(name string) (bool, string) {
	if name == "" {
		return false, "Field name is empty"
	}
	if !identifierPattern.MatchString(name) {
		return false, fmt.Sprintf("Field '%s' contains characters other than letters, digits and underscore", name)
	}

	if category, ok := Category(name); ok {
		return true, fmt.Sprintf("Valid %s field", category)
	}

	first := name[0]
	if ('a' <= first && first <= 'z') || ('A' <= first && first <= 'Z') {
		return true, "Valid field name (no specific convention matched)"
	}
	return false, fmt.Sprintf("Field '%s' must start with a letter", name)
}

// ValidateFields splits names into accepted names and rejected findings,
// both in lexical order
func (v *FieldValidator) ValidateFields(names []string) ([]string, []domain.FieldFinding) {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	valid := []string{}
	invalid := []domain.FieldFinding{}
	for _, name := range sorted {
		ok, reason := v.ValidateFieldName(name)
		if ok {
			valid = append(valid, name)
			continue
		}
		invalid = append(invalid, domain.FieldFinding{Field: name, Reason: reason})
	}
	return valid, invalid
}

// CheckRequiredFields lists the fields with no entry in mapping and the
// fields whose value is blank. Both lists are sorted.
func (v *FieldValidator) CheckRequiredFields(fields FieldSet, mapping map[string]string) (missing, empty []string) {
	missing, empty = []string{}, []string{}
	for _, name := range fields.Sorted() {
		value, ok := mapping[name]
		switch {
		case !ok:
			missing = append(missing, name)
		case strings.TrimSpace(value) == "":
			empty = append(empty, name)
		}
	}
	return missing, empty
}

// Category returns the naming convention matched by name
func Category(name string) (string, bool) {
	for _, c := range fieldCategories {
		if c.pattern.MatchString(name) {
			return c.name, true
		}
	}
	return "", false
}

// ExpectedFieldCategories lists example placeholder names per convention
func ExpectedFieldCategories() map[string][]string {
	return map[string][]string{
		"patient":      {"patient_name", "patient_birth", "patient_crono_age", "patient_school", "patient_class"},
		"respondent_1": {"resp1_name", "resp1_career", "resp1_education", "resp1_age"},
		"respondent_2": {"resp2_name", "resp2_career", "resp2_education", "resp2_age"},
		"psychologist": {"nome_psicologo", "crp_psicologo"},
		"conclusion":   {"conclusao_text"},
		"test_wisc":    {"QIT_out", "ICV_out", "IOP_out", "QIT_conclusao", "ICV_text_out"},
		"test_etdah":   {"F1_out", "F2_out", "F3_out", "F4_out", "TOTAL_out", "ETDAH_CONCLUSAO_BLOCO"},
		"test_generic": {"Any uppercase field ending with _out, _conclusao or _text_out"},
	}
}
