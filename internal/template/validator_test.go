package template

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/psyreport-mcp-server/internal/domain"
)

func TestFieldValidator_ValidateFieldName(t *testing.T) {
	v := NewFieldValidator()

	tests := []struct {
		name       string
		field      string
		wantValid  bool
		wantReason string
	}{
		{"Patient", "patient_name", true, "Valid patient field"},
		{"Respondent_1", "resp1_career", true, "Valid resp1 field"},
		{"Respondent_2", "resp2_age", true, "Valid resp2 field"},
		{"Psychologist", "crp_psicologo", true, "Valid psychologist field"},
		{"Conclusion", "conclusao_text", true, "Valid conclusion field"},
		{"WISC", "QIT_conclusao", true, "Valid test_wisc field"},
		{"ETDAH", "TOTAL_out", true, "Valid test_etdah field"},
		{"ETDAH_Conclusion", "ETDAH_CONCLUSAO_BLOCO", true, "Valid test_etdah_conclusion field"},
		{"Generic_Test", "AG_out", true, "Valid test_generic field"},
		{"Unknown_Identifier", "invalid_field", true, "Valid field name (no specific convention matched)"},
		{"Bare_Prefix", "patient", true, "Valid field name (no specific convention matched)"},
		{"Leading_Digit", "123field", false, "Field '123field' must start with a letter"},
		{"Leading_Underscore", "_hidden", false, "Field '_hidden' must start with a letter"},
		{"Dash", "field-with-dash", false, "Field 'field-with-dash' contains characters other than letters, digits and underscore"},
		{"Dot", "field.with.dot", false, "Field 'field.with.dot' contains characters other than letters, digits and underscore"},
		{"Space", "field with space", false, "Field 'field with space' contains characters other than letters, digits and underscore"},
		{"Accented", "paciente_idade_ã", false, "Field 'paciente_idade_ã' contains characters other than letters, digits and underscore"},
		{"Empty", "", false, "Field name is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, reason := v.ValidateFieldName(tt.field)
			assert.Equal(t, tt.wantValid, valid)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestFieldValidator_ValidateFields(t *testing.T) {
	v := NewFieldValidator()

	valid, invalid := v.ValidateFields([]string{"resp1_name", "9lives", "QIT_out", "x"})

	assert.Equal(t, []string{"QIT_out", "resp1_name", "x"}, valid)
	assert.Equal(t, []domain.FieldFinding{
		{Field: "9lives", Reason: "Field '9lives' must start with a letter"},
	}, invalid)

	valid, invalid = v.ValidateFields(nil)
	assert.Empty(t, valid)
	assert.Empty(t, invalid)
}

func TestFieldValidator_CheckRequiredFields(t *testing.T) {
	v := NewFieldValidator()
	fields := NewFieldSet("patient_name", "patient_birth", "QIT_out", "resp1_name", "AG_out")
	mapping := map[string]string{
		"patient_name":  "Maria",
		"patient_birth": "",
		"resp1_name":    "   ",
		"unused":        "x",
	}

	missing, empty := v.CheckRequiredFields(fields, mapping)

	assert.Equal(t, []string{"AG_out", "QIT_out"}, missing)
	assert.Equal(t, []string{"patient_birth", "resp1_name"}, empty)
}

func TestCategory(t *testing.T) {
	category, ok := Category("IVP_text_out")
	assert.True(t, ok)
	assert.Equal(t, "test_wisc", category)

	_, ok = Category("observacoes")
	assert.False(t, ok)
}

func TestExpectedFieldCategories(t *testing.T) {
	categories := ExpectedFieldCategories()
	v := NewFieldValidator()

	for name, examples := range categories {
		if name == "test_generic" {
			continue
		}
		for _, example := range examples {
			_, ok := Category(example)
			assert.True(t, ok, "%s example %s", name, example)
			valid, _ := v.ValidateFieldName(example)
			assert.True(t, valid, example)
		}
	}
}
