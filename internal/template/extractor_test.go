package template

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/psyreport-mcp-server/internal/docx"
)

func TestExtractor_NilDocument(t *testing.T) {
	fields := NewExtractor().ExtractFields(nil)
	assert.NotNil(t, fields)
	assert.Empty(t, fields)
}

func TestExtractor_ExtractFields(t *testing.T) {
	doc := docx.New()
	doc.Body().AddParagraph("Paciente {patient_name}, {patient_crono_age} anos, {patient_name}")
	addSplitParagraph(doc.Body(), "Resultado: {", "QIT", "_out", "}")
	doc.Body().AddParagraph("Ignorados: {} { espaço } {campo-invalido} {{dupla}}")
	tbl := doc.Body().AddTable(1, 2)
	tbl.Cell(0, 1).Paragraphs()[0].AddRun("{AG_out}")
	doc.AddHeader().AddTable(1, 1).Cell(0, 0).Paragraphs()[0].AddRun("{nome_psicologo}")
	doc.AddFooter().AddParagraph("{crp_psicologo}")

	fields := NewExtractor().ExtractFields(doc)

	assert.Equal(t, []string{
		"AG_out",
		"QIT_out",
		"crp_psicologo",
		"dupla",
		"nome_psicologo",
		"patient_crono_age",
		"patient_name",
	}, fields.Sorted())
	assert.True(t, fields.Has("dupla"))
	assert.False(t, fields.Has("campo-invalido"))
}

func TestExtractor_EmptyDocument(t *testing.T) {
	assert.Empty(t, NewExtractor().ExtractFields(docx.New()))
}

func TestFieldSet(t *testing.T) {
	s := NewFieldSet("b", "a", "b")
	assert.Len(t, s, 2)
	assert.Equal(t, []string{"a", "b"}, s.Sorted())
	assert.True(t, s.Has("a"))
	assert.False(t, s.Has("c"))
}
