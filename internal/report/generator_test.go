package report

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psyreport-mcp-server/internal/docx"
	"github.com/psyreport-mcp-server/internal/domain"
	"github.com/psyreport-mcp-server/internal/template"
)

type generatorFixture struct {
	generator *Generator
	model     *DataModel
	outputDir string
	hook      *test.Hook
}

func newGeneratorFixture(t *testing.T, lines ...string) *generatorFixture {
	t.Helper()
	logger, hook := test.NewNullLogger()
	dir := t.TempDir()

	tpl := docx.New()
	for _, line := range lines {
		tpl.Body().AddParagraph(line)
	}
	tplPath := filepath.Join(dir, "modelo.docx")
	require.NoError(t, tpl.SaveFile(tplPath))

	loaded, err := docx.Open(tplPath)
	require.NoError(t, err)

	cache, err := docx.NewCache(4, logger)
	require.NoError(t, err)

	model := NewDataModel(NewPatientService(fixedClock(2024, time.June, 15)))
	model.SetTemplate(tplPath, loaded)

	outputDir := filepath.Join(dir, "laudos")
	gen := NewGenerator(logger, template.NewProcessor(logger), cache, domain.OutputConfig{Dir: outputDir})
	return &generatorFixture{generator: gen, model: model, outputDir: outputDir, hook: hook}
}

func TestGenerator_Generate(t *testing.T) {
	f := newGeneratorFixture(t,
		"Paciente: {patient_name} ({primeiro_nome_paciente}), {idd_paciente} anos",
		"QI total: {QIT_out}",
		"{conclusao_text}",
	)
	f.model.SetPatientData(map[string]any{"patient_name": "Maria Clara Souza", "patient_birth": "01/02/2015"})
	f.model.SetTestResults(map[string]any{"QIT_out": "Média"})
	f.model.SetConclusionText("Sem indicativos de alteração.")

	confirmCalled := false
	result, err := f.generator.Generate(context.Background(), f.model, GenerateOptions{
		Confirm: func(Findings) bool {
			confirmCalled = true
			return true
		},
	})
	require.NoError(t, err)

	assert.False(t, confirmCalled)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 5, result.Replacements)
	assert.Equal(t, filepath.Join(f.outputDir, "laudo_Maria_Clara_Souza.docx"), result.Path)
	assert.False(t, result.Findings.HasIssues())

	out, err := docx.Open(result.Path)
	require.NoError(t, err)
	paras := out.Body().Paragraphs()
	require.Len(t, paras, 3)
	assert.Equal(t, "Paciente: Maria Clara Souza (Maria), 9 anos", paras[0].Text())
	assert.Equal(t, "QI total: Média", paras[1].Text())
	assert.Equal(t, "Sem indicativos de alteração.", paras[2].Text())

	// the model's template stays untouched
	assert.Equal(t, "QI total: {QIT_out}", f.model.Template().Body().Paragraphs()[1].Text())
}

func TestGenerator_Findings(t *testing.T) {
	t.Run("Declined", func(t *testing.T) {
		f := newGeneratorFixture(t, "{patient_name} {QIT_out}")
		f.model.SetPatientData(map[string]any{"patient_name": "Maria"})

		var seen Findings
		_, err := f.generator.Generate(context.Background(), f.model, GenerateOptions{
			Confirm: func(findings Findings) bool {
				seen = findings
				return false
			},
		})
		assert.True(t, errors.Is(err, domain.ErrGenerationCancelled))
		var reportErr *domain.ReportError
		require.True(t, errors.As(err, &reportErr))
		assert.Equal(t, domain.ErrCodeValidation, reportErr.Code)
		assert.Equal(t, "0 invalid, 1 missing and 0 empty fields", reportErr.Message)
		assert.Equal(t, []string{"QIT_out"}, seen.Missing)
		assert.Empty(t, seen.Empty)
	})

	t.Run("Nil_Confirm_Proceeds", func(t *testing.T) {
		f := newGeneratorFixture(t, "{patient_school}|{AG_out}")

		result, err := f.generator.Generate(context.Background(), f.model, GenerateOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"patient_school"}, result.Findings.Empty)
		assert.Equal(t, []string{"AG_out"}, result.Findings.Missing)
		assert.Equal(t, filepath.Join(f.outputDir, "laudo.docx"), result.Path)

		out, err := docx.Open(result.Path)
		require.NoError(t, err)
		assert.Equal(t, "|", out.Body().Paragraphs()[0].Text())
		assert.NotNil(t, f.hook.LastEntry())
	})
}

func TestGenerator_OutputDirOverride(t *testing.T) {
	f := newGeneratorFixture(t, "{patient_name}")
	f.model.SetPatientData(map[string]any{"patient_name": "Ana"})
	other := filepath.Join(t.TempDir(), "outro")

	result, err := f.generator.Generate(context.Background(), f.model, GenerateOptions{OutputDir: other})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(other, "laudo_Ana.docx"), result.Path)
}

func TestGenerator_Errors(t *testing.T) {
	t.Run("Template_Not_Loaded", func(t *testing.T) {
		f := newGeneratorFixture(t, "x")
		_, err := f.generator.Generate(context.Background(), NewDataModel(nil), GenerateOptions{})
		assert.True(t, errors.Is(err, domain.ErrTemplateNotLoaded))

		var reportErr *domain.ReportError
		require.True(t, errors.As(err, &reportErr))
		assert.Equal(t, domain.ErrCodeTemplate, reportErr.Code)
	})

	t.Run("Cancelled_Context", func(t *testing.T) {
		f := newGeneratorFixture(t, "x")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := f.generator.Generate(ctx, f.model, GenerateOptions{})
		assert.True(t, errors.Is(err, context.Canceled))
	})

	t.Run("Template_Removed_From_Disk", func(t *testing.T) {
		f := newGeneratorFixture(t, "x")
		f.model.SetTemplate(filepath.Join(t.TempDir(), "sumiu.docx"), f.model.Template())
		_, err := f.generator.Generate(context.Background(), f.model, GenerateOptions{})
		assert.Error(t, err)
	})
}

func TestReportFilename(t *testing.T) {
	tests := []struct {
		name        string
		prefix      string
		patientName string
		want        string
	}{
		{"Plain_Name", "laudo", "Maria Clara Souza", "laudo_Maria_Clara_Souza.docx"},
		{"Accents_Kept", "laudo", "João Conceição", "laudo_João_Conceição.docx"},
		{"Punctuation_Dropped", "laudo", "Ana (filha)/2", "laudo_Ana_filha2.docx"},
		{"Hyphen_Kept", "relatorio", " Ana-Lu ", "relatorio_Ana-Lu.docx"},
		{"Empty_Name", "laudo", "   ", "laudo.docx"},
		{"Only_Symbols", "laudo", "?!", "laudo.docx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReportFilename(tt.prefix, tt.patientName))
		})
	}
}
