package scoretable

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBound_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantValid bool
		wantValue float64
	}{
		{"Integer", `70`, true, 70},
		{"Float", `29.5`, true, 29.5},
		{"Numeric_String", `" 85 "`, true, 85},
		{"Null", `null`, false, 0},
		{"Word", `"alto"`, false, 0},
		{"Bool", `true`, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b Bound
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &b))
			assert.Equal(t, tt.wantValid, b.Valid)
			assert.Equal(t, tt.wantValue, b.Value)
		})
	}
}

func TestRule_UnmarshalJSON(t *testing.T) {
	var r Rule
	err := json.Unmarshal([]byte(`{"faixa_min": 30, "faixa_max": "36.5", "texto": "Leve", "interpretacao": "Indicativos", "peso": 2}`), &r)
	require.NoError(t, err)

	assert.True(t, r.HasBounds())
	assert.Equal(t, 36.5, r.Max.Value)
	assert.Equal(t, "Leve", r.Text(TextKey))
	assert.Equal(t, "Indicativos", r.Text(InterpretationKey))
	assert.NotContains(t, r.Texts, "peso")

	assert.True(t, r.Contains(30))
	assert.True(t, r.Contains(36.5))
	assert.False(t, r.Contains(36.6))
}

func TestTable_UnmarshalJSON(t *testing.T) {
	data := `{
	  "instrumento": "WISC-IV",
	  "classificacoes": [{"faixa_min": 0, "faixa_max": 10, "texto": "A"}],
	  "classificacoes_pp": [{"faixa_min": 40, "faixa_max": 160, "texto": "B"}],
	  "opcoes_texto_analise": {"QIT_conclusao": ["primeiro", 3, "segundo"]}
	}`

	var table Table
	require.NoError(t, json.Unmarshal([]byte(data), &table))

	assert.Len(t, table.RuleSets, 2)
	assert.Equal(t, "B", table.Rules(RuleSetPercentile)[0].Text(TextKey))
	assert.Equal(t, "A", table.Rules(RuleSetSubtests)[0].Text(TextKey))
	assert.Equal(t, "A", table.Rules("")[0].Text(TextKey))

	text, ok := table.Narrative("QIT_conclusao")
	assert.True(t, ok)
	assert.Equal(t, "primeiro", text)
	assert.Equal(t, []string{"primeiro", "segundo"}, table.Narratives["QIT_conclusao"])

	_, ok = table.Narrative("ICV_text_out")
	assert.False(t, ok)
}

func TestTable_RulesFallsBackWhenNamedSetIsEmpty(t *testing.T) {
	table := Table{RuleSets: map[string][]Rule{
		RuleSetDefault:    {{Texts: map[string]string{TextKey: "default"}}},
		RuleSetPercentile: {},
	}}
	require.Len(t, table.Rules(RuleSetPercentile), 1)
	assert.Equal(t, "default", table.Rules(RuleSetPercentile)[0].Text(TextKey))
}

func TestTable_Validate(t *testing.T) {
	var ok Table
	require.NoError(t, json.Unmarshal([]byte(`{"classificacoes": [{"faixa_min": "x", "faixa_max": 1}, {"faixa_min": 2, "faixa_max": 3}]}`), &ok))
	assert.NoError(t, ok.Validate())

	var empty Table
	require.NoError(t, json.Unmarshal([]byte(`{"classificacoes": []}`), &empty))
	assert.NoError(t, empty.Validate())

	var unusable Table
	require.NoError(t, json.Unmarshal([]byte(`{"classificacoes": [{"faixa_min": "baixo", "faixa_max": "alto", "texto": "?"}]}`), &unusable))
	unusable.Key = "cars"
	err := unusable.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoUsableRules))
	assert.Contains(t, err.Error(), "cars")
}

func TestGlobalBounds(t *testing.T) {
	rules := []Rule{
		{Min: Bound{50, true}, Max: Bound{69, true}},
		{Min: Bound{}, Max: Bound{200, true}},
		{Min: Bound{70, true}, Max: Bound{130, true}},
	}

	min, max, ok := GlobalBounds(rules)
	assert.True(t, ok)
	assert.Equal(t, 50.0, min)
	assert.Equal(t, 130.0, max)

	_, _, ok = GlobalBounds(nil)
	assert.False(t, ok)
}
