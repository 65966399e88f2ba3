package service

import (
	"strings"

	"github.com/psyreport-mcp-server/internal/scoretable"
)

// instrument applies one score table to a result set. source is the
// caller's untouched input, target the copy being augmented.
type instrument struct {
	table string
	apply func(table *scoretable.Table, target, source map[string]any) error
}

// fieldPair maps a raw score field to the field receiving its classification
type fieldPair struct {
	raw string
	out string
}

func defaultInstruments() []instrument {
	return []instrument{
		{table: "wisc", apply: applyWISC},
		{table: "ravlt", apply: applyFieldPairs(prefixedPairs("_RAVLT", "IP", "IR", "VE", "ETM", "ALT"))},
		{table: "bpa", apply: applyBPA},
		{table: "fdt", apply: applyFieldPairs([]fieldPair{{"CI_FDT", "CI_out"}, {"FC_FDT", "FC_out"}})},
		{table: "srs", apply: applySRS},
		{table: "etdah", apply: applyETDAH},
		{table: "cars", apply: applyCARS},
		{table: "neupsilin", apply: applyFieldPairs([]fieldPair{{"TASK_NEUP", "TASK_out"}})},
	}
}

func prefixedPairs(suffix string, prefixes ...string) []fieldPair {
	pairs := make([]fieldPair, 0, len(prefixes))
	for _, p := range prefixes {
		pairs = append(pairs, fieldPair{raw: p + suffix, out: p + "_out"})
	}
	return pairs
}

// applyFieldPairs classifies each raw field with the default rule set
func applyFieldPairs(pairs []fieldPair) func(*scoretable.Table, map[string]any, map[string]any) error {
	return func(table *scoretable.Table, target, source map[string]any) error {
		for _, pair := range pairs {
			score, ok := toNumber(source[pair.raw])
			if !ok {
				continue
			}
			text, found, err := classifyValue(table, score, lookup{})
			if err != nil {
				return err
			}
			if found {
				storeIfEmpty(target, pair.out, text)
			}
		}
		return nil
	}
}

var (
	wiscIndexes    = []string{"QIT", "ICV", "IOP", "IMO", "IVP"}
	wiscComponents = []string{"ICV", "IOP", "IMO", "IVP"}
	wiscSubtests   = prefixedPairs("_WISC", "DIGS", "SNL", "ARIT", "SEME", "RV", "RNV", "CUBE", "VP")

	wiscComplements = map[string]string{
		"ICV": "resultados coerentes com as habilidades verbais observadas",
		"IOP": "resultados alinhados ao desempenho em tarefas visuoespaciais",
		"IMO": "desempenho compatível com a capacidade de atenção e memória operacional",
		"IVP": "resultado condizente com a velocidade de processamento apresentada",
	}
)

const wiscDefaultComplement = "resultados compatíveis com a pontuação obtida"

func applyWISC(table *scoretable.Table, target, source map[string]any) error {
	scores := make(map[string]float64, len(wiscIndexes))
	for _, prefix := range wiscIndexes {
		if v, ok := toNumber(source[prefix+"_WISC"]); ok {
			scores[prefix] = v
		}
	}

	if _, ok := scores["QIT"]; !ok {
		var present []float64
		for _, prefix := range wiscComponents {
			if v, ok := scores[prefix]; ok {
				present = append(present, v)
			}
		}
		if qit, ok := mean(present); ok {
			scores["QIT"] = qit
			storeIfEmpty(target, "QIT_WISC", roundScore(qit))
		}
	}

	indexLookup := lookup{ruleSet: scoretable.RuleSetPercentile, postprocess: stripPontuacaoPrefix}
	for _, prefix := range wiscIndexes {
		score, ok := scores[prefix]
		if !ok {
			continue
		}
		classification, found, err := classifyValue(table, score, indexLookup)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		storeIfEmpty(target, prefix+"_out", classification)

		option := wiscNarrativeField(prefix)
		if text := buildWISCText(table, prefix, option, classification); text != "" {
			storeIfEmpty(target, option, text)
		}
	}

	subtestSet := scoretable.RuleSetSubtests
	if len(table.RuleSets[subtestSet]) == 0 {
		subtestSet = scoretable.RuleSetPercentile
	}
	subtestLookup := lookup{ruleSet: subtestSet, postprocess: stripPontuacaoPrefix}
	for _, pair := range wiscSubtests {
		score, ok := toNumber(source[pair.raw])
		if !ok {
			continue
		}
		classification, found, err := classifyValue(table, score, subtestLookup)
		if err != nil {
			return err
		}
		if found {
			storeIfEmpty(target, pair.out, classification)
		}
	}
	return nil
}

func wiscNarrativeField(prefix string) string {
	if prefix == "QIT" {
		return "QIT_conclusao"
	}
	return prefix + "_text_out"
}

// buildWISCText fills the first narrative registered for option
func buildWISCText(table *scoretable.Table, prefix, option, classification string) string {
	template, ok := table.Narrative(option)
	if !ok {
		return ""
	}

	text := strings.ReplaceAll(template, scoretable.ClassificationMarker, classification)
	if strings.Contains(text, scoretable.ComplementMarker) {
		complement, ok := wiscComplements[prefix]
		if !ok {
			complement = wiscDefaultComplement
		}
		text = strings.ReplaceAll(text, scoretable.ComplementMarker, complement)
	}
	text = normalizeSentence(text)

	if prefix == "QIT" {
		if text == "" {
			return classification
		}
		return classification + ". " + text
	}
	return text
}

// normalizeSentence removes the space before punctuation left by empty markers
// and collapses runs of whitespace
func normalizeSentence(text string) string {
	text = strings.ReplaceAll(text, " ,", ",")
	text = strings.ReplaceAll(text, " .", ".")
	return strings.Join(strings.Fields(text), " ")
}

var bpaFields = []fieldPair{
	{"AG_BPA", "AG_conclusao"},
	{"AA_BPA", "AA_out"},
	{"AC_BPA", "AC_out"},
	{"AD_BPA", "AD_out"},
}

func applyBPA(table *scoretable.Table, target, source map[string]any) error {
	general, hasGeneral := toNumber(source["AG_BPA"])
	generated := false
	if !hasGeneral {
		var present []float64
		for _, key := range []string{"AC_BPA", "AD_BPA", "AA_BPA"} {
			if v, ok := toNumber(source[key]); ok {
				present = append(present, v)
			}
		}
		general, hasGeneral = mean(present)
		generated = hasGeneral
	}

	for _, pair := range bpaFields {
		var score float64
		if pair.raw == "AG_BPA" {
			if !hasGeneral {
				continue
			}
			score = general
		} else {
			v, ok := toNumber(source[pair.raw])
			if !ok {
				continue
			}
			score = v
		}

		classification, found, err := classifyValue(table, score, lookup{})
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		storeIfEmpty(target, pair.out, classification)

		if pair.raw == "AG_BPA" {
			storeIfEmpty(target, "AG_out", classification)
			if generated {
				storeIfEmpty(target, "AG_BPA", roundScore(score))
			}
			storeIfEmpty(target, "AG_pontuacao", roundScore(score))
		}
	}
	return nil
}

func applySRS(table *scoretable.Table, target, source map[string]any) error {
	score, ok := toNumber(source["SRS_ESCORE_TOTAL"])
	if !ok {
		return nil
	}

	classification, found, err := classifyValue(table, score, lookup{})
	if err != nil || !found {
		return err
	}
	storeIfEmpty(target, "SRS_ESCORE_T_FAIXA", classification)

	interpretation, found, err := classifyValue(table, score, lookup{textKey: scoretable.InterpretationKey})
	if err != nil {
		return err
	}
	if found {
		storeIfEmpty(target, "SRS_NIVEL", classification+": "+interpretation)
		storeIfEmpty(target, "SRS_INTERPRETACAO", interpretation)
		return nil
	}
	storeIfEmpty(target, "SRS_NIVEL", classification)
	return nil
}

var etdahPrefixes = []string{"F1", "F2", "F3", "F4", "TOTAL"}

func applyETDAH(table *scoretable.Table, target, source map[string]any) error {
	for _, prefix := range etdahPrefixes {
		raw := source[prefix+"_ETDAH"]
		if raw == nil && prefix == "TOTAL" {
			// legacy templates spell the instrument ETADH
			raw = source["TOTAL_ETADH"]
		}
		score, ok := toNumber(raw)
		if !ok {
			continue
		}
		classification, found, err := classifyValue(table, score, lookup{})
		if err != nil {
			return err
		}
		if found {
			storeIfEmpty(target, prefix+"_out", classification)
		}
	}
	return nil
}

func applyCARS(table *scoretable.Table, target, source map[string]any) error {
	score, ok := toNumber(source["CARS_PONTUACAO"])
	if !ok {
		return nil
	}
	interpretation, found, err := classifyValue(table, score, lookup{textKey: scoretable.InterpretationKey})
	if err != nil || !found {
		return err
	}
	storeIfEmpty(target, "CARS_INTERPRETACAO", interpretation)
	return nil
}
