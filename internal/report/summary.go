package report

import (
	"strings"
)

type summaryItem struct {
	test          string
	label         string
	percentileKey string
	classKey      string
}

type summaryCategory struct {
	name  string
	items []summaryItem
}

var summaryLayout = []summaryCategory{
	{"Atenção", []summaryItem{
		{"BPA", "Atenção Concentrada", "AC_percentil", "AC_classificacao"},
		{"BPA", "Atenção Dividida", "AD_percentil", "AD_classificacao"},
		{"BPA", "Atenção Alternada", "AA_percentil", "AA_classificacao"},
		{"BPA", "Atenção Geral", "AG_percentil", "AG_classificacao"},
	}},
	{"Memória", []summaryItem{
		{"MVR", "Memória Visual (Rosto)", "MVR_percentil", "MVR_classificacao"},
		{"TEPIC-M", "Memória Visual (Figuras)", "TEPIC_M_percentil", "TEPIC_M_classificacao"},
	}},
	{"Inteligência", []summaryItem{
		{"R-1", "Inteligência Não Verbal", "R1_percentil", "R1_classificacao"},
		{"G-36", "Inteligência Geral", "G36_percentil", "G36_classificacao"},
		{"Raven", "Matrizes Progressivas", "Raven_percentil", "Raven_classificacao"},
	}},
	{"Personalidade", []summaryItem{
		{"Quati", "Personalidade", "", "Quati_classificacao"},
		{"Palográfico", "Produtividade", "Palo_produtividade_percentil", "Palo_produtividade_classificacao"},
	}},
}

// SummaryService renders test results as a short plain-text overview
type SummaryService struct{}

// NewSummaryService creates a new summary service
func NewSummaryService() *SummaryService {
	return &SummaryService{}
}

// BuildSummaryText lists the available percentiles and classifications
// grouped by category. Categories without data are omitted.
func (s *SummaryService) BuildSummaryText(results map[string]any) string {
	var lines []string

	for _, category := range summaryLayout {
		var categoryLines []string
		for _, item := range category.items {
			if line, ok := summaryLine(item, results); ok {
				categoryLines = append(categoryLines, line)
			}
		}
		if len(categoryLines) == 0 {
			continue
		}
		lines = append(lines, "=== "+category.name+" ===")
		lines = append(lines, categoryLines...)
		lines = append(lines, "")
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func summaryLine(item summaryItem, results map[string]any) (string, bool) {
	class := presentValue(results, item.classKey)

	// Quati reports a type, never a percentile
	if item.percentileKey == "" {
		if class == "" {
			return "", false
		}
		return "- " + item.test + " (" + item.label + "): " + class, true
	}

	percentile := presentValue(results, item.percentileKey)
	if percentile == "" && class == "" {
		return "", false
	}
	line := "- " + item.test + " (" + item.label + "):"
	if percentile != "" {
		line += " Percentil " + percentile
	}
	if class != "" {
		line += " - " + class
	}
	return line, true
}

// presentValue returns the value's text, or "" when it is missing or falsy
func presentValue(results map[string]any, key string) string {
	value, ok := results[key]
	if !ok {
		return ""
	}
	switch v := value.(type) {
	case bool:
		if !v {
			return ""
		}
	case float64:
		if v == 0 {
			return ""
		}
	case int:
		if v == 0 {
			return ""
		}
	}
	return Stringify(value)
}
