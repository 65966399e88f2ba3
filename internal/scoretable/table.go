package scoretable

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Rule sets recognized inside a table file.
const (
	RuleSetDefault    = "classificacoes"
	RuleSetPercentile = "classificacoes_pp"
	RuleSetSubtests   = "classificacoes_subtestes"
)

// Text keys carried by classification rules.
const (
	TextKey           = "texto"
	InterpretationKey = "interpretacao"
)

// Narrative markers substituted inside templates of the narrative library.
const (
	ClassificationMarker = "[CLASSIFICAÇÃO AQUI]"
	ComplementMarker     = "[COMPLEMENTO AQUI]"
)

// ErrNoUsableRules is reported when a rule list has entries but none with numeric bounds
var ErrNoUsableRules = errors.New("rule list has no rule with numeric bounds")

// Bound is a lenient numeric bound: JSON numbers and numeric strings are accepted,
// anything else leaves the bound unset and the rule is ignored.
type Bound struct {
	Value float64
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler
func (b *Bound) UnmarshalJSON(data []byte) error {
	*b = Bound{}
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	b.Value, b.Valid = f, true
	return nil
}

// Rule is one classification band: an inclusive [Min, Max] interval and its texts
type Rule struct {
	Min   Bound
	Max   Bound
	Texts map[string]string
}

// UnmarshalJSON keeps the bounds and every string-valued text field of the rule
func (r *Rule) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*r = Rule{Texts: make(map[string]string)}
	for key, value := range fields {
		switch key {
		case "faixa_min":
			if err := r.Min.UnmarshalJSON(value); err != nil {
				return err
			}
		case "faixa_max":
			if err := r.Max.UnmarshalJSON(value); err != nil {
				return err
			}
		default:
			var s string
			if json.Unmarshal(value, &s) == nil {
				r.Texts[key] = s
			}
		}
	}
	return nil
}

// HasBounds reports whether both bounds parsed as numbers
func (r Rule) HasBounds() bool {
	return r.Min.Valid && r.Max.Valid
}

// Contains reports whether value falls in [Min, Max]
func (r Rule) Contains(value float64) bool {
	return r.HasBounds() && r.Min.Value <= value && value <= r.Max.Value
}

// Text returns the text stored under key
func (r Rule) Text(key string) string {
	return r.Texts[key]
}

// Table is the in-memory form of one instrument's *_table.jsonc file
type Table struct {
	Key        string
	RuleSets   map[string][]Rule
	Narratives map[string][]string
}

// UnmarshalJSON decodes every top-level array of objects as a rule set and the
// narrative library under opcoes_texto_analise; other keys are ignored.
func (t *Table) UnmarshalJSON(data []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return err
	}
	t.RuleSets = make(map[string][]Rule)
	t.Narratives = make(map[string][]string)

	for key, value := range top {
		if key == "opcoes_texto_analise" {
			var library map[string][]json.RawMessage
			if err := json.Unmarshal(value, &library); err != nil {
				return fmt.Errorf("opcoes_texto_analise: %w", err)
			}
			for option, texts := range library {
				for _, text := range texts {
					var s string
					if json.Unmarshal(text, &s) == nil {
						t.Narratives[option] = append(t.Narratives[option], s)
					}
				}
			}
			continue
		}
		if !strings.HasPrefix(key, "classificacoes") {
			continue
		}
		var rules []Rule
		if err := json.Unmarshal(value, &rules); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		t.RuleSets[key] = rules
	}
	return nil
}

// Rules returns the named rule set when present and non-empty, otherwise the default set
func (t *Table) Rules(ruleSet string) []Rule {
	if ruleSet != "" {
		if rules := t.RuleSets[ruleSet]; len(rules) > 0 {
			return rules
		}
	}
	return t.RuleSets[RuleSetDefault]
}

// Narrative returns the first template registered for option
func (t *Table) Narrative(option string) (string, bool) {
	texts := t.Narratives[option]
	if len(texts) == 0 {
		return "", false
	}
	return texts[0], true
}

// Validate reports rule sets that can never classify anything
func (t *Table) Validate() error {
	for name, rules := range t.RuleSets {
		if len(rules) == 0 {
			continue
		}
		usable := false
		for _, rule := range rules {
			if rule.HasBounds() {
				usable = true
				break
			}
		}
		if !usable {
			return fmt.Errorf("table %s, %s: %w", t.Key, name, ErrNoUsableRules)
		}
	}
	return nil
}

// GlobalBounds returns the lowest Min and the highest Max declared across rules
func GlobalBounds(rules []Rule) (min, max float64, ok bool) {
	for _, rule := range rules {
		if !rule.HasBounds() {
			continue
		}
		if !ok {
			min, max, ok = rule.Min.Value, rule.Max.Value, true
			continue
		}
		if rule.Min.Value < min {
			min = rule.Min.Value
		}
		if rule.Max.Value > max {
			max = rule.Max.Value
		}
	}
	return min, max, ok
}
