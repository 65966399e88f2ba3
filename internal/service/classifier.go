package service

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/psyreport-mcp-server/internal/domain"
	"github.com/psyreport-mcp-server/internal/scoretable"
)

// TableSource supplies score tables by key
type TableSource interface {
	Get(key string) (*scoretable.Table, bool)
}

var _ domain.ScoreClassifier = (*ClassifierService)(nil)

// ClassifierService derives classification and narrative fields from raw test scores
type ClassifierService struct {
	logger      *logrus.Logger
	tables      TableSource
	instruments []instrument
}

// NewClassifierService creates a new classifier service
func NewClassifierService(logger *logrus.Logger, tables TableSource) *ClassifierService {
	return &ClassifierService{
		logger:      logger,
		tables:      tables,
		instruments: defaultInstruments(),
	}
}

// Classify returns a copy of raw augmented with every derivable field.
// The input map is never modified. Instruments whose table is missing are
// skipped; instruments whose table cannot classify are reported in a
// *domain.ClassificationError while the remaining instruments still apply.
func (c *ClassifierService) Classify(raw map[string]any) (result map[string]any, err error) {
	if len(raw) == 0 {
		return raw, nil
	}

	augmented := maps.Clone(raw)

	defer func() {
		if r := recover(); r != nil {
			result = augmented
			err = &domain.ClassificationError{Panic: r}
		}
	}()

	var failures []*domain.InstrumentError
	applied := 0
	for _, inst := range c.instruments {
		table, ok := c.tables.Get(inst.table)
		if !ok {
			continue
		}
		if err := inst.apply(table, augmented, raw); err != nil {
			failures = append(failures, &domain.InstrumentError{Instrument: inst.table, Err: err})
			continue
		}
		applied++
	}

	c.logger.WithFields(logrus.Fields{
		"input_fields":   len(raw),
		"derived_fields": len(augmented) - len(raw),
		"instruments":    applied,
		"failed":         len(failures),
	}).Debug("Test results classified")

	if len(failures) > 0 {
		return augmented, &domain.ClassificationError{Failures: failures}
	}
	return augmented, nil
}

// ClassifyResults is the best-effort form of Classify. Instruments that fail
// are logged and left unclassified while the others keep their derived
// fields; after a recovered panic an unclassified copy of raw is returned.
func (c *ClassifierService) ClassifyResults(raw map[string]any) map[string]any {
	result, err := c.Classify(raw)
	if err == nil {
		return result
	}

	var classErr *domain.ClassificationError
	if errors.As(err, &classErr) && classErr.Panic == nil {
		c.logger.WithError(err).WithField("instruments", classErr.Instruments()).
			Warn("Some instruments could not be classified")
		return result
	}
	c.logger.WithError(err).Warn("Classification failed, keeping raw test results")
	return maps.Clone(raw)
}

// lookup selects the rule set and text of a classification
type lookup struct {
	ruleSet     string
	textKey     string
	postprocess func(string) string
}

// classifyValue clamps value into the rule set's global bounds and returns the
// text of the first rule containing it. ok is false when no text applies.
func classifyValue(table *scoretable.Table, value float64, opts lookup) (text string, ok bool, err error) {
	rules := table.Rules(opts.ruleSet)
	if len(rules) == 0 {
		return "", false, nil
	}

	min, max, bounded := scoretable.GlobalBounds(rules)
	if !bounded {
		name := opts.ruleSet
		if name == "" {
			name = scoretable.RuleSetDefault
		}
		return "", false, fmt.Errorf("%s: %w", name, scoretable.ErrNoUsableRules)
	}
	value = clamp(value, min, max)

	key := opts.textKey
	if key == "" {
		key = scoretable.TextKey
	}

	for _, rule := range rules {
		if !rule.Contains(value) {
			continue
		}
		text = rule.Text(key)
		if text == "" && key != scoretable.InterpretationKey {
			text = rule.Text(scoretable.InterpretationKey)
		}
		break
	}

	if text == "" {
		return "", false, nil
	}
	if opts.postprocess != nil {
		text = opts.postprocess(text)
	}
	return text, true, nil
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

const pontuacaoPrefix = "pontuação "

// stripPontuacaoPrefix drops a leading "Pontuação " and capitalizes the rest
func stripPontuacaoPrefix(text string) string {
	if len(text) >= len(pontuacaoPrefix) && strings.EqualFold(text[:len(pontuacaoPrefix)], pontuacaoPrefix) {
		text = text[len(pontuacaoPrefix):]
	}
	r, size := utf8.DecodeRuneInString(text)
	if size == 0 {
		return text
	}
	return string(unicode.ToUpper(r)) + text[size:]
}

// storeIfEmpty writes value only when key is absent, nil or a blank string
func storeIfEmpty(target map[string]any, key string, value any) {
	current, ok := target[key]
	if !ok || current == nil {
		target[key] = value
		return
	}
	if s, isString := current.(string); isString && strings.TrimSpace(s) == "" {
		target[key] = value
	}
}
