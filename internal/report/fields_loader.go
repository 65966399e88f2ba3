package report

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/template_fields.yaml
var defaultTemplateFields []byte

// FieldConfig describes one free-text placeholder offered to the clinician
type FieldConfig struct {
	Name   string         `yaml:"name" json:"name"`
	Label  string         `yaml:"label,omitempty" json:"label,omitempty"`
	Widget string         `yaml:"widget,omitempty" json:"widget,omitempty"`
	Extra  map[string]any `yaml:",inline" json:"extra,omitempty"`
}

// SectionConfig groups related fields
type SectionConfig struct {
	ID     string        `yaml:"id" json:"id"`
	Label  string        `yaml:"label,omitempty" json:"label,omitempty"`
	Fields []FieldConfig `yaml:"fields" json:"fields"`
}

// TemplateFieldsConfig is the parsed template fields file
type TemplateFieldsConfig struct {
	Sections []SectionConfig `yaml:"sections" json:"sections"`
}

// TemplateFieldsLoader reads the template fields file once and caches it.
// The file may be YAML or JSON.
type TemplateFieldsLoader struct {
	path string

	mu     sync.Mutex
	config *TemplateFieldsConfig
}

// NewTemplateFieldsLoader creates a loader for path; an empty path selects
// the built-in configuration
func NewTemplateFieldsLoader(path string) *TemplateFieldsLoader {
	return &TemplateFieldsLoader{path: path}
}

// LoadConfig returns the parsed configuration
func (l *TemplateFieldsLoader) LoadConfig() (*TemplateFieldsConfig, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.config != nil {
		return l.config, nil
	}

	data := defaultTemplateFields
	source := "built-in"
	if l.path != "" {
		var err error
		data, err = os.ReadFile(l.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read template fields config: %w", err)
		}
		source = l.path
	}

	config := &TemplateFieldsConfig{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse template fields config %s: %w", source, err)
	}
	for i, section := range config.Sections {
		for j, field := range section.Fields {
			if field.Name == "" {
				return nil, fmt.Errorf("%s: section %d field %d has no name", source, i, j)
			}
		}
	}

	l.config = config
	return config, nil
}

// AllFields returns every configured field keyed by name.
// A name repeated in a later section replaces the earlier entry.
func (l *TemplateFieldsLoader) AllFields() (map[string]FieldConfig, error) {
	config, err := l.LoadConfig()
	if err != nil {
		return nil, err
	}
	fields := make(map[string]FieldConfig)
	for _, section := range config.Sections {
		for _, field := range section.Fields {
			fields[field.Name] = field
		}
	}
	return fields, nil
}

// Sections returns the configured sections in file order
func (l *TemplateFieldsLoader) Sections() ([]SectionConfig, error) {
	config, err := l.LoadConfig()
	if err != nil {
		return nil, err
	}
	return config.Sections, nil
}
