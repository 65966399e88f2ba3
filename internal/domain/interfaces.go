package domain

// ScoreClassifier derives interpretive fields from raw test scores
type ScoreClassifier interface {
	// Classify returns the augmented copy and an explicit error when an instrument failed
	Classify(raw map[string]any) (map[string]any, error)
	// ClassifyResults is the best-effort form: on error the raw input is returned
	ClassifyResults(raw map[string]any) map[string]any
}

// FieldFinding is an advisory validation result for one template field
type FieldFinding struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetTablesConfig() *TablesConfig
	GetTemplatesConfig() *TemplatesConfig
	GetOutputConfig() *OutputConfig
	Reload() error
	Validate() error
}
