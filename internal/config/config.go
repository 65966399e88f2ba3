package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/psyreport-mcp-server/internal/domain"
)

// EnvPrefix is the prefix of every environment override, e.g. PSYREPORT_OUTPUT_DIR
const EnvPrefix = "PSYREPORT"

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	configFile string
	config     *domain.Config
}

var _ domain.ConfigManager = (*Manager)(nil)

// Option customizes a Manager before the first load
type Option func(*Manager)

// WithConfigFile reads an explicit file instead of searching the default paths
func WithConfigFile(path string) Option {
	return func(m *Manager) {
		m.configFile = path
	}
}

// NewManager creates a new configuration manager
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{v: viper.New()}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// Viper exposes the underlying instance so CLI flags can be bound to it
func (m *Manager) Viper() *viper.Viper {
	return m.v
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := m.v

	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("psyreport")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".psyreport"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	m.setDefaults()

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || m.configFile != "" {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	v := m.v

	v.SetDefault("tables.dir", "")
	v.SetDefault("tables.pattern", "*_table.jsonc")

	v.SetDefault("templates.fields_config", "")
	v.SetDefault("templates.cache_size", 16)

	outputDir := "laudos"
	if home, err := os.UserHomeDir(); err == nil {
		outputDir = filepath.Join(home, "laudos")
	}
	v.SetDefault("output.dir", outputDir)
	v.SetDefault("output.filename_prefix", "laudo")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.privacy_mode", true)

	v.SetDefault("mcp.server_name", "psyreport-mcp-server")
	v.SetDefault("mcp.server_version", "v0.1.0")
	v.SetDefault("mcp.transport", "stdio")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetTablesConfig returns score table configuration
func (m *Manager) GetTablesConfig() *domain.TablesConfig {
	return &m.config.Tables
}

// GetTemplatesConfig returns template configuration
func (m *Manager) GetTemplatesConfig() *domain.TemplatesConfig {
	return &m.config.Templates
}

// GetOutputConfig returns output configuration
func (m *Manager) GetOutputConfig() *domain.OutputConfig {
	return &m.config.Output
}

// Reload re-reads file and environment; flags bound to the Viper instance are kept
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	if config.Logging.Format != "json" && config.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s", config.Logging.Format)
	}

	if config.Templates.CacheSize <= 0 {
		return fmt.Errorf("templates.cache_size must be positive, got %d", config.Templates.CacheSize)
	}

	if config.Tables.Pattern == "" {
		return fmt.Errorf("tables.pattern is required")
	}

	if config.Output.Dir == "" {
		return fmt.Errorf("output directory is required")
	}

	if config.MCP.Transport != "stdio" {
		return fmt.Errorf("unsupported MCP transport: %s", config.MCP.Transport)
	}

	return nil
}

// EnsureOutputDir creates the report output directory if it doesn't exist.
func (m *Manager) EnsureOutputDir() error {
	return os.MkdirAll(m.config.Output.Dir, 0755)
}
