package domain

// Config represents the main application configuration
type Config struct {
	Tables    TablesConfig    `mapstructure:"tables"`
	Templates TemplatesConfig `mapstructure:"templates"`
	Output    OutputConfig    `mapstructure:"output"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	MCP       MCPConfig       `mapstructure:"mcp"`
}

// TablesConfig locates the score table definitions.
// An empty Dir selects the tables embedded in the binary.
type TablesConfig struct {
	Dir     string `mapstructure:"dir"`
	Pattern string `mapstructure:"pattern"`
}

// TemplatesConfig configures template handling
type TemplatesConfig struct {
	FieldsConfig string `mapstructure:"fields_config"` // template_fields.yaml / .json, empty = embedded
	CacheSize    int    `mapstructure:"cache_size"`    // number of template files kept in memory
}

// OutputConfig controls where generated reports are written
type OutputConfig struct {
	Dir            string `mapstructure:"dir"`
	FilenamePrefix string `mapstructure:"filename_prefix"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	PrivacyMode bool   `mapstructure:"privacy_mode"`
}

// MCPConfig represents MCP server configuration
type MCPConfig struct {
	ServerName    string `mapstructure:"server_name"`
	ServerVersion string `mapstructure:"server_version"`
	Transport     string `mapstructure:"transport"` // "stdio"
}
