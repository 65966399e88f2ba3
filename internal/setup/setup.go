// Package setup registers the report tool server with desktop MCP clients.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ServerName is the key of the report server in the client configuration
const ServerName = "psyreport"

// BinaryName is the executable looked up when no path is given
const BinaryName = "psyreport"

// ClaudeDesktopConfig represents the Claude Desktop configuration file structure.
// Keys other than mcpServers are kept as they were.
type ClaudeDesktopConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
	Other      map[string]json.RawMessage `json:"-"`
}

// MCPServerConfig represents a single MCP server configuration.
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options contains options for the setup process.
type Options struct {
	ConfigPath   string // client configuration file, empty = platform default
	BinaryPath   string // path to the psyreport binary, empty = search
	OutputDir    string // exported as PSYREPORT_OUTPUT_DIR
	TablesDir    string // exported as PSYREPORT_TABLES_DIR
	FieldsConfig string // exported as PSYREPORT_TEMPLATES_FIELDS_CONFIG
}

// ClientConfigFile is the file name the desktop client reads its servers from
const ClientConfigFile = "claude_desktop_config.json"

// DefaultClientConfigPath locates the desktop client's configuration under the
// user configuration directory (XDG_CONFIG_HOME, Application Support or AppData).
func DefaultClientConfigPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("no user configuration directory: %w", err)
	}
	return filepath.Join(base, "Claude", ClientConfigFile), nil
}

// LoadClaudeDesktopConfig loads the existing configuration; a missing file yields an empty one.
func LoadClaudeDesktopConfig(configPath string) (*ClaudeDesktopConfig, error) {
	config := &ClaudeDesktopConfig{
		MCPServers: make(map[string]MCPServerConfig),
		Other:      make(map[string]json.RawMessage),
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &config.Other); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw, ok := config.Other["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &config.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse mcpServers: %w", err)
		}
		delete(config.Other, "mcpServers")
	}
	if config.MCPServers == nil {
		config.MCPServers = make(map[string]MCPServerConfig)
	}

	return config, nil
}

// SaveClaudeDesktopConfig writes the configuration, creating its directory.
func SaveClaudeDesktopConfig(configPath string, config *ClaudeDesktopConfig) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	merged := make(map[string]any, len(config.Other)+1)
	for k, v := range config.Other {
		merged[k] = v
	}
	merged["mcpServers"] = config.MCPServers

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ConfigureClaudeDesktop adds or updates the report server entry and returns
// the configuration file that was written.
func ConfigureClaudeDesktop(opts Options) (string, error) {
	configPath := opts.ConfigPath
	if configPath == "" {
		var err error
		if configPath, err = DefaultClientConfigPath(); err != nil {
			return "", err
		}
	}

	config, err := LoadClaudeDesktopConfig(configPath)
	if err != nil {
		return "", err
	}

	binaryPath := opts.BinaryPath
	if binaryPath == "" {
		if binaryPath, err = findBinary(); err != nil {
			return "", fmt.Errorf("could not find server binary: %w", err)
		}
	}

	serverConfig := MCPServerConfig{
		Command: binaryPath,
		Args:    []string{"serve"},
		Env:     make(map[string]string),
	}
	if opts.OutputDir != "" {
		serverConfig.Env["PSYREPORT_OUTPUT_DIR"] = opts.OutputDir
	}
	if opts.TablesDir != "" {
		serverConfig.Env["PSYREPORT_TABLES_DIR"] = opts.TablesDir
	}
	if opts.FieldsConfig != "" {
		serverConfig.Env["PSYREPORT_TEMPLATES_FIELDS_CONFIG"] = opts.FieldsConfig
	}

	config.MCPServers[ServerName] = serverConfig
	if err := SaveClaudeDesktopConfig(configPath, config); err != nil {
		return "", err
	}
	return configPath, nil
}

// findBinary attempts to find the server binary in common locations.
func findBinary() (string, error) {
	if path, err := exec.LookPath(BinaryName); err == nil {
		return path, nil
	}

	locations := []string{
		"./" + BinaryName,
		"./build/" + BinaryName,
	}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".local", "bin", BinaryName))
	}
	locations = append(locations, "/usr/local/bin/"+BinaryName)

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			absPath, err := filepath.Abs(loc)
			if err != nil {
				return loc, nil
			}
			return absPath, nil
		}
	}

	return "", fmt.Errorf("binary '%s' not found in common locations", BinaryName)
}

// Status represents the current setup status.
type Status struct {
	ConfigPath string   `json:"config_path"`
	Configured bool     `json:"configured"`
	ServerPath string   `json:"server_path,omitempty"`
	OutputDir  string   `json:"output_dir,omitempty"`
	Issues     []string `json:"issues"`
}

// GetStatus reports whether the report server is registered at configPath
// (empty = platform default) and whether its binary exists.
func GetStatus(configPath string) (*Status, error) {
	if configPath == "" {
		var err error
		if configPath, err = DefaultClientConfigPath(); err != nil {
			return nil, err
		}
	}
	status := &Status{ConfigPath: configPath, Issues: []string{}}

	config, err := LoadClaudeDesktopConfig(configPath)
	if err != nil {
		return nil, err
	}

	serverConfig, ok := config.MCPServers[ServerName]
	if !ok {
		status.Issues = append(status.Issues, "psyreport is not registered in the client configuration")
		return status, nil
	}

	status.Configured = true
	status.ServerPath = serverConfig.Command
	status.OutputDir = serverConfig.Env["PSYREPORT_OUTPUT_DIR"]

	if info, err := os.Stat(serverConfig.Command); err != nil {
		status.Issues = append(status.Issues, fmt.Sprintf("Server binary not found at: %s", serverConfig.Command))
	} else if runtime.GOOS != "windows" && info.Mode()&0111 == 0 {
		status.Issues = append(status.Issues, fmt.Sprintf("Server binary is not executable: %s", serverConfig.Command))
	}

	return status, nil
}
