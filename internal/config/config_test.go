package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psyreport-mcp-server/internal/domain"
)

func TestNewManager_Defaults(t *testing.T) {
	clearEnvVars(t)
	t.Chdir(t.TempDir())

	m, err := NewManager()
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, "", cfg.Tables.Dir)
	assert.Equal(t, "*_table.jsonc", cfg.Tables.Pattern)
	assert.Equal(t, 16, cfg.Templates.CacheSize)
	assert.Equal(t, "laudo", cfg.Output.FilenamePrefix)
	assert.NotEmpty(t, cfg.Output.Dir)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.True(t, cfg.Logging.PrivacyMode)
	assert.Equal(t, "stdio", cfg.MCP.Transport)
	assert.NoError(t, m.Validate())
}

func TestNewManager_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)
	t.Chdir(t.TempDir())

	t.Setenv("PSYREPORT_TABLES_DIR", "/srv/tables")
	t.Setenv("PSYREPORT_OUTPUT_DIR", "/tmp/laudos")
	t.Setenv("PSYREPORT_TEMPLATES_CACHE_SIZE", "4")
	t.Setenv("PSYREPORT_LOGGING_LEVEL", "debug")

	m, err := NewManager()
	require.NoError(t, err)

	assert.Equal(t, "/srv/tables", m.GetTablesConfig().Dir)
	assert.Equal(t, "/tmp/laudos", m.GetOutputConfig().Dir)
	assert.Equal(t, 4, m.GetTemplatesConfig().CacheSize)
	assert.Equal(t, "debug", m.GetConfig().Logging.Level)
}

func TestNewManager_ConfigFile(t *testing.T) {
	clearEnvVars(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "psyreport.yaml")
	content := `
tables:
  dir: ./tables
templates:
  cache_size: 2
output:
  dir: ./out
  filename_prefix: relatorio
logging:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	m, err := NewManager(WithConfigFile(path))
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, "./tables", cfg.Tables.Dir)
	assert.Equal(t, 2, cfg.Templates.CacheSize)
	assert.Equal(t, "./out", cfg.Output.Dir)
	assert.Equal(t, "relatorio", cfg.Output.FilenamePrefix)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestNewManager_MissingExplicitFile(t *testing.T) {
	clearEnvVars(t)

	_, err := NewManager(WithConfigFile(filepath.Join(t.TempDir(), "absent.yaml")))
	assert.Error(t, err)
}

func TestManager_Validate(t *testing.T) {
	clearEnvVars(t)
	t.Chdir(t.TempDir())

	tests := []struct {
		name   string
		mutate func(m *Manager)
	}{
		{"Invalid_Log_Level", func(m *Manager) { m.config.Logging.Level = "verbose" }},
		{"Invalid_Log_Format", func(m *Manager) { m.config.Logging.Format = "xml" }},
		{"Zero_Cache_Size", func(m *Manager) { m.config.Templates.CacheSize = 0 }},
		{"Empty_Table_Pattern", func(m *Manager) { m.config.Tables.Pattern = "" }},
		{"Empty_Output_Dir", func(m *Manager) { m.config.Output.Dir = "" }},
		{"Unknown_Transport", func(m *Manager) { m.config.MCP.Transport = "websocket" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManager()
			require.NoError(t, err)

			tt.mutate(m)
			assert.Error(t, m.Validate())
		})
	}
}

func TestManager_EnsureOutputDir(t *testing.T) {
	clearEnvVars(t)
	tmpDir := t.TempDir()
	t.Setenv("PSYREPORT_OUTPUT_DIR", filepath.Join(tmpDir, "laudos", "2026"))

	m, err := NewManager()
	require.NoError(t, err)

	require.NoError(t, m.EnsureOutputDir())

	info, err := os.Stat(m.GetOutputConfig().Dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestManager_ConfigManagerAccessors(t *testing.T) {
	clearEnvVars(t)
	t.Chdir(t.TempDir())
	t.Setenv("PSYREPORT_OUTPUT_FILENAME_PREFIX", "relatorio")

	m, err := NewManager()
	require.NoError(t, err)

	var cm domain.ConfigManager = m
	assert.Equal(t, "relatorio", cm.GetOutputConfig().FilenamePrefix)
	assert.Equal(t, "*_table.jsonc", cm.GetTablesConfig().Pattern)
	assert.Equal(t, 16, cm.GetTemplatesConfig().CacheSize)

	t.Setenv("PSYREPORT_TEMPLATES_CACHE_SIZE", "0")
	require.NoError(t, cm.Reload())
	assert.Equal(t, 0, cm.GetTemplatesConfig().CacheSize)
	assert.Error(t, cm.Validate())
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	vars := []string{
		"PSYREPORT_TABLES_DIR",
		"PSYREPORT_TABLES_PATTERN",
		"PSYREPORT_TEMPLATES_FIELDS_CONFIG",
		"PSYREPORT_TEMPLATES_CACHE_SIZE",
		"PSYREPORT_OUTPUT_DIR",
		"PSYREPORT_OUTPUT_FILENAME_PREFIX",
		"PSYREPORT_LOGGING_LEVEL",
		"PSYREPORT_LOGGING_FORMAT",
		"PSYREPORT_MCP_TRANSPORT",
	}
	for _, v := range vars {
		if _, ok := os.LookupEnv(v); ok {
			t.Setenv(v, "")
			os.Unsetenv(v)
		}
	}
}
