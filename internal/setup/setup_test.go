package setup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBinary(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "psyreport")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0755))
	return path
}

func TestDefaultClientConfigPath(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME is only honored on linux")
	}

	t.Run("XDG_Config_Home", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", dir)

		path, err := DefaultClientConfigPath()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "Claude", ClientConfigFile), path)
	})

	t.Run("Home_Fallback", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("HOME", home)

		path, err := DefaultClientConfigPath()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".config", "Claude", ClientConfigFile), path)
	})
}

func TestConfigureClaudeDesktop_NewFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "Claude", "claude_desktop_config.json")
	binary := writeBinary(t, dir)

	written, err := ConfigureClaudeDesktop(Options{
		ConfigPath: configPath,
		BinaryPath: binary,
		OutputDir:  "/srv/laudos",
	})
	require.NoError(t, err)
	assert.Equal(t, configPath, written)

	config, err := LoadClaudeDesktopConfig(configPath)
	require.NoError(t, err)
	entry, ok := config.MCPServers[ServerName]
	require.True(t, ok)
	assert.Equal(t, binary, entry.Command)
	assert.Equal(t, []string{"serve"}, entry.Args)
	assert.Equal(t, map[string]string{"PSYREPORT_OUTPUT_DIR": "/srv/laudos"}, entry.Env)
}

func TestConfigureClaudeDesktop_KeepsOtherEntries(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "claude_desktop_config.json")
	existing := `{
  "globalShortcut": "Ctrl+Space",
  "mcpServers": {"outro": {"command": "/usr/bin/outro"}}
}`
	require.NoError(t, os.WriteFile(configPath, []byte(existing), 0644))

	_, err := ConfigureClaudeDesktop(Options{ConfigPath: configPath, BinaryPath: writeBinary(t, dir)})
	require.NoError(t, err)

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "Ctrl+Space", raw["globalShortcut"])

	servers := raw["mcpServers"].(map[string]any)
	assert.Contains(t, servers, "outro")
	assert.Contains(t, servers, ServerName)
}

func TestLoadClaudeDesktopConfig(t *testing.T) {
	dir := t.TempDir()

	t.Run("Missing_File", func(t *testing.T) {
		config, err := LoadClaudeDesktopConfig(filepath.Join(dir, "nada.json"))
		require.NoError(t, err)
		assert.Empty(t, config.MCPServers)
	})

	t.Run("Malformed_File", func(t *testing.T) {
		path := filepath.Join(dir, "quebrado.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0644))
		_, err := LoadClaudeDesktopConfig(path)
		assert.Error(t, err)
	})
}

func TestGetStatus(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "claude_desktop_config.json")

	status, err := GetStatus(configPath)
	require.NoError(t, err)
	assert.False(t, status.Configured)
	assert.Len(t, status.Issues, 1)

	_, err = ConfigureClaudeDesktop(Options{ConfigPath: configPath, BinaryPath: writeBinary(t, dir)})
	require.NoError(t, err)
	status, err = GetStatus(configPath)
	require.NoError(t, err)
	assert.True(t, status.Configured)
	assert.Empty(t, status.Issues)

	_, err = ConfigureClaudeDesktop(Options{ConfigPath: configPath, BinaryPath: filepath.Join(dir, "sumiu")})
	require.NoError(t, err)
	status, err = GetStatus(configPath)
	require.NoError(t, err)
	require.Len(t, status.Issues, 1)
	assert.Contains(t, status.Issues[0], "not found")
}
