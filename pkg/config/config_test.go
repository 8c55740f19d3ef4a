package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSystemConfigMissingFileUsesDefaults(t *testing.T) {
	cfg := LoadSystemConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.Equal(t, DefaultSystemConfig(), cfg)
}

func TestLoadSystemConfigCorruptFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "system.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	cfg := LoadSystemConfig(path)
	assert.Equal(t, DefaultSystemConfig().MaxToolRounds, cfg.MaxToolRounds)
	assert.Equal(t, DefaultSystemConfig().LogLevel, cfg.LogLevel)
}

func TestLoadSystemConfigPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "system.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"max_tool_rounds": 5, "log_level": "debug"}`), 0644))

	cfg := LoadSystemConfig(path)
	assert.Equal(t, 5, cfg.MaxToolRounds)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Untouched fields keep their defaults.
	assert.Equal(t, 4000, cfg.ToolResultLimit)
	assert.Equal(t, "ask", cfg.PermissionMode)
}

func TestValidateRequiresLLM(t *testing.T) {
	var cfg Config
	assert.Error(t, cfg.Validate())

	cfg.LLM = []byte(`{"providers": []}`)
	assert.NoError(t, cfg.Validate())
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	assert.Equal(t, "data/sessions", cfg.SessionDir)
	assert.Equal(t, "data/memory", cfg.Memory.Dir)
	assert.Equal(t, "gemini-embedding-001", cfg.Memory.Model)

	cfg = Config{SessionDir: "custom/sessions"}
	cfg.ApplyDefaults()
	assert.Equal(t, "custom/sessions", cfg.SessionDir)
}
