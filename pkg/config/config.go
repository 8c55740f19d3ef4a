package config

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
)

// Config defines the global application configuration structure.
// This structure maps directly to the config.json file and holds
// business-level settings like channel API keys and LLM provider choices.
type Config struct {
	// Channels contains a map of channel identifiers (e.g., "telegram", "web")
	// to their specific configuration payloads in raw JSON format.
	Channels map[string]jsoniter.RawMessage `json:"channels"`
	// LLM holds the configuration for the LLM provider groups in raw JSON.
	LLM jsoniter.RawMessage `json:"llm"`
	// SystemPrompt is the global persona/instruction string sent to the AI
	// as the initial system message in every conversation.
	SystemPrompt string `json:"system_prompt"`
	// SessionDir is the directory holding the per-session JSONL logs.
	SessionDir string `json:"session_dir"`
	// Memory configures the long-term memory service.
	Memory MemoryConfig `json:"memory"`
}

// MemoryConfig holds the settings of the embedding-backed memory store.
type MemoryConfig struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir"`
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
}

// Validate ensures the configuration structure contains all mandatory fields.
// It acts as a primary guard before the system proceeds to initialization.
func (c *Config) Validate() error {
	if len(c.LLM) == 0 {
		return fmt.Errorf("mandatory 'llm' configuration is missing or empty")
	}
	return nil
}

// ApplyDefaults fills optional application settings with their defaults.
func (c *Config) ApplyDefaults() {
	if c.SessionDir == "" {
		c.SessionDir = "data/sessions"
	}
	if c.Memory.Dir == "" {
		c.Memory.Dir = "data/memory"
	}
	if c.Memory.Model == "" {
		c.Memory.Model = "gemini-embedding-001"
	}
}

// SystemConfig defines engine-level technical parameters.
// These settings are usually stored in system.json and control the
// performance, reliability, and technical behavior of the engine.
type SystemConfig struct {
	// MaxRetries is the number of times the system will attempt to
	// recover from a transient LLM or network error before giving up.
	MaxRetries int `json:"max_retries"`
	// RetryDelayMs is the duration to wait (in milliseconds) between
	// consecutive retry attempts.
	RetryDelayMs int `json:"retry_delay_ms"`
	// LLMTimeoutMs is the hard cutoff time (in milliseconds) for an
	// LLM request. The context will be cancelled if exceeded.
	LLMTimeoutMs int `json:"llm_timeout_ms"`
	// MaxToolRounds bounds how many tool-calling rounds the engine runs
	// per user message before the final forced text round.
	MaxToolRounds int `json:"max_tool_rounds"`
	// ToolResultLimit is the maximum byte length of a single tool result
	// fed back to the model. Longer results are truncated with a marker.
	ToolResultLimit int `json:"tool_result_limit"`
	// CommandTimeoutMs caps the runtime of one shell command execution.
	CommandTimeoutMs int `json:"command_timeout_ms"`
	// InternalChannelBuffer defines the size of the internal Go channels
	// used for message buffering between gateway components.
	InternalChannelBuffer int `json:"internal_channel_buffer"`
	// TelegramMessageLimit is the maximum character count for a single
	// Telegram message. Longer responses will be split into multiple chunks.
	TelegramMessageLimit int `json:"telegram_message_limit"`
	// LogLevel sets the minimum severity for log output.
	// Accepted values: "debug", "info", "warn", "error". Default: "info".
	LogLevel string `json:"log_level"`
	// EnableTools globally toggles the tool calling (agentic) functionality.
	// If false, the AI will not be provided with any external tools.
	EnableTools bool `json:"enable_tools"`
	// EnableWebTools toggles the browser-backed web capability tools.
	EnableWebTools bool `json:"enable_web_tools"`
	// PermissionMode governs shell command execution: "ask", "allow", "deny".
	PermissionMode string `json:"permission_mode"`
	// BrowserHeadless controls whether the managed browser runs headless.
	BrowserHeadless bool `json:"browser_headless"`
	// BrowserTimeoutMs is the per-operation timeout for browser work.
	// Callers block for this duration plus a fixed hand-off grace period.
	BrowserTimeoutMs int `json:"browser_timeout_ms"`
	// PageSettleMs is the extra wait after page load so dynamically
	// registered page capabilities have a chance to appear.
	PageSettleMs int `json:"page_settle_ms"`
	// MemoryResults is the number of memory entries returned per search.
	MemoryResults int `json:"memory_results"`
}

// DefaultSystemConfig returns a SystemConfig pointer initialized with hardcoded
// safe default values. This is used as a fallback when the system.json file
// is missing or corrupt, ensuring the engine can always start.
func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		MaxRetries:            3,
		RetryDelayMs:          500,
		LLMTimeoutMs:          600000,
		MaxToolRounds:         3,
		ToolResultLimit:       4000,
		CommandTimeoutMs:      30000,
		InternalChannelBuffer: 100,
		TelegramMessageLimit:  4000,
		LogLevel:              "info",
		EnableTools:           true,
		EnableWebTools:        true,
		PermissionMode:        "ask",
		BrowserHeadless:       true,
		BrowserTimeoutMs:      30000,
		PageSettleMs:          2000,
		MemoryResults:         3,
	}
}

// Load reads and parses the JSON configuration files from the current working directory.
// It first attempts to load 'config.json' (app config). If this file is missing, it returns an error.
// Then it calls LoadSystemConfig to load 'system.json'.
// Returns pointers to the loaded Config and SystemConfig, or an error if the mandatory app config fails.
func Load() (*Config, *SystemConfig, error) {
	// 1. Load Application Config
	appPath := "config.json"
	if _, err := os.Stat(appPath); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("config file '%s' not found. please create one", appPath)
	}

	appFile, err := os.ReadFile(appPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(appFile, &cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// 1a. Validate structure integrity
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	cfg.ApplyDefaults()

	// 2. Load System Config independently
	sysCfg := LoadSystemConfig("system.json")

	return &cfg, sysCfg, nil
}

// LoadSystemConfig attempts to load system settings, returns defaults if it fails
func LoadSystemConfig(path string) *SystemConfig {
	cfg := DefaultSystemConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		return cfg // File not found, use defaults
	}

	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(file, cfg); err != nil {
		return cfg // Parse failed, use defaults
	}

	return cfg
}
