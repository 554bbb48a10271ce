package config

import "time"

// Config holds quill configuration.
// Stored at: ~/.quill/config.yaml
type Config struct {
	Bridge    BridgeCfg              `mapstructure:"bridge" yaml:"bridge"`
	Backend   BackendCfg             `mapstructure:"backend" yaml:"backend"`
	Agent     AgentCfg               `mapstructure:"agent" yaml:"agent"`
	Providers map[string]ProviderCfg `mapstructure:"providers" yaml:"providers"`
	Log       LogCfg                 `mapstructure:"log" yaml:"log"`
}

// BridgeCfg configures the loopback tool bridge.
type BridgeCfg struct {
	Port         string `mapstructure:"port" yaml:"port"`                     // Listen port on 127.0.0.1
	MaxBodyBytes int64  `mapstructure:"max_body_bytes" yaml:"max_body_bytes"` // 0 uses the built-in 1 MiB cap
}

// BackendCfg configures the form-fill backend API.
type BackendCfg struct {
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	AuthToken      string `mapstructure:"auth_token" yaml:"auth_token"` // Bearer token (supports ${ENV_VAR} syntax)
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// Timeout returns the backend request deadline.
func (b BackendCfg) Timeout() time.Duration {
	if b.TimeoutSeconds <= 0 {
		return 3 * time.Minute
	}
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// AgentCfg selects the default generation provider for runs.
type AgentCfg struct {
	Provider       string `mapstructure:"provider" yaml:"provider"` // Name of a providers entry
	CLIPath        string `mapstructure:"cli_path" yaml:"cli_path"` // Overrides the provider's binary path
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// Timeout returns the per-run deadline.
func (a AgentCfg) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// ProviderCfg configures a generation provider.
type ProviderCfg struct {
	Type           string   `mapstructure:"type" yaml:"type"`       // "cli" or "openai"
	Command        string   `mapstructure:"command" yaml:"command"` // CLI binary (optional for claude/gemini/codex)
	Args           []string `mapstructure:"args" yaml:"args"`
	PromptArg      bool     `mapstructure:"prompt_arg" yaml:"prompt_arg"` // Pass prompt as final argument instead of stdin
	Model          string   `mapstructure:"model" yaml:"model"`
	ModelFlag      string   `mapstructure:"model_flag" yaml:"model_flag"`
	APIKey         string   `mapstructure:"api_key" yaml:"api_key"` // API key (supports ${ENV_VAR} syntax)
	BaseURL        string   `mapstructure:"base_url" yaml:"base_url"`
	RPM            int      `mapstructure:"requests_per_min" yaml:"requests_per_min"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	Enabled        bool     `mapstructure:"enabled" yaml:"enabled"`
}

// LogCfg controls daemon logging.
type LogCfg struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text or json
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Bridge: BridgeCfg{
			Port: "8716",
		},
		Backend: BackendCfg{
			BaseURL:        "https://api.quillform.dev",
			AuthToken:      "${QUILL_AUTH_TOKEN}",
			TimeoutSeconds: 180,
		},
		Agent: AgentCfg{
			Provider:       "claude",
			TimeoutSeconds: 300,
		},
		Providers: map[string]ProviderCfg{
			"claude": {
				Type:    "cli",
				RPM:     10,
				Enabled: true,
			},
			"gemini": {
				Type:    "cli",
				RPM:     10,
				Enabled: true,
			},
			"codex": {
				Type:    "cli",
				RPM:     10,
				Enabled: true,
			},
			"openai": {
				Type:    "openai",
				Model:   "gpt-4o-mini",
				APIKey:  "${OPENAI_API_KEY}",
				RPM:     60,
				Enabled: false,
			},
		},
		Log: LogCfg{
			Level:  "info",
			Format: "text",
		},
	}
}

// GetProvider returns a provider config by name.
func (c *Config) GetProvider(name string) (ProviderCfg, bool) {
	cfg, ok := c.Providers[name]
	return cfg, ok
}

// EnabledProviders returns all enabled providers.
func (c *Config) EnabledProviders() map[string]ProviderCfg {
	result := make(map[string]ProviderCfg)
	for name, cfg := range c.Providers {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
