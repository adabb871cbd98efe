package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

type LLMConfig struct {
	AnthropicAPIKey  string `json:"anthropic_api_key" env:"DISPATCH_LLM_ANTHROPIC_API_KEY"`
	AnthropicBaseURL string `json:"anthropic_base_url" env:"DISPATCH_LLM_ANTHROPIC_BASE_URL"`
	OpenAIAPIKey     string `json:"openai_api_key" env:"DISPATCH_LLM_OPENAI_API_KEY"`
	OpenAIBaseURL    string `json:"openai_base_url" env:"DISPATCH_LLM_OPENAI_BASE_URL"`
	DefaultModel     string `json:"default_model" env:"DISPATCH_LLM_DEFAULT_MODEL"`
}

// DelegationConfig bounds delegated sub-sessions. Both caps are deliberately
// lower than a top-level conversation: a delegation is a single focused
// sub-task, not an open-ended session.
type DelegationConfig struct {
	MaxTurns             int `json:"max_turns" env:"DISPATCH_DELEGATION_MAX_TURNS"`
	MaxTokens            int `json:"max_tokens" env:"DISPATCH_DELEGATION_MAX_TOKENS"`
	ThinkingBudgetTokens int `json:"thinking_budget_tokens" env:"DISPATCH_DELEGATION_THINKING_BUDGET_TOKENS"`
	ResponseTimeoutMS    int `json:"response_timeout_ms" env:"DISPATCH_DELEGATION_RESPONSE_TIMEOUT_MS"`
}

type GatewayConfig struct {
	Host              string `json:"host" env:"DISPATCH_GATEWAY_HOST"`
	Port              int    `json:"port" env:"DISPATCH_GATEWAY_PORT"`
	APIKey            string `json:"api_key" env:"DISPATCH_GATEWAY_API_KEY"`
	RequestsPerMinute int    `json:"requests_per_minute" env:"DISPATCH_GATEWAY_REQUESTS_PER_MINUTE"`
}

type StorageConfig struct {
	Path string `json:"path" env:"DISPATCH_STORAGE_PATH"`
}

type SchedulesConfig struct {
	Enabled     bool `json:"enabled" env:"DISPATCH_SCHEDULES_ENABLED"`
	TickSeconds int  `json:"tick_seconds" env:"DISPATCH_SCHEDULES_TICK_SECONDS"`
}

type TeamConfig struct {
	Path string `json:"path" env:"DISPATCH_TEAM_PATH"`
}

type Config struct {
	LLM        LLMConfig        `json:"llm"`
	Delegation DelegationConfig `json:"delegation"`
	Gateway    GatewayConfig    `json:"gateway"`
	Storage    StorageConfig    `json:"storage"`
	Schedules  SchedulesConfig  `json:"schedules"`
	Team       TeamConfig       `json:"team"`
}

func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			DefaultModel: "sonnet",
		},
		Delegation: DelegationConfig{
			MaxTurns:             8,
			MaxTokens:            4096,
			ThinkingBudgetTokens: 4096,
			ResponseTimeoutMS:    60000,
		},
		Gateway: GatewayConfig{
			Host:              "127.0.0.1",
			Port:              18890,
			RequestsPerMinute: 60,
		},
		Storage: StorageConfig{
			Path: "~/.dispatch/dispatch.db",
		},
		Schedules: SchedulesConfig{
			Enabled:     true,
			TickSeconds: 30,
		},
		Team: TeamConfig{
			Path: "~/.dispatch/team.json",
		},
	}
}

// LoadConfig reads the JSON config file (missing file means defaults) and
// applies environment overrides on top.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func (c *Config) StoragePath() string {
	return expandHome(c.Storage.Path)
}

func (c *Config) TeamPath() string {
	return expandHome(c.Team.Path)
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
