package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	// LLMProvider is used for model names without a "provider/" prefix.
	LLMProvider  string          `json:"llm_provider"`
	DefaultModel string          `json:"default_model"`
	Providers    ProvidersConfig `json:"providers"`
	DryRun       bool            `json:"dry_run"`
	LogLevel     string          `json:"log_level"`
	LogFormat    string          `json:"log_format"`
	LogFile      string          `json:"log_file"`
}

// ProvidersConfig holds per-provider settings.
type ProvidersConfig struct {
	OpenAI     ProviderConfig   `json:"openai"`
	OpenRouter OpenRouterConfig `json:"openrouter"`
	Google     ProviderConfig   `json:"google"`
	Anthropic  ProviderConfig   `json:"anthropic"`
	Ollama     ProviderConfig   `json:"ollama"`
	Azure      AzureConfig      `json:"azure"`
}

// ProviderConfig holds the common API settings of a provider.
type ProviderConfig struct {
	APIKey            string  `json:"api_key"`
	APIURL            string  `json:"api_url"`
	Model             string  `json:"model"`
	Temperature       float64 `json:"temperature"`
	MaxTokens         int     `json:"max_tokens"`
	APITimeoutSeconds int     `json:"api_timeout_seconds"`
}

// OpenRouterConfig holds the OpenRouter API configuration
type OpenRouterConfig struct {
	ProviderConfig
	HTTPReferer string `json:"http_referer"`
	XTitle      string `json:"x_title"`
}

// AzureConfig holds the Azure OpenAI configuration. APIURL is the resource
// endpoint; an empty APIKey selects the default Azure credential chain.
type AzureConfig struct {
	ProviderConfig
	Deployment string `json:"deployment"`
}

// Default returns a configuration with default values
func Default() Config {
	return Config{
		LLMProvider:  "openai",
		DefaultModel: "openai/gpt-4o-mini",
		Providers: ProvidersConfig{
			OpenAI: ProviderConfig{
				APIURL:            "https://api.openai.com/v1",
				Model:             "gpt-4o-mini",
				Temperature:       0.7,
				MaxTokens:         2000,
				APITimeoutSeconds: 30,
			},
			OpenRouter: OpenRouterConfig{
				ProviderConfig: ProviderConfig{
					APIURL:            "https://openrouter.ai/api/v1",
					Model:             "google/gemini-2.5-flash",
					Temperature:       0.7,
					MaxTokens:         2000,
					APITimeoutSeconds: 30,
				},
				XTitle: "chatkit",
			},
			Google: ProviderConfig{
				Model:             "gemini-2.5-flash",
				Temperature:       0.7,
				MaxTokens:         2000,
				APITimeoutSeconds: 60,
			},
			Anthropic: ProviderConfig{
				APIURL:            "https://api.anthropic.com/v1",
				Model:             "claude-3-5-sonnet-20241022",
				Temperature:       0.7,
				MaxTokens:         2000,
				APITimeoutSeconds: 60,
			},
			Ollama: ProviderConfig{
				APIURL:            "http://localhost:11434",
				Model:             "llama3.2",
				Temperature:       0.7,
				APITimeoutSeconds: 300,
			},
			Azure: AzureConfig{
				ProviderConfig: ProviderConfig{
					Temperature:       0.7,
					MaxTokens:         2000,
					APITimeoutSeconds: 60,
				},
			},
		},
		DryRun:    false,
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// Load loads configuration from the specified path
// If the file doesn't exist, creates one with default values
// Environment variables override file values.
func Load(configPath string) (Config, error) {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return Config{}, fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		cfg := Default()
		if err := Save(configPath, cfg); err != nil {
			return Config{}, fmt.Errorf("failed to create default config: %w", err)
		}
		return applyEnvironmentOverrides(cfg), nil
	}

	// Start from defaults so that missing keys keep sensible values.
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	return applyEnvironmentOverrides(cfg), nil
}

// LoadDotEnv loads KEY=value files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// FromEnvironment returns the defaults with environment overrides applied.
// It never touches the config file.
func FromEnvironment() Config {
	return applyEnvironmentOverrides(Default())
}

func applyEnvironmentOverrides(cfg Config) Config {
	if model := strings.TrimSpace(os.Getenv("CHATKIT_MODEL")); model != "" {
		cfg.DefaultModel = model
	}

	if dryRunEnv := os.Getenv("CHATKIT_DRY_RUN"); dryRunEnv != "" {
		if dryRun, err := strconv.ParseBool(dryRunEnv); err == nil {
			cfg.DryRun = dryRun
		}
	}

	if logLevel := strings.ToLower(strings.TrimSpace(os.Getenv("CHATKIT_LOG_LEVEL"))); logLevel != "" {
		switch logLevel {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = logLevel
		}
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Providers.OpenAI.APIKey = key
	}
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		cfg.Providers.OpenRouter.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.Providers.Google.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		cfg.Providers.Anthropic.APIKey = key
	}
	if key := os.Getenv("AZURE_OPENAI_API_KEY"); key != "" {
		cfg.Providers.Azure.APIKey = key
	}
	if endpoint := os.Getenv("AZURE_OPENAI_ENDPOINT"); endpoint != "" {
		cfg.Providers.Azure.APIURL = endpoint
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
			host = "http://" + host
		}
		cfg.Providers.Ollama.APIURL = host
	}

	return cfg
}

// Save saves the configuration to the specified path
func Save(configPath string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if strings.TrimSpace(c.DefaultModel) == "" {
		return errors.New("default_model is required")
	}

	blocks := map[string]ProviderConfig{
		"openai":     c.Providers.OpenAI,
		"openrouter": c.Providers.OpenRouter.ProviderConfig,
		"google":     c.Providers.Google,
		"anthropic":  c.Providers.Anthropic,
		"ollama":     c.Providers.Ollama,
		"azure":      c.Providers.Azure.ProviderConfig,
	}
	for name, p := range blocks {
		if err := p.validate(); err != nil {
			return fmt.Errorf("providers.%s: %w", name, err)
		}
	}

	return nil
}

func (p ProviderConfig) validate() error {
	if p.Temperature < 0 || p.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got: %f", p.Temperature)
	}
	if p.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must not be negative, got: %d", p.MaxTokens)
	}
	if p.APITimeoutSeconds < 0 {
		return fmt.Errorf("api_timeout_seconds must not be negative, got: %d", p.APITimeoutSeconds)
	}
	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".chatkit/config.json"
	}
	return filepath.Join(homeDir, ".chatkit", "config.json")
}
