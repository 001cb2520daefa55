package config

import "time"

// Config holds sdx configuration.
// Stored at: ~/.sdx/config.yaml
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	OCRProviders map[string]OCRProviderCfg `mapstructure:"ocr_providers" yaml:"ocr_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
	Gateway      GatewayCfg                `mapstructure:"gateway" yaml:"gateway"`
	Validation   ValidationCfg             `mapstructure:"validation" yaml:"validation"`
	Privacy      PrivacyCfg                `mapstructure:"privacy" yaml:"privacy"`
	Postgres     PostgresCfg               `mapstructure:"postgres" yaml:"postgres"`
	Server       ServerCfg                 `mapstructure:"server" yaml:"server"`
}

// LLMProviderCfg configures a chat provider.
type LLMProviderCfg struct {
	Type        string        `mapstructure:"type" yaml:"type"`       // "openai", "mock"
	Model       string        `mapstructure:"model" yaml:"model"`     // Model name
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"` // API key (supports ${ENV_VAR} syntax)
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	RateLimit   int           `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per minute
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Enabled     bool          `mapstructure:"enabled" yaml:"enabled"`
}

// OCRProviderCfg configures an OCR provider.
type OCRProviderCfg struct {
	Type      string        `mapstructure:"type" yaml:"type"`     // "tesseract", "mock"
	Binary    string        `mapstructure:"binary" yaml:"binary"` // Executable path override
	Languages string        `mapstructure:"languages" yaml:"languages"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default selections for pipeline runs.
type DefaultsCfg struct {
	LLMProvider string `mapstructure:"llm_provider" yaml:"llm_provider"`
	OCRProvider string `mapstructure:"ocr_provider" yaml:"ocr_provider"`
	Locale      string `mapstructure:"locale" yaml:"locale"`
}

// GatewayCfg tunes model-call retries and limits.
type GatewayCfg struct {
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay" yaml:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
	CallTimeout time.Duration `mapstructure:"call_timeout" yaml:"call_timeout"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// ValidationCfg tunes the reply repair loop.
type ValidationCfg struct {
	RepairAttempts int `mapstructure:"repair_attempts" yaml:"repair_attempts"`
}

// PrivacyCfg configures PII de-identification.
type PrivacyCfg struct {
	Strategy string `mapstructure:"strategy" yaml:"strategy"` // "", "mask", "hash"
	Salt     string `mapstructure:"salt" yaml:"salt"`         // Supports ${ENV_VAR} syntax
}

// PostgresCfg holds Postgres container configuration.
type PostgresCfg struct {
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	Image         string `mapstructure:"image" yaml:"image"`
	Port          string `mapstructure:"port" yaml:"port"`
	User          string `mapstructure:"user" yaml:"user"`
	Password      string `mapstructure:"password" yaml:"password"` // Supports ${ENV_VAR} syntax
	Database      string `mapstructure:"database" yaml:"database"`
}

// ServerCfg holds the HTTP API configuration.
type ServerCfg struct {
	Port string `mapstructure:"port" yaml:"port"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openai": {
				Type:      "openai",
				Model:     "gpt-4o-mini",
				APIKey:    "${OPENAI_API_KEY}",
				RateLimit: 150,
				Timeout:   120 * time.Second,
				Enabled:   true,
			},
		},
		OCRProviders: map[string]OCRProviderCfg{
			"tesseract": {
				Type:      "tesseract",
				Languages: "eng",
				Timeout:   60 * time.Second,
				Enabled:   true,
			},
		},
		Defaults: DefaultsCfg{
			LLMProvider: "openai",
			OCRProvider: "tesseract",
			Locale:      "en",
		},
		Gateway: GatewayCfg{
			MaxAttempts: 3,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    10 * time.Second,
			CallTimeout: 120 * time.Second,
		},
		Validation: ValidationCfg{
			RepairAttempts: 2,
		},
		Privacy: PrivacyCfg{
			Strategy: "",
			Salt:     "${SDX_PRIVACY_SALT}",
		},
		Postgres: PostgresCfg{
			ContainerName: "sdx-postgres",
			Image:         "postgres:16",
			Port:          "5432",
			User:          "sdx",
			Password:      "${SDX_POSTGRES_PASSWORD}",
			Database:      "sdx",
		},
		Server: ServerCfg{
			Port: "8085",
		},
	}
}

// GetLLMProvider returns a chat provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// GetOCRProvider returns an OCR provider config by name.
func (c *Config) GetOCRProvider(name string) (OCRProviderCfg, bool) {
	cfg, ok := c.OCRProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled chat providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// EnabledOCRProviders returns all enabled OCR providers.
func (c *Config) EnabledOCRProviders() map[string]OCRProviderCfg {
	result := make(map[string]OCRProviderCfg)
	for name, cfg := range c.OCRProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
