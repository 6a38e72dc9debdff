package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the triage server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	AI        AIConfig
	Triage    TriageConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
	// RunCacheTTL bounds how long a finished run stays in the lookup cache.
	RunCacheTTL time.Duration
}

type RateLimitConfig struct {
	PerMinute int
}

type AIConfig struct {
	Provider         string
	InferenceTimeout time.Duration
	Ollama           OllamaConfig
	VLLM             VLLMConfig
	OpenAI           OpenAIConfig
	Anthropic        AnthropicConfig
	Gemini           GeminiConfig
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

// VLLMConfig points at an OpenAI-compatible vLLM server.
type VLLMConfig struct {
	BaseURL string
	Model   string
	APIKey  string
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type AnthropicConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// TriageConfig tunes the triage pipeline itself.
type TriageConfig struct {
	ReproThresholdChars int
}

// Providers lists the accepted AI_PROVIDER values.
var Providers = []string{"openai", "vllm", "ollama", "anthropic", "gemini"}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("TRIAGE_PORT", 8080),
			Env:  envString("TRIAGE_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:         os.Getenv("REDIS_URL"),
			RunCacheTTL: envDuration("RUN_CACHE_TTL", 30*time.Minute),
		},
		RateLimit: RateLimitConfig{
			PerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
		},
		AI:     loadAI(),
		Triage: loadTriage(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadAI reads only the AI and pipeline settings. The CLI uses it so that a
// local run needs neither Postgres nor Redis.
func LoadAI() (AIConfig, TriageConfig, error) {
	ai, tr := loadAI(), loadTriage()
	if err := ai.validate(); err != nil {
		return AIConfig{}, TriageConfig{}, err
	}
	if err := tr.validate(); err != nil {
		return AIConfig{}, TriageConfig{}, err
	}
	return ai, tr, nil
}

func loadAI() AIConfig {
	return AIConfig{
		Provider:         envString("AI_PROVIDER", "openai"),
		InferenceTimeout: envDurationSecs("AI_INFERENCE_TIMEOUT_SECS", 60*time.Second),
		Ollama: OllamaConfig{
			BaseURL: envString("OLLAMA_BASE_URL", "http://localhost:11434"),
			Model:   envString("OLLAMA_MODEL", "llama3"),
		},
		VLLM: VLLMConfig{
			BaseURL: envString("VLLM_BASE_URL", "http://localhost:8000/v1"),
			Model:   envString("VLLM_MODEL", ""),
			APIKey:  os.Getenv("VLLM_API_KEY"),
		},
		OpenAI: OpenAIConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: envString("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:   envString("OPENAI_MODEL", "gpt-4o-mini"),
		},
		Anthropic: AnthropicConfig{
			APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
			BaseURL: envString("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
			Model:   envString("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		},
		Gemini: GeminiConfig{
			APIKey:  os.Getenv("GEMINI_API_KEY"),
			BaseURL: os.Getenv("GEMINI_BASE_URL"),
			Model:   envString("GEMINI_MODEL", "gemini-2.5-flash"),
		},
	}
}

func loadTriage() TriageConfig {
	return TriageConfig{
		ReproThresholdChars: envInt("TRIAGE_REPRO_THRESHOLD_CHARS", 800),
	}
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.RateLimit.PerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.RateLimit.PerMinute)
	}

	if err := c.AI.validate(); err != nil {
		return err
	}
	return c.Triage.validate()
}

func (c AIConfig) validate() error {
	valid := false
	for _, p := range Providers {
		if c.Provider == p {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("AI_PROVIDER must be one of %s; got %q", strings.Join(Providers, ", "), c.Provider)
	}

	switch c.Provider {
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER is openai")
		}
		return checkURL("OPENAI_BASE_URL", c.OpenAI.BaseURL)
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when AI_PROVIDER is anthropic")
		}
		return checkURL("ANTHROPIC_BASE_URL", c.Anthropic.BaseURL)
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when AI_PROVIDER is gemini")
		}
	case "vllm":
		if c.VLLM.Model == "" {
			return fmt.Errorf("VLLM_MODEL is required when AI_PROVIDER is vllm")
		}
		return checkURL("VLLM_BASE_URL", c.VLLM.BaseURL)
	case "ollama":
		return checkURL("OLLAMA_BASE_URL", c.Ollama.BaseURL)
	}
	return nil
}

func (c TriageConfig) validate() error {
	if c.ReproThresholdChars <= 0 {
		return fmt.Errorf("TRIAGE_REPRO_THRESHOLD_CHARS must be positive, got %d", c.ReproThresholdChars)
	}
	return nil
}

func checkURL(key, v string) error {
	if !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://") {
		return fmt.Errorf("%s must start with http:// or https://, got %q", key, v)
	}
	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
