package config

import (
	"fmt"
	"time"

	"github.com/jackzampolin/lectern/internal/providers"
)

// Config holds lectern configuration.
// Stored at: {home}/config.yaml
type Config struct {
	Library    LibraryCfg    `mapstructure:"library" yaml:"library"`
	Generation GenerationCfg `mapstructure:"generation" yaml:"generation"`
	Speech     SpeechCfg     `mapstructure:"speech" yaml:"speech"`
	Lesson     LessonCfg     `mapstructure:"lesson" yaml:"lesson"`
	Rules      RulesCfg      `mapstructure:"rules" yaml:"rules"`
	Prompts    PromptsCfg    `mapstructure:"prompts" yaml:"prompts"`
	Cache      CacheCfg      `mapstructure:"cache" yaml:"cache"`
	Server     ServerCfg     `mapstructure:"server" yaml:"server"`
}

// LibraryCfg locates textbook PDFs and controls page rendering.
type LibraryCfg struct {
	Dir      string  `mapstructure:"dir" yaml:"dir"`             // Empty means {home}/library
	Renderer string  `mapstructure:"renderer" yaml:"renderer"`   // "fitz" or "poppler"
	Scale    float64 `mapstructure:"scale" yaml:"scale"`         // 2.0 renders at 144 DPI
	MaxWidth int     `mapstructure:"max_width" yaml:"max_width"` // Downscale wider pages (0 = off)
}

// GenerationCfg configures the multimodal transcript model.
type GenerationCfg struct {
	Type            string  `mapstructure:"type" yaml:"type"`       // "gemini", "openrouter"
	Model           string  `mapstructure:"model" yaml:"model"`
	APIKey          string  `mapstructure:"api_key" yaml:"api_key"` // Fallback credential (supports ${ENV_VAR} syntax)
	BaseURL         string  `mapstructure:"base_url" yaml:"base_url"`
	TimeoutSeconds  int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries      int     `mapstructure:"max_retries" yaml:"max_retries"`
	RateLimit       int     `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per minute
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens       int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	ContextPages    int     `mapstructure:"context_pages" yaml:"context_pages"`
	LeadingSegments int     `mapstructure:"leading_segments" yaml:"leading_segments"`
}

// SpeechCfg configures narration synthesis.
type SpeechCfg struct {
	Type           string `mapstructure:"type" yaml:"type"` // "openai", "elevenlabs"
	Model          string `mapstructure:"model" yaml:"model"`
	Voice          string `mapstructure:"voice" yaml:"voice"`
	Format         string `mapstructure:"format" yaml:"format"`
	Rate           string `mapstructure:"rate" yaml:"rate"` // "-2%" or "0.98"
	Instructions   string `mapstructure:"instructions" yaml:"instructions"`
	APIKey         string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries" yaml:"max_retries"`
}

// LessonCfg controls batches and session lifetime.
type LessonCfg struct {
	BatchSize           int `mapstructure:"batch_size" yaml:"batch_size"`
	IdleTimeoutMinutes  int `mapstructure:"idle_timeout_minutes" yaml:"idle_timeout_minutes"` // 0 = never reap
	ReapIntervalSeconds int `mapstructure:"reap_interval_seconds" yaml:"reap_interval_seconds"`
}

// RulesCfg points at a pronunciation table. Empty uses the embedded one.
type RulesCfg struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// PromptsCfg points at template files that replace the embedded prompts.
type PromptsCfg struct {
	SystemFile string `mapstructure:"system_file" yaml:"system_file"`
	UserFile   string `mapstructure:"user_file" yaml:"user_file"`
}

// CacheCfg configures the packet cache and its local Redis container.
type CacheCfg struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr          string `mapstructure:"addr" yaml:"addr"`
	Password      string `mapstructure:"password" yaml:"password"`
	DB            int    `mapstructure:"db" yaml:"db"`
	TTLHours      int    `mapstructure:"ttl_hours" yaml:"ttl_hours"`
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	Image         string `mapstructure:"image" yaml:"image"`
	Port          string `mapstructure:"port" yaml:"port"`
}

// ServerCfg configures the HTTP listener.
type ServerCfg struct {
	Host                string `mapstructure:"host" yaml:"host"`
	Port                string `mapstructure:"port" yaml:"port"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds" yaml:"write_timeout_seconds"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Library: LibraryCfg{
			Renderer: "fitz",
			Scale:    2.0,
		},
		Generation: GenerationCfg{
			Type:           "gemini",
			Model:          "gemini-2.5-flash",
			APIKey:         "${GEMINI_API_KEY}",
			TimeoutSeconds: 120,
		},
		Speech: SpeechCfg{
			Type:           "openai",
			Model:          "gpt-4o-mini-tts",
			Voice:          "nova",
			Format:         "mp3",
			Rate:           "-2%",
			Instructions:   "Speak Taiwanese Mandarin as a warm, patient science teacher.",
			APIKey:         "${OPENAI_API_KEY}",
			TimeoutSeconds: 120,
		},
		Lesson: LessonCfg{
			BatchSize:           5,
			IdleTimeoutMinutes:  60,
			ReapIntervalSeconds: 60,
		},
		Cache: CacheCfg{
			Addr:          "localhost:6380",
			TTLHours:      168,
			ContainerName: "lectern-redis",
			Image:         "redis:7-alpine",
			Port:          "6380",
		},
		Server: ServerCfg{
			Host:                "127.0.0.1",
			Port:                "8080",
			WriteTimeoutSeconds: 300,
		},
	}
}

// Validate reports settings that would make every lesson fail.
func (c *Config) Validate() error {
	switch c.Library.Renderer {
	case "fitz", "poppler":
	default:
		return fmt.Errorf("library.renderer: unknown renderer %q", c.Library.Renderer)
	}
	if c.Library.Scale <= 0 {
		return fmt.Errorf("library.scale must be positive, got %v", c.Library.Scale)
	}
	switch c.Generation.Type {
	case "gemini", "openrouter":
	default:
		return fmt.Errorf("generation.type: unknown provider %q", c.Generation.Type)
	}
	if c.Generation.LeadingSegments < 0 || c.Generation.LeadingSegments > 1 {
		return fmt.Errorf("generation.leading_segments must be 0 or 1, got %d", c.Generation.LeadingSegments)
	}
	if c.Generation.ContextPages < 0 {
		return fmt.Errorf("generation.context_pages must not be negative")
	}
	switch c.Speech.Type {
	case "openai", "elevenlabs":
	default:
		return fmt.Errorf("speech.type: unknown provider %q", c.Speech.Type)
	}
	if _, err := providers.ParseRate(c.Speech.Rate); err != nil {
		return fmt.Errorf("speech.rate: %w", err)
	}
	if c.Lesson.BatchSize <= 0 {
		return fmt.Errorf("lesson.batch_size must be positive, got %d", c.Lesson.BatchSize)
	}
	return nil
}

// IdleTimeout returns the session idle timeout, zero when reaping is off.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Lesson.IdleTimeoutMinutes) * time.Minute
}

// ReapInterval returns how often idle sessions are checked.
func (c *Config) ReapInterval() time.Duration {
	if c.Lesson.ReapIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.Lesson.ReapIntervalSeconds) * time.Second
}

// CacheTTL returns how long cached packets live.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// ToFactoryConfig converts the config to a format suitable for providers.Factory.
// It resolves all ${ENV_VAR} references in API keys.
func (c *Config) ToFactoryConfig() (providers.FactoryConfig, error) {
	speed, err := providers.ParseRate(c.Speech.Rate)
	if err != nil {
		return providers.FactoryConfig{}, fmt.Errorf("speech.rate: %w", err)
	}
	return providers.FactoryConfig{
		Generation: providers.GenerationConfig{
			Type:           c.Generation.Type,
			Model:          c.Generation.Model,
			APIKey:         ResolveEnvVars(c.Generation.APIKey),
			BaseURL:        c.Generation.BaseURL,
			TimeoutSeconds: c.Generation.TimeoutSeconds,
			MaxRetries:     c.Generation.MaxRetries,
			RateLimit:      c.Generation.RateLimit,
		},
		Speech: providers.SpeechConfig{
			Type:           c.Speech.Type,
			Model:          c.Speech.Model,
			Voice:          c.Speech.Voice,
			Format:         c.Speech.Format,
			Speed:          speed,
			Instructions:   c.Speech.Instructions,
			APIKey:         ResolveEnvVars(c.Speech.APIKey),
			BaseURL:        c.Speech.BaseURL,
			TimeoutSeconds: c.Speech.TimeoutSeconds,
			MaxRetries:     c.Speech.MaxRetries,
		},
	}, nil
}
