package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoDefault is returned when no default value exists for a config key.
var ErrNoDefault = errors.New("no default exists")

// Entry is a documented configuration key with its default value.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
}

// DefaultEntries returns the default configuration entries.
// Each key is registered as a viper default, which is also what makes it
// reachable through a LECTERN_ environment variable.
func DefaultEntries() []Entry {
	return DefaultConfig().Entries()
}

// Entries flattens c into one entry per key, in DefaultEntries order.
func (c *Config) Entries() []Entry {
	return []Entry{
		// ===================
		// Library
		// ===================
		{Key: "library.dir", Value: c.Library.Dir, Description: "Directory of {volume}_{chapter}.pdf files (empty = {home}/library)"},
		{Key: "library.renderer", Value: c.Library.Renderer, Description: "Page renderer: fitz (MuPDF) or poppler (pdftoppm)"},
		{Key: "library.scale", Value: c.Library.Scale, Description: "Render scale; 2.0 is 144 DPI"},
		{Key: "library.max_width", Value: c.Library.MaxWidth, Description: "Downscale rendered pages wider than this (0 = off)"},

		// ===================
		// Generation
		// ===================
		{Key: "generation.type", Value: c.Generation.Type, Description: "Transcript provider: gemini or openrouter"},
		{Key: "generation.model", Value: c.Generation.Model, Description: "Multimodal model used for lecture transcripts"},
		{Key: "generation.api_key", Value: c.Generation.APIKey, Description: "Fallback credential when a session supplies none (uses environment variable)"},
		{Key: "generation.base_url", Value: c.Generation.BaseURL, Description: "Override the provider endpoint"},
		{Key: "generation.timeout_seconds", Value: c.Generation.TimeoutSeconds, Description: "HTTP timeout in seconds for transcript requests"},
		{Key: "generation.max_retries", Value: c.Generation.MaxRetries, Description: "Transport retries for failed transcript requests"},
		{Key: "generation.rate_limit", Value: c.Generation.RateLimit, Description: "Requests per minute shared by all sessions (0 = unlimited)"},
		{Key: "generation.temperature", Value: c.Generation.Temperature, Description: "Sampling temperature (0 = provider default)"},
		{Key: "generation.max_tokens", Value: c.Generation.MaxTokens, Description: "Maximum transcript tokens (0 = provider default)"},
		{Key: "generation.context_pages", Value: c.Generation.ContextPages, Description: "Following pages sent as extra images"},
		{Key: "generation.leading_segments", Value: c.Generation.LeadingSegments, Description: "Warm-up segments written before the page segment (0 or 1)"},

		// ===================
		// Speech
		// ===================
		{Key: "speech.type", Value: c.Speech.Type, Description: "Speech provider: openai or elevenlabs"},
		{Key: "speech.model", Value: c.Speech.Model, Description: "Speech model"},
		{Key: "speech.voice", Value: c.Speech.Voice, Description: "Narration voice"},
		{Key: "speech.format", Value: c.Speech.Format, Description: "Audio format"},
		{Key: "speech.rate", Value: c.Speech.Rate, Description: "Speaking rate as a percentage (-2%) or multiplier (0.98)"},
		{Key: "speech.instructions", Value: c.Speech.Instructions, Description: "Voice direction for instruction-following models"},
		{Key: "speech.api_key", Value: c.Speech.APIKey, Description: "Speech API key (uses environment variable)"},
		{Key: "speech.base_url", Value: c.Speech.BaseURL, Description: "Override the speech endpoint"},
		{Key: "speech.timeout_seconds", Value: c.Speech.TimeoutSeconds, Description: "HTTP timeout in seconds for speech requests"},
		{Key: "speech.max_retries", Value: c.Speech.MaxRetries, Description: "Transport retries for failed speech requests"},

		// ===================
		// Lessons
		// ===================
		{Key: "lesson.batch_size", Value: c.Lesson.BatchSize, Description: "Pages per lesson batch"},
		{Key: "lesson.idle_timeout_minutes", Value: c.Lesson.IdleTimeoutMinutes, Description: "End sessions idle this long (0 = never)"},
		{Key: "lesson.reap_interval_seconds", Value: c.Lesson.ReapIntervalSeconds, Description: "How often idle sessions are checked"},

		// ===================
		// Text
		// ===================
		{Key: "rules.path", Value: c.Rules.Path, Description: "Pronunciation rules file (empty = embedded table)"},
		{Key: "prompts.system_file", Value: c.Prompts.SystemFile, Description: "Template replacing the embedded system prompt"},
		{Key: "prompts.user_file", Value: c.Prompts.UserFile, Description: "Template replacing the embedded user prompt"},

		// ===================
		// Cache
		// ===================
		{Key: "cache.enabled", Value: c.Cache.Enabled, Description: "Reuse packets for unchanged pages across sessions"},
		{Key: "cache.addr", Value: c.Cache.Addr, Description: "Redis address"},
		{Key: "cache.password", Value: c.Cache.Password, Description: "Redis password"},
		{Key: "cache.db", Value: c.Cache.DB, Description: "Redis database number"},
		{Key: "cache.ttl_hours", Value: c.Cache.TTLHours, Description: "Hours a cached packet lives"},
		{Key: "cache.container_name", Value: c.Cache.ContainerName, Description: "Docker container name for the local Redis"},
		{Key: "cache.image", Value: c.Cache.Image, Description: "Docker image for the local Redis"},
		{Key: "cache.port", Value: c.Cache.Port, Description: "Host port bound to the local Redis"},

		// ===================
		// Server
		// ===================
		{Key: "server.host", Value: c.Server.Host, Description: "HTTP listen host"},
		{Key: "server.port", Value: c.Server.Port, Description: "HTTP listen port"},
		{Key: "server.write_timeout_seconds", Value: c.Server.WriteTimeoutSeconds, Description: "Response write timeout; start and next wait for the first packet"},
	}
}

// GetDefault returns the default value for a config key.
// Returns nil if no default exists for the key.
func GetDefault(key string) *Entry {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry
		}
	}
	return nil
}

// LookupDefault is GetDefault with an error for unknown keys.
func LookupDefault(key string) (Entry, error) {
	def := GetDefault(key)
	if def == nil {
		return Entry{}, fmt.Errorf("%w for key %q", ErrNoDefault, key)
	}
	return *def, nil
}

// IsSecret reports whether key holds a credential.
func IsSecret(key string) bool {
	return strings.HasSuffix(key, "api_key") || strings.HasSuffix(key, "password")
}
