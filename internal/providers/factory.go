package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrMissingCredential is returned when neither the session nor the
	// config supplies a generation API key.
	ErrMissingCredential = errors.New("missing generation API key")
	// ErrSpeechNotConfigured is returned when the speech provider has no key.
	ErrSpeechNotConfigured = errors.New("speech provider not configured")
)

// GenerationConfig selects and configures the generation provider.
type GenerationConfig struct {
	Type           string // "gemini" or "openrouter"
	Model          string
	APIKey         string // Fallback when a session supplies none
	BaseURL        string
	TimeoutSeconds int
	MaxRetries     int
	RateLimit      int // Requests per minute shared by all sessions (0 = unlimited)
}

// SpeechConfig selects and configures the speech provider.
type SpeechConfig struct {
	Type           string // "openai" or "elevenlabs"
	Model          string
	Voice          string
	Format         string
	Speed          float64
	Instructions   string
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
	MaxRetries     int
}

// FactoryConfig is the provider section of the application config with
// ${ENV_VAR} references already resolved.
type FactoryConfig struct {
	Generation GenerationConfig
	Speech     SpeechConfig
}

// FactoryStatus describes the active providers.
type FactoryStatus struct {
	Generation string             `json:"generation"`
	Model      string             `json:"model"`
	Speech     string             `json:"speech"`
	Voice      string             `json:"voice"`
	RateLimit  *RateLimiterStatus `json:"rate_limit,omitempty"`
}

// Factory builds generators for per-session credentials and holds the
// shared speech provider. Reload swaps both atomically on config change.
type Factory struct {
	mu      sync.RWMutex
	cfg     FactoryConfig
	speech  TTSProvider
	limiter *RateLimiter
	logger  *slog.Logger
}

// NewFactory creates a factory with no providers configured.
func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// Reload replaces the provider configuration.
func (f *Factory) Reload(cfg FactoryConfig) {
	speech, err := newSpeech(cfg.Speech)
	if err != nil {
		f.logger.Warn("speech provider unavailable", "type", cfg.Speech.Type, "error", err)
	}

	var limiter *RateLimiter
	if cfg.Generation.RateLimit > 0 {
		limiter = NewRateLimiter(cfg.Generation.RateLimit)
	}

	f.mu.Lock()
	f.cfg = cfg
	f.speech = speech
	f.limiter = limiter
	f.mu.Unlock()

	f.logger.Info("providers loaded",
		"generation", cfg.Generation.Type,
		"model", cfg.Generation.Model,
		"speech", cfg.Speech.Type,
		"voice", cfg.Speech.Voice)
}

// Generator returns a generator for credential. An empty credential falls
// back to the configured key.
func (f *Factory) Generator(ctx context.Context, credential string) (Generator, error) {
	f.mu.RLock()
	cfg := f.cfg.Generation
	limiter := f.limiter
	f.mu.RUnlock()

	if credential == "" {
		credential = cfg.APIKey
	}
	if credential == "" {
		return nil, ErrMissingCredential
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	var g Generator
	switch cfg.Type {
	case "", GeminiName:
		gem, err := NewGeminiGenerator(ctx, GeminiConfig{
			APIKey:     credential,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Timeout:    timeout,
			MaxRetries: cfg.MaxRetries,
		})
		if err != nil {
			return nil, err
		}
		g = gem
	case OpenRouterName:
		g = NewOpenRouterGenerator(OpenRouterConfig{
			APIKey:       credential,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      timeout,
			MaxRetries:   cfg.MaxRetries,
		})
	default:
		return nil, fmt.Errorf("unknown generation provider type: %s", cfg.Type)
	}

	return WithRateLimit(g, limiter), nil
}

// Speech returns the configured speech provider.
func (f *Factory) Speech() (TTSProvider, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.speech == nil {
		return nil, ErrSpeechNotConfigured
	}
	return f.speech, nil
}

// SpeechConfig returns the active speech settings.
func (f *Factory) SpeechConfig() SpeechConfig {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.cfg.Speech
}

// Voices lists voices of the speech provider when it supports listing.
func (f *Factory) Voices(ctx context.Context) ([]Voice, error) {
	speech, err := f.Speech()
	if err != nil {
		return nil, err
	}
	lister, ok := speech.(VoicesLister)
	if !ok {
		return nil, fmt.Errorf("%s does not list voices", speech.Name())
	}
	return lister.ListVoices(ctx)
}

// Status describes the active providers.
func (f *Factory) Status() FactoryStatus {
	f.mu.RLock()
	defer f.mu.RUnlock()

	st := FactoryStatus{
		Generation: f.cfg.Generation.Type,
		Model:      f.cfg.Generation.Model,
		Speech:     f.cfg.Speech.Type,
		Voice:      f.cfg.Speech.Voice,
	}
	if st.Generation == "" {
		st.Generation = GeminiName
	}
	if f.limiter != nil {
		s := f.limiter.Status()
		st.RateLimit = &s
	}
	return st
}

func newSpeech(cfg SpeechConfig) (TTSProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrSpeechNotConfigured
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	switch cfg.Type {
	case "", OpenAITTSName:
		return NewOpenAITTSClient(OpenAITTSConfig{
			APIKey:       cfg.APIKey,
			Model:        cfg.Model,
			Voice:        cfg.Voice,
			Speed:        cfg.Speed,
			Instructions: cfg.Instructions,
			MaxRetries:   cfg.MaxRetries,
			Timeout:      timeout,
			BaseURL:      cfg.BaseURL,
		}), nil
	case ElevenLabsTTSName:
		return NewElevenLabsTTSClient(ElevenLabsTTSConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Voice:   cfg.Voice,
			Format:     cfg.Format,
			Speed:      cfg.Speed,
			Timeout:    timeout,
			MaxRetries: cfg.MaxRetries,
		}), nil
	default:
		return nil, fmt.Errorf("unknown speech provider type: %s", cfg.Type)
	}
}
