package providers

import (
	"context"
	"time"
)

// Generator turns a prompt and page images into lesson text.
type Generator interface {
	// Name returns the provider identifier (e.g., "gemini").
	Name() string

	// Generate sends one multimodal request and returns the full text.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error)
}

// TTSProvider converts narration text to audio.
type TTSProvider interface {
	// Name returns the provider identifier (e.g., "openai").
	Name() string

	// Generate synthesizes speech for the request text.
	Generate(ctx context.Context, req *TTSRequest) (*TTSResult, error)
}

// VoicesLister is implemented by speech providers that can enumerate voices.
type VoicesLister interface {
	ListVoices(ctx context.Context) ([]Voice, error)
}

// Image is an inline image part of a generation request.
type Image struct {
	Data     []byte
	MIMEType string // "image/png" when empty
}

// GenerateRequest is an ordered list of text and image parts. The system
// text sets the persona; Prompt and Images form the user turn.
type GenerateRequest struct {
	System string
	Prompt string
	Images []Image

	// Model overrides the client default when set.
	Model       string
	Temperature float64
	MaxTokens   int
}

// GenerateResult is the complete response from a generation call.
type GenerateResult struct {
	Text string `json:"text"`

	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	Provider      string        `json:"provider"`
	ModelUsed     string        `json:"model_used"`
	ExecutionTime time.Duration `json:"execution_time"`
}

// TTSRequest is one narration to synthesize.
type TTSRequest struct {
	Text         string
	Voice        string  // Uses provider default when empty
	Format       string  // "mp3" by default
	Speed        float64 // 1.0 is normal; 0 uses provider default
	Instructions string  // Style instructions for models that accept them
}

// TTSResult is synthesized narration. Timing is not reported here; the
// packet builder measures the audio itself.
type TTSResult struct {
	Audio []byte
	// Format is the container ("mp3", "wav", ...).
	Format  string
	Voice   string
	Chars   int
	Elapsed time.Duration
}

// Voice represents a TTS voice.
type Voice struct {
	VoiceID     string `json:"voice_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
