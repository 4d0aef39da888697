package providers

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenAITTSName         = "openai"
	openAITTSDefaultModel = "gpt-4o-mini-tts"
	openAITTSDefaultVoice = "nova"
)

// openAIVoices are the built-in voices; the API has no listing endpoint.
var openAIVoices = []string{
	"alloy", "ash", "ballad", "coral", "echo", "fable", "nova",
	"onyx", "sage", "shimmer", "verse", "marin", "cedar",
}

// OpenAITTSConfig holds configuration for the OpenAI speech client.
type OpenAITTSConfig struct {
	APIKey       string
	Model        string  // "gpt-4o-mini-tts" (default), "tts-1-hd", "tts-1"
	Voice        string  // "nova" (default)
	Speed        float64 // 0.25-4.0
	Instructions string  // Honored by gpt-4o-mini-tts only
	MaxRetries   int     // SDK transport retries
	Timeout      time.Duration
	BaseURL      string
}

// OpenAITTSClient narrates with the OpenAI speech endpoint.
type OpenAITTSClient struct {
	cfg    OpenAITTSConfig
	client openai.Client
}

// NewOpenAITTSClient creates a new OpenAI speech client.
func NewOpenAITTSClient(cfg OpenAITTSConfig) *OpenAITTSClient {
	cfg.Model = cmp.Or(cfg.Model, openAITTSDefaultModel)
	cfg.Voice = cmp.Or(cfg.Voice, openAITTSDefaultVoice)
	cfg.Timeout = cmp.Or(cfg.Timeout, 300*time.Second)
	if cfg.Speed <= 0 {
		cfg.Speed = 1.0
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		option.WithMaxRetries(max(cfg.MaxRetries, 0)),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAITTSClient{cfg: cfg, client: openai.NewClient(opts...)}
}

func (c *OpenAITTSClient) Name() string { return OpenAITTSName }

// Generate synthesizes req.Text. Request fields override the configured
// voice, speed and instructions.
func (c *OpenAITTSClient) Generate(ctx context.Context, req *TTSRequest) (*TTSResult, error) {
	start := time.Now()
	var text string
	if req != nil {
		text = strings.TrimSpace(req.Text)
	}
	if text == "" {
		return nil, errors.New("text is required")
	}

	voice := cmp.Or(strings.TrimSpace(req.Voice), c.cfg.Voice)
	speed := req.Speed
	if speed <= 0 {
		speed = c.cfg.Speed
	}
	format := openAIFormat(req.Format)

	params := openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(c.cfg.Model),
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: format,
		Speed:          openai.Float(speed),
	}
	if instr := cmp.Or(strings.TrimSpace(req.Instructions), strings.TrimSpace(c.cfg.Instructions)); instr != "" && acceptsInstructions(c.cfg.Model) {
		params.Instructions = openai.String(instr)
	}

	resp, err := c.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, openAIError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed reading openai audio response: %w", err)
	}

	return &TTSResult{
		Audio:   data,
		Format:  string(format),
		Voice:   voice,
		Chars:   utf8.RuneCountInString(text),
		Elapsed: time.Since(start),
	}, nil
}

// ListVoices returns the built-in voice list.
func (c *OpenAITTSClient) ListVoices(_ context.Context) ([]Voice, error) {
	voices := make([]Voice, 0, len(openAIVoices))
	for _, name := range openAIVoices {
		voices = append(voices, Voice{VoiceID: name, Name: name})
	}
	return voices, nil
}

func acceptsInstructions(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-4o-mini-tts")
}

func openAIFormat(format string) openai.AudioSpeechNewParamsResponseFormat {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "opus":
		return openai.AudioSpeechNewParamsResponseFormatOpus
	case "aac":
		return openai.AudioSpeechNewParamsResponseFormatAAC
	case "flac":
		return openai.AudioSpeechNewParamsResponseFormatFLAC
	case "wav", "pcm":
		return openai.AudioSpeechNewParamsResponseFormatWAV
	default:
		return openai.AudioSpeechNewParamsResponseFormatMP3
	}
}

// openAIError maps SDK errors onto the package's RateLimitError and
// StatusError.
func openAIError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.StatusCode == http.StatusTooManyRequests {
		var retryAfter time.Duration
		if apiErr.Response != nil {
			retryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
		}
		return &RateLimitError{
			Message:    "OpenAI rate limited: " + apiErr.Message,
			RetryAfter: retryAfter,
			StatusCode: apiErr.StatusCode,
		}
	}
	return &StatusError{Provider: "OpenAI TTS", Status: apiErr.StatusCode, Message: apiErr.Message}
}

var _ TTSProvider = (*OpenAITTSClient)(nil)
var _ VoicesLister = (*OpenAITTSClient)(nil)
