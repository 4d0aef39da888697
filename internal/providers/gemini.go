package providers

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	genai "google.golang.org/genai"
)

const (
	GeminiName         = "gemini"
	GeminiDefaultModel = "gemini-2.5-flash"
)

// GeminiConfig holds configuration for the Gemini generator.
type GeminiConfig struct {
	APIKey     string
	Model      string
	BaseURL    string // Optional (tests, proxies)
	Timeout    time.Duration
	HTTPClient *http.Client // Optional
	// MaxRetries is the number of extra attempts after a 429 or 5xx.
	MaxRetries int
	RetryDelay time.Duration
}

// GeminiGenerator implements Generator with the Google GenAI SDK.
type GeminiGenerator struct {
	client     *genai.Client
	model      string
	maxRetries int
	retryDelay time.Duration
}

// NewGeminiGenerator creates a Gemini client for one credential.
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing Gemini API key")
	}
	if cfg.Model == "" {
		cfg.Model = GeminiDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	c, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiGenerator{
		client:     c,
		model:      cfg.Model,
		maxRetries: max(cfg.MaxRetries, 0),
		retryDelay: cmp.Or(cfg.RetryDelay, time.Second),
	}, nil
}

// Name returns the provider identifier.
func (g *GeminiGenerator) Name() string {
	return GeminiName
}

// Model returns the configured default model.
func (g *GeminiGenerator) Model() string {
	return g.model
}

// Generate sends the prompt followed by the images as one user turn.
func (g *GeminiGenerator) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	start := time.Now()
	if req == nil {
		return nil, errors.New("request is required")
	}

	model := req.Model
	if model == "" {
		model = g.model
	}

	parts := []*genai.Part{{Text: req.Prompt}}
	for _, img := range req.Images {
		mt := img.MIMEType
		if mt == "" {
			mt = "image/png"
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: mt, Data: img.Data}})
	}
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}

	var config *genai.GenerateContentConfig
	if req.System != "" || req.Temperature > 0 || req.MaxTokens > 0 {
		config = &genai.GenerateContentConfig{}
		if req.System != "" {
			config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
		}
		if req.Temperature > 0 {
			config.Temperature = genai.Ptr(float32(req.Temperature))
		}
		if req.MaxTokens > 0 {
			config.MaxOutputTokens = int32(req.MaxTokens)
		}
	}

	var res *genai.GenerateContentResponse
	err := retry.Do(
		func() error {
			var err error
			res, err = g.client.Models.GenerateContent(ctx, model, contents, config)
			if err == nil {
				return nil
			}
			err = mapGeminiError(err)
			if !transient(err) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(g.maxRetries)+1),
		retry.Delay(g.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(res.Text())
	if text == "" {
		return nil, fmt.Errorf("gemini %s: %w", model, ErrEmptyResponse)
	}

	result := &GenerateResult{
		Text:          text,
		Provider:      GeminiName,
		ModelUsed:     model,
		ExecutionTime: time.Since(start),
	}
	if u := res.UsageMetadata; u != nil {
		result.PromptTokens = int(u.PromptTokenCount)
		result.CompletionTokens = int(u.CandidatesTokenCount)
		result.TotalTokens = int(u.TotalTokenCount)
	}
	return result, nil
}

func mapGeminiError(err error) error {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests {
			return &RateLimitError{
				Message:    fmt.Sprintf("Gemini rate limited: %s", apiErr.Message),
				StatusCode: apiErr.Code,
			}
		}
		return &StatusError{Provider: "Gemini", Status: apiErr.Code, Message: apiErr.Message}
	}
	return fmt.Errorf("gemini request failed: %w", err)
}

// transient reports whether a mapped provider error is worth retrying.
func transient(err error) bool {
	if _, ok := IsRateLimitError(err); ok {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && se.Status >= 500
}

var _ Generator = (*GeminiGenerator)(nil)
