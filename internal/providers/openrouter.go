package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	OpenRouterName         = "openrouter"
	OpenRouterBaseURL      = "https://openrouter.ai/api/v1"
	OpenRouterDefaultModel = "google/gemini-2.5-flash"
)

// OpenRouterConfig configures the OpenRouter generator.
type OpenRouterConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	// MaxRetries is the number of extra attempts after a transient failure.
	MaxRetries int
	RetryDelay time.Duration
}

// OpenRouterGenerator sends page images to a vision model through the
// OpenAI-compatible chat completions API.
type OpenRouterGenerator struct {
	cfg    OpenRouterConfig
	client *http.Client
}

// NewOpenRouterGenerator creates a new OpenRouter generator.
func NewOpenRouterGenerator(cfg OpenRouterConfig) *OpenRouterGenerator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = OpenRouterBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = OpenRouterDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}
	return &OpenRouterGenerator{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (g *OpenRouterGenerator) Name() string { return OpenRouterName }

// Model returns the configured default model.
func (g *OpenRouterGenerator) Model() string { return g.cfg.DefaultModel }

// Generate sends the system text as its own message, then one user message
// holding the prompt followed by each image as a data URL.
func (g *OpenRouterGenerator) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	if req == nil {
		return nil, errors.New("request is required")
	}
	start := time.Now()

	model := req.Model
	if model == "" {
		model = g.cfg.DefaultModel
	}

	body, err := json.Marshal(chatRequest(model, req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := send(ctx, g.client, call{
		provider: "OpenRouter",
		method:   http.MethodPost,
		url:      g.cfg.BaseURL + "/chat/completions",
		header: http.Header{
			"Content-Type":  {"application/json"},
			"Authorization": {"Bearer " + g.cfg.APIKey},
			"Http-Referer":  {"https://github.com/jackzampolin/lectern"},
			"X-Title":       {"Lectern"},
		},
		body:    body,
		message: chatErrorMessage,
	}, g.cfg.MaxRetries, g.cfg.RetryDelay)
	if err != nil {
		return nil, err
	}

	var out chatResponse
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("OpenRouter API error: %s", out.Error.Message)
	}

	var text string
	if len(out.Choices) > 0 {
		text = strings.TrimSpace(out.Choices[0].Message.Content)
	}
	if text == "" {
		return nil, fmt.Errorf("OpenRouter %s: %w", model, ErrEmptyResponse)
	}

	if out.Model != "" {
		model = out.Model
	}
	return &GenerateResult{
		Text:             text,
		PromptTokens:     out.Usage.PromptTokens,
		CompletionTokens: out.Usage.CompletionTokens,
		TotalTokens:      out.Usage.TotalTokens,
		Provider:         OpenRouterName,
		ModelUsed:        model,
		ExecutionTime:    time.Since(start),
	}, nil
}

func chatRequest(model string, req *GenerateRequest) chatCompletion {
	cc := chatCompletion{
		Model:       model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.System != "" {
		cc.Messages = append(cc.Messages, chatMessage{Role: "system", Content: req.System})
	}

	parts := make([]chatPart, 0, len(req.Images)+1)
	parts = append(parts, chatPart{Type: "text", Text: req.Prompt})
	for _, img := range req.Images {
		mime := img.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		parts = append(parts, chatPart{
			Type:     "image_url",
			ImageURL: &chatImage{URL: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)},
		})
	}
	cc.Messages = append(cc.Messages, chatMessage{Role: "user", Content: parts})
	return cc
}

func chatErrorMessage(body []byte) string {
	var r chatResponse
	if json.Unmarshal(body, &r) == nil && r.Error != nil {
		return r.Error.Message
	}
	return ""
}

type chatCompletion struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []chatPart
}

type chatPart struct {
	Type     string     `json:"type"`
	Text     string     `json:"text,omitempty"`
	ImageURL *chatImage `json:"image_url,omitempty"`
}

type chatImage struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

var _ Generator = (*OpenRouterGenerator)(nil)
