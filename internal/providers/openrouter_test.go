package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestOpenRouterGenerate(t *testing.T) {
	var req chatCompletion
	var rawMessages []map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer or-key" {
			t.Errorf("Authorization = %q", got)
		}
		var body struct {
			Model    string           `json:"model"`
			Messages []map[string]any `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		req.Model = body.Model
		rawMessages = body.Messages

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"gen-1","model":"google/gemini-2.5-flash","choices":[{"message":{"role":"assistant","content":"  第一頁\n"}}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))
	defer server.Close()

	g := NewOpenRouterGenerator(OpenRouterConfig{
		APIKey:       "or-key",
		BaseURL:      server.URL,
		DefaultModel: "google/gemini-2.5-flash",
	})

	res, err := g.Generate(context.Background(), &GenerateRequest{
		System: "persona",
		Prompt: "teach pages 1-2",
		Images: []Image{{Data: []byte{0x89, 'P', 'N', 'G'}}, {Data: []byte("jpg"), MIMEType: "image/jpeg"}},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.Text != "第一頁" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.TotalTokens != 15 || res.Provider != OpenRouterName {
		t.Errorf("unexpected result: %+v", res)
	}
	if req.Model != "google/gemini-2.5-flash" {
		t.Errorf("model = %q", req.Model)
	}
	if len(rawMessages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(rawMessages))
	}
	if rawMessages[0]["role"] != "system" || rawMessages[0]["content"] != "persona" {
		t.Errorf("system message = %v", rawMessages[0])
	}
	parts, ok := rawMessages[1]["content"].([]any)
	if !ok || len(parts) != 3 {
		t.Fatalf("user content = %v", rawMessages[1]["content"])
	}
	img := parts[2].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	if !strings.HasPrefix(img, "data:image/jpeg;base64,") {
		t.Errorf("image url = %q", img)
	}
	first := parts[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	if !strings.HasPrefix(first, "data:image/png;base64,") {
		t.Errorf("default mime not png: %q", first)
	}
}

func TestOpenRouterEmptyChoice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"   "}}]}`))
	}))
	defer server.Close()

	g := NewOpenRouterGenerator(OpenRouterConfig{APIKey: "k", BaseURL: server.URL})
	_, err := g.Generate(context.Background(), &GenerateRequest{Prompt: "x"})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestOpenRouterRetries(t *testing.T) {
	tests := []struct {
		name       string
		maxRetries int
		wantCalls  int32
		wantErr    bool
	}{
		{name: "no retries fails once", maxRetries: 0, wantCalls: 1, wantErr: true},
		{name: "retry recovers", maxRetries: 2, wantCalls: 2, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) == 1 {
					w.WriteHeader(http.StatusBadGateway)
					return
				}
				_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
			}))
			defer server.Close()

			g := NewOpenRouterGenerator(OpenRouterConfig{
				APIKey:     "k",
				BaseURL:    server.URL,
				MaxRetries: tt.maxRetries,
				RetryDelay: time.Millisecond,
			})
			_, err := g.Generate(context.Background(), &GenerateRequest{Prompt: "x"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestOpenRouterRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	g := NewOpenRouterGenerator(OpenRouterConfig{APIKey: "k", BaseURL: server.URL})
	_, err := g.Generate(context.Background(), &GenerateRequest{Prompt: "x"})
	rle, ok := IsRateLimitError(err)
	if !ok {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rle.RetryAfter != 5*time.Second {
		t.Errorf("RetryAfter = %v", rle.RetryAfter)
	}
}

func TestOpenRouterClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer server.Close()

	g := NewOpenRouterGenerator(OpenRouterConfig{APIKey: "k", BaseURL: server.URL, MaxRetries: 3})
	_, err := g.Generate(context.Background(), &GenerateRequest{Prompt: "x"})
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 StatusError, got %v", err)
	}
	if se.Message != "bad key" {
		t.Errorf("Message = %q, want provider message", se.Message)
	}
}
