package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"
)

// speechServer answers /audio/speech with fixed bytes and records the last
// JSON body it received.
func speechServer(t *testing.T) (*httptest.Server, *map[string]any) {
	t.Helper()
	body := new(map[string]any)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/audio/speech" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		*body = nil
		if err := json.NewDecoder(r.Body).Decode(body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	t.Cleanup(srv.Close)
	return srv, body
}

func TestOpenAITTSGenerate(t *testing.T) {
	srv, body := speechServer(t)

	tests := []struct {
		name  string
		cfg   OpenAITTSConfig
		req   TTSRequest
		want  map[string]any
		unset []string
	}{
		{
			name: "request overrides config",
			cfg:  OpenAITTSConfig{Model: "gpt-4o-mini-tts", Voice: "onyx", Instructions: "Default.", Speed: 1.2},
			req:  TTSRequest{Text: "Hello world.", Format: "mp3", Instructions: "Narrate calmly.", Speed: 0.98},
			want: map[string]any{
				"model": "gpt-4o-mini-tts", "voice": "onyx", "response_format": "mp3",
				"instructions": "Narrate calmly.", "speed": 0.98,
			},
		},
		{
			name: "defaults",
			req:  TTSRequest{Text: "今天學植物。"},
			want: map[string]any{"model": "gpt-4o-mini-tts", "voice": "nova", "speed": 1.0},
		},
		{
			name:  "tts-1 drops instructions",
			cfg:   OpenAITTSConfig{Model: "tts-1", Instructions: "Speak slowly."},
			req:   TTSRequest{Text: "光合作用", Format: "pcm"},
			want:  map[string]any{"model": "tts-1", "response_format": "wav"},
			unset: []string{"instructions"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.APIKey = "test-key"
			tt.cfg.BaseURL = srv.URL
			res, err := NewOpenAITTSClient(tt.cfg).Generate(context.Background(), &tt.req)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if string(res.Audio) != "mp3-bytes" {
				t.Errorf("audio = %q", res.Audio)
			}
			for k, v := range tt.want {
				if (*body)[k] != v {
					t.Errorf("%s = %v, want %v", k, (*body)[k], v)
				}
			}
			for _, k := range tt.unset {
				if _, ok := (*body)[k]; ok {
					t.Errorf("%s should be absent, got %v", k, (*body)[k])
				}
			}
		})
	}
}

func TestOpenAITTSResult(t *testing.T) {
	srv, _ := speechServer(t)
	c := NewOpenAITTSClient(OpenAITTSConfig{APIKey: "k", Voice: "coral", BaseURL: srv.URL})

	res, err := c.Generate(context.Background(), &TTSRequest{Text: "  今天學植物。 "})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.Format != "mp3" || res.Voice != "coral" || res.Chars != 6 {
		t.Errorf("result = %+v", res)
	}

	if _, err := c.Generate(context.Background(), &TTSRequest{Text: "  "}); err == nil {
		t.Error("expected error for blank text")
	}
}

func TestOpenAITTSErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header string
		check  func(*testing.T, error)
	}{
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			header: "3",
			check: func(t *testing.T, err error) {
				rle, ok := IsRateLimitError(err)
				if !ok || rle.StatusCode != http.StatusTooManyRequests || rle.RetryAfter != 3*time.Second {
					t.Errorf("got %T: %v", err, err)
				}
			},
		},
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				var se *StatusError
				if !errors.As(err, &se) || se.Status != http.StatusUnauthorized {
					t.Errorf("got %T: %v", err, err)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.header != "" {
					w.Header().Set("Retry-After", tt.header)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error","param":"","code":"x"}}`))
			}))
			defer srv.Close()

			c := NewOpenAITTSClient(OpenAITTSConfig{APIKey: "k", BaseURL: srv.URL})
			_, err := c.Generate(context.Background(), &TTSRequest{Text: "hi"})
			tt.check(t, err)
		})
	}
}

func TestOpenAITTSListVoices(t *testing.T) {
	voices, err := NewOpenAITTSClient(OpenAITTSConfig{APIKey: "k"}).ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices() error = %v", err)
	}
	if len(voices) != len(openAIVoices) {
		t.Fatalf("got %d voices, want %d", len(voices), len(openAIVoices))
	}
	if !slices.ContainsFunc(voices, func(v Voice) bool { return v.VoiceID == "nova" }) {
		t.Error("nova missing from voice list")
	}
}
