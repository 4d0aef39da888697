package providers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"
)

const MockName = "mock"

// MockGenerator is a Generator for tests.
type MockGenerator struct {
	// Text is returned on success.
	Text string
	// Err, when set, is returned from every call.
	Err error
	// Latency delays each call; cancellation of ctx ends the wait early.
	Latency time.Duration

	calls atomic.Int64

	mu   sync.Mutex
	last *GenerateRequest
}

// NewMockGenerator returns a generator that always answers text.
func NewMockGenerator(text string) *MockGenerator {
	return &MockGenerator{Text: text}
}

func (m *MockGenerator) Name() string { return MockName }

// Generate records req and returns the configured text or error.
func (m *MockGenerator) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.last = req
	m.mu.Unlock()

	if m.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Latency):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Text == "" {
		return nil, ErrEmptyResponse
	}
	return &GenerateResult{
		Text:      m.Text,
		Provider:  MockName,
		ModelUsed: "mock-model",
	}, nil
}

// Calls returns the number of Generate calls.
func (m *MockGenerator) Calls() int { return int(m.calls.Load()) }

// LastRequest returns the most recent request, or nil.
func (m *MockGenerator) LastRequest() *GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// MockTTS is a TTSProvider for tests.
type MockTTS struct {
	Audio []byte
	Err   error

	calls atomic.Int64

	mu   sync.Mutex
	last *TTSRequest
}

// NewMockTTS returns a provider that always answers audio.
func NewMockTTS(audio []byte) *MockTTS {
	return &MockTTS{Audio: audio}
}

func (m *MockTTS) Name() string { return MockName }

// Generate records req and returns the configured audio or error.
func (m *MockTTS) Generate(ctx context.Context, req *TTSRequest) (*TTSResult, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.last = req
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if req.Text == "" {
		return nil, errors.New("text is required")
	}
	return &TTSResult{
		Audio:  m.Audio,
		Format: "mp3",
		Voice:  req.Voice,
		Chars:  utf8.RuneCountInString(req.Text),
	}, nil
}

// ListVoices returns a single mock voice.
func (m *MockTTS) ListVoices(_ context.Context) ([]Voice, error) {
	return []Voice{{VoiceID: "mock", Name: "Mock"}}, nil
}

// Calls returns the number of Generate calls.
func (m *MockTTS) Calls() int { return int(m.calls.Load()) }

// LastRequest returns the most recent request, or nil.
func (m *MockTTS) LastRequest() *TTSRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// MockSource hands out a MockGenerator and MockTTS the way Factory hands out
// configured providers. A nil TTS reports ErrSpeechNotConfigured.
type MockSource struct {
	Gen *MockGenerator
	TTS *MockTTS
	// AllowEmptyCredential mirrors a factory with a configured fallback key.
	AllowEmptyCredential bool
}

// Generator returns s.Gen, or ErrMissingCredential for an empty credential.
func (s *MockSource) Generator(_ context.Context, credential string) (Generator, error) {
	if credential == "" && !s.AllowEmptyCredential {
		return nil, ErrMissingCredential
	}
	if s.Gen == nil {
		return nil, ErrMissingCredential
	}
	return s.Gen, nil
}

// Speech returns s.TTS.
func (s *MockSource) Speech() (TTSProvider, error) {
	if s.TTS == nil {
		return nil, ErrSpeechNotConfigured
	}
	return s.TTS, nil
}
