package providers

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	ElevenLabsTTSName      = "elevenlabs"
	ElevenLabsAPIBaseURL   = "https://api.elevenlabs.io/v1"
	ElevenLabsDefaultModel = "eleven_multilingual_v2"

	elevenLabsDefaultFormat = "mp3_44100_128"
)

// ElevenLabsTTSConfig holds configuration for the ElevenLabs speech client.
type ElevenLabsTTSConfig struct {
	APIKey     string
	BaseURL    string
	Model      string  // "eleven_multilingual_v2" reads Mandarin well
	Voice      string  // Default voice ID
	Format     string  // output_format, e.g. mp3_44100_128
	Stability  float64 // 0.0-1.0, default 0.5
	Similarity float64 // 0.0-1.0, default 0.75
	Speed      float64 // 0.7-1.2
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// ElevenLabsTTSClient narrates with the ElevenLabs text-to-speech API.
type ElevenLabsTTSClient struct {
	cfg    ElevenLabsTTSConfig
	client *http.Client
}

// NewElevenLabsTTSClient creates a new ElevenLabs speech client.
func NewElevenLabsTTSClient(cfg ElevenLabsTTSConfig) *ElevenLabsTTSClient {
	cfg.BaseURL = strings.TrimRight(cmp.Or(cfg.BaseURL, ElevenLabsAPIBaseURL), "/")
	cfg.Model = cmp.Or(cfg.Model, ElevenLabsDefaultModel)
	cfg.Format = cmp.Or(cfg.Format, elevenLabsDefaultFormat)
	cfg.Stability = cmp.Or(cfg.Stability, 0.5)
	cfg.Similarity = cmp.Or(cfg.Similarity, 0.75)
	cfg.Speed = cmp.Or(cfg.Speed, 1.0)
	cfg.Timeout = cmp.Or(cfg.Timeout, 300*time.Second)

	return &ElevenLabsTTSClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *ElevenLabsTTSClient) Name() string { return ElevenLabsTTSName }

// Generate synthesizes req.Text with the request voice or the default one.
// Instructions are ignored; ElevenLabs has no style prompt.
func (c *ElevenLabsTTSClient) Generate(ctx context.Context, req *TTSRequest) (*TTSResult, error) {
	if req == nil || strings.TrimSpace(req.Text) == "" {
		return nil, errors.New("text is required")
	}
	voice := cmp.Or(req.Voice, c.cfg.Voice)
	if voice == "" {
		return nil, errors.New("voice_id is required")
	}
	start := time.Now()

	// A bare "mp3" means the configured output_format.
	format := req.Format
	if format == "" || format == "mp3" {
		format = c.cfg.Format
	}
	speed := req.Speed
	if speed <= 0 {
		speed = c.cfg.Speed
	}

	body, err := json.Marshal(elevenLabsRequest{
		Text:    req.Text,
		ModelID: c.cfg.Model,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       c.cfg.Stability,
			SimilarityBoost: c.cfg.Similarity,
			Speed:           min(max(speed, 0.7), 1.2),
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s",
		c.cfg.BaseURL, url.PathEscape(voice), url.QueryEscape(format))
	resp, err := send(ctx, c.client, call{
		provider: "ElevenLabs TTS",
		method:   http.MethodPost,
		url:      endpoint,
		header: http.Header{
			"Content-Type": {"application/json"},
			"Xi-Api-Key":   {c.cfg.APIKey},
		},
		body:    body,
		message: elevenLabsMessage,
	}, c.cfg.MaxRetries, c.cfg.RetryDelay)
	if err != nil {
		return nil, err
	}

	return &TTSResult{
		Audio:   resp.body,
		Format:  elevenLabsContainer(format),
		Voice:   voice,
		Chars:   utf8.RuneCountInString(req.Text),
		Elapsed: time.Since(start),
	}, nil
}

// ListVoices returns the account's voices. The accent label stands in for
// a missing description.
func (c *ElevenLabsTTSClient) ListVoices(ctx context.Context) ([]Voice, error) {
	resp, err := send(ctx, c.client, call{
		provider: "ElevenLabs voices",
		method:   http.MethodGet,
		url:      c.cfg.BaseURL + "/voices",
		header:   http.Header{"Xi-Api-Key": {c.cfg.APIKey}},
		message:  elevenLabsMessage,
	}, c.cfg.MaxRetries, c.cfg.RetryDelay)
	if err != nil {
		return nil, err
	}

	var list struct {
		Voices []struct {
			VoiceID     string            `json:"voice_id"`
			Name        string            `json:"name"`
			Description string            `json:"description"`
			Labels      map[string]string `json:"labels"`
		} `json:"voices"`
	}
	if err := json.Unmarshal(resp.body, &list); err != nil {
		return nil, fmt.Errorf("failed to decode voices: %w", err)
	}

	voices := make([]Voice, 0, len(list.Voices))
	for _, v := range list.Voices {
		voices = append(voices, Voice{
			VoiceID:     v.VoiceID,
			Name:        v.Name,
			Description: cmp.Or(v.Description, v.Labels["accent"]),
		})
	}
	return voices, nil
}

// elevenLabsContainer maps an output_format to its container:
// mp3_44100_128 is mp3, pcm_16000 is wav.
func elevenLabsContainer(format string) string {
	name, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(format)), "_")
	switch name {
	case "":
		return "mp3"
	case "pcm", "ulaw", "alaw":
		return "wav"
	default:
		return name
	}
}

func elevenLabsMessage(body []byte) string {
	var r struct {
		Detail struct {
			Message string `json:"message"`
		} `json:"detail"`
	}
	if json.Unmarshal(body, &r) == nil {
		return r.Detail.Message
	}
	return ""
}

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

var _ TTSProvider = (*ElevenLabsTTSClient)(nil)
var _ VoicesLister = (*ElevenLabsTTSClient)(nil)
