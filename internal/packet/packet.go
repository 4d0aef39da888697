// Package packet builds the bundle a lesson shows for one page: the
// rendered image, the display transcript, narration audio and the captions
// paced against it.
package packet

import (
	"math"
	"time"
)

// MinCaptionIntervalMS is the floor on caption pacing.
const MinCaptionIntervalMS = 300

// Packet is everything prepared for exactly one document page. A packet is
// immutable once built.
type Packet struct {
	PageNumber int `json:"page_number"`

	Image     []byte `json:"image"`
	ImageMIME string `json:"image_mime"`

	// DisplayText is the transcript with voice-only spans removed.
	DisplayText string `json:"display_text"`
	// NarrationText is the voice-only text as the model wrote it.
	NarrationText string `json:"narration_text"`
	// SpokenText is NarrationText after pronunciation rules; it is what the
	// speech provider received and what captions are cut from.
	SpokenText string `json:"spoken_text"`

	Audio      []byte `json:"audio"`
	AudioMIME  string `json:"audio_mime"`
	DurationMS int    `json:"duration_ms"`

	Captions          []string `json:"captions"`
	CaptionIntervalMS int      `json:"caption_interval_ms"`

	PromptHash string    `json:"prompt_hash"`
	Model      string    `json:"model,omitempty"`
	BuiltAt    time.Time `json:"built_at"`
	Cached     bool      `json:"cached,omitempty"`
}

// CaptionInterval returns max(300, round(durationMS / captions)).
func CaptionInterval(durationMS, captions int) int {
	if captions < 1 {
		captions = 1
	}
	interval := int(math.Round(float64(durationMS) / float64(captions)))
	if interval < MinCaptionIntervalMS {
		return MinCaptionIntervalMS
	}
	return interval
}

// Caption returns caption i, or "" when i is out of range.
func (p *Packet) Caption(i int) string {
	if p == nil || i < 0 || i >= len(p.Captions) {
		return ""
	}
	return p.Captions[i]
}
