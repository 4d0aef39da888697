// Package transcript turns raw lesson output from the generation service
// into display text, narration text and captions.
package transcript

import (
	"regexp"
	"strings"
)

// Control tokens the lesson prompt asks the model to emit.
const (
	VoiceStart    = "[[VOICE_START]]"
	VoiceEnd      = "[[VOICE_END]]"
	PageSeparator = "---PAGE_SEP---"

	// spacingMark is the letter-spacing hint the model adds after letters and
	// digits for the voice. It must never reach the display.
	spacingMark = "～～"
)

var voiceSpan = regexp.MustCompile(`(?s)\[\[VOICE_START\]\](.*?)\[\[VOICE_END\]\]`)

func normalize(raw string) string {
	return strings.ReplaceAll(raw, "\u00a0", " ")
}

// stripMarkers drops voice markers left over after span matching, e.g. a
// start marker the model never closed.
func stripMarkers(s string) string {
	s = strings.ReplaceAll(s, VoiceStart, "")
	return strings.ReplaceAll(s, VoiceEnd, "")
}

// ExtractDisplayText removes every voice span and the page separator token
// and trims the result. Text without voice markers is displayed as is.
func ExtractDisplayText(raw string) string {
	t := voiceSpan.ReplaceAllString(normalize(raw), "")
	t = stripMarkers(t)
	t = strings.ReplaceAll(t, PageSeparator, "")
	t = strings.ReplaceAll(t, spacingMark, "")
	return strings.TrimSpace(t)
}

// ExtractNarrationText joins the contents of every voice span, in order,
// with a single space. When the text has no voice span the whole text is
// narrated.
func ExtractNarrationText(raw string) string {
	t := normalize(raw)
	matches := voiceSpan.FindAllStringSubmatch(t, -1)
	if len(matches) == 0 {
		t = stripMarkers(t)
		t = strings.ReplaceAll(t, PageSeparator, " ")
		return strings.TrimSpace(t)
	}

	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		if s := strings.TrimSpace(m[1]); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Segments splits raw output on the page separator and returns the
// non-blank parts, trimmed.
func Segments(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, PageSeparator) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SelectPageSegment returns the segment describing the target page after
// skipping leading warm-up segments. If the output has fewer segments than
// that, the last one is used; output without separators is returned whole.
func SelectPageSegment(raw string, leading int) string {
	parts := Segments(raw)
	if len(parts) == 0 {
		return raw
	}
	idx := leading
	if idx < 0 {
		idx = 0
	}
	if idx >= len(parts) {
		idx = len(parts) - 1
	}
	return parts[idx]
}
