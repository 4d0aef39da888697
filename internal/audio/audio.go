// Package audio measures synthesized speech and sniffs media types.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/tcolgate/mp3"
)

// ErrNoFrames is returned when data holds no decodable MP3 frame.
var ErrNoFrames = errors.New("no mp3 frames")

// Duration sums the frame durations of an MP3 stream.
func Duration(data []byte) (time.Duration, error) {
	d := mp3.NewDecoder(bytes.NewReader(data))

	var (
		f       mp3.Frame
		skipped int
		total   time.Duration
		frames  int
	)
	for {
		if err := d.Decode(&f, &skipped); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			if frames > 0 {
				// Trailing garbage after valid frames.
				break
			}
			return 0, fmt.Errorf("decode mp3: %w", err)
		}
		total += f.Duration()
		frames++
	}
	if frames == 0 {
		return 0, ErrNoFrames
	}
	return total, nil
}

// ProbeDuration asks ffprobe for the duration of data.
func ProbeDuration(ctx context.Context, data []byte) (time.Duration, error) {
	tmp, err := os.CreateTemp("", "lectern-audio-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close temp file: %w", err)
	}

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		tmp.Name(),
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	secs, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", strings.TrimSpace(string(output)), err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// Measure returns the audio duration in whole milliseconds, trying the MP3
// frame parser first and ffprobe second.
func Measure(ctx context.Context, data []byte) (int, error) {
	if len(data) == 0 {
		return 0, errors.New("empty audio")
	}
	d, err := Duration(data)
	if err == nil {
		return int(d.Round(time.Millisecond) / time.Millisecond), nil
	}

	probed, perr := ProbeDuration(ctx, data)
	if perr != nil {
		return 0, fmt.Errorf("measure audio: %w (ffprobe: %v)", err, perr)
	}
	return int(probed.Round(time.Millisecond) / time.Millisecond), nil
}

// DetectMIME sniffs the media type of data, falling back to fallback when the
// signature is unknown.
func DetectMIME(data []byte, fallback string) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown || kind.MIME.Value == "" {
		return fallback
	}
	return kind.MIME.Value
}
