package audio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackzampolin/lectern/internal/testutil"
)

func TestDuration(t *testing.T) {
	data := testutil.MP3(100)

	d, err := Duration(data)
	if err != nil {
		t.Fatalf("Duration() error = %v", err)
	}
	want := 100 * 1152 * time.Second / 44100
	if diff := d - want; diff > 5*time.Millisecond || diff < -5*time.Millisecond {
		t.Errorf("Duration() = %v, want about %v", d, want)
	}
}

func TestDurationNoFrames(t *testing.T) {
	_, err := Duration([]byte("not audio at all"))
	if err == nil {
		t.Fatal("expected error")
	}
	if _, err := Duration(nil); !errors.Is(err, ErrNoFrames) {
		t.Errorf("Duration(nil) = %v, want ErrNoFrames", err)
	}
}

func TestMeasureEmpty(t *testing.T) {
	if _, err := Measure(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty audio")
	}
}

func TestMeasureMP3(t *testing.T) {
	data := testutil.MP3(40)
	ms, err := Measure(context.Background(), data)
	if err != nil {
		t.Fatalf("Measure() error = %v", err)
	}
	if want := testutil.MP3Duration(40); ms < want-1 || ms > want+1 {
		t.Errorf("Measure() = %d ms, want about %d", ms, want)
	}
}

func TestDetectMIME(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}
	tests := []struct {
		name     string
		data     []byte
		fallback string
		want     string
	}{
		{name: "png", data: png, fallback: "application/octet-stream", want: "image/png"},
		{name: "id3 mp3", data: append([]byte("ID3\x04\x00\x00\x00\x00\x00\x00"), make([]byte, 32)...), fallback: "x", want: "audio/mpeg"},
		{name: "unknown", data: []byte("plain"), fallback: "audio/mpeg", want: "audio/mpeg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMIME(tt.data, tt.fallback); got != tt.want {
				t.Errorf("DetectMIME() = %q, want %q", got, tt.want)
			}
		})
	}
}
