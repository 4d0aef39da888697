package pdfsource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/jackzampolin/lectern/internal/testutil"
)

func TestNewRenderer(t *testing.T) {
	tests := []struct {
		kind    string
		want    string
		wantErr bool
	}{
		{kind: "", want: "*pdfsource.FitzRenderer"},
		{kind: RendererFitz, want: "*pdfsource.FitzRenderer"},
		{kind: RendererPoppler, want: "*pdfsource.PopplerRenderer"},
		{kind: "ghostscript", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			r, err := NewRenderer(tt.kind, 0)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if tt.wantErr {
				return
			}
			if got := fmt.Sprintf("%T", r); got != tt.want {
				t.Errorf("NewRenderer(%q) = %s, want %s", tt.kind, got, tt.want)
			}
		})
	}
}

func TestFitzRender(t *testing.T) {
	path := testutil.WritePDF(t, t.TempDir(), "1_1.pdf", 2)

	r := &FitzRenderer{}
	data, err := r.Render(context.Background(), path, 1, 2.0)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	// 612x792 points at 144 DPI.
	if w := img.Bounds().Dx(); w < 1220 || w > 1228 {
		t.Errorf("width = %d, want about 1224", w)
	}

	if _, err := r.Render(context.Background(), path, 2, 1.0); err == nil {
		t.Error("expected out of range error")
	}
}

func TestFitzRenderMaxWidth(t *testing.T) {
	path := testutil.WritePDF(t, t.TempDir(), "1_1.pdf", 1)

	data, err := (&FitzRenderer{MaxWidth: 300}).Render(context.Background(), path, 0, 2.0)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w := img.Bounds().Dx(); w != 300 {
		t.Errorf("width = %d, want 300", w)
	}
}

func TestFitzRenderCancelled(t *testing.T) {
	path := testutil.WritePDF(t, t.TempDir(), "1_1.pdf", 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&FitzRenderer{}).Render(ctx, path, 0, 1.0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPopplerRender(t *testing.T) {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		t.Skip("pdftoppm not installed")
	}
	path := testutil.WritePDF(t, t.TempDir(), "1_1.pdf", 1)

	data, err := (&PopplerRenderer{MaxWidth: 200}).Render(context.Background(), path, 0, 1.0)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 200 {
		t.Errorf("width = %d", img.Bounds().Dx())
	}
}

func TestPopplerRenderMissingBinary(t *testing.T) {
	r := &PopplerRenderer{Binary: "lectern-no-such-pdftoppm"}
	if _, err := r.Render(context.Background(), "/nonexistent.pdf", 0, 1.0); err == nil {
		t.Fatal("expected error")
	}
}
