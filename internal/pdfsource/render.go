package pdfsource

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
)

// Renderer turns one page of a PDF into PNG bytes.
type Renderer interface {
	// Render rasterizes the 0-based pageIndex of the PDF at path. scale 1.0
	// is 72 DPI.
	Render(ctx context.Context, path string, pageIndex int, scale float64) ([]byte, error)
}

const (
	RendererFitz    = "fitz"
	RendererPoppler = "poppler"
)

// NewRenderer returns the renderer named kind. maxWidth > 0 downscales wider
// pages to that width.
func NewRenderer(kind string, maxWidth int) (Renderer, error) {
	switch kind {
	case "", RendererFitz:
		return &FitzRenderer{MaxWidth: maxWidth}, nil
	case RendererPoppler:
		return &PopplerRenderer{MaxWidth: maxWidth}, nil
	default:
		return nil, fmt.Errorf("unknown renderer: %s", kind)
	}
}

// FitzRenderer renders with MuPDF.
type FitzRenderer struct {
	MaxWidth int
}

func (r *FitzRenderer) Render(ctx context.Context, path string, pageIndex int, scale float64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	if pageIndex < 0 || pageIndex >= doc.NumPage() {
		return nil, fmt.Errorf("page index %d out of range (%d pages)", pageIndex, doc.NumPage())
	}

	img, err := doc.ImageDPI(pageIndex, dpi(scale))
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", pageIndex+1, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return encodePNG(img, r.MaxWidth)
}

// PopplerRenderer renders with pdftoppm.
type PopplerRenderer struct {
	MaxWidth int
	// Binary overrides the pdftoppm executable.
	Binary string
}

func (r *PopplerRenderer) Render(ctx context.Context, path string, pageIndex int, scale float64) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "lectern-page-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	bin := r.Binary
	if bin == "" {
		bin = "pdftoppm"
	}

	outputPrefix := filepath.Join(tmpDir, "page")
	pageStr := strconv.Itoa(pageIndex + 1)
	cmd := exec.CommandContext(ctx, bin,
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", strconv.FormatFloat(dpi(scale), 'f', 0, 64),
		"-singlefile",
		path,
		outputPrefix,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	data, err := os.ReadFile(outputPrefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}
	if r.MaxWidth <= 0 {
		return data, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode rendered page: %w", err)
	}
	return encodePNG(img, r.MaxWidth)
}

func dpi(scale float64) float64 {
	if scale <= 0 {
		scale = 1
	}
	return 72 * scale
}

func encodePNG(img image.Image, maxWidth int) ([]byte, error) {
	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode page: %w", err)
	}
	return buf.Bytes(), nil
}
