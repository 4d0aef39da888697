package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/lectern/internal/api"
	"github.com/jackzampolin/lectern/internal/buildcfg"
	"github.com/jackzampolin/lectern/internal/packet"
)

var (
	packetPage       int
	packetCredential string
	packetOut        string
)

var packetCmd = &cobra.Command{
	Use:   "packet <volume> <chapter>",
	Short: "Build one page packet offline",
	Long: `Build the packet for a single page without starting the server.

The page is rendered, transcribed, narrated and captioned exactly as a
lesson would do it, then written to a directory:

  page.<ext>        rendered page image
  narration.<ext>   synthesized audio
  transcript.txt    display text
  spoken.txt        text sent to the speech provider
  manifest.json     captions, timing and prompt hash

Useful for tuning prompts and pronunciation rules.

Examples:
  lectern packet physics 1 --page 3
  lectern packet physics 1 --page 3 --out ./p3`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

		h, err := getHome()
		if err != nil {
			return err
		}
		cm, err := loadConfig(h)
		if err != nil {
			return err
		}

		components, err := buildcfg.New(cm.Get(), h, logger, buildcfg.Overrides{})
		if err != nil {
			return err
		}
		doc, err := components.Library.Open(args[0], args[1])
		if err != nil {
			return err
		}

		start := time.Now()
		p, err := components.Builder.Build(ctx, packet.Request{
			Credential: packetCredential,
			Document:   doc,
			Page:       packetPage,
		})
		if err != nil {
			return err
		}

		dir := packetOut
		if dir == "" {
			dir = h.PacketDir(doc.ID, packetPage)
		}
		m, err := writePacket(dir, p)
		if err != nil {
			return err
		}
		m.Document = doc.ID
		m.Elapsed = time.Since(start).Round(time.Millisecond).String()
		return api.Output(m)
	},
}

func init() {
	packetCmd.Flags().IntVar(&packetPage, "page", 1, "Page number (1-based)")
	packetCmd.Flags().StringVar(&packetCredential, "credential", "", "Generation credential (default: generation.api_key)")
	packetCmd.Flags().StringVar(&packetOut, "out", "", "Output directory (default: {home}/packets/{document}/page_NNNN)")

	rootCmd.AddCommand(packetCmd)
}

// packetManifest describes a packet written to disk.
type packetManifest struct {
	Document          string   `json:"document" yaml:"document"`
	Page              int      `json:"page" yaml:"page"`
	Dir               string   `json:"dir" yaml:"dir"`
	Image             string   `json:"image" yaml:"image"`
	Audio             string   `json:"audio" yaml:"audio"`
	DurationMS        int      `json:"duration_ms" yaml:"duration_ms"`
	CaptionIntervalMS int      `json:"caption_interval_ms" yaml:"caption_interval_ms"`
	Captions          []string `json:"captions" yaml:"captions"`
	PromptHash        string   `json:"prompt_hash" yaml:"prompt_hash"`
	Model             string   `json:"model,omitempty" yaml:"model,omitempty"`
	Cached            bool     `json:"cached,omitempty" yaml:"cached,omitempty"`
	Elapsed           string   `json:"elapsed,omitempty" yaml:"elapsed,omitempty"`
}

// writePacket writes p's media and text into dir.
func writePacket(dir string, p *packet.Packet) (*packetManifest, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	m := &packetManifest{
		Page:              p.PageNumber,
		Dir:               dir,
		Image:             "page." + extension(p.Image, "png"),
		Audio:             "narration." + extension(p.Audio, "mp3"),
		DurationMS:        p.DurationMS,
		CaptionIntervalMS: p.CaptionIntervalMS,
		Captions:          p.Captions,
		PromptHash:        p.PromptHash,
		Model:             p.Model,
		Cached:            p.Cached,
	}

	files := map[string][]byte{
		m.Image:          p.Image,
		m.Audio:          p.Audio,
		"transcript.txt": []byte(p.DisplayText + "\n"),
		"spoken.txt":     []byte(p.SpokenText + "\n"),
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	f, err := os.Create(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return nil, err
	}
	if err := api.OutputTo(f, api.OutputFormatJSON, m); err != nil {
		f.Close()
		return nil, err
	}
	return m, f.Close()
}

// extension sniffs data, falling back to def.
func extension(data []byte, def string) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return def
	}
	return strings.ToLower(kind.Extension)
}
