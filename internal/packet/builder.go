package packet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jackzampolin/lectern/internal/audio"
	"github.com/jackzampolin/lectern/internal/failure"
	"github.com/jackzampolin/lectern/internal/pdfsource"
	"github.com/jackzampolin/lectern/internal/prompts"
	"github.com/jackzampolin/lectern/internal/prompts/lesson"
	"github.com/jackzampolin/lectern/internal/providers"
	"github.com/jackzampolin/lectern/internal/transcript"
)

// GeneratorSource returns a generation client for a credential.
type GeneratorSource interface {
	Generator(ctx context.Context, credential string) (providers.Generator, error)
}

// SpeechSource returns the speech client.
type SpeechSource interface {
	Speech() (providers.TTSProvider, error)
}

// Request identifies the page to build.
type Request struct {
	Credential string
	Document   *pdfsource.Document
	BatchStart int
	BatchEnd   int
	Page       int
}

// Options tune a build. Zero values take defaults.
type Options struct {
	// Scale is the render scale; 2.0 is 144 DPI.
	Scale float64
	// ContextPages is how many following pages are sent as extra images.
	ContextPages int
	// LeadingSegments is the number of warm-up segments (0 or 1) the model
	// writes before the page's own segment.
	LeadingSegments int

	Model       string
	Temperature float64
	MaxTokens   int

	SpeechModel  string
	Voice        string
	Speed        float64
	Instructions string
}

// Config holds builder dependencies.
type Config struct {
	Renderer   pdfsource.Renderer
	Generators GeneratorSource
	Speech     SpeechSource
	Prompts    *prompts.Resolver
	Rules      *transcript.Rules
	Cache      Cache // nil disables caching
	Options    Options
	Logger     *slog.Logger
}

// Builder assembles packets. It is safe for concurrent use.
type Builder struct {
	renderer   pdfsource.Renderer
	generators GeneratorSource
	speech     SpeechSource
	prompts    *prompts.Resolver
	cache      Cache
	logger     *slog.Logger

	mu    sync.RWMutex
	rules *transcript.Rules
	opts  Options
}

// NewBuilder creates a builder.
func NewBuilder(cfg Config) *Builder {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Rules == nil {
		cfg.Rules = transcript.DefaultRules()
	}
	if cfg.Prompts == nil {
		cfg.Prompts = prompts.NewResolver(cfg.Logger)
		lesson.RegisterPrompts(cfg.Prompts)
	}
	return &Builder{
		renderer:   cfg.Renderer,
		generators: cfg.Generators,
		speech:     cfg.Speech,
		prompts:    cfg.Prompts,
		cache:      cfg.Cache,
		logger:     cfg.Logger,
		rules:      cfg.Rules,
		opts:       withDefaults(cfg.Options),
	}
}

func withDefaults(o Options) Options {
	if o.Scale <= 0 {
		o.Scale = 2.0
	}
	if o.ContextPages < 0 {
		o.ContextPages = 0
	}
	if o.LeadingSegments < 0 {
		o.LeadingSegments = 0
	}
	return o
}

// Reload swaps rules and options. Builds already running keep the old ones.
func (b *Builder) Reload(rules *transcript.Rules, opts Options) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if rules != nil {
		b.rules = rules
	}
	b.opts = withDefaults(opts)
}

func (b *Builder) snapshot() (*transcript.Rules, Options) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rules, b.opts
}

// Build produces the packet for req.Page. It returns a whole packet or an
// error classified by failure kind; ctx cancellation aborts every external
// call.
func (b *Builder) Build(ctx context.Context, req Request) (*Packet, error) {
	const op = "build packet"
	start := time.Now()
	rules, opts := b.snapshot()

	doc := req.Document
	if doc == nil {
		return nil, failure.Configuration(op, errors.New("no document selected"))
	}
	if req.Page < 1 || req.Page > doc.PageCount {
		return nil, failure.Range(op, fmt.Errorf("page %d outside 1-%d", req.Page, doc.PageCount))
	}

	gen, err := b.generators.Generator(ctx, req.Credential)
	if err != nil {
		return nil, failure.Configuration(op, err)
	}
	speech, err := b.speech.Speech()
	if err != nil {
		return nil, failure.Configuration(op, err)
	}

	batchStart, batchEnd := req.BatchStart, req.BatchEnd
	if batchStart < 1 {
		batchStart = req.Page
	}
	if batchEnd < batchStart {
		batchEnd = req.Page
	}
	contextPages := min(opts.ContextPages, doc.PageCount-req.Page)

	system, user, promptHash, err := lesson.Build(b.prompts, lesson.PageData{
		Volume:       doc.Volume,
		Chapter:      doc.Chapter,
		PageNumber:   req.Page,
		BatchStart:   batchStart,
		BatchEnd:     batchEnd,
		PageCount:    doc.PageCount,
		ContextPages: contextPages,
	})
	if err != nil {
		return nil, failure.Configuration(op, fmt.Errorf("prompt: %w", err))
	}

	logger := b.logger.With("document", doc.ID, "page", req.Page)

	var key string
	if b.cache != nil {
		key = Key(KeyParts{
			Path:         doc.Path,
			Size:         doc.Size,
			ModTime:      doc.ModTime,
			Page:         req.Page,
			BatchStart:   batchStart,
			BatchEnd:     batchEnd,
			PromptHash:   promptHash,
			RulesHash:    rules.Hash(),
			Model:        opts.Model,
			Temperature:  opts.Temperature,
			MaxTokens:    opts.MaxTokens,
			Provider:     gen.Name(),
			Voice:        opts.Voice,
			Speed:        opts.Speed,
			Instructions: opts.Instructions,
			Speech:       speech.Name(),
			SpeechModel:  opts.SpeechModel,
			Leading:      opts.LeadingSegments,
			ContextPages: contextPages,
		})
		if p, ok, err := b.cache.Get(ctx, key); err != nil {
			logger.Warn("packet cache read failed", "error", err)
		} else if ok {
			logger.Debug("packet cache hit")
			p.Cached = true
			return p, nil
		}
	}

	images := make([]providers.Image, 0, 1+contextPages)
	for i := 0; i <= contextPages; i++ {
		png, err := b.renderer.Render(ctx, doc.Path, req.Page-1+i, opts.Scale)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, failure.Asset(op, fmt.Errorf("render page %d: %w", req.Page+i, err))
		}
		images = append(images, providers.Image{Data: png, MIMEType: audio.DetectMIME(png, "image/png")})
	}

	genStart := time.Now()
	res, err := gen.Generate(ctx, &providers.GenerateRequest{
		System:      system,
		Prompt:      user,
		Images:      images,
		Model:       opts.Model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, failure.Upstream(op, fmt.Errorf("generation: %w", err))
	}
	logger.Debug("transcript generated",
		"provider", res.Provider,
		"model", res.ModelUsed,
		"tokens", res.TotalTokens,
		"elapsed", time.Since(genStart))

	raw := res.Text
	if opts.LeadingSegments > 0 || contextPages > 0 {
		raw = transcript.SelectPageSegment(raw, opts.LeadingSegments)
	}

	display := transcript.ExtractDisplayText(raw)
	narration := transcript.ExtractNarrationText(raw)
	spoken := rules.Apply(narration)
	if strings.TrimSpace(spoken) == "" {
		return nil, failure.Upstream(op, errors.New("model returned no narration text"))
	}

	tts, err := speech.Generate(ctx, &providers.TTSRequest{
		Text:         spoken,
		Voice:        opts.Voice,
		Format:       "mp3",
		Speed:        opts.Speed,
		Instructions: opts.Instructions,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, failure.Upstream(op, fmt.Errorf("speech: %w", err))
	}
	if len(tts.Audio) == 0 {
		return nil, failure.Upstream(op, errors.New("speech: empty audio"))
	}

	durationMS, err := audio.Measure(ctx, tts.Audio)
	if err != nil {
		return nil, failure.Upstream(op, fmt.Errorf("speech: %w", err))
	}

	captions := transcript.SplitIntoCaptions(spoken)
	p := &Packet{
		PageNumber:        req.Page,
		Image:             images[0].Data,
		ImageMIME:         images[0].MIMEType,
		DisplayText:       display,
		NarrationText:     narration,
		SpokenText:        spoken,
		Audio:             tts.Audio,
		AudioMIME:         audio.DetectMIME(tts.Audio, "audio/mpeg"),
		DurationMS:        durationMS,
		Captions:          captions,
		CaptionIntervalMS: CaptionInterval(durationMS, len(captions)),
		PromptHash:        promptHash,
		Model:             res.ModelUsed,
		BuiltAt:           time.Now().UTC(),
	}

	if b.cache != nil {
		if err := b.cache.Put(ctx, key, p); err != nil {
			logger.Warn("packet cache write failed", "error", err)
		}
	}

	logger.Info("packet built",
		"captions", len(captions),
		"duration_ms", durationMS,
		"interval_ms", p.CaptionIntervalMS,
		"elapsed", time.Since(start))
	return p, nil
}
