// Package buildcfg assembles the packet pipeline from configuration: the
// library, renderer, provider factory, prompt resolver and pronunciation
// rules. It also re-applies hot-reloaded settings to the running pieces so
// the next packet built uses them.
package buildcfg

import (
	"fmt"
	"log/slog"

	"github.com/jackzampolin/lectern/internal/config"
	"github.com/jackzampolin/lectern/internal/failure"
	"github.com/jackzampolin/lectern/internal/home"
	"github.com/jackzampolin/lectern/internal/packet"
	"github.com/jackzampolin/lectern/internal/pdfsource"
	"github.com/jackzampolin/lectern/internal/prompts"
	lessonprompts "github.com/jackzampolin/lectern/internal/prompts/lesson"
	"github.com/jackzampolin/lectern/internal/providers"
	"github.com/jackzampolin/lectern/internal/transcript"
)

// Overrides replace collaborators that would otherwise come from config.
// Tests and offline commands use them to run without network access.
type Overrides struct {
	Renderer   pdfsource.Renderer
	Generators packet.GeneratorSource
	Speech     packet.SpeechSource
	Cache      packet.Cache
}

// Components are the long-lived pieces a server or CLI command needs.
type Components struct {
	Library  *pdfsource.Library
	Renderer pdfsource.Renderer
	Factory  *providers.Factory
	Prompts  *prompts.Resolver
	Builder  *packet.Builder

	home   *home.Dir
	logger *slog.Logger
}

// New validates cfg and wires the packet builder. A missing or empty
// library is a configuration error.
func New(cfg *config.Config, h *home.Dir, logger *slog.Logger, o Overrides) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}

	library := pdfsource.NewLibrary(LibraryDir(cfg, h)).WithLogger(logger)
	if err := library.Validate(); err != nil {
		return nil, err
	}

	renderer := o.Renderer
	if renderer == nil {
		r, err := pdfsource.NewRenderer(cfg.Library.Renderer, cfg.Library.MaxWidth)
		if err != nil {
			return nil, failure.Configuration("renderer", err)
		}
		renderer = r
	}

	factoryCfg, err := cfg.ToFactoryConfig()
	if err != nil {
		return nil, failure.Configuration("providers", err)
	}
	factory := providers.NewFactory(logger)
	factory.Reload(factoryCfg)

	resolver := prompts.NewResolver(logger)
	lessonprompts.RegisterPrompts(resolver)
	ApplyPrompts(resolver, cfg)

	rules, err := Rules(cfg, h)
	if err != nil {
		return nil, err
	}
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}

	var generators packet.GeneratorSource = factory
	if o.Generators != nil {
		generators = o.Generators
	}
	var speech packet.SpeechSource = factory
	if o.Speech != nil {
		speech = o.Speech
	}

	builder := packet.NewBuilder(packet.Config{
		Renderer:   renderer,
		Generators: generators,
		Speech:     speech,
		Prompts:    resolver,
		Rules:      rules,
		Cache:      o.Cache,
		Options:    opts,
		Logger:     logger,
	})

	return &Components{
		Library:  library,
		Renderer: renderer,
		Factory:  factory,
		Prompts:  resolver,
		Builder:  builder,
		home:     h,
		logger:   logger,
	}, nil
}

// Apply pushes a reloaded config into the running components. On error
// nothing is changed.
func (c *Components) Apply(cfg *config.Config) error {
	factoryCfg, err := cfg.ToFactoryConfig()
	if err != nil {
		return err
	}
	rules, err := Rules(cfg, c.home)
	if err != nil {
		return err
	}
	opts, err := Options(cfg)
	if err != nil {
		return err
	}

	c.Factory.Reload(factoryCfg)
	ApplyPrompts(c.Prompts, cfg)
	c.Builder.Reload(rules, opts)
	c.logger.Info("packet pipeline reloaded from config",
		"generation", cfg.Generation.Type,
		"model", cfg.Generation.Model,
		"voice", cfg.Speech.Voice,
		"rules", rules.Hash())
	return nil
}

// LibraryDir returns the configured library, defaulting to {home}/library.
func LibraryDir(cfg *config.Config, h *home.Dir) string {
	if cfg.Library.Dir != "" || h == nil {
		return cfg.Library.Dir
	}
	return h.LibraryPath()
}

// Options derives per-packet builder options.
func Options(cfg *config.Config) (packet.Options, error) {
	speed, err := providers.ParseRate(cfg.Speech.Rate)
	if err != nil {
		return packet.Options{}, failure.Configuration("speech rate", err)
	}
	return packet.Options{
		Scale:           cfg.Library.Scale,
		ContextPages:    cfg.Generation.ContextPages,
		LeadingSegments: cfg.Generation.LeadingSegments,
		Model:           cfg.Generation.Model,
		Temperature:     cfg.Generation.Temperature,
		MaxTokens:       cfg.Generation.MaxTokens,
		SpeechModel:     cfg.Speech.Model,
		Voice:           cfg.Speech.Voice,
		Speed:           speed,
		Instructions:    cfg.Speech.Instructions,
	}, nil
}

// Rules loads the pronunciation table: rules.path when set, then
// {home}/rules.yaml when present, then the embedded table.
func Rules(cfg *config.Config, h *home.Dir) (*transcript.Rules, error) {
	path := cfg.Rules.Path
	if path == "" && h != nil && h.RulesExists() {
		path = h.RulesPath()
	}
	if path == "" {
		return transcript.DefaultRules(), nil
	}
	rules, err := transcript.LoadRules(path)
	if err != nil {
		return nil, failure.Configuration("rules", fmt.Errorf("%s: %w", path, err))
	}
	return rules, nil
}

// ApplyPrompts points the resolver at configured template files. A missing
// file is reported when a packet resolves the prompt.
func ApplyPrompts(r *prompts.Resolver, cfg *config.Config) {
	r.SetOverride(lessonprompts.SystemPromptKey, cfg.Prompts.SystemFile)
	r.SetOverride(lessonprompts.UserPromptKey, cfg.Prompts.UserFile)
}
