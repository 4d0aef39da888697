// Package lesson holds the prompts that turn a textbook page into a lecture.
package lesson

import (
	_ "embed"

	"github.com/jackzampolin/lectern/internal/prompts"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPromptTmpl string

// Prompt keys
const (
	SystemPromptKey = "lesson.system"
	UserPromptKey   = "lesson.user"
)

// PageData is the data available to the user prompt template.
type PageData struct {
	Volume       string
	Chapter      string
	PageNumber   int
	BatchStart   int
	BatchEnd     int
	PageCount    int
	ContextPages int
}

// SystemPrompt returns the embedded teacher persona and output format.
func SystemPrompt() string {
	return systemPrompt
}

// RegisterPrompts registers the lesson prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Lesson system prompt - teacher persona, required sections, voice markers",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Lesson user prompt template - target page and batch range",
	})
}

// Build resolves both lesson prompts and renders the user prompt for a page.
// The returned hash changes whenever either template changes.
func Build(r *prompts.Resolver, data PageData) (system, user, hash string, err error) {
	sys, err := r.Resolve(SystemPromptKey)
	if err != nil {
		return "", "", "", err
	}
	usr, err := r.Resolve(UserPromptKey)
	if err != nil {
		return "", "", "", err
	}
	user, err = prompts.Execute(UserPromptKey, usr.Text, data)
	if err != nil {
		return "", "", "", err
	}
	return sys.Text, user, prompts.HashText(sys.Hash + usr.Hash), nil
}
