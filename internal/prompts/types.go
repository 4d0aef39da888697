// Package prompts manages the lesson prompt templates.
//
// Embedded .tmpl files are the defaults. A deployment can point a prompt key
// at a file on disk to replace the default without rebuilding:
//
//  1. File override (prompts.system_file or prompts.user_file in config), if set
//  2. Embedded default
package prompts

// EmbeddedPrompt represents a prompt loaded from an embedded .tmpl file.
type EmbeddedPrompt struct {
	Key         string   // Hierarchical key: lesson.system
	Text        string   // The prompt text (Go template)
	Description string   // Human-readable description
	Variables   []string // Extracted template variables
	Hash        string   // SHA256 hash of the text for change detection
}

// ResolvedPrompt is the text that will actually be sent for a key.
type ResolvedPrompt struct {
	Key        string   `json:"key"`
	Text       string   `json:"text"`
	Variables  []string `json:"variables,omitempty"`
	IsOverride bool     `json:"is_override"`
	Source     string   `json:"source"` // "embedded" or the override file path
	Hash       string   `json:"hash"`
}
