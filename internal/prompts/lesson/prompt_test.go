package lesson

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackzampolin/lectern/internal/prompts"
)

func newResolver(t *testing.T) *prompts.Resolver {
	t.Helper()
	r := prompts.NewResolver(nil)
	RegisterPrompts(r)
	return r
}

func TestSystemPromptFormat(t *testing.T) {
	for _, token := range []string{"---PAGE_SEP---", "[[VOICE_START]]", "[[VOICE_END]]"} {
		if !strings.Contains(SystemPrompt(), token) {
			t.Errorf("system prompt missing %s", token)
		}
	}
}

func TestBuild(t *testing.T) {
	r := newResolver(t)

	sys, user, hash, err := Build(r, PageData{PageNumber: 7, BatchStart: 6, BatchEnd: 10, PageCount: 42})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if sys != SystemPrompt() {
		t.Error("expected embedded system prompt")
	}
	if !strings.Contains(user, "第 7 頁") || !strings.Contains(user, "第 6 頁到第 10 頁") {
		t.Errorf("user prompt missing page numbers: %q", user)
	}
	if strings.Contains(user, "上下文") {
		t.Errorf("context note rendered without context pages: %q", user)
	}
	if hash == "" {
		t.Error("expected prompt hash")
	}

	_, user, _, err = Build(r, PageData{PageNumber: 1, BatchStart: 1, BatchEnd: 5, PageCount: 5, ContextPages: 2})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !strings.Contains(user, "後面 2 張圖片") {
		t.Errorf("expected context note: %q", user)
	}
}

func TestBuildWithOverride(t *testing.T) {
	r := newResolver(t)
	_, _, before, err := Build(r, PageData{PageNumber: 1})
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "system.tmpl")
	if err := os.WriteFile(path, []byte("You are a patient physics teacher."), 0o644); err != nil {
		t.Fatal(err)
	}
	r.SetOverride(SystemPromptKey, path)

	sys, _, after, err := Build(r, PageData{PageNumber: 1})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if sys != "You are a patient physics teacher." {
		t.Errorf("override not applied: %q", sys)
	}
	if before == after {
		t.Error("prompt hash should change with the override")
	}
}
