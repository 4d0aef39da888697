package prompts

import (
	"reflect"
	"testing"
)

func TestExtractVariables(t *testing.T) {
	got := ExtractVariables("Page {{.PageNumber}} of {{ .PageCount }} ({{.PageNumber}})")
	want := []string{"PageCount", "PageNumber"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractVariables() = %v, want %v", got, want)
	}
}

func TestExecute(t *testing.T) {
	out, err := Execute("t", "page {{.N}}", map[string]int{"N": 3})
	if err != nil || out != "page 3" {
		t.Fatalf("Execute() = %q, %v", out, err)
	}

	if _, err := Execute("t", "page {{.Missing}}", map[string]int{}); err == nil {
		t.Error("expected error for missing key")
	}
	if _, err := Execute("t", "page {{.N", nil); err == nil {
		t.Error("expected parse error")
	}
}

func TestResolver(t *testing.T) {
	r := NewResolver(nil)
	r.Register(EmbeddedPrompt{Key: "a.system", Text: "hello {{.Name}}"})

	p, err := r.Resolve("a.system")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if p.IsOverride || p.Source != "embedded" {
		t.Errorf("expected embedded prompt, got %+v", p)
	}
	if p.Hash != HashText("hello {{.Name}}") {
		t.Error("unexpected hash")
	}
	if !reflect.DeepEqual(p.Variables, []string{"Name"}) {
		t.Errorf("Variables = %v", p.Variables)
	}

	if _, err := r.Resolve("missing"); err == nil {
		t.Error("expected error for unknown key")
	}

	r.SetOverride("a.system", "/definitely/not/here.tmpl")
	if _, err := r.Resolve("a.system"); err == nil {
		t.Error("expected error for unreadable override")
	}
	r.SetOverride("a.system", "")
	if _, err := r.Resolve("a.system"); err != nil {
		t.Errorf("clearing override should restore embedded prompt: %v", err)
	}

	if got := len(r.AllEmbedded()); got != 1 {
		t.Errorf("AllEmbedded() len = %d, want 1", got)
	}
}
