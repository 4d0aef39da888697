package endpoints

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSwaggerEmbedded(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/swagger.json", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	spec := decode[map[string]any](t, rec)
	info, _ := spec["info"].(map[string]any)
	if info["title"] != "Lectern API" {
		t.Errorf("title = %v", info["title"])
	}
	paths, _ := spec["paths"].(map[string]any)
	for _, p := range []string{"/api/sessions/{id}/start", "/api/tts/voices", "/ready"} {
		if _, ok := paths[p]; !ok {
			t.Errorf("path %s missing from spec", p)
		}
	}
}

func TestSwaggerSpecPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swagger.json")
	if err := os.WriteFile(path, []byte(`{"swagger":"2.0","info":{"title":"on disk"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	e := &SwaggerEndpoint{SpecPath: path}
	data, err := e.spec()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "on disk") {
		t.Errorf("spec = %s", data)
	}

	// A missing file falls back to the compiled-in document.
	e.SpecPath = filepath.Join(t.TempDir(), "missing.json")
	data, err = e.spec()
	if err != nil || !strings.Contains(string(data), "Lectern API") {
		t.Errorf("fallback spec = %.60s, %v", data, err)
	}
}

func TestStatic(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<title>Lectern</title>") {
		t.Errorf("index: status %d", rec.Code)
	}
	rec = env.do(t, "GET", "/lesson/abc", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<title>Lectern</title>") {
		t.Errorf("client route: status %d", rec.Code)
	}
	rec = env.do(t, "GET", "/api/nothing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown api path: status %d, want 404", rec.Code)
	}
}
