package endpoints

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackzampolin/lectern/internal/testutil"
)

func TestListLibrary(t *testing.T) {
	env := newTestEnv(t)
	testutil.WritePDF(t, env.libDir, "physics_10.pdf", 1)
	testutil.WritePDF(t, env.libDir, "physics_2.pdf", 2)

	rec := env.do(t, "GET", "/api/library", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[ListLibraryResponse](t, rec)
	if resp.Total != 3 {
		t.Fatalf("total = %d, want 3", resp.Total)
	}
	want := []string{"1", "2", "10"}
	for i, doc := range resp.Documents {
		if doc.Chapter != want[i] {
			t.Errorf("documents[%d].chapter = %q, want %q", i, doc.Chapter, want[i])
		}
	}
	if resp.Documents[0].PageCount != 3 {
		t.Errorf("page count = %d, want 3", resp.Documents[0].PageCount)
	}
}

func TestCover(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, "GET", "/api/library/physics/cover", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing cover: status %d, want 404", rec.Code)
	}

	png := testutil.PNG(4, 6)
	if err := os.WriteFile(filepath.Join(env.libDir, "physics_cover.png"), png, 0o644); err != nil {
		t.Fatal(err)
	}
	rec := env.do(t, "GET", "/api/library/physics/cover", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}

	if err := os.WriteFile(filepath.Join(env.libDir, "chem_cover.png"), []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if rec := env.do(t, "GET", "/api/library/chem/cover", nil); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("corrupt cover: status %d, want 422", rec.Code)
	}
}
