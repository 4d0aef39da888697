package pdfsource

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/jackzampolin/lectern/internal/failure"
	"github.com/jackzampolin/lectern/internal/testutil"
)

func TestLibraryList(t *testing.T) {
	dir := t.TempDir()
	testutil.WritePDF(t, dir, "2_1.pdf", 2)
	testutil.WritePDF(t, dir, "1_10.pdf", 1)
	testutil.WritePDF(t, dir, "1_2.pdf", 3)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	lib := NewLibrary(dir)
	docs, err := lib.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := []struct {
		id    string
		pages int
	}{
		{"1_2", 3},
		{"1_10", 1},
		{"2_1", 2},
	}
	if len(docs) != len(want) {
		t.Fatalf("got %d docs, want %d", len(docs), len(want))
	}
	for i, w := range want {
		if docs[i].ID != w.id || docs[i].PageCount != w.pages {
			t.Errorf("docs[%d] = %s/%d, want %s/%d", i, docs[i].ID, docs[i].PageCount, w.id, w.pages)
		}
	}
}

func TestLibraryOpen(t *testing.T) {
	dir := t.TempDir()
	testutil.WritePDF(t, dir, "3_4.pdf", 5)
	lib := NewLibrary(dir)

	doc, err := lib.Open("3", "4")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if doc.PageCount != 5 || doc.Volume != "3" || doc.Chapter != "4" {
		t.Errorf("unexpected document: %+v", doc)
	}

	tests := []struct {
		name            string
		volume, chapter string
	}{
		{"missing", "3", "5"},
		{"empty chapter", "3", ""},
		{"path escape", "../3", "4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lib.Open(tt.volume, tt.chapter)
			if !failure.Is(err, failure.KindConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestLibraryOpenCorruptPDF(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "1_1.pdf"), []byte("not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewLibrary(dir).Open("1", "1")
	if !failure.Is(err, failure.KindAsset) {
		t.Fatalf("expected asset error, got %v", err)
	}
}

func TestLibraryListSkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	testutil.WritePDF(t, dir, "1_1.pdf", 3)
	if err := os.WriteFile(filepath.Join(dir, "1_2.pdf"), []byte("not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	lib := NewLibrary(dir).WithLogger(testutil.Logger())

	docs, err := lib.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "1_1" || docs[0].PageCount != 3 {
		t.Errorf("List() = %+v, want only 1_1", docs)
	}
	if err := lib.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if _, err := lib.Open("1", "2"); !failure.Is(err, failure.KindAsset) {
		t.Errorf("Open(1, 2) error = %v, want asset error", err)
	}

	bad := t.TempDir()
	if err := os.WriteFile(filepath.Join(bad, "1_1.pdf"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := NewLibrary(bad).WithLogger(testutil.Logger()).Validate(); !failure.Is(err, failure.KindConfiguration) {
		t.Errorf("Validate() with only unreadable documents = %v, want configuration error", err)
	}
}

func TestLibraryValidate(t *testing.T) {
	if err := NewLibrary(filepath.Join(t.TempDir(), "nope")).Validate(); !failure.Is(err, failure.KindConfiguration) {
		t.Errorf("missing dir: got %v", err)
	}
	if err := NewLibrary(t.TempDir()).Validate(); !failure.Is(err, failure.KindConfiguration) {
		t.Errorf("empty dir: got %v", err)
	}

	dir := t.TempDir()
	testutil.WritePDF(t, dir, "1_1.pdf", 1)
	if err := NewLibrary(dir).Validate(); err != nil {
		t.Errorf("populated dir: %v", err)
	}
}

func TestLibraryCover(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "1_cover.png"), testutil.PNG(4, 6), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "2_cover.jpg"), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	lib := NewLibrary(dir)

	data, mime, err := lib.Cover("1")
	if err != nil {
		t.Fatalf("Cover() error = %v", err)
	}
	if mime != "image/png" || len(data) == 0 {
		t.Errorf("Cover() mime = %q len = %d", mime, len(data))
	}

	if _, _, err := lib.Cover("2"); !failure.Is(err, failure.KindAsset) {
		t.Errorf("corrupt cover: got %v", err)
	}
	if _, _, err := lib.Cover("3"); !errors.Is(err, ErrNoCover) {
		t.Errorf("missing cover: got %v", err)
	}
}

func TestListOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"2_10", "2_2", "10_1", "2_ch3", "2_ch12"} {
		testutil.WritePDF(t, dir, name+".pdf", 1)
	}

	docs, err := NewLibrary(dir).List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var got []string
	for _, d := range docs {
		got = append(got, d.Volume+"_"+d.Chapter)
	}
	want := []string{"2_2", "2_10", "2_ch3", "2_ch12", "10_1"}
	if !slices.Equal(got, want) {
		t.Errorf("List() order = %v, want %v", got, want)
	}
}
