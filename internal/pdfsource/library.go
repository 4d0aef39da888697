// Package pdfsource locates textbook PDFs and renders their pages.
//
// A library is a flat directory of documents named {volume}_{chapter}.pdf,
// with optional cover images named {volume}_cover.png or .jpg.
package pdfsource

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	"github.com/maruel/natural"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/jackzampolin/lectern/internal/failure"
)

// ErrNoCover is returned when a volume has no cover image.
var ErrNoCover = errors.New("no cover image")

var documentName = regexp.MustCompile(`^(.+)_([^_]+)\.pdf$`)

// Document is one chapter PDF.
type Document struct {
	ID        string    `json:"id"`
	Volume    string    `json:"volume"`
	Chapter   string    `json:"chapter"`
	Path      string    `json:"-"`
	PageCount int       `json:"page_count"`
	Size      int64     `json:"size"`
	ModTime   time.Time `json:"mod_time"`
}

// Library reads documents from a directory.
type Library struct {
	dir    string
	logger *slog.Logger

	mu     sync.Mutex
	counts map[string]pageCountEntry
}

type pageCountEntry struct {
	size    int64
	modTime time.Time
	pages   int
}

// NewLibrary returns a library rooted at dir.
func NewLibrary(dir string) *Library {
	return &Library{dir: dir, logger: slog.Default(), counts: make(map[string]pageCountEntry)}
}

// WithLogger sets the logger that reports skipped documents.
func (l *Library) WithLogger(logger *slog.Logger) *Library {
	if logger != nil {
		l.logger = logger
	}
	return l
}

// Dir returns the library directory.
func (l *Library) Dir() string { return l.dir }

// Validate fails when the directory is missing or holds no documents.
func (l *Library) Validate() error {
	docs, err := l.List()
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return failure.Configuration("library", fmt.Errorf("no documents in %s", l.dir))
	}
	return nil
}

// List returns every readable document sorted by volume then chapter.
// Digit runs compare by value, so chapter 2 precedes chapter 10. A PDF
// whose pages cannot be counted is logged and left out; Open reports its
// error.
func (l *Library) List() ([]Document, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, failure.Configuration("library", fmt.Errorf("failed to read library directory: %w", err))
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := documentName.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		doc, err := l.load(m[1], m[2], filepath.Join(l.dir, entry.Name()))
		if err != nil {
			l.logger.Warn("skipping unreadable document", "file", entry.Name(), "error", err)
			continue
		}
		docs = append(docs, *doc)
	}

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Volume != docs[j].Volume {
			return natural.Less(docs[i].Volume, docs[j].Volume)
		}
		return natural.Less(docs[i].Chapter, docs[j].Chapter)
	})
	return docs, nil
}

// Open returns the document for volume and chapter.
func (l *Library) Open(volume, chapter string) (*Document, error) {
	if volume == "" || chapter == "" || strings.ContainsAny(volume+chapter, `/\`) {
		return nil, failure.Configuration("open document", fmt.Errorf("invalid document %q/%q", volume, chapter))
	}
	path := filepath.Join(l.dir, fmt.Sprintf("%s_%s.pdf", volume, chapter))
	return l.load(volume, chapter, path)
}

func (l *Library) load(volume, chapter, path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, failure.Configuration("open document", fmt.Errorf("document not found: %s", filepath.Base(path)))
	}

	pages, err := l.pageCount(path, info.Size(), info.ModTime())
	if err != nil {
		return nil, failure.Asset("open document", err)
	}

	return &Document{
		ID:        volume + "_" + chapter,
		Volume:    volume,
		Chapter:   chapter,
		Path:      path,
		PageCount: pages,
		Size:      info.Size(),
		ModTime:   info.ModTime(),
	}, nil
}

// pageCount reads the page count with pdfcpu, reusing the last answer while
// the file is unchanged.
func (l *Library) pageCount(path string, size int64, modTime time.Time) (int, error) {
	l.mu.Lock()
	if e, ok := l.counts[path]; ok && e.size == size && e.modTime.Equal(modTime) {
		l.mu.Unlock()
		return e.pages, nil
	}
	l.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF %s: %w", filepath.Base(path), err)
	}
	pages, err := api.PageCount(f, nil)
	f.Close()
	if err != nil {
		return 0, fmt.Errorf("failed to get page count for %s: %w", filepath.Base(path), err)
	}

	l.mu.Lock()
	l.counts[path] = pageCountEntry{size: size, modTime: modTime, pages: pages}
	l.mu.Unlock()
	return pages, nil
}

// Cover returns the cover image of volume and its MIME type. The image is
// decoded once to reject corrupt files.
func (l *Library) Cover(volume string) ([]byte, string, error) {
	if volume == "" || strings.ContainsAny(volume, `/\`) {
		return nil, "", failure.Configuration("cover", fmt.Errorf("invalid volume %q", volume))
	}

	for _, ext := range []string{"png", "jpg", "jpeg"} {
		path := filepath.Join(l.dir, fmt.Sprintf("%s_cover.%s", volume, ext))
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, "", failure.Asset("cover", fmt.Errorf("failed to read cover: %w", err))
		}
		if _, err := imaging.Decode(bytes.NewReader(data)); err != nil {
			return nil, "", failure.Asset("cover", fmt.Errorf("corrupt cover %s: %w", filepath.Base(path), err))
		}

		mime := "image/png"
		if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
			mime = kind.MIME.Value
		}
		return data, mime, nil
	}
	return nil, "", ErrNoCover
}
