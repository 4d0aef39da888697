package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the lectern home directory.
	DefaultDirName = ".lectern"

	// LibraryDirName is the subdirectory holding textbook PDFs and covers.
	LibraryDirName = "library"

	// CacheDirName is the subdirectory bind-mounted into the Redis container.
	CacheDirName = "cache"

	// PromptsDirName is the subdirectory for prompt override templates.
	PromptsDirName = "prompts"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// RulesFileName is the pronunciation table looked up in the home directory.
	RulesFileName = "rules.yaml"
)

// Dir represents the lectern home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.lectern).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// LibraryPath returns the default library directory.
func (d *Dir) LibraryPath() string {
	return filepath.Join(d.path, LibraryDirName)
}

// CachePath returns the Redis data directory.
func (d *Dir) CachePath() string {
	return filepath.Join(d.path, CacheDirName)
}

// PromptsPath returns the prompt override directory.
func (d *Dir) PromptsPath() string {
	return filepath.Join(d.path, PromptsDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// RulesPath returns the path of the optional pronunciation table.
func (d *Dir) RulesPath() string {
	return filepath.Join(d.path, RulesFileName)
}

// PacketDir returns the output directory for an offline packet build.
func (d *Dir) PacketDir(docID string, page int) string {
	return filepath.Join(d.path, "packets", docID, fmt.Sprintf("page_%04d", page))
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.LibraryPath(), d.CachePath(), d.PromptsPath()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// RulesExists returns true if a pronunciation table exists in the home directory.
func (d *Dir) RulesExists() bool {
	_, err := os.Stat(d.RulesPath())
	return err == nil
}
