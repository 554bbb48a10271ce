package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the quill home directory.
	DefaultDirName = ".quill"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// RunsFileName is the run log file name.
	RunsFileName = "runs.jsonl"

	// PromptsDirName is the subdirectory for saved prompt templates.
	PromptsDirName = "prompts"
)

// Dir represents the quill home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.quill).
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

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// RunsPath returns the path to the run log.
func (d *Dir) RunsPath() string {
	return filepath.Join(d.path, RunsFileName)
}

// PromptsDir returns the directory for saved prompt templates.
func (d *Dir) PromptsDir() string {
	return filepath.Join(d.path, PromptsDirName)
}

// PromptPath returns the path to a named prompt template.
func (d *Dir) PromptPath(name string) string {
	return filepath.Join(d.PromptsDir(), name+".txt")
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.PromptsDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create prompts directory: %w", err)
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
