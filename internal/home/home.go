// Package home manages the querybar home directory layout.
//
// The home directory owns all persistent state.
//
// Layout:
//
//	<root>/
//	  config.yaml     (settings, optional)
//	  schema.yaml     (field schema override, optional)
//	  recent.db       (recent duration filters, sqlite store only)
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

// Dir represents a querybar home directory.
type Dir struct {
	root string
}

// New creates a Dir with an explicit root path.
func New(root string) Dir {
	return Dir{root: root}
}

// Default returns a Dir using the platform-appropriate default location:
//   - Linux:   ~/.config/querybar
//   - macOS:   ~/Library/Application Support/querybar
//   - Windows: %APPDATA%/querybar
func Default() (Dir, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return Dir{}, fmt.Errorf("determine config directory: %w", err)
	}
	return Dir{root: filepath.Join(base, "querybar")}, nil
}

// Root returns the home directory path.
func (d Dir) Root() string {
	return d.root
}

// ConfigPath returns the path of the settings file.
func (d Dir) ConfigPath() string {
	return filepath.Join(d.root, "config.yaml")
}

// SchemaPath returns the path of the schema override file.
func (d Dir) SchemaPath() string {
	return filepath.Join(d.root, "schema.yaml")
}

// RecentPath returns the path of the recent-durations database.
func (d Dir) RecentPath() string {
	return filepath.Join(d.root, "recent.db")
}

// EnsureExists creates the home directory (and parents) if it doesn't exist.
func (d Dir) EnsureExists() error {
	if err := os.MkdirAll(d.root, 0o750); err != nil {
		return fmt.Errorf("create home directory %s: %w", d.root, err)
	}
	return nil
}

// Exists reports whether a file or directory exists at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
