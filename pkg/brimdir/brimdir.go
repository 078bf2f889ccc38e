// Package brimdir encapsulates all path knowledge for the brim configuration
// directory. It provides a Dir value object with accessors for the config
// file, the optional content-blocking rule list and local runtime state.
package brimdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// Name is the directory name used under the user config directory.
const Name = "brim"

// Dir is a value object that resolves paths within a brim directory.
type Dir struct {
	root string
}

// New creates a Dir rooted at the given path. The path is converted to an
// absolute path. No I/O is performed; use EnsureStructure to create the
// directory layout.
func New(root string) Dir {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}

	return Dir{root: abs}
}

// Resolve returns a Dir for root, or for <user config dir>/brim when root is
// empty.
func Resolve(root string) (Dir, error) {
	if root != "" {
		return New(root), nil
	}

	base, err := os.UserConfigDir()
	if err != nil {
		return Dir{}, fmt.Errorf("brimdir: resolve: %w", err)
	}

	return New(filepath.Join(base, Name)), nil
}

// Root returns the absolute path to the brim directory.
func (d Dir) Root() string { return d.root }

// ConfigPath returns the path to the main config file.
func (d Dir) ConfigPath() string { return filepath.Join(d.root, "config.yaml") }

// RulesPath returns the path to the user content-blocking rule list.
func (d Dir) RulesPath() string { return filepath.Join(d.root, "rules.json") }

// EnvPath returns the path to the optional .env file.
func (d Dir) EnvPath() string { return filepath.Join(d.root, ".env") }

// LocalDir returns the path to the local runtime state directory.
func (d Dir) LocalDir() string { return filepath.Join(d.root, "local") }

// LogPath returns the path to the log file inside local/.
func (d Dir) LogPath() string { return filepath.Join(d.root, "local", "brim.log") }

// ProfileDir returns the path to the engine profile directory inside local/.
func (d Dir) ProfileDir() string { return filepath.Join(d.root, "local", "profile") }

// Exists reports whether the root directory exists on disk.
func (d Dir) Exists() bool {
	info, err := os.Stat(d.root)

	return err == nil && info.IsDir()
}

// HasRules reports whether a user rule list is present.
func (d Dir) HasRules() bool {
	info, err := os.Stat(d.RulesPath())

	return err == nil && !info.IsDir()
}

// EnsureStructure creates the root and local/ directories if they are missing.
// It is safe to call multiple times.
func EnsureStructure(d Dir) error {
	if err := os.MkdirAll(d.LocalDir(), 0o750); err != nil {
		return fmt.Errorf("brimdir: create local dir: %w", err)
	}

	return nil
}
