// Package fontdir maps font names to their directories under the user's
// font root and removes them on uninstall.
package fontdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultDir is the font root relative to the home directory.
const DefaultDir = ".fonts"

// ErrHomeNotFound is returned when the user's home directory cannot be
// resolved.
var ErrHomeNotFound = errors.New("home folder not found, $HOME might not be set")

// Manager owns the font root directory. Each font lives in its own
// subdirectory, which no other font shares.
type Manager struct {
	root string
}

// Installed describes a font directory found under the root.
type Installed struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// DefaultRoot resolves the font root. An absolute dir is used as-is;
// otherwise it is joined to the home directory returned by home
// (os.UserHomeDir when nil).
func DefaultRoot(home func() (string, error), dir string) (string, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir), nil
	}

	if home == nil {
		home = os.UserHomeDir
	}
	homeDir, err := home()
	if err != nil || homeDir == "" {
		return "", ErrHomeNotFound
	}
	return filepath.Join(homeDir, dir), nil
}

// New creates a Manager rooted at root.
func New(root string) *Manager {
	return &Manager{root: filepath.Clean(root)}
}

// Root returns the font root directory.
func (m *Manager) Root() string {
	return m.root
}

// Path returns the directory of the named font. The name is not validated.
func (m *Manager) Path(name string) string {
	return filepath.Join(m.root, name)
}

// Remove deletes the named font directory and everything in it. A missing
// directory is an error wrapping fs.ErrNotExist.
func (m *Manager) Remove(name string) error {
	dir := m.Path(name)
	if !m.within(dir) {
		return fmt.Errorf("refusing to remove %s: not a directory inside %s", dir, m.root)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("font %s: %w", name, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("font %s: %s is not a directory", name, dir)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove %s: %w", dir, err)
	}
	return nil
}

// List returns the font directories under the root, sorted by name. A root
// that does not exist yet yields an empty list.
func (m *Manager) List() ([]Installed, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read font root: %w", err)
	}

	var out []Installed
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, Installed{Name: e.Name(), Path: m.Path(e.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// within reports whether path is strictly below the root.
func (m *Manager) within(path string) bool {
	rel, err := filepath.Rel(m.root, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
