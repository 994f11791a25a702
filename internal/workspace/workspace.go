// Package workspace provides sandboxed file access rooted at a project
// directory. All paths are resolved relative to the root; absolute paths
// that escape it are rebased onto the root by basename so generated code
// always lands inside the project.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Workspace reads and writes files under a single root directory.
type Workspace struct {
	root string
}

// New resolves root to an absolute path and returns a workspace over it.
// The directory is created if it does not exist.
func New(root string) (*Workspace, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace root: %w", err)
	}
	return &Workspace{root: abs}, nil
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string {
	return w.root
}

// resolve maps a target path into the workspace. Relative paths join the
// root; absolute paths already inside the root are kept; absolute paths
// outside it are rebased by basename.
func (w *Workspace) resolve(target string) string {
	if target == "" {
		return w.root
	}
	if filepath.IsAbs(target) {
		clean := filepath.Clean(target)
		if clean == w.root || strings.HasPrefix(clean, w.root+string(filepath.Separator)) {
			return clean
		}
		return filepath.Join(w.root, filepath.Base(clean))
	}
	joined := filepath.Join(w.root, target)
	if !strings.HasPrefix(joined, w.root) {
		return filepath.Join(w.root, filepath.Base(target))
	}
	return joined
}

// ReadFile returns the content of target, resolved against the root.
func (w *Workspace) ReadFile(target string) (string, error) {
	path := w.resolve(target)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", target, err)
	}
	return string(data), nil
}

// WriteFile writes content to target atomically: the data goes to a temp
// file in the destination directory first, then a rename swaps it in.
func (w *Workspace) WriteFile(target, content string) error {
	path := w.resolve(target)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to ensure directory for %s: %w", target, err)
	}

	// Same directory so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.WriteString(content); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	tmpPath = ""
	return nil
}
