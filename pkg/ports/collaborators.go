package ports

import (
	"context"

	"github.com/loopwise/loopwise/pkg/domain"
)

// Browser performs browser-level side effects attached to steps. Failures
// are reported to the recorder by the caller and never abort a step.
type Browser interface {
	Do(ctx context.Context, action domain.BrowserAction) error
	Close() error
}

// Workspace reads and writes files under a project root. Relative paths are
// resolved against the root.
type Workspace interface {
	Root() string
	ReadFile(path string) (string, error)
	WriteFile(path, content string) error
}

// FileInfo is one scanned project file with bounded content for prompting.
type FileInfo struct {
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	Content string `json:"content,omitempty"`
}

// ProjectContext is a snapshot of the artifact under improvement.
type ProjectContext struct {
	Path  string     `json:"path"`
	Type  string     `json:"type"`
	Files []FileInfo `json:"files"`
}

// Scanner enumerates a project's files and builds the context fed to the
// quality analyzer.
type Scanner interface {
	Context(ctx context.Context) (*ProjectContext, error)
}
