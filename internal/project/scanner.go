// Package project scans a directory tree into the bounded file snapshot the
// quality analyzer prompts with: matched source files, a detected project
// type, and truncated contents.
package project

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/loopwise/loopwise/internal/logging"
	"github.com/loopwise/loopwise/pkg/ports"
)

// filePatterns maps project types to the globs worth reading for them.
var filePatterns = map[string][]string{
	"website": {"**/*.html", "**/*.css", "**/*.js", "**/*.jsx", "**/*.ts", "**/*.tsx"},
	"python":  {"**/*.py", "**/requirements.txt", "**/setup.py"},
	"node":    {"**/*.js", "**/*.ts", "**/package.json"},
	"general": {"**/*.py", "**/*.js", "**/*.html", "**/*.css", "**/*.json", "**/*.go", "**/*.md"},
}

// defaultIgnores are never scanned regardless of pattern.
var defaultIgnores = []string{
	"**/node_modules/**",
	"**/venv/**",
	"**/.git/**",
	"**/__pycache__/**",
	"**/vendor/**",
	"**/dist/**",
	"**/build/**",
	"**/.env",
	"**/*.pyc",
}

var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".pdf": true, ".zip": true, ".exe": true, ".dll": true, ".so": true,
	".bin": true, ".woff": true, ".woff2": true,
}

const (
	// defaultMaxFileSize skips files too large to usefully prompt with.
	defaultMaxFileSize = 100_000

	// defaultMaxContent bounds how much of each file lands in the context.
	defaultMaxContent = 4_000
)

// Scanner implements ports.Scanner over a directory.
type Scanner struct {
	root        string
	projectType string
	ignores     []string
	maxFileSize int64
	maxContent  int
	logger      *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithProjectType pins the project type instead of detecting it.
func WithProjectType(t string) Option {
	return func(s *Scanner) { s.projectType = t }
}

// WithIgnores appends extra ignore globs to the defaults.
func WithIgnores(globs ...string) Option {
	return func(s *Scanner) { s.ignores = append(s.ignores, globs...) }
}

// WithMaxFileSize changes the per-file size cutoff.
func WithMaxFileSize(n int64) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.maxFileSize = n
		}
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Scanner rooted at dir.
func New(dir string, opts ...Option) (*Scanner, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project path: %w", err)
	}
	s := &Scanner{
		root:        abs,
		ignores:     append([]string(nil), defaultIgnores...),
		maxFileSize: defaultMaxFileSize,
		maxContent:  defaultMaxContent,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the absolute project root.
func (s *Scanner) Root() string { return s.root }

// Context walks the project and builds the prompt snapshot. Binary and
// oversized files are skipped; contents are truncated to the content bound.
func (s *Scanner) Context(ctx context.Context) (*ports.ProjectContext, error) {
	matched, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}

	projectType := s.projectType
	if projectType == "" {
		projectType = detectProjectType(matched)
	}

	files := make([]ports.FileInfo, 0, len(matched))
	for _, rel := range matched {
		full := filepath.Join(s.root, rel)
		info, err := os.Stat(full)
		if err != nil || info.IsDir() || info.Size() > s.maxFileSize {
			continue
		}
		if binaryExtensions[strings.ToLower(filepath.Ext(rel))] {
			continue
		}

		data, err := os.ReadFile(full)
		if err != nil {
			s.logger.Warn("could not read project file", "file", rel, "error", err)
			continue
		}
		content := string(data)
		if len(content) > s.maxContent {
			content = content[:s.maxContent]
		}
		files = append(files, ports.FileInfo{Path: rel, Size: info.Size(), Content: content})
	}

	s.logger.Info("project scanned", "root", s.root, "type", projectType, "files", len(files))
	return &ports.ProjectContext{Path: s.root, Type: projectType, Files: files}, nil
}

// scan returns root-relative paths matching any pattern for the (possibly
// detected) project type, minus ignores, sorted and de-duplicated.
func (s *Scanner) scan(ctx context.Context) ([]string, error) {
	patterns := filePatterns["general"]
	if s.projectType != "" {
		if p, ok := filePatterns[s.projectType]; ok {
			patterns = p
		}
	}

	rootFS := os.DirFS(s.root)
	seen := make(map[string]bool)
	var matched []string
	for _, pattern := range patterns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hits, err := doublestar.Glob(rootFS, pattern)
		if err != nil {
			return nil, fmt.Errorf("bad scan pattern %q: %w", pattern, err)
		}
		for _, rel := range hits {
			if seen[rel] || s.ignored(rel) {
				continue
			}
			seen[rel] = true
			matched = append(matched, rel)
		}
	}
	sort.Strings(matched)
	return matched, nil
}

func (s *Scanner) ignored(rel string) bool {
	for _, pattern := range s.ignores {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// detectProjectType guesses from the matched file set: package.json means
// node, Python plus web assets means website, Python alone means python,
// web assets alone means website, anything else is general.
func detectProjectType(files []string) string {
	var hasPy, hasWeb, hasPackageJSON bool
	for _, f := range files {
		switch {
		case filepath.Base(f) == "package.json":
			hasPackageJSON = true
		case strings.HasSuffix(f, ".py") || filepath.Base(f) == "requirements.txt":
			hasPy = true
		}
		switch filepath.Ext(f) {
		case ".html", ".css", ".jsx", ".tsx":
			hasWeb = true
		}
	}

	switch {
	case hasPackageJSON:
		return "node"
	case hasPy && hasWeb:
		return "website"
	case hasPy:
		return "python"
	case hasWeb:
		return "website"
	}
	return "general"
}
