package project

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
}

func TestContextScansWebsite(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"index.html":     "<html></html>",
		"css/style.css":  "body {}",
		"js/app.js":      "console.log(1)",
		"notes.txt":      "not matched",
		".git/config":    "ignored",
		"dist/bundle.js": "ignored",
	})

	scanner, err := New(root, WithProjectType("website"))
	require.NoError(t, err)

	pc, err := scanner.Context(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "website", pc.Type)
	var got []string
	for _, f := range pc.Files {
		got = append(got, f.Path)
	}
	assert.ElementsMatch(t, []string{"index.html", "css/style.css", "js/app.js"}, got)
}

func TestContextDetectsProjectType(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{
			name:  "node",
			files: map[string]string{"package.json": "{}", "index.js": ""},
			want:  "node",
		},
		{
			name:  "python",
			files: map[string]string{"main.py": "", "requirements.txt": ""},
			want:  "python",
		},
		{
			name:  "python web project",
			files: map[string]string{"app.py": "", "templates/index.html": ""},
			want:  "website",
		},
		{
			name:  "website",
			files: map[string]string{"index.html": "", "style.css": ""},
			want:  "website",
		},
		{
			name:  "general",
			files: map[string]string{"README.md": "hello"},
			want:  "general",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeTree(t, root, tt.files)

			scanner, err := New(root)
			require.NoError(t, err)

			pc, err := scanner.Context(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, pc.Type)
		})
	}
}

func TestContextBoundsContent(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"big.js":   strings.Repeat("x", 10_000),
		"huge.js":  strings.Repeat("y", 200_000),
		"small.js": "ok",
	})

	scanner, err := New(root, WithProjectType("node"))
	require.NoError(t, err)

	pc, err := scanner.Context(context.Background())
	require.NoError(t, err)

	byPath := make(map[string]int)
	for _, f := range pc.Files {
		byPath[f.Path] = len(f.Content)
	}
	assert.Equal(t, 4_000, byPath["big.js"])
	assert.Equal(t, 2, byPath["small.js"])
	// Oversized files are skipped entirely.
	assert.NotContains(t, byPath, "huge.js")
}

func TestContextExtraIgnores(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"index.html":        "<html>",
		"generated/out.html": "<html>",
	})

	scanner, err := New(root, WithProjectType("website"), WithIgnores("generated/**"))
	require.NoError(t, err)

	pc, err := scanner.Context(context.Background())
	require.NoError(t, err)

	require.Len(t, pc.Files, 1)
	assert.Equal(t, "index.html", pc.Files[0].Path)
}
