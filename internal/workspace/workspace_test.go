package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	ws, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, ws.WriteFile("src/main.go", "package main\n"))

	got, err := ws.ReadFile("src/main.go")
	require.NoError(t, err)
	assert.Equal(t, "package main\n", got)
}

func TestWriteIsAtomic(t *testing.T) {
	ws, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, ws.WriteFile("out.txt", "v1"))
	require.NoError(t, ws.WriteFile("out.txt", "v2"))

	got, err := ws.ReadFile("out.txt")
	require.NoError(t, err)
	assert.Equal(t, "v2", got)

	// No stray temp files left behind.
	entries, err := os.ReadDir(ws.Root())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAbsolutePathOutsideRootRebased(t *testing.T) {
	ws, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, ws.WriteFile("/etc/generated.txt", "content"))

	_, err = os.Stat(filepath.Join(ws.Root(), "generated.txt"))
	assert.NoError(t, err)
}

func TestRelativeEscapeRebased(t *testing.T) {
	ws, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, ws.WriteFile("../../escape.txt", "content"))

	_, err = os.Stat(filepath.Join(ws.Root(), "escape.txt"))
	assert.NoError(t, err)
}

func TestExtractCode(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		language string
		want     string
		found    bool
	}{
		{
			name:  "plain block",
			text:  "Here you go:\n```\nhello\n```\ndone",
			want:  "hello\n",
			found: true,
		},
		{
			name:     "language tagged",
			text:     "```python\nprint(1)\n```\n```go\nfmt.Println(1)\n```",
			language: "go",
			want:     "fmt.Println(1)\n",
			found:    true,
		},
		{
			name:  "first block wins without language",
			text:  "```python\nprint(1)\n```\n```go\nfmt.Println(1)\n```",
			want:  "print(1)\n",
			found: true,
		},
		{
			name:     "language mismatch",
			text:     "```python\nprint(1)\n```",
			language: "rust",
			found:    false,
		},
		{
			name:  "no block",
			text:  "just prose",
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractCode(tt.text, tt.language)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
