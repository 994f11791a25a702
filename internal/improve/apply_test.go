package improve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFileBlocks(t *testing.T) {
	text := "Here are the changes.\n" +
		"FILE: index.html\n" +
		"```html\n<html lang=\"en\"></html>\n```\n" +
		"Some explanation.\n" +
		"FILE: css/style.css\n" +
		"```css\nbody { margin: 0; }\n```\n"

	blocks := ExtractFileBlocks(text)
	require.Len(t, blocks, 2)
	assert.Equal(t, "index.html", blocks[0].Path)
	assert.Equal(t, `<html lang="en"></html>`, blocks[0].Code)
	assert.Equal(t, "css/style.css", blocks[1].Path)
	assert.Equal(t, "body { margin: 0; }", blocks[1].Code)
}

func TestExtractFileBlocksDropsDeclarationWithoutBlock(t *testing.T) {
	text := "FILE: orphan.txt\nno code here\n" +
		"FILE: real.txt\n```\ncontent\n```\n"

	blocks := ExtractFileBlocks(text)
	require.Len(t, blocks, 1)
	assert.Equal(t, "real.txt", blocks[0].Path)
}

func TestExtractFileBlocksRepeatedPathKeepsLast(t *testing.T) {
	text := "FILE: a.txt\n```\nfirst\n```\n" +
		"FILE: a.txt\n```\nsecond\n```\n"

	blocks := ExtractFileBlocks(text)
	require.Len(t, blocks, 1)
	assert.Equal(t, "second", blocks[0].Code)
}

func TestExtractFileBlocksEmpty(t *testing.T) {
	assert.Empty(t, ExtractFileBlocks("no declarations at all"))
	assert.Empty(t, ExtractFileBlocks(""))
}

func TestDisplayPath(t *testing.T) {
	root := "/project"

	assert.Equal(t, "index.html", displayPath(root, "index.html"))
	assert.Equal(t, "src/app.js", displayPath(root, "src/app.js"))
	assert.Equal(t, "src/app.js", displayPath(root, "/project/src/app.js"))
	assert.Equal(t, "passwd", displayPath(root, "/etc/passwd"))
}
