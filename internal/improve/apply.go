package improve

import (
	"path/filepath"
	"regexp"
	"strings"
)

// FileBlock is one "FILE: path" declaration paired with the fenced code
// block that follows it.
type FileBlock struct {
	Path string
	Code string
}

var (
	fileDeclRe  = regexp.MustCompile(`(?m)FILE:\s*(.+?)\s*$`)
	codeBlockRe = regexp.MustCompile("(?s)```(?:\\w+)?[ \t]*\\n(.*?)```")
)

// ExtractFileBlocks parses model output for FILE declarations, pairing each
// with the first fenced code block before the next declaration. Declarations
// without a following block are dropped. Order is preserved; a repeated path
// keeps its last block.
func ExtractFileBlocks(text string) []FileBlock {
	decls := fileDeclRe.FindAllStringSubmatchIndex(text, -1)

	var blocks []FileBlock
	seen := make(map[string]int)
	for i, decl := range decls {
		path := strings.TrimSpace(text[decl[2]:decl[3]])
		if path == "" {
			continue
		}

		sectionEnd := len(text)
		if i+1 < len(decls) {
			sectionEnd = decls[i+1][0]
		}
		section := text[decl[1]:sectionEnd]

		m := codeBlockRe.FindStringSubmatch(section)
		if m == nil {
			continue
		}
		code := strings.TrimSpace(m[1])

		if at, dup := seen[path]; dup {
			blocks[at].Code = code
			continue
		}
		seen[path] = len(blocks)
		blocks = append(blocks, FileBlock{Path: path, Code: code})
	}
	return blocks
}

// displayPath normalizes a model-supplied target for recording: paths inside
// the root become root-relative, absolute paths outside it collapse to their
// base name (mirroring where the workspace actually writes them).
func displayPath(root, target string) string {
	if !filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	clean := filepath.Clean(target)
	if rel, err := filepath.Rel(root, clean); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return filepath.Base(clean)
}
