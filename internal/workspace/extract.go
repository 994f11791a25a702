package workspace

import (
	"regexp"
	"strings"
)

var fencedBlockRe = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)\\n(.*?)```")

// ExtractCode returns the first fenced code block in text. When language is
// non-empty only blocks tagged with that language (case-insensitive) match;
// otherwise the first block of any language wins. The second return reports
// whether a block was found.
func ExtractCode(text, language string) (string, bool) {
	matches := fencedBlockRe.FindAllStringSubmatch(text, -1)
	for _, m := range matches {
		if language != "" && !strings.EqualFold(m[1], language) {
			continue
		}
		return strings.TrimRight(m[2], "\n") + "\n", true
	}
	return "", false
}
